// Package index implements FluxDB's per-field secondary indexes: an
// equality HashIndex and a range-capable SortedIndex. Both are
// multimaps from Value to document id.
package index

import (
	"sync"

	"github.com/tidwall/btree"

	"github.com/PranavKndpl/FluxDB/internal/value"
)

// Kind selects which structure backs a field's index.
type Kind int

const (
	Hash Kind = iota
	Sorted
)

// entry is the item stored in a SortedIndex's underlying B-tree: the
// document id breaks ties between documents that share a value, so the
// tree stays a well-defined total order (a plain multimap-on-value would
// not, since btree.BTreeG requires strict ordering between distinct
// items).
type entry struct {
	val value.Value
	id  uint64
}

func lessEntry(a, b entry) bool {
	if c := value.Compare(a.val, b.val); c != 0 {
		return c < 0
	}
	return a.id < b.id
}

// hashIndex is a multimap from a Value's hash to the (value, id) pairs
// that share it, resolving collisions with a linear scan — the same
// approach std::unordered_multimap takes.
type hashIndex struct {
	buckets map[uint64][]entry
}

func newHashIndex() *hashIndex {
	return &hashIndex{buckets: make(map[uint64][]entry)}
}

func (h *hashIndex) add(v value.Value, id uint64) {
	key := v.Hash()
	h.buckets[key] = append(h.buckets[key], entry{val: v, id: id})
}

// remove deletes exactly one (v, id) entry.
func (h *hashIndex) remove(v value.Value, id uint64) {
	key := v.Hash()
	bucket := h.buckets[key]
	for i, e := range bucket {
		if e.id == id && value.Equal(e.val, v) {
			h.buckets[key] = append(bucket[:i], bucket[i+1:]...)
			if len(h.buckets[key]) == 0 {
				delete(h.buckets, key)
			}
			return
		}
	}
}

func (h *hashIndex) search(v value.Value) []uint64 {
	bucket := h.buckets[v.Hash()]
	var out []uint64
	for _, e := range bucket {
		if value.Equal(e.val, v) {
			out = append(out, e.id)
		}
	}
	return out
}

func (h *hashIndex) forEach(fn func(v value.Value, id uint64)) {
	for _, bucket := range h.buckets {
		for _, e := range bucket {
			fn(e.val, e.id)
		}
	}
}

type sortedIndex struct {
	tree *btree.BTreeG[entry]
}

func newSortedIndex() *sortedIndex {
	return &sortedIndex{tree: btree.NewBTreeG(lessEntry)}
}

func (s *sortedIndex) add(v value.Value, id uint64) {
	s.tree.Set(entry{val: v, id: id})
}

func (s *sortedIndex) remove(v value.Value, id uint64) {
	s.tree.Delete(entry{val: v, id: id})
}

// searchRange returns ids with lo <= value <= hi, in sorted order.
func (s *sortedIndex) searchRange(lo, hi value.Value) []uint64 {
	var out []uint64
	pivot := entry{val: lo, id: 0}
	s.tree.Ascend(pivot, func(item entry) bool {
		if value.Compare(item.val, hi) > 0 {
			return false
		}
		out = append(out, item.id)
		return true
	})
	return out
}

func (s *sortedIndex) forEach(fn func(v value.Value, id uint64)) {
	s.tree.Scan(func(item entry) bool {
		fn(item.val, item.id)
		return true
	})
}

// Manager holds every hash and sorted index a Collection has created,
// keyed by field name. A field may carry both kinds simultaneously.
//
// Manager's own mutex guards only its two top-level maps; the individual
// hash and sorted indexes are not internally locked, so, like
// StorageEngine, callers (the Collection's rw_lock) are responsible for
// serializing reads and writes of index contents.
type Manager struct {
	mu     sync.Mutex // guards only the two top-level maps' existence
	hashes map[string]*hashIndex
	sorted map[string]*sortedIndex
}

func NewManager() *Manager {
	return &Manager{
		hashes: make(map[string]*hashIndex),
		sorted: make(map[string]*sortedIndex),
	}
}

// Create is idempotent on (field, kind).
func (m *Manager) Create(field string, kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case Sorted:
		if _, ok := m.sorted[field]; !ok {
			m.sorted[field] = newSortedIndex()
		}
	default:
		if _, ok := m.hashes[field]; !ok {
			m.hashes[field] = newHashIndex()
		}
	}
}

// HasIndex reports whether field carries either kind of index.
func (m *Manager) HasIndex(field string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, h := m.hashes[field]
	_, s := m.sorted[field]
	return h || s
}

// HasHashIndex reports specifically whether field has a hash index,
// ignoring any sorted index on the same field.
func (m *Manager) HasHashIndex(field string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.hashes[field]
	return ok
}

// AddDocument inserts (value(d.f), id) into every index whose field is
// present in doc.
func (m *Manager) AddDocument(id uint64, doc value.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for field, v := range doc {
		if h, ok := m.hashes[field]; ok {
			h.add(v, id)
		}
		if s, ok := m.sorted[field]; ok {
			s.add(v, id)
		}
	}
}

// RemoveDocument removes exactly one (value(d.f), id) entry per indexed
// field present in doc. Callers must pass the OLD document on update —
// using the new one leaks stale entries.
func (m *Manager) RemoveDocument(id uint64, doc value.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for field, v := range doc {
		if h, ok := m.hashes[field]; ok {
			h.remove(v, id)
		}
		if s, ok := m.sorted[field]; ok {
			s.remove(v, id)
		}
	}
}

// SearchHash returns ids with value v on field, or nil if field has no
// hash index.
func (m *Manager) SearchHash(field string, v value.Value) []uint64 {
	m.mu.Lock()
	h, ok := m.hashes[field]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return h.search(v)
}

// SearchSorted returns ids with lo <= value <= hi in sorted order, or nil
// if field has no sorted index. lo/hi must be orderable (not Object or
// Array); a non-orderable bound yields an empty result rather than an
// error, since no document can ever match an unsatisfiable range.
func (m *Manager) SearchSorted(field string, lo, hi value.Value) []uint64 {
	if !lo.IsOrderable() || !hi.IsOrderable() {
		return nil
	}
	m.mu.Lock()
	s, ok := m.sorted[field]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.searchRange(lo, hi)
}

// Backfill scans a snapshot of the primary map once, adding entries for
// field to whichever index kinds already exist on it. Called after
// Create and by adaptive promotion.
func (m *Manager) Backfill(field string, docs map[uint64]value.Document) {
	m.mu.Lock()
	h, hok := m.hashes[field]
	s, sok := m.sorted[field]
	m.mu.Unlock()
	if !hok && !sok {
		return
	}
	for id, doc := range docs {
		v, ok := doc[field]
		if !ok {
			continue
		}
		if hok {
			h.add(v, id)
		}
		if sok {
			s.add(v, id)
		}
	}
}

// Clear removes every index. Used when a Collection is flushed.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes = make(map[string]*hashIndex)
	m.sorted = make(map[string]*sortedIndex)
}

// Fields returns the set of field names carrying at least one index kind.
func (m *Manager) Fields() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	for f := range m.hashes {
		seen[f] = struct{}{}
	}
	for f := range m.sorted {
		seen[f] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	return out
}
