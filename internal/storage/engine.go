// Package storage implements the primary id->document map, the id
// allocator, IndexManager integration, and the adaptive-indexing
// controller. Every method here is non-locking — the Collection above
// it owns the rw_lock that serializes access.
package storage

import (
	"math"

	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"
	"github.com/PranavKndpl/FluxDB/internal/index"
	"github.com/PranavKndpl/FluxDB/internal/value"
)

const sampleFieldsLimit = 50

// Engine holds the primary document map and its secondary indexes.
type Engine struct {
	docs   map[uint64]value.Document
	Index  *index.Manager
	nextID uint64

	adaptive bool
	adaptor  *adaptiveController
}

func New() *Engine {
	return &Engine{
		docs:    make(map[uint64]value.Document),
		Index:   index.NewManager(),
		nextID:  1,
		adaptor: newAdaptiveController(),
	}
}

// SetAdaptive toggles adaptive indexing (CONFIG ADAPTIVE).
func (e *Engine) SetAdaptive(enabled bool) { e.adaptive = enabled }

// Adaptive reports whether adaptive indexing is currently enabled.
func (e *Engine) Adaptive() bool { return e.adaptive }

// Get returns a borrow of the document, or ok=false if absent.
func (e *Engine) Get(id uint64) (value.Document, bool) {
	doc, ok := e.docs[id]
	return doc, ok
}

// InsertWithID overwrites any existing document at id, updates the index,
// and bumps next_id to max(next_id, id+1).
func (e *Engine) InsertWithID(id uint64, doc value.Document) {
	if old, ok := e.docs[id]; ok {
		e.Index.RemoveDocument(id, old)
	}
	e.docs[id] = doc
	e.Index.AddDocument(id, doc)
	if id+1 > e.nextID {
		e.nextID = id + 1
	}
}

// Insert allocates an id from next_id and inserts doc there.
func (e *Engine) Insert(doc value.Document) uint64 {
	id := e.nextID
	e.nextID++
	e.docs[id] = doc
	e.Index.AddDocument(id, doc)
	return id
}

// Update replaces the document at id, removing the OLD index entries
// before adding the new ones; removing with the new document instead
// would leak stale entries for any field the update changed.
func (e *Engine) Update(id uint64, doc value.Document) error {
	old, ok := e.docs[id]
	if !ok {
		return fluxerrors.ErrNotFound
	}
	e.Index.RemoveDocument(id, old)
	e.docs[id] = doc
	e.Index.AddDocument(id, doc)
	return nil
}

// Remove deletes the document at id and its index entries.
func (e *Engine) Remove(id uint64) error {
	old, ok := e.docs[id]
	if !ok {
		return fluxerrors.ErrNotFound
	}
	e.Index.RemoveDocument(id, old)
	delete(e.docs, id)
	return nil
}

// Clear wipes every document and index, resetting next_id to 1.
func (e *Engine) Clear() {
	e.docs = make(map[uint64]value.Document)
	e.Index.Clear()
	e.nextID = 1
	e.adaptor.reset()
}

// Count returns the number of live documents.
func (e *Engine) Count() int { return len(e.docs) }

// NextID returns the current id allocator watermark.
func (e *Engine) NextID() uint64 { return e.nextID }

// AdvanceNextID bumps next_id to max(next_id, candidate) — used by WAL
// replay, which must never let the allocator regress.
func (e *Engine) AdvanceNextID(candidate uint64) {
	if candidate > e.nextID {
		e.nextID = candidate
	}
}

// Find delegates to the hash index.
func (e *Engine) Find(field string, v value.Value) []uint64 {
	return e.Index.SearchHash(field, v)
}

// FindRange delegates to the sorted index.
func (e *Engine) FindRange(field string, lo, hi value.Value) []uint64 {
	return e.Index.SearchSorted(field, lo, hi)
}

// CreateIndex creates field's index of kind and backfills it from the
// current primary map.
func (e *Engine) CreateIndex(field string, kind index.Kind) {
	e.Index.Create(field, kind)
	e.Index.Backfill(field, e.docs)
}

// ReportQueryMiss feeds the adaptive controller. It is a no-op when
// adaptive mode is off or field already carries an index.
func (e *Engine) ReportQueryMiss(field string, isRange bool) {
	if !e.adaptive {
		return
	}
	if e.Index.HasIndex(field) {
		return
	}
	if kind, promote := e.adaptor.recordMiss(field, isRange, e.Count()); promote {
		e.CreateIndex(field, kind)
	}
}

// Snapshot returns a shallow copy of the primary map, safe for a caller
// to serialize without racing further mutations to the map itself.
func (e *Engine) Snapshot() map[uint64]value.Document {
	out := make(map[uint64]value.Document, len(e.docs))
	for id, doc := range e.docs {
		out[id] = doc
	}
	return out
}

// ForEach calls fn for every (id, document) pair in the primary map, in
// unspecified order, used by find_all's linear scan.
func (e *Engine) ForEach(fn func(id uint64, doc value.Document)) {
	for id, doc := range e.docs {
		fn(id, doc)
	}
}

// SampleFields returns the union of keys from the first sampleFieldsLimit
// documents in (unspecified) iteration order — used only by STATS.
func (e *Engine) SampleFields() []string {
	seen := make(map[string]struct{})
	count := 0
	for _, doc := range e.docs {
		for k := range doc {
			seen[k] = struct{}{}
		}
		count++
		if count >= sampleFieldsLimit {
			break
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}

// dynamicThreshold computes the miss count that triggers index
// promotion:
//
//	threshold = 2                        if |db| < 100
//	threshold = floor(log10(|db|)) + 2   otherwise
func dynamicThreshold(dbSize int) int {
	if dbSize < 100 {
		return 2
	}
	return int(math.Log10(float64(dbSize))) + 2
}
