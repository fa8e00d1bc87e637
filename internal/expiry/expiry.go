// Package expiry implements FluxDB's TTL subsystem: a min-heap of
// (deadline, id) pairs plus a live-deadline map. Stale heap entries —
// superseded by a later setTTL or already removed — are discarded
// lazily on drain rather than eagerly purged from the heap.
package expiry

import (
	"container/heap"
	"sync"
	"time"
)

type heapEntry struct {
	deadline time.Time
	id       uint64
}

type ttlHeap []heapEntry

func (h ttlHeap) Len() int            { return len(h) }
func (h ttlHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h ttlHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *ttlHeap) Push(x interface{}) { *h = append(*h, x.(heapEntry)) }
func (h *ttlHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Manager tracks TTL deadlines independently of a Collection's rw_lock:
// expire() must never block writers, so the sweep's peek phase never
// holds rw_lock.
type Manager struct {
	mu   sync.Mutex
	heap ttlHeap
	live map[uint64]time.Time
}

func NewManager() *Manager {
	m := &Manager{live: make(map[uint64]time.Time)}
	heap.Init(&m.heap)
	return m
}

// SetTTL schedules id to expire in seconds from now, replacing any prior
// deadline. At most one live TTL exists per id at any time; the old heap
// entry (if any) is left in place and discarded lazily on drain.
func (m *Manager) SetTTL(id uint64, seconds int, now time.Time) {
	deadline := now.Add(time.Duration(seconds) * time.Second)
	m.mu.Lock()
	defer m.mu.Unlock()
	heap.Push(&m.heap, heapEntry{deadline: deadline, id: id})
	m.live[id] = deadline
}

// RemoveTTL erases id's live deadline. Heap entries are invalidated
// lazily.
func (m *Manager) RemoveTTL(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, id)
}

// DrainExpired pops every heap entry whose deadline is <= now, returning
// the ids whose live deadline still matches the popped entry (i.e. it was
// not superseded or already removed). Returned ids are candidates only —
// the caller must recheck existence under the Collection's write lock
// before deleting.
func (m *Manager) DrainExpired(now time.Time) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []uint64
	for m.heap.Len() > 0 {
		top := m.heap[0]
		if top.deadline.After(now) {
			break
		}
		heap.Pop(&m.heap)

		if liveDeadline, ok := m.live[top.id]; ok && liveDeadline.Equal(top.deadline) {
			expired = append(expired, top.id)
			delete(m.live, top.id)
		}
		// else: stale entry, discard silently.
	}
	return expired
}

// HasTTL reports whether id currently carries a live deadline.
func (m *Manager) HasTTL(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[id]
	return ok
}
