// Package collection implements the Collection type: a single named
// database wrapping the StorageEngine, PersistenceManager, and
// ExpiryManager behind one reader-writer lock, with janitor and TTL
// background goroutines. The wiring mirrors the worker-lifecycle idiom
// of docdb/internal/docdb/worker_pool.go (spawn in the constructor,
// stop via a cancel signal, join with a
// sync.WaitGroup) adapted to run two independent timers, one for
// checkpointing and one for TTL sweeps.
package collection

import (
	"sync"
	"time"

	"github.com/PranavKndpl/FluxDB/internal/config"
	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"
	"github.com/PranavKndpl/FluxDB/internal/expiry"
	"github.com/PranavKndpl/FluxDB/internal/index"
	"github.com/PranavKndpl/FluxDB/internal/logger"
	"github.com/PranavKndpl/FluxDB/internal/storage"
	"github.com/PranavKndpl/FluxDB/internal/value"
	"github.com/PranavKndpl/FluxDB/internal/wal"
)

// Collection is a single named database: one WAL, one snapshot, one
// engine, one lock.
type Collection struct {
	mu   sync.RWMutex
	name string

	engine  *storage.Engine
	persist *wal.Manager
	expiry  *expiry.Manager

	cfg         config.CollectionConfig
	maxWALBytes uint64
	log         *logger.Logger

	closed bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Stats summarizes a Collection for the STATS command.
type Stats struct {
	Name          string   `json:"name"`
	DocumentCount int      `json:"document_count"`
	Adaptive      bool     `json:"adaptive"`
	SampledFields []string `json:"sampled_fields"`
}

// Open constructs a Collection for name under dataDir: runs recovery
// synchronously, then spawns the janitor and TTL goroutines. newly
// reports whether neither backing file existed before this call.
func Open(dataDir, name string, cfg config.CollectionConfig, walCfg config.WALConfig, log *logger.Logger) (c *Collection, newly bool, err error) {
	newly = !wal.Exists(dataDir, name)

	persist, err := wal.Open(dataDir, name, walCfg.Fsync)
	if err != nil {
		return nil, false, err
	}

	nextID, docs, err := persist.Recover()
	if err != nil {
		persist.Close()
		return nil, false, err
	}

	engine := storage.New()
	engine.SetAdaptive(cfg.Adaptive)
	for id, doc := range docs {
		engine.InsertWithID(id, doc)
	}
	engine.AdvanceNextID(nextID)

	c = &Collection{
		name:        name,
		engine:      engine,
		persist:     persist,
		expiry:      expiry.NewManager(),
		cfg:         cfg,
		maxWALBytes: walCfg.MaxSizeBytes,
		log:         log.Named(name),
		stopCh:      make(chan struct{}),
	}

	c.wg.Add(2)
	go c.janitorLoop()
	go c.ttlLoop()

	return c, newly, nil
}

// Insert allocates an id, logs the UPSERT, and inserts doc.
func (c *Collection) Insert(doc value.Document) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, fluxerrors.ErrCollectionClosed
	}

	id := c.engine.NextID()
	if err := c.persist.AppendUpsert(id, doc); err != nil {
		return 0, err
	}
	c.engine.InsertWithID(id, doc)
	return id, nil
}

// InsertWithID logs and inserts doc at an explicit id, overwriting any
// prior document there.
func (c *Collection) InsertWithID(id uint64, doc value.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fluxerrors.ErrCollectionClosed
	}

	if err := c.persist.AppendUpsert(id, doc); err != nil {
		return err
	}
	c.engine.InsertWithID(id, doc)
	return nil
}

// Update replaces the document at id, logging the UPSERT before the
// in-memory mutation. It reports ErrNotFound before touching the WAL
// when id is absent.
func (c *Collection) Update(id uint64, doc value.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fluxerrors.ErrCollectionClosed
	}
	if _, ok := c.engine.Get(id); !ok {
		return fluxerrors.ErrNotFound
	}
	if err := c.persist.AppendUpsert(id, doc); err != nil {
		return err
	}
	return c.engine.Update(id, doc)
}

// Remove logs a DELETE, removes the document, and clears any TTL state.
func (c *Collection) Remove(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fluxerrors.ErrCollectionClosed
	}
	if _, ok := c.engine.Get(id); !ok {
		return fluxerrors.ErrNotFound
	}
	if err := c.persist.AppendDelete(id); err != nil {
		return err
	}
	if err := c.engine.Remove(id); err != nil {
		return err
	}
	c.expiry.RemoveTTL(id)
	return nil
}

// Get returns the document at id under a shared lock. The returned map is
// the one the engine stores, not a copy.
func (c *Collection) Get(id uint64) (value.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.Get(id)
}

// Find probes the hash index for field==v.
func (c *Collection) Find(field string, v value.Value) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.Find(field, v)
}

// FindRange probes the sorted index for field in [lo, hi].
func (c *Collection) FindRange(field string, lo, hi value.Value) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.FindRange(field, lo, hi)
}

// FindAll linear-scans the primary map under a shared lock, returning
// the ids of documents that satisfy pred.
func (c *Collection) FindAll(pred func(value.Document) bool) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []uint64
	c.engine.ForEach(func(id uint64, doc value.Document) {
		if pred(doc) {
			ids = append(ids, id)
		}
	})
	return ids
}

// ReportQueryMiss feeds the adaptive controller. The miss counter is
// mutated under the exclusive lock even though FIND is otherwise a
// read path, since concurrent misses on the same field must not race.
func (c *Collection) ReportQueryMiss(field string, isRange bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.ReportQueryMiss(field, isRange)
}

// CreateIndex creates and backfills an index on field.
func (c *Collection) CreateIndex(field string, kind index.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.CreateIndex(field, kind)
}

// Expire schedules a TTL for id, seconds from now.
func (c *Collection) Expire(id uint64, seconds int64) {
	c.expiry.SetTTL(id, int(seconds), time.Now())
}

// SetAdaptive toggles adaptive indexing (CONFIG ADAPTIVE).
func (c *Collection) SetAdaptive(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.SetAdaptive(enabled)
}

// Checkpoint snapshots the current state and truncates the WAL. It is
// idempotent: calling it on an unchanged collection just rewrites the
// same snapshot.
func (c *Collection) Checkpoint() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpointLocked()
}

func (c *Collection) checkpointLocked() error {
	docs := c.engine.Snapshot()
	return c.persist.Checkpoint(c.engine.NextID(), docs)
}

// Clear wipes every document, writes an empty snapshot, and truncates
// the WAL, resetting the engine's id allocator.
func (c *Collection) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.Clear()
	return c.checkpointLocked()
}

// Stats reports document count, adaptive flag, and sampled field names.
func (c *Collection) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Name:          c.name,
		DocumentCount: c.engine.Count(),
		Adaptive:      c.engine.Adaptive(),
		SampledFields: c.engine.SampleFields(),
	}
}

// WALSize returns the current write-ahead log size in bytes, used by
// the metrics refresh loop.
func (c *Collection) WALSize() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.persist.WALSize()
}

// Close stops the janitor and TTL goroutines, joins them, then closes
// the WAL handle. It is idempotent.
func (c *Collection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stopCh)
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persist.Close()
}

func (c *Collection) janitorLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.RLock()
			closed := c.closed
			size := c.persist.WALSize()
			c.mu.RUnlock()
			if closed {
				return
			}
			if uint64(size) > c.maxWALSize() {
				if err := c.Checkpoint(); err != nil {
					c.log.Error("checkpoint failed: %v", err)
				}
			}
		}
	}
}

func (c *Collection) ttlLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.TTLInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			candidates := c.expiry.DrainExpired(time.Now())
			if len(candidates) == 0 {
				continue
			}
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			for _, id := range candidates {
				if _, ok := c.engine.Get(id); !ok {
					continue
				}
				if err := c.persist.AppendDelete(id); err != nil {
					c.log.Error("ttl delete failed for id=%d: %v", id, err)
					continue
				}
				c.engine.Remove(id)
			}
			c.mu.Unlock()
		}
	}
}

// maxWALSize is set per instance from the WALConfig passed to Open
// (config.DefaultConfig supplies the default); the janitor reads it from
// the WAL config it was constructed with, wired in by database.Manager.
func (c *Collection) maxWALSize() uint64 {
	return c.maxWALBytes
}
