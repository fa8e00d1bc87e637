// Package database implements the DatabaseManager: a name -> Collection
// registry guarded by a single mutex that protects only the registry
// itself, never a Collection's own internal state. The registry-vs-data
// lock separation follows docdb/internal/catalog/catalog.go, adapted
// from a binary catalog file to an in-memory map backed by the
// *.wal/*.flux files a Collection already owns.
package database

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PranavKndpl/FluxDB/internal/collection"
	"github.com/PranavKndpl/FluxDB/internal/config"
	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"
	"github.com/PranavKndpl/FluxDB/internal/logger"
	"github.com/PranavKndpl/FluxDB/internal/wal"
)

// DefaultName is the sentinel database that drop() always refuses.
const DefaultName = "default"

// Manager owns every open Collection for the server process.
type Manager struct {
	mu       sync.Mutex
	dataDir  string
	collCfg  config.CollectionConfig
	walCfg   config.WALConfig
	log      *logger.Logger
	registry map[string]*collection.Collection
}

// NewManager creates a registry rooted at dataDir. It does not open any
// database eagerly; callers ask for "default" via OpenOrCreate the way
// the wire protocol's implicit startup database does.
func NewManager(dataDir string, collCfg config.CollectionConfig, walCfg config.WALConfig, log *logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return &Manager{
		dataDir:  dataDir,
		collCfg:  collCfg,
		walCfg:   walCfg,
		log:      log,
		registry: make(map[string]*collection.Collection),
	}, nil
}

// OpenOrCreate returns the Collection for name, opening it from disk (or
// creating it fresh) if it is not already registered. newly reports
// whether neither the WAL nor the snapshot file existed at the moment
// of construction.
func (m *Manager) OpenOrCreate(name string) (c *collection.Collection, newly bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.registry[name]; ok {
		return existing, false, nil
	}

	c, newly, err = collection.Open(m.dataDir, name, m.collCfg, m.walCfg, m.log)
	if err != nil {
		return nil, false, err
	}
	m.registry[name] = c
	return c, newly, nil
}

// Drop refuses the sentinel "default" database, otherwise closes and
// removes the Collection from the registry and deletes both its files.
func (m *Manager) Drop(name string) error {
	if name == DefaultName {
		return fluxerrors.ErrDefaultProtected
	}

	m.mu.Lock()
	c, ok := m.registry[name]
	delete(m.registry, name)
	m.mu.Unlock()

	if ok {
		if err := c.Close(); err != nil {
			return err
		}
	}

	walPath, snapshotPath := wal.Paths(m.dataDir, name)
	if err := removeIfExists(walPath); err != nil {
		return err
	}
	return removeIfExists(snapshotPath)
}

// List returns the union of currently-registered names and the .wal/
// .flux file stems found under dataDir.
func (m *Manager) List() ([]string, error) {
	m.mu.Lock()
	names := make(map[string]struct{}, len(m.registry))
	for name := range m.registry {
		names[name] = struct{}{}
	}
	m.mu.Unlock()

	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".wal" && ext != ".flux" {
			continue
		}
		names[strings.TrimSuffix(entry.Name(), ext)] = struct{}{}
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	return out, nil
}

// OpenCollections returns a snapshot of the currently registered
// name -> Collection pairs, used by the metrics refresh loop; it never
// opens anything new.
func (m *Manager) OpenCollections() map[string]*collection.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*collection.Collection, len(m.registry))
	for name, c := range m.registry {
		out[name] = c
	}
	return out
}

// CloseAll closes every registered Collection, used at server shutdown.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first error
	for name, c := range m.registry {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(m.registry, name)
	}
	return first
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
