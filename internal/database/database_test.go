package database

import (
	"os"
	"sort"
	"testing"
	"time"

	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"

	"github.com/PranavKndpl/FluxDB/internal/config"
	"github.com/PranavKndpl/FluxDB/internal/logger"
	"github.com/PranavKndpl/FluxDB/internal/value"
	stderrors "errors"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(dir, config.CollectionConfig{
		JanitorInterval: time.Hour,
		TTLInterval:     time.Hour,
	}, config.WALConfig{MaxSizeBytes: 1 << 20, Fsync: true}, logger.Default())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.CloseAll() })
	return m
}

func TestOpenOrCreateReportsNewlyOnce(t *testing.T) {
	m := testManager(t)
	_, newly, err := m.OpenOrCreate("orders")
	if err != nil {
		t.Fatalf("OpenOrCreate: %v", err)
	}
	if !newly {
		t.Fatalf("expected first open to report newly=true")
	}

	_, newly2, err := m.OpenOrCreate("orders")
	if err != nil {
		t.Fatalf("OpenOrCreate: %v", err)
	}
	if newly2 {
		t.Fatalf("expected second open of a registered database to report newly=false")
	}
}

func TestDropRefusesDefault(t *testing.T) {
	m := testManager(t)
	m.OpenOrCreate(DefaultName)
	if err := m.Drop(DefaultName); !stderrors.Is(err, fluxerrors.ErrDefaultProtected) {
		t.Fatalf("expected ErrDefaultProtected, got %v", err)
	}
}

func TestDropRemovesFilesAndUnregisters(t *testing.T) {
	m := testManager(t)
	c, _, err := m.OpenOrCreate("orders")
	if err != nil {
		t.Fatalf("OpenOrCreate: %v", err)
	}
	c.Insert(value.Document{"a": value.Int(1)})
	if err := c.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	if err := m.Drop("orders"); err != nil {
		t.Fatalf("Drop: %v", err)
	}

	names, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, n := range names {
		if n == "orders" {
			t.Fatalf("expected orders to be removed from List, got %v", names)
		}
	}

	if _, err := os.Stat(m.dataDir + "/orders.wal"); !os.IsNotExist(err) {
		t.Fatalf("expected orders.wal to be deleted")
	}
	if _, err := os.Stat(m.dataDir + "/orders.flux"); !os.IsNotExist(err) {
		t.Fatalf("expected orders.flux to be deleted")
	}
}

func TestListUnionsRegistryAndOnDiskStems(t *testing.T) {
	m := testManager(t)
	c, _, err := m.OpenOrCreate("orders")
	if err != nil {
		t.Fatalf("OpenOrCreate: %v", err)
	}
	c.Insert(value.Document{"a": value.Int(1)})
	if err := c.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	delete(m.registry, "orders")

	names, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(names)
	found := false
	for _, n := range names {
		if n == "orders" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected on-disk stem to surface via List even when unregistered, got %v", names)
	}
}
