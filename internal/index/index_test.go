package index

import (
	"testing"

	"github.com/PranavKndpl/FluxDB/internal/value"
)

func TestHashIndexBasic(t *testing.T) {
	m := NewManager()
	m.Create("city", Hash)

	m.AddDocument(1, value.Document{"city": value.String("nyc")})
	m.AddDocument(2, value.Document{"city": value.String("sf")})
	m.AddDocument(3, value.Document{"city": value.String("nyc")})

	got := m.SearchHash("city", value.String("nyc"))
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %v", got)
	}
}

func TestSortedIndexRange(t *testing.T) {
	m := NewManager()
	m.Create("age", Sorted)

	m.AddDocument(1, value.Document{"age": value.Int(10)})
	m.AddDocument(2, value.Document{"age": value.Int(20)})
	m.AddDocument(3, value.Document{"age": value.Int(30)})

	got := m.SearchSorted("age", value.Int(15), value.Int(25))
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected [2], got %v", got)
	}
}

func TestIndexCoherenceAfterUpdate(t *testing.T) {
	m := NewManager()
	m.Create("city", Hash)

	old := value.Document{"city": value.String("nyc")}
	m.AddDocument(1, old)

	// Simulate an update: remove using the OLD document, then add the new.
	updated := value.Document{"city": value.String("sf")}
	m.RemoveDocument(1, old)
	m.AddDocument(1, updated)

	if got := m.SearchHash("city", value.String("nyc")); len(got) != 0 {
		t.Fatalf("expected no hits for stale value, got %v", got)
	}
	if got := m.SearchHash("city", value.String("sf")); len(got) != 1 {
		t.Fatalf("expected 1 hit for updated value, got %v", got)
	}
}

func TestRemoveWithNewDocumentLeaksStaleEntry(t *testing.T) {
	// Removing using the NEW document (instead of the old one) leaks the
	// stale index entry.
	m := NewManager()
	m.Create("city", Hash)

	old := value.Document{"city": value.String("nyc")}
	m.AddDocument(1, old)

	updated := value.Document{"city": value.String("sf")}
	m.RemoveDocument(1, updated) // wrong: removes nothing, since sf/1 doesn't exist yet
	m.AddDocument(1, updated)

	if got := m.SearchHash("city", value.String("nyc")); len(got) != 1 {
		t.Fatalf("expected the (buggy) leaked stale entry to remain, got %v", got)
	}
}

func TestNonOrderableBoundsReturnEmpty(t *testing.T) {
	m := NewManager()
	m.Create("field", Sorted)
	m.AddDocument(1, value.Document{"field": value.Int(1)})

	obj := value.Object(map[string]value.Value{"x": value.Int(1)})
	got := m.SearchSorted("field", obj, value.Int(10))
	if len(got) != 0 {
		t.Fatalf("expected empty result for non-orderable bound, got %v", got)
	}
}

func TestBackfill(t *testing.T) {
	m := NewManager()
	docs := map[uint64]value.Document{
		1: {"age": value.Int(5)},
		2: {"age": value.Int(15)},
	}
	m.Create("age", Hash)
	m.Backfill("age", docs)

	if got := m.SearchHash("age", value.Int(5)); len(got) != 1 {
		t.Fatalf("expected backfilled hit, got %v", got)
	}
}
