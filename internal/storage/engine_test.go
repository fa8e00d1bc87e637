package storage

import (
	"testing"

	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"
	"github.com/PranavKndpl/FluxDB/internal/value"
	stderrors "errors"
)

func TestInsertAllocatesMonotoneID(t *testing.T) {
	e := New()
	id1 := e.Insert(value.Document{"a": value.Int(1)})
	id2 := e.Insert(value.Document{"a": value.Int(2)})
	if id2 <= id1 {
		t.Fatalf("expected monotone ids, got %d then %d", id1, id2)
	}
}

func TestInsertWithIDAdvancesAllocator(t *testing.T) {
	e := New()
	e.InsertWithID(5, value.Document{"a": value.Int(1)})
	if e.NextID() != 6 {
		t.Fatalf("expected next id 6, got %d", e.NextID())
	}
	id := e.Insert(value.Document{"a": value.Int(2)})
	if id != 6 {
		t.Fatalf("expected next allocated id to be 6, got %d", id)
	}
}

func TestUpdateNotFound(t *testing.T) {
	e := New()
	if err := e.Update(1, value.Document{}); !stderrors.Is(err, fluxerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveClearsIndex(t *testing.T) {
	e := New()
	e.CreateIndex("city", 0)
	id := e.Insert(value.Document{"city": value.String("nyc")})
	if got := e.Find("city", value.String("nyc")); len(got) != 1 {
		t.Fatalf("expected 1 hit before remove, got %v", got)
	}
	if err := e.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := e.Find("city", value.String("nyc")); len(got) != 0 {
		t.Fatalf("expected 0 hits after remove, got %v", got)
	}
}

func TestAdaptivePromotion(t *testing.T) {
	e := New()
	e.SetAdaptive(true)

	for i := 0; i < 50; i++ {
		e.Insert(value.Document{"city": value.String("x")})
	}

	if e.Index.HasIndex("city") {
		t.Fatalf("field should not be indexed yet")
	}

	// db size < 100 so threshold is 2.
	e.ReportQueryMiss("city", false)
	if e.Index.HasIndex("city") {
		t.Fatalf("field should not be indexed after a single miss")
	}
	e.ReportQueryMiss("city", false)
	if !e.Index.HasIndex("city") {
		t.Fatalf("expected field to be promoted after threshold misses")
	}

	got := e.Find("city", value.String("x"))
	if len(got) != 50 {
		t.Fatalf("expected backfill to cover all 50 docs, got %d", len(got))
	}
}

func TestAdaptivePromotesSortedOnRangeMiss(t *testing.T) {
	e := New()
	e.SetAdaptive(true)
	e.Insert(value.Document{"age": value.Int(1)})

	e.ReportQueryMiss("age", true)
	e.ReportQueryMiss("age", false)

	if got := e.FindRange("age", value.Int(0), value.Int(5)); len(got) != 1 {
		t.Fatalf("expected sorted index to be usable after promotion, got %v", got)
	}
}

func TestClearResetsAllocator(t *testing.T) {
	e := New()
	e.Insert(value.Document{"a": value.Int(1)})
	e.Insert(value.Document{"a": value.Int(2)})
	e.Clear()
	if e.NextID() != 1 {
		t.Fatalf("expected next id reset to 1, got %d", e.NextID())
	}
	if e.Count() != 0 {
		t.Fatalf("expected 0 documents after clear, got %d", e.Count())
	}
}
