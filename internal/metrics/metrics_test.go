package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCommandCounterAppearsAfterObserve(t *testing.T) {
	m := New()
	m.ObserveCommand("INSERT")
	m.ObserveCommand("INSERT")

	body := scrape(t, m)
	if !strings.Contains(body, `fluxdb_commands_total{command="INSERT"} 2`) {
		t.Fatalf("expected INSERT counter at 2, got body:\n%s", body)
	}
}

func TestQueryHitAndMissCounters(t *testing.T) {
	m := New()
	m.RecordQueryHit()
	m.RecordQueryMiss()
	m.RecordQueryMiss()

	body := scrape(t, m)
	if !strings.Contains(body, "fluxdb_query_index_hits_total 1") {
		t.Fatalf("expected 1 hit, got:\n%s", body)
	}
	if !strings.Contains(body, "fluxdb_query_index_misses_total 2") {
		t.Fatalf("expected 2 misses, got:\n%s", body)
	}
}

func TestGaugesReflectLatestValue(t *testing.T) {
	m := New()
	m.SetOpenDatabases(3)
	m.SetDocuments("orders", 42)
	m.SetWALBytes("orders", 1024)

	body := scrape(t, m)
	if !strings.Contains(body, "fluxdb_open_databases 3") {
		t.Fatalf("expected open databases gauge, got:\n%s", body)
	}
	if !strings.Contains(body, `fluxdb_documents_total{database="orders"} 42`) {
		t.Fatalf("expected documents gauge, got:\n%s", body)
	}
	if !strings.Contains(body, `fluxdb_wal_bytes{database="orders"} 1024`) {
		t.Fatalf("expected WAL bytes gauge, got:\n%s", body)
	}
}

func TestIndependentRegistriesDoNotConflict(t *testing.T) {
	a := New()
	b := New()
	a.ObserveCommand("GET")
	b.ObserveCommand("GET")
	b.ObserveCommand("GET")

	if !strings.Contains(scrape(t, a), `fluxdb_commands_total{command="GET"} 1`) {
		t.Fatalf("expected registry a to have count 1")
	}
	if !strings.Contains(scrape(t, b), `fluxdb_commands_total{command="GET"} 2`) {
		t.Fatalf("expected registry b to have count 2")
	}
}
