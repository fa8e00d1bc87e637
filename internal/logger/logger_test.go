package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNamedTagsLinesWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug, "[fluxdb]")
	wal := l.Named("wal")

	wal.Info("checkpoint complete")

	line := buf.String()
	if !strings.Contains(line, "[wal]") {
		t.Fatalf("expected line to carry the component tag, got %q", line)
	}
	if !strings.Contains(line, "[fluxdb]") {
		t.Fatalf("expected line to still carry the root prefix, got %q", line)
	}
}

func TestNamedNestsComponents(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug, "[fluxdb]")
	nested := l.Named("collection").Named("orders")

	nested.Warn("high miss rate")

	if !strings.Contains(buf.String(), "[collection.orders]") {
		t.Fatalf("expected nested component tag, got %q", buf.String())
	}
}

func TestNamedSharesLevelWithParent(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn, "[fluxdb]")
	child := l.Named("wal")

	child.Debug("should be filtered")
	if buf.Len() != 0 {
		t.Fatalf("expected debug line to be filtered by the shared level, got %q", buf.String())
	}

	l.SetLevel(LevelDebug)
	child.Debug("should now pass")
	if buf.Len() == 0 {
		t.Fatalf("expected child logger to observe the parent's SetLevel change")
	}
}
