package pubsub

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

type recordingSubscriber struct {
	received []string
	fail     bool
}

func (r *recordingSubscriber) Send(line string) error {
	if r.fail {
		return errors.New("send failed")
	}
	r.received = append(r.received, line)
	return nil
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	m := NewManager()
	a := &recordingSubscriber{}
	b := &recordingSubscriber{}
	m.Subscribe("orders", uuid.New(), a)
	m.Subscribe("orders", uuid.New(), b)

	count := m.Publish("orders", "hello")
	if count != 2 {
		t.Fatalf("expected 2 recipients, got %d", count)
	}
	if len(a.received) != 1 || a.received[0] != "MESSAGE orders hello" {
		t.Fatalf("unexpected message delivered to a: %v", a.received)
	}
}

func TestPublishToUnknownChannelIsZero(t *testing.T) {
	m := NewManager()
	if count := m.Publish("nobody-listens", "x"); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestUnsubscribeAllRemovesFromEveryChannel(t *testing.T) {
	m := NewManager()
	id := uuid.New()
	sub := &recordingSubscriber{}
	m.Subscribe("a", id, sub)
	m.Subscribe("b", id, sub)

	m.UnsubscribeAll(id)

	if count := m.Publish("a", "x"); count != 0 {
		t.Fatalf("expected subscriber removed from channel a, got count=%d", count)
	}
	if count := m.Publish("b", "x"); count != 0 {
		t.Fatalf("expected subscriber removed from channel b, got count=%d", count)
	}
}

func TestSetEnabledFalseClearsAllState(t *testing.T) {
	m := NewManager()
	m.Subscribe("a", uuid.New(), &recordingSubscriber{})
	m.SetEnabled(false)

	if m.Enabled() {
		t.Fatalf("expected module to report disabled")
	}
	if count := m.Publish("a", "x"); count != 0 {
		t.Fatalf("expected publish to be a no-op while disabled, got %d", count)
	}
}

func TestPublishLeavesFailingSubscriberRegistered(t *testing.T) {
	m := NewManager()
	badID := uuid.New()
	bad := &recordingSubscriber{fail: true}
	good := &recordingSubscriber{}
	m.Subscribe("a", badID, bad)
	m.Subscribe("a", uuid.New(), good)

	count := m.Publish("a", "x")
	if count != 1 {
		t.Fatalf("expected 1 successful delivery, got %d", count)
	}

	// A failed send does not evict the subscriber; only an explicit
	// UnsubscribeAll removes it.
	bad.fail = false
	count = m.Publish("a", "y")
	if count != 2 {
		t.Fatalf("expected the previously-failing subscriber to still be registered, got count=%d", count)
	}
	if len(bad.received) != 1 || bad.received[0] != "MESSAGE a y" {
		t.Fatalf("expected recovered subscriber to receive the message, got %v", bad.received)
	}

	m.UnsubscribeAll(badID)
	count = m.Publish("a", "z")
	if count != 1 {
		t.Fatalf("expected explicit UnsubscribeAll to remove the subscriber, got count=%d", count)
	}
}
