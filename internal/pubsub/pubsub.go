// Package pubsub implements channel<->subscriber fan-out behind one
// mutex, tracking both the channel-to-subscribers map and its inverse
// so a disconnect can unsubscribe a client from every channel in one
// pass. A raw OS socket handle has no Go equivalent once the transport
// is behind an interface, so subscribers are addressed by a
// github.com/google/uuid.UUID that the caller mints once per connection
// (query.NewSession) and passes to Subscribe, instead of a platform
// socket descriptor.
package pubsub

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Subscriber is anything that can receive a published message line. The
// server's per-connection writer implements this.
type Subscriber interface {
	Send(line string) error
}

// Manager fans messages out to subscribers of a channel.
type Manager struct {
	mu     sync.Mutex
	active bool

	channels      map[string]map[uuid.UUID]Subscriber
	subscriptions map[uuid.UUID]map[string]struct{}
}

// NewManager returns an enabled Manager.
func NewManager() *Manager {
	return &Manager{
		active:        true,
		channels:      make(map[string]map[uuid.UUID]Subscriber),
		subscriptions: make(map[uuid.UUID]map[string]struct{}),
	}
}

// SetEnabled toggles the module. Disabling clears every channel and
// subscription, so a later re-enable starts from a clean slate.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = enabled
	if !enabled {
		m.channels = make(map[string]map[uuid.UUID]Subscriber)
		m.subscriptions = make(map[uuid.UUID]map[string]struct{})
	}
}

// Enabled reports whether the module currently accepts subscriptions.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Subscribe registers sub to receive messages published on channel. It
// is a no-op while the module is disabled.
func (m *Manager) Subscribe(channel string, id uuid.UUID, sub Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}

	subs, ok := m.channels[channel]
	if !ok {
		subs = make(map[uuid.UUID]Subscriber)
		m.channels[channel] = subs
	}
	subs[id] = sub

	channelSet, ok := m.subscriptions[id]
	if !ok {
		channelSet = make(map[string]struct{})
		m.subscriptions[id] = channelSet
	}
	channelSet[channel] = struct{}{}
}

// Publish sends message to every subscriber of channel, formatted as
// "MESSAGE <channel> <message>". It returns the number of subscribers
// the message was handed to successfully. A subscriber whose Send
// fails stays registered — the I/O layer, not Publish, is responsible
// for noticing the disconnect and calling UnsubscribeAll.
func (m *Manager) Publish(channel, message string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return 0
	}

	subs, ok := m.channels[channel]
	if !ok {
		return 0
	}

	line := fmt.Sprintf("MESSAGE %s %s", channel, message)
	count := 0
	for _, sub := range subs {
		if err := sub.Send(line); err != nil {
			continue
		}
		count++
	}
	return count
}

// UnsubscribeAll removes id from every channel it was subscribed to,
// used on connection close (original's unsubscribeAll(client)).
func (m *Manager) UnsubscribeAll(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	channelSet, ok := m.subscriptions[id]
	if !ok {
		return
	}
	for channel := range channelSet {
		if subs, ok := m.channels[channel]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(m.channels, channel)
			}
		}
	}
	delete(m.subscriptions, id)
}
