// Package eventbus distributes record change events to live subscribers and
// keeps a short replay buffer for reconnecting clients.
package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gelzieny/tube-link-scribe/internal/metrics"
	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

// Event is one published change, as delivered to stream subscribers.
type Event struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Timestamp       string          `json:"timestamp"`
	UserID          string          `json:"-"`
	TranscriptionID string          `json:"transcription_id"`
	Data            json.RawMessage `json:"data"`
}

// Filter selects events for a subscriber. UserID is required; events of other
// owners are never delivered.
type Filter struct {
	UserID string
	Types  []string
}

// EventBus provides pub-sub event distribution for SSE subscribers.
// It maintains a ring buffer for replay on reconnect.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[uint64]subscriber
	nextID      uint64
	seq         atomic.Uint64

	ring     []Event
	ringSize int
	ringHead int
	ringMu   sync.RWMutex
}

type subscriber struct {
	ch     chan Event
	filter Filter
}

var _ scribe.Notifier = (*EventBus)(nil)

// New creates an event bus with the given ring buffer size.
func New(ringSize int) *EventBus {
	if ringSize < 1 {
		ringSize = 1
	}
	return &EventBus{
		subscribers: make(map[uint64]subscriber),
		ring:        make([]Event, ringSize),
		ringSize:    ringSize,
	}
}

// Subscribe registers a new subscriber and returns a channel and cancel function.
func (eb *EventBus) Subscribe(filter Filter) (<-chan Event, func()) {
	eb.mu.Lock()
	id := eb.nextID
	eb.nextID++
	ch := make(chan Event, 64)
	eb.subscribers[id] = subscriber{ch: ch, filter: filter}
	eb.mu.Unlock()

	cancel := func() {
		eb.mu.Lock()
		delete(eb.subscribers, id)
		eb.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount returns the number of live subscribers.
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// ReplaySince returns buffered events published after lastEventID. An id that
// is no longer buffered replays nothing.
func (eb *EventBus) ReplaySince(lastEventID string, filter Filter) []Event {
	eb.ringMu.RLock()
	defer eb.ringMu.RUnlock()

	var events []Event
	found := lastEventID == ""

	for i := 0; i < eb.ringSize; i++ {
		idx := (eb.ringHead + i) % eb.ringSize
		e := eb.ring[idx]
		if e.ID == "" {
			continue
		}
		if !found {
			if e.ID == lastEventID {
				found = true
			}
			continue
		}
		if matchesFilter(e, filter) {
			events = append(events, e)
		}
	}
	return events
}

// Notify publishes a record change. It never blocks.
func (eb *EventBus) Notify(e scribe.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	seq := eb.seq.Add(1)
	event := Event{
		ID:              fmt.Sprintf("%d-%d", ts.UnixMilli(), seq),
		Type:            e.Type,
		Timestamp:       ts.UTC().Format(time.RFC3339),
		UserID:          e.UserID,
		TranscriptionID: e.TranscriptionID,
		Data:            data,
	}

	eb.ringMu.Lock()
	eb.ring[eb.ringHead] = event
	eb.ringHead = (eb.ringHead + 1) % eb.ringSize
	eb.ringMu.Unlock()

	eb.mu.RLock()
	for _, sub := range eb.subscribers {
		if matchesFilter(event, sub.filter) {
			select {
			case sub.ch <- event:
			default:
				// Drop if subscriber is slow
			}
		}
	}
	eb.mu.RUnlock()
	metrics.EventsPublishedTotal.Inc()
}

func matchesFilter(e Event, f Filter) bool {
	if f.UserID == "" || e.UserID != f.UserID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == e.Type {
			return true
		}
	}
	return false
}
