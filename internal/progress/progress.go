// Package progress fans out workflow progress events to subscribers.
// Emission is non-blocking by contract: a slow subscriber loses its oldest
// events rather than stalling the pipeline.
package progress

import (
	"sync"
	"time"
)

// Event is one progress update, serializable to the wire shape
// {type:"progress", message, progress, timestamp}.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Message   string    `json:"message"`
	Progress  float64   `json:"progress"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives (message, fraction) events. Emit must never block.
type Sink interface {
	Emit(message string, fraction float64)
}

// Noop discards all events.
type Noop struct{}

func (Noop) Emit(string, float64) {}

// Func adapts a function to a Sink.
type Func func(message string, fraction float64)

func (f Func) Emit(message string, fraction float64) { f(message, fraction) }

// Broker is a topic with bounded per-subscriber buffers. Events from one
// Run are observed by each subscriber in sent order; under load the oldest
// buffered events are dropped first.
type Broker struct {
	mu      sync.Mutex
	bufSize int
	nextID  int
	subs    map[int]chan Event
	closed  bool
}

// NewBroker creates a broker whose subscribers each buffer bufSize events.
func NewBroker(bufSize int) *Broker {
	if bufSize < 1 {
		bufSize = 16
	}
	return &Broker{bufSize: bufSize, subs: make(map[int]chan Event)}
}

// WithRunID returns a Sink view of the broker stamping events with a run ID.
func (b *Broker) WithRunID(runID string) Sink {
	return Func(func(message string, fraction float64) {
		b.publish(Event{
			Type:      "progress",
			RunID:     runID,
			Message:   message,
			Progress:  fraction,
			Timestamp: time.Now(),
		})
	})
}

// Emit implements Sink without a run ID.
func (b *Broker) Emit(message string, fraction float64) {
	b.publish(Event{Type: "progress", Message: message, Progress: fraction, Timestamp: time.Now()})
}

func (b *Broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		for {
			select {
			case ch <- ev:
			default:
				// Buffer full: drop the oldest and retry once.
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- ev:
				default:
				}
			}
			break
		}
	}
}

// Subscribe registers a consumer. The returned cancel func must be called
// to release the channel; after cancel the channel is closed.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close closes every subscriber channel and rejects further events.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
