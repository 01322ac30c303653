package acquire

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Signal is one readiness event from a stream: a device record, a
// simulated trigger tick, or a terminal read error.
type Signal struct {
	Source int
	Data   []byte
	ReadAt time.Time
	Err    error
}

// Mux fans the channels of several streams into one event channel. Every
// goroutine started through it stops once Stop is called and is joined by
// Wait.
type Mux struct {
	events chan Signal
	done   chan struct{}
	stop   sync.Once
	g      errgroup.Group

	mu   sync.Mutex
	live map[int]bool
}

// NewMux creates an empty multiplexer.
func NewMux() *Mux {
	return &Mux{
		events: make(chan Signal),
		done:   make(chan struct{}),
		live:   make(map[int]bool),
	}
}

// Go runs fn in the mux's group. fn must return once done is closed.
func (m *Mux) Go(fn func(done <-chan struct{}) error) {
	m.g.Go(func() error { return fn(m.done) })
}

// Subscribe forwards every signal received on src, tagged with id, until
// src is closed or the mux stops.
func (m *Mux) Subscribe(id int, src <-chan Signal) {
	m.mu.Lock()
	m.live[id] = true
	m.mu.Unlock()

	m.Go(func(done <-chan struct{}) error {
		for sig := range src {
			sig.Source = id
			select {
			case m.events <- sig:
			case <-done:
				return nil
			}
		}
		return nil
	})
}

// Unsubscribe stops delivering id's signals. Signals already in flight are
// dropped by Live.
func (m *Mux) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, id)
}

// Live reports whether id is still subscribed.
func (m *Mux) Live(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[id]
}

// Len returns the number of subscribed streams.
func (m *Mux) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Events is the fan-in channel.
func (m *Mux) Events() <-chan Signal { return m.events }

// Stop tells every goroutine to return. It is safe to call more than once.
func (m *Mux) Stop() {
	m.stop.Do(func() { close(m.done) })
}

// Wait joins every goroutine started by the mux.
func (m *Mux) Wait() error {
	return m.g.Wait()
}
