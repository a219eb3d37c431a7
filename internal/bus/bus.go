// Package bus implements the broadcast channel between item schedulers and
// output sinks: a bounded ring of sequence-numbered results where every
// subscriber tracks its own read cursor. Publishing never blocks; a
// subscriber that falls more than the ring capacity behind is skipped
// forward and told how many results it missed.
package bus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/probe-agent/internal/digest"
)

// DefaultCapacity bounds how many unread results the bus retains per
// subscriber before the oldest ones are dropped.
const DefaultCapacity = 100

// ErrClosed is returned by Recv once the bus is closed and the subscriber
// has drained every retained result.
var ErrClosed = errors.New("bus closed")

// LagError reports how many results a slow subscriber missed. The
// subscriber's cursor has already been advanced to the oldest retained
// result; the next Recv resumes from there.
type LagError struct {
	Count uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("subscriber lagged, %d results skipped", e.Count)
}

// Bus is safe for concurrent use by any number of publishers and
// subscribers.
type Bus struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []digest.Result
	next   uint64 // sequence number of the next published result
	closed bool
}

func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Bus{ring: make([]digest.Result, capacity)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish appends r to the ring, evicting the oldest retained result when
// full. It never blocks and publishing without subscribers is not an error.
func (b *Bus) Publish(r digest.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.ring[b.next%uint64(len(b.ring))] = r
	b.next++
	b.cond.Broadcast()
}

// Close wakes all subscribers; each drains its remaining results and then
// receives ErrClosed. Further publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// Subscribe registers a new consumer. It observes every result published
// after this call, in publish order, subject to the lag policy.
func (b *Bus) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Subscriber{bus: b, cursor: b.next}
}

// Subscriber is a single consumer's view of the bus. Not safe for
// concurrent use by multiple goroutines.
type Subscriber struct {
	bus    *Bus
	cursor uint64
}

// Recv blocks until the next result is available. It returns a *LagError
// when results were dropped, and ErrClosed once the bus is closed and
// drained.
func (s *Subscriber) Recv() (digest.Result, error) {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if oldest := b.oldestLocked(); s.cursor < oldest {
			missed := oldest - s.cursor
			s.cursor = oldest
			return digest.Result{}, &LagError{Count: missed}
		}
		if s.cursor < b.next {
			r := b.ring[s.cursor%uint64(len(b.ring))]
			s.cursor++
			return r, nil
		}
		if b.closed {
			return digest.Result{}, ErrClosed
		}
		b.cond.Wait()
	}
}

// oldestLocked returns the sequence number of the oldest result still in
// the ring. Caller holds b.mu.
func (b *Bus) oldestLocked() uint64 {
	if capacity := uint64(len(b.ring)); b.next > capacity {
		return b.next - capacity
	}
	return 0
}
