package otel

import (
	"maps"
	"sync"
)

// DefaultRingSize is the default ring buffer capacity.
const DefaultRingSize = 256

// RingBuffer keeps the most recent events in memory for the debug overlay.
// Safe for concurrent use.
type RingBuffer struct {
	mu     sync.Mutex
	events []Event
	total  uint64 // events ever pushed; total % len(events) is the next slot
}

// NewRingBuffer creates a ring buffer holding up to size events. A
// non-positive size selects DefaultRingSize.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{events: make([]Event, size)}
}

// Push stores e, evicting the oldest event when full. Extra is copied so the
// caller may reuse its map.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		e.Extra = maps.Clone(e.Extra)
	}
	r.mu.Lock()
	r.events[r.total%uint64(len(r.events))] = e
	r.total++
	r.mu.Unlock()
}

// Snapshot returns every buffered event, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	return r.Last(len(r.events))
}

// Last returns up to n of the newest events, oldest first. It returns nil
// when n <= 0 or the buffer is empty.
func (r *RingBuffer) Last(n int) []Event {
	if n <= 0 {
		return nil
	}
	var out []Event
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scan(n, func(e Event) { out = append(out, e) })
	return out
}

// Len returns the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return len(r.events)
}

// Stats counts buffered events by kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	counts := make(map[EventKind]int)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scan(len(r.events), func(e Event) { counts[e.Kind]++ })
	return counts
}

// Cycle returns the buffered events of one fetch cycle, oldest first.
func (r *RingBuffer) Cycle(id string) []Event {
	if id == "" {
		return nil
	}
	var out []Event
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scan(len(r.events), func(e Event) {
		if e.CycleID == id {
			out = append(out, e)
		}
	})
	return out
}

func (r *RingBuffer) lenLocked() int {
	if r.total < uint64(len(r.events)) {
		return int(r.total)
	}
	return len(r.events)
}

// scan calls fn for the newest n events, oldest first. r.mu must be held.
func (r *RingBuffer) scan(n int, fn func(Event)) {
	if held := r.lenLocked(); n > held {
		n = held
	}
	size := uint64(len(r.events))
	for seq := r.total - uint64(n); seq < r.total; seq++ {
		fn(r.events[seq%size])
	}
}
