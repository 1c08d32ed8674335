package ether

import (
	"fmt"
	"sync"
	"time"
)

// traceBuffer is a bounded, independently-locked log of collision-resolution events,
// purely for diagnostics: nothing in Simulate ever reads it back. Adapted from the
// debug-event buffer in the rfm69 package, generalized from a single package-level
// buffer to one instance per ether and given a capacity bound instead of growing
// forever.
type traceBuffer struct {
	mu     sync.Mutex
	cap    int
	events []traceEvent
}

type traceEvent struct {
	at  time.Time
	txt string
}

func newTraceBuffer(capacity int) *traceBuffer {
	return &traceBuffer{cap: capacity}
}

func (t *traceBuffer) pushf(format string, v ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, traceEvent{at: time.Now(), txt: fmt.Sprintf(format, v...)})
	if t.cap > 0 && len(t.events) > t.cap {
		t.events = t.events[len(t.events)-t.cap:]
	}
}

// drain returns every buffered event formatted as "<seconds-since-first>s: <text>" and
// clears the buffer.
func (t *traceBuffer) drain() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) == 0 {
		return nil
	}
	out := make([]string, len(t.events))
	t0 := t.events[0].at
	for i, ev := range t.events {
		out[i] = fmt.Sprintf("%.6fs: %s", ev.at.Sub(t0).Seconds(), ev.txt)
	}
	t.events = nil
	return out
}
