package mmu

import "fmt"

// traceDepth - how many refill events the debug ring keeps
const traceDepth = 32

// TraceEvent records one translation cache refill.
type TraceEvent struct {
	VAddr uint64
	PBase uint64
	Kind  AccessKind
}

func (e TraceEvent) String() string {
	kinds := [accessKinds]string{"fetch", "load", "store"}
	return fmt.Sprintf("%s %#x -> %#x", kinds[e.Kind], e.VAddr, e.PBase)
}

// TraceBuffer is a bounded FIFO of recent refills, filled in debug mode
// and drained by the console.
type TraceBuffer struct {
	events  []TraceEvent
	maxSize int
}

// NewTraceBuffer returns an empty ring holding at most maxSize events.
func NewTraceBuffer(maxSize int) *TraceBuffer {
	return &TraceBuffer{maxSize: maxSize}
}

// Push adds an event, dropping the oldest one when the ring is full.
func (t *TraceBuffer) Push(e TraceEvent) {
	if len(t.events) == t.maxSize {
		t.events = t.events[1:]
	}
	t.events = append(t.events, e)
}

// Drain returns the buffered events, oldest first, and empties the ring.
func (t *TraceBuffer) Drain() []TraceEvent {
	out := t.events
	t.events = nil
	return out
}

// Len returns the number of buffered events.
func (t *TraceBuffer) Len() int {
	return len(t.events)
}
