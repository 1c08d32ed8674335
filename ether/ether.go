// Package ether implements the broadcast medium that connects a set of registered
// half-duplex devices: the modems that can hear each other.
//
// Each tick, Simulate samples every registered device's outgoing byte, resolves which
// byte (if any) wins the shared bus this tick, and delivers the winner back to every
// registered device, including the winner itself (whose own device will no-op the
// delivery because it is itself transmitting).
//
// An Ether's device list is guarded by its own mutex, in the same style as the shared
// SPI-bus mutex in the spimux package this package is descended from: spimux serializes
// two devices sharing one physical bus behind a single lock so that a Tx on one device
// cannot interleave with a Tx on the other; Ether does the analogous thing for any
// number of devices sharing one broadcast medium.
package ether

import (
	"sort"
	"sync"

	"github.com/tve/protolab"
)

// Ether is a broadcast medium holding a set of registered half-duplex devices.
type Ether struct {
	name string

	mu      sync.Mutex
	devices []protolab.NetworkDriver

	lastBroadcaster string
	haveLast        bool

	trace *traceBuffer
}

// New creates an empty ether with the given name.
func New(name string) *Ether {
	return &Ether{name: name}
}

// NewTraced is like New but keeps a bounded trace buffer of collision-resolution events,
// retrievable with Drain. capacity <= 0 means no limit.
func NewTraced(name string, capacity int) *Ether {
	e := New(name)
	e.trace = newTraceBuffer(capacity)
	return e
}

// Name returns the ether's name.
func (e *Ether) Name() string { return e.name }

// RegisterDriver appends a handle to the device list. Registering the same name more
// than once is permitted and is not deduplicated: callers that register a name twice
// will see it collapse to one entry during collision resolution (see Simulate), since
// that resolution is keyed by name.
func (e *Ether) RegisterDriver(d protolab.NetworkDriver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.devices = append(e.devices, d)
	e.tracef("register %s", d.Name())
}

// UnregisterDriver removes every registered entry whose name equals name.
func (e *Ether) UnregisterDriver(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.devices[:0]
	removed := 0
	for _, d := range e.devices {
		if d.Name() == name {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	e.devices = kept
	if removed > 0 {
		e.tracef("unregister %s (%d entries)", name, removed)
	}
}

// GetDriver returns a fresh handle to the first registered entry with the given name,
// or false if none is registered.
func (e *Ether) GetDriver(name string) (protolab.NetworkDriver, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range e.devices {
		if d.Name() == name {
			return d.Handle(), true
		}
	}
	return nil, false
}

// StartTick calls StartTick on every registered device.
func (e *Ether) StartTick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range e.devices {
		d.StartTick()
	}
}

// EndTick calls EndTick on every registered device.
func (e *Ether) EndTick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range e.devices {
		d.EndTick()
	}
}

// Simulate performs one byte-propagation step. It must be called between StartTick and
// EndTick.
//
// It collects every registered device's outgoing byte into a mapping keyed by name
// (duplicate names collapse, last one collected wins), iterates that mapping in sorted
// name order for a deterministic tie-break, and if more than one name is present and a
// previous winner is remembered, drops that previous winner's entry so it yields to
// someone else this round. The first remaining entry in sorted order is delivered to
// every registered device. If nothing remains, nothing is delivered this tick and the
// remembered winner is cleared.
func (e *Ether) Simulate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	broadcasting := make(map[string]byte)
	for _, d := range e.devices {
		if b, ok := d.GetFromDeviceNetworkSide(); ok {
			broadcasting[d.Name()] = b
		}
	}

	names := make([]string, 0, len(broadcasting))
	for n := range broadcasting {
		names = append(names, n)
	}
	sort.Strings(names)

	if e.haveLast && len(names) > 1 {
		filtered := names[:0]
		for _, n := range names {
			if n != e.lastBroadcaster {
				filtered = append(filtered, n)
			}
		}
		names = filtered
	}

	if len(names) == 0 {
		e.haveLast = false
		e.lastBroadcaster = ""
		e.tracef("no broadcaster")
		return
	}

	winner := names[0]
	b := broadcasting[winner]
	e.lastBroadcaster = winner
	e.haveLast = true
	e.tracef("winner %s byte %#02x", winner, b)

	for _, d := range e.devices {
		d.PutToDeviceNetworkSide(b)
	}
}

// Drain returns and clears the ether's accumulated trace events, or nil if the ether
// was not created with NewTraced.
func (e *Ether) Drain() []string {
	if e.trace == nil {
		return nil
	}
	return e.trace.drain()
}

func (e *Ether) tracef(format string, v ...interface{}) {
	if e.trace == nil {
		return
	}
	e.trace.pushf(format, v...)
}
