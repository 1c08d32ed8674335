// Package modem implements a half-duplex byte-level transceiver: two independent
// pin-side byte queues (an RX queue fed by firmware, a TX queue drained by firmware)
// and a per-tick antenna that is either idle, transmitting one byte, or receiving one
// byte, never more than one of the latter two in the same tick.
//
// A single antenna slot is what makes the device half-duplex: during any tick a modem
// either transmits exactly one byte (the oldest one firmware queued) or may receive
// exactly one byte from the ether, never both. Multiple deliveries from the ether
// within one tick overwrite each other -- that's intentional, it's how same-tick bus
// collisions at the receiver are modelled, see PutToDeviceNetworkSide.
//
// Methods are safe for concurrent use: each acquires the modem's own mutex for its
// critical section, in the style of the Radio type in the sx1231/sx1276 packages this
// package is descended from.
package modem

import (
	"fmt"
	"sync"

	"github.com/tve/protolab"
)

// LogPrintf is a logging callback, called only to report a programmer-error condition
// just before it becomes a panic, so a caller capturing logs can see why a run aborted.
type LogPrintf func(format string, v ...interface{})

type tickPhase int

const (
	offTick tickPhase = iota
	inTick
)

type antennaState int

const (
	antennaIdle antennaState = iota
	antennaTransmit
	antennaReceive
)

// internalState is the state shared by every handle to one underlying modem.
type internalState struct {
	mu sync.Mutex

	phase tickPhase

	rxQueue []byte // firmware writes here, awaiting transmission
	txQueue []byte // ether deliveries land here, awaiting firmware reads

	antenna     antennaState
	antennaByte byte

	log LogPrintf
}

// Modem is a handle to a half-duplex transceiver. Handles are cheap to copy by value
// (Handle returns one) and all handles to the same underlying modem observe the same
// state; the modem is destroyed once its last handle is dropped.
type Modem struct {
	name  string
	state *internalState
}

// New creates a modem with the given name and empty RX/TX queues. The name is used for
// ether lookup and as the key in the ether's collision tie-break, so it should be stable
// for the modem's lifetime.
func New(name string) *Modem {
	return &Modem{
		name: name,
		state: &internalState{
			log: func(string, ...interface{}) {},
		},
	}
}

// NewWithLogger is like New but reports programmer-error conditions through logf before
// panicking.
func NewWithLogger(name string, logf LogPrintf) *Modem {
	m := New(name)
	if logf != nil {
		m.state.log = logf
	}
	return m
}

var (
	_ protolab.NetworkDriver = (*Modem)(nil)
	_ protolab.PinDevice     = (*Modem)(nil)
)

// Name returns the modem's stable name.
func (m *Modem) Name() string { return m.name }

// Handle returns an additional handle sharing this modem's underlying state.
func (m *Modem) Handle() protolab.NetworkDriver {
	return &Modem{name: m.name, state: m.state}
}

// HandleModem is like Handle but keeps the concrete *Modem type, for callers (tests,
// the ether package) that want to keep calling *Modem-specific helpers such as Read and
// Write on the returned handle.
func (m *Modem) HandleModem() *Modem {
	return &Modem{name: m.name, state: m.state}
}

// PutToRXPin appends b to the RX queue. Valid in any phase.
func (m *Modem) PutToRXPin(b byte) {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rxQueue = append(s.rxQueue, b)
}

// GetFromTXPin pops the head of the TX queue, if any. Valid in any phase.
func (m *Modem) GetFromTXPin() (byte, bool) {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.txQueue) == 0 {
		return 0, false
	}
	b := s.txQueue[0]
	s.txQueue = s.txQueue[1:]
	return b, true
}

// Readable reports whether the TX queue is non-empty.
func (m *Modem) Readable() bool {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txQueue) > 0
}

// Writable always returns true: PutToRXPin never blocks or fails.
func (m *Modem) Writable() bool { return true }

// Read fills buf from the TX queue and returns the number of bytes filled. It never
// partially fails: any buf position that finds nothing left to read is simply unfilled,
// and the count returned tells the caller how far it got.
func (m *Modem) Read(buf []byte) int {
	n := 0
	for i := range buf {
		b, ok := m.GetFromTXPin()
		if !ok {
			break
		}
		buf[i] = b
		n++
	}
	return n
}

// Write appends every byte of buf to the RX queue and returns len(buf).
func (m *Modem) Write(buf []byte) int {
	for _, b := range buf {
		m.PutToRXPin(b)
	}
	return len(buf)
}

// Flush is a no-op: the queues are already the commit point.
func (m *Modem) Flush() bool { return true }

// StartTick latches the outgoing byte, if any, from the head of the RX queue into the
// antenna, and enters the in-tick phase. A no-op if already in-tick.
func (m *Modem) StartTick() {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == inTick {
		return
	}
	if len(s.rxQueue) > 0 {
		s.antenna = antennaTransmit
		s.antennaByte = s.rxQueue[0]
		s.rxQueue = s.rxQueue[1:]
	} else {
		s.antenna = antennaIdle
	}
	s.phase = inTick
}

// EndTick commits a received byte, if the antenna holds one, to the TX queue, clears
// the antenna, and returns to the off-tick phase. A no-op if already off-tick.
func (m *Modem) EndTick() {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == offTick {
		return
	}
	if s.antenna == antennaReceive {
		s.txQueue = append(s.txQueue, s.antennaByte)
	}
	s.antenna = antennaIdle
	s.phase = offTick
}

// GetFromDeviceNetworkSide returns the byte this modem is transmitting this tick, if
// any. It panics if called off-tick: the ether must bracket simulation with StartTick
// and EndTick.
func (m *Modem) GetFromDeviceNetworkSide() (byte, bool) {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == offTick {
		s.log("modem %q: GetFromDeviceNetworkSide called off-tick", m.name)
		panic(fmt.Sprintf("modem %q: not in simulation mode, call StartTick first", m.name))
	}
	if s.antenna == antennaTransmit {
		return s.antennaByte, true
	}
	return 0, false
}

// PutToDeviceNetworkSide delivers a byte from the ether into this modem's antenna. If
// the modem is itself transmitting this tick, the byte is dropped: a half-duplex radio
// cannot hear itself. Otherwise it overwrites any previously-delivered byte this tick,
// which is how same-tick collisions at the receiver are modelled. It panics if called
// off-tick.
func (m *Modem) PutToDeviceNetworkSide(b byte) {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == offTick {
		s.log("modem %q: PutToDeviceNetworkSide called off-tick", m.name)
		panic(fmt.Sprintf("modem %q: not in simulation mode, call StartTick first", m.name))
	}
	if s.antenna == antennaTransmit {
		return
	}
	s.antenna = antennaReceive
	s.antennaByte = b
}
