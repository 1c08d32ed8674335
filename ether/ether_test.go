package ether

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/tve/protolab/modem"
)

func tick(e *Ether) {
	e.StartTick()
	e.Simulate()
	e.EndTick()
}

// Test_SingleBroadcasterPropagation verifies that one sender's bytes are delivered, in
// order and unchanged, to every other registered modem, and never loop back to itself.
func Test_SingleBroadcasterPropagation(t *testing.T) {
	e := New("E")

	m1 := modem.New("M1")
	m2 := modem.New("M2")
	m3 := modem.New("M3")
	e.RegisterDriver(m1)
	e.RegisterDriver(m2)
	e.RegisterDriver(m3)

	for _, b := range []byte("xyz") {
		m1.PutToRXPin(b)
	}

	for _, want := range []byte("xyz") {
		tick(e)
		got2, ok2 := m2.GetFromTXPin()
		assert.True(t, ok2)
		assert.Equal(t, want, got2)
		got3, ok3 := m3.GetFromTXPin()
		assert.True(t, ok3)
		assert.Equal(t, want, got3)

		_, selfHeard := m1.GetFromTXPin()
		assert.False(t, selfHeard)
	}
}

// Test_TwoSenderCollision verifies that two continuous senders interleave at a third
// modem such that exactly five of their ten bytes arrive, some from each sender but
// never all five from one.
func Test_TwoSenderCollision(t *testing.T) {
	e := New("E")

	m1 := modem.New("modem_1")
	m2 := modem.New("modem_2")
	m3 := modem.New("modem_3")
	e.RegisterDriver(m1)
	e.RegisterDriver(m2)
	e.RegisterDriver(m3)

	from1 := []byte("abcde")
	from2 := []byte("fghij")
	for _, b := range from1 {
		m1.PutToRXPin(b)
	}
	for _, b := range from2 {
		m2.PutToRXPin(b)
	}

	var caught1, caught2, total int
	for i := 0; i < 100; i++ {
		before := total
		tick(e)
		for {
			b, ok := m3.GetFromTXPin()
			if !ok {
				break
			}
			total++
			switch {
			case contains(from1, b):
				caught1++
			case contains(from2, b):
				caught2++
			default:
				t.Fatalf("unexpected byte %q, not sent by either sender", b)
			}
		}
		// A tick that delivers nothing means both senders have run dry.
		if total == before {
			break
		}
	}

	assert.Equal(t, 5, total)
	assert.True(t, caught1 > 0 && caught1 < 5, "caught1=%d", caught1)
	assert.True(t, caught2 > 0 && caught2 < 5, "caught2=%d", caught2)
}

func contains(set []byte, b byte) bool {
	for _, s := range set {
		if s == b {
			return true
		}
	}
	return false
}

func Test_RegisterUnregisterGetDriver(t *testing.T) {
	e := New("E")
	_, found := e.GetDriver("m")
	assert.False(t, found)

	m := modem.New("m")
	e.RegisterDriver(m)

	got, found := e.GetDriver("m")
	assert.True(t, found)
	assert.Equal(t, "m", got.Name())

	e.UnregisterDriver("m")
	_, found = e.GetDriver("m")
	assert.False(t, found)
}

func Test_DuplicateNameRegistration(t *testing.T) {
	e := New("E")
	m := modem.New("dup")
	e.RegisterDriver(m)
	e.RegisterDriver(m.HandleModem())

	e.UnregisterDriver("dup")
	_, found := e.GetDriver("dup")
	assert.False(t, found, "unregister removes every entry with a matching name")
}

func Test_TraceBufferRecordsAndDrains(t *testing.T) {
	e := NewTraced("E", 0)
	m1 := modem.New("m1")
	m2 := modem.New("m2")
	e.RegisterDriver(m1)
	e.RegisterDriver(m2)

	m1.PutToRXPin('a')
	tick(e)

	events := e.Drain()
	assert.NotEmpty(t, events)

	// draining clears the buffer
	assert.Empty(t, e.Drain())
}

func Test_TraceBufferBounded(t *testing.T) {
	e := NewTraced("E", 2)
	m := modem.New("m")
	e.RegisterDriver(m)
	for i := 0; i < 10; i++ {
		tick(e)
	}
	events := e.Drain()
	assert.LessOrEqual(t, len(events), 2)
}

// Property: a single broadcaster's bytes, of any length and to any number of peers, are
// delivered to every peer in order and unchanged, and never to the broadcaster itself.
func TestProperty_SingleBroadcasterDeliveredInOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seq := rapid.SliceOfN(rapid.Byte(), 1, 40).Draw(t, "seq")
		numPeers := rapid.IntRange(1, 5).Draw(t, "numPeers")

		e := New("E")
		sender := modem.New("sender")
		e.RegisterDriver(sender)

		peers := make([]*modem.Modem, numPeers)
		for i := range peers {
			peers[i] = modem.New(fmt.Sprintf("peer%d", i))
			e.RegisterDriver(peers[i])
		}

		for _, b := range seq {
			sender.PutToRXPin(b)
		}

		for _, want := range seq {
			tick(e)
			for _, p := range peers {
				got, ok := p.GetFromTXPin()
				assert.True(t, ok)
				assert.Equal(t, want, got)
			}
			_, selfHeard := sender.GetFromTXPin()
			assert.False(t, selfHeard)
		}
	})
}

// Property: with two continuous broadcasters and N >= 2 ticks, neither contributes more
// than ceil(N/2)+1 nor fewer than floor(N/2)-1 of the bytes delivered to a third modem.
func TestProperty_CollisionAlternationBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 60).Draw(t, "n")

		e := New("E")
		m1 := modem.New("a")
		m2 := modem.New("b")
		m3 := modem.New("c")
		e.RegisterDriver(m1)
		e.RegisterDriver(m2)
		e.RegisterDriver(m3)

		for i := 0; i < n; i++ {
			m1.PutToRXPin(1)
			m2.PutToRXPin(2)
		}

		var from1, from2 int
		for i := 0; i < n; i++ {
			tick(e)
			for {
				b, ok := m3.GetFromTXPin()
				if !ok {
					break
				}
				if b == 1 {
					from1++
				} else if b == 2 {
					from2++
				}
			}
		}

		ceil := (n+1)/2 + 1
		floor := n/2 - 1

		assert.LessOrEqual(t, from1, ceil)
		assert.LessOrEqual(t, from2, ceil)
		if floor > 0 {
			assert.GreaterOrEqual(t, from1, floor)
			assert.GreaterOrEqual(t, from2, floor)
		}
	})
}
