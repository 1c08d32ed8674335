// Package protolab contains a discrete-time simulator of half-duplex wireless (or
// single-wire) transceivers on a shared broadcast medium. It lets firmware that expects
// a byte-in/byte-out pin, such as a UART or a radio driver, be exercised in a host
// process against virtual modems attached to a virtual ether, with no hardware present.
//
// The simulator advances logical time in ticks. During each tick every registered modem
// may broadcast at most one byte into its ether, and every registered modem observes
// whatever the ether propagates. See the modem, ether and netsim subpackages for the
// three pieces that implement this: the per-modem half-duplex state machine, the
// broadcast-and-collision engine, and the tick-driven composition/worker lifecycle.
//
// This package itself holds only the capability interfaces that let those subpackages
// operate on any half-duplex fake, not just the one provided by modem.Modem -- the same
// role that the root devices package plays for the SPI/GPIO hardware shims consumed by
// each chip driver in the collection this module is descended from.
package protolab

// PinDevice is the firmware-facing surface of a half-duplex device: the same shape of
// capability firmware expects from a real UART or radio driver.
type PinDevice interface {
	// Read fills buf from the device's TX queue and returns how many bytes were filled.
	// It never blocks and never errors: 0 means nothing was available.
	Read(buf []byte) int

	// Write appends every byte of buf to the device's RX queue and returns len(buf). It
	// never blocks and never errors.
	Write(buf []byte) int

	// Flush is a no-op: the RX/TX queues are already the commit point.
	Flush() bool

	// Readable reports whether a Read would return at least one byte right now.
	Readable() bool

	// Writable always reports true: Write never blocks or fails.
	Writable() bool
}

// NetworkDriver is the ether-facing surface a device must expose to be registered on an
// Ether. modem.Modem implements it; any other half-duplex fake (e.g. a wired single-line
// fake) may substitute for it by implementing the same capability set.
type NetworkDriver interface {
	// Name returns the device's stable identifier, used for ether lookup and for the
	// collision tie-break.
	Name() string

	// StartTick latches the outgoing byte (if any) into the antenna and enters the
	// in-tick phase. A no-op if already in-tick.
	StartTick()

	// EndTick commits a received byte (if the antenna holds one) to the TX queue,
	// clears the antenna, and leaves the in-tick phase. A no-op if already off-tick.
	EndTick()

	// GetFromDeviceNetworkSide returns the byte this device is transmitting this tick,
	// if any. Valid only while in-tick; panics otherwise.
	GetFromDeviceNetworkSide() (byte, bool)

	// PutToDeviceNetworkSide delivers a byte from the ether to this device's antenna.
	// A no-op if the device is itself transmitting this tick (a half-duplex radio
	// cannot hear itself). Valid only while in-tick; panics otherwise.
	PutToDeviceNetworkSide(b byte)

	// GetFromTXPin pops the head of the TX queue, if any.
	GetFromTXPin() (byte, bool)

	// PutToRXPin appends a byte to the RX queue. Valid in any phase.
	PutToRXPin(b byte)

	// Readable reports whether GetFromTXPin would return a byte right now.
	Readable() bool

	// Writable always reports true.
	Writable() bool

	// Handle returns an additional handle sharing the same underlying device state.
	Handle() NetworkDriver
}
