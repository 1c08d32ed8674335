// Package netsim composes one or more ether.Ether instances and drives their tick
// loop, either synchronously (the caller calls StartTick/Simulate/EndTick itself) or
// from a single background worker goroutine advancing every owned ether at a fixed
// period.
//
// A NetworkSimulator is either Configuring (its ethers are present and may be created,
// looked up, or driven synchronously) or Running (a worker owns the ethers and the
// configuration/synchronous-driving API is forbidden). The transition is ownership
// transfer, not locking: StartSimulationThread moves the ether slice into the worker
// goroutine's closure and StopSimulationThread moves it back, the same technique used
// by the reference proto_lab::NetworkSimulator this package replaces the configuration
// half of, and by the spimux package's New for handing two independent Conns a shared
// SPI bus.
package netsim

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tve/protolab/ether"
)

// NetworkSimulator owns a set of ethers and either drives them synchronously or via a
// background worker. It is not safe to copy; pass by pointer.
type NetworkSimulator struct {
	msPerTick time.Duration

	// Realtime, if set before StartSimulationThread, asks the worker goroutine to pin
	// itself to a realtime-scheduled OS thread. Advisory: failure is logged, not fatal.
	Realtime bool

	// Log receives diagnostic lines; defaults to the standard logger with a
	// "netsim: " prefix if nil.
	Log func(format string, v ...interface{})

	mu     sync.Mutex
	ethers []*ether.Ether // present while Configuring, nil while Running

	worker   *workerHandle
	workerMu sync.Mutex
}

// New creates a NetworkSimulator in the Configuring state with an empty ether list and
// the given tick period in milliseconds.
func New(msPerTick uint64) *NetworkSimulator {
	return &NetworkSimulator{
		msPerTick: time.Duration(msPerTick) * time.Millisecond,
		ethers:    []*ether.Ether{},
	}
}

func (n *NetworkSimulator) logf(format string, v ...interface{}) {
	if n.Log != nil {
		n.Log(format, v...)
		return
	}
	log.Printf("netsim: "+format, v...)
}

// CreateEther creates a new ether with the given name and adds it to the simulator.
// Valid only while Configuring; panics if the worker is running.
func (n *NetworkSimulator) CreateEther(name string) *ether.Ether {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ethers == nil {
		panic("netsim: CreateEther called while simulation thread is running")
	}
	e := ether.New(name)
	n.ethers = append(n.ethers, e)
	return e
}

// GetEther returns the ether with the given name, if any. Valid only while Configuring;
// panics if the worker is running.
func (n *NetworkSimulator) GetEther(name string) (*ether.Ether, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ethers == nil {
		panic("netsim: GetEther called while simulation thread is running")
	}
	for _, e := range n.ethers {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// StartTick calls StartTick on every owned ether. Valid only while Configuring.
func (n *NetworkSimulator) StartTick() {
	n.withEthers("StartTick", func(ethers []*ether.Ether) {
		for _, e := range ethers {
			e.StartTick()
		}
	})
}

// Simulate calls Simulate on every owned ether. Valid only while Configuring.
func (n *NetworkSimulator) Simulate() {
	n.withEthers("Simulate", func(ethers []*ether.Ether) {
		for _, e := range ethers {
			e.Simulate()
		}
	})
}

// EndTick calls EndTick on every owned ether. Valid only while Configuring.
func (n *NetworkSimulator) EndTick() {
	n.withEthers("EndTick", func(ethers []*ether.Ether) {
		for _, e := range ethers {
			e.EndTick()
		}
	})
}

func (n *NetworkSimulator) withEthers(op string, fn func([]*ether.Ether)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ethers == nil {
		panic(fmt.Sprintf("netsim: %s called while simulation thread is running", op))
	}
	fn(n.ethers)
}

// StartSimulationThread transfers ownership of the ether list to a new background
// worker goroutine and transitions to Running. Valid only while Configuring; panics if
// a worker is already running.
func (n *NetworkSimulator) StartSimulationThread() {
	n.mu.Lock()
	if n.ethers == nil {
		n.mu.Unlock()
		panic("netsim: StartSimulationThread called while simulation thread is already running")
	}
	ethers := n.ethers
	n.ethers = nil
	n.mu.Unlock()

	worker := startWorker(ethers, n.msPerTick, n.Realtime, n.logf)

	n.workerMu.Lock()
	n.worker = worker
	n.workerMu.Unlock()
}

// StopSimulationThread signals the worker to stop, waits for it to finish its current
// tick, reclaims the ether list, and transitions back to Configuring. Valid only while
// Running; panics if no worker is running.
func (n *NetworkSimulator) StopSimulationThread() {
	n.workerMu.Lock()
	worker := n.worker
	if worker == nil {
		n.workerMu.Unlock()
		panic("netsim: StopSimulationThread called but simulation thread is not running")
	}
	n.worker = nil
	n.workerMu.Unlock()

	ethers := worker.stop()

	n.mu.Lock()
	n.ethers = ethers
	n.mu.Unlock()
}
