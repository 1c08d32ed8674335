package netsim

import (
	"sync"
	"time"

	"github.com/tve/protolab/ether"
	"github.com/tve/protolab/thread"
)

// workerHandle owns the ether list while the simulator is Running and the goroutine
// that advances them.
type workerHandle struct {
	stopFlag struct {
		mu      sync.Mutex
		stopped bool
	}
	done chan []*ether.Ether
}

func startWorker(ethers []*ether.Ether, tick time.Duration, realtime bool, logf func(string, ...interface{})) *workerHandle {
	w := &workerHandle{done: make(chan []*ether.Ether, 1)}

	go func() {
		if realtime {
			if err := thread.Realtime(); err != nil {
				logf("could not set realtime scheduling, continuing at normal priority: %v", err)
			}
		}

		for {
			w.stopFlag.mu.Lock()
			stopped := w.stopFlag.stopped
			w.stopFlag.mu.Unlock()
			if stopped {
				break
			}

			time.Sleep(tick)

			for _, e := range ethers {
				e.StartTick()
			}
			for _, e := range ethers {
				e.Simulate()
			}
			for _, e := range ethers {
				e.EndTick()
			}
		}
		w.done <- ethers
	}()

	return w
}

// stop signals the worker to exit at the top of its next loop iteration, waits for it
// to finish, and returns the ether list it was driving.
func (w *workerHandle) stop() []*ether.Ether {
	w.stopFlag.mu.Lock()
	w.stopFlag.stopped = true
	w.stopFlag.mu.Unlock()
	return <-w.done
}
