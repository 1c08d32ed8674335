// meshdemo reproduces, at the simulator level, the two-node scenario from the original
// embedded_nano_mesh example: one ether with two modems, a message written to the first
// modem's RX pin, and a bounded wait for it to surface on the second modem's TX pin. The
// mesh addressing/framing protocol itself is out of scope here, so this demo talks
// directly to the simulated antennas instead of through a routing layer.
package main

import (
	"log"
	"time"

	"github.com/tve/protolab/modem"
	"github.com/tve/protolab/netsim"
)

const timeout = 200 * time.Millisecond

func main() {
	sim := netsim.New(1)
	e := sim.CreateEther("air")

	node1 := modem.New("node-1")
	node2 := modem.New("node-2")
	e.RegisterDriver(node1)
	e.RegisterDriver(node2)

	message := []byte("Message from node 1")
	node1.Write(message)

	sim.StartSimulationThread()
	defer sim.StopSimulationThread()

	deadline := time.Now().Add(timeout)
	got := make([]byte, 0, len(message))
	for time.Now().Before(deadline) && len(got) < len(message) {
		buf := make([]byte, len(message)-len(got))
		n := node2.Read(buf)
		got = append(got, buf[:n]...)
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	if len(got) < len(message) {
		log.Fatalf("meshdemo: timed out after %s, got %d/%d bytes", timeout, len(got), len(message))
	}
	log.Printf("meshdemo: node-2 received %q", got)
}
