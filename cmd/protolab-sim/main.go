// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// protolab-sim is a demo composition root: it reads a TOML topology describing ethers
// and the modems registered on each, wires them into a netsim.NetworkSimulator, and
// runs the background tick worker until interrupted. If the topology names an MQTT
// broker, every modem's received bytes are additionally published for external
// observation.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tve/protolab/modem"
	"github.com/tve/protolab/netsim"
)

func main() {
	configFile := flag.String("config", "protolab-sim.toml", "path to TOML topology file")
	realtime := flag.Bool("realtime", false, "pin the tick worker to a realtime-scheduled OS thread")
	flag.Parse()

	var conf Config
	if _, err := toml.DecodeFile(*configFile, &conf); err != nil {
		log.Fatalf("protolab-sim: cannot read config %s: %v", *configFile, err)
	}
	if conf.MsPerTick == 0 {
		conf.MsPerTick = 10
	}

	sim := netsim.New(conf.MsPerTick)
	sim.Realtime = *realtime

	var bridge *mq
	if conf.Mqtt != nil {
		var err error
		bridge, err = newMQ(*conf.Mqtt)
		if err != nil {
			log.Fatalf("protolab-sim: cannot connect to MQTT broker: %v", err)
		}
		log.Printf("protolab-sim: MQTT bridge connected to %s:%d", conf.Mqtt.Host, conf.Mqtt.Port)
	}

	for _, ec := range conf.Ether {
		e := sim.CreateEther(ec.Name)
		for _, name := range ec.Modem {
			m := modem.New(name)
			e.RegisterDriver(m)
			log.Printf("protolab-sim: registered modem %q on ether %q", name, ec.Name)
			if bridge != nil {
				topic := fmt.Sprintf("%s/%s/%s/rx", conf.Mqtt.TopicPrefix, ec.Name, name)
				go bridgeModem(bridge, topic, m)
			}
		}
	}

	sim.StartSimulationThread()
	log.Printf("protolab-sim: simulation running, %d ms per tick", conf.MsPerTick)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sim.StopSimulationThread()
	log.Printf("protolab-sim: simulation stopped")
}

// bridgeModem polls m's TX pin and publishes every byte it yields to topic. It exits
// only when the process does; there is no per-modem shutdown signal because the demo
// binary's lifetime is the simulation's lifetime.
func bridgeModem(bridge *mq, topic string, m *modem.Modem) {
	for {
		if b, ok := m.GetFromTXPin(); ok {
			bridge.publishByte(topic, b)
			continue
		}
		time.Sleep(5 * time.Millisecond)
	}
}
