// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mq is a handle onto an MQTT broker connection used solely to publish bytes observed
// on modem TX pins for external visibility into a running simulation; it never
// participates in the simulator's own behaviour.
type mq struct {
	conn mqtt.Client
}

// newMQ connects to the broker described by conf and returns a handle to publish on.
func newMQ(conf MqttConfig) (*mq, error) {
	mqtt.ERROR = log.New(os.Stderr, "", 0)
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", conf.Host, conf.Port))
	opts.ClientID = "protolab-sim"
	opts.Username = conf.User
	opts.Password = conf.Password

	conn := mqtt.NewClient(opts)
	token := conn.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to %s:%d", conf.Host, conf.Port)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return &mq{conn: conn}, nil
}

// publishByte publishes a single observed byte to topic as a one-byte payload.
func (m *mq) publishByte(topic string, b byte) {
	m.conn.Publish(topic, 0, false, []byte{b})
}
