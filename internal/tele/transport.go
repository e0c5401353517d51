// Package tele is MQTT session layer of the dashboard.
// Drivers connect synchronously and report state, reconnect policy lives in the link supervisor.
package tele

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/log2"
)

const (
	DefaultKeepalive      = 15 * time.Second
	DefaultNetworkTimeout = 5 * time.Second
	DefaultInboxSize      = 64
)

var ErrNotConnected = errors.New("mqtt session not connected")

// Transporter contract:
// - Connect blocks at most NetworkTimeout, never retries
// - Subscribe is QoS 0, clean session, only valid while connected
// - Publish is QoS 0 fire-and-forget, returns ErrNotConnected while offline
// - inbound messages are delivered into bounded Messages() channel, overflow is dropped
// - driver goroutines never touch application state
type Transporter interface {
	Connect(ctx context.Context) error
	Connected() bool
	Subscribe(ctx context.Context, topics []string) error
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
	Disconnect()
	Messages() <-chan Message
	String() string
}

type Message struct {
	Topic   string
	Payload []byte
}

func (m Message) String() string { return fmt.Sprintf("%s=%q", m.Topic, m.Payload) }

type Options struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Keepalive      time.Duration
	NetworkTimeout time.Duration
	InboxSize      int
	Log            *log2.Log
}

func (o *Options) applyDefaults() error {
	if o.Broker == "" {
		return errors.NotValidf("mqtt broker=empty")
	}
	if o.ClientID == "" {
		o.ClientID = ClientID()
	}
	if o.Keepalive == 0 {
		o.Keepalive = DefaultKeepalive
	}
	if o.NetworkTimeout == 0 {
		o.NetworkTimeout = DefaultNetworkTimeout
	}
	if o.InboxSize == 0 {
		o.InboxSize = DefaultInboxSize
	}
	return nil
}

const (
	DriverPaho   = "paho"
	DriverGomqtt = "gomqtt"
)

func New(driver string, opt Options) (Transporter, error) {
	if err := opt.applyDefaults(); err != nil {
		return nil, err
	}
	switch driver {
	case "", DriverPaho:
		return NewPaho(opt), nil
	case DriverGomqtt:
		return NewGomqtt(opt)
	}
	return nil, errors.NotSupportedf("mqtt driver=%s", driver)
}

// inbox is bounded hand-off from driver goroutines to main loop.
type inbox struct {
	ch  chan Message
	log *log2.Log
}

func newInbox(size int, log *log2.Log) inbox {
	return inbox{ch: make(chan Message, size), log: log}
}

func (self inbox) push(m Message) {
	select {
	case self.ch <- m:
	default:
		self.log.Errorf("mqtt inbox full, dropped %s", m.String())
	}
}

// Drain moves all currently queued messages into buf without blocking.
func Drain(ch <-chan Message, buf []Message) []Message {
	for {
		select {
		case m := <-ch:
			buf = append(buf, m)
		default:
			return buf
		}
	}
}
