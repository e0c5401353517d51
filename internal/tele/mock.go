package tele

import (
	"context"
	"sync"

	"github.com/juju/errors"
)

// Mock is scripted Transporter for supervisor and application tests.
type Mock struct {
	mu        sync.Mutex
	connected bool
	// ConnectErrs are consumed one per Connect call, nil or exhausted means success.
	ConnectErrs  []error
	SubscribeErr error
	Connects     int
	Disconnects  int
	Subscribed   []string
	Published    []MockPublish
	inbox        chan Message
}

type MockPublish struct {
	Topic   string
	Payload string
	Retain  bool
}

func NewMock() *Mock { return &Mock{inbox: make(chan Message, DefaultInboxSize)} }

func (self *Mock) String() string { return "mock" }

func (self *Mock) Messages() <-chan Message { return self.inbox }

func (self *Mock) Connect(ctx context.Context) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Connects++
	if len(self.ConnectErrs) != 0 {
		err := self.ConnectErrs[0]
		self.ConnectErrs = self.ConnectErrs[1:]
		if err != nil {
			return err
		}
	}
	self.connected = true
	return nil
}

func (self *Mock) Connected() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.connected
}

func (self *Mock) Subscribe(ctx context.Context, topics []string) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if !self.connected {
		return ErrNotConnected
	}
	if self.SubscribeErr != nil {
		return self.SubscribeErr
	}
	self.Subscribed = append(self.Subscribed[:0], topics...)
	return nil
}

func (self *Mock) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if !self.connected {
		return errors.Annotatef(ErrNotConnected, "topic=%s", topic)
	}
	self.Published = append(self.Published, MockPublish{topic, string(payload), retain})
	return nil
}

func (self *Mock) Disconnect() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Disconnects++
	self.connected = false
}

// Drop simulates silent session death.
func (self *Mock) Drop() {
	self.mu.Lock()
	self.connected = false
	self.mu.Unlock()
}

// Deliver queues inbound message like a driver goroutine would.
func (self *Mock) Deliver(topic, payload string) {
	self.inbox <- Message{Topic: topic, Payload: []byte(payload)}
}

func (self *Mock) TakePublished() []MockPublish {
	self.mu.Lock()
	defer self.mu.Unlock()
	ps := self.Published
	self.Published = nil
	return ps
}
