package tele

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
)

// pahoMock stands in for paho client, records calls and lets test inject messages.
type pahoMock struct {
	sync.Mutex
	Opt        *mqtt.ClientOptions
	connected  bool
	connectErr error
	handler    mqtt.MessageHandler
	filters    map[string]byte
	pubs       []mockPub
}

type mockPub struct {
	topic   string
	retain  bool
	payload string
}

func (self *pahoMock) New(opt *mqtt.ClientOptions) mqtt.Client {
	self.Lock()
	self.Opt = opt
	self.Unlock()
	return self
}

// Inject calls subscription handler like paho router does.
func (self *pahoMock) Inject(topic, payload string) {
	self.Lock()
	h := self.handler
	self.Unlock()
	h(self, mockMsg{t: topic, p: []byte(payload)})
}

func (self *pahoMock) IsConnected() bool {
	self.Lock()
	defer self.Unlock()
	return self.connected
}
func (self *pahoMock) IsConnectionOpen() bool { return self.IsConnected() }

func (self *pahoMock) Connect() mqtt.Token {
	self.Lock()
	defer self.Unlock()
	if self.connectErr == nil {
		self.connected = true
	}
	return mockToken{self.connectErr}
}

func (self *pahoMock) Disconnect(uint) {
	self.Lock()
	self.connected = false
	self.Unlock()
}

func (self *pahoMock) Publish(topic string, qos byte, retain bool, payload interface{}) mqtt.Token {
	self.Lock()
	defer self.Unlock()
	self.pubs = append(self.pubs, mockPub{topic, retain, string(payload.([]byte))})
	return mockToken{nil}
}

func (self *pahoMock) Subscribe(pattern string, qos byte, handler mqtt.MessageHandler) mqtt.Token {
	return self.SubscribeMultiple(map[string]byte{pattern: qos}, handler)
}

func (self *pahoMock) SubscribeMultiple(filters map[string]byte, handler mqtt.MessageHandler) mqtt.Token {
	self.Lock()
	defer self.Unlock()
	self.filters = filters
	self.handler = handler
	return mockToken{nil}
}

func (self *pahoMock) Unsubscribe(...string) mqtt.Token        { panic("not implemented") }
func (self *pahoMock) AddRoute(string, mqtt.MessageHandler)    { panic("not implemented") }
func (self *pahoMock) OptionsReader() mqtt.ClientOptionsReader { panic("not implemented") }

type mockToken struct{ error }

func (tok mockToken) Error() error { return tok.error }
func (tok mockToken) Wait() bool   { return !errors.IsTimeout(tok.error) }
func (tok mockToken) WaitTimeout(time.Duration) bool {
	return !errors.IsTimeout(tok.error)
}

type mockMsg struct {
	t string
	p []byte
}

func (msg mockMsg) Ack()              {}
func (msg mockMsg) Duplicate() bool   { return false }
func (msg mockMsg) MessageID() uint16 { return 0 }
func (msg mockMsg) Payload() []byte   { return msg.p }
func (msg mockMsg) Qos() byte         { return 0 }
func (msg mockMsg) Retained() bool    { return false }
func (msg mockMsg) Topic() string     { return msg.t }
