package tele

import (
	"context"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/powerdash/log2"
)

var pahoLogOnce sync.Once

type transportPaho struct {
	log   *log2.Log
	opt   Options
	inbox inbox

	mu sync.Mutex
	m  mqtt.Client

	// test code sets newClient
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

func NewPaho(opt Options) *transportPaho {
	log := opt.Log.Named("paho")
	pahoLogOnce.Do(func() {
		mqtt.ERROR = log2.Adapter{L: log, Level: log2.LError}
		mqtt.CRITICAL = log2.Adapter{L: log, Level: log2.LError}
		mqtt.WARN = log2.Adapter{L: log, Level: log2.LInfo}
	})
	return &transportPaho{
		log:       log,
		opt:       opt,
		inbox:     newInbox(opt.InboxSize, log),
		newClient: mqtt.NewClient,
	}
}

func (self *transportPaho) String() string { return "paho:" + self.opt.Broker }

func (self *transportPaho) Messages() <-chan Message { return self.inbox.ch }

func (self *transportPaho) client() mqtt.Client {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.m
}

func (self *transportPaho) Connect(ctx context.Context) error {
	self.Disconnect()
	mopt := mqtt.NewClientOptions().
		AddBroker(self.opt.Broker).
		SetClientID(self.opt.ClientID).
		SetUsername(self.opt.Username).
		SetPassword(self.opt.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetKeepAlive(self.opt.Keepalive).
		SetPingTimeout(self.opt.NetworkTimeout).
		SetConnectTimeout(self.opt.NetworkTimeout).
		SetWriteTimeout(self.opt.NetworkTimeout).
		SetDefaultPublishHandler(self.onMessage).
		SetConnectionLostHandler(self.onConnectionLost)
	m := self.newClient(mopt)
	if err := self.wait(ctx, m.Connect(), "connect"); err != nil {
		return errors.Annotatef(err, "broker=%s client=%s", self.opt.Broker, self.opt.ClientID)
	}
	self.mu.Lock()
	self.m = m
	self.mu.Unlock()
	self.log.Infof("connected broker=%s client=%s", self.opt.Broker, self.opt.ClientID)
	return nil
}

func (self *transportPaho) Connected() bool {
	m := self.client()
	return m != nil && m.IsConnected()
}

func (self *transportPaho) Subscribe(ctx context.Context, topics []string) error {
	m := self.client()
	if m == nil || !m.IsConnected() {
		return ErrNotConnected
	}
	filters := make(map[string]byte, len(topics))
	for _, t := range topics {
		filters[t] = 0
	}
	token := m.SubscribeMultiple(filters, self.onMessage)
	if err := self.wait(ctx, token, "subscribe"); err != nil {
		return err
	}
	if st, ok := token.(*mqtt.SubscribeToken); ok {
		for t, code := range st.Result() {
			if code == 0x80 {
				return errors.Errorf("subscribe topic=%s rejected", t)
			}
		}
	}
	self.log.Debugf("subscribed %v", topics)
	return nil
}

func (self *transportPaho) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	m := self.client()
	if m == nil || !m.IsConnected() {
		return ErrNotConnected
	}
	err := self.wait(ctx, m.Publish(topic, 0, retain, payload), "publish")
	return errors.Annotatef(err, "topic=%s", topic)
}

func (self *transportPaho) Disconnect() {
	self.mu.Lock()
	m := self.m
	self.m = nil
	self.mu.Unlock()
	if m != nil && m.IsConnectionOpen() {
		m.Disconnect(250)
	}
}

func (self *transportPaho) wait(ctx context.Context, token mqtt.Token, op string) error {
	timeout := self.opt.NetworkTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := timeUntil(deadline); d < timeout {
			timeout = d
		}
	}
	if !token.WaitTimeout(timeout) {
		return errors.Timeoutf("mqtt %s", op)
	}
	return errors.Annotatef(token.Error(), "mqtt %s", op)
}

func (self *transportPaho) onMessage(_ mqtt.Client, msg mqtt.Message) {
	self.inbox.push(Message{Topic: msg.Topic(), Payload: msg.Payload()})
}

func (self *transportPaho) onConnectionLost(_ mqtt.Client, err error) {
	self.log.Errorf("connection lost err=%v", err)
}
