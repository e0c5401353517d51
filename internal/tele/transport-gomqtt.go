package tele

import (
	"context"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/256dpi/gomqtt/packet"
	"github.com/256dpi/gomqtt/transport"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/powerdash/helpers/atomic_clock"
	"github.com/temoto/powerdash/log2"
)

// Own minimal MQTT 3.1.1 client over gomqtt packet/transport.
// - Connect is synchronous: dial, CONNECT, wait CONNACK
// - clean session only, QoS 0 publish, QoS 0 subscriptions
// - no reconnect, caller decides when to Connect again
type transportGomqtt struct {
	log    *log2.Log
	opt    Options
	inbox  inbox
	dialer *transport.Dialer
	lastID uint32

	mu sync.Mutex
	cc *gomqttConn
}

func NewGomqtt(opt Options) (*transportGomqtt, error) {
	u, err := url.ParseRequestURI(opt.Broker)
	if err != nil {
		return nil, errors.Annotatef(err, "config error mqtt broker=%s", opt.Broker)
	}
	if u.User != nil && opt.Username == "" && opt.Password == "" {
		opt.Username = u.User.Username()
		opt.Password, _ = u.User.Password()
	}
	log := opt.Log.Named("gomqtt")
	return &transportGomqtt{
		log:    log,
		opt:    opt,
		inbox:  newInbox(opt.InboxSize, log),
		dialer: transport.NewDialer(transport.DialConfig{Timeout: opt.NetworkTimeout}),
		lastID: uint32(time.Now().UnixNano()),
	}, nil
}

func (self *transportGomqtt) String() string { return "gomqtt:" + self.opt.Broker }

func (self *transportGomqtt) Messages() <-chan Message { return self.inbox.ch }

func (self *transportGomqtt) current() *gomqttConn {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.cc
}

func (self *transportGomqtt) Connected() bool {
	cc := self.current()
	return cc != nil && cc.alive.IsRunning()
}

func (self *transportGomqtt) Connect(ctx context.Context) error {
	self.Disconnect()

	conn, err := self.dialer.Dial(self.opt.Broker)
	if err != nil {
		return errors.Annotatef(err, "connect: dial broker=%s", self.opt.Broker)
	}
	cc := &gomqttConn{
		alive:   alive.NewAlive(),
		conn:    conn,
		log:     self.log,
		timeout: self.opt.NetworkTimeout,
		pingat:  atomic_clock.New(0),
		pongat:  atomic_clock.New(0),
		subacks: make(chan *packet.Suback, 1),
		inbox:   self.inbox,
	}
	conpkt := packet.NewConnect()
	conpkt.ClientID = self.opt.ClientID
	conpkt.KeepAlive = uint16(self.opt.Keepalive / time.Second)
	conpkt.CleanSession = true
	conpkt.Username = self.opt.Username
	conpkt.Password = self.opt.Password
	if err = cc.send(conpkt); err != nil {
		return errors.Annotate(err, "connect")
	}

	// expect CONNACK
	conn.SetReadTimeout(self.opt.NetworkTimeout)
	pkt, err := conn.Receive()
	if err != nil {
		return cc.die(errors.Annotate(err, "connect: expect CONNACK"))
	}
	connack, ok := pkt.(*packet.Connack)
	if !ok {
		return cc.die(errors.Errorf("connect: server error expected CONNACK pkt=%s", pkt.String()))
	}
	if connack.ReturnCode != packet.ConnectionAccepted {
		return cc.die(errors.Errorf("connect: denied code=%s", connack.ReturnCode.String()))
	}
	conn.SetReadTimeout(0)

	cc.pongat.SetNow()
	cc.alive.Add(2)
	go cc.reader()
	go cc.pinger(self.opt.Keepalive)

	self.mu.Lock()
	self.cc = cc
	self.mu.Unlock()
	self.log.Infof("connected broker=%s client=%s", self.opt.Broker, self.opt.ClientID)
	return nil
}

func (self *transportGomqtt) Subscribe(ctx context.Context, topics []string) error {
	cc := self.current()
	if cc == nil || !cc.alive.IsRunning() {
		return ErrNotConnected
	}
	subpkt := &packet.Subscribe{
		ID:            self.nextID(),
		Subscriptions: make([]packet.Subscription, len(topics)),
	}
	for i, t := range topics {
		subpkt.Subscriptions[i] = packet.Subscription{Topic: t, QOS: packet.QOSAtMostOnce}
	}
	if err := cc.send(subpkt); err != nil {
		return errors.Annotate(err, "subscribe")
	}

	select {
	case suback := <-cc.subacks:
		if suback.ID != subpkt.ID {
			return cc.die(errors.Errorf("subscribe: SUBACK.id=%d != SUBSCRIBE.id=%d", suback.ID, subpkt.ID))
		}
		for i, code := range suback.ReturnCodes {
			if code == packet.QOSFailure {
				return cc.die(errors.Errorf("subscribe: topic=%s rejected", topics[i]))
			}
		}
		self.log.Debugf("subscribed %v", topics)
		return nil

	case <-time.After(self.opt.NetworkTimeout):
		return cc.die(errors.Timeoutf("subscribe"))

	case <-cc.alive.StopChan():
		return errors.Annotate(ErrNotConnected, "subscribe")

	case <-ctx.Done():
		return cc.die(ctx.Err())
	}
}

func (self *transportGomqtt) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	cc := self.current()
	if cc == nil || !cc.alive.IsRunning() {
		return ErrNotConnected
	}
	pub := packet.NewPublish()
	pub.Message = packet.Message{
		Topic:   topic,
		Payload: payload,
		QOS:     packet.QOSAtMostOnce,
		Retain:  retain,
	}
	return errors.Annotatef(cc.send(pub), "publish topic=%s", topic)
}

func (self *transportGomqtt) Disconnect() {
	self.mu.Lock()
	cc := self.cc
	self.cc = nil
	self.mu.Unlock()
	if cc != nil && cc.alive.IsRunning() {
		_ = cc.send(packet.NewDisconnect())
		_ = cc.die(ErrNotConnected)
		cc.alive.Wait()
	}
}

func (self *transportGomqtt) nextID() packet.ID {
	u32 := atomic.AddUint32(&self.lastID, 1)
	id := packet.ID(u32 % (1 << 16))
	if id == 0 {
		id = 1
	}
	return id
}

// Single broker connection with reader and pinger goroutines.
type gomqttConn struct {
	alive   *alive.Alive
	closed  uint32
	conn    transport.Conn
	log     *log2.Log
	timeout time.Duration
	pingat  *atomic_clock.Clock // last outgoing packet
	pongat  *atomic_clock.Clock // last PINGRESP
	subacks chan *packet.Suback
	inbox   inbox
}

func (cc *gomqttConn) die(e error) error {
	if e == nil {
		e = ErrNotConnected
	}
	if !atomic.CompareAndSwapUint32(&cc.closed, 0, 1) {
		return e
	}
	cc.alive.Stop()
	_ = cc.conn.Close()
	return e
}

func (cc *gomqttConn) send(p packet.Generic) error {
	if err := cc.conn.Send(p, false); err != nil {
		return cc.die(errors.Annotatef(err, "send %s", p.Type().String()))
	}
	cc.pingat.SetNow()
	cc.log.Debugf("sent %s", p.String())
	return nil
}

func (cc *gomqttConn) reader() {
	defer cc.alive.Done()
	for {
		pkt, err := cc.conn.Receive()
		if !cc.alive.IsRunning() {
			return
		}
		switch err {
		case nil: // success path

		case io.EOF:
			cc.log.Errorf("server closed connection")
			_ = cc.die(nil)
			return

		default:
			_ = cc.die(errors.Annotate(err, "receive"))
			return
		}

		switch pt := pkt.(type) {
		case *packet.Publish:
			cc.inbox.push(Message{Topic: pt.Message.Topic, Payload: pt.Message.Payload})
			if pt.Message.QOS == packet.QOSAtLeastOnce {
				puback := packet.NewPuback()
				puback.ID = pt.ID
				if cc.send(puback) != nil {
					return
				}
			}

		case *packet.Pingresp:
			cc.pongat.SetNow()

		case *packet.Suback:
			select {
			case cc.subacks <- pt:
			default:
				cc.log.Errorf("unexpected %s", pt.String())
			}

		case *packet.Connack:
			_ = cc.die(errors.Errorf("server error duplicate CONNACK"))
			return

		default:
			cc.log.Debugf("ignored %s", pkt.String())
		}
	}
}

// PINGREQ is sent only when connection was idle for keepalive-timeout.
func (cc *gomqttConn) pinger(keepalive time.Duration) {
	defer cc.alive.Done()
	if keepalive == 0 {
		return
	}
	interval := keepalive - cc.timeout
	if interval <= 0 {
		interval = keepalive / 2
	}
	sent := atomic_clock.New(0)
	stopch := cc.alive.StopChan()
	for cc.alive.IsRunning() {
		now := atomic_clock.Now()
		if !sent.IsZero() && cc.pongat.UnixNano() < sent.UnixNano() && now.Sub(sent) > cc.timeout {
			_ = cc.die(errors.Timeoutf("missing PINGRESP"))
			return
		}
		wait := interval - now.Sub(cc.pingat)
		if wait <= 0 {
			if cc.send(packet.NewPingreq()) != nil {
				return
			}
			sent.SetNow()
			wait = cc.timeout
		}
		select {
		case <-time.After(wait):
		case <-stopch:
			return
		}
	}
}
