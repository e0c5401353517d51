// Package link supervises network association and MQTT session.
// Bounded retries everywhere, every wait is sliced so watchdog keeps being kicked,
// and when retries are exhausted the terminal answer is process restart.
package link

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/helpers"
	"github.com/temoto/powerdash/internal/clock"
	"github.com/temoto/powerdash/internal/network"
	"github.com/temoto/powerdash/internal/tele"
	"github.com/temoto/powerdash/internal/watchdog"
	"github.com/temoto/powerdash/log2"
)

var ErrRestart = errors.New("restart requested")

type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

type Options struct {
	BootAttempts    int
	RecheckAttempts int
	AttemptDelay    time.Duration
	RecheckInterval time.Duration
	NetworkCooldown time.Duration

	SessionAttempts int
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	SessionCooldown time.Duration

	WatchdogTimeout time.Duration
	Topics          []string
}

func DefaultOptions() Options {
	return Options{
		BootAttempts:    20,
		RecheckAttempts: 10,
		AttemptDelay:    500 * time.Millisecond,
		RecheckInterval: 30 * time.Second,
		NetworkCooldown: 5 * time.Second,
		SessionAttempts: 3,
		BackoffMin:      1 * time.Second,
		BackoffMax:      10 * time.Second,
		SessionCooldown: 10 * time.Second,
		WatchdogTimeout: watchdog.DefaultTimeout,
	}
}

type Supervisor struct {
	log     *log2.Log
	opt     Options
	clock   clock.Clock
	wd      watchdog.Kicker
	net     network.Network
	session tele.Transporter

	netState     State
	sessionState State
	backoff      helpers.Backoff
	lastRecheck  time.Duration
	chromeDirty  bool
	restart      bool
}

func NewSupervisor(log *log2.Log, opt Options, clk clock.Clock, wd watchdog.Kicker, n network.Network, session tele.Transporter) *Supervisor {
	return &Supervisor{
		log:     log.Named("link"),
		opt:     opt,
		clock:   clk,
		wd:      wd,
		net:     n,
		session: session,
		backoff: helpers.Backoff{Min: opt.BackoffMin, Max: opt.BackoffMax},
	}
}

func (self *Supervisor) Network() State { return self.netState }
func (self *Supervisor) Session() State { return self.sessionState }

func (self *Supervisor) RestartRequested() bool { return self.restart }

// TakeChromeInvalidated reports and clears one-shot repaint request raised by link recovery.
func (self *Supervisor) TakeChromeInvalidated() bool {
	x := self.chromeDirty
	self.chromeDirty = false
	return x
}

// Start performs boot association. Session is left to first Poll.
func (self *Supervisor) Start(ctx context.Context) error {
	self.lastRecheck = self.clock.Now()
	if err := self.associate(ctx, self.opt.BootAttempts); err != nil {
		return self.fail(ctx, err, self.opt.NetworkCooldown)
	}
	return nil
}

// Poll is called once per main loop iteration.
func (self *Supervisor) Poll(ctx context.Context, now time.Duration) error {
	if self.restart {
		return ErrRestart
	}

	if now-self.lastRecheck >= self.opt.RecheckInterval {
		self.lastRecheck = now
		if !self.net.Connected() {
			self.log.Errorf("network lost")
			self.netState = StateDisconnected
			self.dropSession()
			if err := self.guard(self.net.Disconnect); err != nil {
				self.log.Errorf("network disconnect err=%v", err)
			}
			if err := self.associate(ctx, self.opt.RecheckAttempts); err != nil {
				return self.fail(ctx, err, self.opt.NetworkCooldown)
			}
			self.chromeDirty = true
		}
	}

	if self.netState != StateConnected {
		return nil
	}
	if self.sessionState == StateConnected && self.session.Connected() {
		return nil
	}
	if self.sessionState == StateConnected {
		self.log.Errorf("mqtt session lost")
	}
	self.sessionState = StateDisconnected
	if err := self.connectSession(ctx); err != nil {
		return self.fail(ctx, err, self.opt.SessionCooldown)
	}
	return nil
}

// Publish sends command while session is up, otherwise fails fast.
func (self *Supervisor) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	if self.sessionState != StateConnected {
		return errors.Annotatef(tele.ErrNotConnected, "publish topic=%s", topic)
	}
	return self.session.Publish(ctx, topic, payload, retain)
}

func (self *Supervisor) associate(ctx context.Context, attempts int) error {
	self.netState = StateConnecting
	self.log.Infof("network associate %s attempts=%d", self.net.String(), attempts)
	if err := self.guard(self.net.Begin); err != nil {
		self.log.Error(err)
	}
	for i := 0; !self.net.Connected(); i++ {
		if i >= attempts {
			self.netState = StateDisconnected
			return errors.Errorf("network associate failed after %d attempts", attempts)
		}
		if err := self.sleep(ctx, self.opt.AttemptDelay); err != nil {
			self.netState = StateDisconnected
			return err
		}
	}
	self.netState = StateConnected
	self.log.Infof("network connected")
	return nil
}

func (self *Supervisor) connectSession(ctx context.Context) error {
	self.sessionState = StateConnecting
	var err error
	for attempt := 1; attempt <= self.opt.SessionAttempts; attempt++ {
		_ = self.guard(self.disconnectSession)
		delay := self.backoff.Delay()
		self.log.Debugf("mqtt attempt=%d delay=%v", attempt, delay)
		if err = self.sleep(ctx, delay); err != nil {
			break
		}
		err = self.guard(func() error { return self.session.Connect(ctx) })
		if err == nil {
			err = self.guard(func() error { return self.session.Subscribe(ctx, self.opt.Topics) })
		}
		self.backoff.Update(err == nil)
		if err == nil {
			self.sessionState = StateConnected
			self.log.Infof("mqtt connected %s", self.session.String())
			return nil
		}
		self.log.Errorf("mqtt attempt=%d err=%v", attempt, err)
		self.wd.Kick()
	}
	self.sessionState = StateDisconnected
	return errors.Annotatef(err, "mqtt connect failed after %d attempts", self.opt.SessionAttempts)
}

func (self *Supervisor) dropSession() {
	if self.sessionState != StateDisconnected {
		_ = self.guard(self.disconnectSession)
	}
	self.sessionState = StateDisconnected
}

func (self *Supervisor) disconnectSession() error {
	self.session.Disconnect()
	return nil
}

// fail enters terminal state after cooldown, watchdog still kicked meanwhile.
// Shutdown is not a failure.
func (self *Supervisor) fail(ctx context.Context, err error, cooldown time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	self.log.Errorf("%v, restart in %v", err, cooldown)
	if err := self.sleep(ctx, cooldown); err != nil {
		return err
	}
	self.restart = true
	return ErrRestart
}

// guard runs blocking call in background and kicks watchdog every slice of
// real time until it returns. Call is bounded by its own timeout.
func (self *Supervisor) guard(f func() error) error {
	self.wd.Kick()
	done := make(chan error, 1)
	go func() { done <- f() }()
	tick := time.NewTicker(watchdog.Slice(self.opt.WatchdogTimeout))
	defer tick.Stop()
	for {
		select {
		case err := <-done:
			self.wd.Kick()
			return err
		case <-tick.C:
			self.wd.Kick()
		}
	}
}

// sleep kicks watchdog at least every slice. Only shutdown may interrupt it.
func (self *Supervisor) sleep(ctx context.Context, d time.Duration) error {
	slice := watchdog.Slice(self.opt.WatchdogTimeout)
	for d > 0 {
		step := slice
		if step > d {
			step = d
		}
		self.clock.Sleep(step)
		self.wd.Kick()
		d -= step
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
