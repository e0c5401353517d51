// Package control turns button presses into lamp commands with on-screen feedback.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/internal/persist"
	"github.com/temoto/powerdash/internal/render"
	"github.com/temoto/powerdash/log2"
)

const (
	DefaultDebounce    = 250 * time.Millisecond
	DefaultFeedback    = 800 * time.Millisecond
	DefaultTestGesture = 100 * time.Millisecond

	DefaultTopicOnOff      = "lampe/wohnzimmer/set"
	DefaultTopicBrightness = "lampe/wohnzimmer/brightness_set"
	DefaultTopicTestMode   = "powerdash/test_mode/set"

	PayloadOn   = "ON"
	PayloadOff  = "OFF"
	PayloadUp   = "+10"
	PayloadDown = "-10"
)

// feedback box
const (
	boxX  = 260
	boxY  = 8
	boxW  = 52
	boxH  = 28
	boxCX = 286
)

var errLampState = errors.New("lamp state invalid")

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
}

type Options struct {
	Debounce        time.Duration
	Feedback        time.Duration
	TestGesture     time.Duration
	TopicOnOff      string
	TopicBrightness string
	TopicTestMode   string
}

func DefaultOptions() Options {
	return Options{
		Debounce:        DefaultDebounce,
		Feedback:        DefaultFeedback,
		TestGesture:     DefaultTestGesture,
		TopicOnOff:      DefaultTopicOnOff,
		TopicBrightness: DefaultTopicBrightness,
		TopicTestMode:   DefaultTopicTestMode,
	}
}

type Outcome uint8

const (
	OutcomeAccepted Outcome = iota
	OutcomeDebounced
	OutcomeTestMode
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDebounced:
		return "debounced"
	case OutcomeTestMode:
		return "test-mode"
	}
	return fmt.Sprintf("outcome(%d)", o)
}

// Dispatcher owns ButtonFeedbackState. Not safe for concurrent use,
// called from main loop only.
type Dispatcher struct {
	log     *log2.Log
	opt     Options
	cv      render.Canvas
	pub     Publisher
	persist *persist.Persist

	lamp            LampState
	lastAccepted    time.Duration
	anyAccepted     bool
	feedbackVisible bool
	testMode        bool
}

func NewDispatcher(log *log2.Log, opt Options, cv render.Canvas, pub Publisher) *Dispatcher {
	def := DefaultOptions()
	if opt.Debounce == 0 {
		opt.Debounce = def.Debounce
	}
	if opt.Feedback == 0 {
		opt.Feedback = def.Feedback
	}
	if opt.TestGesture == 0 {
		opt.TestGesture = def.TestGesture
	}
	if opt.TopicOnOff == "" {
		opt.TopicOnOff = def.TopicOnOff
	}
	if opt.TopicBrightness == "" {
		opt.TopicBrightness = def.TopicBrightness
	}
	if opt.TopicTestMode == "" {
		opt.TopicTestMode = def.TopicTestMode
	}
	self := &Dispatcher{log: log, opt: opt, cv: cv, pub: pub}
	self.persist = persist.New("lamp", &self.lamp, "", log)
	return self
}

// LoadState binds toggle flag to storage under root and reads it.
// Empty root keeps memory only state.
func (self *Dispatcher) LoadState(root string) error {
	self.persist = persist.New("lamp", &self.lamp, root, self.log)
	if err := self.persist.Load(); err != nil {
		self.lamp = LampState{}
		return errors.Annotate(err, "control.LoadState")
	}
	self.log.Debugf("control lamp on=%t", self.lamp.On)
	return nil
}

func (self *Dispatcher) Toggle() bool          { return self.lamp.On }
func (self *Dispatcher) TestMode() bool        { return self.testMode }
func (self *Dispatcher) FeedbackVisible() bool { return self.feedbackVisible }

func (self *Dispatcher) SetTestMode(on bool) {
	if self.testMode != on {
		self.log.Infof("control test mode=%t", on)
	}
	self.testMode = on
}

// Command consumes remote test mode switch, payload ON or OFF.
// Reports false for any other topic so caller may validate it as telemetry.
func (self *Dispatcher) Command(topic string, payload []byte) (bool, error) {
	if topic != self.opt.TopicTestMode {
		return false, nil
	}
	switch string(payload) {
	case PayloadOn:
		self.SetTestMode(true)
	case PayloadOff:
		self.SetTestMode(false)
	default:
		return true, errors.NotValidf("topic=%s payload=%q", topic, payload)
	}
	return true, nil
}

// Press handles one button down event at monotonic time now.
// Publish failure is logged and returned, accepted press state changes anyway.
func (self *Dispatcher) Press(ctx context.Context, b Button, now time.Duration) (Outcome, error) {
	if self.anyAccepted {
		since := now - self.lastAccepted
		if since <= self.opt.Debounce {
			if b == ButtonA && since < self.opt.TestGesture {
				self.SetTestMode(!self.testMode)
				return OutcomeTestMode, nil
			}
			self.log.Debugf("control button=%s debounced since=%v", b, since)
			return OutcomeDebounced, nil
		}
	}

	var topic, payload, badge string
	var color render.Color
	badgeY := boxY + 2
	retain := false
	switch b {
	case ButtonA:
		self.lamp.On = !self.lamp.On
		topic, retain = self.opt.TopicOnOff, true
		badgeY = boxY + 4
		if self.lamp.On {
			payload, badge, color = PayloadOn, "AN", render.Green
		} else {
			payload, badge, color = PayloadOff, "AUS", render.Red
		}
		if err := self.persist.Store(); err != nil {
			self.log.Error(err)
		}
	case ButtonB:
		topic, payload, badge, color = self.opt.TopicBrightness, PayloadUp, "+", render.White
	case ButtonC:
		topic, payload, badge, color = self.opt.TopicBrightness, PayloadDown, "-", render.White
	default:
		return OutcomeDebounced, errors.NotValidf("button=%s", b)
	}
	self.anyAccepted = true
	self.lastAccepted = now
	self.feedbackVisible = true
	self.cv.FillRect(boxX, boxY, boxW, boxH, render.Black)
	self.cv.DrawCentreString(badge, boxCX, badgeY, render.FontBadge, color)
	self.log.Debugf("control button=%s publish %s=%s", b, topic, payload)

	if err := self.pub.Publish(ctx, topic, []byte(payload), retain); err != nil {
		err = errors.Annotatef(err, "control button=%s", b)
		self.log.Error(err)
		return OutcomeAccepted, err
	}
	return OutcomeAccepted, nil
}

// Tick clears feedback box once dwell time passed since last accepted press.
func (self *Dispatcher) Tick(now time.Duration) bool {
	if !self.feedbackVisible || now-self.lastAccepted <= self.opt.Feedback {
		return false
	}
	self.cv.FillRect(boxX, boxY, boxW, boxH, render.Navy)
	self.feedbackVisible = false
	return true
}
