// Package dashboard runs the single threaded main loop: watchdog, buttons,
// test data, link supervision, inbound telemetry, render and flush.
package dashboard

import (
	"context"
	"math/rand"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/hardware/display"
	"github.com/temoto/powerdash/hardware/input"
	"github.com/temoto/powerdash/helpers"
	"github.com/temoto/powerdash/internal/clock"
	"github.com/temoto/powerdash/internal/control"
	"github.com/temoto/powerdash/internal/link"
	"github.com/temoto/powerdash/internal/render"
	"github.com/temoto/powerdash/internal/state"
	"github.com/temoto/powerdash/internal/tele"
	"github.com/temoto/powerdash/internal/telemetry"
	"github.com/temoto/powerdash/internal/watchdog"
	"github.com/temoto/powerdash/log2"
)

type App struct {
	g     *state.Global
	log   *log2.Log
	clock clock.Clock

	Store     *telemetry.Store
	validator *telemetry.Validator
	synth     *telemetry.Synth
	Link      *link.Supervisor
	Pipeline  *render.Pipeline
	Control   *control.Dispatcher

	display   *display.Display
	input     *input.Dispatch
	transport tele.Transporter
	wd        watchdog.Kicker
	buttons   map[input.Key]control.Button

	// reused between iterations
	events   []input.Event
	messages []tele.Message
}

// New wires collaborators from global state. Random source is used by test mode,
// nil means time seeded.
func New(ctx context.Context, r *rand.Rand) (*App, error) {
	g := state.GetGlobal(ctx)
	cfg := g.Config
	errs := make([]error, 0, 4)
	d, err := g.Display()
	errs = append(errs, err)
	n, err := g.Network()
	errs = append(errs, err)
	tr, err := g.Transport()
	errs = append(errs, err)
	wd, err := g.Watchdog()
	errs = append(errs, err)
	if err := helpers.FoldErrors(errs); err != nil {
		return nil, errors.Annotate(err, "dashboard init")
	}
	in, err := g.Input()
	if err != nil {
		// dashboard is still useful without buttons
		g.Error(err, "input")
	}

	topics := cfg.TopicMap()
	app := &App{
		g:         g,
		log:       g.Log,
		clock:     g.Clock,
		Store:     telemetry.NewStore(),
		validator: telemetry.NewValidator(topics),
		synth:     telemetry.NewSynth(cfg.TestInterval(), r),
		Pipeline:  render.NewPipeline(g.Log, d, cfg.RenderInterval()),
		display:   d,
		input:     in,
		transport: tr,
		wd:        wd,
		buttons:   cfg.ButtonMap(),
	}
	app.Link = link.NewSupervisor(g.Log, cfg.LinkOptions(), g.Clock, wd, n, tr)
	app.Control = control.NewDispatcher(g.Log.Named("control"), cfg.ControlOptions(), d, app.Link)
	return app, nil
}

// Boot paints chrome, restores toggle state and associates network.
func (self *App) Boot(ctx context.Context) error {
	self.wd.Kick()
	if err := self.Control.LoadState(self.g.Config.Persist.Root); err != nil {
		self.g.Error(err)
	}
	self.Control.SetTestMode(self.g.Config.TestMode.Enable)
	self.Pipeline.Chrome(self.Store)
	self.flush()
	return self.Link.Start(ctx)
}

// Step is one main loop iteration, order is fixed.
func (self *App) Step(ctx context.Context) error {
	now := self.clock.Now()
	self.wd.Kick()

	if self.input != nil {
		self.events = self.input.Pending(self.events[:0])
		for _, e := range self.events {
			self.handleInput(ctx, e, now)
		}
	}
	self.Control.Tick(now)

	if self.Control.TestMode() {
		for _, u := range self.synth.Tick(now) {
			self.Store.Apply(u)
		}
	}

	if err := self.Link.Poll(ctx, now); err != nil {
		return err
	}

	self.messages = tele.Drain(self.transport.Messages(), self.messages[:0])
	for _, m := range self.messages {
		self.handleMessage(m)
	}

	if self.Link.TakeChromeInvalidated() {
		self.log.Infof("link recovered, repaint")
		self.Pipeline.Chrome(self.Store)
	}
	self.Pipeline.Tick(self.clock.Now(), self.Store)
	self.flush()
	return nil
}

// Run boots and loops until shutdown or terminal link failure.
func (self *App) Run(ctx context.Context) error {
	if err := self.Boot(ctx); err != nil {
		return self.finish(ctx, err)
	}
	return self.Loop(ctx)
}

func (self *App) Loop(ctx context.Context) error {
	yield := self.g.Config.LoopYield()
	for self.g.Alive.IsRunning() {
		if err := self.Step(ctx); err != nil {
			return self.finish(ctx, err)
		}
		self.clock.Sleep(yield)
	}
	return nil
}

// finish asks restarter on terminal link failure. Shutdown is not an error.
func (self *App) finish(ctx context.Context, err error) error {
	if errors.Cause(err) == link.ErrRestart {
		self.g.Restarter.Restart(err.Error())
		return err
	}
	if ctx.Err() != nil || !self.g.Alive.IsRunning() {
		return nil
	}
	return err
}

// Apply writes one channel value through the same path as inbound MQTT.
func (self *App) Apply(c telemetry.Channel, text string) error {
	v, err := telemetry.ParseValue(text)
	if err != nil {
		return err
	}
	self.Store.Apply(telemetry.Update{Channel: c, Value: v})
	return nil
}

func (self *App) handleInput(ctx context.Context, e input.Event, now time.Duration) {
	if e.Up {
		return
	}
	b, ok := self.buttons[e.Key]
	if !ok {
		self.log.Debugf("input unmapped event=%s", e)
		return
	}
	// publish errors are logged by control
	_, _ = self.Control.Press(ctx, b, now)
}

func (self *App) handleMessage(m tele.Message) {
	if ok, err := self.Control.Command(m.Topic, m.Payload); ok {
		if err != nil {
			self.log.Errorf("mqtt command %v", err)
		}
		return
	}
	u, err := self.validator.Validate(m.Topic, m.Payload)
	switch errors.Cause(err) {
	case nil:
		self.Store.Apply(u)
	case telemetry.ErrUnknownTopic:
		self.log.Debugf("mqtt ignore %s", m.String())
	default:
		self.log.Errorf("mqtt %v", err)
	}
}

func (self *App) flush() {
	if err := self.display.Flush(); err != nil {
		self.g.Error(err)
	}
}
