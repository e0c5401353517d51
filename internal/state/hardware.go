package state

import (
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
	"github.com/temoto/powerdash/hardware/display"
	"github.com/temoto/powerdash/hardware/input"
	"github.com/temoto/powerdash/helpers"
	"github.com/temoto/powerdash/internal/network"
	"github.com/temoto/powerdash/internal/tele"
	"github.com/temoto/powerdash/internal/watchdog"
)

// Lazy initialized collaborators. Tests assign fields before first getter call.
type hardware struct {
	Display struct {
		once
		D *display.Display
	}
	Input struct {
		once
		Dispatch *input.Dispatch
		chip     gpio.Chiper
	}
	Network struct {
		once
		N network.Network
	}
	Transport struct {
		once
		T tele.Transporter
	}
	Watchdog struct {
		once
		K watchdog.Kicker
	}
}

func (g *Global) Display() (*display.Display, error) {
	x := &g.Hardware.Display // short alias
	_ = x.do(func() error {
		if x.D != nil {
			return nil
		}
		cfg := &g.Config.Display
		x.D, x.err = display.New(cfg.Driver, cfg.Device)
		return errors.Annotate(x.err, "display")
	})
	return x.D, x.err
}

func (g *Global) Network() (network.Network, error) {
	x := &g.Hardware.Network
	_ = x.do(func() error {
		if x.N != nil {
			return nil
		}
		x.N, x.err = network.New(g.Config.NetworkConfig(), g.Log.Named("network"))
		return x.err
	})
	return x.N, x.err
}

func (g *Global) Transport() (tele.Transporter, error) {
	x := &g.Hardware.Transport
	_ = x.do(func() error {
		if x.T != nil {
			return nil
		}
		x.T, x.err = tele.New(g.Config.Mqtt.Driver, g.Config.TransportOptions(g.Log))
		return x.err
	})
	return x.T, x.err
}

func (g *Global) Watchdog() (watchdog.Kicker, error) {
	x := &g.Hardware.Watchdog
	_ = x.do(func() error {
		if x.K != nil {
			return nil
		}
		x.K, x.err = watchdog.New(g.Config.WatchdogConfig(), g.Restarter, g.Log.Named("watchdog"))
		return x.err
	})
	return x.K, x.err
}

// Input starts configured button sources, readers stop with g.Alive.
func (g *Global) Input() (*input.Dispatch, error) {
	x := &g.Hardware.Input
	_ = x.do(func() error {
		if x.Dispatch != nil {
			return nil
		}
		x.Dispatch = input.NewDispatch(g.Log, g.Config.Input.BufferSize)

		// support more input sources here
		sources := make([]input.Source, 0, 4)
		errs := make([]error, 0)

		if !g.Config.Input.DevInputEvent.Enable {
			g.Log.Infof("input=%s disabled", input.DevInputEventTag)
		} else {
			src, err := input.NewDevInputEventSource(g.Config.Input.DevInputEvent.Device)
			if err != nil {
				errs = append(errs, errors.Annotatef(err, "input=%s", input.DevInputEventTag))
			} else {
				sources = append(sources, src)
			}
		}

		if !g.Config.Input.Gpio.Enable {
			g.Log.Infof("input=%s disabled", input.GpioTag)
		} else if chip, err := gpio.Open(g.Config.Input.Gpio.Chip, "powerdash"); err != nil {
			errs = append(errs, errors.Annotatef(err, "input=%s chip=%s", input.GpioTag, g.Config.Input.Gpio.Chip))
		} else {
			x.chip = chip
			for _, line := range g.Config.Input.Gpio.Lines {
				src, err := input.NewGpioSource(chip, uint32(line), g.Config.Input.Gpio.ActiveHigh)
				if err != nil {
					errs = append(errs, errors.Annotatef(err, "input=%s", input.GpioTag))
					continue
				}
				sources = append(sources, src)
			}
		}

		x.Dispatch.Run(g.Alive, sources)
		return helpers.FoldErrors(errs)
	})
	return x.Dispatch, x.err
}

// CloseHardware releases devices, unblocking reader goroutines.
// Watchdog is disarmed last, graceful stop must not reset the board.
func (g *Global) CloseHardware() error {
	errs := make([]error, 0, 5)
	if x := &g.Hardware.Input; x.Dispatch != nil {
		errs = append(errs, x.Dispatch.Close())
		if x.chip != nil {
			errs = append(errs, x.chip.Close())
		}
	}
	if x := &g.Hardware.Transport; x.T != nil {
		x.T.Disconnect()
	}
	if x := &g.Hardware.Display; x.D != nil {
		errs = append(errs, x.D.Close())
	}
	if x := &g.Hardware.Watchdog; x.K != nil {
		errs = append(errs, x.K.Close())
	}
	return helpers.FoldErrors(errs)
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}
