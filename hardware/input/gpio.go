package input

import (
	"io"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
)

const GpioTag = "gpio"

// GpioSource reports edges of one button line as key events, Key is line offset.
// Buttons pull line low when pressed unless ActiveHigh.
type GpioSource struct {
	ev         gpio.Eventer
	line       uint32
	activeHigh bool
	closed     uint32
}

// compile-time interface compliance test
var _ Source = new(GpioSource)

func NewGpioSource(chip gpio.Chiper, line uint32, activeHigh bool) (*GpioSource, error) {
	ev, err := chip.GetLineEvent(line, 0, gpio.GPIOEVENT_REQUEST_BOTH_EDGES, "powerdash")
	if err != nil {
		return nil, errors.Annotatef(err, "gpio.GetLineEvent line=%d", line)
	}
	return &GpioSource{ev: ev, line: line, activeHigh: activeHigh}, nil
}

func (self *GpioSource) String() string { return GpioTag }

func (self *GpioSource) Close() error {
	atomic.StoreUint32(&self.closed, 1)
	return self.ev.Close()
}

func (self *GpioSource) Read() (Event, error) {
	for {
		e, err := self.ev.Wait(0)
		if gpio.IsTimeout(err) {
			continue
		}
		if err != nil {
			if atomic.LoadUint32(&self.closed) != 0 || gpio.IsClosed(errors.Cause(err)) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		rising := e.ID == gpio.GPIOEVENT_EVENT_RISING_EDGE
		return Event{Source: GpioTag, Key: Key(self.line), Up: rising != self.activeHigh}, nil
	}
}
