package input

import (
	"io"
	"os"

	"github.com/temoto/inputevent-go"
)

const DevInputEventTag = "dev-input-event"

// linux/input-event-codes.h
const evKey = 0x01

type DevInputEventSource struct {
	f io.ReadCloser
}

// compile-time interface compliance test
var _ Source = new(DevInputEventSource)

func (self *DevInputEventSource) String() string { return DevInputEventTag }

func NewDevInputEventSource(device string) (*DevInputEventSource, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, err
	}
	return &DevInputEventSource{f: f}, nil
}

func (self *DevInputEventSource) Close() error { return self.f.Close() }

// Read returns next key press or release, autorepeat is skipped.
func (self *DevInputEventSource) Read() (Event, error) {
	for {
		ie, err := inputevent.ReadOne(self.f)
		if err != nil {
			return Event{}, err
		}
		if ie.Type != evKey || ie.Value == int32(inputevent.KeyStateHold) {
			continue
		}
		ev := Event{
			Source: DevInputEventTag,
			Key:    Key(ie.Code),
			Up:     ie.Value == int32(inputevent.KeyStateUp),
		}
		return ev, nil
	}
}
