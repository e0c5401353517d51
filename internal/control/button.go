package control

import "strings"

type Button uint8

const (
	ButtonNone Button = iota
	ButtonA
	ButtonB
	ButtonC
)

func (b Button) String() string {
	switch b {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	case ButtonC:
		return "C"
	}
	return "none"
}

func ParseButton(s string) (Button, bool) {
	switch strings.ToUpper(s) {
	case "A":
		return ButtonA, true
	case "B":
		return ButtonB, true
	case "C":
		return ButtonC, true
	}
	return ButtonNone, false
}

// LampState is the on/off toggle, survives restarts via persist.
type LampState struct{ On bool }

func (self *LampState) MarshalBinary() ([]byte, error) {
	if self.On {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (self *LampState) UnmarshalBinary(b []byte) error {
	if len(b) != 1 || b[0] > 1 {
		return errLampState
	}
	self.On = b[0] == 1
	return nil
}
