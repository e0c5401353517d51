package telemetry

import (
	"fmt"
	"strconv"
)

const (
	FieldCapacity   = 8
	MessageCapacity = 32

	MaxTextLen    = FieldCapacity - 1
	MaxPayloadLen = MessageCapacity - 1
)

// Value is a reading parsed once at ingestion.
// Text is what the display shows, numeric part is kept as fixed point milli-units.
type Value struct {
	text  string
	milli int64
}

var Zero = Value{text: "0"}

// ValidNumber reports whether s is optional leading '-', then digits with at most one inner '.'
func ValidNumber(s string) bool {
	if s == "" {
		return false
	}
	digits, dot := 0, -1
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b >= '0' && b <= '9':
			digits++
		case b == '-':
			if i != 0 {
				return false
			}
		case b == '.':
			if dot >= 0 || i == 0 || i == len(s)-1 {
				return false
			}
			dot = i
		default:
			return false
		}
	}
	return digits > 0
}

// ParseValue validates s and keeps at most MaxTextLen characters of it.
// Truncation may leave trailing '.', it stays in text and is ignored numerically.
func ParseValue(s string) (Value, error) {
	if !ValidNumber(s) {
		return Value{}, fmt.Errorf("invalid number %q", s)
	}
	if len(s) > MaxTextLen {
		s = s[:MaxTextLen]
	}
	v := Value{text: s}
	neg := false
	frac := false
	var scale int64 = 1000
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b == '-':
			neg = true
		case b == '.':
			frac = true
		case !frac:
			v.milli = v.milli*10 + int64(b-'0')*1000
		default:
			scale /= 10
			v.milli += int64(b-'0') * scale
		}
	}
	if neg {
		v.milli = -v.milli
	}
	return v, nil
}

// MustValue is ParseValue for trusted input, panics on error.
func MustValue(s string) Value {
	v, err := ParseValue(s)
	if err != nil {
		panic(err)
	}
	return v
}

func IntValue(n int64) Value { return MustValue(strconv.FormatInt(n, 10)) }

func (v Value) String() string {
	if v.text == "" {
		return Zero.text
	}
	return v.text
}

// Int truncates toward zero.
func (v Value) Int() int64 { return v.milli / 1000 }
