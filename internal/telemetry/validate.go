package telemetry

import (
	"github.com/256dpi/gomqtt/topic"
	"github.com/juju/errors"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownTopic   = errors.New("unknown topic")
)

// Validator maps inbound topic to channel and payload to Value.
// Configured topics may contain MQTT wildcards.
type Validator struct {
	tree *topic.Tree
}

func NewValidator(topics Topics) *Validator {
	self := &Validator{tree: topic.NewStandardTree()}
	for i, t := range topics {
		if t != "" {
			self.tree.Add(t, Channel(i))
		}
	}
	return self
}

func (self *Validator) Lookup(name string) (Channel, bool) {
	found := false
	var best Channel
	for _, x := range self.tree.Match(name) {
		c := x.(Channel)
		if !found || c < best {
			best, found = c, true
		}
	}
	return best, found
}

func (self *Validator) Validate(name string, payload []byte) (Update, error) {
	c, ok := self.Lookup(name)
	if !ok {
		return Update{}, errors.Annotatef(ErrUnknownTopic, "topic=%s", name)
	}
	if len(payload) > MaxPayloadLen {
		payload = payload[:MaxPayloadLen]
	}
	v, err := ParseValue(string(payload))
	if err != nil {
		return Update{}, errors.Annotatef(ErrInvalidPayload, "topic=%s payload=%q", name, payload)
	}
	return Update{Channel: c, Value: v}, nil
}
