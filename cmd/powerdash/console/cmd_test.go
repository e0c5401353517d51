package console

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/powerdash/internal/control"
	"github.com/temoto/powerdash/internal/tele"
	"github.com/temoto/powerdash/internal/telemetry"
)

func TestExec(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line   string
		expect []tele.MockPublish
		check  func(error) bool
	}{
		{"", nil, nil},
		{"grid 750", []tele.MockPublish{{Topic: "PV/grid_powerFast", Payload: "750"}}, nil},
		{"battery -1.5", []tele.MockPublish{{Topic: "VenusData/Ladezustand", Payload: "-1.5"}}, nil},
		{"on", []tele.MockPublish{{Topic: control.DefaultTopicOnOff, Payload: "ON", Retain: true}}, nil},
		{"off", []tele.MockPublish{{Topic: control.DefaultTopicOnOff, Payload: "OFF", Retain: true}}, nil},
		{"+", []tele.MockPublish{{Topic: control.DefaultTopicBrightness, Payload: "+10"}}, nil},
		{"-", []tele.MockPublish{{Topic: control.DefaultTopicBrightness, Payload: "-10"}}, nil},
		{"test on", []tele.MockPublish{{Topic: control.DefaultTopicTestMode, Payload: "ON"}}, nil},
		{"test off", []tele.MockPublish{{Topic: control.DefaultTopicTestMode, Payload: "OFF"}}, nil},
		{"test maybe", nil, errors.IsNotValid},
		{"test", nil, errors.IsNotValid},
		{"pub a/b hello world", []tele.MockPublish{{Topic: "a/b", Payload: "hello world"}}, nil},
		{"pub a/b", nil, errors.IsNotValid},
		{"grid abc", nil, errors.IsNotValid},
		{"grid", nil, errors.IsNotValid},
		{"shrug", nil, errors.IsNotFound},
	}
	for _, c := range cases {
		c := c
		t.Run(c.line, func(t *testing.T) {
			t.Parallel()
			tr := tele.NewMock()
			require.NoError(t, tr.Connect(context.Background()))
			con := newConsole(tr, telemetry.DefaultTopics(), control.Options{})
			err := con.exec(context.Background(), c.line)
			if c.check != nil {
				require.Error(t, err)
				assert.True(t, c.check(err), err.Error())
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, c.expect, tr.TakePublished())
		})
	}
}
