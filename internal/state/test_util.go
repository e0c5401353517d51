package state

import (
	"context"
	"testing"

	"github.com/temoto/powerdash/hardware/display"
	"github.com/temoto/powerdash/internal/clock"
	"github.com/temoto/powerdash/internal/network"
	"github.com/temoto/powerdash/internal/tele"
	"github.com/temoto/powerdash/internal/watchdog"
	"github.com/temoto/powerdash/log2"
)

// TestHardware holds mocks installed by NewTestContext.
type TestHardware struct {
	Clock     *clock.Mock
	Display   *display.Display
	Network   *network.Mock
	Transport *tele.Mock
	Restarter *watchdog.MockRestarter
	Watchdog  *watchdog.Counter
}

const testConfigBase = `mqtt { broker = "tcp://test:1883" client_id = "powerdash-test" }
`

func NewTestContext(t testing.TB, confString string) (context.Context, *Global, *TestHardware) {
	fs := NewMockFullReader(map[string]string{
		"test-base":   testConfigBase,
		"test-inline": confString,
	})

	log := log2.NewTest(t, log2.LDebug)
	// log := log2.NewStderr(log2.LDebug) // useful with panics
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log)
	th := &TestHardware{
		Clock:     clock.NewMock(0),
		Display:   display.NewMock(),
		Network:   network.NewMock(true),
		Transport: tele.NewMock(),
		Restarter: &watchdog.MockRestarter{},
		Watchdog:  &watchdog.Counter{},
	}
	g.Clock = th.Clock
	g.Restarter = th.Restarter
	g.Hardware.Display.D = th.Display
	g.Hardware.Network.N = th.Network
	g.Hardware.Transport.T = th.Transport
	g.Hardware.Watchdog.K = th.Watchdog
	g.MustInit(ctx, MustReadConfig(log, fs, "test-base", "test-inline"))

	return ctx, g, th
}
