package link

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/powerdash/internal/clock"
	"github.com/temoto/powerdash/internal/network"
	"github.com/temoto/powerdash/internal/tele"
	"github.com/temoto/powerdash/internal/watchdog"
	"github.com/temoto/powerdash/log2"
)

var testTopics = []string{"PV/generationPower", "PV/grid_powerFast", "VenusData/PowerShelly", "VenusData/Ladezustand", "VenusData/Autarkie_heute"}

type tenv struct {
	clk  *clock.Mock
	wd   *watchdog.Counter
	net  *network.Mock
	sess *tele.Mock
	sup  *Supervisor
}

func newTestEnv(t testing.TB) *tenv {
	opt := DefaultOptions()
	opt.Topics = testTopics
	env := &tenv{
		clk:  clock.NewMock(0),
		wd:   &watchdog.Counter{},
		net:  network.NewMock(false),
		sess: tele.NewMock(),
	}
	env.sup = NewSupervisor(log2.NewTest(t, log2.LDebug), opt, env.clk, env.wd, env.net, env.sess)
	return env
}

// boot brings network and session up and clears recorded sleeps.
func (env *tenv) boot(t testing.TB) {
	ctx := context.Background()
	require.NoError(t, env.sup.Start(ctx))
	require.NoError(t, env.sup.Poll(ctx, env.clk.Now()))
	require.Equal(t, StateConnected, env.sup.Session())
	env.clk.Slept()
}

func assertSliced(t testing.TB, env *tenv, slept []time.Duration) {
	slice := watchdog.Slice(watchdog.DefaultTimeout)
	for _, d := range slept {
		assert.True(t, d <= slice, "sleep=%v slice=%v", d, slice)
	}
}

func TestBootAssociate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.net.UpAfter = 3
	require.NoError(t, env.sup.Start(context.Background()))
	assert.Equal(t, StateConnected, env.sup.Network())
	assert.Equal(t, StateDisconnected, env.sup.Session())
	assert.Equal(t, 1, env.net.Begins)
	slept := env.clk.Slept()
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond}, slept)
	// before and after Begin, then each sleep
	assert.Equal(t, int64(2+3), env.wd.Count())
	assert.False(t, env.sup.RestartRequested())
}

func TestBootAssociateExhausted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.net.UpAfter = -1
	err := env.sup.Start(context.Background())
	assert.Equal(t, ErrRestart, err)
	assert.True(t, env.sup.RestartRequested())
	assert.Equal(t, StateDisconnected, env.sup.Network())
	// 20 attempts, then cooldown
	assert.Equal(t, 20*500*time.Millisecond+5*time.Second, env.clk.SleptTotal())
	slept := env.clk.Slept()
	assertSliced(t, env, slept)
	assert.Equal(t, int64(2+len(slept)), env.wd.Count())

	assert.Equal(t, ErrRestart, env.sup.Poll(context.Background(), env.clk.Now()))
	assert.Equal(t, 0, env.sess.Connects)
}

func TestSessionBackoff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.sup.Start(ctx))
	env.clk.Slept()
	env.sess.ConnectErrs = []error{fmt.Errorf("refused"), fmt.Errorf("refused")}

	require.NoError(t, env.sup.Poll(ctx, env.clk.Now()))
	assert.Equal(t, StateConnected, env.sup.Session())
	assert.Equal(t, 3, env.sess.Connects)
	assert.Equal(t, testTopics, env.sess.Subscribed)
	// delays 1s 2s 4s
	assert.Equal(t, 7*time.Second, env.clk.SleptTotal())
	assertSliced(t, env, env.clk.Slept())

	// success reset backoff to floor
	env.sess.Drop()
	require.NoError(t, env.sup.Poll(ctx, env.clk.Now()))
	assert.Equal(t, StateConnected, env.sup.Session())
	assert.Equal(t, time.Second, env.clk.SleptTotal())
}

func TestSessionExhausted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.sup.Start(ctx))
	env.clk.Slept()
	e := fmt.Errorf("refused")
	env.sess.ConnectErrs = []error{e, e, e}

	assert.Equal(t, ErrRestart, env.sup.Poll(ctx, env.clk.Now()))
	assert.True(t, env.sup.RestartRequested())
	assert.Equal(t, StateDisconnected, env.sup.Session())
	assert.Equal(t, 3, env.sess.Connects)
	// 1s+2s+4s backoff then 10s cooldown
	assert.Equal(t, 17*time.Second, env.clk.SleptTotal())
	assertSliced(t, env, env.clk.Slept())
}

func TestSubscribeFailureCountsAsAttempt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.sup.Start(ctx))
	env.sess.SubscribeErr = fmt.Errorf("not authorized")
	assert.Equal(t, ErrRestart, env.sup.Poll(ctx, env.clk.Now()))
	assert.Equal(t, 3, env.sess.Connects)
	assert.Equal(t, 3, env.sess.Disconnects)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.sup.opt.SessionAttempts = 6
	require.NoError(t, env.sup.Start(ctx))
	env.clk.Slept()
	e := fmt.Errorf("refused")
	env.sess.ConnectErrs = []error{e, e, e, e, e}
	require.NoError(t, env.sup.Poll(ctx, env.clk.Now()))
	// 1 2 4 8 10 10
	assert.Equal(t, 35*time.Second, env.clk.SleptTotal())
}

func TestNetworkDropRecovery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.boot(t)
	assert.False(t, env.sup.TakeChromeInvalidated())
	// recheck interval counts from Start
	start := time.Duration(0)

	env.net.Set(false)
	// drop is not noticed before recheck interval
	require.NoError(t, env.sup.Poll(ctx, start+29*time.Second))
	assert.Equal(t, StateConnected, env.sup.Network())
	assert.Equal(t, StateConnected, env.sup.Session())

	env.net.UpAfter = 2
	require.NoError(t, env.sup.Poll(ctx, start+30*time.Second))
	assert.Equal(t, StateConnected, env.sup.Network())
	assert.Equal(t, StateConnected, env.sup.Session())
	assert.Equal(t, 2, env.net.Begins)
	assert.Equal(t, 1, env.net.Disconnects)
	assert.True(t, env.sup.TakeChromeInvalidated())
	assert.False(t, env.sup.TakeChromeInvalidated())
	// session was forced down and reconnected
	assert.Equal(t, 2, env.sess.Connects)
}

func TestNetworkRecheckExhausted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.boot(t)
	env.net.Set(false)
	env.net.UpAfter = -1

	err := env.sup.Poll(ctx, env.clk.Now()+30*time.Second)
	assert.Equal(t, ErrRestart, err)
	assert.Equal(t, StateDisconnected, env.sup.Network())
	assert.Equal(t, StateDisconnected, env.sup.Session())
	assert.False(t, env.sess.Connected())
	// 10 attempts then cooldown
	assert.Equal(t, 10*500*time.Millisecond+5*time.Second, env.clk.SleptTotal())
}

func TestPublish(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	err := env.sup.Publish(ctx, "lampe/wohnzimmer/set", []byte("ON"), true)
	assert.Equal(t, tele.ErrNotConnected, errors.Cause(err))

	env.boot(t)
	require.NoError(t, env.sup.Publish(ctx, "lampe/wohnzimmer/set", []byte("ON"), true))
	assert.Equal(t, []tele.MockPublish{{Topic: "lampe/wohnzimmer/set", Payload: "ON", Retain: true}}, env.sess.TakePublished())
}

func TestShutdownIsNotRestart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.net.UpAfter = -1
	ctx, cancel := context.WithCancel(context.Background())
	env.clk.OnSleep = func(now time.Duration) {
		if now >= 2*time.Second {
			cancel()
		}
	}
	err := env.sup.Start(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.False(t, env.sup.RestartRequested())
}

// slowSession takes real time to connect and subscribe, like broker over weak link.
type slowSession struct {
	*tele.Mock
	delay time.Duration
}

func (self *slowSession) Connect(ctx context.Context) error {
	time.Sleep(self.delay)
	return self.Mock.Connect(ctx)
}

func (self *slowSession) Subscribe(ctx context.Context, topics []string) error {
	time.Sleep(self.delay)
	return self.Mock.Subscribe(ctx, topics)
}

func TestSlowSessionKeepsWatchdog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := log2.NewTest(t, log2.LDebug)
	r := &watchdog.MockRestarter{}
	const timeout = 200 * time.Millisecond
	soft := watchdog.NewSoft(timeout, r, log)
	defer soft.Close()

	opt := DefaultOptions()
	opt.Topics = testTopics
	opt.WatchdogTimeout = timeout
	sess := &slowSession{Mock: tele.NewMock(), delay: 120 * time.Millisecond}
	sup := NewSupervisor(log, opt, clock.NewMock(0), soft, network.NewMock(true), sess)
	require.NoError(t, sup.Start(ctx))
	require.NoError(t, sup.Poll(ctx, 0))
	assert.Equal(t, StateConnected, sup.Session())
	assert.Equal(t, testTopics, sess.Subscribed)
	require.NoError(t, soft.Close())
	assert.Empty(t, r.Reasons())
}

func TestGuardKicksWhileBlocked(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.sup.opt.WatchdogTimeout = 40 * time.Millisecond
	e := fmt.Errorf("timeout")
	err := env.sup.guard(func() error {
		time.Sleep(100 * time.Millisecond)
		return e
	})
	assert.Equal(t, e, err)
	// before, at least few ticks of 10ms slice, after
	assert.True(t, env.wd.Count() >= 5, "kicks=%d", env.wd.Count())
}
