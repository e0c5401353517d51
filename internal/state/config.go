package state

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/powerdash/hardware/input"
	"github.com/temoto/powerdash/helpers"
	"github.com/temoto/powerdash/internal/control"
	"github.com/temoto/powerdash/internal/link"
	"github.com/temoto/powerdash/internal/network"
	"github.com/temoto/powerdash/internal/tele"
	"github.com/temoto/powerdash/internal/telemetry"
	"github.com/temoto/powerdash/internal/watchdog"
	"github.com/temoto/powerdash/log2"
)

const (
	DefaultRenderInterval = 500 * time.Millisecond
	DefaultLoopYield      = 10 * time.Millisecond
	DefaultTestInterval   = 5 * time.Second
)

// linux/input-event-codes.h KEY_F1..F3
const (
	DefaultKeyA = 59
	DefaultKeyB = 60
	DefaultKeyC = 61
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Network struct {
		Driver            string `hcl:"driver"`
		Interface         string `hcl:"interface"`
		ConnectCommand    string `hcl:"connect_command"`
		DisconnectCommand string `hcl:"disconnect_command"`
		BootAttempts      int    `hcl:"boot_attempts"`
		RecheckAttempts   int    `hcl:"recheck_attempts"`
		AttemptDelayMs    int    `hcl:"attempt_delay_ms"`
		RecheckSec        int    `hcl:"recheck_sec"`
		CooldownSec       int    `hcl:"cooldown_sec"`
	} `hcl:"network"`

	Mqtt struct { //nolint:maligned
		Driver            string `hcl:"driver"`
		Broker            string `hcl:"broker"`
		ClientID          string `hcl:"client_id"`
		Username          string `hcl:"username"`
		Password          string `hcl:"password"`
		KeepaliveSec      int    `hcl:"keepalive_sec"`
		NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
		SessionAttempts   int    `hcl:"session_attempts"`
		BackoffMinMs      int    `hcl:"backoff_min_ms"`
		BackoffMaxMs      int    `hcl:"backoff_max_ms"`
		CooldownSec       int    `hcl:"cooldown_sec"`
		InboxSize         int    `hcl:"inbox_size"`
		LogDebug          bool   `hcl:"log_debug"`
	} `hcl:"mqtt"`

	Topics struct {
		Generation string `hcl:"generation"`
		Grid       string `hcl:"grid"`
		Storage    string `hcl:"storage"`
		Battery    string `hcl:"battery"`
		Autarky    string `hcl:"autarky"`
	} `hcl:"topics"`

	Display struct {
		Driver           string `hcl:"driver"`
		Device           string `hcl:"device"`
		RenderIntervalMs int    `hcl:"render_interval_ms"`
	} `hcl:"display"`

	Input struct {
		BufferSize    int `hcl:"buffer_size"`
		DevInputEvent struct {
			Enable bool   `hcl:"enable"`
			Device string `hcl:"device"`
		} `hcl:"dev_input_event"`
		Gpio struct {
			Enable     bool   `hcl:"enable"`
			Chip       string `hcl:"chip"`
			Lines      []int  `hcl:"lines"`
			ActiveHigh bool   `hcl:"active_high"`
		} `hcl:"gpio"`
	} `hcl:"input"`

	Buttons struct {
		A               int    `hcl:"a"`
		B               int    `hcl:"b"`
		C               int    `hcl:"c"`
		DebounceMs      int    `hcl:"debounce_ms"`
		FeedbackMs      int    `hcl:"feedback_ms"`
		TestGestureMs   int    `hcl:"test_gesture_ms"`
		TopicOnOff      string `hcl:"topic_onoff"`
		TopicBrightness string `hcl:"topic_brightness"`
	} `hcl:"buttons"`

	Watchdog struct {
		Driver     string `hcl:"driver"`
		Device     string `hcl:"device"`
		TimeoutSec int    `hcl:"timeout_sec"`
	} `hcl:"watchdog"`

	TestMode struct {
		Enable      bool   `hcl:"enable"`
		IntervalSec int    `hcl:"interval_sec"`
		Topic       string `hcl:"topic"`
	} `hcl:"test_mode"`

	Persist struct {
		Root string `hcl:"root"`
	} `hcl:"persist"`

	Loop struct {
		YieldMs int `hcl:"yield_ms"`
	} `hcl:"loop"`

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) TopicMap() telemetry.Topics {
	ts := telemetry.DefaultTopics()
	for ch, s := range [telemetry.ChannelCount]string{
		c.Topics.Generation, c.Topics.Grid, c.Topics.Storage, c.Topics.Battery, c.Topics.Autarky,
	} {
		if s != "" {
			ts[ch] = s
		}
	}
	return ts
}

func (c *Config) LinkOptions() link.Options {
	opt := link.DefaultOptions()
	if c.Network.BootAttempts != 0 {
		opt.BootAttempts = c.Network.BootAttempts
	}
	if c.Network.RecheckAttempts != 0 {
		opt.RecheckAttempts = c.Network.RecheckAttempts
	}
	opt.AttemptDelay = helpers.IntMillisecondDefault(c.Network.AttemptDelayMs, opt.AttemptDelay)
	opt.RecheckInterval = helpers.IntSecondDefault(c.Network.RecheckSec, opt.RecheckInterval)
	opt.NetworkCooldown = helpers.IntSecondDefault(c.Network.CooldownSec, opt.NetworkCooldown)
	if c.Mqtt.SessionAttempts != 0 {
		opt.SessionAttempts = c.Mqtt.SessionAttempts
	}
	opt.BackoffMin = helpers.IntMillisecondDefault(c.Mqtt.BackoffMinMs, opt.BackoffMin)
	opt.BackoffMax = helpers.IntMillisecondDefault(c.Mqtt.BackoffMaxMs, opt.BackoffMax)
	opt.SessionCooldown = helpers.IntSecondDefault(c.Mqtt.CooldownSec, opt.SessionCooldown)
	opt.WatchdogTimeout = c.WatchdogConfig().Timeout
	opt.Topics = append(c.TopicMap().List(), c.TestModeTopic())
	return opt
}

func (c *Config) TransportOptions(log *log2.Log) tele.Options {
	level := log2.LInfo
	if c.Mqtt.LogDebug {
		level = log2.LDebug
	}
	clientID := c.Mqtt.ClientID
	if clientID == "" {
		clientID = tele.ClientID()
	}
	return tele.Options{
		Broker:         c.Mqtt.Broker,
		ClientID:       clientID,
		Username:       c.Mqtt.Username,
		Password:       c.Mqtt.Password,
		Keepalive:      helpers.IntSecondDefault(c.Mqtt.KeepaliveSec, tele.DefaultKeepalive),
		NetworkTimeout: helpers.IntSecondDefault(c.Mqtt.NetworkTimeoutSec, tele.DefaultNetworkTimeout),
		InboxSize:      c.Mqtt.InboxSize,
		Log:            log.Clone(level).Named("mqtt"),
	}
}

func (c *Config) NetworkConfig() network.Config {
	return network.Config{
		Driver:            c.Network.Driver,
		Interface:         c.Network.Interface,
		ConnectCommand:    c.Network.ConnectCommand,
		DisconnectCommand: c.Network.DisconnectCommand,
	}
}

func (c *Config) WatchdogConfig() watchdog.Config {
	return watchdog.Config{
		Driver:  c.Watchdog.Driver,
		Device:  c.Watchdog.Device,
		Timeout: helpers.IntSecondDefault(c.Watchdog.TimeoutSec, watchdog.DefaultTimeout),
	}
}

func (c *Config) ControlOptions() control.Options {
	return control.Options{
		Debounce:        helpers.IntMillisecondDefault(c.Buttons.DebounceMs, control.DefaultDebounce),
		Feedback:        helpers.IntMillisecondDefault(c.Buttons.FeedbackMs, control.DefaultFeedback),
		TestGesture:     helpers.IntMillisecondDefault(c.Buttons.TestGestureMs, control.DefaultTestGesture),
		TopicOnOff:      c.Buttons.TopicOnOff,
		TopicBrightness: c.Buttons.TopicBrightness,
		TopicTestMode:   c.TestModeTopic(),
	}
}

// TestModeTopic is command topic for remote test mode switch.
func (c *Config) TestModeTopic() string {
	if c.TestMode.Topic == "" {
		return control.DefaultTopicTestMode
	}
	return c.TestMode.Topic
}

// ButtonMap binds input key codes to buttons, same codes for every source.
func (c *Config) ButtonMap() map[input.Key]control.Button {
	return map[input.Key]control.Button{
		input.Key(c.Buttons.A): control.ButtonA,
		input.Key(c.Buttons.B): control.ButtonB,
		input.Key(c.Buttons.C): control.ButtonC,
	}
}

func (c *Config) RenderInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.Display.RenderIntervalMs, DefaultRenderInterval)
}

func (c *Config) LoopYield() time.Duration {
	return helpers.IntMillisecondDefault(c.Loop.YieldMs, DefaultLoopYield)
}

func (c *Config) TestInterval() time.Duration {
	return helpers.IntSecondDefault(c.TestMode.IntervalSec, DefaultTestInterval)
}

func (c *Config) applyDefaults() {
	if c.Mqtt.Driver == "" {
		c.Mqtt.Driver = "paho"
	}
	if c.Buttons.A == 0 && c.Buttons.B == 0 && c.Buttons.C == 0 {
		c.Buttons.A, c.Buttons.B, c.Buttons.C = DefaultKeyA, DefaultKeyB, DefaultKeyC
	}
	if c.Input.DevInputEvent.Enable && c.Input.DevInputEvent.Device == "" {
		c.Input.DevInputEvent.Device = "/dev/input/event0"
	}
	if c.Input.Gpio.Enable && c.Input.Gpio.Chip == "" {
		c.Input.Gpio.Chip = "/dev/gpiochip0"
	}
}

func (c *Config) validate() []error {
	errs := make([]error, 0)
	if c.Mqtt.Broker == "" {
		errs = append(errs, errors.NotValidf("config: mqtt.broker=empty"))
	}
	if a, b, cc := c.Buttons.A, c.Buttons.B, c.Buttons.C; a == b || b == cc || a == cc {
		errs = append(errs, errors.NotValidf("config: buttons must have distinct keys a=%d b=%d c=%d", a, b, cc))
	}
	seen := make(map[string]telemetry.Channel, telemetry.ChannelCount)
	for ch, t := range c.TopicMap() {
		if prev, ok := seen[t]; ok {
			errs = append(errs, errors.NotValidf("config: topic=%s used by %s and %s", t, prev, telemetry.Channel(ch)))
		}
		seen[t] = telemetry.Channel(ch)
	}
	if prev, ok := seen[c.TestModeTopic()]; ok {
		errs = append(errs, errors.NotValidf("config: test_mode.topic=%s used by %s", c.TestModeTopic(), prev))
	}
	if c.Input.Gpio.Enable && len(c.Input.Gpio.Lines) == 0 {
		errs = append(errs, errors.NotValidf("config: input.gpio.lines=empty"))
	}
	if c.Display.RenderIntervalMs < 0 || c.Loop.YieldMs < 0 {
		errs = append(errs, errors.NotValidf("config: negative interval"))
	}
	return errs
}

func (c *Config) String() string {
	return fmt.Sprintf("mqtt=%s/%s network=%s display=%s watchdog=%s",
		c.Mqtt.Driver, c.Mqtt.Broker, c.Network.Driver, c.Display.Driver, c.Watchdog.Driver)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	c.applyDefaults()
	errs = append(errs, c.validate()...)
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
