// Package console is interactive MQTT publisher for bench testing a dashboard.
package console

import (
	"context"
	"fmt"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/powerdash/cmd/powerdash/subcmd"
	"github.com/temoto/powerdash/helpers/cli"
	"github.com/temoto/powerdash/internal/control"
	"github.com/temoto/powerdash/internal/state"
	"github.com/temoto/powerdash/internal/tele"
	"github.com/temoto/powerdash/internal/telemetry"
)

const usage = `syntax:
- CHANNEL VALUE       publish reading, e.g. grid 750
- pub TOPIC PAYLOAD   publish raw
- on | off            lamp switch (retained)
- + | -               lamp brightness
- test on | off       dashboard test mode
- help
`

var Mod = subcmd.Mod{Name: "console", Main: Main}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)

	tr, err := g.Transport()
	if err != nil {
		return errors.Annotate(err, "console")
	}
	if err = tr.Connect(ctx); err != nil {
		return errors.Annotate(err, "console")
	}
	defer tr.Disconnect()

	c := newConsole(tr, config.TopicMap(), config.ControlOptions())
	return cli.MainLoop("powerdash-console", func(line string) {
		if err := c.exec(ctx, line); err != nil {
			g.Log.Error(err)
		}
	}, c.complete)
}

type console struct {
	tr     tele.Transporter
	topics telemetry.Topics
	opt    control.Options
}

func newConsole(tr tele.Transporter, topics telemetry.Topics, opt control.Options) *console {
	def := control.DefaultOptions()
	if opt.TopicOnOff == "" {
		opt.TopicOnOff = def.TopicOnOff
	}
	if opt.TopicBrightness == "" {
		opt.TopicBrightness = def.TopicBrightness
	}
	if opt.TopicTestMode == "" {
		opt.TopicTestMode = def.TopicTestMode
	}
	return &console{tr: tr, topics: topics, opt: opt}
}

func (self *console) exec(ctx context.Context, line string) error {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	switch cmd := words[0]; cmd {
	case "help":
		fmt.Print(usage)
		return nil
	case "on":
		return self.tr.Publish(ctx, self.opt.TopicOnOff, []byte(control.PayloadOn), true)
	case "off":
		return self.tr.Publish(ctx, self.opt.TopicOnOff, []byte(control.PayloadOff), true)
	case "+":
		return self.tr.Publish(ctx, self.opt.TopicBrightness, []byte(control.PayloadUp), false)
	case "-":
		return self.tr.Publish(ctx, self.opt.TopicBrightness, []byte(control.PayloadDown), false)
	case "test":
		if len(words) != 2 {
			return errors.NotValidf("syntax: test on|off")
		}
		switch words[1] {
		case "on":
			return self.tr.Publish(ctx, self.opt.TopicTestMode, []byte(control.PayloadOn), false)
		case "off":
			return self.tr.Publish(ctx, self.opt.TopicTestMode, []byte(control.PayloadOff), false)
		}
		return errors.NotValidf("test mode=%s", words[1])
	case "pub":
		if len(words) < 3 {
			return errors.NotValidf("syntax: pub TOPIC PAYLOAD")
		}
		return self.tr.Publish(ctx, words[1], []byte(strings.Join(words[2:], " ")), false)
	default:
		ch, ok := telemetry.ParseChannel(cmd)
		if !ok {
			return errors.NotFoundf("command=%s, try help", cmd)
		}
		if len(words) != 2 {
			return errors.NotValidf("syntax: %s VALUE", cmd)
		}
		if !telemetry.ValidNumber(words[1]) {
			return errors.NotValidf("value=%s", words[1])
		}
		return self.tr.Publish(ctx, self.topics[ch], []byte(words[1]), false)
	}
}

func (self *console) complete(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "help"},
		{Text: "pub", Description: "TOPIC PAYLOAD"},
		{Text: "on", Description: self.opt.TopicOnOff},
		{Text: "off", Description: self.opt.TopicOnOff},
		{Text: "+", Description: self.opt.TopicBrightness},
		{Text: "-", Description: self.opt.TopicBrightness},
		{Text: "test", Description: "on|off " + self.opt.TopicTestMode},
	}
	for _, c := range telemetry.Channels() {
		suggests = append(suggests, prompt.Suggest{Text: c.String(), Description: self.topics[c]})
	}
	return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
}
