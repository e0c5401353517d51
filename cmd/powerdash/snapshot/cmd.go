// Package snapshot renders dashboard with given readings into PNG file, no hardware involved.
package snapshot

import (
	"context"
	"flag"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/cmd/powerdash/subcmd"
	"github.com/temoto/powerdash/hardware/display"
	"github.com/temoto/powerdash/internal/render"
	"github.com/temoto/powerdash/internal/state"
	"github.com/temoto/powerdash/internal/telemetry"
	"github.com/temoto/powerdash/log2"
)

var Mod = subcmd.Mod{Name: "snapshot", Main: Main, NoConfig: true}

type setFlag []telemetry.Update

func (self *setFlag) String() string {
	ss := make([]string, len(*self))
	for i, u := range *self {
		ss[i] = u.String()
	}
	return strings.Join(ss, ",")
}

func (self *setFlag) Set(s string) error {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return errors.NotValidf("set=%s expected channel=value", s)
	}
	ch, ok := telemetry.ParseChannel(parts[0])
	if !ok {
		return errors.NotFoundf("channel=%s", parts[0])
	}
	v, err := telemetry.ParseValue(parts[1])
	if err != nil {
		return errors.Annotatef(err, "channel=%s", parts[0])
	}
	*self = append(*self, telemetry.Update{Channel: ch, Value: v})
	return nil
}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	flagset := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	out := flagset.String("out", "powerdash.png", "output PNG path")
	var sets setFlag
	flagset.Var(&sets, "set", "channel=value, repeatable")
	if err := flagset.Parse(args); err != nil {
		return errors.Annotate(err, "snapshot")
	}
	return Render(g.Log, *out, sets)
}

// Render paints chrome with updates applied, then flushes frame into PNG at path.
func Render(log *log2.Log, path string, updates []telemetry.Update) error {
	d := display.NewWithSink(display.NewPNG(path))
	defer d.Close()
	store := telemetry.NewStore()
	for _, u := range updates {
		store.Apply(u)
	}
	render.NewPipeline(log, d, 0).Chrome(store)
	if err := d.Flush(); err != nil {
		return errors.Annotatef(err, "snapshot path=%s", path)
	}
	log.Infof("snapshot %s %s", path, (*setFlag)(&updates).String())
	return nil
}
