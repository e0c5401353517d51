package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/temoto/powerdash/cmd/powerdash/console"
	"github.com/temoto/powerdash/cmd/powerdash/run"
	"github.com/temoto/powerdash/cmd/powerdash/snapshot"
	"github.com/temoto/powerdash/cmd/powerdash/subcmd"
	"github.com/temoto/powerdash/internal/state"
	"github.com/temoto/powerdash/log2"
)

var BuildVersion string = "unknown" // set by ldflags -X

var log = log2.NewStderr(log2.LDebug)

var modules = []subcmd.Mod{
	run.Mod,
	console.Mod,
	snapshot.Mod,
	{Name: "version", Main: versionMain, NoConfig: true},
}

func main() {
	flagset := flag.NewFlagSet("powerdash", flag.ContinueOnError)
	configPath := flagset.String("config", "powerdash.hcl", "")
	flagset.Usage = func() {
		fmt.Fprintf(flagset.Output(), "Usage: powerdash [option] [command] [args]\nOptions:\n")
		flagset.PrintDefaults()
		fmt.Fprintf(flagset.Output(), "Commands:\n")
		for _, m := range modules {
			fmt.Fprintf(flagset.Output(), "  %s\n", m.Name)
		}
	}
	if err := flagset.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatal(err)
	}

	command := "run"
	if flagset.NArg() > 0 {
		command = flagset.Arg(0)
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		log.Fatal(err)
	}

	if mod.Name == "run" && (subcmd.SdNotify("start") || !isatty.IsTerminal(os.Stderr.Fd())) {
		// under systemd or redirected, assume journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	ctx, g := state.NewContext(log)
	g.BuildVersion = BuildVersion
	var config *state.Config
	if !mod.NoConfig {
		config = state.MustReadConfig(log, state.NewOsFullReader(), *configPath)
	}
	args := []string{}
	if flagset.NArg() > 1 {
		args = flagset.Args()[1:]
	}
	if err := mod.Main(ctx, config, args); err != nil {
		g.Fatal(err)
	}
}

func versionMain(ctx context.Context, config *state.Config, args []string) error {
	fmt.Printf("powerdash %s\n", BuildVersion)
	return nil
}
