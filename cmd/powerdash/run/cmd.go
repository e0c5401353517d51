// Package run is the dashboard daemon: main loop until signal or restart.
package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/powerdash/cmd/powerdash/subcmd"
	"github.com/temoto/powerdash/internal/dashboard"
	"github.com/temoto/powerdash/internal/link"
	"github.com/temoto/powerdash/internal/state"
)

var Mod = subcmd.Mod{Name: "run", Main: Main}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigch:
			g.Log.Infof("signal=%v stopping", sig)
			g.Stop()
			cancel()
		case <-ctx.Done():
		}
	}()

	app, err := dashboard.New(ctx, nil)
	if err != nil {
		return errors.Annotate(err, "dashboard")
	}
	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Debugf("dashboard init complete")

	err = app.Run(ctx)
	if errors.Cause(err) == link.ErrRestart {
		// restarter failed to exec, exit code is the last resort
		g.Log.Error(err)
		os.Exit(1)
	}

	subcmd.SdNotify(daemon.SdNotifyStopping)
	g.Error(g.CloseHardware(), "close hardware")
	g.StopWait(5 * time.Second)
	return err
}
