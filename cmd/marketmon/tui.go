package main

import (
	"context"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/marketmon/internal/controller"
	"github.com/abelbrown/marketmon/internal/logging"
	"github.com/abelbrown/marketmon/internal/otel"
	"github.com/abelbrown/marketmon/internal/ui"
)

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt.events.Info(otel.KindStartup, "main", "marketmon "+version)

	// OnChange also fires from inside Update (key actions call the
	// controller), so it must not block on the program's message loop.
	// Out-of-order delivery is fine: the app drops older versions.
	var program *tea.Program
	ctrl := rt.newController(func(s controller.State) {
		go program.Send(ui.StateChanged{State: s})
	})

	app := ui.NewApp(ui.Actions{
		SetQuery:    ctrl.SetQuery,
		Refetch:     ctrl.Refetch,
		ToggleChaos: ctrl.ToggleChaos,
	}, ui.Options{
		Initial:    ctrl.Snapshot(),
		Events:     rt.events,
		Ring:       rt.ring,
		RecentSize: 10,
	})

	g, gctx := errgroup.WithContext(ctx)
	program = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(gctx))

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			logging.Info("metrics listening", "addr", cfg.MetricsAddr)
			return rt.metrics.Serve(gctx, cfg.MetricsAddr)
		})
	}

	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
			return nil
		}
		return err
	})

	ctrl.Start(gctx)

	err = g.Wait()
	ctrl.Stop()

	if err != nil {
		rt.events.Error(otel.KindError, "main", err)
		logging.Error("marketmon exited with error", "err", err)
	}
	rt.events.Info(otel.KindShutdown, "main", "marketmon stopped")
	logging.Info("marketmon stopped")
	return err
}
