package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"healthScope/internal/api"
	"healthScope/internal/badge"
	"healthScope/internal/config"
	"healthScope/internal/schedule"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the pinned account on an adaptive schedule and serve its badge",
		RunE:  runWatch,
	}
	addFetchFlags(cmd)
	cmd.Flags().Duration("retry-interval", 5*time.Minute, "delay after a failure when no tier is known yet")
	cmd.Flags().Bool("refresh-all", false, "also refresh the other tracked accounts each cycle")
	cmd.Flags().String("listen", ":8080", "HTTP listen address (empty disables the API)")
	cmd.Flags().Bool("terminal-badge", false, "print the badge to stdout after each cycle")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg.Config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sinks := badge.MultiSink{badge.NewLogSink(logger)}
	if cfg.TerminalBadge {
		sinks = append(sinks, badge.NewTerminalSink(os.Stdout))
	}

	scheduler := schedule.New(a.tracker, sinks, a.metrics, schedule.Config{
		RetryMinutes: cfg.RetryMinutes(),
		RefreshAll:   cfg.RefreshAll,
		OthersMaxAge: cfg.MaxAge,
	}, logger)

	pinnedKey := ""
	if pinned, ok := a.tracker.Pinned(); ok {
		pinnedKey = pinned.Key().String()
	}
	logger.Info("watch start",
		zap.String("store", cfg.Store.Backend),
		zap.Int("accounts", len(a.tracker.Accounts())),
		zap.String("pinned", pinnedKey),
		zap.Bool("refresh_all", cfg.RefreshAll),
		zap.String("listen", cfg.Listen),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	if cfg.Listen != "" {
		server := api.NewServer(a.tracker, scheduler, a.metrics, logger)
		g.Go(func() error {
			return server.Run(gctx, cfg.Listen)
		})
	}

	err = g.Wait()
	logger.Info("watch stopped")
	return err
}
