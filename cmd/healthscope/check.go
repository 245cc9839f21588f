package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"healthScope/internal/config"
	"healthScope/internal/model"
	"healthScope/internal/risk"
	"healthScope/internal/storage"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Refresh tracked accounts once and print their status as JSON lines",
		RunE:  runCheck,
	}
	addFetchFlags(cmd)
	cmd.Flags().StringSlice("account", nil, "network:address keys to check instead of the tracked accounts")
	cmd.Flags().String("out", "-", "output JSONL path (- for stdout)")
	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCheck(cfgFile, cmd.Flags())
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

	out, err := storage.CreateJSONL(cfg.Out, false)
	if err != nil {
		return err
	}
	defer out.Close()

	var statuses []model.AccountStatus
	if len(cfg.Accounts) > 0 {
		statuses, err = checkAdHoc(ctx, a, cfg.Accounts, cfg.MaxAge)
		if err != nil {
			return err
		}
	} else {
		statuses = a.tracker.Refresh(ctx, cfg.MaxAge)
	}

	failed := 0
	for _, status := range statuses {
		if status.Failed() {
			failed++
		}
		if err := out.Write(status); err != nil {
			return err
		}
	}

	logger.Info("check complete",
		zap.Int("accounts", len(statuses)),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(statuses))
	}
	return nil
}

// checkAdHoc fetches accounts that are not tracked, classifying them with the stored thresholds.
func checkAdHoc(ctx context.Context, a *app, keys []string, maxAge time.Duration) ([]model.AccountStatus, error) {
	thresholds := a.tracker.Settings().Thresholds
	statuses := make([]model.AccountStatus, 0, len(keys))
	for _, raw := range keys {
		key, err := model.ParseAccountKey(raw)
		if err != nil {
			return nil, err
		}
		account, err := model.NewTrackedAccount(key.Address.Hex(), key.Network, "")
		if err != nil {
			return nil, err
		}

		entry, err := a.fetcher.FetchEntry(ctx, account, maxAge)
		if err != nil {
			statuses = append(statuses, model.NewErrorStatus(account, err, time.Now()))
			continue
		}
		tier := risk.ClassifyMetrics(entry.Metrics, thresholds)
		statuses = append(statuses, model.NewOKStatus(account, entry.Metrics, tier, entry.FetchedAt))
	}
	return statuses, nil
}
