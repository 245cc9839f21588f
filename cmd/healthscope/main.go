package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "healthscope",
		Short:        "Aave V3 health factor tracker",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("store", "file", "state store backend (file, memory, redis, postgres)")
	pf.String("store-path", "./data/healthscope.json", "state file path for the file store")
	pf.String("redis-addr", "", "redis address for the redis store")
	pf.String("redis-password", "", "redis password")
	pf.Int("redis-db", 0, "redis database number")
	pf.String("pg-dsn", "", "Postgres DSN for the postgres store")
	pf.String("networks-file", "", "YAML file overriding or extending the built-in networks")

	root.AddCommand(newWatchCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newAccountsCmd())
	root.AddCommand(newSettingsCmd())
	root.AddCommand(newDecodeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("rpc-timeout", 30*time.Second, "timeout of one getUserAccountData call")
	cmd.Flags().Float64("rpc-rate", 5, "outbound calls per second per network (0 disables limiting)")
	cmd.Flags().Int("rpc-burst", 5, "outbound call burst per network")
	cmd.Flags().Duration("cache-retention", 24*time.Hour, "how long fetched metrics stay cached")
	cmd.Flags().Duration("max-age", time.Minute, "serve cached metrics younger than this")
	cmd.Flags().Int("concurrency", 4, "accounts refreshed in parallel")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
