package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// WatchConfig adds the scheduler and HTTP settings of the watch command.
type WatchConfig struct {
	Config
	RetryInterval time.Duration
	RefreshAll    bool
	Listen        string
	TerminalBadge bool
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return WatchConfig{}, err
	}
	v.SetDefault("retry-interval", 5*time.Minute)
	v.SetDefault("refresh-all", false)
	v.SetDefault("listen", ":8080")
	v.SetDefault("terminal-badge", false)

	base, err := fromViper(v)
	if err != nil {
		return WatchConfig{}, err
	}
	cfg := WatchConfig{
		Config:        base,
		RetryInterval: v.GetDuration("retry-interval"),
		RefreshAll:    v.GetBool("refresh-all"),
		Listen:        v.GetString("listen"),
		TerminalBadge: v.GetBool("terminal-badge"),
	}
	if cfg.RetryInterval < time.Minute {
		return WatchConfig{}, fmt.Errorf("retry-interval must be at least 1m, got %s", cfg.RetryInterval)
	}
	return cfg, nil
}

// RetryMinutes is the retry interval in whole minutes.
func (c WatchConfig) RetryMinutes() int {
	return int(c.RetryInterval.Round(time.Minute) / time.Minute)
}

// CheckConfig configures a one-off refresh.
type CheckConfig struct {
	Config
	// Accounts are "network:address" keys checked instead of the tracked list.
	Accounts []string
	Out      string
}

// LoadCheck merges config file, environment variables, and flags into CheckConfig.
func LoadCheck(cfgFile string, flags *pflag.FlagSet) (CheckConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return CheckConfig{}, err
	}
	v.SetDefault("out", "-")

	base, err := fromViper(v)
	if err != nil {
		return CheckConfig{}, err
	}
	return CheckConfig{
		Config:   base,
		Accounts: getStringSlice(v, "account"),
		Out:      v.GetString("out"),
	}, nil
}
