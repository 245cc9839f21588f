package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"healthScope/internal/model"
)

// DecodeConfig holds configuration for the offline decode command.
type DecodeConfig struct {
	In         string
	Out        string
	Errors     string
	LogLevel   string
	Thresholds model.Thresholds
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return DecodeConfig{}, err
	}
	v.SetDefault("out", "./data/decoded.jsonl")
	v.SetDefault("errors", "./data/decode_errors.jsonl")
	v.SetDefault("warning-threshold", "2")
	v.SetDefault("danger-threshold", "1")

	warning, err := decimal.NewFromString(v.GetString("warning-threshold"))
	if err != nil {
		return DecodeConfig{}, fmt.Errorf("warning-threshold: %w", err)
	}
	danger, err := decimal.NewFromString(v.GetString("danger-threshold"))
	if err != nil {
		return DecodeConfig{}, fmt.Errorf("danger-threshold: %w", err)
	}

	cfg := DecodeConfig{
		In:         v.GetString("in"),
		Out:        v.GetString("out"),
		Errors:     v.GetString("errors"),
		LogLevel:   v.GetString("log-level"),
		Thresholds: model.Thresholds{Warning: warning, Danger: danger},
	}
	if cfg.In == "" {
		return DecodeConfig{}, fmt.Errorf("in is required")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return DecodeConfig{}, err
	}
	return cfg, nil
}
