package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"healthScope/internal/model"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change thresholds, display field and refresh policy",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return printSettings(cmd, a.tracker.Settings())
		},
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Change settings; invalid combinations are rejected",
		Args:  cobra.NoArgs,
		RunE:  runSettingsSet,
	}
	set.Flags().String("warning", "", "warning health factor threshold")
	set.Flags().String("danger", "", "danger health factor threshold")
	set.Flags().String("display-field", "", fmt.Sprintf("badge field (%s)", joinFields()))
	set.Flags().Int("healthy-interval", 0, "refresh minutes while safe")
	set.Flags().Int("warning-interval", 0, "refresh minutes while in warning")
	set.Flags().Int("danger-interval", 0, "refresh minutes while in danger")
	set.Flags().StringSlice("multiplier", nil, "per-network interval factors (network=factor, comma-separated)")
	set.Flags().Bool("reset", false, "restore the default settings before applying flags")

	cmd.AddCommand(show, set)
	return cmd
}

func runSettingsSet(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	settings := a.tracker.Settings()
	flags := cmd.Flags()
	if reset, _ := flags.GetBool("reset"); reset {
		settings = model.DefaultSettings()
	}

	if flags.Changed("warning") {
		raw, _ := flags.GetString("warning")
		if settings.Thresholds.Warning, err = decimal.NewFromString(raw); err != nil {
			return fmt.Errorf("warning: %w", err)
		}
	}
	if flags.Changed("danger") {
		raw, _ := flags.GetString("danger")
		if settings.Thresholds.Danger, err = decimal.NewFromString(raw); err != nil {
			return fmt.Errorf("danger: %w", err)
		}
	}
	if flags.Changed("display-field") {
		raw, _ := flags.GetString("display-field")
		if settings.DisplayField, err = model.ParseDisplayField(raw); err != nil {
			return err
		}
	}
	if flags.Changed("healthy-interval") {
		settings.RefreshPolicy.HealthyIntervalMinutes, _ = flags.GetInt("healthy-interval")
	}
	if flags.Changed("warning-interval") {
		settings.RefreshPolicy.WarningIntervalMinutes, _ = flags.GetInt("warning-interval")
	}
	if flags.Changed("danger-interval") {
		settings.RefreshPolicy.DangerIntervalMinutes, _ = flags.GetInt("danger-interval")
	}
	if flags.Changed("multiplier") {
		pairs, _ := flags.GetStringSlice("multiplier")
		if settings.RefreshPolicy.NetworkMultipliers == nil {
			settings.RefreshPolicy.NetworkMultipliers = make(map[string]float64)
		}
		for _, pair := range pairs {
			network, factor, err := parseMultiplier(pair)
			if err != nil {
				return err
			}
			settings.RefreshPolicy.NetworkMultipliers[network] = factor
		}
	}

	if err := a.tracker.UpdateSettings(cmd.Context(), settings); err != nil {
		return err
	}
	return printSettings(cmd, a.tracker.Settings())
}

func parseMultiplier(pair string) (string, float64, error) {
	parts := strings.SplitN(pair, "=", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("invalid multiplier %q, want network=factor", pair)
	}
	network := model.NormalizeNetwork(parts[0])
	factor, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || network == "" {
		return "", 0, fmt.Errorf("invalid multiplier %q, want network=factor", pair)
	}
	return network, factor, nil
}

func printSettings(cmd *cobra.Command, settings model.Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func joinFields() string {
	fields := model.DisplayFields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
