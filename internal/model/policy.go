package model

import (
	"fmt"
	"math"
)

// MaxIntervalMinutes caps any refresh interval at one year.
const MaxIntervalMinutes = 365 * 24 * 60

// RefreshPolicy holds the per-tier refresh intervals and per-network multipliers.
type RefreshPolicy struct {
	HealthyIntervalMinutes int                `json:"healthy_interval_minutes"`
	WarningIntervalMinutes int                `json:"warning_interval_minutes"`
	DangerIntervalMinutes  int                `json:"danger_interval_minutes"`
	NetworkMultipliers     map[string]float64 `json:"network_multipliers,omitempty"`
}

func DefaultRefreshPolicy() RefreshPolicy {
	return RefreshPolicy{
		HealthyIntervalMinutes: 60,
		WarningIntervalMinutes: 30,
		DangerIntervalMinutes:  5,
		NetworkMultipliers: map[string]float64{
			"ethereum":  1.0,
			"polygon":   0.8,
			"avalanche": 0.8,
			"arbitrum":  0.9,
			"optimism":  0.9,
			"base":      0.8,
			"gnosis":    0.8,
		},
	}
}

// Validate rejects intervals outside [1, MaxIntervalMinutes] and multipliers
// that are not positive finite numbers.
func (p RefreshPolicy) Validate() error {
	intervals := []struct {
		name    string
		minutes int
	}{
		{"healthy", p.HealthyIntervalMinutes},
		{"warning", p.WarningIntervalMinutes},
		{"danger", p.DangerIntervalMinutes},
	}
	for _, iv := range intervals {
		if iv.minutes <= 0 {
			return fmt.Errorf("%s interval must be positive, got %d", iv.name, iv.minutes)
		}
		if iv.minutes > MaxIntervalMinutes {
			return fmt.Errorf("%s interval must be at most %d minutes, got %d", iv.name, MaxIntervalMinutes, iv.minutes)
		}
	}
	for network, multiplier := range p.NetworkMultipliers {
		if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
			return fmt.Errorf("multiplier for %s must be positive and finite, got %v", network, multiplier)
		}
	}
	return nil
}

// Multiplier returns the network factor, 1.0 when unset.
func (p RefreshPolicy) Multiplier(network string) float64 {
	if m, ok := p.NetworkMultipliers[NormalizeNetwork(network)]; ok && m > 0 && !math.IsInf(m, 1) {
		return m
	}
	return 1.0
}

// BaseInterval returns the unscaled interval for a tier.
func (p RefreshPolicy) BaseInterval(tier RiskTier) int {
	switch tier {
	case TierWarning:
		return p.WarningIntervalMinutes
	case TierDanger:
		return p.DangerIntervalMinutes
	default:
		return p.HealthyIntervalMinutes
	}
}

// Clone returns a copy whose multiplier map can be mutated independently.
func (p RefreshPolicy) Clone() RefreshPolicy {
	out := p
	if p.NetworkMultipliers != nil {
		out.NetworkMultipliers = make(map[string]float64, len(p.NetworkMultipliers))
		for k, v := range p.NetworkMultipliers {
			out.NetworkMultipliers[k] = v
		}
	}
	return out
}
