package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RiskTier is ordered by severity: Safe < Warning < Danger.
type RiskTier int

const (
	TierSafe RiskTier = iota
	TierWarning
	TierDanger
)

func (t RiskTier) String() string {
	switch t {
	case TierSafe:
		return "safe"
	case TierWarning:
		return "warning"
	case TierDanger:
		return "danger"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

func (t RiskTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *RiskTier) UnmarshalText(text []byte) error {
	tier, err := ParseRiskTier(string(text))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

func ParseRiskTier(input string) (RiskTier, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "safe":
		return TierSafe, nil
	case "warning":
		return TierWarning, nil
	case "danger":
		return TierDanger, nil
	default:
		return TierSafe, fmt.Errorf("unknown risk tier: %s", input)
	}
}

// Thresholds are the user-configured health factor boundaries.
type Thresholds struct {
	Warning decimal.Decimal `json:"warning"`
	Danger  decimal.Decimal `json:"danger"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Warning: decimal.NewFromInt(2),
		Danger:  decimal.NewFromInt(1),
	}
}

// Validate requires warning > danger > 0.
func (t Thresholds) Validate() error {
	if !t.Danger.IsPositive() {
		return fmt.Errorf("danger threshold must be positive, got %s", t.Danger)
	}
	if !t.Warning.GreaterThan(t.Danger) {
		return fmt.Errorf("warning threshold %s must be greater than danger threshold %s", t.Warning, t.Danger)
	}
	return nil
}
