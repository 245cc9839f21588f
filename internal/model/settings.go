package model

import (
	"fmt"
	"strings"
)

// DisplayField selects the metric shown on the badge.
type DisplayField string

const (
	FieldHealthFactor         DisplayField = "healthFactor"
	FieldTotalCollateral      DisplayField = "totalCollateral"
	FieldTotalDebt            DisplayField = "totalDebt"
	FieldAvailableBorrows     DisplayField = "availableBorrows"
	FieldNetWorth             DisplayField = "netWorth"
	FieldLiquidationThreshold DisplayField = "liquidationThreshold"
	FieldLTV                  DisplayField = "ltv"
)

var displayFields = []DisplayField{
	FieldHealthFactor,
	FieldTotalCollateral,
	FieldTotalDebt,
	FieldAvailableBorrows,
	FieldNetWorth,
	FieldLiquidationThreshold,
	FieldLTV,
}

// DisplayFields lists the supported badge fields.
func DisplayFields() []DisplayField {
	out := make([]DisplayField, len(displayFields))
	copy(out, displayFields)
	return out
}

// ParseDisplayField accepts any casing and "-"/"_" separators; empty means health factor.
func ParseDisplayField(input string) (DisplayField, error) {
	normalized := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(input)))
	if normalized == "" {
		return FieldHealthFactor, nil
	}
	for _, f := range displayFields {
		if strings.ToLower(string(f)) == normalized {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown display field: %s", input)
}

// Settings are the user preferences that drive classification, display and scheduling.
type Settings struct {
	Thresholds    Thresholds    `json:"thresholds"`
	DisplayField  DisplayField  `json:"display_field"`
	RefreshPolicy RefreshPolicy `json:"refresh_policy"`
}

func DefaultSettings() Settings {
	return Settings{
		Thresholds:    DefaultThresholds(),
		DisplayField:  FieldHealthFactor,
		RefreshPolicy: DefaultRefreshPolicy(),
	}
}

func (s Settings) Validate() error {
	if err := s.Thresholds.Validate(); err != nil {
		return err
	}
	if _, err := ParseDisplayField(string(s.DisplayField)); err != nil {
		return err
	}
	return s.RefreshPolicy.Validate()
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	s.RefreshPolicy = s.RefreshPolicy.Clone()
	return s
}
