package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const infiniteText = "inf"

// HealthFactor is a finite decimal or the Infinite sentinel.
type HealthFactor struct {
	Value    decimal.Decimal
	Infinite bool
}

func InfiniteHealthFactor() HealthFactor {
	return HealthFactor{Infinite: true}
}

func FiniteHealthFactor(value decimal.Decimal) HealthFactor {
	return HealthFactor{Value: value}
}

// String renders two decimals, or "inf".
func (h HealthFactor) String() string {
	if h.Infinite {
		return infiniteText
	}
	return h.Value.StringFixed(2)
}

// Equal compares two health factors by value.
func (h HealthFactor) Equal(other HealthFactor) bool {
	if h.Infinite || other.Infinite {
		return h.Infinite == other.Infinite
	}
	return h.Value.Equal(other.Value)
}

// MarshalJSON encodes finite values as a decimal string and Infinite as "inf".
func (h HealthFactor) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HealthFactor) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("health factor: %w", err)
	}
	if text == infiniteText {
		*h = InfiniteHealthFactor()
		return nil
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return fmt.Errorf("health factor: %w", err)
	}
	*h = FiniteHealthFactor(value)
	return nil
}

// AccountMetrics is the decoded lending position of one account.
type AccountMetrics struct {
	TotalCollateralUSD   decimal.Decimal `json:"total_collateral_usd"`
	TotalDebtUSD         decimal.Decimal `json:"total_debt_usd"`
	AvailableBorrowsUSD  decimal.Decimal `json:"available_borrows_usd"`
	LiquidationThreshold decimal.Decimal `json:"liquidation_threshold"`
	LoanToValue          decimal.Decimal `json:"loan_to_value"`
	HealthFactor         HealthFactor    `json:"health_factor"`
}

// NoDebt reports whether the account has no outstanding debt.
func (m AccountMetrics) NoDebt() bool {
	return m.TotalDebtUSD.IsZero()
}

// NetWorthUSD is collateral minus debt; it can be negative.
func (m AccountMetrics) NetWorthUSD() decimal.Decimal {
	return m.TotalCollateralUSD.Sub(m.TotalDebtUSD)
}

// ApplyNoDebtOverride forces an Infinite health factor on debt-free accounts.
func (m AccountMetrics) ApplyNoDebtOverride() AccountMetrics {
	if m.NoDebt() {
		m.HealthFactor = InfiniteHealthFactor()
	}
	return m
}
