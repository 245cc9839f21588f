package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the latest outcome for one tracked account.
// A failed fetch replaces any earlier metrics so stale values are never shown as current.
type AccountStatus struct {
	Account   TrackedAccount  `json:"account"`
	Metrics   *AccountMetrics `json:"metrics,omitempty"`
	Tier      *RiskTier       `json:"tier,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s AccountStatus) Failed() bool {
	return s.Error != ""
}

// NewOKStatus records a successful classification.
func NewOKStatus(account TrackedAccount, metrics AccountMetrics, tier RiskTier, at time.Time) AccountStatus {
	return AccountStatus{
		Account:   account,
		Metrics:   &metrics,
		Tier:      &tier,
		UpdatedAt: at,
	}
}

// NewErrorStatus records a failed fetch.
func NewErrorStatus(account TrackedAccount, err error, at time.Time) AccountStatus {
	return AccountStatus{
		Account:   account,
		Error:     err.Error(),
		ErrorKind: ErrorKind(err),
		UpdatedAt: at,
	}
}

// AccountSnapshot is the persisted row for one successful fetch.
type AccountSnapshot struct {
	Network              string          `json:"network"`
	Address              string          `json:"address"`
	Label                string          `json:"label,omitempty"`
	TotalCollateralUSD   decimal.Decimal `json:"total_collateral_usd"`
	TotalDebtUSD         decimal.Decimal `json:"total_debt_usd"`
	AvailableBorrowsUSD  decimal.Decimal `json:"available_borrows_usd"`
	LiquidationThreshold decimal.Decimal `json:"liquidation_threshold"`
	LoanToValue          decimal.Decimal `json:"loan_to_value"`
	HealthFactor         string          `json:"health_factor"`
	Tier                 RiskTier        `json:"tier"`
	FetchedAt            time.Time       `json:"fetched_at"`
}

func NewAccountSnapshot(account TrackedAccount, metrics AccountMetrics, tier RiskTier, at time.Time) AccountSnapshot {
	return AccountSnapshot{
		Network:              account.Network,
		Address:              account.Address,
		Label:                account.Label,
		TotalCollateralUSD:   metrics.TotalCollateralUSD,
		TotalDebtUSD:         metrics.TotalDebtUSD,
		AvailableBorrowsUSD:  metrics.AvailableBorrowsUSD,
		LiquidationThreshold: metrics.LiquidationThreshold,
		LoanToValue:          metrics.LoanToValue,
		HealthFactor:         metrics.HealthFactor.String(),
		Tier:                 tier,
		FetchedAt:            at,
	}
}
