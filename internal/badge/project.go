package badge

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"healthScope/internal/model"
)

// MaxTextLen is the number of runes the indicator surface can show.
const MaxTextLen = 5

const (
	ColorSafe    = "#4CAF50"
	ColorWarning = "#FFA726"
	ColorDanger  = "#F44336"
)

const (
	textNoDebt   = "ND"
	textInfinite = "∞"
	textError    = "ERR"
)

type State string

const (
	StateOK    State = "ok"
	StateError State = "error"
	StateEmpty State = "empty"
)

// Badge is the compact indicator state for the pinned account.
type Badge struct {
	Text      string             `json:"text"`
	Color     string             `json:"color"`
	State     State              `json:"state"`
	Tier      model.RiskTier     `json:"tier"`
	Field     model.DisplayField `json:"field,omitempty"`
	Account   string             `json:"account,omitempty"`
	Error     string             `json:"error,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
	hundred  = decimal.NewFromInt(100)
)

// Project renders metrics for display. No-debt accounts show "ND" in the safe
// colour unless a non health factor field is selected.
func Project(metrics model.AccountMetrics, tier model.RiskTier, field model.DisplayField) Badge {
	if field == "" {
		field = model.FieldHealthFactor
	}
	b := Badge{
		Color: TierColor(tier),
		State: StateOK,
		Tier:  tier,
		Field: field,
	}

	switch field {
	case model.FieldTotalCollateral:
		b.Text = formatUSD(metrics.TotalCollateralUSD)
	case model.FieldTotalDebt:
		b.Text = formatUSD(metrics.TotalDebtUSD)
	case model.FieldAvailableBorrows:
		b.Text = formatUSD(metrics.AvailableBorrowsUSD)
	case model.FieldNetWorth:
		b.Text = formatUSD(metrics.NetWorthUSD())
	case model.FieldLiquidationThreshold:
		b.Text = formatPercent(metrics.LiquidationThreshold)
	case model.FieldLTV:
		b.Text = formatPercent(metrics.LoanToValue)
	default:
		b.Field = model.FieldHealthFactor
		switch {
		case metrics.NoDebt():
			b.Text = textNoDebt
			b.Color = ColorSafe
			b.Tier = model.TierSafe
		case metrics.HealthFactor.Infinite:
			b.Text = textInfinite
		default:
			b.Text = Fit(metrics.HealthFactor.Value.StringFixed(2))
		}
	}
	return b
}

// ErrorBadge marks a failed refresh; it never shows a stale value.
func ErrorBadge(err error) Badge {
	b := Badge{
		Text:  textError,
		Color: ColorDanger,
		State: StateError,
		Tier:  model.TierDanger,
	}
	if err != nil {
		b.Error = err.Error()
	}
	return b
}

// Empty is shown when no account is pinned.
func Empty() Badge {
	return Badge{State: StateEmpty}
}

func TierColor(tier model.RiskTier) string {
	switch tier {
	case model.TierDanger:
		return ColorDanger
	case model.TierWarning:
		return ColorWarning
	default:
		return ColorSafe
	}
}

var usdUnits = []struct {
	scale  decimal.Decimal
	suffix string
}{
	{decimal.NewFromInt(1), ""},
	{thousand, "K"},
	{million, "M"},
	{billion, "B"},
}

func formatUSD(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Abs()
	}
	i := 0
	for i+1 < len(usdUnits) && v.GreaterThanOrEqual(usdUnits[i+1].scale) {
		i++
	}
	mantissa := v.Div(usdUnits[i].scale).Round(1)
	// 999.96 rounds to 1000.0, which reads as 1.0 of the next unit.
	if i+1 < len(usdUnits) && mantissa.GreaterThanOrEqual(thousand) {
		i++
		mantissa = v.Div(usdUnits[i].scale).Round(1)
	}
	return Fit(sign + mantissa.StringFixed(1) + usdUnits[i].suffix)
}

func formatPercent(ratio decimal.Decimal) string {
	return Fit(ratio.Mul(hundred).Round(0).StringFixed(0) + "%")
}

// Fit truncates text to MaxTextLen runes. A trailing unit suffix is kept and
// digits are dropped from the number instead, along with a dangling decimal point.
func Fit(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxTextLen {
		return text
	}

	suffix := ""
	if last := runes[len(runes)-1]; strings.ContainsRune("KMB%", last) {
		suffix = string(last)
		runes = runes[:len(runes)-1]
	}

	keep := MaxTextLen - len([]rune(suffix))
	if keep > len(runes) {
		keep = len(runes)
	}
	number := strings.TrimSuffix(string(runes[:keep]), ".")
	return number + suffix
}
