package badge

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthScope/internal/model"
)

func metricsWithHF(hf string) model.AccountMetrics {
	return model.AccountMetrics{
		TotalCollateralUSD:   decimal.RequireFromString("123456.78"),
		TotalDebtUSD:         decimal.RequireFromString("1500000"),
		AvailableBorrowsUSD:  decimal.RequireFromString("999.94"),
		LiquidationThreshold: decimal.RequireFromString("0.825"),
		LoanToValue:          decimal.RequireFromString("0.8"),
		HealthFactor:         model.FiniteHealthFactor(decimal.RequireFromString(hf)),
	}
}

func TestProjectHealthFactor(t *testing.T) {
	b := Project(metricsWithHF("1.5"), model.TierWarning, model.FieldHealthFactor)
	assert.Equal(t, "1.50", b.Text)
	assert.Equal(t, ColorWarning, b.Color)
	assert.Equal(t, StateOK, b.State)

	b = Project(metricsWithHF("0.87"), model.TierDanger, "")
	assert.Equal(t, "0.87", b.Text)
	assert.Equal(t, ColorDanger, b.Color)
	assert.Equal(t, model.FieldHealthFactor, b.Field)

	b = Project(metricsWithHF("100"), model.TierSafe, model.FieldHealthFactor)
	assert.Equal(t, "100.0", b.Text)
}

func TestProjectInfiniteWithDebt(t *testing.T) {
	m := metricsWithHF("0")
	m.HealthFactor = model.InfiniteHealthFactor()
	b := Project(m, model.TierSafe, model.FieldHealthFactor)
	assert.Equal(t, "∞", b.Text)
	assert.Equal(t, ColorSafe, b.Color)
}

func TestProjectNoDebt(t *testing.T) {
	m := metricsWithHF("0.5")
	m.TotalDebtUSD = decimal.Zero

	b := Project(m, model.TierDanger, model.FieldHealthFactor)
	assert.Equal(t, "ND", b.Text)
	assert.Equal(t, ColorSafe, b.Color)
	assert.Equal(t, model.TierSafe, b.Tier)

	b = Project(m, model.TierSafe, model.FieldTotalCollateral)
	assert.Equal(t, "123K", b.Text, "explicit non health factor field shows the metric")
}

func TestProjectFields(t *testing.T) {
	m := metricsWithHF("1.2")
	cases := map[model.DisplayField]string{
		model.FieldTotalCollateral:      "123K",
		model.FieldTotalDebt:            "1.5M",
		model.FieldAvailableBorrows:     "999.9",
		model.FieldNetWorth:             "-1.4M",
		model.FieldLiquidationThreshold: "83%",
		model.FieldLTV:                  "80%",
	}
	for field, want := range cases {
		b := Project(m, model.TierWarning, field)
		assert.Equal(t, want, b.Text, "field %s", field)
		assert.Equal(t, ColorWarning, b.Color, "field %s", field)
	}
}

func TestFormatUSD(t *testing.T) {
	cases := map[string]string{
		"0":          "0.0",
		"12.34":      "12.3",
		"1234.56":    "1.2K",
		"2500000000": "2.5B",
		"-5000":      "-5.0K",
		"-123456":    "-123K",
		"987654321":  "987M",
		"999.96":     "1.0K",
		"999999":     "1.0M",
		"999999999":  "1.0B",
		"-999999":    "-1.0M",
		"999.94":     "999.9",
	}
	for input, want := range cases {
		assert.Equal(t, want, formatUSD(decimal.RequireFromString(input)), "input %s", input)
	}
}

func TestFit(t *testing.T) {
	assert.Equal(t, "1.50", Fit("1.50"))
	assert.Equal(t, "12345", Fit("12345678"))
	assert.Equal(t, "100%", Fit("100%"))
	assert.Equal(t, "1234K", Fit("1234.5K"))
	for _, text := range []string{"123.45M", "99999.9B", "-0.123"} {
		assert.LessOrEqual(t, len([]rune(Fit(text))), MaxTextLen, text)
	}
}

func TestErrorAndEmptyBadges(t *testing.T) {
	b := ErrorBadge(errors.New("rpc timeout"))
	assert.Equal(t, "ERR", b.Text)
	assert.Equal(t, ColorDanger, b.Color)
	assert.Equal(t, StateError, b.State)
	assert.Equal(t, "rpc timeout", b.Error)

	assert.Equal(t, StateEmpty, Empty().State)
	assert.Empty(t, Empty().Text)
}

type failingSink struct{ err error }

func (s failingSink) Publish(context.Context, Badge) error { return s.err }

func TestSinks(t *testing.T) {
	latest := NewLatest()
	_, ok := latest.Get()
	assert.False(t, ok)

	var out bytes.Buffer
	sinkErr := errors.New("sink down")
	multi := MultiSink{latest, NewLogSink(nil), NewTerminalSink(&out), failingSink{err: sinkErr}}

	b := Project(metricsWithHF("1.5"), model.TierWarning, model.FieldHealthFactor)
	b.Account = "ethereum:0x1111111111111111111111111111111111111111"
	err := multi.Publish(context.Background(), b)
	require.ErrorIs(t, err, sinkErr)

	got, ok := latest.Get()
	require.True(t, ok)
	assert.Equal(t, "1.50", got.Text)
	assert.True(t, strings.Contains(out.String(), "1.50"))
	assert.True(t, strings.Contains(out.String(), "ethereum:0x1111"))
}
