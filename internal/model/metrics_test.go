package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestHealthFactorJSON(t *testing.T) {
	cases := []HealthFactor{
		InfiniteHealthFactor(),
		FiniteHealthFactor(decimal.RequireFromString("1.5")),
	}
	for _, hf := range cases {
		b, err := json.Marshal(hf)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded HealthFactor
		if err := json.Unmarshal(b, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !decoded.Equal(hf) {
			t.Fatalf("health factor mismatch: %s != %s", decoded, hf)
		}
	}
	if got := FiniteHealthFactor(decimal.RequireFromString("1.5")).String(); got != "1.50" {
		t.Fatalf("string mismatch: %s", got)
	}
}

func TestApplyNoDebtOverride(t *testing.T) {
	m := AccountMetrics{
		TotalCollateralUSD: decimal.NewFromInt(100),
		HealthFactor:       FiniteHealthFactor(decimal.RequireFromString("0.5")),
	}
	if got := m.ApplyNoDebtOverride(); !got.HealthFactor.Infinite {
		t.Fatalf("expected infinite health factor for debt-free account")
	}

	m.TotalDebtUSD = decimal.NewFromInt(10)
	if got := m.ApplyNoDebtOverride(); got.HealthFactor.Infinite {
		t.Fatalf("override must not apply to indebted account")
	}
	if got := m.NetWorthUSD(); !got.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("net worth mismatch: %s", got)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds: %v", err)
	}
	bad := []Thresholds{
		{Warning: decimal.NewFromInt(1), Danger: decimal.NewFromInt(1)},
		{Warning: decimal.NewFromInt(1), Danger: decimal.NewFromInt(2)},
		{Warning: decimal.NewFromInt(2), Danger: decimal.Zero},
	}
	for _, th := range bad {
		if err := th.Validate(); err == nil {
			t.Fatalf("expected error for %+v", th)
		}
	}
}

func TestRefreshPolicyValidate(t *testing.T) {
	policy := DefaultRefreshPolicy()
	if err := policy.Validate(); err != nil {
		t.Fatalf("default policy: %v", err)
	}
	if got := policy.Multiplier("Polygon"); got != 0.8 {
		t.Fatalf("multiplier mismatch: %v", got)
	}
	if got := policy.Multiplier("unknown"); got != 1.0 {
		t.Fatalf("default multiplier mismatch: %v", got)
	}

	clone := policy.Clone()
	clone.NetworkMultipliers["ethereum"] = 0
	if policy.NetworkMultipliers["ethereum"] != 1.0 {
		t.Fatalf("clone shares multiplier map")
	}
	if err := clone.Validate(); err == nil {
		t.Fatalf("expected error for zero multiplier")
	}

	policy.DangerIntervalMinutes = 0
	if err := policy.Validate(); err == nil {
		t.Fatalf("expected error for zero interval")
	}

	long := DefaultRefreshPolicy()
	long.HealthyIntervalMinutes = 200_000_000
	if err := long.Validate(); err == nil {
		t.Fatalf("expected error for interval beyond one year")
	}
	long.HealthyIntervalMinutes = MaxIntervalMinutes
	if err := long.Validate(); err != nil {
		t.Fatalf("one year interval: %v", err)
	}

	for _, m := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		bad := DefaultRefreshPolicy()
		bad.NetworkMultipliers["base"] = m
		if err := bad.Validate(); err == nil {
			t.Fatalf("expected error for multiplier %v", m)
		}
	}
}

func TestFetchErrorKinds(t *testing.T) {
	account, err := NewTrackedAccount("0x1111111111111111111111111111111111111111", "Ethereum", "")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	cause := errors.New("boom")
	fetchErr := NewFetchError(ErrTimeout, account, cause)

	if !errors.Is(fetchErr, ErrTimeout) || !errors.Is(fetchErr, cause) {
		t.Fatalf("fetch error does not unwrap to kind and cause")
	}
	if errors.Is(fetchErr, ErrRPC) {
		t.Fatalf("fetch error matched wrong kind")
	}
	if !fetchErr.Retryable() {
		t.Fatalf("timeout should be retryable")
	}
	if NewFetchError(ErrUnknownNetwork, account, nil).Retryable() {
		t.Fatalf("unknown network should not be retryable")
	}
	if got := ErrorKind(fetchErr); got != "timeout" {
		t.Fatalf("kind mismatch: %s", got)
	}
}

func TestAccountKeyRoundTrip(t *testing.T) {
	account, err := NewTrackedAccount("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", " BASE ", " main ")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Network != "base" || account.Label != "main" {
		t.Fatalf("normalization mismatch: %+v", account)
	}
	key := account.Key()
	if key.String() != "base:0xabcdefabcdefabcdefabcdefabcdefabcdefabcd" {
		t.Fatalf("key mismatch: %s", key)
	}
	parsed, err := ParseAccountKey(key.String())
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	if parsed != key {
		t.Fatalf("parsed key mismatch: %v != %v", parsed, key)
	}
	if _, err := NewTrackedAccount("0x123", "base", ""); err == nil {
		t.Fatalf("expected invalid address error")
	}
}
