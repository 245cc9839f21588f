package main

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"

	"healthScope/internal/aave"
	"healthScope/internal/model"
)

type collectSink struct {
	values []interface{}
}

func (s *collectSink) Write(value interface{}) error {
	s.values = append(s.values, value)
	return nil
}

func resultHex(t *testing.T, debt int64, hf *big.Int) string {
	t.Helper()
	data, err := aave.EncodeAccountData(aave.RawAccountData{
		TotalCollateralBase:         big.NewInt(250_000_000_000),
		TotalDebtBase:               big.NewInt(debt),
		AvailableBorrowsBase:        big.NewInt(0),
		CurrentLiquidationThreshold: big.NewInt(8000),
		LTV:                         big.NewInt(7500),
		HealthFactor:                hf,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return "0x" + hex.EncodeToString(data)
}

func TestDecodeCalls(t *testing.T) {
	hf, _ := new(big.Int).SetString("950000000000000000", 10)
	lines := []string{
		fmt.Sprintf(`{"network":"Polygon","address":"0x1111111111111111111111111111111111111111","block_number":7,"result":%q}`,
			resultHex(t, 100_000_000_000, hf)),
		"",
		fmt.Sprintf(`{"network":"base","address":"0x2222222222222222222222222222222222222222","result":%q}`,
			resultHex(t, 0, math.MaxBig256)),
		`{"network":"base","address":"0x2222222222222222222222222222222222222222","result":"0x1234"}`,
		`{"network":"base","address":"nope","result":"0x"}`,
		`not json`,
	}

	out, errs := &collectSink{}, &collectSink{}
	stats, err := decodeCalls(strings.NewReader(strings.Join(lines, "\n")), model.DefaultThresholds(), out, errs)
	if err != nil {
		t.Fatalf("decode calls: %v", err)
	}
	if stats.total != 5 || stats.decoded != 2 || stats.failed != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	first := out.values[0].(model.DecodedCall)
	if first.Network != "polygon" || first.BlockNumber != 7 {
		t.Fatalf("unexpected record: %+v", first)
	}
	if first.Tier != model.TierDanger || first.Metrics.HealthFactor.String() != "0.95" {
		t.Fatalf("unexpected classification: %s %s", first.Tier, first.Metrics.HealthFactor)
	}
	if first.NetWorthUSD != "1500.00" {
		t.Fatalf("net worth: %s", first.NetWorthUSD)
	}

	second := out.values[1].(model.DecodedCall)
	if !second.Metrics.HealthFactor.Infinite || second.Tier != model.TierSafe {
		t.Fatalf("debt-free account should be safe with infinite health factor: %+v", second)
	}

	shortErr := errs.values[0].(model.DecodeError)
	if shortErr.Line != 4 || shortErr.Network != "base" {
		t.Fatalf("unexpected decode error: %+v", shortErr)
	}
	if last := errs.values[2].(model.DecodeError); last.Line != 6 {
		t.Fatalf("unexpected line for invalid json: %+v", last)
	}
}
