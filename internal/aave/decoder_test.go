package aave

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"

	"healthScope/internal/model"
)

func TestPackAccountDataCallSelector(t *testing.T) {
	user := common.HexToAddress("0x2222222222222222222222222222222222222222")
	data, err := PackAccountDataCall(user)
	if err != nil {
		t.Fatalf("pack call: %v", err)
	}
	if len(data) != 4+32 {
		t.Fatalf("unexpected call length: %d", len(data))
	}
	if got := hex.EncodeToString(data[:4]); got != "bf92857c" {
		t.Fatalf("selector mismatch: %s", got)
	}
	if common.BytesToAddress(data[4:]) != user {
		t.Fatalf("argument mismatch")
	}
}

func TestDecodeAccountDataScaling(t *testing.T) {
	hf, _ := new(big.Int).SetString("1500000000000000000", 10)
	data, err := EncodeAccountData(RawAccountData{
		TotalCollateralBase:         big.NewInt(10_000_000_000),
		TotalDebtBase:               big.NewInt(5_000_000_000),
		AvailableBorrowsBase:        big.NewInt(2_512_345_678),
		CurrentLiquidationThreshold: big.NewInt(8250),
		LTV:                         big.NewInt(8000),
		HealthFactor:                hf,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) != 192 {
		t.Fatalf("encoded length mismatch: %d", len(data))
	}

	metrics, err := DecodeAccountData(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !metrics.TotalCollateralUSD.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("collateral mismatch: %s", metrics.TotalCollateralUSD)
	}
	if !metrics.TotalDebtUSD.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("debt mismatch: %s", metrics.TotalDebtUSD)
	}
	if !metrics.AvailableBorrowsUSD.Equal(decimal.RequireFromString("25.12345678")) {
		t.Fatalf("available borrows mismatch: %s", metrics.AvailableBorrowsUSD)
	}
	if !metrics.LiquidationThreshold.Equal(decimal.RequireFromString("0.825")) {
		t.Fatalf("liquidation threshold mismatch: %s", metrics.LiquidationThreshold)
	}
	if !metrics.LoanToValue.Equal(decimal.RequireFromString("0.8")) {
		t.Fatalf("ltv mismatch: %s", metrics.LoanToValue)
	}
	if metrics.HealthFactor.Infinite || metrics.HealthFactor.String() != "1.50" {
		t.Fatalf("health factor mismatch: %s", metrics.HealthFactor)
	}
}

func TestDecodeAccountDataHexCollateralWord(t *testing.T) {
	words := []string{
		word("2540be400"),
		word("0"),
		word("0"),
		word("0"),
		word("0"),
		strings.Repeat("f", 64),
	}
	metrics, err := DecodeAccountDataHex("0x" + strings.Join(words, ""))
	if err != nil {
		t.Fatalf("decode hex: %v", err)
	}
	if metrics.TotalCollateralUSD.StringFixed(2) != "100.00" {
		t.Fatalf("collateral mismatch: %s", metrics.TotalCollateralUSD)
	}
	if !metrics.HealthFactor.Infinite {
		t.Fatalf("max uint256 health factor must be infinite")
	}

	noPrefix, err := DecodeAccountDataHex(strings.Join(words, ""))
	if err != nil {
		t.Fatalf("decode hex without prefix: %v", err)
	}
	if !noPrefix.TotalCollateralUSD.Equal(metrics.TotalCollateralUSD) {
		t.Fatalf("prefix handling mismatch")
	}
}

func TestScaleHealthFactor(t *testing.T) {
	cases := []struct {
		raw      string
		want     string
		infinite bool
	}{
		{raw: "1004999999999999999", want: "1.00"},
		{raw: "1005000000000000000", want: "1.01"},
		{raw: "0", want: "0.00"},
		{raw: "100000000000000000000", want: "100.00"},
		{raw: "100000000000000000001", infinite: true},
		{raw: math.MaxBig256.String(), infinite: true},
	}
	for _, tc := range cases {
		raw, ok := new(big.Int).SetString(tc.raw, 10)
		if !ok {
			t.Fatalf("bad raw value %s", tc.raw)
		}
		hf := ScaleHealthFactor(raw)
		if hf.Infinite != tc.infinite {
			t.Fatalf("raw %s: infinite mismatch: %v", tc.raw, hf.Infinite)
		}
		if !tc.infinite && hf.String() != tc.want {
			t.Fatalf("raw %s: got %s want %s", tc.raw, hf, tc.want)
		}
	}
}

func TestDecodeAccountDataErrors(t *testing.T) {
	inputs := []string{
		"",
		"0x",
		"0x1234",
		"0xzz" + strings.Repeat("00", 191),
		"0x" + strings.Repeat("0", 383),
		"0x" + strings.Repeat("00", 191),
	}
	for _, input := range inputs {
		_, err := DecodeAccountDataHex(input)
		if err == nil {
			t.Fatalf("expected error for %q", input)
		}
		if !errors.Is(err, model.ErrDecode) {
			t.Fatalf("expected decode error for %q, got %v", input, err)
		}
	}
}

func TestDecodeAccountDataIgnoresTrailingBytes(t *testing.T) {
	data, err := EncodeAccountData(RawAccountData{TotalCollateralBase: big.NewInt(100_000_000)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data = append(data, make([]byte, 32)...)
	metrics, err := DecodeAccountData(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !metrics.TotalCollateralUSD.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("collateral mismatch: %s", metrics.TotalCollateralUSD)
	}
	if metrics.HealthFactor.Infinite {
		t.Fatalf("decoder must not apply the no-debt override")
	}
}

func word(hexValue string) string {
	return strings.Repeat("0", 64-len(hexValue)) + hexValue
}
