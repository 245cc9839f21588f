package aave

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"

	"healthScope/internal/model"
)

const (
	wordSize       = 32
	accountDataLen = 6 * wordSize

	baseCurrencyExp = -8
	ratioExp        = -4
	healthFactorExp = -18
)

// InfiniteCutoff is the scaled health factor above which a position is shown as unbounded.
var InfiniteCutoff = decimal.NewFromInt(100)

// RawAccountData holds the six words returned by getUserAccountData.
type RawAccountData struct {
	TotalCollateralBase         *big.Int
	TotalDebtBase               *big.Int
	AvailableBorrowsBase        *big.Int
	CurrentLiquidationThreshold *big.Int
	LTV                         *big.Int
	HealthFactor                *big.Int
}

// PackAccountDataCall builds the eth_call input for getUserAccountData(user).
func PackAccountDataCall(user common.Address) ([]byte, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return nil, err
	}
	return poolABI.Pack(methodGetUserAccountData, user)
}

// UnpackAccountData splits a call result into its six unsigned words.
func UnpackAccountData(data []byte) (RawAccountData, error) {
	if len(data) < accountDataLen {
		return RawAccountData{}, fmt.Errorf("%w: expected at least %d bytes, got %d", model.ErrDecode, accountDataLen, len(data))
	}

	poolABI, err := PoolABI()
	if err != nil {
		return RawAccountData{}, err
	}
	values, err := poolABI.Unpack(methodGetUserAccountData, data[:accountDataLen])
	if err != nil {
		return RawAccountData{}, fmt.Errorf("%w: unpack %s: %v", model.ErrDecode, methodGetUserAccountData, err)
	}
	if len(values) != 6 {
		return RawAccountData{}, fmt.Errorf("%w: unexpected account data values: %d", model.ErrDecode, len(values))
	}

	words := make([]*big.Int, len(values))
	for i, value := range values {
		words[i], err = asBigInt(value)
		if err != nil {
			return RawAccountData{}, fmt.Errorf("%w: word %d: %v", model.ErrDecode, i, err)
		}
	}

	return RawAccountData{
		TotalCollateralBase:         words[0],
		TotalDebtBase:               words[1],
		AvailableBorrowsBase:        words[2],
		CurrentLiquidationThreshold: words[3],
		LTV:                         words[4],
		HealthFactor:                words[5],
	}, nil
}

// DecodeAccountData converts a raw call result into scaled metrics.
// The no-debt override is left to the caller.
func DecodeAccountData(data []byte) (model.AccountMetrics, error) {
	raw, err := UnpackAccountData(data)
	if err != nil {
		return model.AccountMetrics{}, err
	}
	return raw.Metrics(), nil
}

// DecodeAccountDataHex decodes a hex string with or without the 0x prefix.
func DecodeAccountDataHex(input string) (model.AccountMetrics, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "0x") && !strings.HasPrefix(input, "0X") {
		input = "0x" + input
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return model.AccountMetrics{}, fmt.Errorf("%w: invalid hex: %v", model.ErrDecode, err)
	}
	return DecodeAccountData(data)
}

// Metrics scales the raw words.
func (r RawAccountData) Metrics() model.AccountMetrics {
	return model.AccountMetrics{
		TotalCollateralUSD:   decimal.NewFromBigInt(r.TotalCollateralBase, baseCurrencyExp),
		TotalDebtUSD:         decimal.NewFromBigInt(r.TotalDebtBase, baseCurrencyExp),
		AvailableBorrowsUSD:  decimal.NewFromBigInt(r.AvailableBorrowsBase, baseCurrencyExp),
		LiquidationThreshold: decimal.NewFromBigInt(r.CurrentLiquidationThreshold, ratioExp),
		LoanToValue:          decimal.NewFromBigInt(r.LTV, ratioExp),
		HealthFactor:         ScaleHealthFactor(r.HealthFactor),
	}
}

// ScaleHealthFactor applies the 1e-18 scale, the max-uint256 sentinel and the cutoff.
func ScaleHealthFactor(raw *big.Int) model.HealthFactor {
	if raw == nil || raw.Cmp(math.MaxBig256) == 0 {
		return model.InfiniteHealthFactor()
	}
	scaled := decimal.NewFromBigInt(raw, healthFactorExp)
	if scaled.GreaterThan(InfiniteCutoff) {
		return model.InfiniteHealthFactor()
	}
	return model.FiniteHealthFactor(scaled.Round(2))
}

// EncodeAccountData produces the 192-byte return layout for raw.
func EncodeAccountData(raw RawAccountData) ([]byte, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return nil, err
	}
	return poolABI.Methods[methodGetUserAccountData].Outputs.Pack(
		orZero(raw.TotalCollateralBase),
		orZero(raw.TotalDebtBase),
		orZero(raw.AvailableBorrowsBase),
		orZero(raw.CurrentLiquidationThreshold),
		orZero(raw.LTV),
		orZero(raw.HealthFactor),
	)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
