package schedule

import (
	"math"
	"time"

	"healthScope/internal/model"
)

// NextRefreshDelay returns whole minutes until the next refresh: the tier's
// base interval scaled by the network multiplier, within [1, model.MaxIntervalMinutes].
func NextRefreshDelay(tier model.RiskTier, network string, policy model.RefreshPolicy) int {
	base := float64(policy.BaseInterval(tier))
	minutes := math.Round(base * policy.Multiplier(network))
	if minutes < 1 || math.IsNaN(minutes) {
		return 1
	}
	if minutes > model.MaxIntervalMinutes {
		return model.MaxIntervalMinutes
	}
	return int(minutes)
}

// timerDuration converts a delay in minutes to a positive timer duration,
// saturating instead of overflowing.
func timerDuration(minutes int, unit time.Duration) time.Duration {
	if minutes < 1 {
		minutes = 1
	}
	if unit <= 0 {
		unit = time.Minute
	}
	if int64(minutes) > math.MaxInt64/int64(unit) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(minutes) * unit
}
