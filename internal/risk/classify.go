package risk

import "healthScope/internal/model"

// Classify maps a health factor to a tier. Thresholds are assumed valid;
// they are checked by Thresholds.Validate where settings enter the system.
func Classify(hf model.HealthFactor, thresholds model.Thresholds) model.RiskTier {
	if hf.Infinite {
		return model.TierSafe
	}
	switch {
	case hf.Value.GreaterThanOrEqual(thresholds.Warning):
		return model.TierSafe
	case hf.Value.GreaterThanOrEqual(thresholds.Danger):
		return model.TierWarning
	default:
		return model.TierDanger
	}
}

// ClassifyMetrics classifies after applying the no-debt override.
func ClassifyMetrics(metrics model.AccountMetrics, thresholds model.Thresholds) model.RiskTier {
	return Classify(metrics.ApplyNoDebtOverride().HealthFactor, thresholds)
}
