package diagnosis

// Thresholds are the deterministic decision constants of the pipeline. Rates
// are ratios, not percentages.
type Thresholds struct {
	ShortageTurnoverDays  float64 // isShortage below this
	ExcessTurnoverDays    float64 // isExcess above this
	AcoasHigh             float64 // overspending flag
	AcoasLow              float64 // underspending flag
	CtrLow                float64 // click-through floor
	ConversionLowFactor   float64 // fraction of the price-tier standard CVR
	EffectiveDailyRevenue float64 // effective inventory point floor
	OutOfStockHighDays    float64 // FBA cover below this is high risk
	OutOfStockMediumDays  float64 // FBA cover below this is medium risk
	MinCompleteness       float64 // multi-day inputs below this are rejected
	MaxMissingDays        int     // multi-day inputs above this are rejected
	MaxRegenerations      int     // draft/validate loop cap
}

// DefaultThresholds returns the fixed business constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShortageTurnoverDays:  40,
		ExcessTurnoverDays:    90,
		AcoasHigh:             0.15,
		AcoasLow:              0.07,
		CtrLow:                0.005,
		ConversionLowFactor:   0.9,
		EffectiveDailyRevenue: 16.7,
		OutOfStockHighDays:    7,
		OutOfStockMediumDays:  14,
		MinCompleteness:       0.5,
		MaxMissingDays:        3,
		MaxRegenerations:      2,
	}
}

// standardCVR returns the price-tier benchmark conversion rate. Higher-priced
// products are held to lower benchmarks.
func standardCVR(price float64) float64 {
	switch {
	case price <= 10:
		return 0.18
	case price <= 15:
		return 0.15
	case price <= 20:
		return 0.13
	case price <= 25:
		return 0.10
	case price <= 30:
		return 0.08
	case price <= 35:
		return 0.06
	default:
		return 0.05
	}
}
