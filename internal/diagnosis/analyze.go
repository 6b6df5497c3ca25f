package diagnosis

import (
	"fmt"
)

// validate rejects inputs the pipeline cannot diagnose safely. A failure here
// is terminal for the invocation and is never retried automatically.
func (e *Engine) validate(p ProductAnalysisData) error {
	if p.ASIN == "" {
		return fmt.Errorf("%w: missing asin", ErrValidation)
	}
	if p.WarehouseLocation == "" {
		return fmt.Errorf("%w: missing warehouse location", ErrValidation)
	}

	numeric := map[string]float64{
		"fba_available":   p.FBAAvailable,
		"total_inventory": p.TotalInventory,
		"avg_daily_sales": p.AvgDailySales,
		"daily_revenue":   p.DailyRevenue,
		"turnover_days":   p.TurnoverDays,
		"sales_amount":    p.SalesAmount,
		"sales_quantity":  p.SalesQuantity,
		"impressions":     p.Impressions,
		"clicks":          p.Clicks,
		"ad_spend":        p.AdSpend,
		"ad_orders":       p.AdOrders,
	}
	for field, v := range numeric {
		if v < 0 {
			return fmt.Errorf("%w: negative %s (%.2f)", ErrValidation, field, v)
		}
	}

	// A small overshoot is tolerated for attribution lag between the ad and
	// sales feeds; more than 10% means corrupt data.
	if p.Clicks > p.Impressions*1.1 {
		return fmt.Errorf("%w: clicks (%.0f) exceed impressions (%.0f) by more than 10%%",
			ErrValidation, p.Clicks, p.Impressions)
	}
	if p.AdOrders > p.Clicks*1.1 {
		return fmt.Errorf("%w: ad orders (%.0f) exceed clicks (%.0f) by more than 10%%",
			ErrValidation, p.AdOrders, p.Clicks)
	}

	if agg := p.Aggregation; agg != nil {
		if agg.Completeness < e.thresholds.MinCompleteness {
			return fmt.Errorf("%w: data completeness %.2f below %.2f",
				ErrValidation, agg.Completeness, e.thresholds.MinCompleteness)
		}
		if agg.MissingDays > e.thresholds.MaxMissingDays {
			return fmt.Errorf("%w: %d missing days exceed limit %d",
				ErrValidation, agg.MissingDays, e.thresholds.MaxMissingDays)
		}
	}

	return nil
}

// analyzeInventory computes turnover flags and the out-of-stock risk tier
// from FBA cover at current velocity.
func (e *Engine) analyzeInventory(p ProductAnalysisData) *InventoryAnalysis {
	a := &InventoryAnalysis{
		IsShortage:     p.TurnoverDays < e.thresholds.ShortageTurnoverDays,
		IsExcess:       p.TurnoverDays > e.thresholds.ExcessTurnoverDays,
		OutOfStockRisk: RiskLow,
	}

	if p.AvgDailySales > 0 {
		a.DaysOfCover = p.FBAAvailable / p.AvgDailySales
		switch {
		case a.DaysOfCover < e.thresholds.OutOfStockHighDays:
			a.OutOfStockRisk = RiskHigh
		case a.DaysOfCover < e.thresholds.OutOfStockMediumDays:
			a.OutOfStockRisk = RiskMedium
		}
	}

	return a
}

// analyzeAdvertising computes the ad efficiency ratios and flags them against
// the price-tier standard conversion rate.
func (e *Engine) analyzeAdvertising(p ProductAnalysisData) *AdvertisingAnalysis {
	a := &AdvertisingAnalysis{
		StandardCVR: standardCVR(p.Price()),
	}

	if p.Impressions > 0 {
		a.CTR = p.Clicks / p.Impressions
	}
	if p.Clicks > 0 {
		a.CVR = p.AdOrders / p.Clicks
	}
	if p.SalesAmount > 0 {
		a.Acoas = p.AdSpend / p.SalesAmount
	}

	a.IsConversionLow = a.CVR < a.StandardCVR*e.thresholds.ConversionLowFactor
	a.IsAcoasHigh = a.Acoas > e.thresholds.AcoasHigh
	a.IsAcoasLow = a.Acoas < e.thresholds.AcoasLow
	a.IsCtrLow = a.CTR < e.thresholds.CtrLow

	return a
}

// analyzeSales records trend deltas and the effective inventory point flag.
func (e *Engine) analyzeSales(p ProductAnalysisData) *SalesAnalysis {
	a := &SalesAnalysis{
		EffectiveInventoryPoint: p.DailyRevenue >= e.thresholds.EffectiveDailyRevenue,
	}
	if p.Trend != nil {
		a.RevenueDelta = p.Trend.RevenueDelta
		a.QuantityDelta = p.Trend.QuantityDelta
	}
	return a
}

// diagnose selects exactly one scenario by strict priority. The first match
// wins; the ordering is a deliberate tie-break.
func (e *Engine) diagnose(s *State) Scenario {
	inv, adv := s.Inventory, s.Advertising

	switch {
	case inv.IsShortage || inv.OutOfStockRisk == RiskHigh || s.Input.InventoryStatus == "stockout":
		return ScenarioInventoryShortage
	case adv.IsConversionLow:
		return ScenarioConversionInsufficient
	case adv.IsCtrLow || adv.IsAcoasLow:
		return ScenarioAdInsufficient
	case inv.IsExcess:
		return ScenarioInventoryExcess
	case adv.IsAcoasHigh:
		return ScenarioAdCostHigh
	default:
		return ScenarioHealthy
	}
}
