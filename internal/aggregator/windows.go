package aggregator

import (
	"time"

	"github.com/amzops/sellerpulse/internal/persistence"
)

// turnoverSentinel marks "no resolvable velocity" and is also the hard cap on
// turnover days so the column never carries NaN or Inf.
const turnoverSentinel = 999

// buildWindowSnapshot computes one trailing-window snapshot for a group of
// analytics records. The window covers [targetDate-(days-1), targetDate]
// inclusive. Pure: no I/O, no clock reads.
func buildWindowSnapshot(records []persistence.AnalyticsRecord, asin, warehouse string, targetDate time.Time, window persistence.TimeWindow) persistence.InventorySnapshot {
	days := window.Days()
	start := targetDate.AddDate(0, 0, -(days - 1))

	snap := persistence.InventorySnapshot{
		ASIN:              asin,
		WarehouseLocation: warehouse,
		SnapshotDate:      targetDate,
		TimeWindow:        window,
		WindowDays:        days,
		WindowStart:       start,
		WindowEnd:         targetDate,
	}

	var latest *persistence.AnalyticsRecord
	for i := range records {
		r := &records[i]
		if r.Date.Before(start) || r.Date.After(targetDate) {
			continue
		}
		snap.SourceRecordsCount++
		snap.TotalSalesAmount += r.SalesAmount
		snap.TotalSalesQuantity += r.SalesQuantity
		snap.TotalImpressions += r.AdImpressions
		snap.TotalClicks += r.AdClicks
		snap.TotalAdSpend += r.AdSpend
		snap.TotalAdOrders += r.AdOrders
		if latest == nil || r.Date.After(latest.Date) {
			latest = r
		}
	}

	// Point-in-time gauges and identity fallbacks come from the most recent
	// record inside the window; an empty window leaves them zero-valued.
	if latest != nil {
		snap.FBAAvailable = latest.FBAAvailable
		snap.TotalInventory = latest.TotalInventory
		snap.SKU = latest.SKU
		snap.ProductName = latest.ProductName
	}

	snap.AvgDailySales = snap.TotalSalesQuantity / float64(days)
	snap.AvgDailyRevenue = snap.TotalSalesAmount / float64(days)
	snap.AdCTR = safeRatio(snap.TotalClicks, snap.TotalImpressions)
	snap.AdConversionRate = safeRatio(snap.TotalAdOrders, snap.TotalClicks)
	snap.ACOS = safeRatio(snap.TotalAdSpend, snap.TotalSalesAmount)
	snap.InventoryTurnoverDays = turnoverDays(snap.TotalInventory, snap.AvgDailySales)
	snap.InventoryStatus = statusFor(snap.TotalInventory, snap.InventoryTurnoverDays)

	snap.DataCompletenessScore = float64(snap.SourceRecordsCount) / float64(days)
	if snap.DataCompletenessScore > 1 {
		snap.DataCompletenessScore = 1
	}

	return snap
}

// safeRatio returns num/den, or 0 when den is zero.
func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// turnoverDays converts inventory level and sales velocity into days of cover.
// Zero inventory with live velocity is 0 days; no velocity resolves to the 999
// sentinel. The result is always clamped to the sentinel.
func turnoverDays(totalInventory, avgDailySales float64) float64 {
	switch {
	case avgDailySales > 0 && totalInventory > 0:
		d := totalInventory / avgDailySales
		if d > turnoverSentinel {
			return turnoverSentinel
		}
		return d
	case totalInventory == 0 && avgDailySales > 0:
		return 0
	default:
		return turnoverSentinel
	}
}

// statusFor buckets turnover days into the operational inventory status.
// Zero on-hand inventory is always a stockout regardless of turnover.
func statusFor(totalInventory, turnover float64) persistence.InventoryStatus {
	if totalInventory == 0 {
		return persistence.StatusStockout
	}
	switch {
	case turnover <= 7:
		return persistence.StatusShortage
	case turnover <= 30:
		return persistence.StatusNormal
	case turnover <= 60:
		return persistence.StatusSufficient
	default:
		return persistence.StatusExcess
	}
}
