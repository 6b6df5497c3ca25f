package persistence

import (
	"context"
	"time"
)

// TimeWindow identifies one of the fixed trailing aggregation windows.
type TimeWindow string

const (
	WindowT1  TimeWindow = "T1"
	WindowT3  TimeWindow = "T3"
	WindowT7  TimeWindow = "T7"
	WindowT30 TimeWindow = "T30"
)

// Windows lists all trailing windows in ascending span order.
var Windows = []TimeWindow{WindowT1, WindowT3, WindowT7, WindowT30}

// Days returns the window span in calendar days.
func (w TimeWindow) Days() int {
	switch w {
	case WindowT1:
		return 1
	case WindowT3:
		return 3
	case WindowT7:
		return 7
	case WindowT30:
		return 30
	}
	return 0
}

// Valid reports whether w is one of the fixed windows.
func (w TimeWindow) Valid() bool {
	return w.Days() > 0
}

// InventoryStatus buckets inventory turnover into operational categories.
type InventoryStatus string

const (
	StatusStockout   InventoryStatus = "stockout"
	StatusShortage   InventoryStatus = "shortage"
	StatusNormal     InventoryStatus = "normal"
	StatusSufficient InventoryStatus = "sufficient"
	StatusExcess     InventoryStatus = "excess"
)

// AnalyticsRecord is one daily performance row per (asin, marketplace, date).
// The analytics table is append-only and read-only from this system.
type AnalyticsRecord struct {
	ID             int64     `json:"id" db:"id"`
	ASIN           string    `json:"asin" db:"asin"`
	MarketplaceID  *string   `json:"marketplace_id,omitempty" db:"marketplace_id"`
	SKU            *string   `json:"sku,omitempty" db:"sku"`
	ProductName    *string   `json:"product_name,omitempty" db:"product_name"`
	FBAAvailable   float64   `json:"fba_available" db:"fba_available"`
	TotalInventory float64   `json:"total_inventory" db:"total_inventory"`
	SalesAmount    float64   `json:"sales_amount" db:"sales_amount"`
	SalesQuantity  float64   `json:"sales_quantity" db:"sales_quantity"`
	AdImpressions  float64   `json:"ad_impressions" db:"ad_impressions"`
	AdClicks       float64   `json:"ad_clicks" db:"ad_clicks"`
	AdSpend        float64   `json:"ad_spend" db:"ad_spend"`
	AdOrders       float64   `json:"ad_orders" db:"ad_orders"`
	Date           time.Time `json:"date" db:"date"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Marketplace returns the marketplace identifier with the "default" fallback
// used for warehouse grouping.
func (r AnalyticsRecord) Marketplace() string {
	if r.MarketplaceID == nil || *r.MarketplaceID == "" {
		return "default"
	}
	return *r.MarketplaceID
}

// InventorySnapshot is one point-in-time trailing-window aggregate, keyed by
// (asin, warehouse_location, snapshot_date, time_window). Re-runs for the same
// snapshot_date overwrite derived fields in place.
type InventorySnapshot struct {
	ID                int64      `json:"id" db:"id"`
	ASIN              string     `json:"asin" db:"asin"`
	WarehouseLocation string     `json:"warehouse_location" db:"warehouse_location"`
	SnapshotDate      time.Time  `json:"snapshot_date" db:"snapshot_date"`
	TimeWindow        TimeWindow `json:"time_window" db:"time_window"`
	WindowDays        int        `json:"window_days" db:"window_days"`
	WindowStart       time.Time  `json:"window_start" db:"window_start"`
	WindowEnd         time.Time  `json:"window_end" db:"window_end"`

	SKU         *string `json:"sku,omitempty" db:"sku"`
	ProductName *string `json:"product_name,omitempty" db:"product_name"`

	// Point-in-time gauges from the latest record inside the window.
	FBAAvailable   float64 `json:"fba_available" db:"fba_available"`
	TotalInventory float64 `json:"total_inventory" db:"total_inventory"`

	// Sums across the window.
	TotalSalesAmount   float64 `json:"total_sales_amount" db:"total_sales_amount"`
	TotalSalesQuantity float64 `json:"total_sales_quantity" db:"total_sales_quantity"`
	TotalImpressions   float64 `json:"total_impressions" db:"total_impressions"`
	TotalClicks        float64 `json:"total_clicks" db:"total_clicks"`
	TotalAdSpend       float64 `json:"total_ad_spend" db:"total_ad_spend"`
	TotalAdOrders      float64 `json:"total_ad_orders" db:"total_ad_orders"`

	// Derived ratios. Division-by-zero cases short-circuit to 0; turnover uses
	// the 999 sentinel for unresolvable velocity and is always capped there.
	AvgDailySales         float64         `json:"avg_daily_sales" db:"avg_daily_sales"`
	AvgDailyRevenue       float64         `json:"avg_daily_revenue" db:"avg_daily_revenue"`
	AdCTR                 float64         `json:"ad_ctr" db:"ad_ctr"`
	AdConversionRate      float64         `json:"ad_conversion_rate" db:"ad_conversion_rate"`
	ACOS                  float64         `json:"acos" db:"acos"`
	InventoryTurnoverDays float64         `json:"inventory_turnover_days" db:"inventory_turnover_days"`
	InventoryStatus       InventoryStatus `json:"inventory_status" db:"inventory_status"`

	SourceRecordsCount    int     `json:"source_records_count" db:"source_records_count"`
	DataCompletenessScore float64 `json:"data_completeness_score" db:"data_completeness_score"`

	BatchID      string    `json:"batch_id" db:"batch_id"`
	ProcessingMS int64     `json:"processing_ms" db:"processing_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Key returns the natural snapshot key as a single string, used for cache keys
// and log fields.
func (s InventorySnapshot) Key() string {
	return s.ASIN + "|" + s.WarehouseLocation + "|" + s.SnapshotDate.Format("2006-01-02") + "|" + string(s.TimeWindow)
}

// AnalyticsRepo reads daily analytics rows. Implementations must not mutate
// the analytics table.
type AnalyticsRepo interface {
	// ListRange returns all rows with date in [from, to] inclusive, ordered by
	// (asin, marketplace_id, date).
	ListRange(ctx context.Context, from, to time.Time) ([]AnalyticsRecord, error)

	// CountRange returns the row count in [from, to] for run planning.
	CountRange(ctx context.Context, from, to time.Time) (int64, error)
}

// SnapshotRepo persists inventory snapshots with idempotent upsert semantics
// on the (asin, warehouse_location, snapshot_date, time_window) key.
type SnapshotRepo interface {
	// UpsertBatch inserts or overwrites the given snapshots and returns the
	// number of rows written.
	UpsertBatch(ctx context.Context, snaps []InventorySnapshot) (int64, error)

	// DeleteByDate removes all snapshots for a snapshot_date. Used by the
	// replace strategy before regeneration.
	DeleteByDate(ctx context.Context, snapshotDate time.Time) (int64, error)

	// GetLatest returns the most recent snapshot for the key prefix, or nil
	// when none exists.
	GetLatest(ctx context.Context, asin, warehouse string, window TimeWindow) (*InventorySnapshot, error)

	// ListByDate returns all snapshots for one asin/warehouse on a date.
	ListByDate(ctx context.Context, asin, warehouse string, snapshotDate time.Time) ([]InventorySnapshot, error)
}
