package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/amzops/sellerpulse/internal/persistence"
)

// snapshotRepo implements SnapshotRepo for PostgreSQL. Upserts resolve on the
// (asin, warehouse_location, snapshot_date, time_window) unique key so re-runs
// for the same date are idempotent.
type snapshotRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSnapshotRepo creates a PostgreSQL snapshot repository.
func NewSnapshotRepo(db *sqlx.DB, timeout time.Duration) persistence.SnapshotRepo {
	return &snapshotRepo{
		db:      db,
		timeout: timeout,
	}
}

const upsertSnapshotQuery = `
	INSERT INTO inventory_snapshots
	(asin, warehouse_location, snapshot_date, time_window, window_days,
	 window_start, window_end, sku, product_name,
	 fba_available, total_inventory,
	 total_sales_amount, total_sales_quantity,
	 total_impressions, total_clicks, total_ad_spend, total_ad_orders,
	 avg_daily_sales, avg_daily_revenue, ad_ctr, ad_conversion_rate, acos,
	 inventory_turnover_days, inventory_status,
	 source_records_count, data_completeness_score, batch_id, processing_ms)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	ON CONFLICT (asin, warehouse_location, snapshot_date, time_window) DO UPDATE SET
		window_days = EXCLUDED.window_days,
		window_start = EXCLUDED.window_start,
		window_end = EXCLUDED.window_end,
		sku = EXCLUDED.sku,
		product_name = EXCLUDED.product_name,
		fba_available = EXCLUDED.fba_available,
		total_inventory = EXCLUDED.total_inventory,
		total_sales_amount = EXCLUDED.total_sales_amount,
		total_sales_quantity = EXCLUDED.total_sales_quantity,
		total_impressions = EXCLUDED.total_impressions,
		total_clicks = EXCLUDED.total_clicks,
		total_ad_spend = EXCLUDED.total_ad_spend,
		total_ad_orders = EXCLUDED.total_ad_orders,
		avg_daily_sales = EXCLUDED.avg_daily_sales,
		avg_daily_revenue = EXCLUDED.avg_daily_revenue,
		ad_ctr = EXCLUDED.ad_ctr,
		ad_conversion_rate = EXCLUDED.ad_conversion_rate,
		acos = EXCLUDED.acos,
		inventory_turnover_days = EXCLUDED.inventory_turnover_days,
		inventory_status = EXCLUDED.inventory_status,
		source_records_count = EXCLUDED.source_records_count,
		data_completeness_score = EXCLUDED.data_completeness_score,
		batch_id = EXCLUDED.batch_id,
		processing_ms = EXCLUDED.processing_ms,
		updated_at = NOW()`

// UpsertBatch writes all snapshots inside one transaction and returns the row
// count. A failed batch rolls back as a unit so a group never persists a
// partial set of windows.
func (r *snapshotRepo) UpsertBatch(ctx context.Context, snaps []persistence.InventorySnapshot) (int64, error) {
	if len(snaps) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	var written int64
	for _, s := range snaps {
		if !s.TimeWindow.Valid() {
			return 0, fmt.Errorf("invalid time window %q for %s", s.TimeWindow, s.ASIN)
		}
		if _, err := tx.ExecContext(ctx, upsertSnapshotQuery,
			s.ASIN, s.WarehouseLocation, s.SnapshotDate, s.TimeWindow, s.WindowDays,
			s.WindowStart, s.WindowEnd, s.SKU, s.ProductName,
			s.FBAAvailable, s.TotalInventory,
			s.TotalSalesAmount, s.TotalSalesQuantity,
			s.TotalImpressions, s.TotalClicks, s.TotalAdSpend, s.TotalAdOrders,
			s.AvgDailySales, s.AvgDailyRevenue, s.AdCTR, s.AdConversionRate, s.ACOS,
			s.InventoryTurnoverDays, s.InventoryStatus,
			s.SourceRecordsCount, s.DataCompletenessScore, s.BatchID, s.ProcessingMS,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert snapshot %s: %w", s.Key(), err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot batch: %w", err)
	}

	return written, nil
}

// DeleteByDate removes all snapshots for one snapshot_date and returns the
// number of rows removed.
func (r *snapshotRepo) DeleteByDate(ctx context.Context, snapshotDate time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM inventory_snapshots WHERE snapshot_date = $1`, snapshotDate)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots for %s: %w",
			snapshotDate.Format("2006-01-02"), err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete row count: %w", err)
	}

	return deleted, nil
}

const selectSnapshotColumns = `
	SELECT id, asin, warehouse_location, snapshot_date, time_window, window_days,
	       window_start, window_end, sku, product_name,
	       fba_available, total_inventory,
	       total_sales_amount, total_sales_quantity,
	       total_impressions, total_clicks, total_ad_spend, total_ad_orders,
	       avg_daily_sales, avg_daily_revenue, ad_ctr, ad_conversion_rate, acos,
	       inventory_turnover_days, inventory_status,
	       source_records_count, data_completeness_score, batch_id, processing_ms,
	       created_at, updated_at
	FROM inventory_snapshots`

// GetLatest returns the most recent snapshot for (asin, warehouse, window),
// or nil when none exists.
func (r *snapshotRepo) GetLatest(ctx context.Context, asin, warehouse string, window persistence.TimeWindow) (*persistence.InventorySnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectSnapshotColumns + `
	WHERE asin = $1 AND warehouse_location = $2 AND time_window = $3
	ORDER BY snapshot_date DESC
	LIMIT 1`

	var snap persistence.InventorySnapshot
	err := r.db.GetContext(ctx, &snap, query, asin, warehouse, window)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return &snap, nil
}

// ListByDate returns all windows for one asin/warehouse on a snapshot date.
func (r *snapshotRepo) ListByDate(ctx context.Context, asin, warehouse string, snapshotDate time.Time) ([]persistence.InventorySnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectSnapshotColumns + `
	WHERE asin = $1 AND warehouse_location = $2 AND snapshot_date = $3
	ORDER BY window_days`

	var snaps []persistence.InventorySnapshot
	if err := r.db.SelectContext(ctx, &snaps, query, asin, warehouse, snapshotDate); err != nil {
		return nil, fmt.Errorf("failed to list snapshots by date: %w", err)
	}

	return snaps, nil
}
