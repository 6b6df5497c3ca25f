package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/amzops/sellerpulse/internal/persistence"
)

// analyticsRepo implements AnalyticsRepo for PostgreSQL. The underlying table
// is append-only; this repo issues reads only.
type analyticsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAnalyticsRepo creates a PostgreSQL analytics repository.
func NewAnalyticsRepo(db *sqlx.DB, timeout time.Duration) persistence.AnalyticsRepo {
	return &analyticsRepo{
		db:      db,
		timeout: timeout,
	}
}

// ListRange returns all analytics rows with date in [from, to] inclusive,
// ordered so that rows of one (asin, marketplace) group are contiguous.
func (r *analyticsRepo) ListRange(ctx context.Context, from, to time.Time) ([]persistence.AnalyticsRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, asin, marketplace_id, sku, product_name,
		       fba_available, total_inventory,
		       sales_amount, sales_quantity,
		       ad_impressions, ad_clicks, ad_spend, ad_orders,
		       date, created_at
		FROM product_analytics
		WHERE date >= $1 AND date <= $2
		ORDER BY asin, COALESCE(marketplace_id, 'default'), date`

	var records []persistence.AnalyticsRecord
	if err := r.db.SelectContext(ctx, &records, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list analytics range: %w", err)
	}

	return records, nil
}

// CountRange returns the number of analytics rows in [from, to].
func (r *analyticsRepo) CountRange(ctx context.Context, from, to time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var count int64
	query := `SELECT COUNT(*) FROM product_analytics WHERE date >= $1 AND date <= $2`
	if err := r.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, fmt.Errorf("failed to count analytics range: %w", err)
	}

	return count, nil
}
