package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amzops/sellerpulse/internal/persistence"
)

type mockAnalyticsRepo struct {
	records []persistence.AnalyticsRecord
	err     error
}

func (m *mockAnalyticsRepo) ListRange(ctx context.Context, from, to time.Time) ([]persistence.AnalyticsRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []persistence.AnalyticsRecord
	for _, r := range m.records {
		if !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockAnalyticsRepo) CountRange(ctx context.Context, from, to time.Time) (int64, error) {
	rows, err := m.ListRange(ctx, from, to)
	return int64(len(rows)), err
}

type mockSnapshotRepo struct {
	mu       sync.Mutex
	rows     map[string]persistence.InventorySnapshot
	failASIN string // upserts for this ASIN fail
	deletes  int
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{rows: make(map[string]persistence.InventorySnapshot)}
}

func (m *mockSnapshotRepo) UpsertBatch(ctx context.Context, snaps []persistence.InventorySnapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range snaps {
		if s.ASIN == m.failASIN {
			return 0, errors.New("simulated upsert failure")
		}
	}
	for _, s := range snaps {
		m.rows[s.Key()] = s
	}
	return int64(len(snaps)), nil
}

func (m *mockSnapshotRepo) DeleteByDate(ctx context.Context, snapshotDate time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	var deleted int64
	for k, s := range m.rows {
		if s.SnapshotDate.Equal(snapshotDate) {
			delete(m.rows, k)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockSnapshotRepo) GetLatest(ctx context.Context, asin, warehouse string, window persistence.TimeWindow) (*persistence.InventorySnapshot, error) {
	return nil, nil
}

func (m *mockSnapshotRepo) ListByDate(ctx context.Context, asin, warehouse string, snapshotDate time.Time) ([]persistence.InventorySnapshot, error) {
	return nil, nil
}

func (m *mockSnapshotRepo) snapshot(key string) (persistence.InventorySnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[key]
	return s, ok
}

func seedWeek(asin string, target time.Time, qty float64) []persistence.AnalyticsRecord {
	var out []persistence.AnalyticsRecord
	for i := 0; i < 7; i++ {
		out = append(out, persistence.AnalyticsRecord{
			ASIN:           asin,
			Date:           target.AddDate(0, 0, -i),
			SalesQuantity:  qty,
			SalesAmount:    qty * 10,
			TotalInventory: 100,
			FBAAvailable:   100,
		})
	}
	return out
}

func TestRun_FourSnapshotsPerGroup(t *testing.T) {
	target := day("2026-08-20")
	analytics := &mockAnalyticsRepo{records: seedWeek("B00A", target, 2)}
	store := newMockSnapshotRepo()

	agg := New(analytics, store, nil, DefaultConfig())
	summary, err := agg.Run(context.Background(), RunOptions{TargetDate: target})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GroupsProcessed)
	assert.Equal(t, int64(4), summary.RowsUpserted)
	assert.Len(t, store.rows, 4)

	for _, w := range persistence.Windows {
		key := "B00A|default|2026-08-20|" + string(w)
		snap, ok := store.snapshot(key)
		require.True(t, ok, "missing window %s", w)
		assert.Equal(t, w.Days(), snap.WindowDays)
		assert.Equal(t, summary.BatchID, snap.BatchID)
	}
}

func TestRun_IdempotentRerun(t *testing.T) {
	target := day("2026-08-20")
	analytics := &mockAnalyticsRepo{records: seedWeek("B00A", target, 3)}
	store := newMockSnapshotRepo()
	agg := New(analytics, store, nil, DefaultConfig())

	_, err := agg.Run(context.Background(), RunOptions{TargetDate: target})
	require.NoError(t, err)
	first := make(map[string]persistence.InventorySnapshot, len(store.rows))
	for k, v := range store.rows {
		first[k] = v
	}

	_, err = agg.Run(context.Background(), RunOptions{TargetDate: target})
	require.NoError(t, err)

	require.Len(t, store.rows, len(first))
	for k, after := range store.rows {
		before := first[k]
		assert.Equal(t, before.TotalSalesQuantity, after.TotalSalesQuantity, k)
		assert.Equal(t, before.AvgDailySales, after.AvgDailySales, k)
		assert.Equal(t, before.InventoryTurnoverDays, after.InventoryTurnoverDays, k)
		assert.Equal(t, before.InventoryStatus, after.InventoryStatus, k)
		assert.Equal(t, before.DataCompletenessScore, after.DataCompletenessScore, k)
	}
}

func TestRun_SkipsSparseGroups(t *testing.T) {
	target := day("2026-08-20")
	records := seedWeek("B00A", target, 2)
	// A group with only two records stays below the default minimum of three.
	records = append(records,
		persistence.AnalyticsRecord{ASIN: "B00B", Date: target, SalesQuantity: 1, TotalInventory: 5},
		persistence.AnalyticsRecord{ASIN: "B00B", Date: target.AddDate(0, 0, -1), SalesQuantity: 1, TotalInventory: 5},
	)

	store := newMockSnapshotRepo()
	agg := New(&mockAnalyticsRepo{records: records}, store, nil, DefaultConfig())

	summary, err := agg.Run(context.Background(), RunOptions{TargetDate: target})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GroupsProcessed)
	assert.Equal(t, 1, summary.GroupsSkipped)
	assert.Equal(t, 0, summary.GroupsFailed)
	assert.Len(t, store.rows, 4)
}

func TestRun_GroupFailureIsIsolated(t *testing.T) {
	target := day("2026-08-20")
	records := append(seedWeek("B00A", target, 2), seedWeek("B00B", target, 3)...)

	store := newMockSnapshotRepo()
	store.failASIN = "B00A"
	agg := New(&mockAnalyticsRepo{records: records}, store, nil, DefaultConfig())

	summary, err := agg.Run(context.Background(), RunOptions{TargetDate: target})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GroupsFailed)
	assert.Equal(t, 1, summary.GroupsProcessed)
	assert.Equal(t, int64(4), summary.RowsUpserted)
	// The healthy group's rows all landed.
	_, ok := store.snapshot("B00B|default|2026-08-20|T7")
	assert.True(t, ok)
}

func TestRun_ReplaceStrategyDeletesFirst(t *testing.T) {
	target := day("2026-08-20")
	store := newMockSnapshotRepo()

	// Pre-existing stale row from a failed earlier run for the same date.
	stale := persistence.InventorySnapshot{
		ASIN: "GONE", WarehouseLocation: "US", SnapshotDate: target, TimeWindow: persistence.WindowT7,
	}
	store.rows[stale.Key()] = stale

	agg := New(&mockAnalyticsRepo{records: seedWeek("B00A", target, 2)}, store, nil, DefaultConfig())
	summary, err := agg.Run(context.Background(), RunOptions{TargetDate: target, Strategy: StrategyReplace})
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.RowsDeleted)
	assert.Equal(t, 1, store.deletes)
	_, ok := store.snapshot(stale.Key())
	assert.False(t, ok, "stale row must not survive a replace run")
}

func TestRun_SourceErrorAbortsRun(t *testing.T) {
	agg := New(&mockAnalyticsRepo{err: errors.New("connection refused")}, newMockSnapshotRepo(), nil, DefaultConfig())
	_, err := agg.Run(context.Background(), RunOptions{TargetDate: day("2026-08-20")})
	require.Error(t, err)
}

type mockInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (m *mockInvalidator) Invalidate(ctx context.Context, asin, warehouse string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return nil
}

func TestRun_InvalidatesCachePerGroup(t *testing.T) {
	target := day("2026-08-20")
	inv := &mockInvalidator{}
	agg := New(&mockAnalyticsRepo{records: seedWeek("B00A", target, 2)}, newMockSnapshotRepo(), inv, DefaultConfig())

	_, err := agg.Run(context.Background(), RunOptions{TargetDate: target})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)
}
