package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/amzops/sellerpulse/internal/persistence"
	"github.com/amzops/sellerpulse/internal/telemetry"
)

// Strategy selects how a run treats pre-existing snapshots for the target date.
type Strategy string

const (
	// StrategyMerge upserts over existing rows. Safe to re-run concurrently
	// with readers.
	StrategyMerge Strategy = "merge"
	// StrategyReplace deletes the target date's snapshots before writing, so
	// stale partial windows from a failed run cannot survive. Not safe while
	// readers are active on that date.
	StrategyReplace Strategy = "replace"
)

// Config bounds an aggregation run.
type Config struct {
	LookbackDays    int // source query horizon behind the target date
	MinGroupRecords int // groups below this are skipped as too sparse
	Workers         int // bounded parallelism across groups
}

// DefaultConfig returns production aggregation bounds.
func DefaultConfig() Config {
	return Config{
		LookbackDays:    60,
		MinGroupRecords: 3,
		Workers:         4,
	}
}

// Invalidator drops cached snapshot entries after a group is rewritten.
type Invalidator interface {
	Invalidate(ctx context.Context, asin, warehouse string) error
}

// RunOptions parameterize one aggregation run.
type RunOptions struct {
	// TargetDate is the snapshot date; zero value means yesterday (UTC).
	TargetDate time.Time
	Strategy   Strategy
}

// RunSummary reports aggregate counts for one run. Per-group failures are
// isolated, so a summary with failures still reflects a completed run.
type RunSummary struct {
	BatchID         string        `json:"batch_id"`
	TargetDate      time.Time     `json:"target_date"`
	SourceRows      int           `json:"source_rows"`
	GroupsProcessed int           `json:"groups_processed"`
	GroupsSkipped   int           `json:"groups_skipped"`
	GroupsFailed    int           `json:"groups_failed"`
	RowsUpserted    int64         `json:"rows_upserted"`
	RowsDeleted     int64         `json:"rows_deleted"`
	Duration        time.Duration `json:"duration"`
}

// Aggregator turns daily analytics rows into trailing-window inventory
// snapshots, four windows per (asin, warehouse) group per run.
type Aggregator struct {
	analytics   persistence.AnalyticsRepo
	snapshots   persistence.SnapshotRepo
	invalidator Invalidator // optional
	cfg         Config
}

// New creates an aggregator. invalidator may be nil when no snapshot cache is
// deployed.
func New(analytics persistence.AnalyticsRepo, snapshots persistence.SnapshotRepo, invalidator Invalidator, cfg Config) *Aggregator {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 60
	}
	if cfg.MinGroupRecords <= 0 {
		cfg.MinGroupRecords = 3
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Aggregator{
		analytics:   analytics,
		snapshots:   snapshots,
		invalidator: invalidator,
		cfg:         cfg,
	}
}

type groupKey struct {
	asin      string
	warehouse string
}

type group struct {
	key     groupKey
	records []persistence.AnalyticsRecord
}

// Run executes one aggregation pass for the target date. Groups fan out over a
// bounded worker pool; a failure in one group is logged and counted but never
// cancels the others.
func (a *Aggregator) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	started := time.Now()

	target := opts.TargetDate
	if target.IsZero() {
		target = time.Now().UTC().AddDate(0, 0, -1)
	}
	target = truncateToDay(target)

	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyMerge
	}

	summary := &RunSummary{
		BatchID:    uuid.NewString(),
		TargetDate: target,
	}

	from := target.AddDate(0, 0, -a.cfg.LookbackDays)
	records, err := a.analytics.ListRange(ctx, from, target)
	if err != nil {
		telemetry.AggregatorRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load analytics horizon: %w", err)
	}
	summary.SourceRows = len(records)

	groups := groupRecords(records)

	log.Info().
		Str("batch_id", summary.BatchID).
		Str("target_date", target.Format("2006-01-02")).
		Str("strategy", string(strategy)).
		Int("source_rows", len(records)).
		Int("groups", len(groups)).
		Msg("Starting snapshot aggregation run")

	// The replace strategy's delete runs to completion before any worker
	// starts, so an upsert can never race the cleanup.
	if strategy == StrategyReplace {
		deleted, err := a.snapshots.DeleteByDate(ctx, target)
		if err != nil {
			telemetry.AggregatorRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to clear snapshots for %s: %w",
				target.Format("2006-01-02"), err)
		}
		summary.RowsDeleted = deleted
	}

	var processed, skipped, failed, upserted int64

	jobs := make(chan group)
	var wg sync.WaitGroup
	for i := 0; i < a.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range jobs {
				if len(g.records) < a.cfg.MinGroupRecords {
					atomic.AddInt64(&skipped, 1)
					telemetry.AggregatorGroups.WithLabelValues("skipped").Inc()
					log.Warn().
						Str("asin", g.key.asin).
						Str("warehouse", g.key.warehouse).
						Int("records", len(g.records)).
						Int("min_records", a.cfg.MinGroupRecords).
						Msg("Skipping sparse group")
					continue
				}

				n, err := a.processGroup(ctx, g, target, summary.BatchID)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					telemetry.AggregatorGroups.WithLabelValues("failed").Inc()
					log.Error().Err(err).
						Str("asin", g.key.asin).
						Str("warehouse", g.key.warehouse).
						Msg("Group aggregation failed")
					continue
				}
				atomic.AddInt64(&processed, 1)
				atomic.AddInt64(&upserted, n)
				telemetry.AggregatorGroups.WithLabelValues("processed").Inc()
			}
		}()
	}

	for _, g := range groups {
		jobs <- g
	}
	close(jobs)
	wg.Wait()

	summary.GroupsProcessed = int(processed)
	summary.GroupsSkipped = int(skipped)
	summary.GroupsFailed = int(failed)
	summary.RowsUpserted = upserted
	summary.Duration = time.Since(started)

	telemetry.SnapshotsUpserted.Add(float64(upserted))
	telemetry.AggregatorRuns.WithLabelValues("ok").Inc()

	log.Info().
		Str("batch_id", summary.BatchID).
		Int("processed", summary.GroupsProcessed).
		Int("skipped", summary.GroupsSkipped).
		Int("failed", summary.GroupsFailed).
		Int64("rows_upserted", summary.RowsUpserted).
		Dur("duration", summary.Duration).
		Msg("Snapshot aggregation run complete")

	return summary, nil
}

// processGroup builds the four window snapshots for one group and writes them
// as a single batch.
func (a *Aggregator) processGroup(ctx context.Context, g group, target time.Time, batchID string) (int64, error) {
	groupStart := time.Now()

	snaps := make([]persistence.InventorySnapshot, 0, len(persistence.Windows))
	for _, w := range persistence.Windows {
		snap := buildWindowSnapshot(g.records, g.key.asin, g.key.warehouse, target, w)
		snap.BatchID = batchID
		snap.ProcessingMS = time.Since(groupStart).Milliseconds()
		snaps = append(snaps, snap)
	}

	n, err := a.snapshots.UpsertBatch(ctx, snaps)
	if err != nil {
		return 0, err
	}

	if a.invalidator != nil {
		if err := a.invalidator.Invalidate(ctx, g.key.asin, g.key.warehouse); err != nil {
			// Cache staleness is bounded by TTL; not worth failing the group.
			log.Warn().Err(err).
				Str("asin", g.key.asin).
				Str("warehouse", g.key.warehouse).
				Msg("Snapshot cache invalidation failed")
		}
	}

	return n, nil
}

// groupRecords buckets analytics rows by (asin, marketplace) with the
// "default" marketplace fallback, returning groups in deterministic order.
func groupRecords(records []persistence.AnalyticsRecord) []group {
	byKey := make(map[groupKey][]persistence.AnalyticsRecord)
	for _, r := range records {
		k := groupKey{asin: r.ASIN, warehouse: r.Marketplace()}
		byKey[k] = append(byKey[k], r)
	}

	groups := make([]group, 0, len(byKey))
	for k, recs := range byKey {
		groups = append(groups, group{key: k, records: recs})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].key.asin != groups[j].key.asin {
			return groups[i].key.asin < groups[j].key.asin
		}
		return groups[i].key.warehouse < groups[j].key.warehouse
	})

	return groups
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
