package diagnosis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/amzops/sellerpulse/internal/llm"
	"github.com/amzops/sellerpulse/internal/persistence"
)

// SnapshotSource resolves the latest snapshots for a product. The redis cache
// and the postgres repo both satisfy it.
type SnapshotSource interface {
	GetLatest(ctx context.Context, asin, warehouse string, window persistence.TimeWindow) (*persistence.InventorySnapshot, error)
}

// llmRetries is the bounded retry budget for narrative generation. The
// external service is not assumed side-effect-free, so the budget stays small.
const llmRetries = 2

// Orchestrator runs the diagnosis engine and decorates its deterministic
// output with generated prose. Engine decisions never depend on the prose.
type Orchestrator struct {
	engine    *Engine
	generator llm.Generator   // nil disables narrative generation
	snapshots SnapshotSource  // nil disables AnalyzeASIN
	required  bool            // fail the run when prose generation fails
}

// NewOrchestrator creates a diagnosis orchestrator. generator and snapshots
// are optional collaborators.
func NewOrchestrator(engine *Engine, generator llm.Generator, snapshots SnapshotSource, llmRequired bool) *Orchestrator {
	return &Orchestrator{
		engine:    engine,
		generator: generator,
		snapshots: snapshots,
		required:  llmRequired,
	}
}

// Analyze diagnoses one product record and renders the final report.
// Validation failures return an error report alongside ErrValidation.
func (o *Orchestrator) Analyze(ctx context.Context, input ProductAnalysisData) (*Result, error) {
	state, err := o.engine.Run(ctx, input)
	if err != nil {
		report := &Result{
			ASIN:              input.ASIN,
			WarehouseLocation: input.WarehouseLocation,
			RiskLevel:         RiskHigh,
			Analysis:          fmt.Sprintf("Diagnosis aborted: %v", err),
			GeneratedAt:       time.Now().UTC(),
		}
		return report, err
	}

	result := o.engine.BuildResult(state)
	result.GeneratedAt = time.Now().UTC()

	if o.generator != nil {
		prose, genErr := o.narrate(ctx, state)
		switch {
		case genErr == nil:
			result.Analysis = prose
		case o.required:
			return nil, fmt.Errorf("narrative generation failed: %w", genErr)
		default:
			log.Warn().Err(genErr).
				Str("asin", input.ASIN).
				Msg("Narrative generation failed, using deterministic analysis text")
		}
	}

	return result, nil
}

// AnalyzeASIN loads the latest snapshots for a product and diagnoses them.
// The T7 snapshot is the primary evidence; T30 supplies trend context.
func (o *Orchestrator) AnalyzeASIN(ctx context.Context, asin, warehouse string) (*Result, error) {
	if o.snapshots == nil {
		return nil, fmt.Errorf("no snapshot source configured")
	}

	t7, err := o.snapshots.GetLatest(ctx, asin, warehouse, persistence.WindowT7)
	if err != nil {
		return nil, fmt.Errorf("failed to load T7 snapshot: %w", err)
	}
	if t7 == nil {
		return nil, fmt.Errorf("%w: no snapshot for %s/%s", ErrValidation, asin, warehouse)
	}

	t30, err := o.snapshots.GetLatest(ctx, asin, warehouse, persistence.WindowT30)
	if err != nil {
		// Trend context is optional; proceed on the T7 evidence alone.
		log.Warn().Err(err).Str("asin", asin).Msg("T30 snapshot lookup failed")
		t30 = nil
	}

	return o.Analyze(ctx, FromSnapshot(t7, t30))
}

// FromSnapshot converts a persisted snapshot into a diagnosis input. t30 is
// optional trend context.
func FromSnapshot(t7, t30 *persistence.InventorySnapshot) ProductAnalysisData {
	p := ProductAnalysisData{
		ASIN:              t7.ASIN,
		WarehouseLocation: t7.WarehouseLocation,
		FBAAvailable:      t7.FBAAvailable,
		TotalInventory:    t7.TotalInventory,
		AvgDailySales:     t7.AvgDailySales,
		DailyRevenue:      t7.AvgDailyRevenue,
		TurnoverDays:      t7.InventoryTurnoverDays,
		InventoryStatus:   t7.InventoryStatus,
		SalesAmount:       t7.TotalSalesAmount,
		SalesQuantity:     t7.TotalSalesQuantity,
		Impressions:       t7.TotalImpressions,
		Clicks:            t7.TotalClicks,
		AdSpend:           t7.TotalAdSpend,
		AdOrders:          t7.TotalAdOrders,
		Aggregation: &AggregationMeta{
			WindowDays:      t7.WindowDays,
			DataPointsCount: t7.SourceRecordsCount,
			MissingDays:     t7.WindowDays - t7.SourceRecordsCount,
			Completeness:    t7.DataCompletenessScore,
		},
	}
	if t7.ProductName != nil {
		p.ProductName = *t7.ProductName
	}
	if t7.SKU != nil {
		p.SKU = *t7.SKU
	}
	if t30 != nil && t30.AvgDailyRevenue > 0 {
		p.Trend = &TrendDeltas{
			RevenueDelta:  (t7.AvgDailyRevenue - t30.AvgDailyRevenue) / t30.AvgDailyRevenue * 100,
			QuantityDelta: deltaPct(t7.AvgDailySales, t30.AvgDailySales),
		}
	}
	return p
}

func deltaPct(cur, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (cur - base) / base * 100
}

// narrate asks the text generation service for analysis prose, retrying a
// bounded number of times with linear backoff.
func (o *Orchestrator) narrate(ctx context.Context, s *State) (string, error) {
	prompt := buildPrompt(s)

	var lastErr error
	for attempt := 0; attempt <= llmRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		text, err := o.generator.Generate(ctx, prompt)
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		lastErr = err
	}

	return "", lastErr
}

// buildPrompt serializes the deterministic findings for the prose writer. The
// prompt states conclusions; the model only words them.
func buildPrompt(s *State) string {
	var b strings.Builder
	b.WriteString("Write a concise operations analysis for an Amazon product based strictly on these findings. ")
	b.WriteString("Do not change any number or conclusion.\n\n")
	fmt.Fprintf(&b, "ASIN: %s (warehouse %s)\n", s.Input.ASIN, s.Input.WarehouseLocation)
	fmt.Fprintf(&b, "Diagnosis: %s\n", s.Scenario)
	fmt.Fprintf(&b, "Findings:\n%s\n", s.AnalysisText)
	fmt.Fprintf(&b, "Planned actions:\n%s\n", s.ActionPlanText)
	return b.String()
}
