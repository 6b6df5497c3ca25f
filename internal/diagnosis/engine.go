package diagnosis

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/amzops/sellerpulse/internal/rules"
	"github.com/amzops/sellerpulse/internal/telemetry"
)

// Stage enumerates the pipeline's states. The topology is fixed: linear with
// one conditional fan-out after validation and one bounded loop between
// drafting and rule validation.
type Stage int

const (
	StageStart Stage = iota
	StageValidate
	StageAnalyzeInventory
	StageAnalyzeAdvertising
	StageAnalyzeSales
	StageDiagnose
	StageDraftActions
	StageValidateRules
	StageFormatOutput
	StageError
	StageEnd
)

// String returns the stage name for logging.
func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageValidate:
		return "validate"
	case StageAnalyzeInventory:
		return "analyze_inventory"
	case StageAnalyzeAdvertising:
		return "analyze_advertising"
	case StageAnalyzeSales:
		return "analyze_sales"
	case StageDiagnose:
		return "diagnose"
	case StageDraftActions:
		return "draft_actions"
	case StageValidateRules:
		return "validate_rules"
	case StageFormatOutput:
		return "format_output"
	case StageError:
		return "error"
	case StageEnd:
		return "end"
	}
	return "unknown"
}

// regenViolationLimit is the most violations that still trigger a redraft;
// beyond it the corrected action list is accepted as-is.
const regenViolationLimit = 2

// Engine is the deterministic diagnosis state machine. It performs no I/O:
// every stage is a pure computation over the threaded State, so a given input
// always produces the same scenario, flags, and action list.
type Engine struct {
	thresholds Thresholds
	rules      *rules.Engine
}

// NewEngine creates a diagnosis engine.
func NewEngine(t Thresholds, re *rules.Engine) *Engine {
	if t.MaxRegenerations <= 0 {
		t.MaxRegenerations = DefaultThresholds().MaxRegenerations
	}
	if re == nil {
		re = rules.NewEngine()
	}
	return &Engine{thresholds: t, rules: re}
}

// Run executes the pipeline for one input. The returned state always reaches
// a terminal stage: validation failures surface as ErrValidation with the
// error recorded on the state, and the draft/validate loop is hard-capped.
func (e *Engine) Run(ctx context.Context, input ProductAnalysisData) (*State, error) {
	state := &State{Input: input}

	for stage := StageStart; stage != StageEnd; {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("diagnosis cancelled at %s: %w", stage, err)
		}
		e.step(stage, state)
		stage = e.transition(stage, state)
	}

	if state.Err != nil {
		return state, state.Err
	}

	state.Completed = true
	telemetry.Diagnoses.WithLabelValues(string(state.Scenario)).Inc()
	return state, nil
}

// step executes one stage's computation.
func (e *Engine) step(stage Stage, s *State) {
	switch stage {
	case StageValidate:
		s.Err = e.validate(s.Input)
	case StageAnalyzeInventory:
		s.Inventory = e.analyzeInventory(s.Input)
	case StageAnalyzeAdvertising:
		s.Advertising = e.analyzeAdvertising(s.Input)
	case StageAnalyzeSales:
		s.Sales = e.analyzeSales(s.Input)
	case StageDiagnose:
		s.Scenario = e.diagnose(s)
	case StageDraftActions:
		e.draftActions(s)
	case StageValidateRules:
		e.validateRules(s)
	case StageFormatOutput:
		e.formatOutput(s)
	}
}

// transition maps (stage, state) to the next stage.
func (e *Engine) transition(stage Stage, s *State) Stage {
	switch stage {
	case StageStart:
		return StageValidate
	case StageValidate:
		if s.Err != nil {
			return StageError
		}
		return StageAnalyzeInventory
	case StageAnalyzeInventory:
		return StageAnalyzeAdvertising
	case StageAnalyzeAdvertising:
		return StageAnalyzeSales
	case StageAnalyzeSales:
		return StageDiagnose
	case StageDiagnose:
		return StageDraftActions
	case StageDraftActions:
		return StageValidateRules
	case StageValidateRules:
		n := len(s.Violations)
		if n > 0 && n <= regenViolationLimit && s.Regenerations < e.thresholds.MaxRegenerations {
			s.Regenerations++
			log.Debug().
				Str("asin", s.Input.ASIN).
				Int("violations", n).
				Int("regeneration", s.Regenerations).
				Msg("Redrafting actions after rule violations")
			return StageDraftActions
		}
		return StageFormatOutput
	case StageFormatOutput:
		return StageEnd
	case StageError:
		return StageEnd
	}
	return StageEnd
}

// validateRules runs the business rule catalog over the draft. When the loop
// is about to exit with violations still open, the mechanically corrected
// action list is adopted so the final output is always compliant.
func (e *Engine) validateRules(s *State) {
	facts := s.Facts()
	s.Violations = e.rules.Validate(facts, s.Actions)

	for _, v := range s.Violations {
		telemetry.RuleViolations.WithLabelValues(v.RuleID).Inc()
		if v.Priority == rules.PriorityCritical {
			s.CriticalSeen = true
		}
	}

	if len(s.Violations) == 0 {
		return
	}

	willRegen := len(s.Violations) <= regenViolationLimit && s.Regenerations < e.thresholds.MaxRegenerations
	if !willRegen {
		s.Actions = e.rules.Correct(facts, s.Actions, s.Violations)
	}
}

// RiskLevel grades the finished state. Inventory shortage and any critical
// rule violation dominate.
func (e *Engine) RiskLevel(s *State) RiskLevel {
	if s.Err != nil {
		return RiskHigh
	}
	if s.Scenario == ScenarioInventoryShortage || s.CriticalSeen {
		return RiskHigh
	}
	if s.Inventory != nil && s.Inventory.OutOfStockRisk == RiskHigh {
		return RiskHigh
	}
	switch s.Scenario {
	case ScenarioInventoryExcess, ScenarioAdCostHigh, ScenarioConversionInsufficient:
		return RiskMedium
	}
	return RiskLow
}
