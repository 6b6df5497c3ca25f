package rules

import (
	"sort"
)

// Priority orders violations from most to least severe.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// String returns the lowercase priority name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// ProductFacts is the snapshot-derived evidence a rule predicate may consult.
// ACOS and conversion rates are ratios, not percentages.
type ProductFacts struct {
	ACOS             float64
	ConversionRate   float64
	StandardCVR      float64
	InventoryStatus  string // persistence.InventoryStatus value
	Seasonal         bool
	DataCompleteness float64
}

// Rule is one fixed catalog entry. Check returns true when the draft action
// list violates the rule.
type Rule struct {
	ID          string
	Priority    Priority
	Category    Category
	Message     string
	Fix         string
	Check       func(f ProductFacts, actions []Action) bool
	// correct applies the rule's mechanical fix; nil when the rule has no
	// auto-correction.
	correct func(f ProductFacts, actions []Action) []Action
}

// Violation reports one failed rule check.
type Violation struct {
	RuleID   string   `json:"rule_id"`
	Priority Priority `json:"priority"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Fix      string   `json:"fix"`
}

// Engine validates draft action lists against the fixed business rule catalog.
// Both Validate and Correct are pure; Correct is idempotent.
type Engine struct {
	catalog []Rule
}

// NewEngine builds an engine from the default thresholds.
func NewEngine() *Engine {
	return NewEngineWithThresholds(DefaultThresholds())
}

// NewEngineWithThresholds builds an engine with overridden rule thresholds.
func NewEngineWithThresholds(t Thresholds) *Engine {
	return &Engine{catalog: buildCatalog(t)}
}

// Rules exposes the catalog for reporting.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// Validate checks the draft actions against every rule and returns violations
// sorted critical first, stable by rule id within a priority.
func (e *Engine) Validate(f ProductFacts, actions []Action) []Violation {
	var violations []Violation
	for _, r := range e.catalog {
		if r.Check(f, actions) {
			violations = append(violations, Violation{
				RuleID:   r.ID,
				Priority: r.Priority,
				Category: r.Category,
				Message:  r.Message,
				Fix:      r.Fix,
			})
		}
	}

	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].Priority != violations[j].Priority {
			return violations[i].Priority < violations[j].Priority
		}
		return violations[i].RuleID < violations[j].RuleID
	})

	return violations
}

// Correct applies each violated rule's mechanical fix to the action list:
// missing mitigating actions are injected, forbidden actions stripped, coupon
// percentages clamped. Applying Correct twice yields the same list as once.
func (e *Engine) Correct(f ProductFacts, actions []Action, violations []Violation) []Action {
	corrected := make([]Action, len(actions))
	copy(corrected, actions)

	byID := make(map[string]Rule, len(e.catalog))
	for _, r := range e.catalog {
		byID[r.ID] = r
	}

	for _, v := range violations {
		r, ok := byID[v.RuleID]
		if !ok || r.correct == nil {
			continue
		}
		corrected = r.correct(f, corrected)
	}

	return corrected
}

// stripActions removes every action of the given types.
func stripActions(actions []Action, types ...ActionType) []Action {
	drop := make(map[ActionType]bool, len(types))
	for _, t := range types {
		drop[t] = true
	}
	out := actions[:0:0]
	for _, a := range actions {
		if !drop[a.Type] {
			out = append(out, a)
		}
	}
	return out
}

// injectAction appends the canonical action of the given type when absent.
func injectAction(actions []Action, t ActionType) []Action {
	if HasAction(actions, t) {
		return actions
	}
	return append(actions, canonicalActions[t])
}
