package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcoasCriticalHigh(t *testing.T) {
	e := NewEngine()
	facts := ProductFacts{ACOS: 0.30, StandardCVR: 0.10, ConversionRate: 0.10, InventoryStatus: "normal"}
	actions := []Action{
		{Type: ActionListingOptimization, Category: CategorySales, Description: "rework listing"},
	}

	violations := e.Validate(facts, actions)
	require.NotEmpty(t, violations)
	assert.Equal(t, "acoas_critical_high", violations[0].RuleID)
	assert.Equal(t, PriorityCritical, violations[0].Priority)

	corrected := e.Correct(facts, actions, violations)
	assert.True(t, HasAction(corrected, ActionBidReduction))

	// The corrected list re-validated raises no violation for that rule.
	for _, v := range e.Validate(facts, corrected) {
		assert.NotEqual(t, "acoas_critical_high", v.RuleID)
	}
}

func TestValidate_AcoasEmergencyRequiresPause(t *testing.T) {
	e := NewEngine()
	facts := ProductFacts{ACOS: 0.70, StandardCVR: 0.10, ConversionRate: 0.10, InventoryStatus: "normal"}

	violations := e.Validate(facts, []Action{{Type: ActionBidReduction}})
	var ids []string
	for _, v := range violations {
		ids = append(ids, v.RuleID)
	}
	assert.Contains(t, ids, "acoas_emergency")
}

func TestValidate_RemovalOrderForbidden(t *testing.T) {
	e := NewEngine()
	facts := ProductFacts{StandardCVR: 0.10, ConversionRate: 0.10, InventoryStatus: "normal"}
	actions := []Action{{Type: ActionRemovalOrder, Description: "destroy inventory"}}

	violations := e.Validate(facts, actions)
	require.NotEmpty(t, violations)
	assert.Equal(t, "no_removal_order", violations[0].RuleID)

	corrected := e.Correct(facts, actions, violations)
	assert.False(t, HasAction(corrected, ActionRemovalOrder))
}

func TestValidate_CouponClamp(t *testing.T) {
	e := NewEngine()
	facts := ProductFacts{StandardCVR: 0.10, ConversionRate: 0.10, InventoryStatus: "normal"}
	actions := []Action{{Type: ActionCoupon, CouponPct: 35, Description: "big coupon"}}

	violations := e.Validate(facts, actions)
	require.Len(t, violations, 1)
	assert.Equal(t, "coupon_discount_cap", violations[0].RuleID)

	corrected := e.Correct(facts, actions, violations)
	require.Len(t, corrected, 1)
	assert.Equal(t, 20.0, corrected[0].CouponPct)
	assert.Empty(t, e.Validate(facts, corrected))
}

func TestValidate_SeasonalNoRestock(t *testing.T) {
	e := NewEngine()
	facts := ProductFacts{Seasonal: true, StandardCVR: 0.10, ConversionRate: 0.10, InventoryStatus: "shortage"}
	actions := []Action{
		{Type: ActionExpediteShipment},
		{Type: ActionDelayPromotion},
	}

	violations := e.Validate(facts, actions)
	var ids []string
	for _, v := range violations {
		ids = append(ids, v.RuleID)
	}
	assert.Contains(t, ids, "seasonal_no_restock")

	corrected := e.Correct(facts, actions, violations)
	assert.False(t, HasAction(corrected, ActionExpediteShipment))
	assert.True(t, HasAction(corrected, ActionDelayPromotion))
}

func TestValidate_BudgetIncreaseForbiddenAboveCeiling(t *testing.T) {
	e := NewEngine()
	facts := ProductFacts{ACOS: 0.20, StandardCVR: 0.10, ConversionRate: 0.10, InventoryStatus: "normal"}
	actions := []Action{{Type: ActionBudgetIncrease}}

	violations := e.Validate(facts, actions)
	var ids []string
	for _, v := range violations {
		ids = append(ids, v.RuleID)
	}
	assert.Contains(t, ids, "no_budget_increase_high_acoas")
}

func TestValidate_SortedCriticalFirst(t *testing.T) {
	e := NewEngine()
	// Stockout (high), removal order (critical), oversized coupon (medium).
	facts := ProductFacts{StandardCVR: 0.10, ConversionRate: 0.10, InventoryStatus: "stockout"}
	actions := []Action{
		{Type: ActionRemovalOrder},
		{Type: ActionCoupon, CouponPct: 50},
	}

	violations := e.Validate(facts, actions)
	require.GreaterOrEqual(t, len(violations), 3)
	for i := 1; i < len(violations); i++ {
		assert.LessOrEqual(t, violations[i-1].Priority, violations[i].Priority,
			"violations must be sorted critical to low")
	}
	assert.Equal(t, "no_removal_order", violations[0].RuleID)
}

func TestCorrect_Idempotent(t *testing.T) {
	e := NewEngine()
	facts := ProductFacts{ACOS: 0.70, StandardCVR: 0.10, ConversionRate: 0.05, InventoryStatus: "stockout", Seasonal: true}
	actions := []Action{
		{Type: ActionExpediteShipment},
		{Type: ActionCoupon, CouponPct: 40},
		{Type: ActionRemovalOrder},
		{Type: ActionBudgetIncrease},
	}

	violations := e.Validate(facts, actions)
	once := e.Correct(facts, actions, violations)
	twice := e.Correct(facts, once, violations)
	assert.Equal(t, once, twice)
}

func TestCorrect_ClosesAllViolations(t *testing.T) {
	e := NewEngine()
	facts := ProductFacts{ACOS: 0.70, StandardCVR: 0.10, ConversionRate: 0.05, InventoryStatus: "stockout"}
	actions := []Action{
		{Type: ActionCoupon, CouponPct: 40},
		{Type: ActionRemovalOrder},
		{Type: ActionBudgetIncrease},
	}

	violations := e.Validate(facts, actions)
	require.NotEmpty(t, violations)

	corrected := e.Correct(facts, actions, violations)
	assert.Empty(t, e.Validate(facts, corrected))
}

func TestValidate_EmptyActionList(t *testing.T) {
	e := NewEngine()
	facts := ProductFacts{StandardCVR: 0.10, ConversionRate: 0.10, InventoryStatus: "normal"}

	violations := e.Validate(facts, nil)
	require.Len(t, violations, 1)
	assert.Equal(t, "action_list_bounds", violations[0].RuleID)

	corrected := e.Correct(facts, nil, violations)
	require.Len(t, corrected, 1)
	assert.Equal(t, ActionMonitor, corrected[0].Type)
}

func TestCatalogSize(t *testing.T) {
	assert.Len(t, NewEngine().Rules(), 12)
}
