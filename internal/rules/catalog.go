package rules

import "fmt"

// Thresholds parameterize the rule catalog. ACOS values are ratios; the coupon
// cap is in percent.
type Thresholds struct {
	AcoasCritical         float64 `yaml:"acoas_critical"`          // bid reduction required above this
	AcoasEmergency        float64 `yaml:"acoas_emergency"`         // ad pause required above this
	AcoasBudgetCeiling    float64 `yaml:"acoas_budget_ceiling"`    // budget increases forbidden above this
	ConversionFloorFactor float64 `yaml:"conversion_floor_factor"` // fraction of standard CVR
	CouponCapPct          float64 `yaml:"coupon_cap_pct"`
	MinCompleteness       float64 `yaml:"min_completeness"` // below this, irreversible actions forbidden
	MaxActions            int     `yaml:"max_actions"`
}

// DefaultThresholds returns the fixed production rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AcoasCritical:         0.25,
		AcoasEmergency:        0.60,
		AcoasBudgetCeiling:    0.15,
		ConversionFloorFactor: 0.80,
		CouponCapPct:          20,
		MinCompleteness:       0.5,
		MaxActions:            8,
	}
}

// buildCatalog materializes the fixed rule catalog for one threshold set. The
// catalog is application data: immutable at runtime, never user-editable.
func buildCatalog(t Thresholds) []Rule {
	return []Rule{
		{
			ID:       "acoas_critical_high",
			Priority: PriorityCritical,
			Category: CategoryAdvertising,
			Message:  fmt.Sprintf("ACOAS above %.0f%% requires a bid reduction action", t.AcoasCritical*100),
			Fix:      "add a bid reduction action",
			Check: func(f ProductFacts, actions []Action) bool {
				return f.ACOS > t.AcoasCritical && !HasAction(actions, ActionBidReduction)
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				return injectAction(actions, ActionBidReduction)
			},
		},
		{
			ID:       "acoas_emergency",
			Priority: PriorityCritical,
			Category: CategoryAdvertising,
			Message:  fmt.Sprintf("ACOAS above %.0f%% requires pausing advertising", t.AcoasEmergency*100),
			Fix:      "add an ad pause action",
			Check: func(f ProductFacts, actions []Action) bool {
				return f.ACOS > t.AcoasEmergency && !HasAction(actions, ActionPauseAds)
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				return injectAction(actions, ActionPauseAds)
			},
		},
		{
			ID:       "no_removal_order",
			Priority: PriorityCritical,
			Category: CategoryInventory,
			Message:  "removal orders are never an allowed recommendation",
			Fix:      "remove the removal order action",
			Check: func(f ProductFacts, actions []Action) bool {
				return HasAction(actions, ActionRemovalOrder)
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				return stripActions(actions, ActionRemovalOrder)
			},
		},
		{
			ID:       "stockout_pause_ads",
			Priority: PriorityHigh,
			Category: CategoryAdvertising,
			Message:  "a stocked-out product must pause advertising",
			Fix:      "add an ad pause action",
			Check: func(f ProductFacts, actions []Action) bool {
				return f.InventoryStatus == "stockout" && !HasAction(actions, ActionPauseAds)
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				return injectAction(actions, ActionPauseAds)
			},
		},
		{
			ID:       "conversion_below_floor",
			Priority: PriorityHigh,
			Category: CategoryAdvertising,
			Message:  fmt.Sprintf("conversion rate below %.0f%% of standard requires a minimum bid action", t.ConversionFloorFactor*100),
			Fix:      "add a minimum bid action",
			Check: func(f ProductFacts, actions []Action) bool {
				if f.StandardCVR == 0 {
					return false
				}
				return f.ConversionRate < t.ConversionFloorFactor*f.StandardCVR &&
					!HasAction(actions, ActionMinimumBid)
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				return injectAction(actions, ActionMinimumBid)
			},
		},
		{
			ID:       "no_budget_increase_high_acoas",
			Priority: PriorityHigh,
			Category: CategoryAdvertising,
			Message:  fmt.Sprintf("budget increases are forbidden while ACOAS exceeds %.0f%%", t.AcoasBudgetCeiling*100),
			Fix:      "remove the budget increase action",
			Check: func(f ProductFacts, actions []Action) bool {
				return f.ACOS > t.AcoasBudgetCeiling && HasAction(actions, ActionBudgetIncrease)
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				return stripActions(actions, ActionBudgetIncrease)
			},
		},
		{
			ID:       "coupon_discount_cap",
			Priority: PriorityMedium,
			Category: CategorySales,
			Message:  fmt.Sprintf("coupon discounts must not exceed %.0f%%", t.CouponCapPct),
			Fix:      fmt.Sprintf("clamp the coupon to %.0f%%", t.CouponCapPct),
			Check: func(f ProductFacts, actions []Action) bool {
				for _, a := range actions {
					if a.Type == ActionCoupon && a.CouponPct > t.CouponCapPct {
						return true
					}
				}
				return false
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				for i := range actions {
					if actions[i].Type == ActionCoupon && actions[i].CouponPct > t.CouponCapPct {
						actions[i].CouponPct = t.CouponCapPct
					}
				}
				return actions
			},
		},
		{
			ID:       "seasonal_no_restock",
			Priority: PriorityMedium,
			Category: CategoryInventory,
			Message:  "seasonal keyword products must not receive restock actions",
			Fix:      "remove restock and expedite actions",
			Check: func(f ProductFacts, actions []Action) bool {
				return f.Seasonal &&
					(HasAction(actions, ActionRestock) || HasAction(actions, ActionExpediteShipment))
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				return stripActions(actions, ActionRestock, ActionExpediteShipment)
			},
		},
		{
			ID:       "shortage_no_promotion",
			Priority: PriorityMedium,
			Category: CategorySales,
			Message:  "a product in shortage must not run demand-raising promotions",
			Fix:      "remove coupon actions",
			Check: func(f ProductFacts, actions []Action) bool {
				return f.InventoryStatus == "shortage" && HasAction(actions, ActionCoupon)
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				return stripActions(actions, ActionCoupon)
			},
		},
		{
			ID:       "excess_no_price_raise",
			Priority: PriorityMedium,
			Category: CategorySales,
			Message:  "a product with excess inventory must not raise its price",
			Fix:      "remove the price raise action",
			Check: func(f ProductFacts, actions []Action) bool {
				return f.InventoryStatus == "excess" && HasAction(actions, ActionRaisePrice)
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				return stripActions(actions, ActionRaisePrice)
			},
		},
		{
			ID:       "low_completeness_conservative",
			Priority: PriorityLow,
			Category: CategoryInventory,
			Message:  fmt.Sprintf("data completeness below %.0f%% forbids irreversible inventory actions", t.MinCompleteness*100),
			Fix:      "remove clearance actions",
			Check: func(f ProductFacts, actions []Action) bool {
				return f.DataCompleteness < t.MinCompleteness && HasAction(actions, ActionClearance)
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				return stripActions(actions, ActionClearance)
			},
		},
		{
			ID:       "action_list_bounds",
			Priority: PriorityLow,
			Category: CategorySales,
			Message:  fmt.Sprintf("the action plan must contain between 1 and %d actions", t.MaxActions),
			Fix:      "truncate or fill the action list",
			Check: func(f ProductFacts, actions []Action) bool {
				return len(actions) == 0 || len(actions) > t.MaxActions
			},
			correct: func(f ProductFacts, actions []Action) []Action {
				if len(actions) == 0 {
					return injectAction(actions, ActionMonitor)
				}
				if len(actions) > t.MaxActions {
					return actions[:t.MaxActions]
				}
				return actions
			},
		},
	}
}
