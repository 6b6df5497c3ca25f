package diagnosis

import (
	"github.com/amzops/sellerpulse/internal/rules"
)

// draftActions maps the selected scenario to its fixed action list. On a
// regeneration pass the previous round's violations are applied as mechanical
// corrections so the redraft is already closer to compliant.
func (e *Engine) draftActions(s *State) {
	actions := scenarioActions(s.Scenario)

	if len(s.Violations) > 0 {
		actions = e.rules.Correct(s.Facts(), actions, s.Violations)
	}

	s.Actions = actions
}

// scenarioActions is the fixed scenario→actions table. Exactly one branch
// executes per draft.
func scenarioActions(sc Scenario) []rules.Action {
	switch sc {
	case ScenarioInventoryShortage:
		return []rules.Action{
			{
				Type:        rules.ActionExpediteShipment,
				Category:    rules.CategoryInventory,
				Description: "Expedite replenishment by air freight to close the coverage gap",
			},
			{
				Type:        rules.ActionDelayPromotion,
				Category:    rules.CategorySales,
				Description: "Postpone planned promotions until stock recovers",
			},
			{
				Type:        rules.ActionRaisePrice,
				Category:    rules.CategorySales,
				Description: "Raise the price moderately to slow sell-through",
			},
		}
	case ScenarioConversionInsufficient:
		return []rules.Action{
			{
				Type:        rules.ActionCoupon,
				Category:    rules.CategorySales,
				Description: "Offer a 10% coupon to lift conversion",
				CouponPct:   10,
			},
			{
				Type:        rules.ActionBudgetCap,
				Category:    rules.CategoryAdvertising,
				Description: "Cap the daily ad budget while conversion is below standard",
			},
			{
				Type:        rules.ActionListingOptimization,
				Category:    rules.CategorySales,
				Description: "Rework the listing's images and bullet points against top competitors",
			},
		}
	case ScenarioAdInsufficient:
		return []rules.Action{
			{
				Type:        rules.ActionBudgetIncrease,
				Category:    rules.CategoryAdvertising,
				Description: "Increase the daily ad budget to recover lost impression share",
			},
			{
				Type:        rules.ActionListingOptimization,
				Category:    rules.CategoryAdvertising,
				Description: "Refresh the main image and title keywords to raise click-through",
			},
		}
	case ScenarioInventoryExcess:
		return []rules.Action{
			{
				Type:        rules.ActionCoupon,
				Category:    rules.CategorySales,
				Description: "Run a 15% coupon to accelerate sell-through",
				CouponPct:   15,
			},
			{
				Type:        rules.ActionLowerPrice,
				Category:    rules.CategorySales,
				Description: "Lower the price toward the category median",
			},
			{
				Type:        rules.ActionClearance,
				Category:    rules.CategoryInventory,
				Description: "Move aged units into a clearance campaign",
			},
		}
	case ScenarioAdCostHigh:
		return []rules.Action{
			{
				Type:        rules.ActionBidReduction,
				Category:    rules.CategoryAdvertising,
				Description: "Reduce bids on high-ACOS keywords by 20%",
			},
			{
				Type:        rules.ActionBudgetCap,
				Category:    rules.CategoryAdvertising,
				Description: "Cap the daily ad budget until spend efficiency recovers",
			},
		}
	default: // healthy_operation
		return []rules.Action{
			{
				Type:        rules.ActionMonitor,
				Category:    rules.CategorySales,
				Description: "Hold current operations and review at the next snapshot",
			},
		}
	}
}
