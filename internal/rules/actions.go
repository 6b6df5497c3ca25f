package rules

// ActionType classifies an operational recommendation so rules can reason
// about action lists without parsing prose.
type ActionType string

const (
	ActionBidReduction        ActionType = "bid_reduction"
	ActionMinimumBid          ActionType = "minimum_bid"
	ActionPauseAds            ActionType = "pause_ads"
	ActionBudgetIncrease      ActionType = "budget_increase"
	ActionBudgetCap           ActionType = "budget_cap"
	ActionCoupon              ActionType = "coupon"
	ActionDelayPromotion      ActionType = "delay_promotion"
	ActionRaisePrice          ActionType = "raise_price"
	ActionLowerPrice          ActionType = "lower_price"
	ActionRestock             ActionType = "restock"
	ActionExpediteShipment    ActionType = "expedite_shipment"
	ActionRemovalOrder        ActionType = "removal_order"
	ActionClearance           ActionType = "clearance"
	ActionListingOptimization ActionType = "listing_optimization"
	ActionMonitor             ActionType = "monitor"
)

// Category buckets an action for the downstream report.
type Category string

const (
	CategoryInventory   Category = "inventory"
	CategorySales       Category = "sales"
	CategoryAdvertising Category = "advertising"
)

// Action is one draft recommendation. CouponPct is only meaningful for coupon
// actions and is expressed in percent, not a ratio.
type Action struct {
	Type        ActionType `json:"type"`
	Category    Category   `json:"category"`
	Description string     `json:"description"`
	CouponPct   float64    `json:"coupon_pct,omitempty"`
}

// HasAction reports whether the list contains an action of the given type.
func HasAction(actions []Action, t ActionType) bool {
	for _, a := range actions {
		if a.Type == t {
			return true
		}
	}
	return false
}

// canonicalActions are the mechanical fixes injected by Correct when a rule
// demands an action type that the draft is missing.
var canonicalActions = map[ActionType]Action{
	ActionBidReduction: {
		Type:        ActionBidReduction,
		Category:    CategoryAdvertising,
		Description: "Reduce keyword bids by 20% to bring ad spend back in line with sales",
	},
	ActionPauseAds: {
		Type:        ActionPauseAds,
		Category:    CategoryAdvertising,
		Description: "Pause all advertising campaigns until spend efficiency recovers",
	},
	ActionMinimumBid: {
		Type:        ActionMinimumBid,
		Category:    CategoryAdvertising,
		Description: "Drop bids to the minimum while the listing conversion rate is rebuilt",
	},
	ActionMonitor: {
		Type:        ActionMonitor,
		Category:    CategorySales,
		Description: "Hold current operations and review again after the next snapshot",
	},
}
