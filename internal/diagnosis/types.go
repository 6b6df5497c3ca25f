package diagnosis

import (
	"errors"
	"time"

	"github.com/amzops/sellerpulse/internal/persistence"
	"github.com/amzops/sellerpulse/internal/rules"
)

// ErrValidation marks rejected diagnosis input. Never retried automatically.
var ErrValidation = errors.New("diagnosis input validation failed")

// Scenario is the single dominant diagnosis selected for a product. The
// priority order is total: inventory risk always outranks advertising
// efficiency.
type Scenario string

const (
	ScenarioInventoryShortage      Scenario = "inventory_shortage"
	ScenarioConversionInsufficient Scenario = "conversion_insufficient"
	ScenarioAdInsufficient         Scenario = "ad_insufficient"
	ScenarioInventoryExcess        Scenario = "inventory_excess"
	ScenarioAdCostHigh             Scenario = "ad_cost_high"
	ScenarioHealthy                Scenario = "healthy_operation"
)

// RiskLevel grades the overall urgency of a diagnosis.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// TrendDeltas carries optional period-over-period movement for the sales
// analysis stage.
type TrendDeltas struct {
	RevenueDelta  float64 `json:"revenue_delta"`
	QuantityDelta float64 `json:"quantity_delta"`
}

// AggregationMeta describes a multi-day aggregated input so validation can
// judge completeness.
type AggregationMeta struct {
	WindowDays      int     `json:"window_days"`
	DataPointsCount int     `json:"data_points_count"`
	MissingDays     int     `json:"missing_days"`
	Completeness    float64 `json:"completeness"`
}

// ProductAnalysisData is the single input record for one diagnosis run.
type ProductAnalysisData struct {
	ASIN              string                       `json:"asin"`
	WarehouseLocation string                       `json:"warehouse_location"`
	ProductName       string                       `json:"product_name,omitempty"`
	SKU               string                       `json:"sku,omitempty"`
	CustomerPrice     float64                      `json:"customer_price,omitempty"`
	Seasonal          bool                         `json:"seasonal,omitempty"`

	FBAAvailable    float64                    `json:"fba_available"`
	TotalInventory  float64                    `json:"total_inventory"`
	AvgDailySales   float64                    `json:"avg_daily_sales"`
	DailyRevenue    float64                    `json:"daily_revenue"`
	TurnoverDays    float64                    `json:"turnover_days"`
	InventoryStatus persistence.InventoryStatus `json:"inventory_status"`

	SalesAmount   float64 `json:"sales_amount"`
	SalesQuantity float64 `json:"sales_quantity"`
	Impressions   float64 `json:"impressions"`
	Clicks        float64 `json:"clicks"`
	AdSpend       float64 `json:"ad_spend"`
	AdOrders      float64 `json:"ad_orders"`

	Trend       *TrendDeltas     `json:"trend,omitempty"`
	Aggregation *AggregationMeta `json:"aggregation,omitempty"`
}

// Price returns the customer price, deriving it from window sales when the
// input does not carry one.
func (p ProductAnalysisData) Price() float64 {
	if p.CustomerPrice > 0 {
		return p.CustomerPrice
	}
	if p.SalesQuantity > 0 {
		return p.SalesAmount / p.SalesQuantity
	}
	return 0
}

// Completeness returns the data completeness score, treating single-day
// inputs as complete.
func (p ProductAnalysisData) Completeness() float64 {
	if p.Aggregation == nil {
		return 1
	}
	return p.Aggregation.Completeness
}

// InventoryAnalysis holds the deterministic inventory health signals.
type InventoryAnalysis struct {
	IsShortage     bool      `json:"is_shortage"` // turnover below the shortage threshold
	IsExcess       bool      `json:"is_excess"`   // turnover above the excess threshold
	OutOfStockRisk RiskLevel `json:"out_of_stock_risk"`
	DaysOfCover    float64   `json:"days_of_cover"` // FBA stock at current velocity
}

// AdvertisingAnalysis holds the deterministic advertising health signals.
// Rates are ratios, not percentages.
type AdvertisingAnalysis struct {
	CTR             float64 `json:"ctr"`
	CVR             float64 `json:"cvr"`
	Acoas           float64 `json:"acoas"`
	StandardCVR     float64 `json:"standard_cvr"` // price-tier benchmark
	IsConversionLow bool    `json:"is_conversion_low"`
	IsAcoasHigh     bool    `json:"is_acoas_high"`
	IsAcoasLow      bool    `json:"is_acoas_low"`
	IsCtrLow        bool    `json:"is_ctr_low"`
}

// SalesAnalysis holds trend signals and the effective inventory point flag.
type SalesAnalysis struct {
	RevenueDelta            float64 `json:"revenue_delta"`
	QuantityDelta           float64 `json:"quantity_delta"`
	EffectiveInventoryPoint bool    `json:"effective_inventory_point"`
}

// State is the mutable record threaded through the pipeline stages. One per
// diagnosis run; discarded after the final report is rendered.
type State struct {
	Input ProductAnalysisData

	Inventory   *InventoryAnalysis
	Advertising *AdvertisingAnalysis
	Sales       *SalesAnalysis

	Scenario   Scenario
	Actions    []rules.Action
	Violations []rules.Violation

	// Regenerations counts draft→validate→draft loops; hard-capped so the
	// pipeline always terminates.
	Regenerations int

	// CriticalSeen records whether any critical violation was ever raised,
	// even if later corrected.
	CriticalSeen bool

	AnalysisText   string
	ActionPlanText string

	Completed bool
	Err       error
}

// Facts projects the state onto the rule engine's evidence record.
func (s *State) Facts() rules.ProductFacts {
	f := rules.ProductFacts{
		InventoryStatus:  string(s.Input.InventoryStatus),
		Seasonal:         s.Input.Seasonal,
		DataCompleteness: s.Input.Completeness(),
	}
	if s.Advertising != nil {
		f.ACOS = s.Advertising.Acoas
		f.ConversionRate = s.Advertising.CVR
		f.StandardCVR = s.Advertising.StandardCVR
	}
	return f
}

// Recommendations buckets final action descriptions for downstream rendering.
type Recommendations struct {
	Inventory   []string `json:"inventory"`
	Sales       []string `json:"sales"`
	Advertising []string `json:"advertising"`
}

// Result is the only artifact handed back to the caller.
type Result struct {
	ASIN              string            `json:"asin"`
	WarehouseLocation string            `json:"warehouse_location"`
	Scenario          Scenario          `json:"scenario"`
	RiskLevel         RiskLevel         `json:"risk_level"`
	Analysis          string            `json:"analysis"`
	ActionPlan        string            `json:"action_plan"`
	Recommendations   Recommendations   `json:"recommendations"`
	Violations        []rules.Violation `json:"violations,omitempty"`
	GeneratedAt       time.Time         `json:"generated_at"`
}
