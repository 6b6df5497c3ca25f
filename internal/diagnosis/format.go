package diagnosis

import (
	"fmt"
	"strings"
)

// scenarioHeadlines are the deterministic one-line summaries per scenario.
var scenarioHeadlines = map[Scenario]string{
	ScenarioInventoryShortage:      "Inventory shortage: stock cover is too thin for current sales velocity.",
	ScenarioConversionInsufficient: "Conversion below standard: traffic is arriving but not converting.",
	ScenarioAdInsufficient:         "Advertising under-invested: the product is not buying enough visibility.",
	ScenarioInventoryExcess:        "Inventory excess: stock on hand far outruns sales velocity.",
	ScenarioAdCostHigh:             "Advertising cost too high: ad spend is outpacing the sales it drives.",
	ScenarioHealthy:                "Healthy operation: inventory and advertising are within normal bands.",
}

// formatOutput renders the two-part report from the accumulated state. Pure
// formatting: every number and flag quoted here was decided upstream.
func (e *Engine) formatOutput(s *State) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", scenarioHeadlines[s.Scenario])

	if inv := s.Inventory; inv != nil {
		fmt.Fprintf(&b, "Inventory: %.0f units on hand (%.0f in FBA), turnover %.1f days, status %s.",
			s.Input.TotalInventory, s.Input.FBAAvailable, s.Input.TurnoverDays, s.Input.InventoryStatus)
		if inv.DaysOfCover > 0 {
			fmt.Fprintf(&b, " FBA cover at current velocity: %.1f days (out-of-stock risk %s).",
				inv.DaysOfCover, inv.OutOfStockRisk)
		}
		b.WriteString("\n")
	}

	if adv := s.Advertising; adv != nil {
		fmt.Fprintf(&b, "Advertising: CTR %.2f%%, CVR %.2f%% against a %.2f%% price-tier standard, ACOAS %.1f%%.",
			adv.CTR*100, adv.CVR*100, adv.StandardCVR*100, adv.Acoas*100)
		var flags []string
		if adv.IsCtrLow {
			flags = append(flags, "low click-through")
		}
		if adv.IsConversionLow {
			flags = append(flags, "low conversion")
		}
		if adv.IsAcoasHigh {
			flags = append(flags, "overspending")
		}
		if adv.IsAcoasLow {
			flags = append(flags, "underspending")
		}
		if len(flags) > 0 {
			fmt.Fprintf(&b, " Flags: %s.", strings.Join(flags, ", "))
		}
		b.WriteString("\n")
	}

	if sales := s.Sales; sales != nil {
		fmt.Fprintf(&b, "Sales: %.2f/day revenue", s.Input.DailyRevenue)
		if sales.RevenueDelta != 0 || sales.QuantityDelta != 0 {
			fmt.Fprintf(&b, " (revenue %+.1f%%, units %+.1f%% vs prior period)",
				sales.RevenueDelta, sales.QuantityDelta)
		}
		if sales.EffectiveInventoryPoint {
			b.WriteString("; above the effective inventory point")
		}
		b.WriteString(".\n")
	}

	s.AnalysisText = strings.TrimRight(b.String(), "\n")

	var plan strings.Builder
	for i, a := range s.Actions {
		fmt.Fprintf(&plan, "%d. [%s] %s", i+1, a.Category, a.Description)
		if i < len(s.Actions)-1 {
			plan.WriteString("\n")
		}
	}
	s.ActionPlanText = plan.String()
}

// BuildResult projects a finished state onto the external result record.
func (e *Engine) BuildResult(s *State) *Result {
	r := &Result{
		ASIN:              s.Input.ASIN,
		WarehouseLocation: s.Input.WarehouseLocation,
		Scenario:          s.Scenario,
		RiskLevel:         e.RiskLevel(s),
		Analysis:          s.AnalysisText,
		ActionPlan:        s.ActionPlanText,
		Violations:        s.Violations,
	}

	for _, a := range s.Actions {
		switch a.Category {
		case "inventory":
			r.Recommendations.Inventory = append(r.Recommendations.Inventory, a.Description)
		case "advertising":
			r.Recommendations.Advertising = append(r.Recommendations.Advertising, a.Description)
		default:
			r.Recommendations.Sales = append(r.Recommendations.Sales, a.Description)
		}
	}

	return r
}
