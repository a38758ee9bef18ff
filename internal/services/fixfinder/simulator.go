package fixfinder

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"sage-engine/internal/models"
	"sage-engine/internal/services/rules"
)

// Simulator evaluates what-if parameter changes against the product rules
// without touching the caller's scenario.
type Simulator struct {
	engine *rules.Engine
}

// NewSimulator creates a scenario simulator backed by the rules engine.
func NewSimulator(engine *rules.Engine) *Simulator {
	return &Simulator{engine: engine}
}

// feasibility bands the total magnitude of parameter changes.
func feasibility(changes map[string]float64) models.Feasibility {
	var total float64
	for _, v := range changes {
		total += math.Abs(v)
	}
	switch {
	case total < 5000:
		return models.FeasibilityEasy
	case total < 20000:
		return models.FeasibilityModerate
	case total < 50000:
		return models.FeasibilityHard
	default:
		return models.FeasibilityVeryHard
	}
}

// applyChanges copies the scenario and applies the recognized overrides.
// Unknown keys are ignored.
func applyChanges(scenario *models.LoanScenario, changes map[string]float64) models.LoanScenario {
	modified := *scenario
	for key, value := range changes {
		switch key {
		case "credit_score":
			modified.CreditScore = int(value)
		case "annual_income":
			modified.AnnualIncome = value
		case "loan_amount":
			modified.LoanAmount = value
		case "property_value":
			modified.PropertyValue = value
		case "monthly_debt_payments":
			modified.MonthlyDebtPayments = value
		}
	}
	return modified
}

// Simulate applies the changes to a copy of the scenario, re-runs both
// product checks, and reports which of the original violations the changes
// resolve. The input scenario is never mutated.
func (s *Simulator) Simulate(
	scenario *models.LoanScenario,
	changes map[string]float64,
	description string,
	originalViolations []models.RuleViolation,
) (models.SimulationResult, string) {
	modified := applyChanges(scenario, changes)

	result := s.engine.CheckEligibility(&modified)
	var homeReady, homePossible models.ProductResult
	for _, p := range result.Products {
		switch p.GSE {
		case models.GSEFannieMae:
			homeReady = p
		case models.GSEFreddieMac:
			homePossible = p
		}
	}

	remaining := make(map[string]bool)
	for _, v := range append(homeReady.Violations, homePossible.Violations...) {
		remaining[v.RuleName] = true
	}

	var resolved []string
	originalRules := make(map[string]bool)
	for _, v := range originalViolations {
		if originalRules[v.RuleName] {
			continue
		}
		originalRules[v.RuleName] = true
		if !remaining[v.RuleName] {
			resolved = append(resolved, v.RuleName)
		}
	}
	sort.Strings(resolved)

	remainingList := make([]string, 0, len(remaining))
	for rule := range remaining {
		remainingList = append(remainingList, rule)
	}
	sort.Strings(remainingList)

	paramChanges := make(map[string]string, len(changes))
	for key, value := range changes {
		paramChanges[key] = fmt.Sprintf("%.0f", value)
	}

	simulation := models.SimulationResult{
		ScenarioDescription:  description,
		ParameterChanges:     paramChanges,
		HomeReadyEligible:    homeReady.Eligible,
		HomePossibleEligible: homePossible.Eligible,
		ViolationsResolved:   resolved,
		RemainingViolations:  remainingList,
		Feasibility:          feasibility(changes),
	}

	summary := fmt.Sprintf(`Simulation: %s
Changes: %v
Modified LTV: %.1f%%, Modified DTI: %.1f%%
HomeReady: %s
Home Possible: %s
Feasibility: %s`,
		description,
		paramChanges,
		modified.LTV()*100,
		modified.DTI()*100,
		productStatus(homeReady),
		productStatus(homePossible),
		simulation.Feasibility,
	)

	return simulation, summary
}

func productStatus(product models.ProductResult) string {
	if product.Eligible {
		return "Eligible"
	}
	names := make([]string, len(product.Violations))
	for i, v := range product.Violations {
		names[i] = v.RuleName
	}
	return fmt.Sprintf("Ineligible (%s)", strings.Join(names, ", "))
}
