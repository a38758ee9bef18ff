// Package rules implements the eligibility rules engine for the
// HomeReady (Fannie Mae) and Home Possible (Freddie Mac) affordable
// lending products. The engine is a pure function of the loan scenario:
// no I/O, deterministic, safe for concurrent use.
//
// Rules are sourced from:
//   - Fannie Mae Selling Guide B5-6-01 (Loan and Borrower Eligibility)
//   - Fannie Mae Selling Guide B5-6-02 (Underwriting Methods and Requirements)
//   - Freddie Mac Guide 4501 (Home Possible Mortgages)
//   - Freddie Mac Guide 4501.5 (Underwriting Requirements)
package rules

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"sage-engine/internal/models"
)

// Conforming loan limits published by FHFA.
const (
	BaseLoanLimit2026     = 832750
	HighCostLoanLimit2026 = 1249125
)

// HomeReady product thresholds (Fannie Mae B5-6-01, B5-6-02).
const (
	homeReadyMinCreditScore = 620
	homeReadyMaxDTI         = 0.50
)

// Home Possible product thresholds (Freddie Mac 4501.5).
const (
	homePossibleMinCreditScore          = 660
	homePossibleMinCreditScoreMultiUnit = 700
	homePossibleMinCreditScoreManufact  = 680
	homePossibleMaxDTI                  = 0.45
)

// Shared LTV ceilings. Manufactured housing and 2-4 unit properties carry
// the lower ceiling for both products.
const (
	maxLTVStandard = 0.97
	maxLTVReduced  = 0.95
)

// homeReadyPropertyTypes lists property types eligible for HomeReady
// (Fannie Mae B5-6-01).
var homeReadyPropertyTypes = map[models.PropertyType]bool{
	models.PropertyTypeSingleFamily: true,
	models.PropertyTypeCondo:        true,
	models.PropertyTypePUD:          true,
	models.PropertyTypeTwoUnit:      true,
	models.PropertyTypeThreeUnit:    true,
	models.PropertyTypeFourUnit:     true,
	models.PropertyTypeManufactured: true,
	models.PropertyTypeCoop:         true,
}

// homePossiblePropertyTypes lists property types eligible for Home Possible
// (Freddie Mac 4501.3). PUD is not in the Home Possible set.
var homePossiblePropertyTypes = map[models.PropertyType]bool{
	models.PropertyTypeSingleFamily: true,
	models.PropertyTypeCondo:        true,
	models.PropertyTypeCoop:         true,
	models.PropertyTypeManufactured: true,
	models.PropertyTypeTwoUnit:      true,
	models.PropertyTypeThreeUnit:    true,
	models.PropertyTypeFourUnit:     true,
}

// Engine evaluates loan scenarios against GSE guidelines and generates
// eligibility status, detailed violations with citations, and actionable
// fix suggestions.
type Engine struct {
	baseLoanLimit     float64
	highCostLoanLimit float64
}

// NewEngine creates a rules engine with the current FHFA loan limits.
func NewEngine() *Engine {
	return &Engine{
		baseLoanLimit:     BaseLoanLimit2026,
		highCostLoanLimit: HighCostLoanLimit2026,
	}
}

// NewEngineWithLimits creates a rules engine with explicit loan limits.
func NewEngineWithLimits(baseLimit, highCostLimit float64) *Engine {
	return &Engine{
		baseLoanLimit:     baseLimit,
		highCostLoanLimit: highCostLimit,
	}
}

// HighCostLoanLimit returns the configured high-cost area conforming limit.
func (e *Engine) HighCostLoanLimit() float64 {
	return e.highCostLoanLimit
}

// CalculateLTV calculates the loan-to-value ratio. A non-positive property
// value returns 1.0 rather than dividing by zero.
func (e *Engine) CalculateLTV(loanAmount, propertyValue float64) float64 {
	if propertyValue <= 0 {
		return 1.0
	}
	return loanAmount / propertyValue
}

// CalculateDTI calculates the debt-to-income ratio for a scenario.
// Citation: Fannie Mae B3-6-02, Freddie Mac 5401.2.
func (e *Engine) CalculateDTI(scenario *models.LoanScenario) float64 {
	return scenario.DTI()
}

// CheckEligibility is the main entry point. It evaluates both products,
// generates fix suggestions for all violations, and produces a summary
// recommendation.
func (e *Engine) CheckEligibility(scenario *models.LoanScenario) *models.EligibilityResult {
	ltv := e.CalculateLTV(scenario.LoanAmount, scenario.PropertyValue)
	dti := e.CalculateDTI(scenario)

	homeReady := e.CheckHomeReady(scenario, ltv, dti)
	homePossible := e.CheckHomePossible(scenario, ltv, dti)

	allViolations := append(append([]models.RuleViolation{}, homeReady.Violations...), homePossible.Violations...)

	return &models.EligibilityResult{
		Scenario:       *scenario,
		CalculatedLTV:  round4(ltv),
		CalculatedDTI:  round4(dti),
		Products:       []models.ProductResult{homeReady, homePossible},
		Recommendation: e.recommend(homeReady, homePossible, scenario),
		FixSuggestions: e.GenerateFixSuggestions(scenario, allViolations, ltv, dti),
	}
}

// CheckHomeReady checks eligibility for Fannie Mae HomeReady.
//
// Requirements (Fannie Mae B5-6-01, B5-6-02): min credit score 620,
// max DTI 50%, max LTV 97% (95% for manufactured/multi-unit), primary
// residence only, eligible property type, conforming loan amount.
func (e *Engine) CheckHomeReady(scenario *models.LoanScenario, ltv, dti float64) models.ProductResult {
	var violations []models.RuleViolation

	if scenario.CreditScore < homeReadyMinCreditScore {
		violations = append(violations, models.RuleViolation{
			RuleName:        "min_credit_score",
			RuleDescription: "Minimum credit score requirement",
			ActualValue:     fmt.Sprintf("%d", scenario.CreditScore),
			RequiredValue:   fmt.Sprintf(">= %d", homeReadyMinCreditScore),
			Citation:        "Fannie Mae Selling Guide B5-6-02",
		})
	}

	if dti > homeReadyMaxDTI {
		violations = append(violations, models.RuleViolation{
			RuleName:        "max_dti",
			RuleDescription: "Maximum debt-to-income ratio",
			ActualValue:     fmt.Sprintf("%.1f%%", dti*100),
			RequiredValue:   fmt.Sprintf("<= %.0f%%", homeReadyMaxDTI*100),
			Citation:        "Fannie Mae Selling Guide B5-6-02",
		})
	}

	maxLTV := maxLTVStandard
	ltvCitation := "Fannie Mae Selling Guide B5-6-01"
	switch {
	case scenario.PropertyType == models.PropertyTypeManufactured:
		maxLTV = maxLTVReduced
		ltvCitation = "Fannie Mae Selling Guide B5-6-01 (Manufactured Housing)"
	case scenario.PropertyType.IsMultiUnit():
		maxLTV = maxLTVReduced
		ltvCitation = "Fannie Mae Selling Guide B5-6-01 (Multi-unit)"
	}

	if ltv > maxLTV {
		violations = append(violations, models.RuleViolation{
			RuleName:        "max_ltv",
			RuleDescription: "Maximum loan-to-value ratio",
			ActualValue:     fmt.Sprintf("%.1f%%", ltv*100),
			RequiredValue:   fmt.Sprintf("<= %.0f%%", maxLTV*100),
			Citation:        ltvCitation,
		})
	}

	if !strings.EqualFold(string(scenario.Occupancy), string(models.OccupancyPrimary)) {
		violations = append(violations, models.RuleViolation{
			RuleName:        "occupancy",
			RuleDescription: "Property must be primary residence",
			ActualValue:     string(scenario.Occupancy),
			RequiredValue:   "primary",
			Citation:        "Fannie Mae Selling Guide B5-6-01",
		})
	}

	if !homeReadyPropertyTypes[scenario.PropertyType] {
		violations = append(violations, models.RuleViolation{
			RuleName:        "property_type",
			RuleDescription: "Eligible property type",
			ActualValue:     string(scenario.PropertyType),
			RequiredValue:   propertyTypeList(homeReadyPropertyTypes),
			Citation:        "Fannie Mae Selling Guide B5-6-01",
		})
	}

	if scenario.LoanAmount > e.highCostLoanLimit {
		violations = append(violations, models.RuleViolation{
			RuleName:        "loan_limit",
			RuleDescription: "Maximum conforming loan amount",
			ActualValue:     fmt.Sprintf("$%.0f", scenario.LoanAmount),
			RequiredValue:   fmt.Sprintf("<= $%.0f", e.highCostLoanLimit),
			Citation:        "Fannie Mae Selling Guide B5-6-01, FHFA Loan Limits",
		})
	}

	// LTV above 95% requires a fixed-rate loan with a term of at most
	// 30 years (all loans are assumed fixed-rate here).
	if ltv > maxLTVReduced && scenario.LoanTermYears > 30 {
		violations = append(violations, models.RuleViolation{
			RuleName:        "loan_term",
			RuleDescription: "Maximum loan term for high LTV",
			ActualValue:     fmt.Sprintf("%d years", scenario.LoanTermYears),
			RequiredValue:   "<= 30 years",
			Citation:        "Fannie Mae Selling Guide B5-6-01",
		})
	}

	return models.ProductResult{
		ProductName: "HomeReady",
		GSE:         models.GSEFannieMae,
		Eligible:    len(violations) == 0,
		Violations:  violations,
	}
}

// CheckHomePossible checks eligibility for Freddie Mac Home Possible.
//
// Requirements (Freddie Mac 4501, 4501.5): min credit score 660 (700 for
// 2-4 unit, 680 for manufactured homes), max DTI 45%, max LTV 97% (95% for
// manufactured/multi-unit), primary residence only, eligible property type,
// conforming loan amount.
func (e *Engine) CheckHomePossible(scenario *models.LoanScenario, ltv, dti float64) models.ProductResult {
	var violations []models.RuleViolation

	minCreditScore := homePossibleMinCreditScore
	scoreCitation := "Freddie Mac Guide 4501.5"
	switch {
	case scenario.PropertyType.IsMultiUnit():
		minCreditScore = homePossibleMinCreditScoreMultiUnit
		scoreCitation = "Freddie Mac Guide 4501.5 (2-4 unit)"
	case scenario.PropertyType == models.PropertyTypeManufactured:
		minCreditScore = homePossibleMinCreditScoreManufact
		scoreCitation = "Freddie Mac Guide 4501.5 (Manufactured Home)"
	}

	if scenario.CreditScore < minCreditScore {
		violations = append(violations, models.RuleViolation{
			RuleName:        "min_credit_score",
			RuleDescription: "Minimum credit score requirement",
			ActualValue:     fmt.Sprintf("%d", scenario.CreditScore),
			RequiredValue:   fmt.Sprintf(">= %d", minCreditScore),
			Citation:        scoreCitation,
		})
	}

	if dti > homePossibleMaxDTI {
		violations = append(violations, models.RuleViolation{
			RuleName:        "max_dti",
			RuleDescription: "Maximum debt-to-income ratio",
			ActualValue:     fmt.Sprintf("%.1f%%", dti*100),
			RequiredValue:   fmt.Sprintf("<= %.0f%%", homePossibleMaxDTI*100),
			Citation:        "Freddie Mac Guide 4501.5, 5401.2",
		})
	}

	maxLTV := maxLTVStandard
	ltvCitation := "Freddie Mac Guide 4501.7"
	switch {
	case scenario.PropertyType == models.PropertyTypeManufactured:
		maxLTV = maxLTVReduced
		ltvCitation = "Freddie Mac Guide 4501.7, 5703.8 (Manufactured Home)"
	case scenario.PropertyType.IsMultiUnit():
		maxLTV = maxLTVReduced
		ltvCitation = "Freddie Mac Guide 4501.7 (Multi-unit)"
	}

	if ltv > maxLTV {
		violations = append(violations, models.RuleViolation{
			RuleName:        "max_ltv",
			RuleDescription: "Maximum loan-to-value ratio",
			ActualValue:     fmt.Sprintf("%.1f%%", ltv*100),
			RequiredValue:   fmt.Sprintf("<= %.0f%%", maxLTV*100),
			Citation:        ltvCitation,
		})
	}

	if !strings.EqualFold(string(scenario.Occupancy), string(models.OccupancyPrimary)) {
		violations = append(violations, models.RuleViolation{
			RuleName:        "occupancy",
			RuleDescription: "Property must be primary residence",
			ActualValue:     string(scenario.Occupancy),
			RequiredValue:   "primary",
			Citation:        "Freddie Mac Guide 4501.4",
		})
	}

	if !homePossiblePropertyTypes[scenario.PropertyType] {
		violations = append(violations, models.RuleViolation{
			RuleName:        "property_type",
			RuleDescription: "Eligible property type",
			ActualValue:     string(scenario.PropertyType),
			RequiredValue:   propertyTypeList(homePossiblePropertyTypes),
			Citation:        "Freddie Mac Guide 4501.3",
		})
	}

	if scenario.LoanAmount > e.highCostLoanLimit {
		violations = append(violations, models.RuleViolation{
			RuleName:        "loan_limit",
			RuleDescription: "Maximum conforming loan amount",
			ActualValue:     fmt.Sprintf("$%.0f", scenario.LoanAmount),
			RequiredValue:   fmt.Sprintf("<= $%.0f", e.highCostLoanLimit),
			Citation:        "Freddie Mac Guide 4203.1, FHFA Loan Limits",
		})
	}

	return models.ProductResult{
		ProductName: "Home Possible",
		GSE:         models.GSEFreddieMac,
		Eligible:    len(violations) == 0,
		Violations:  violations,
	}
}

// recommend generates a summary recommendation from the two product results.
func (e *Engine) recommend(homeReady, homePossible models.ProductResult, scenario *models.LoanScenario) string {
	switch {
	case homeReady.Eligible && homePossible.Eligible:
		if scenario.CreditScore >= 700 {
			return fmt.Sprintf(
				"Congratulations! You are eligible for both HomeReady (Fannie Mae) and "+
					"Home Possible (Freddie Mac). With your credit score of %d, you may "+
					"qualify for better pricing through either program. Compare lender "+
					"offerings for both programs to find the best rate and terms.",
				scenario.CreditScore)
		}
		return "Congratulations! You are eligible for both HomeReady (Fannie Mae) and " +
			"Home Possible (Freddie Mac). Both programs offer similar benefits including " +
			"low down payment options and reduced mortgage insurance costs. " +
			"Shop multiple lenders to compare rates."

	case homeReady.Eligible:
		return "You are eligible for Fannie Mae HomeReady but not Freddie Mac Home Possible. " +
			"HomeReady has a lower credit score requirement (620 vs 660) and allows up to " +
			"50% DTI (vs 45%). Work with a lender who offers HomeReady to proceed."

	case homePossible.Eligible:
		return "You are eligible for Freddie Mac Home Possible but not Fannie Mae HomeReady. " +
			"Home Possible offers similar benefits including low down payment and income " +
			"limit flexibility. Work with a lender who offers Home Possible to proceed."

	default:
		hrCount := len(homeReady.Violations)
		hpCount := len(homePossible.Violations)
		if hrCount <= hpCount {
			return fmt.Sprintf(
				"You are not currently eligible for either program. HomeReady (Fannie Mae) "+
					"has %d violation(s) and Home Possible (Freddie Mac) has %d violation(s). "+
					"Review the fix suggestions below - HomeReady may be easier to qualify "+
					"for with its more flexible requirements.",
				hrCount, hpCount)
		}
		return fmt.Sprintf(
			"You are not currently eligible for either program. Home Possible has %d "+
				"violation(s) compared to HomeReady's %d. Review the fix suggestions below "+
				"to see how you can become eligible.",
			hpCount, hrCount)
	}
}

func propertyTypeList(types map[models.PropertyType]bool) string {
	names := make([]string, 0, len(types))
	for t := range types {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
