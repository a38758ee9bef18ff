// Package models defines the data structures for the SAGE eligibility engine.
package models

import (
	"math"
)

// PropertyType represents the type of property securing the loan.
type PropertyType string

const (
	PropertyTypeSingleFamily PropertyType = "single_family"
	PropertyTypeCondo        PropertyType = "condo"
	PropertyTypePUD          PropertyType = "pud"
	PropertyTypeTwoUnit      PropertyType = "2_unit"
	PropertyTypeThreeUnit    PropertyType = "3_unit"
	PropertyTypeFourUnit     PropertyType = "4_unit"
	PropertyTypeManufactured PropertyType = "manufactured"
	PropertyTypeCoop         PropertyType = "coop"
)

// IsMultiUnit reports whether the property is a 2-4 unit dwelling.
func (p PropertyType) IsMultiUnit() bool {
	return p == PropertyTypeTwoUnit || p == PropertyTypeThreeUnit || p == PropertyTypeFourUnit
}

// Occupancy represents how the borrower intends to occupy the property.
type Occupancy string

const (
	OccupancyPrimary    Occupancy = "primary"
	OccupancySecondary  Occupancy = "secondary"
	OccupancyInvestment Occupancy = "investment"
)

// GSE identifies a government-sponsored enterprise.
type GSE string

const (
	GSEFannieMae  GSE = "fannie_mae"
	GSEFreddieMac GSE = "freddie_mac"
)

// Difficulty grades how hard a fix is to implement.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

// LoanScenario is the input scenario for an eligibility check.
// Treated as immutable once constructed; simulations operate on a copy.
type LoanScenario struct {
	CreditScore         int          `json:"credit_score"`
	AnnualIncome        float64      `json:"annual_income"`
	IsFirstTimeBuyer    bool         `json:"is_first_time_buyer"`
	LoanAmount          float64      `json:"loan_amount"`
	PropertyValue       float64      `json:"property_value"`
	LoanTermYears       int          `json:"loan_term_years"`
	MonthlyDebtPayments float64      `json:"monthly_debt_payments"`
	PropertyType        PropertyType `json:"property_type"`
	PropertyState       string       `json:"property_state,omitempty"`
	PropertyCounty      string       `json:"property_county,omitempty"`
	Occupancy           Occupancy    `json:"occupancy"`
}

// MonthlyIncome returns the gross monthly income.
func (s *LoanScenario) MonthlyIncome() float64 {
	return s.AnnualIncome / 12
}

// LTV calculates the loan-to-value ratio as a decimal (e.g. 0.875 for 87.5%).
// A non-positive property value is treated as maximally unfavorable.
func (s *LoanScenario) LTV() float64 {
	if s.PropertyValue <= 0 {
		return 1.0
	}
	return s.LoanAmount / s.PropertyValue
}

// estimatedRate is the annual rate assumed for the P&I estimate.
const estimatedRate = 0.06

// taxInsuranceRate approximates annual property taxes and insurance as a
// share of property value.
const taxInsuranceRate = 0.015

// DTI calculates the debt-to-income ratio as a decimal. The housing expense
// is estimated from a fixed-rate amortization at 6% plus a tax/insurance
// load of 1.5%/year of property value. A non-positive income is treated as
// maximally unfavorable.
func (s *LoanScenario) DTI() float64 {
	monthlyIncome := s.MonthlyIncome()
	if monthlyIncome <= 0 {
		return 1.0
	}

	monthlyRate := estimatedRate / 12
	numPayments := float64(s.LoanTermYears * 12)
	if numPayments <= 0 {
		numPayments = 360
	}

	var monthlyPI float64
	if monthlyRate > 0 {
		factor := math.Pow(1+monthlyRate, numPayments)
		monthlyPI = s.LoanAmount * (monthlyRate * factor) / (factor - 1)
	} else {
		monthlyPI = s.LoanAmount / numPayments
	}

	monthlyTaxesInsurance := (s.PropertyValue * taxInsuranceRate) / 12
	monthlyHousing := monthlyPI + monthlyTaxesInsurance

	return (monthlyHousing + s.MonthlyDebtPayments) / monthlyIncome
}

// RuleViolation is a single rule violation with citation.
// Constructed only for a failing check, never for a passing one.
type RuleViolation struct {
	RuleName        string `json:"rule_name"`
	RuleDescription string `json:"rule_description"`
	ActualValue     string `json:"actual_value"`
	RequiredValue   string `json:"required_value"`
	Citation        string `json:"citation"`
}

// FixSuggestion is an actionable suggestion to fix a violation.
type FixSuggestion struct {
	Description string     `json:"description"`
	Impact      string     `json:"impact"`
	Difficulty  Difficulty `json:"difficulty"`
}

// ProductResult is the eligibility result for a single product.
// Eligible is true iff Violations is empty.
type ProductResult struct {
	ProductName string          `json:"product_name"`
	GSE         GSE             `json:"gse"`
	Eligible    bool            `json:"eligible"`
	Violations  []RuleViolation `json:"violations"`
}

// EligibilityResult is the complete eligibility result for all products.
type EligibilityResult struct {
	Scenario       LoanScenario    `json:"scenario"`
	CalculatedLTV  float64         `json:"calculated_ltv"`
	CalculatedDTI  float64         `json:"calculated_dti"`
	Products       []ProductResult `json:"products"`
	Recommendation string          `json:"recommendation"`
	FixSuggestions []FixSuggestion `json:"fix_suggestions"`
}

// AllViolations flattens the violations from every product.
func (r *EligibilityResult) AllViolations() []RuleViolation {
	var all []RuleViolation
	for _, p := range r.Products {
		all = append(all, p.Violations...)
	}
	return all
}
