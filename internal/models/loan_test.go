package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sage-engine/internal/models"
)

func TestLoanScenario_LTV(t *testing.T) {
	tests := []struct {
		name          string
		loanAmount    float64
		propertyValue float64
		expected      float64
	}{
		{"standard", 350000, 400000, 0.875},
		{"full financing", 400000, 400000, 1.0},
		{"zero property value", 350000, 0, 1.0},
		{"negative property value", 350000, -100, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &models.LoanScenario{LoanAmount: tt.loanAmount, PropertyValue: tt.propertyValue}
			assert.InDelta(t, tt.expected, s.LTV(), 0.0001)
		})
	}
}

func TestLoanScenario_DTI(t *testing.T) {
	s := &models.LoanScenario{
		AnnualIncome:        85000,
		LoanAmount:          350000,
		PropertyValue:       400000,
		LoanTermYears:       30,
		MonthlyDebtPayments: 500,
	}

	dti := s.DTI()
	// ~$2,098 P&I + $500 taxes/insurance + $500 debts over $7,083/month.
	assert.InDelta(t, 0.4374, dti, 0.005)
}

func TestLoanScenario_DTI_NonPositiveIncome(t *testing.T) {
	s := &models.LoanScenario{AnnualIncome: 0, LoanAmount: 350000, PropertyValue: 400000}
	assert.Equal(t, 1.0, s.DTI())

	s.AnnualIncome = -50000
	assert.Equal(t, 1.0, s.DTI())
}

func TestLoanScenario_DTI_ZeroTermDefaultsToThirtyYears(t *testing.T) {
	withTerm := &models.LoanScenario{
		AnnualIncome:  85000,
		LoanAmount:    350000,
		PropertyValue: 400000,
		LoanTermYears: 30,
	}
	withoutTerm := &models.LoanScenario{
		AnnualIncome:  85000,
		LoanAmount:    350000,
		PropertyValue: 400000,
	}
	assert.InDelta(t, withTerm.DTI(), withoutTerm.DTI(), 0.0001)
}

func TestPropertyType_IsMultiUnit(t *testing.T) {
	assert.True(t, models.PropertyTypeTwoUnit.IsMultiUnit())
	assert.True(t, models.PropertyTypeThreeUnit.IsMultiUnit())
	assert.True(t, models.PropertyTypeFourUnit.IsMultiUnit())
	assert.False(t, models.PropertyTypeSingleFamily.IsMultiUnit())
	assert.False(t, models.PropertyTypeManufactured.IsMultiUnit())
}

func TestEligibilityResult_AllViolations(t *testing.T) {
	result := &models.EligibilityResult{
		Products: []models.ProductResult{
			{Violations: []models.RuleViolation{{RuleName: "max_dti"}}},
			{Violations: []models.RuleViolation{{RuleName: "max_dti"}, {RuleName: "min_credit_score"}}},
		},
	}
	assert.Len(t, result.AllViolations(), 3)
}
