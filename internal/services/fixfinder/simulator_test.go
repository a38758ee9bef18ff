package fixfinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sage-engine/internal/models"
	"sage-engine/internal/services/rules"
)

func testScenario() *models.LoanScenario {
	return &models.LoanScenario{
		CreditScore:         610,
		AnnualIncome:        85000,
		LoanAmount:          350000,
		PropertyValue:       400000,
		LoanTermYears:       30,
		MonthlyDebtPayments: 500,
		PropertyType:        models.PropertyTypeSingleFamily,
		Occupancy:           models.OccupancyPrimary,
	}
}

func TestSimulate_DoesNotMutateScenario(t *testing.T) {
	simulator := NewSimulator(rules.NewEngine())
	scenario := testScenario()
	original := *scenario

	simulator.Simulate(scenario, map[string]float64{
		"credit_score":  680,
		"loan_amount":   300000,
		"annual_income": 95000,
	}, "improve everything", nil)

	assert.Equal(t, original, *scenario)
}

func TestSimulate_ResolvesViolations(t *testing.T) {
	engine := rules.NewEngine()
	simulator := NewSimulator(engine)
	scenario := testScenario()

	result := engine.CheckEligibility(scenario)
	violations := result.AllViolations()
	require.NotEmpty(t, violations)

	simulation, summary := simulator.Simulate(scenario, map[string]float64{
		"credit_score": 720,
	}, "Raise credit score to 720", violations)

	assert.True(t, simulation.HomeReadyEligible)
	assert.True(t, simulation.HomePossibleEligible)
	assert.Contains(t, simulation.ViolationsResolved, "min_credit_score")
	assert.Empty(t, simulation.RemainingViolations)
	assert.Contains(t, summary, "Raise credit score to 720")
	assert.Contains(t, summary, "Eligible")
}

func TestSimulate_ReportsRemainingViolations(t *testing.T) {
	engine := rules.NewEngine()
	simulator := NewSimulator(engine)

	scenario := testScenario()
	scenario.Occupancy = models.OccupancyInvestment

	violations := engine.CheckEligibility(scenario).AllViolations()
	simulation, _ := simulator.Simulate(scenario, map[string]float64{
		"credit_score": 720,
	}, "fix credit only", violations)

	assert.False(t, simulation.HomeReadyEligible)
	assert.Contains(t, simulation.RemainingViolations, "occupancy")
	assert.Contains(t, simulation.ViolationsResolved, "min_credit_score")
	assert.NotContains(t, simulation.ViolationsResolved, "occupancy")
}

func TestSimulate_IgnoresUnknownParameters(t *testing.T) {
	simulator := NewSimulator(rules.NewEngine())
	scenario := testScenario()

	simulation, _ := simulator.Simulate(scenario, map[string]float64{
		"credit_score": 700,
		"shoe_size":    44,
	}, "unknown key", nil)

	assert.Equal(t, "700", simulation.ParameterChanges["credit_score"])
	assert.Contains(t, simulation.ParameterChanges, "shoe_size")
}

func TestFeasibility_Bands(t *testing.T) {
	tests := []struct {
		name     string
		changes  map[string]float64
		expected models.Feasibility
	}{
		{"small change", map[string]float64{"credit_score": 40}, models.FeasibilityEasy},
		{"just under easy cap", map[string]float64{"monthly_debt_payments": 4999}, models.FeasibilityEasy},
		{"moderate", map[string]float64{"loan_amount": 15000}, models.FeasibilityModerate},
		{"hard", map[string]float64{"loan_amount": 45000}, models.FeasibilityHard},
		{"very hard", map[string]float64{"loan_amount": 80000}, models.FeasibilityVeryHard},
		{"magnitudes sum", map[string]float64{"loan_amount": 15000, "property_value": -10000}, models.FeasibilityHard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, feasibility(tt.changes))
		})
	}
}
