package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sage-engine/internal/models"
	"sage-engine/internal/services/rules"
)

// strongScenario passes every rule for both products.
func strongScenario() *models.LoanScenario {
	return &models.LoanScenario{
		CreditScore:         720,
		AnnualIncome:        85000,
		LoanAmount:          350000,
		PropertyValue:       400000,
		LoanTermYears:       30,
		MonthlyDebtPayments: 500,
		PropertyType:        models.PropertyTypeSingleFamily,
		Occupancy:           models.OccupancyPrimary,
	}
}

func productByName(t *testing.T, result *models.EligibilityResult, name string) models.ProductResult {
	t.Helper()
	for _, p := range result.Products {
		if p.ProductName == name {
			return p
		}
	}
	t.Fatalf("product %s not found", name)
	return models.ProductResult{}
}

func violationNames(product models.ProductResult) []string {
	names := make([]string, len(product.Violations))
	for i, v := range product.Violations {
		names[i] = v.RuleName
	}
	return names
}

func TestCheckEligibility_EligibleForBoth(t *testing.T) {
	engine := rules.NewEngine()
	result := engine.CheckEligibility(strongScenario())

	homeReady := productByName(t, result, "HomeReady")
	homePossible := productByName(t, result, "Home Possible")

	assert.True(t, homeReady.Eligible)
	assert.Empty(t, homeReady.Violations)
	assert.True(t, homePossible.Eligible)
	assert.Empty(t, homePossible.Violations)

	assert.Equal(t, models.GSEFannieMae, homeReady.GSE)
	assert.Equal(t, models.GSEFreddieMac, homePossible.GSE)

	assert.InDelta(t, 0.875, result.CalculatedLTV, 0.0001)
	assert.Less(t, result.CalculatedDTI, 0.45)
	assert.Contains(t, result.Recommendation, "both")
	assert.Empty(t, result.FixSuggestions)
}

func TestCheckEligibility_LowCreditScore(t *testing.T) {
	scenario := strongScenario()
	scenario.CreditScore = 610

	result := rules.NewEngine().CheckEligibility(scenario)

	homeReady := productByName(t, result, "HomeReady")
	require.Len(t, homeReady.Violations, 1)
	assert.Equal(t, "min_credit_score", homeReady.Violations[0].RuleName)
	assert.Equal(t, ">= 620", homeReady.Violations[0].RequiredValue)
	assert.Equal(t, "610", homeReady.Violations[0].ActualValue)
	assert.Contains(t, homeReady.Violations[0].Citation, "B5-6-02")

	homePossible := productByName(t, result, "Home Possible")
	require.Len(t, homePossible.Violations, 1)
	assert.Equal(t, "min_credit_score", homePossible.Violations[0].RuleName)
	assert.Equal(t, ">= 660", homePossible.Violations[0].RequiredValue)

	assert.NotEmpty(t, result.FixSuggestions)
	assert.Contains(t, result.Recommendation, "not currently eligible")
}

func TestCheckEligibility_CreditBetweenFloors(t *testing.T) {
	scenario := strongScenario()
	scenario.CreditScore = 640

	result := rules.NewEngine().CheckEligibility(scenario)

	assert.True(t, productByName(t, result, "HomeReady").Eligible)
	assert.False(t, productByName(t, result, "Home Possible").Eligible)
	assert.Contains(t, result.Recommendation, "HomeReady")
}

func TestCheckEligibility_InvestmentOccupancy(t *testing.T) {
	scenario := strongScenario()
	scenario.Occupancy = models.OccupancyInvestment

	result := rules.NewEngine().CheckEligibility(scenario)

	for _, name := range []string{"HomeReady", "Home Possible"} {
		product := productByName(t, result, name)
		assert.False(t, product.Eligible)
		assert.Contains(t, violationNames(product), "occupancy")
	}
}

func TestCheckHomePossible_CreditFloorByPropertyType(t *testing.T) {
	tests := []struct {
		name         string
		propertyType models.PropertyType
		creditScore  int
		eligible     bool
	}{
		{"single family at 660", models.PropertyTypeSingleFamily, 660, true},
		{"single family at 659", models.PropertyTypeSingleFamily, 659, false},
		{"two unit at 699", models.PropertyTypeTwoUnit, 699, false},
		{"two unit at 700", models.PropertyTypeTwoUnit, 700, true},
		{"manufactured at 679", models.PropertyTypeManufactured, 679, false},
		{"manufactured at 680", models.PropertyTypeManufactured, 680, true},
	}

	engine := rules.NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := strongScenario()
			scenario.PropertyType = tt.propertyType
			scenario.CreditScore = tt.creditScore
			// Keep LTV under the reduced ceiling so only the credit
			// floor is in play.
			scenario.LoanAmount = 300000

			ltv := engine.CalculateLTV(scenario.LoanAmount, scenario.PropertyValue)
			dti := engine.CalculateDTI(scenario)
			product := engine.CheckHomePossible(scenario, ltv, dti)

			if tt.eligible {
				assert.NotContains(t, violationNames(product), "min_credit_score")
			} else {
				assert.Contains(t, violationNames(product), "min_credit_score")
			}
		})
	}
}

func TestCheckEligibility_ReducedLTVCeiling(t *testing.T) {
	scenario := strongScenario()
	scenario.CreditScore = 720
	scenario.PropertyType = models.PropertyTypeManufactured
	scenario.LoanAmount = 384000 // 96% LTV

	result := rules.NewEngine().CheckEligibility(scenario)

	homeReady := productByName(t, result, "HomeReady")
	assert.Contains(t, violationNames(homeReady), "max_ltv")

	// 96% is fine for a single-family property.
	scenario.PropertyType = models.PropertyTypeSingleFamily
	result = rules.NewEngine().CheckEligibility(scenario)
	assert.NotContains(t, violationNames(productByName(t, result, "HomeReady")), "max_ltv")
}

func TestCheckHomeReady_LoanTermAboveThirtyWithHighLTV(t *testing.T) {
	engine := rules.NewEngine()

	scenario := strongScenario()
	scenario.LoanAmount = 384000 // 96% LTV
	scenario.LoanTermYears = 40

	ltv := engine.CalculateLTV(scenario.LoanAmount, scenario.PropertyValue)
	dti := engine.CalculateDTI(scenario)

	homeReady := engine.CheckHomeReady(scenario, ltv, dti)
	assert.Contains(t, violationNames(homeReady), "loan_term")

	// At or below 95% LTV the longer term is allowed.
	scenario.LoanAmount = 380000
	ltv = engine.CalculateLTV(scenario.LoanAmount, scenario.PropertyValue)
	homeReady = engine.CheckHomeReady(scenario, ltv, dti)
	assert.NotContains(t, violationNames(homeReady), "loan_term")
}

func TestCheckEligibility_PUDOnlyEligibleForHomeReady(t *testing.T) {
	scenario := strongScenario()
	scenario.PropertyType = models.PropertyTypePUD

	result := rules.NewEngine().CheckEligibility(scenario)

	assert.True(t, productByName(t, result, "HomeReady").Eligible)
	homePossible := productByName(t, result, "Home Possible")
	assert.False(t, homePossible.Eligible)
	assert.Contains(t, violationNames(homePossible), "property_type")
}

func TestCheckEligibility_LoanLimit(t *testing.T) {
	scenario := strongScenario()
	scenario.LoanAmount = 1300000
	scenario.PropertyValue = 1500000
	scenario.AnnualIncome = 400000

	result := rules.NewEngine().CheckEligibility(scenario)

	for _, name := range []string{"HomeReady", "Home Possible"} {
		assert.Contains(t, violationNames(productByName(t, result, name)), "loan_limit")
	}
}

func TestNewEngineWithLimits(t *testing.T) {
	engine := rules.NewEngineWithLimits(500000, 750000)
	assert.Equal(t, 750000.0, engine.HighCostLoanLimit())

	scenario := strongScenario()
	scenario.LoanAmount = 800000
	scenario.PropertyValue = 1000000
	scenario.AnnualIncome = 300000

	result := engine.CheckEligibility(scenario)
	assert.Contains(t, violationNames(productByName(t, result, "HomeReady")), "loan_limit")
}

func TestCalculateLTV_NonPositivePropertyValue(t *testing.T) {
	engine := rules.NewEngine()
	assert.Equal(t, 1.0, engine.CalculateLTV(350000, 0))
	assert.Equal(t, 1.0, engine.CalculateLTV(350000, -1))
}

func TestGenerateFixSuggestions_SortedByDifficulty(t *testing.T) {
	scenario := strongScenario()
	scenario.CreditScore = 600
	scenario.LoanAmount = 392000 // 98% LTV
	scenario.MonthlyDebtPayments = 2500

	result := rules.NewEngine().CheckEligibility(scenario)
	require.NotEmpty(t, result.FixSuggestions)

	order := map[models.Difficulty]int{
		models.DifficultyEasy:     0,
		models.DifficultyModerate: 1,
		models.DifficultyHard:     2,
	}
	for i := 1; i < len(result.FixSuggestions); i++ {
		assert.LessOrEqual(t,
			order[result.FixSuggestions[i-1].Difficulty],
			order[result.FixSuggestions[i].Difficulty],
		)
	}
}

func TestGenerateFixSuggestions_DeduplicatesAcrossProducts(t *testing.T) {
	scenario := strongScenario()
	scenario.CreditScore = 600

	engine := rules.NewEngine()
	result := engine.CheckEligibility(scenario)

	// min_credit_score is violated for both products, but the credit
	// suggestions appear once.
	var creditSuggestions int
	for _, s := range result.FixSuggestions {
		if s.Impact == "Would meet Home Possible minimum credit requirement" {
			creditSuggestions++
		}
	}
	assert.Equal(t, 1, creditSuggestions)
}
