package rules

import (
	"fmt"
	"sort"

	"sage-engine/internal/models"
)

// GenerateFixSuggestions analyzes violations from both products and
// generates quantified, actionable remedies. Only the first occurrence of
// each violated rule produces suggestions; duplicates across products are
// skipped. Suggestions are sorted easy-first.
func (e *Engine) GenerateFixSuggestions(
	scenario *models.LoanScenario,
	violations []models.RuleViolation,
	ltv, dti float64,
) []models.FixSuggestion {
	var suggestions []models.FixSuggestion
	seen := make(map[string]bool)

	monthlyIncome := scenario.MonthlyIncome()

	for _, violation := range violations {
		if seen[violation.RuleName] {
			continue
		}
		seen[violation.RuleName] = true

		switch violation.RuleName {
		case "min_credit_score":
			suggestions = append(suggestions, e.creditScoreSuggestions(scenario)...)
		case "max_dti":
			suggestions = append(suggestions, e.dtiSuggestions(dti, monthlyIncome)...)
		case "max_ltv":
			suggestions = append(suggestions, e.ltvSuggestions(scenario, ltv)...)
		case "occupancy":
			suggestions = append(suggestions, models.FixSuggestion{
				Description: "HomeReady and Home Possible require primary residence occupancy",
				Impact:      "Consider conventional financing options for investment or second homes",
				Difficulty:  models.DifficultyHard,
			})
		case "property_type":
			suggestions = append(suggestions, models.FixSuggestion{
				Description: "Consider a different property type that is eligible",
				Impact:      "Single-family homes, condos, and PUDs are eligible for both programs",
				Difficulty:  models.DifficultyHard,
			})
		case "loan_limit":
			overLimit := scenario.LoanAmount - e.highCostLoanLimit
			suggestions = append(suggestions,
				models.FixSuggestion{
					Description: fmt.Sprintf("Reduce loan amount by $%.0f", overLimit),
					Impact:      fmt.Sprintf("Would bring loan under $%.0f conforming limit", e.highCostLoanLimit),
					Difficulty:  models.DifficultyHard,
				},
				models.FixSuggestion{
					Description: "Consider jumbo loan products instead",
					Impact:      "Jumbo loans have different eligibility requirements",
					Difficulty:  models.DifficultyModerate,
				})
		}
	}

	// Stable sort keeps the per-rule ordering within a difficulty band.
	order := map[models.Difficulty]int{
		models.DifficultyEasy:     0,
		models.DifficultyModerate: 1,
		models.DifficultyHard:     2,
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return order[suggestions[i].Difficulty] < order[suggestions[j].Difficulty]
	})

	return suggestions
}

// creditScoreSuggestions quantifies the points needed to clear each
// product's credit floor.
func (e *Engine) creditScoreSuggestions(scenario *models.LoanScenario) []models.FixSuggestion {
	var suggestions []models.FixSuggestion

	pointsToHP := homePossibleMinCreditScore - scenario.CreditScore
	if pointsToHP > 0 {
		difficulty := models.DifficultyModerate
		if pointsToHP > 30 {
			difficulty = models.DifficultyHard
		}
		suggestions = append(suggestions, models.FixSuggestion{
			Description: fmt.Sprintf("Improve credit score by %d points to reach %d", pointsToHP, homePossibleMinCreditScore),
			Impact:      "Would meet Home Possible minimum credit requirement",
			Difficulty:  difficulty,
		})
	}

	pointsToHR := homeReadyMinCreditScore - scenario.CreditScore
	if pointsToHR > 0 {
		difficulty := models.DifficultyModerate
		if pointsToHR > 30 {
			difficulty = models.DifficultyHard
		}
		suggestions = append(suggestions, models.FixSuggestion{
			Description: fmt.Sprintf("Improve credit score by %d points to reach %d", pointsToHR, homeReadyMinCreditScore),
			Impact:      "Would meet HomeReady minimum credit requirement",
			Difficulty:  difficulty,
		})
	}

	return suggestions
}

// dtiSuggestions quantifies the monthly debt reduction needed per product;
// the ceilings differ, so each product gets its own number.
func (e *Engine) dtiSuggestions(dti, monthlyIncome float64) []models.FixSuggestion {
	var suggestions []models.FixSuggestion

	if dti > homePossibleMaxDTI {
		monthlyReduction := monthlyIncome*dti - monthlyIncome*homePossibleMaxDTI
		// Rough payoff estimate: monthly payment * 50 approximates the
		// underlying balance at typical consumer debt rates.
		debtPayoff := monthlyReduction * 50

		payoffDifficulty := models.DifficultyModerate
		if debtPayoff > 10000 {
			payoffDifficulty = models.DifficultyHard
		}

		suggestions = append(suggestions,
			models.FixSuggestion{
				Description: fmt.Sprintf("Reduce monthly debt payments by $%.0f/month", monthlyReduction),
				Impact: fmt.Sprintf("Would reduce DTI from %.1f%% to %.0f%% (Home Possible eligible)",
					dti*100, homePossibleMaxDTI*100),
				Difficulty: models.DifficultyModerate,
			},
			models.FixSuggestion{
				Description: fmt.Sprintf("Pay off approximately $%.0f in debt", debtPayoff),
				Impact:      "Would reduce DTI to meet Home Possible requirement",
				Difficulty:  payoffDifficulty,
			})
	}

	if dti > homeReadyMaxDTI && dti <= homePossibleMaxDTI+0.10 {
		monthlyReduction := monthlyIncome*dti - monthlyIncome*homeReadyMaxDTI
		if monthlyReduction > 0 {
			difficulty := models.DifficultyModerate
			if monthlyReduction <= 200 {
				difficulty = models.DifficultyEasy
			}
			suggestions = append(suggestions, models.FixSuggestion{
				Description: fmt.Sprintf("Reduce monthly debt by $%.0f/month for HomeReady", monthlyReduction),
				Impact: fmt.Sprintf("Would reduce DTI from %.1f%% to %.0f%%",
					dti*100, homeReadyMaxDTI*100),
				Difficulty: difficulty,
			})
		}
	}

	return suggestions
}

// ltvSuggestions quantifies the additional down payment or price reduction
// needed to reach the applicable LTV ceiling.
func (e *Engine) ltvSuggestions(scenario *models.LoanScenario, ltv float64) []models.FixSuggestion {
	var suggestions []models.FixSuggestion

	targetLTV := maxLTVStandard
	if scenario.PropertyType == models.PropertyTypeManufactured || scenario.PropertyType.IsMultiUnit() {
		targetLTV = maxLTVReduced
	}

	targetLoan := scenario.PropertyValue * targetLTV
	additionalDown := scenario.LoanAmount - targetLoan

	if additionalDown > 0 {
		difficulty := models.DifficultyHard
		switch {
		case additionalDown <= 5000:
			difficulty = models.DifficultyEasy
		case additionalDown <= 20000:
			difficulty = models.DifficultyModerate
		}
		suggestions = append(suggestions, models.FixSuggestion{
			Description: fmt.Sprintf("Increase down payment by $%.0f", additionalDown),
			Impact:      fmt.Sprintf("Would reduce LTV from %.1f%% to %.0f%%", ltv*100, targetLTV*100),
			Difficulty:  difficulty,
		})

		// Alternative: negotiate the purchase price down instead.
		maxPurchase := scenario.LoanAmount / targetLTV
		priceReduction := scenario.PropertyValue - maxPurchase
		if priceReduction > 0 {
			suggestions = append(suggestions, models.FixSuggestion{
				Description: fmt.Sprintf("Negotiate purchase price reduction of $%.0f", priceReduction),
				Impact:      fmt.Sprintf("Would achieve %.0f%% LTV with current down payment", targetLTV*100),
				Difficulty:  models.DifficultyModerate,
			})
		}
	}

	return suggestions
}
