package fixfinder

import (
	"fmt"
	"strings"

	"sage-engine/internal/models"
)

const systemPrompt = `You are SAGE Fix Finder, an expert mortgage loan restructuring agent. Your job is to analyze loan eligibility violations and find intelligent ways to fix them.

PROCESS: Use the ReAct pattern (Reason + Act):
1. OBSERVE: Review the current loan violations and any previous findings
2. THINK: Reason about what information you need to find better fixes
3. ACT: Use tools to gather compensating factors, test scenarios, or compare products
4. REPEAT: Continue until you have enough information (max 3 iterations)

TOOLS AVAILABLE:
- query_guides: Search GSE guides for compensating factors, exceptions, and alternative requirements
- simulate_scenario: Test what-if changes to see if they resolve violations
- compare_products: Compare HomeReady vs Home Possible requirements

PRIORITIZATION GUIDELINES:
1. Easy fixes over hard ones (e.g., documenting existing reserves vs. paying down $50K in debt)
2. Fixes that unlock BOTH products over just one
3. Quick fixes over long-term ones
4. Low-cost fixes over expensive ones
5. Fixes with official compensating factor support in the guides

OUTPUT: After gathering information, provide your analysis in JSON format with:
- enhanced_fixes: List of fixes with confidence scores (0-1), priority order, estimated timeline, which products they unlock, citations, and any trade-offs
- fix_sequences: Multi-step paths to eligibility, ordered by effort-vs-benefit
- recommended_path: Your top recommendation based on the analysis
- product_comparison: Key differences between HomeReady and Home Possible for this scenario

Be specific and actionable. Cite guide sections when possible. Quantify impacts (e.g., "Reducing debt by $200/month would lower DTI from 52% to 48%").`

const finalAnalysisPrompt = "Please provide your final analysis now with enhanced_fixes, fix_sequences, and recommended_path. Respond with JSON only."

// buildInitialPrompt renders the loan scenario, its violations, and the
// product status into the opening user message of the reasoning loop.
func buildInitialPrompt(scenario *models.LoanScenario, violations []models.RuleViolation, products []models.ProductResult) string {
	var violationLines []string
	for _, v := range violations {
		violationLines = append(violationLines, fmt.Sprintf(
			"- %s: %s (actual: %s, required: %s, source: %s)",
			v.RuleName, v.RuleDescription, v.ActualValue, v.RequiredValue, v.Citation,
		))
	}
	violationList := strings.Join(violationLines, "\n")
	if violationList == "" {
		violationList = "- None"
	}

	var statusLines []string
	for _, p := range products {
		status := "Ineligible"
		if p.Eligible {
			status = "Eligible"
		}
		statusLines = append(statusLines, fmt.Sprintf("- %s: %s", p.ProductName, status))
	}
	productStatus := strings.Join(statusLines, "\n")
	if productStatus == "" {
		productStatus = "- No products evaluated"
	}

	return fmt.Sprintf(`LOAN SCENARIO:
- Credit Score: %d
- Annual Income: $%.0f
- Loan Amount: $%.0f
- Property Value: $%.0f
- LTV: %.1f%%
- Monthly Debt: $%.0f
- DTI: %.1f%%
- Property Type: %s
- Occupancy: %s

CURRENT VIOLATIONS:
%s

PRODUCT STATUS:
%s

Please analyze these violations and find the best fixes. Use the tools to:
1. Search for compensating factors or exceptions that could help
2. Simulate what-if scenarios to quantify fix impacts
3. Compare requirements between HomeReady and Home Possible

Proceed with your analysis.`,
		scenario.CreditScore,
		scenario.AnnualIncome,
		scenario.LoanAmount,
		scenario.PropertyValue,
		scenario.LTV()*100,
		scenario.MonthlyDebtPayments,
		scenario.DTI()*100,
		scenario.PropertyType,
		scenario.Occupancy,
		violationList,
		productStatus,
	)
}
