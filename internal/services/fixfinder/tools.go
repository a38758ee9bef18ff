package fixfinder

import "sage-engine/internal/services/genai"

// Tool names the reasoning loop dispatches on.
const (
	toolQueryGuides      = "query_guides"
	toolSimulateScenario = "simulate_scenario"
	toolCompareProducts  = "compare_products"
)

// reactTools is the tool schema offered to the model on every reasoning
// iteration. The final-analysis call omits it to force a text answer.
var reactTools = []genai.Tool{
	{
		Name:        toolQueryGuides,
		Description: "Search the GSE guides for information about compensating factors, exceptions, or alternative requirements that could help resolve a loan eligibility violation. Use this to find official guidance on how to work around specific rule failures.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to find relevant guide sections. Be specific about the violation type and what compensating factors or exceptions you're looking for.",
				},
				"gse_filter": map[string]any{
					"type":        "string",
					"enum":        []string{"fannie_mae", "freddie_mac", "both"},
					"description": "Which GSE's guides to search. Use 'fannie_mae' for HomeReady, 'freddie_mac' for Home Possible, or 'both' for general guidance.",
				},
				"focus_area": map[string]any{
					"type":        "string",
					"enum":        []string{"compensating_factors", "exceptions", "alternative_requirements", "general"},
					"description": "What aspect to focus the search on.",
				},
			},
			"required": []string{"query", "gse_filter"},
		},
	},
	{
		Name:        toolSimulateScenario,
		Description: "Test a what-if scenario by simulating changes to the loan parameters and checking if it would resolve eligibility violations. Use this to quantify the impact of potential fixes.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"changes": map[string]any{
					"type":                 "object",
					"description":          "Key-value pairs of loan parameters to modify. Valid keys: credit_score, annual_income, loan_amount, property_value, monthly_debt_payments.",
					"additionalProperties": map[string]any{"type": "number"},
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Brief description of what this simulation represents (e.g., 'Pay down $5,000 in debt').",
				},
			},
			"required": []string{"changes", "description"},
		},
	},
	{
		Name:        toolCompareProducts,
		Description: "Compare the requirements between HomeReady (Fannie Mae) and Home Possible (Freddie Mac) for a specific rule or requirement area. Use this to identify which product might be easier to qualify for given specific violations.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"requirement_area": map[string]any{
					"type":        "string",
					"enum":        []string{"credit_score", "ltv", "dti", "income_limits", "property_type", "occupancy", "reserves"},
					"description": "Which requirement area to compare between the two products.",
				},
			},
			"required": []string{"requirement_area"},
		},
	},
}
