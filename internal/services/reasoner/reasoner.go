// Package reasoner performs guide-grounded eligibility analysis: it
// retrieves GSE guide excerpts for a loan scenario and asks the model to
// check each rule against them, citing the sections it used. The analysis
// is advisory; the deterministic rules engine remains authoritative.
package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sage-engine/internal/models"
	"sage-engine/internal/services/genai"
	"sage-engine/internal/services/retrieval"
	"sage-engine/internal/services/usage"
)

const systemPrompt = `You are SAGE, an expert mortgage eligibility analyst. Your job is to analyze loan scenarios against GSE (Fannie Mae and Freddie Mac) affordable lending product guidelines.

You have access to excerpts from the official GSE guides. Analyze the loan scenario against these excerpts to determine eligibility for:
- HomeReady (Fannie Mae)
- Home Possible (Freddie Mac)

RULES FOR ANALYSIS:
1. Check each requirement (credit score, LTV, DTI, occupancy, property type, income limits) against the provided guide excerpts
2. ONLY cite guide sections that are actually provided in the context
3. Be precise about actual thresholds mentioned in the excerpts
4. If a requirement isn't clear from the excerpts, note it as "unable to verify from provided excerpts"
5. Provide specific, actionable fix suggestions for any failures

OUTPUT FORMAT:
You must respond with valid JSON matching this exact schema:
{
  "homeready": {
    "eligible": boolean,
    "confidence": "high" | "medium" | "low",
    "rules_checked": [
      {
        "rule_name": "min_credit_score" | "max_ltv" | "max_dti" | "occupancy" | "property_type" | "income_limit",
        "requirement": "Description of requirement from guide",
        "actual_value": "The loan's actual value",
        "result": "pass" | "fail" | "unable_to_verify",
        "citation": "Guide section reference (e.g., B5-6-02)",
        "explanation": "Brief explanation of the check"
      }
    ]
  },
  "home_possible": {
    "eligible": boolean,
    "confidence": "high" | "medium" | "low",
    "rules_checked": [...]
  },
  "recommendation": "Overall recommendation text",
  "fix_suggestions": [
    {
      "description": "What to do",
      "impact": "How it helps",
      "difficulty": "easy" | "moderate" | "hard"
    }
  ]
}

Respond ONLY with the JSON object, no additional text.`

// LLMClient is the generative collaborator.
type LLMClient interface {
	CreateMessage(ctx context.Context, req genai.Request) (*genai.Response, error)
	Model() string
}

// ContextRetriever gathers guide excerpts for a scenario.
type ContextRetriever interface {
	RetrieveEligibilityContext(ctx context.Context, scenario *models.LoanScenario) ([]retrieval.Retrieval, error)
}

// Analysis is the guide-grounded eligibility assessment.
type Analysis struct {
	Products       []models.ProductResult
	Recommendation string
	FixSuggestions []models.FixSuggestion
	Demo           models.DemoModeData
}

// Reasoner runs guide-grounded eligibility analysis.
type Reasoner struct {
	llm       LLMClient
	retriever ContextRetriever
	recorder  usage.Recorder
}

// NewReasoner creates a guide-grounded eligibility reasoner.
func NewReasoner(llm LLMClient, retriever ContextRetriever, recorder usage.Recorder) *Reasoner {
	if recorder == nil {
		recorder = usage.NopRecorder{}
	}
	return &Reasoner{llm: llm, retriever: retriever, recorder: recorder}
}

// CheckEligibility retrieves guide context, asks the model to check each
// rule against it, and converts the answer to product results. Errors are
// returned to the caller, which falls back to the deterministic engine.
func (r *Reasoner) CheckEligibility(ctx context.Context, scenario *models.LoanScenario) (*Analysis, error) {
	retrievalStart := time.Now()
	retrievals, err := r.retriever.RetrieveEligibilityContext(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve guide context for analysis: %w", err)
	}
	retrievalTimeMs := time.Since(retrievalStart).Milliseconds()

	prompt := buildAnalysisPrompt(scenario, retrievals)

	reasoningStart := time.Now()
	response, err := r.llm.CreateMessage(ctx, genai.Request{
		System:   systemPrompt,
		Messages: []genai.Message{genai.TextMessage("user", prompt)},
	})
	if err != nil {
		return nil, fmt.Errorf("guide analysis failed: %w", err)
	}
	reasoningTimeMs := time.Since(reasoningStart).Milliseconds()

	analysis, err := parseAnalysis(response.Text())
	if err != nil {
		return nil, err
	}

	r.recorder.Record(usage.Record{
		ServiceName:   "eligibility_reasoner",
		ModelName:     r.llm.Model(),
		ModelProvider: "anthropic",
		RequestType:   "reasoning",
		TokensInput:   response.Usage.InputTokens,
		TokensOutput:  response.Usage.OutputTokens,
		DurationMs:    retrievalTimeMs + reasoningTimeMs,
		Success:       true,
	})

	products, steps := convertProducts(analysis)
	result := &Analysis{
		Products:       products,
		Recommendation: analysis.Recommendation,
		FixSuggestions: convertFixSuggestions(analysis.FixSuggestions),
		Demo: models.DemoModeData{
			RAGRetrievals:   demoRetrievals(retrievals),
			RetrievalTimeMs: retrievalTimeMs,
			ReasoningSteps:  steps,
			ReasoningTimeMs: reasoningTimeMs,
			TokensInput:     response.Usage.InputTokens,
			TokensOutput:    response.Usage.OutputTokens,
		},
	}
	if result.Recommendation == "" {
		result.Recommendation = "Analysis complete. Review the results for each product."
	}
	return result, nil
}

// buildAnalysisPrompt renders the loan details and the retrieved guide
// excerpts, grouped by GSE, into the user prompt.
func buildAnalysisPrompt(scenario *models.LoanScenario, retrievals []retrieval.Retrieval) string {
	var b strings.Builder

	fmt.Fprintf(&b, `LOAN SCENARIO:
- Credit Score: %d
- Annual Income: $%.0f
- First-Time Buyer: %t
- Loan Amount: $%.0f
- Property Value: $%.0f
- Calculated LTV: %.1f%%
- Monthly Debt Payments: $%.0f
- Calculated DTI: %.1f%%
- Property Type: %s
- Property Location: %s, %s
- Occupancy: %s
`,
		scenario.CreditScore,
		scenario.AnnualIncome,
		scenario.IsFirstTimeBuyer,
		scenario.LoanAmount,
		scenario.PropertyValue,
		scenario.LTV()*100,
		scenario.MonthlyDebtPayments,
		scenario.DTI()*100,
		strings.ReplaceAll(string(scenario.PropertyType), "_", " "),
		scenario.PropertyCounty, scenario.PropertyState,
		scenario.Occupancy,
	)

	var fannie, freddie []string
	for _, r := range retrievals {
		text := r.Snippet
		if len(text) > 800 {
			text = text[:800]
		}
		formatted := fmt.Sprintf("[%s] %s\n%s", r.SectionID, r.SectionTitle, text)
		if r.GSE == models.GSEFannieMae {
			fannie = append(fannie, formatted)
		} else {
			freddie = append(freddie, formatted)
		}
	}

	b.WriteString("\nGSE GUIDE EXCERPTS:\n\n")
	if len(fannie) > 0 {
		b.WriteString("=== FANNIE MAE (HomeReady) ===\n")
		b.WriteString(strings.Join(fannie, "\n---\n"))
		b.WriteString("\n\n")
	}
	if len(freddie) > 0 {
		b.WriteString("=== FREDDIE MAC (Home Possible) ===\n")
		b.WriteString(strings.Join(freddie, "\n---\n"))
	}

	b.WriteString("\n\nAnalyze this loan scenario against the provided guide excerpts and determine eligibility for HomeReady and Home Possible. Respond with JSON only.")
	return b.String()
}

type ruleCheck struct {
	RuleName    string `json:"rule_name"`
	Requirement string `json:"requirement"`
	ActualValue string `json:"actual_value"`
	Result      string `json:"result"`
	Citation    string `json:"citation"`
	Explanation string `json:"explanation"`
}

type productAnalysis struct {
	Eligible     *bool       `json:"eligible"`
	Confidence   string      `json:"confidence"`
	RulesChecked []ruleCheck `json:"rules_checked"`
}

type rawSuggestion struct {
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Difficulty  string `json:"difficulty"`
}

type rawAnalysis struct {
	HomeReady      productAnalysis `json:"homeready"`
	HomePossible   productAnalysis `json:"home_possible"`
	Recommendation string          `json:"recommendation"`
	FixSuggestions []rawSuggestion `json:"fix_suggestions"`
}

// parseAnalysis strips optional markdown fences and decodes the model's
// JSON answer.
func parseAnalysis(text string) (*rawAnalysis, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if strings.HasPrefix(lines[0], "```") {
			lines = lines[1:]
		}
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
			lines = lines[:len(lines)-1]
		}
		text = strings.Join(lines, "\n")
	}

	var analysis rawAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("invalid analysis response: %w", err)
	}
	return &analysis, nil
}

func convertProducts(analysis *rawAnalysis) ([]models.ProductResult, []models.ReasoningStep) {
	var products []models.ProductResult
	var steps []models.ReasoningStep

	specs := []struct {
		name string
		gse  models.GSE
		data productAnalysis
	}{
		{"HomeReady", models.GSEFannieMae, analysis.HomeReady},
		{"Home Possible", models.GSEFreddieMac, analysis.HomePossible},
	}

	for _, spec := range specs {
		var violations []models.RuleViolation
		for _, rule := range spec.data.RulesChecked {
			stepResult := "fail"
			if rule.Result == "pass" {
				stepResult = "pass"
			}
			steps = append(steps, models.ReasoningStep{
				Rule:     rule.RuleName,
				Product:  spec.name,
				Check:    rule.Requirement,
				Result:   stepResult,
				Citation: rule.Citation,
				Details:  rule.Explanation,
			})

			if rule.Result == "fail" {
				citation := rule.Citation
				if citation == "" {
					citation = guideName(spec.gse)
				}
				requirement := rule.Requirement
				if requirement == "" {
					requirement = "Eligibility requirement"
				}
				actual := rule.ActualValue
				if actual == "" {
					actual = "N/A"
				}
				violations = append(violations, models.RuleViolation{
					RuleName:        rule.RuleName,
					RuleDescription: requirement,
					ActualValue:     actual,
					RequiredValue:   requirement,
					Citation:        citation,
				})
			}
		}

		eligible := len(violations) == 0
		if spec.data.Eligible != nil {
			eligible = *spec.data.Eligible
		}
		products = append(products, models.ProductResult{
			ProductName: spec.name,
			GSE:         spec.gse,
			Eligible:    eligible,
			Violations:  violations,
		})
	}

	return products, steps
}

func convertFixSuggestions(raw []rawSuggestion) []models.FixSuggestion {
	suggestions := make([]models.FixSuggestion, 0, len(raw))
	for _, s := range raw {
		difficulty := models.Difficulty(s.Difficulty)
		switch difficulty {
		case models.DifficultyEasy, models.DifficultyModerate, models.DifficultyHard:
		default:
			difficulty = models.DifficultyModerate
		}
		suggestions = append(suggestions, models.FixSuggestion{
			Description: s.Description,
			Impact:      s.Impact,
			Difficulty:  difficulty,
		})
	}
	return suggestions
}

func demoRetrievals(retrievals []retrieval.Retrieval) []models.RAGRetrieval {
	out := make([]models.RAGRetrieval, len(retrievals))
	for i, r := range retrievals {
		snippet := r.Snippet
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		score := r.RelevanceScore
		if score > 1 {
			score = 1
		}
		out[i] = models.RAGRetrieval{
			Query:          r.Query,
			SectionID:      r.SectionID,
			SectionTitle:   r.SectionTitle,
			GSE:            r.GSE,
			RelevanceScore: score,
			Snippet:        snippet,
		}
	}
	return out
}

func guideName(gse models.GSE) string {
	if gse == models.GSEFannieMae {
		return "Fannie Mae Guide"
	}
	return "Freddie Mac Guide"
}
