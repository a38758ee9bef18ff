package reasoner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sage-engine/internal/models"
	"sage-engine/internal/services/genai"
	"sage-engine/internal/services/retrieval"
	"sage-engine/internal/services/usage"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) CreateMessage(_ context.Context, _ genai.Request) (*genai.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &genai.Response{
		Content: []genai.ContentBlock{{Type: "text", Text: f.reply}},
		Usage:   genai.Usage{InputTokens: 300, OutputTokens: 120},
	}, nil
}

func (f *fakeLLM) Model() string { return "test-model" }

type fakeRetriever struct {
	results []retrieval.Retrieval
	err     error
}

func (f *fakeRetriever) RetrieveEligibilityContext(_ context.Context, _ *models.LoanScenario) ([]retrieval.Retrieval, error) {
	return f.results, f.err
}

type captureRecorder struct {
	records []usage.Record
}

func (c *captureRecorder) Record(rec usage.Record) {
	c.records = append(c.records, rec)
}

func sampleRetrievals() []retrieval.Retrieval {
	return []retrieval.Retrieval{
		{SectionID: "B5-6-02", SectionTitle: "HomeReady Underwriting", GSE: models.GSEFannieMae, Snippet: "620 minimum", RelevanceScore: 0.9},
		{SectionID: "4501.8", SectionTitle: "Home Possible Underwriting", GSE: models.GSEFreddieMac, Snippet: "660 minimum", RelevanceScore: 0.85},
	}
}

func sampleScenario() *models.LoanScenario {
	return &models.LoanScenario{
		CreditScore:   640,
		AnnualIncome:  85000,
		LoanAmount:    350000,
		PropertyValue: 400000,
		PropertyType:  models.PropertyTypeSingleFamily,
		Occupancy:     models.OccupancyPrimary,
	}
}

const analysisReply = `{
  "homeready": {
    "eligible": true,
    "confidence": "high",
    "rules_checked": [
      {"rule_name": "min_credit_score", "requirement": "Minimum 620", "actual_value": "640", "result": "pass", "citation": "B5-6-02", "explanation": "640 meets the floor"}
    ]
  },
  "home_possible": {
    "eligible": false,
    "confidence": "high",
    "rules_checked": [
      {"rule_name": "min_credit_score", "requirement": "Minimum 660", "actual_value": "640", "result": "fail", "citation": "4501.8", "explanation": "640 is below 660"}
    ]
  },
  "recommendation": "Proceed with HomeReady.",
  "fix_suggestions": [
    {"description": "Raise credit score to 660", "impact": "Unlocks Home Possible", "difficulty": "extreme"}
  ]
}`

func TestCheckEligibility_ConvertsAnalysis(t *testing.T) {
	recorder := &captureRecorder{}
	r := NewReasoner(&fakeLLM{reply: analysisReply}, &fakeRetriever{results: sampleRetrievals()}, recorder)

	analysis, err := r.CheckEligibility(context.Background(), sampleScenario())
	require.NoError(t, err)

	require.Len(t, analysis.Products, 2)
	homeReady, homePossible := analysis.Products[0], analysis.Products[1]

	assert.Equal(t, "HomeReady", homeReady.ProductName)
	assert.True(t, homeReady.Eligible)
	assert.Empty(t, homeReady.Violations)

	assert.Equal(t, "Home Possible", homePossible.ProductName)
	assert.False(t, homePossible.Eligible)
	require.Len(t, homePossible.Violations, 1)
	assert.Equal(t, "min_credit_score", homePossible.Violations[0].RuleName)
	assert.Equal(t, "640", homePossible.Violations[0].ActualValue)
	assert.Equal(t, "4501.8", homePossible.Violations[0].Citation)

	assert.Equal(t, "Proceed with HomeReady.", analysis.Recommendation)

	// Unknown difficulty falls back to moderate.
	require.Len(t, analysis.FixSuggestions, 1)
	assert.Equal(t, models.DifficultyModerate, analysis.FixSuggestions[0].Difficulty)

	require.Len(t, recorder.records, 1)
	assert.Equal(t, "eligibility_reasoner", recorder.records[0].ServiceName)
	assert.True(t, recorder.records[0].Success)
	assert.Equal(t, 300, recorder.records[0].TokensInput)
}

func TestCheckEligibility_DemoDataIncludesStepsAndRetrievals(t *testing.T) {
	r := NewReasoner(&fakeLLM{reply: analysisReply}, &fakeRetriever{results: sampleRetrievals()}, nil)

	analysis, err := r.CheckEligibility(context.Background(), sampleScenario())
	require.NoError(t, err)

	assert.Len(t, analysis.Demo.RAGRetrievals, 2)
	require.Len(t, analysis.Demo.ReasoningSteps, 2)
	assert.Equal(t, "pass", analysis.Demo.ReasoningSteps[0].Result)
	assert.Equal(t, "fail", analysis.Demo.ReasoningSteps[1].Result)
	assert.Equal(t, 300, analysis.Demo.TokensInput)
}

func TestCheckEligibility_RetrievalError(t *testing.T) {
	r := NewReasoner(&fakeLLM{}, &fakeRetriever{err: retrieval.ErrNoGuideContext}, nil)

	_, err := r.CheckEligibility(context.Background(), sampleScenario())
	assert.ErrorIs(t, err, retrieval.ErrNoGuideContext)
}

func TestCheckEligibility_LLMError(t *testing.T) {
	r := NewReasoner(&fakeLLM{err: errors.New("overloaded")}, &fakeRetriever{results: sampleRetrievals()}, nil)

	_, err := r.CheckEligibility(context.Background(), sampleScenario())
	assert.ErrorContains(t, err, "guide analysis failed")
}

func TestCheckEligibility_DefaultRecommendation(t *testing.T) {
	reply := `{"homeready": {"eligible": true}, "home_possible": {"eligible": true}}`
	r := NewReasoner(&fakeLLM{reply: reply}, &fakeRetriever{results: sampleRetrievals()}, nil)

	analysis, err := r.CheckEligibility(context.Background(), sampleScenario())
	require.NoError(t, err)
	assert.Equal(t, "Analysis complete. Review the results for each product.", analysis.Recommendation)
}

func TestParseAnalysis_MarkdownFences(t *testing.T) {
	text := "```json\n{\"recommendation\": \"ok\"}\n```"
	analysis, err := parseAnalysis(text)
	require.NoError(t, err)
	assert.Equal(t, "ok", analysis.Recommendation)
}

func TestParseAnalysis_Invalid(t *testing.T) {
	_, err := parseAnalysis("not json at all")
	assert.Error(t, err)
}

func TestConvertProducts_EligibilityFromViolationsWhenUnset(t *testing.T) {
	products, _ := convertProducts(&rawAnalysis{
		HomeReady: productAnalysis{RulesChecked: []ruleCheck{
			{RuleName: "max_dti", Result: "fail"},
		}},
		HomePossible: productAnalysis{RulesChecked: []ruleCheck{
			{RuleName: "max_dti", Result: "pass"},
		}},
	})

	require.Len(t, products, 2)
	assert.False(t, products[0].Eligible)
	assert.True(t, products[1].Eligible)

	// Missing fields on a failed check get safe defaults.
	violation := products[0].Violations[0]
	assert.Equal(t, "Eligibility requirement", violation.RuleDescription)
	assert.Equal(t, "N/A", violation.ActualValue)
	assert.Equal(t, "Fannie Mae Guide", violation.Citation)
}

func TestBuildAnalysisPrompt_GroupsExcerptsByGSE(t *testing.T) {
	prompt := buildAnalysisPrompt(sampleScenario(), sampleRetrievals())

	assert.Contains(t, prompt, "Credit Score: 640")
	assert.Contains(t, prompt, "=== FANNIE MAE (HomeReady) ===")
	assert.Contains(t, prompt, "=== FREDDIE MAC (Home Possible) ===")
	assert.Contains(t, prompt, "[B5-6-02] HomeReady Underwriting")
	assert.Contains(t, prompt, "Respond with JSON only.")
}
