package models

// Feasibility classifies how feasible a simulated scenario change is,
// based on the magnitude of the parameter changes.
type Feasibility string

const (
	FeasibilityEasy     Feasibility = "easy"
	FeasibilityModerate Feasibility = "moderate"
	FeasibilityHard     Feasibility = "hard"
	FeasibilityVeryHard Feasibility = "very_hard"
)

// Effort grades the total effort of a multi-step fix sequence.
type Effort string

const (
	EffortLow      Effort = "low"
	EffortMedium   Effort = "medium"
	EffortHigh     Effort = "high"
	EffortVeryHigh Effort = "very_high"
)

// GuideCitation is a citation from a GSE guide section.
type GuideCitation struct {
	SectionID      string  `json:"section_id"`
	GSE            GSE     `json:"gse"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float64 `json:"relevance_score"` // clamped to [0, 1]
}

// CompensatingFactor is a guide-sanctioned mitigating condition that could
// offset an otherwise-failing rule.
type CompensatingFactor struct {
	FactorType  string          `json:"factor_type"`
	Description string          `json:"description"`
	Requirement string          `json:"requirement"`
	Citations   []GuideCitation `json:"citations"`
}

// EnhancedFixSuggestion extends the basic FixSuggestion with confidence,
// priority, citations, and trade-off intelligence from the reasoning loop.
type EnhancedFixSuggestion struct {
	Description         string               `json:"description"`
	Impact              string               `json:"impact"`
	Difficulty          Difficulty           `json:"difficulty"`
	Confidence          float64              `json:"confidence"` // clamped to [0, 1]
	PriorityOrder       int                  `json:"priority_order"`
	EstimatedTimeline   string               `json:"estimated_timeline"`
	UnlocksProducts     []string             `json:"unlocks_products"`
	Citations           []GuideCitation      `json:"citations"`
	CompensatingFactors []CompensatingFactor `json:"compensating_factors"`
	TradeOffs           []string             `json:"trade_offs"`
}

// SimulationResult is the result of a what-if scenario simulation.
type SimulationResult struct {
	ScenarioDescription  string            `json:"scenario_description"`
	ParameterChanges     map[string]string `json:"parameter_changes"`
	HomeReadyEligible    bool              `json:"homeready_eligible"`
	HomePossibleEligible bool              `json:"home_possible_eligible"`
	ViolationsResolved   []string          `json:"violations_resolved"`
	RemainingViolations  []string          `json:"remaining_violations"`
	Feasibility          Feasibility       `json:"feasibility"`
}

// FixSequence is a multi-step path to eligibility with ordered fixes.
type FixSequence struct {
	SequenceName           string                  `json:"sequence_name"`
	Description            string                  `json:"description"`
	Steps                  []EnhancedFixSuggestion `json:"steps"`
	TotalEffort            Effort                  `json:"total_effort"`
	EffortVsBenefitScore   float64                 `json:"effort_vs_benefit_score"` // clamped to [0, 10]
	ProductsUnlocked       []string                `json:"products_unlocked"`
	EstimatedTotalTimeline string                  `json:"estimated_total_timeline"`
}

// ToolCall is a single tool call made by the reasoning agent.
type ToolCall struct {
	ToolName      string         `json:"tool_name"`
	Arguments     map[string]any `json:"arguments"`
	ResultSummary string         `json:"result_summary"`
}

// ReactStep is one iteration of the reasoning loop. The trace is
// append-only; steps are never mutated after creation.
type ReactStep struct {
	StepNumber  int        `json:"step_number"`
	Observation string     `json:"observation"`
	Reasoning   string     `json:"reasoning"`
	Action      string     `json:"action"`
	ToolCalls   []ToolCall `json:"tool_calls"`
	Findings    []string   `json:"findings"`
}

// FixFinderResult is the complete result from the fix finder agent.
type FixFinderResult struct {
	EnhancedFixes     []EnhancedFixSuggestion `json:"enhanced_fixes"`
	FixSequences      []FixSequence           `json:"fix_sequences"`
	Simulations       []SimulationResult      `json:"simulations"`
	RecommendedPath   string                  `json:"recommended_path"`
	ProductComparison map[string]string       `json:"product_comparison"`
	ReactTrace        []ReactStep             `json:"react_trace,omitempty"` // demo mode only
	TotalIterations   int                     `json:"total_iterations"`
	TotalTimeMs       int64                   `json:"total_time_ms"`
	TokensUsed        int                     `json:"tokens_used"`
}
