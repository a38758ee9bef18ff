// Package fixfinder implements the reasoning agent that analyzes loan
// eligibility violations and finds intelligent fixes. It runs a bounded
// ReAct loop: the model observes violations, calls tools to gather guide
// context and test what-if scenarios, then produces a structured analysis.
package fixfinder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sage-engine/internal/models"
	"sage-engine/internal/services/genai"
	"sage-engine/internal/services/retrieval"
	"sage-engine/internal/services/usage"
	"sage-engine/internal/utils"
)

// LLMClient is the generative collaborator driving the loop.
type LLMClient interface {
	CreateMessage(ctx context.Context, req genai.Request) (*genai.Response, error)
	Model() string
}

// GuideSearcher retrieves guide excerpts for a semantic query.
type GuideSearcher interface {
	Search(ctx context.Context, query string, gse models.GSE, topK int) ([]retrieval.Retrieval, error)
}

const (
	defaultMaxIterations    = 3
	defaultIterationTimeout = 30 * time.Second
	defaultFinalTimeout     = 45 * time.Second

	queryGuidesTopK     = 4
	compareProductsTopK = 2
)

// Orchestrator runs the fix-finding reasoning loop. One invocation makes
// at most maxIterations+1 model calls and records exactly one usage entry.
type Orchestrator struct {
	llm       LLMClient
	guides    GuideSearcher
	simulator *Simulator
	recorder  usage.Recorder

	maxIterations    int
	iterationTimeout time.Duration
	finalTimeout     time.Duration
}

// NewOrchestrator creates a fix finder with the default loop bounds.
func NewOrchestrator(llm LLMClient, guides GuideSearcher, simulator *Simulator, recorder usage.Recorder) *Orchestrator {
	if recorder == nil {
		recorder = usage.NopRecorder{}
	}
	return &Orchestrator{
		llm:              llm,
		guides:           guides,
		simulator:        simulator,
		recorder:         recorder,
		maxIterations:    defaultMaxIterations,
		iterationTimeout: defaultIterationTimeout,
		finalTimeout:     defaultFinalTimeout,
	}
}

// WithLimits overrides the loop bounds. Zero values keep the defaults.
func (o *Orchestrator) WithLimits(maxIterations int, iterationTimeout, finalTimeout time.Duration) *Orchestrator {
	if maxIterations > 0 {
		o.maxIterations = maxIterations
	}
	if iterationTimeout > 0 {
		o.iterationTimeout = iterationTimeout
	}
	if finalTimeout > 0 {
		o.finalTimeout = finalTimeout
	}
	return o
}

// FindFixes analyzes the violations and returns enhanced fixes, multi-step
// sequences, and simulations. Failures degrade to an empty result; the
// deterministic suggestions remain the caller's floor.
func (o *Orchestrator) FindFixes(
	ctx context.Context,
	scenario *models.LoanScenario,
	violations []models.RuleViolation,
	products []models.ProductResult,
	demoMode bool,
) *models.FixFinderResult {
	start := time.Now()

	loop := o.runReactLoop(ctx, scenario, violations, products)
	totalTimeMs := time.Since(start).Milliseconds()

	o.recorder.Record(usage.Record{
		ServiceName:   "fix_finder",
		ModelName:     o.llm.Model(),
		ModelProvider: "anthropic",
		RequestType:   "fix_finding",
		TokensInput:   loop.tokensIn,
		TokensOutput:  loop.tokensOut,
		DurationMs:    totalTimeMs,
		Success:       loop.err == nil,
		ErrorMessage:  errMessage(loop.err),
	})

	if loop.err != nil {
		utils.GetLogger().Error("fix finder failed", zap.Error(loop.err))
		return &models.FixFinderResult{
			RecommendedPath: "Analysis failed. Please review basic fix suggestions.",
			ReactTrace:      []models.ReactStep{},
			TotalTimeMs:     totalTimeMs,
		}
	}

	result := normalizeAnalysis(loop.analysis, loop.citations)
	result.Simulations = loop.simulations
	result.TotalIterations = len(loop.trace)
	result.TotalTimeMs = totalTimeMs
	result.TokensUsed = loop.tokensIn + loop.tokensOut
	if demoMode {
		result.ReactTrace = loop.trace
	} else {
		result.ReactTrace = []models.ReactStep{}
	}
	return result
}

type loopOutcome struct {
	analysis    map[string]any
	trace       []models.ReactStep
	citations   []models.GuideCitation
	simulations []models.SimulationResult
	tokensIn    int
	tokensOut   int
	err         error
}

func (o *Orchestrator) runReactLoop(
	ctx context.Context,
	scenario *models.LoanScenario,
	violations []models.RuleViolation,
	products []models.ProductResult,
) loopOutcome {
	outcome := loopOutcome{
		analysis:    map[string]any{},
		trace:       []models.ReactStep{},
		simulations: []models.SimulationResult{},
	}

	messages := []genai.Message{
		genai.TextMessage("user", buildInitialPrompt(scenario, violations, products)),
	}

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		stepNumber := iteration + 1

		iterCtx, cancel := context.WithTimeout(ctx, o.iterationTimeout)
		response, err := o.llm.CreateMessage(iterCtx, genai.Request{
			System:   systemPrompt,
			Tools:    reactTools,
			Messages: messages,
		})
		cancel()

		if err != nil {
			if errors.Is(err, genai.ErrNotConfigured) {
				outcome.err = err
				return outcome
			}
			if iterCtx.Err() == context.DeadlineExceeded {
				utils.GetLogger().Warn("reasoning iteration timed out",
					zap.Int("iteration", stepNumber),
					zap.Duration("timeout", o.iterationTimeout),
				)
				outcome.trace = append(outcome.trace, models.ReactStep{
					StepNumber:  stepNumber,
					Observation: "Iteration timed out",
					Reasoning:   fmt.Sprintf("Model call exceeded %s timeout", o.iterationTimeout),
					Action:      "timeout",
					ToolCalls:   []models.ToolCall{},
					Findings:    []string{},
				})
			} else {
				utils.GetLogger().Error("reasoning iteration failed",
					zap.Int("iteration", stepNumber),
					zap.Error(err),
				)
				outcome.trace = append(outcome.trace, models.ReactStep{
					StepNumber:  stepNumber,
					Observation: fmt.Sprintf("Error in iteration: %v", err),
					Reasoning:   "Falling back to basic analysis",
					Action:      "error_recovery",
					ToolCalls:   []models.ToolCall{},
					Findings:    []string{},
				})
			}
			break
		}

		outcome.tokensIn += response.Usage.InputTokens
		outcome.tokensOut += response.Usage.OutputTokens

		toolUses := response.ToolUses()
		text := response.Text()

		reasoning := truncate(text, 500)
		if reasoning == "" {
			reasoning = "Processing tool calls..."
		}
		step := models.ReactStep{
			StepNumber:  stepNumber,
			Observation: fmt.Sprintf("Iteration %d: Analyzing violations and determining next action", stepNumber),
			Reasoning:   reasoning,
			Action:      "final_analysis",
			ToolCalls:   []models.ToolCall{},
			Findings:    []string{},
		}

		if len(toolUses) == 0 {
			outcome.trace = append(outcome.trace, step)
			outcome.analysis = parseFinalResponse(text)
			return outcome
		}

		step.Action = "tool_calls"
		processed, toolResults := o.executeToolCalls(ctx, toolUses, scenario, violations, &outcome)
		step.ToolCalls = processed
		for _, tc := range processed {
			step.Findings = append(step.Findings, truncate(tc.ResultSummary, 200))
		}
		outcome.trace = append(outcome.trace, step)

		messages = append(messages,
			genai.Message{Role: "assistant", Content: response.Content},
			genai.Message{Role: "user", Content: toolResults},
		)
	}

	// Iterations exhausted or an iteration bailed out: one last call,
	// without tools, to force the structured analysis.
	messages = append(messages, genai.TextMessage("user", finalAnalysisPrompt))

	finalCtx, cancel := context.WithTimeout(ctx, o.finalTimeout)
	defer cancel()
	response, err := o.llm.CreateMessage(finalCtx, genai.Request{
		System:   systemPrompt,
		Messages: messages,
	})
	if err != nil {
		utils.GetLogger().Warn("final analysis failed", zap.Error(err))
		return outcome
	}

	outcome.tokensIn += response.Usage.InputTokens
	outcome.tokensOut += response.Usage.OutputTokens
	outcome.analysis = parseFinalResponse(response.Text())
	return outcome
}

// executeToolCalls runs the requested tools and returns the trace entries
// plus the tool_result blocks to feed back to the model. A failing tool
// reports its failure as the result; it never aborts the loop.
func (o *Orchestrator) executeToolCalls(
	ctx context.Context,
	toolUses []genai.ContentBlock,
	scenario *models.LoanScenario,
	violations []models.RuleViolation,
	outcome *loopOutcome,
) ([]models.ToolCall, []genai.ContentBlock) {
	var processed []models.ToolCall
	var toolResults []genai.ContentBlock

	for _, use := range toolUses {
		var summary string

		switch use.Name {
		case toolQueryGuides:
			citations, s := o.runQueryGuides(ctx, use.Input)
			outcome.citations = append(outcome.citations, citations...)
			summary = s
		case toolSimulateScenario:
			simulation, s := o.runSimulateScenario(scenario, violations, use.Input)
			if simulation != nil {
				outcome.simulations = append(outcome.simulations, *simulation)
			}
			summary = s
		case toolCompareProducts:
			summary = o.runCompareProducts(ctx, use.Input)
		default:
			summary = fmt.Sprintf("Unknown tool: %s", use.Name)
		}

		processed = append(processed, models.ToolCall{
			ToolName:      use.Name,
			Arguments:     use.Input,
			ResultSummary: truncate(summary, 500),
		})
		toolResults = append(toolResults, genai.ContentBlock{
			Type:      "tool_result",
			ToolUseID: use.ID,
			Content:   summary,
		})
	}

	return processed, toolResults
}

func (o *Orchestrator) runQueryGuides(ctx context.Context, input map[string]any) ([]models.GuideCitation, string) {
	query, _ := input["query"].(string)
	gseFilter, _ := input["gse_filter"].(string)

	var gse models.GSE
	switch gseFilter {
	case "fannie_mae":
		gse = models.GSEFannieMae
	case "freddie_mac":
		gse = models.GSEFreddieMac
	}

	results, err := o.guides.Search(ctx, query, gse, queryGuidesTopK)
	if err != nil {
		utils.GetLogger().Warn("query_guides failed", zap.Error(err))
		return nil, fmt.Sprintf("Search failed: %v", err)
	}

	var citations []models.GuideCitation
	var parts []string
	for _, r := range results {
		citations = append(citations, r.Citation())

		gseLabel := "Freddie Mac"
		if r.GSE == models.GSEFannieMae {
			gseLabel = "Fannie Mae"
		}
		parts = append(parts, fmt.Sprintf("[%s %s] %s\n%s",
			gseLabel, r.SectionID, r.SectionTitle, truncate(r.Snippet, 600)))
	}

	if len(parts) == 0 {
		return citations, "No relevant sections found."
	}
	return citations, strings.Join(parts, "\n---\n")
}

func (o *Orchestrator) runSimulateScenario(
	scenario *models.LoanScenario,
	violations []models.RuleViolation,
	input map[string]any,
) (*models.SimulationResult, string) {
	description, _ := input["description"].(string)

	changes := make(map[string]float64)
	if raw, ok := input["changes"].(map[string]any); ok {
		for key, value := range raw {
			if number, ok := value.(float64); ok {
				changes[key] = number
			}
		}
	}

	simulation, summary := o.simulator.Simulate(scenario, changes, description, violations)
	return &simulation, summary
}

func (o *Orchestrator) runCompareProducts(ctx context.Context, input map[string]any) string {
	area, _ := input["requirement_area"].(string)
	query := fmt.Sprintf("%s requirements eligibility HomeReady Home Possible comparison", area)

	var parts []string

	if results, err := o.guides.Search(ctx, query, models.GSEFannieMae, compareProductsTopK); err != nil {
		utils.GetLogger().Warn("compare_products fannie_mae query failed", zap.Error(err))
	} else if len(results) > 0 {
		parts = append(parts, fmt.Sprintf("HomeReady (%s):\n%s", area, truncate(results[0].Snippet, 400)))
	}

	if results, err := o.guides.Search(ctx, query, models.GSEFreddieMac, compareProductsTopK); err != nil {
		utils.GetLogger().Warn("compare_products freddie_mac query failed", zap.Error(err))
	} else if len(results) > 0 {
		parts = append(parts, fmt.Sprintf("Home Possible (%s):\n%s", area, truncate(results[0].Snippet, 400)))
	}

	if len(parts) == 0 {
		return "No comparison data found."
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
