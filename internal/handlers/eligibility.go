package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"sage-engine/internal/models"
	"sage-engine/internal/utils"
)

// EligibilityRequest is the check-eligibility request body.
type EligibilityRequest struct {
	models.LoanScenario
	DemoMode bool `json:"demo_mode,omitempty"`
}

// EligibilityResponse is the full eligibility answer: the deterministic
// rules result, optionally enriched with the fix finder and the advisory
// guide-grounded analysis.
type EligibilityResponse struct {
	*models.EligibilityResult
	FixFinder   *models.FixFinderResult `json:"fix_finder,omitempty"`
	RAGAnalysis *RAGAnalysisData        `json:"rag_analysis,omitempty"`
}

// RAGAnalysisData carries the advisory guide-grounded assessment. The
// deterministic rules result above remains authoritative.
type RAGAnalysisData struct {
	Products       []models.ProductResult `json:"products"`
	Recommendation string                 `json:"recommendation"`
	FixSuggestions []models.FixSuggestion `json:"fix_suggestions"`
	Demo           *models.DemoModeData   `json:"demo,omitempty"`
}

func validateScenario(s *models.LoanScenario) error {
	if s.CreditScore < 300 || s.CreditScore > 850 {
		return fmt.Errorf("credit_score must be between 300 and 850")
	}
	if s.LoanAmount <= 0 {
		return fmt.Errorf("loan_amount must be positive")
	}
	if s.PropertyValue <= 0 {
		return fmt.Errorf("property_value must be positive")
	}
	if s.AnnualIncome < 0 {
		return fmt.Errorf("annual_income cannot be negative")
	}
	if s.MonthlyDebtPayments < 0 {
		return fmt.Errorf("monthly_debt_payments cannot be negative")
	}
	return nil
}

// EligibilityHandler checks a loan scenario against both products and,
// when enabled, runs the fix finder and the guide-grounded reasoner.
func (a *API) EligibilityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EligibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateScenario(&req.LoanScenario); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := a.engine.CheckEligibility(&req.LoanScenario)
	response := EligibilityResponse{EligibilityResult: result}

	violations := result.AllViolations()
	if a.cfg.EnableFixFinder && a.fixFinder != nil && len(violations) > 0 {
		response.FixFinder = a.fixFinder.FindFixes(
			r.Context(), &req.LoanScenario, violations, result.Products, req.DemoMode,
		)
	}

	if a.cfg.EnableRAGEligibility && a.reasoner != nil {
		analysis, err := a.reasoner.CheckEligibility(r.Context(), &req.LoanScenario)
		if err != nil {
			// Advisory only; the rules result stands on its own.
			utils.GetLogger().Warn("guide analysis unavailable", zap.Error(err))
		} else {
			data := &RAGAnalysisData{
				Products:       analysis.Products,
				Recommendation: analysis.Recommendation,
				FixSuggestions: analysis.FixSuggestions,
			}
			if req.DemoMode {
				data.Demo = &analysis.Demo
			}
			response.RAGAnalysis = data
		}
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: response})
}
