package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sage-engine/internal/config"
	"sage-engine/internal/services/rules"
	"sage-engine/internal/services/usage"
)

func newTestAPI() *API {
	return NewAPI(&config.Config{}, rules.NewEngine(), nil, nil, nil, usage.NewTracker(nil), nil)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealthHandler(t *testing.T) {
	api := newTestAPI()
	rec := httptest.NewRecorder()

	api.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "not configured", data["database"])
}

func TestEligibilityHandler_EligibleScenario(t *testing.T) {
	api := newTestAPI()

	body := `{
		"credit_score": 720,
		"annual_income": 85000,
		"loan_amount": 350000,
		"property_value": 400000,
		"loan_term_years": 30,
		"monthly_debt_payments": 500,
		"property_type": "single_family",
		"occupancy": "primary"
	}`
	rec := httptest.NewRecorder()
	api.EligibilityHandler(rec, httptest.NewRequest(http.MethodPost, "/api/eligibility/check", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	products := data["products"].([]interface{})
	require.Len(t, products, 2)
	for _, p := range products {
		assert.True(t, p.(map[string]interface{})["eligible"].(bool))
	}
	assert.Nil(t, data["fix_finder"])
	assert.Nil(t, data["rag_analysis"])
}

func TestEligibilityHandler_MethodNotAllowed(t *testing.T) {
	api := newTestAPI()
	rec := httptest.NewRecorder()

	api.EligibilityHandler(rec, httptest.NewRequest(http.MethodGet, "/api/eligibility/check", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEligibilityHandler_InvalidBody(t *testing.T) {
	api := newTestAPI()
	rec := httptest.NewRecorder()

	api.EligibilityHandler(rec, httptest.NewRequest(http.MethodPost, "/api/eligibility/check", bytes.NewReader([]byte("{broken"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid request body", resp.Error)
}

func TestEligibilityHandler_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"credit score out of range",
			`{"credit_score": 200, "loan_amount": 350000, "property_value": 400000, "annual_income": 85000}`,
			"credit_score",
		},
		{
			"non-positive loan amount",
			`{"credit_score": 720, "loan_amount": 0, "property_value": 400000, "annual_income": 85000}`,
			"loan_amount",
		},
		{
			"non-positive property value",
			`{"credit_score": 720, "loan_amount": 350000, "property_value": -1, "annual_income": 85000}`,
			"property_value",
		},
		{
			"negative income",
			`{"credit_score": 720, "loan_amount": 350000, "property_value": 400000, "annual_income": -5}`,
			"annual_income",
		},
	}

	api := newTestAPI()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			api.EligibilityHandler(rec, httptest.NewRequest(http.MethodPost, "/api/eligibility/check", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeResponse(t, rec).Error, tt.want)
		})
	}
}

func TestChatHandler_NotConfigured(t *testing.T) {
	api := newTestAPI()
	rec := httptest.NewRecorder()

	api.ChatHandler(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "hi"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUsageSummaryHandler_InvalidHours(t *testing.T) {
	api := newTestAPI()

	for _, hours := range []string{"abc", "0", "-3"} {
		rec := httptest.NewRecorder()
		api.UsageSummaryHandler(rec, httptest.NewRequest(http.MethodGet, "/api/usage/summary?hours="+hours, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestUsageFlushHandler(t *testing.T) {
	api := newTestAPI()
	rec := httptest.NewRecorder()

	api.UsageFlushHandler(rec, httptest.NewRequest(http.MethodPost, "/api/usage/flush", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
}

func TestRoutes_Registered(t *testing.T) {
	api := newTestAPI()
	mux := http.NewServeMux()
	api.Routes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
