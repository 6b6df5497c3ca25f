package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amzops/sellerpulse/internal/diagnosis"
	"github.com/amzops/sellerpulse/internal/persistence"
	"github.com/amzops/sellerpulse/internal/rules"
)

type emptySnapshotSource struct{}

func (emptySnapshotSource) GetLatest(ctx context.Context, asin, warehouse string, window persistence.TimeWindow) (*persistence.InventorySnapshot, error) {
	return nil, nil
}

func testServer() *Server {
	engine := diagnosis.NewEngine(diagnosis.DefaultThresholds(), rules.NewEngine())
	orch := diagnosis.NewOrchestrator(engine, nil, emptySnapshotSource{}, false)
	return NewServer(nil, orch)
}

func healthyBody() string {
	return `{
		"asin": "B000TEST01",
		"warehouse_location": "US",
		"customer_price": 22,
		"fba_available": 120,
		"total_inventory": 150,
		"avg_daily_sales": 2.5,
		"daily_revenue": 55,
		"turnover_days": 60,
		"inventory_status": "sufficient",
		"sales_amount": 385,
		"sales_quantity": 17.5,
		"impressions": 10000,
		"clicks": 120,
		"ad_spend": 40,
		"ad_orders": 14
	}`
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleDiagnose_OK(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/diagnose", strings.NewReader(healthyBody()))
	testServer().Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result diagnosis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, diagnosis.ScenarioHealthy, result.Scenario)
	assert.Equal(t, "B000TEST01", result.ASIN)
	assert.NotEmpty(t, result.ActionPlan)
}

func TestHandleDiagnose_ValidationIs422(t *testing.T) {
	body := strings.Replace(healthyBody(), `"B000TEST01"`, `""`, 1)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/diagnose", strings.NewReader(body))
	testServer().Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var result diagnosis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, diagnosis.RiskHigh, result.RiskLevel)
	assert.Contains(t, result.Analysis, "Diagnosis aborted")
}

func TestHandleDiagnose_BadJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/diagnose", strings.NewReader("{not json"))
	testServer().Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAggregate_NotConfigured(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/aggregate", strings.NewReader(`{}`))
	testServer().Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleDiagnoseASIN_RouteParams(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/products/B0MISSING/US/diagnosis", nil)
	testServer().Handler().ServeHTTP(rec, req)

	// No snapshot for the product surfaces as a validation rejection.
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
