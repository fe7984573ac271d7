package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcompare/pharmacy-orchestrator/internal/models"
	"github.com/medcompare/pharmacy-orchestrator/internal/orchestrator"
	"github.com/medcompare/pharmacy-orchestrator/internal/patterns"
	"github.com/medcompare/pharmacy-orchestrator/internal/pharmacy"
	"github.com/medcompare/pharmacy-orchestrator/internal/pricing"
	"github.com/medcompare/pharmacy-orchestrator/internal/provider"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newStack wires a full orchestrator over two live in-process pharmacies.
// stopBudget closes the budget backend before wiring, simulating a dead
// provider.
func newStack(t *testing.T, stopBudget bool) *Server {
	t.Helper()

	premium := httptest.NewServer(pharmacy.NewRouter(pharmacy.New("sitea", "Site A (Premium)", pharmacy.PremiumCatalog())))
	t.Cleanup(premium.Close)
	budget := httptest.NewServer(pharmacy.NewRouter(pharmacy.New("siteb", "Site B (Budget)", pharmacy.BudgetCatalog())))
	if stopBudget {
		budget.Close()
	} else {
		t.Cleanup(budget.Close)
	}

	providers := []models.Provider{
		{ID: "sitea", Name: "Site A (Premium)", BaseURL: premium.URL},
		{ID: "siteb", Name: "Site B (Budget)", BaseURL: budget.URL},
	}

	clients := make([]provider.Client, 0, len(providers))
	circuits := make(map[string]*patterns.CircuitBreakerWrapper)
	for _, p := range providers {
		client := provider.NewHTTPClient(p, 500*time.Millisecond, 4)
		clients = append(clients, client)
		circuits[p.ID] = client.Circuit()
	}

	intents := orchestrator.NewIntentStore(time.Minute)
	t.Cleanup(intents.Close)

	orch := orchestrator.New(clients, pricing.NewAggregator(clients, 500*time.Millisecond), intents)
	return NewServer(orch, circuits)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestComparePrices(t *testing.T) {
	s := newStack(t, false)

	w := doJSON(t, s, http.MethodPost, "/compare-prices", gin.H{
		"medicineNames": []string{"Aspirin 500mg", "Unobtainium"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Recommendations, 2)

	aspirin := resp.Recommendations[0]
	assert.Equal(t, "siteb", aspirin.ChosenProviderID, "budget price 180 beats premium 250")
	require.Len(t, aspirin.Offers, 2)

	assert.Empty(t, resp.Recommendations[1].ChosenProviderID)
}

func TestComparePrices_Validation(t *testing.T) {
	s := newStack(t, false)

	w := doJSON(t, s, http.MethodPost, "/compare-prices", gin.H{"medicineNames": []string{}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Kind string `json:"kind"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "validation_error", resp.Kind)
}

func TestComparePrices_DegradedProvider(t *testing.T) {
	s := newStack(t, true)

	w := doJSON(t, s, http.MethodPost, "/compare-prices", gin.H{
		"medicineNames": []string{"Aspirin 500mg"},
	})
	require.Equal(t, http.StatusOK, w.Code, "a dead provider must not fail the comparison")

	var resp struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, "sitea", resp.Recommendations[0].ChosenProviderID)

	require.Len(t, resp.Recommendations[0].Offers, 2)
	degraded := resp.Recommendations[0].Offers[1]
	assert.Equal(t, "siteb", degraded.ProviderID)
	assert.False(t, degraded.Available)
}

func TestApprovalFlow(t *testing.T) {
	s := newStack(t, false)

	w := doJSON(t, s, http.MethodPost, "/process-prescription", gin.H{
		"prescription": gin.H{"medicines": []gin.H{{"name": "Aspirin 500mg", "quantity": 10}}},
		"userEmail":    "user@example.com",
		"address":      "221B Baker St",
		"autoApprove":  false,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var pending models.ProcessPrescriptionResponse
	decode(t, w, &pending)
	assert.Equal(t, models.StatusPendingApproval, pending.Status)
	require.NotEmpty(t, pending.IntentID)
	require.Len(t, pending.Previews, 1)
	assert.Equal(t, "siteb", pending.Previews[0].ProviderID)
	assert.Equal(t, 1800.0, pending.Previews[0].EstimatedTotal)
	assert.Empty(t, pending.Orders)

	w = doJSON(t, s, http.MethodPost, "/approve-order", gin.H{"intentId": pending.IntentID})
	require.Equal(t, http.StatusOK, w.Code)

	var placed models.ProcessPrescriptionResponse
	decode(t, w, &placed)
	assert.Equal(t, models.StatusPlaced, placed.Status)
	require.Len(t, placed.Orders, 1)
	assert.Equal(t, 1800.0, placed.Orders[0].TotalPrice)

	// the intent is consumed: a replayed approval is a 404
	w = doJSON(t, s, http.MethodPost, "/approve-order", gin.H{"intentId": pending.IntentID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the placed order is trackable through the orchestrator
	w = doJSON(t, s, http.MethodGet, "/track-order/"+placed.Orders[0].OrderID+"/siteb", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tracked struct {
		Data models.Order `json:"data"`
	}
	decode(t, w, &tracked)
	assert.Equal(t, placed.Orders[0].OrderID, tracked.Data.OrderID)
}

func TestProcessPrescription_AutoApprove(t *testing.T) {
	s := newStack(t, false)

	w := doJSON(t, s, http.MethodPost, "/process-prescription", gin.H{
		"prescription": gin.H{"medicines": []gin.H{{"name": "Aspirin 500mg", "quantity": 10}}},
		"userEmail":    "user@example.com",
		"address":      "221B Baker St",
		"autoApprove":  true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ProcessPrescriptionResponse
	decode(t, w, &resp)
	assert.Equal(t, models.StatusPlaced, resp.Status)
	assert.Empty(t, resp.IntentID)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "siteb", resp.Orders[0].ProviderID)
	assert.Equal(t, 1800.0, resp.Orders[0].TotalPrice)
}

func TestProcessPrescription_Validation(t *testing.T) {
	s := newStack(t, false)

	w := doJSON(t, s, http.MethodPost, "/process-prescription", gin.H{
		"prescription": gin.H{"medicines": []gin.H{}},
		"userEmail":    "user@example.com",
		"address":      "addr",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/process-prescription", gin.H{
		"prescription": gin.H{"medicines": []gin.H{{"name": "Aspirin 500mg", "quantity": 10}}},
		"userEmail":    "not-an-email",
		"address":      "addr",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrackOrder_UnknownProvider(t *testing.T) {
	s := newStack(t, false)

	w := doJSON(t, s, http.MethodGet, "/track-order/SITEB-1/nowhere", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp struct {
		Kind string `json:"kind"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "not_found", resp.Kind)
}

func TestMedicineDetails(t *testing.T) {
	s := newStack(t, false)

	w := doJSON(t, s, http.MethodGet, "/medicine/a1/sitea", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.CatalogEntry `json:"data"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Aspirin 500mg", resp.Data.Name)

	w = doJSON(t, s, http.MethodGet, "/medicine/zz/sitea", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	s := newStack(t, false)

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status    string `json:"status"`
		Providers []struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"providers"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "alive", resp.Status)
	require.Len(t, resp.Providers, 2)
	assert.Equal(t, "Site A (Premium)", resp.Providers[0].Name)
}

func TestTestPrescription(t *testing.T) {
	s := newStack(t, false)

	w := doJSON(t, s, http.MethodGet, "/test-prescription", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Prescription models.Prescription `json:"prescription"`
	}
	decode(t, w, &resp)
	assert.Len(t, resp.Prescription.Medicines, 3)
}

func TestCircuitStatus(t *testing.T) {
	s := newStack(t, false)

	w := doJSON(t, s, http.MethodGet, "/circuit-status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]struct {
		State string `json:"state"`
		Value int    `json:"value"`
	}
	decode(t, w, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "closed", resp["sitea"].State)
}
