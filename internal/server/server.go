package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medcompare/pharmacy-orchestrator/internal/errs"
	"github.com/medcompare/pharmacy-orchestrator/internal/metrics"
	"github.com/medcompare/pharmacy-orchestrator/internal/models"
	"github.com/medcompare/pharmacy-orchestrator/internal/orchestrator"
	"github.com/medcompare/pharmacy-orchestrator/internal/patterns"
)

// Server exposes the orchestrator over HTTP.
type Server struct {
	engine   *gin.Engine
	orch     *orchestrator.Orchestrator
	circuits map[string]*patterns.CircuitBreakerWrapper
}

// NewServer builds the gin router. circuits is optional, keyed by provider
// id, and only feeds the circuit-status endpoint.
func NewServer(orch *orchestrator.Orchestrator, circuits map[string]*patterns.CircuitBreakerWrapper) *Server {
	s := &Server{
		engine:   gin.New(),
		orch:     orch,
		circuits: circuits,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(metrics.PrometheusMiddleware("orchestrator-service"))

	s.engine.GET("/health", s.health)
	s.engine.POST("/compare-prices", s.comparePrices)
	s.engine.POST("/process-prescription", s.processPrescription)
	s.engine.POST("/approve-order", s.approveOrder)
	s.engine.GET("/track-order/:orderId/:providerId", s.trackOrder)
	s.engine.GET("/medicine/:id/:providerId", s.medicineDetails)
	s.engine.GET("/test-prescription", s.testPrescription)
	s.engine.GET("/circuit-status", s.circuitStatus)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Engine exposes the router for main and for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	type providerInfo struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	providers := make([]providerInfo, 0)
	for _, p := range s.orch.Providers() {
		providers = append(providers, providerInfo{Name: p.Name, Address: p.BaseURL})
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"server":    "pharmacy-orchestrator",
		"providers": providers,
	})
}

func (s *Server) comparePrices(c *gin.Context) {
	var req models.ComparePricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	comparison := s.orch.ComparePrices(c.Request.Context(), req.MedicineNames)
	c.JSON(http.StatusOK, gin.H{
		"comparison":      comparison,
		"recommendations": comparison.Recommendations,
	})
}

func (s *Server) processPrescription(c *gin.Context) {
	var req models.ProcessPrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	resp, err := s.orch.ProcessPrescription(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(statusFor(resp), resp)
}

func (s *Server) approveOrder(c *gin.Context) {
	var req models.ApproveOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	resp, err := s.orch.Approve(c.Request.Context(), req.IntentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(statusFor(resp), resp)
}

func (s *Server) trackOrder(c *gin.Context) {
	order, err := s.orch.Track(c.Request.Context(), c.Param("orderId"), c.Param("providerId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) medicineDetails(c *gin.Context) {
	entry, err := s.orch.MedicineDetails(c.Request.Context(), c.Param("id"), c.Param("providerId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

// testPrescription returns a sample prescription for manual testing.
func (s *Server) testPrescription(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"prescription": models.Prescription{
			Medicines: []models.PrescriptionItem{
				{Name: "Aspirin 500mg", Quantity: 10},
				{Name: "Vitamin D3 1000IU", Quantity: 30},
				{Name: "Paracetamol 500mg", Quantity: 15},
			},
		},
		"message": "Sample prescription for testing",
	})
}

func (s *Server) circuitStatus(c *gin.Context) {
	status := gin.H{}
	for id, circuit := range s.circuits {
		status[id] = gin.H{
			"state": circuit.GetState(),
			"value": circuit.GetStateValue(),
		}
	}
	c.JSON(http.StatusOK, status)
}

// statusFor maps a workflow outcome to a response code: pending and placed
// are success, a run where every placement failed is a gateway failure.
func statusFor(resp *models.ProcessPrescriptionResponse) int {
	if resp.Status == models.StatusFailed {
		return http.StatusBadGateway
	}
	return http.StatusOK
}

func writeValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"kind":    string(errs.KindValidation),
		"message": "Invalid request: " + err.Error(),
	})
}

func writeError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	c.JSON(errs.HTTPStatus(kind), gin.H{
		"kind":    string(kind),
		"message": errs.Message(err),
	})
}
