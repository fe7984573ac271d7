package pharmacy

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/medcompare/pharmacy-orchestrator/internal/errs"
	"github.com/medcompare/pharmacy-orchestrator/internal/metrics"
	"github.com/medcompare/pharmacy-orchestrator/internal/models"
)

// NewRouter builds the pharmacy's gin router over the store.
func NewRouter(p *Pharmacy) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.PrometheusMiddleware(p.id + "-pharmacy"))

	router.GET("/health", p.health)
	router.GET("/status", p.status)

	router.GET("/medicines", p.listMedicines)
	router.GET("/medicines/search/:name", p.searchMedicines)
	router.GET("/medicines/:id", p.getMedicine)

	router.POST("/orders", p.createOrder)
	router.GET("/orders", p.listOrders)
	router.GET("/orders/:orderId", p.getOrder)

	router.POST("/pricing/compare", p.comparePricing)

	router.POST("/chaos/enable", p.enableChaos)
	router.POST("/chaos/disable", p.disableChaos)
	router.POST("/chaos/slow", p.enableSlowMode)
	router.POST("/chaos/slow/disable", p.disableSlowMode)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (p *Pharmacy) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"site":      p.name,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (p *Pharmacy) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":         p.id + "-pharmacy",
		"status":          "healthy",
		"chaos_enabled":   p.getChaosEnabled(),
		"chaos_slow_mode": p.getSlowMode(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

func (p *Pharmacy) listMedicines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"site":    p.name,
		"data":    p.Medicines(),
	})
}

func (p *Pharmacy) searchMedicines(c *gin.Context) {
	if err := p.simulateChaos(); err != nil {
		p.writeChaos(c, err)
		return
	}

	name := c.Param("name")
	results := p.Search(name)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"site":    p.name,
		"query":   name,
		"data":    results,
		"count":   len(results),
	})
}

func (p *Pharmacy) getMedicine(c *gin.Context) {
	medicine, ok := p.Medicine(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"site":    p.name,
			"message": "Medicine not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"site":    p.name,
		"data":    medicine,
	})
}

func (p *Pharmacy) createOrder(c *gin.Context) {
	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"site":    p.name,
			"message": "Invalid request: " + err.Error(),
		})
		return
	}

	if err := p.simulateChaos(); err != nil {
		p.writeChaos(c, err)
		return
	}

	order, err := p.PlaceOrder(req)
	if err != nil {
		c.JSON(errs.HTTPStatus(errs.KindOf(err)), gin.H{
			"success": false,
			"site":    p.name,
			"message": errs.Message(err),
		})
		return
	}

	log.WithFields(log.Fields{
		"pharmacy": p.id,
		"order_id": order.OrderID,
		"lines":    len(order.Lines),
		"total":    order.TotalPrice,
	}).Info("Order placed")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"site":    p.name,
		"message": "Order placed successfully",
		"data":    order,
	})
}

func (p *Pharmacy) listOrders(c *gin.Context) {
	orders := p.Orders()
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"site":        p.name,
		"totalOrders": len(orders),
		"data":        orders,
	})
}

func (p *Pharmacy) getOrder(c *gin.Context) {
	order, ok := p.Order(c.Param("orderId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"site":    p.name,
			"message": "Order not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"site":    p.name,
		"data":    order,
	})
}

func (p *Pharmacy) comparePricing(c *gin.Context) {
	var req models.ComparePricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"site":    p.name,
			"message": "Invalid request. Send medicineNames as array",
		})
		return
	}

	if err := p.simulateChaos(); err != nil {
		p.writeChaos(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"site":    p.name,
		"data":    p.Quote(req.MedicineNames),
	})
}

func (p *Pharmacy) enableChaos(c *gin.Context) {
	p.setChaosEnabled(true)
	metrics.ChaosFailureRate.WithLabelValues(p.id + "-pharmacy").Set(1)

	log.WithField("pharmacy", p.id).Info("Chaos mode ENABLED")
	c.JSON(http.StatusOK, gin.H{
		"message": "Chaos mode enabled",
		"info":    "30% of requests will fail randomly",
	})
}

func (p *Pharmacy) disableChaos(c *gin.Context) {
	p.setChaosEnabled(false)
	p.setSlowMode(false)
	metrics.ChaosFailureRate.WithLabelValues(p.id + "-pharmacy").Set(0)
	metrics.ChaosSlowMode.WithLabelValues(p.id + "-pharmacy").Set(0)

	log.WithField("pharmacy", p.id).Info("Chaos mode DISABLED")
	c.JSON(http.StatusOK, gin.H{"message": "Chaos mode disabled"})
}

func (p *Pharmacy) enableSlowMode(c *gin.Context) {
	p.setSlowMode(true)
	metrics.ChaosSlowMode.WithLabelValues(p.id + "-pharmacy").Set(1)

	log.WithField("pharmacy", p.id).Info("Slow mode ENABLED")
	c.JSON(http.StatusOK, gin.H{
		"message": "Slow mode enabled",
		"info":    "Requests will have 2-5 second delays",
	})
}

func (p *Pharmacy) disableSlowMode(c *gin.Context) {
	p.setSlowMode(false)
	metrics.ChaosSlowMode.WithLabelValues(p.id + "-pharmacy").Set(0)

	log.WithField("pharmacy", p.id).Info("Slow mode DISABLED")
	c.JSON(http.StatusOK, gin.H{"message": "Slow mode disabled"})
}

func (p *Pharmacy) writeChaos(c *gin.Context, err error) {
	log.WithField("pharmacy", p.id).Warn("Chaos: Simulated failure")
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"success": false,
		"site":    p.name,
		"message": "Service temporarily unavailable: " + err.Error(),
	})
}

func (p *Pharmacy) setChaosEnabled(enabled bool) {
	p.chaosMutex.Lock()
	defer p.chaosMutex.Unlock()
	p.chaosEnabled = enabled
}

func (p *Pharmacy) getChaosEnabled() bool {
	p.chaosMutex.RLock()
	defer p.chaosMutex.RUnlock()
	return p.chaosEnabled
}

func (p *Pharmacy) setSlowMode(enabled bool) {
	p.chaosMutex.Lock()
	defer p.chaosMutex.Unlock()
	p.chaosSlowMode = enabled
}

func (p *Pharmacy) getSlowMode() bool {
	p.chaosMutex.RLock()
	defer p.chaosMutex.RUnlock()
	return p.chaosSlowMode
}

func (p *Pharmacy) simulateChaos() error {
	if p.getSlowMode() {
		delay := time.Duration(2000+rand.Intn(3000)) * time.Millisecond
		log.WithField("delay_ms", delay.Milliseconds()).Debug("Chaos: Simulating slow response")
		time.Sleep(delay)
	}

	if p.getChaosEnabled() {
		// 30% failure rate
		if rand.Float32() < 0.3 {
			return errors.New("chaos failure injected")
		}
	}

	return nil
}
