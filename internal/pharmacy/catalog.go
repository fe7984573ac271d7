package pharmacy

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medcompare/pharmacy-orchestrator/internal/errs"
	"github.com/medcompare/pharmacy-orchestrator/internal/metrics"
	"github.com/medcompare/pharmacy-orchestrator/internal/models"
)

// Pharmacy is an in-memory mock provider: a catalog with live stock and an
// order book. It implements the provider REST contract the orchestrator
// consumes.
type Pharmacy struct {
	id    string
	name  string
	mutex sync.RWMutex
	// slice, not map: catalog listing and search results keep seed order
	medicines []*models.CatalogEntry
	orders    map[string]*models.Order
	orderIDs  []string

	chaosEnabled  bool
	chaosSlowMode bool
	chaosMutex    sync.RWMutex
}

// New creates a pharmacy with the given identity and seed catalog.
func New(id, name string, catalog []models.CatalogEntry) *Pharmacy {
	p := &Pharmacy{
		id:     id,
		name:   name,
		orders: make(map[string]*models.Order),
	}
	for i := range catalog {
		entry := catalog[i]
		p.medicines = append(p.medicines, &entry)
		metrics.StockLevel.WithLabelValues(id, entry.ID).Set(float64(entry.Stock))
	}
	return p
}

// ID returns the pharmacy's provider id.
func (p *Pharmacy) ID() string { return p.id }

// Name returns the pharmacy's display name.
func (p *Pharmacy) Name() string { return p.name }

// Medicines returns a snapshot of the catalog.
func (p *Pharmacy) Medicines() []models.CatalogEntry {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	out := make([]models.CatalogEntry, len(p.medicines))
	for i, m := range p.medicines {
		out[i] = *m
	}
	return out
}

// Search matches medicines by case-insensitive substring on name or
// category. An empty result is a valid answer, not an error.
func (p *Pharmacy) Search(query string) []models.CatalogEntry {
	needle := strings.ToLower(query)

	p.mutex.RLock()
	defer p.mutex.RUnlock()

	results := make([]models.CatalogEntry, 0)
	for _, m := range p.medicines {
		if strings.Contains(strings.ToLower(m.Name), needle) ||
			strings.Contains(strings.ToLower(m.Category), needle) {
			results = append(results, *m)
		}
	}
	return results
}

// Medicine returns one catalog entry by id.
func (p *Pharmacy) Medicine(id string) (models.CatalogEntry, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	for _, m := range p.medicines {
		if m.ID == id {
			return *m, true
		}
	}
	return models.CatalogEntry{}, false
}

// Quote answers one pricing entry per requested name, exact
// case-insensitive name match, in request order.
func (p *Pharmacy) Quote(names []string) []models.PriceQuote {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	quotes := make([]models.PriceQuote, len(names))
	for i, name := range names {
		quotes[i] = models.PriceQuote{Name: name, Available: false}
		for _, m := range p.medicines {
			if strings.EqualFold(m.Name, name) {
				price, rating, days := m.Price, m.Rating, m.DeliveryDays
				quotes[i] = models.PriceQuote{
					Name:         name,
					Available:    true,
					Price:        &price,
					DeliveryDays: &days,
					Rating:       &rating,
					Stock:        m.Stock,
				}
				break
			}
		}
	}
	return quotes
}

// PlaceOrder checks and decrements stock line by line in request order,
// against working copies that are only committed when every line fits.
// A failed line leaves the catalog untouched.
func (p *Pharmacy) PlaceOrder(req models.PlaceOrderRequest) (*models.Order, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	byID := make(map[string]*models.CatalogEntry, len(p.medicines))
	for _, m := range p.medicines {
		byID[m.ID] = m
	}

	remaining := make(map[string]int, len(req.Medicines))
	lines := make([]models.OrderLine, 0, len(req.Medicines))
	total := 0.0
	maxDelivery := 0

	for _, item := range req.Medicines {
		m, ok := byID[item.MedicineID]
		if !ok {
			metrics.PharmacyOrdersTotal.WithLabelValues(p.id, "not_found").Inc()
			return nil, errs.New(errs.KindNotFound, "Medicine %s not found", item.MedicineID)
		}
		if _, tracked := remaining[m.ID]; !tracked {
			remaining[m.ID] = m.Stock
		}
		if remaining[m.ID] < item.Quantity {
			metrics.PharmacyOrdersTotal.WithLabelValues(p.id, "insufficient_stock").Inc()
			return nil, errs.New(errs.KindInsufficientStock,
				"Insufficient stock for %s. Available: %d", m.Name, remaining[m.ID])
		}
		remaining[m.ID] -= item.Quantity

		lines = append(lines, models.OrderLine{
			MedicineID:   m.ID,
			MedicineName: m.Name,
			Quantity:     item.Quantity,
			UnitPrice:    m.Price,
			Subtotal:     m.Price * float64(item.Quantity),
		})
		total += m.Price * float64(item.Quantity)
		if m.DeliveryDays > maxDelivery {
			maxDelivery = m.DeliveryDays
		}
	}

	// Every line fits, commit the decrements.
	for id, stock := range remaining {
		byID[id].Stock = stock
		metrics.StockLevel.WithLabelValues(p.id, id).Set(float64(stock))
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "COD"
	}

	now := time.Now()
	order := &models.Order{
		OrderID:           fmt.Sprintf("%s-%d", strings.ToUpper(p.id), now.UnixMilli()),
		Lines:             lines,
		TotalPrice:        total,
		UserEmail:         req.UserEmail,
		Address:           req.Address,
		PaymentMethod:     paymentMethod,
		Status:            "confirmed",
		OrderDate:         now,
		EstimatedDelivery: now.Add(time.Duration(maxDelivery) * 24 * time.Hour),
		TrackingID:        "TRK-" + strings.ToUpper(uuid.New().String()[:8]),
	}
	p.orders[order.OrderID] = order
	p.orderIDs = append(p.orderIDs, order.OrderID)
	metrics.PharmacyOrdersTotal.WithLabelValues(p.id, "confirmed").Inc()

	return order, nil
}

// Order returns one placed order by id.
func (p *Pharmacy) Order(orderID string) (models.Order, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	order, ok := p.orders[orderID]
	if !ok {
		return models.Order{}, false
	}
	return *order, true
}

// Orders returns every placed order in placement order.
func (p *Pharmacy) Orders() []models.Order {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	out := make([]models.Order, 0, len(p.orderIDs))
	for _, id := range p.orderIDs {
		out = append(out, *p.orders[id])
	}
	return out
}

// PremiumCatalog seeds the premium pharmacy profile: faster delivery,
// higher ratings, higher prices.
func PremiumCatalog() []models.CatalogEntry {
	return []models.CatalogEntry{
		{ID: "a1", Name: "Aspirin 500mg", Price: 250, PackSize: 10, DeliveryDays: 1, Rating: 4.8, Manufacturer: "PharmaCorp A", Description: "High-quality pain reliever and anti-inflammatory", Stock: 150, Category: "Pain Relief"},
		{ID: "a2", Name: "Vitamin D3 1000IU", Price: 180, PackSize: 30, DeliveryDays: 1, Rating: 4.9, Manufacturer: "NutriCare A", Description: "Premium vitamin D supplement", Stock: 200, Category: "Vitamins"},
		{ID: "a3", Name: "Amoxicillin 250mg", Price: 120, PackSize: 10, DeliveryDays: 2, Rating: 4.7, Manufacturer: "AntiBiotics A", Description: "Antibiotic for bacterial infections", Stock: 100, Category: "Antibiotics"},
		{ID: "a4", Name: "Paracetamol 500mg", Price: 80, PackSize: 15, DeliveryDays: 1, Rating: 4.6, Manufacturer: "FeverCare A", Description: "Effective fever and pain management", Stock: 250, Category: "Pain Relief"},
		{ID: "a5", Name: "Omeprazole 20mg", Price: 200, PackSize: 10, DeliveryDays: 2, Rating: 4.5, Manufacturer: "GastroWell A", Description: "Acid reflux and gastric ulcer treatment", Stock: 80, Category: "Gastro"},
	}
}

// BudgetCatalog seeds the budget pharmacy profile: cheaper, slower, deeper
// stock.
func BudgetCatalog() []models.CatalogEntry {
	return []models.CatalogEntry{
		{ID: "b1", Name: "Aspirin 500mg", Price: 180, PackSize: 10, DeliveryDays: 3, Rating: 4.3, Manufacturer: "GenericMeds B", Description: "Affordable pain reliever", Stock: 300, Category: "Pain Relief"},
		{ID: "b2", Name: "Vitamin D3 1000IU", Price: 120, PackSize: 30, DeliveryDays: 2, Rating: 4.1, Manufacturer: "ValueVits B", Description: "Budget vitamin D supplement", Stock: 400, Category: "Vitamins"},
		{ID: "b3", Name: "Amoxicillin 250mg", Price: 85, PackSize: 10, DeliveryDays: 3, Rating: 4.2, Manufacturer: "EconoBiotics B", Description: "Generic antibiotic", Stock: 250, Category: "Antibiotics"},
		{ID: "b4", Name: "Paracetamol 500mg", Price: 50, PackSize: 15, DeliveryDays: 2, Rating: 4.0, Manufacturer: "BasicCare B", Description: "Generic fever and pain relief", Stock: 500, Category: "Pain Relief"},
		{ID: "b5", Name: "Omeprazole 20mg", Price: 140, PackSize: 10, DeliveryDays: 3, Rating: 4.4, Manufacturer: "StomachEase B", Description: "Generic acid reflux treatment", Stock: 150, Category: "Gastro"},
		{ID: "b6", Name: "Metformin 500mg", Price: 95, PackSize: 20, DeliveryDays: 2, Rating: 4.2, Manufacturer: "DiabeCare B", Description: "Diabetes management medication", Stock: 200, Category: "Diabetes"},
	}
}
