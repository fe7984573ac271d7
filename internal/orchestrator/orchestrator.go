package orchestrator

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/medcompare/pharmacy-orchestrator/internal/errs"
	"github.com/medcompare/pharmacy-orchestrator/internal/metrics"
	"github.com/medcompare/pharmacy-orchestrator/internal/models"
	"github.com/medcompare/pharmacy-orchestrator/internal/pricing"
	"github.com/medcompare/pharmacy-orchestrator/internal/provider"
)

const defaultPaymentMethod = "COD"

// Orchestrator drives the end-to-end workflow: resolve a prescription into
// quotes, select a provider per item, preview, gate on approval, place and
// track. It holds no shared mutable state besides the intent store.
type Orchestrator struct {
	clients    []provider.Client
	clientByID map[string]provider.Client
	aggregator *pricing.Aggregator
	intents    *IntentStore
}

// New wires the orchestrator over the registered provider clients.
func New(clients []provider.Client, aggregator *pricing.Aggregator, intents *IntentStore) *Orchestrator {
	byID := make(map[string]provider.Client, len(clients))
	for _, c := range clients {
		byID[c.Provider().ID] = c
	}
	return &Orchestrator{
		clients:    clients,
		clientByID: byID,
		aggregator: aggregator,
		intents:    intents,
	}
}

// Providers returns the configured provider roster.
func (o *Orchestrator) Providers() []models.Provider {
	providers := make([]models.Provider, len(o.clients))
	for i, c := range o.clients {
		providers[i] = c.Provider()
	}
	return providers
}

// ComparePrices aggregates quotes for the given names and attaches a
// recommendation per name. Partial provider failure degrades to absent
// quotes, it never fails the comparison.
func (o *Orchestrator) ComparePrices(ctx context.Context, names []string) *models.Comparison {
	quotes := o.aggregator.Compare(ctx, names)

	recommendations := make([]models.Recommendation, len(names))
	for i, name := range names {
		recommendations[i] = models.Recommendation{
			Medicine:         name,
			Offers:           pricing.Rank(quotes[name]),
			ChosenProviderID: pricing.Choose(quotes[name], 0),
		}
	}

	return &models.Comparison{
		SearchedMedicines: names,
		Quotes:            quotes,
		Recommendations:   recommendations,
	}
}

// ProcessPrescription resolves the prescription into per-provider order
// previews and either parks them behind an approval intent or places them
// immediately when autoApprove is set.
func (o *Orchestrator) ProcessPrescription(ctx context.Context, req models.ProcessPrescriptionRequest) (*models.ProcessPrescriptionResponse, error) {
	if req.PreferredProvider != "" {
		if _, ok := o.clientByID[req.PreferredProvider]; !ok {
			return nil, errs.New(errs.KindValidation, "unknown preferred provider %q", req.PreferredProvider)
		}
	}

	items := req.Prescription.Medicines
	quotes := o.aggregator.Compare(ctx, uniqueNames(items))

	intentOrders, unfulfilled := o.buildOrders(ctx, items, quotes, req.PreferredProvider)
	if len(intentOrders) == 0 {
		return nil, errs.New(errs.KindNotFound, "no provider can fulfil any prescription item")
	}

	if !req.AutoApprove {
		intent := o.intents.Create(intentOrders, req.UserEmail, req.Address)
		log.WithFields(log.Fields{
			"intent_id": intent.ID,
			"orders":    len(intentOrders),
		}).Info("Order previewed, awaiting approval")

		return &models.ProcessPrescriptionResponse{
			Status:      models.StatusPendingApproval,
			IntentID:    intent.ID,
			Previews:    o.previews(intentOrders),
			Unfulfilled: unfulfilled,
			Message:     "Order ready for approval. Call /approve-order with the intent id",
		}, nil
	}

	resp := o.place(ctx, intentOrders, req.UserEmail, req.Address)
	resp.Unfulfilled = unfulfilled
	return resp, nil
}

// Approve consumes a pending intent and places exactly what was previewed.
// The intent is claimed atomically before placement, so a repeated approve
// with the same id fails with not_found instead of double-placing.
func (o *Orchestrator) Approve(ctx context.Context, intentID string) (*models.ProcessPrescriptionResponse, error) {
	intent, ok := o.intents.Consume(intentID)
	if !ok {
		return nil, errs.New(errs.KindNotFound, "order intent %s not found, expired or already consumed", intentID)
	}

	log.WithFields(log.Fields{
		"intent_id": intentID,
		"orders":    len(intent.Orders),
	}).Info("Order intent approved, placing")

	return o.place(ctx, intent.Orders, intent.UserEmail, intent.Address), nil
}

// Track passes an order status request through to the owning provider.
func (o *Orchestrator) Track(ctx context.Context, orderID, providerID string) (*models.Order, error) {
	client, ok := o.clientByID[providerID]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "unknown provider %q", providerID)
	}
	return client.GetOrder(ctx, orderID)
}

// MedicineDetails passes a catalog lookup through to one provider.
func (o *Orchestrator) MedicineDetails(ctx context.Context, medicineID, providerID string) (*models.CatalogEntry, error) {
	client, ok := o.clientByID[providerID]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "unknown provider %q", providerID)
	}
	return client.GetMedicine(ctx, medicineID)
}

// buildOrders resolves each prescription item to a provider and groups the
// resulting line items per provider, in provider registration order. Items
// no provider can serve are reported back, not silently dropped.
func (o *Orchestrator) buildOrders(ctx context.Context, items []models.PrescriptionItem, quotes map[string][]models.PriceQuote, preferred string) ([]models.IntentOrder, []string) {
	type resolvedItem struct {
		item  models.PrescriptionItem
		quote models.PriceQuote
	}

	byProvider := make(map[string][]resolvedItem)
	var unfulfilled []string

	// Quotes are keyed by the requested name; index them case-insensitively
	// so item spelling never misses its own quote group.
	byName := make(map[string][]models.PriceQuote, len(quotes))
	for name, group := range quotes {
		byName[strings.ToLower(name)] = group
	}

	for _, item := range items {
		group := byName[strings.ToLower(item.Name)]
		chosen := o.resolveProvider(group, item.Quantity, preferred)
		if chosen == "" {
			unfulfilled = append(unfulfilled, item.Name)
			continue
		}
		byProvider[chosen] = append(byProvider[chosen], resolvedItem{item: item, quote: quoteFor(group, chosen)})
	}

	var orders []models.IntentOrder
	for _, client := range o.clients {
		providerID := client.Provider().ID
		resolved, ok := byProvider[providerID]
		if !ok {
			continue
		}

		order := models.IntentOrder{ProviderID: providerID}
		for _, r := range resolved {
			entry, err := o.findCatalogEntry(ctx, client, r.item.Name)
			if err != nil {
				log.WithFields(log.Fields{
					"provider": providerID,
					"medicine": r.item.Name,
				}).Warn("Catalog resolution failed: ", err)
				unfulfilled = append(unfulfilled, r.item.Name)
				continue
			}

			// Unit price comes from the quote the provider gave, never
			// recomputed or taken from the caller.
			unitPrice := 0.0
			if r.quote.Price != nil {
				unitPrice = *r.quote.Price
			}
			order.Lines = append(order.Lines, models.OrderLine{
				MedicineID:   entry.ID,
				MedicineName: entry.Name,
				Quantity:     r.item.Quantity,
				UnitPrice:    unitPrice,
				Subtotal:     unitPrice * float64(r.item.Quantity),
			})
			order.EstimatedTotal += unitPrice * float64(r.item.Quantity)
			if r.quote.DeliveryDays != nil && *r.quote.DeliveryDays > order.EstimatedDeliveryDays {
				order.EstimatedDeliveryDays = *r.quote.DeliveryDays
			}
		}
		if len(order.Lines) > 0 {
			orders = append(orders, order)
		}
	}
	return orders, unfulfilled
}

// resolveProvider prefers the caller's provider when it can actually serve
// the item, otherwise falls back to the deterministic selector.
func (o *Orchestrator) resolveProvider(quotes []models.PriceQuote, quantity int, preferred string) string {
	if preferred != "" {
		q := quoteFor(quotes, preferred)
		if q.Available && (quantity <= 0 || q.Stock >= quantity) {
			return preferred
		}
	}
	return pricing.Choose(quotes, quantity)
}

// findCatalogEntry resolves a medicine name to the provider's catalog id.
func (o *Orchestrator) findCatalogEntry(ctx context.Context, client provider.Client, name string) (*models.CatalogEntry, error) {
	entries, err := client.Search(ctx, name)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if strings.EqualFold(entries[i].Name, name) {
			return &entries[i], nil
		}
	}
	if len(entries) > 0 {
		return &entries[0], nil
	}
	return nil, errs.New(errs.KindNotFound, "medicine %q not in provider %s catalog", name, client.Provider().ID)
}

// place submits one order per provider grouping. Groupings are independent
// sub-orders: partial success is surfaced, not rolled back. Placement runs
// on a context detached from the caller because a dispatched purchase must
// be allowed to complete even if the caller disconnects.
func (o *Orchestrator) place(ctx context.Context, orders []models.IntentOrder, userEmail, address string) *models.ProcessPrescriptionResponse {
	placeCtx := context.WithoutCancel(ctx)

	resp := &models.ProcessPrescriptionResponse{}
	for _, intentOrder := range orders {
		client := o.clientByID[intentOrder.ProviderID]

		items := make([]models.PlaceOrderItem, len(intentOrder.Lines))
		for i, line := range intentOrder.Lines {
			items[i] = models.PlaceOrderItem{MedicineID: line.MedicineID, Quantity: line.Quantity}
		}

		order, err := client.PlaceOrder(placeCtx, models.PlaceOrderRequest{
			Medicines:     items,
			UserEmail:     userEmail,
			Address:       address,
			PaymentMethod: defaultPaymentMethod,
		})
		if err != nil {
			log.WithFields(log.Fields{
				"provider": intentOrder.ProviderID,
				"lines":    len(items),
			}).Error("Order placement failed: ", err)
			metrics.OrdersPlaced.WithLabelValues(intentOrder.ProviderID, "failed").Inc()
			resp.Failures = append(resp.Failures, models.PlacementFailure{
				ProviderID: intentOrder.ProviderID,
				Kind:       string(errs.KindOf(err)),
				Message:    errs.Message(err),
			})
			continue
		}

		log.WithFields(log.Fields{
			"provider": intentOrder.ProviderID,
			"order_id": order.OrderID,
			"total":    order.TotalPrice,
		}).Info("Order placed")
		metrics.OrdersPlaced.WithLabelValues(intentOrder.ProviderID, "placed").Inc()
		resp.Orders = append(resp.Orders, *order)
	}

	if len(resp.Orders) > 0 {
		resp.Status = models.StatusPlaced
		resp.Message = "Order placed"
	} else {
		resp.Status = models.StatusFailed
		resp.Message = "Order placement failed for every provider"
	}
	return resp
}

// previews renders intent orders as caller-facing previews.
func (o *Orchestrator) previews(orders []models.IntentOrder) []models.OrderPreview {
	previews := make([]models.OrderPreview, len(orders))
	for i, order := range orders {
		name := order.ProviderID
		if client, ok := o.clientByID[order.ProviderID]; ok {
			name = client.Provider().Name
		}
		previews[i] = models.OrderPreview{
			ProviderID:            order.ProviderID,
			ProviderName:          name,
			Lines:                 order.Lines,
			EstimatedTotal:        order.EstimatedTotal,
			EstimatedDeliveryDays: order.EstimatedDeliveryDays,
		}
	}
	return previews
}

// quoteFor picks one provider's quote out of a medicine's quote group.
func quoteFor(quotes []models.PriceQuote, providerID string) models.PriceQuote {
	for _, q := range quotes {
		if q.ProviderID == providerID {
			return q
		}
	}
	return models.PriceQuote{}
}

// uniqueNames keeps the first occurrence of each medicine name, preserving
// prescription order, so the aggregator sees each name exactly once.
func uniqueNames(items []models.PrescriptionItem) []string {
	seen := make(map[string]bool, len(items))
	names := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(item.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, item.Name)
	}
	return names
}
