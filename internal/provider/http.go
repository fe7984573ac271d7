package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/medcompare/pharmacy-orchestrator/internal/errs"
	"github.com/medcompare/pharmacy-orchestrator/internal/models"
	"github.com/medcompare/pharmacy-orchestrator/internal/patterns"
)

// envelope is the wire frame every pharmacy endpoint responds with.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// wireQuote is one entry of a pricing/compare response.
type wireQuote struct {
	Name         string   `json:"name"`
	Available    bool     `json:"available"`
	Price        *float64 `json:"price"`
	DeliveryDays *int     `json:"deliveryDays"`
	Rating       *float64 `json:"rating"`
	Stock        int      `json:"stock"`
}

// HTTPClient talks to one pharmacy backend over its REST contract. Calls go
// through a bulkhead and a circuit breaker so one degraded provider cannot
// exhaust the orchestrator or keep being hammered while down.
type HTTPClient struct {
	provider models.Provider
	rest     *resty.Client
	circuit  *patterns.CircuitBreakerWrapper
	bulkhead *patterns.Bulkhead
}

// NewHTTPClient builds a client for one provider with the given per-call
// timeout and bulkhead capacity.
func NewHTTPClient(p models.Provider, timeout time.Duration, bulkheadSize int) *HTTPClient {
	return &HTTPClient{
		provider: p,
		rest: resty.New().
			SetBaseURL(p.BaseURL).
			SetTimeout(timeout).
			SetRetryCount(0), // No automatic retries, failures degrade or fail closed
		circuit:  patterns.NewCircuitBreaker(p.ID, "orchestrator-service"),
		bulkhead: patterns.NewBulkhead(bulkheadSize, p.ID, "orchestrator-service"),
	}
}

// Provider returns the static identity of the backend.
func (c *HTTPClient) Provider() models.Provider {
	return c.provider
}

// Circuit exposes the provider's breaker for the status endpoint.
func (c *HTTPClient) Circuit() *patterns.CircuitBreakerWrapper {
	return c.circuit
}

func (c *HTTPClient) Search(ctx context.Context, name string) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	err := c.call(ctx, func() (*resty.Response, error) {
		return c.rest.R().SetContext(ctx).Get("/medicines/search/" + url.PathEscape(name))
	}, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *HTTPClient) GetMedicine(ctx context.Context, id string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	err := c.call(ctx, func() (*resty.Response, error) {
		return c.rest.R().SetContext(ctx).Get("/medicines/" + url.PathEscape(id))
	}, &entry)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *HTTPClient) QuotePrices(ctx context.Context, names []string) ([]models.PriceQuote, error) {
	var wire []wireQuote
	err := c.call(ctx, func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(models.ComparePricesRequest{MedicineNames: names}).
			Post("/pricing/compare")
	}, &wire)
	if err != nil {
		return nil, err
	}

	if len(wire) != len(names) {
		return nil, errs.New(errs.KindProviderUnavailable,
			"provider %s returned %d quotes for %d medicines", c.provider.ID, len(wire), len(names))
	}

	quotes := make([]models.PriceQuote, len(wire))
	for i, w := range wire {
		quotes[i] = models.PriceQuote{
			ProviderID:   c.provider.ID,
			Name:         names[i],
			Available:    w.Available,
			Price:        w.Price,
			DeliveryDays: w.DeliveryDays,
			Rating:       w.Rating,
			Stock:        w.Stock,
		}
	}
	return quotes, nil
}

func (c *HTTPClient) PlaceOrder(ctx context.Context, req models.PlaceOrderRequest) (*models.Order, error) {
	var order models.Order
	err := c.callWith(ctx, errs.KindInsufficientStock, func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(req).
			Post("/orders")
	}, &order)
	if err != nil {
		return nil, err
	}
	order.ProviderID = c.provider.ID
	return &order, nil
}

func (c *HTTPClient) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := c.call(ctx, func() (*resty.Response, error) {
		return c.rest.R().SetContext(ctx).Get("/orders/" + url.PathEscape(orderID))
	}, &order)
	if err != nil {
		return nil, err
	}
	order.ProviderID = c.provider.ID
	return &order, nil
}

// call runs one HTTP request through the bulkhead and circuit breaker and
// decodes the response envelope's data field into out.
func (c *HTTPClient) call(ctx context.Context, do func() (*resty.Response, error), out interface{}) error {
	return c.callWith(ctx, errs.KindProviderUnavailable, do, out)
}

// callWith lets the caller pick the kind a 400 response maps to: only order
// placement has a defined 400 meaning (insufficient stock); anywhere else a
// 400 means the provider rejected a well-formed request, which is treated as
// a provider fault.
func (c *HTTPClient) callWith(ctx context.Context, badRequestKind errs.Kind, do func() (*resty.Response, error), out interface{}) error {
	err := c.bulkhead.Execute(func() error {
		result, cbErr := c.circuit.Execute(func() (interface{}, error) {
			resp, httpErr := do()
			if httpErr != nil {
				return nil, errs.Wrap(errs.KindProviderUnavailable, httpErr,
					"provider %s unreachable", c.provider.ID)
			}
			decodeErr := c.decode(resp, badRequestKind, out)
			if decodeErr != nil && errs.KindOf(decodeErr) != errs.KindProviderUnavailable {
				// Business rejections are healthy provider responses, they
				// must not trip the breaker.
				return decodeErr, nil
			}
			return nil, decodeErr
		})
		if patterns.IsOpenState(cbErr) {
			return errs.Wrap(errs.KindProviderUnavailable, patterns.FormatError(c.provider.ID, cbErr),
				"provider %s unavailable", c.provider.ID)
		}
		if cbErr != nil {
			return cbErr
		}
		if bizErr, ok := result.(error); ok {
			return bizErr
		}
		return nil
	})
	if err != nil {
		log.WithFields(log.Fields{
			"provider": c.provider.ID,
			"kind":     errs.KindOf(err),
		}).Warn("Provider call failed: ", err)
	}
	return err
}

// decode maps a provider response to the error taxonomy. Business errors
// (404 unknown id/order, 400 insufficient stock) keep the provider's message;
// anything else from the transport is a provider_unavailable condition.
func (c *HTTPClient) decode(resp *resty.Response, badRequestKind errs.Kind, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return errs.Wrap(errs.KindProviderUnavailable, err,
			"provider %s returned malformed response", c.provider.ID)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return errs.New(errs.KindNotFound, "%s", providerMessage(env, "not found"))
	case resp.StatusCode() == http.StatusBadRequest:
		return errs.New(badRequestKind, "%s", providerMessage(env, "request rejected"))
	case resp.StatusCode() != http.StatusOK:
		return errs.New(errs.KindProviderUnavailable,
			"provider %s returned status %d", c.provider.ID, resp.StatusCode())
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errs.Wrap(errs.KindProviderUnavailable, err,
			"provider %s returned malformed data", c.provider.ID)
	}
	return nil
}

func providerMessage(env envelope, fallback string) string {
	if env.Message != "" {
		return env.Message
	}
	return fallback
}

var _ Client = (*HTTPClient)(nil)

// Sanity check so a misconfigured base URL fails at startup, not mid-request.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid provider base URL %q", raw)
	}
	return nil
}
