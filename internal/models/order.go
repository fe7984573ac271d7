package models

import "time"

// PrescriptionItem is one medicine line of a prescription
type PrescriptionItem struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// Prescription represents the medicine list to resolve into orders
type Prescription struct {
	Medicines []PrescriptionItem `json:"medicines" binding:"required,min=1,dive"`
}

// OrderLine is a priced line item, unit price confirmed by the provider
type OrderLine struct {
	MedicineID   string  `json:"medicineId"`
	MedicineName string  `json:"medicineName"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	Subtotal     float64 `json:"subtotal"`
}

// OrderPreview shows what would be ordered from one provider. Ephemeral,
// it only ever exists inside a response body.
type OrderPreview struct {
	ProviderID            string      `json:"providerId"`
	ProviderName          string      `json:"providerName"`
	Lines                 []OrderLine `json:"lineItems"`
	EstimatedTotal        float64     `json:"estimatedTotal"`
	EstimatedDeliveryDays int         `json:"estimatedDeliveryDays"`
}

// Order is a placed order as confirmed by the owning provider
type Order struct {
	OrderID           string      `json:"orderId"`
	ProviderID        string      `json:"providerId,omitempty"`
	Lines             []OrderLine `json:"medicines"`
	TotalPrice        float64     `json:"totalPrice"`
	UserEmail         string      `json:"userEmail"`
	Address           string      `json:"address"`
	PaymentMethod     string      `json:"paymentMethod"`
	Status            string      `json:"status"`
	OrderDate         time.Time   `json:"orderDate"`
	EstimatedDelivery time.Time   `json:"estimatedDelivery"`
	TrackingID        string      `json:"trackingId"`
}

// Workflow status constants
const (
	StatusPendingApproval = "PendingApproval"
	StatusPlaced          = "Placed"
	StatusFailed          = "Failed"
)

// ProcessPrescriptionRequest represents a prescription processing request
type ProcessPrescriptionRequest struct {
	Prescription      Prescription `json:"prescription" binding:"required"`
	UserEmail         string       `json:"userEmail" binding:"required,email"`
	Address           string       `json:"address" binding:"required"`
	AutoApprove       bool         `json:"autoApprove"`
	PreferredProvider string       `json:"preferredProvider"`
}

// PlacementFailure reports one provider grouping that could not be placed
type PlacementFailure struct {
	ProviderID string `json:"providerId"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

// ProcessPrescriptionResponse is returned by process-prescription and
// approve-order. IntentID and Previews are set while pending approval;
// Orders and Failures after placement.
type ProcessPrescriptionResponse struct {
	Status      string             `json:"status"`
	IntentID    string             `json:"intentId,omitempty"`
	Previews    []OrderPreview     `json:"preview,omitempty"`
	Orders      []Order            `json:"orders,omitempty"`
	Failures    []PlacementFailure `json:"failures,omitempty"`
	Unfulfilled []string           `json:"unfulfilled,omitempty"`
	Message     string             `json:"message,omitempty"`
}

// ApproveOrderRequest references a pending intent by its opaque id
type ApproveOrderRequest struct {
	IntentID string `json:"intentId" binding:"required"`
}

// PlaceOrderItem is one line of a provider order request
type PlaceOrderItem struct {
	MedicineID string `json:"medicineId" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
}

// PlaceOrderRequest is the body sent to a provider's POST /orders
type PlaceOrderRequest struct {
	Medicines     []PlaceOrderItem `json:"medicines" binding:"required,min=1,dive"`
	UserEmail     string           `json:"userEmail" binding:"required"`
	Address       string           `json:"address" binding:"required"`
	PaymentMethod string           `json:"paymentMethod"`
}
