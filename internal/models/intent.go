package models

import "time"

// IntentOrder is the frozen order for one provider inside an intent:
// exactly the line items that were previewed, never re-derived from
// caller input at approval time.
type IntentOrder struct {
	ProviderID            string      `json:"providerId"`
	Lines                 []OrderLine `json:"lineItems"`
	EstimatedTotal        float64     `json:"estimatedTotal"`
	EstimatedDeliveryDays int         `json:"estimatedDeliveryDays"`
}

// OrderIntent is the server-held record of a previewed, approval-pending
// order. Consumed at most once; expires after the configured TTL.
type OrderIntent struct {
	ID        string        `json:"intentId"`
	Orders    []IntentOrder `json:"orders"`
	UserEmail string        `json:"userEmail"`
	Address   string        `json:"address"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}
