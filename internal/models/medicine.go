package models

// Provider identifies one pharmacy backend. Configured at startup, immutable.
type Provider struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BaseURL string `json:"address"`
}

// CatalogEntry represents one medicine in a provider's catalog
type CatalogEntry struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	PackSize     int     `json:"quantity"`
	DeliveryDays int     `json:"deliveryDays"`
	Rating       float64 `json:"rating"`
	Manufacturer string  `json:"manufacturer"`
	Description  string  `json:"description"`
	Stock        int     `json:"stock"`
	Category     string  `json:"category"`
}

// PriceQuote is one provider's answer for one requested medicine name.
// When Available is false every numeric field is nil and Stock is zero;
// when true, Price, DeliveryDays and Rating are always set.
type PriceQuote struct {
	ProviderID   string   `json:"providerId"`
	Name         string   `json:"name"`
	Available    bool     `json:"available"`
	Price        *float64 `json:"price"`
	DeliveryDays *int     `json:"deliveryDays"`
	Rating       *float64 `json:"rating"`
	Stock        int      `json:"stock"`
}

// Recommendation is the per-medicine outcome of a price comparison.
// ChosenProviderID is empty when no provider had the medicine available.
type Recommendation struct {
	Medicine         string       `json:"medicine"`
	Offers           []PriceQuote `json:"offers"`
	ChosenProviderID string       `json:"chosenProviderId,omitempty"`
}

// Comparison is the full result of a compare-prices request
type Comparison struct {
	SearchedMedicines []string                `json:"searchedMedicines"`
	Quotes            map[string][]PriceQuote `json:"quotes"`
	Recommendations   []Recommendation        `json:"recommendations"`
}

// ComparePricesRequest represents a price comparison request
type ComparePricesRequest struct {
	MedicineNames []string `json:"medicineNames" binding:"required,min=1,dive,required"`
}
