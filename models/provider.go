package models

import "time"

// ServiceOffering is one service a provider sells, with its quoted price.
type ServiceOffering struct {
	ServiceName string  `bson:"service_name" json:"serviceName"`
	Price       float64 `bson:"price" json:"price"`
}

// ProviderListing is the directory document consulted during reassignment.
type ProviderListing struct {
	ID        string            `bson:"id" json:"id"`
	Name      string            `bson:"name" json:"name"`
	Services  []ServiceOffering `bson:"services" json:"services"`
	Rating    float64           `bson:"rating" json:"rating"`
	Active    bool              `bson:"active" json:"active"`
	CreatedAt time.Time         `bson:"created_at" json:"createdAt"`
}

// ProviderQuote is what the directory returns for one eligible provider.
// Ordering over quotes must be stable for identical inputs.
type ProviderQuote struct {
	ProviderID string  `json:"providerId"`
	Price      float64 `json:"price"`
	Rating     float64 `json:"rating"`
}
