package models

// Collector represents a metric collector definition.
type Collector struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Query       string    `json:"query"`
	ItemNames   []string  `json:"itemNames,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

// CollectorCreateRequest is the request body for creating a collector.
type CollectorCreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Query       string   `json:"query"`
	ItemNames   []string `json:"itemNames,omitempty"`
}

// CollectorUpdateRequest is the request body for updating a collector.
type CollectorUpdateRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Query       *string  `json:"query,omitempty"`
	ItemNames   []string `json:"itemNames,omitempty"`
}
