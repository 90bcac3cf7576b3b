package models

// Alert represents a raised threshold breach.
type Alert struct {
	ID             string     `json:"id"`
	IndicatorID    string     `json:"indicatorId"`
	IndicatorName  string     `json:"indicatorName"`
	Severity       string     `json:"severity"`
	Message        string     `json:"message"`
	TriggeredValue float64    `json:"triggeredValue"`
	ThresholdField string     `json:"thresholdField"`
	ThresholdValue float64    `json:"thresholdValue"`
	Resolved       bool       `json:"resolved"`
	ResolvedBy     *string    `json:"resolvedBy,omitempty"`
	ResolvedAt     *Timestamp `json:"resolvedAt,omitempty"`
	CreatedAt      Timestamp  `json:"createdAt"`
}

// PagedAlerts represents a paginated list of alerts.
type PagedAlerts struct {
	Items []Alert           `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// AlertCreateRequest is the request body for raising an alert manually.
type AlertCreateRequest struct {
	IndicatorID    string  `json:"indicatorId"`
	ThresholdField string  `json:"thresholdField"`
	TriggeredValue float64 `json:"triggeredValue"`
	ThresholdValue float64 `json:"thresholdValue"`
}

// AlertResolveRequest is the request body for resolving an alert.
type AlertResolveRequest struct {
	ResolvedBy string `json:"resolvedBy"`
}

// Contact represents a notification recipient.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// ContactRequest is the request body for creating or updating a contact.
type ContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
