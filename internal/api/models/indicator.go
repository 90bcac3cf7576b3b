package models

// Threshold is the breach condition attached to an indicator.
type Threshold struct {
	Field      string  `json:"field"`
	Comparison string  `json:"comparison"`
	Value      float64 `json:"value"`
}

// LastRun describes an indicator's most recent terminal execution.
type LastRun struct {
	At     *Timestamp `json:"at,omitempty"`
	Value  *float64   `json:"value,omitempty"`
	Result string     `json:"result,omitempty"`
}

// Indicator represents a monitored KPI.
type Indicator struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	CollectorID string    `json:"collectorId"`
	ItemName    string    `json:"itemName"`
	Threshold   Threshold `json:"threshold"`
	ScheduleID  string    `json:"scheduleId"`
	Active      bool      `json:"active"`
	IsRunning   bool      `json:"isRunning"`
	LastRun     LastRun   `json:"lastRun"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

// IndicatorCreateRequest is the request body for creating an indicator.
type IndicatorCreateRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CollectorID string    `json:"collectorId"`
	ItemName    string    `json:"itemName"`
	Threshold   Threshold `json:"threshold"`
	ScheduleID  string    `json:"scheduleId"`
	ContactIDs  []string  `json:"contactIds,omitempty"`
}

// IndicatorUpdateRequest is the request body for updating an indicator.
type IndicatorUpdateRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	CollectorID *string    `json:"collectorId,omitempty"`
	ItemName    *string    `json:"itemName,omitempty"`
	Threshold   *Threshold `json:"threshold,omitempty"`
	ScheduleID  *string    `json:"scheduleId,omitempty"`
	ContactIDs  []string   `json:"contactIds,omitempty"`
}

// PagedIndicators represents a paginated list of indicators.
type PagedIndicators struct {
	Items []Indicator       `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// ExecutionResult is returned by the on-demand execute endpoint.
type ExecutionResult struct {
	IndicatorID string    `json:"indicatorId"`
	Started     bool      `json:"started"`
	RequestedAt Timestamp `json:"requestedAt"`
}
