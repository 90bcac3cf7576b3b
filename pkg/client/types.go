package client

import "time"

// TokenResponse is returned by the auth endpoints.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
	RefreshToken string `json:"refreshToken"`
}

// Threshold describes when an indicator value raises an alert.
type Threshold struct {
	Field      string  `json:"field"`
	Comparison string  `json:"comparison"`
	Value      float64 `json:"value"`
}

// LastRun is an indicator's most recent terminal execution.
type LastRun struct {
	At     *time.Time `json:"at,omitempty"`
	Value  *float64   `json:"value,omitempty"`
	Result string     `json:"result,omitempty"`
}

// Indicator is a schedulable check against a collector.
type Indicator struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CollectorID string    `json:"collectorId"`
	ItemName    string    `json:"itemName,omitempty"`
	Threshold   Threshold `json:"threshold"`
	ScheduleID  string    `json:"scheduleId"`
	Active      bool      `json:"active"`
	IsRunning   bool      `json:"isRunning"`
	LastRun     LastRun   `json:"lastRun"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IndicatorCreateRequest is the body for creating an indicator.
type IndicatorCreateRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CollectorID string    `json:"collectorId"`
	ItemName    string    `json:"itemName,omitempty"`
	Threshold   Threshold `json:"threshold"`
	ScheduleID  string    `json:"scheduleId"`
	ContactIDs  []string  `json:"contactIds,omitempty"`
}

// IndicatorUpdateRequest is the body for updating an indicator. Nil
// fields are left unchanged.
type IndicatorUpdateRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	CollectorID *string    `json:"collectorId,omitempty"`
	ItemName    *string    `json:"itemName,omitempty"`
	Threshold   *Threshold `json:"threshold,omitempty"`
	ScheduleID  *string    `json:"scheduleId,omitempty"`
	ContactIDs  []string   `json:"contactIds,omitempty"`
}

// ExecutionResult is returned by the execute endpoint.
type ExecutionResult struct {
	IndicatorID string    `json:"indicatorId"`
	Started     bool      `json:"started"`
	RequestedAt time.Time `json:"requestedAt"`
}

// PageMeta is the pagination block on list responses.
type PageMeta struct {
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	TotalPages      int  `json:"totalPages"`
	TotalCount      int  `json:"totalCount"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// IndicatorPage is a page of indicators.
type IndicatorPage struct {
	Items []Indicator `json:"items"`
	Meta  PageMeta    `json:"meta"`
}

// Collector is a metric collector definition.
type Collector struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Query       string    `json:"query"`
	ItemNames   []string  `json:"itemNames,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Schedule is a cron schedule indicators run on.
type Schedule struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CronSpec  string     `json:"cronSpec"`
	Enabled   bool       `json:"enabled"`
	NextRunAt *time.Time `json:"nextRunAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Alert is a raised threshold breach.
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
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// AlertPage is a page of alerts.
type AlertPage struct {
	Items []Alert  `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// Contact is a notification recipient.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContactRequest is the body for creating or updating a contact.
type ContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// WorkerStatus reports the execution worker's current state.
type WorkerStatus struct {
	Running        bool       `json:"running"`
	BatchTotal     int        `json:"batchTotal"`
	BatchCompleted int        `json:"batchCompleted"`
	RunningIDs     []string   `json:"runningIndicatorIds"`
	LastTickAt     *time.Time `json:"lastTickAt,omitempty"`
	NextTickAt     *time.Time `json:"nextTickAt,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}
