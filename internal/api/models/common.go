// Package models provides request and response models for the PulseWatch API.
package models

import "time"

// Envelope is the legacy response wrapper returned by /api/v1 payload
// endpoints. Clients branch on IsSuccess rather than the status code.
type Envelope struct {
	IsSuccess    bool   `json:"isSuccess"`
	Data         any    `json:"data,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data any) *Envelope {
	return &Envelope{IsSuccess: true, Data: data}
}

// Fail wraps an error message in a failure envelope.
func Fail(message string) *Envelope {
	return &Envelope{IsSuccess: false, ErrorMessage: message}
}

// PagedResponseMeta contains pagination metadata for list endpoints.
type PagedResponseMeta struct {
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	TotalPages      int  `json:"totalPages"`
	TotalCount      int  `json:"totalCount"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPagedResponseMeta derives pagination metadata from a page request
// and the total row count. HasNextPage and HasPreviousPage are computed
// from page position, never stored.
func NewPagedResponseMeta(page, pageSize, totalCount int) PagedResponseMeta {
	if pageSize < 1 {
		pageSize = 1
	}
	totalPages := (totalCount + pageSize - 1) / pageSize
	return PagedResponseMeta{
		Page:            page,
		PageSize:        pageSize,
		TotalPages:      totalPages,
		TotalCount:      totalCount,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// PagedResponse is a paginated list payload.
type PagedResponse struct {
	Items any               `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a helper type for time.Time with custom JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	// Remove quotes
	s := string(data[1 : len(data)-1])
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
