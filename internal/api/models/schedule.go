package models

// Schedule represents a cron schedule indicators can run on.
type Schedule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CronSpec  string    `json:"cronSpec"`
	Enabled   bool      `json:"enabled"`
	NextRunAt *Timestamp `json:"nextRunAt,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// ScheduleCreateRequest is the request body for creating a schedule.
type ScheduleCreateRequest struct {
	Name     string `json:"name"`
	CronSpec string `json:"cronSpec"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// ScheduleUpdateRequest is the request body for updating a schedule.
type ScheduleUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	CronSpec *string `json:"cronSpec,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}
