// Package realtime provides the push channel for worker and execution
// events: a WebSocket hub clients subscribe to, fed by an event bus the
// scheduler and worker publish into.
package realtime

import (
	"encoding/json"
	"time"
)

// Event names pushed over the monitoring hub.
const (
	EventWorkerStatusUpdate          = "WorkerStatusUpdate"
	EventIndicatorExecutionStarted   = "IndicatorExecutionStarted"
	EventIndicatorExecutionProgress  = "IndicatorExecutionProgress"
	EventIndicatorExecutionCompleted = "IndicatorExecutionCompleted"
	EventCountdownUpdate             = "CountdownUpdate"
	EventNextIndicatorSchedule       = "NextIndicatorScheduleUpdate"
	EventRunningIndicatorsUpdate     = "RunningIndicatorsUpdate"
	EventAlertTriggered              = "AlertTriggered"
	EventSystemStatusChanged         = "SystemStatusChanged"
)

// Event is a named push event. Data is JSON so events survive transport
// over Redis unchanged.
type Event struct {
	Name      string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent marshals data into a named event stamped with the current time.
func NewEvent(name string, data any) (Event, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return Event{}, err
		}
		raw = b
	}
	return Event{Name: name, Data: raw, Timestamp: time.Now().UTC()}, nil
}

// ExecutionStarted is the payload of IndicatorExecutionStarted.
type ExecutionStarted struct {
	IndicatorID   string `json:"indicatorId"`
	IndicatorName string `json:"indicatorName"`
}

// ExecutionProgress is the payload of IndicatorExecutionProgress.
type ExecutionProgress struct {
	IndicatorID string  `json:"indicatorId"`
	Completed   int     `json:"completed"`
	Total       int     `json:"total"`
	Percent     float64 `json:"percent"`
}

// ExecutionCompleted is the payload of IndicatorExecutionCompleted.
type ExecutionCompleted struct {
	IndicatorID   string   `json:"indicatorId"`
	IndicatorName string   `json:"indicatorName"`
	Result        string   `json:"result"`
	Value         *float64 `json:"value,omitempty"`
	DurationMS    int64    `json:"durationMs"`
}

// CountdownUpdate is the payload of CountdownUpdate.
type CountdownUpdate struct {
	NextRunAt        time.Time `json:"nextRunAt"`
	SecondsRemaining int64     `json:"secondsRemaining"`
}

// AlertTriggered is the payload of AlertTriggered.
type AlertTriggered struct {
	AlertID       string  `json:"alertId"`
	IndicatorID   string  `json:"indicatorId"`
	IndicatorName string  `json:"indicatorName"`
	Severity      string  `json:"severity"`
	Value         float64 `json:"value"`
	Threshold     float64 `json:"threshold"`
}
