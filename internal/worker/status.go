package worker

import (
	"sort"
	"sync"
	"time"
)

// Status is the transient state of the execution worker, pushed over the
// realtime channel and served from GET /worker/status. Never persisted.
type Status struct {
	Running        bool       `json:"running"`
	BatchTotal     int        `json:"batchTotal"`
	BatchCompleted int        `json:"batchCompleted"`
	RunningIDs     []string   `json:"runningIndicatorIds"`
	LastTickAt     *time.Time `json:"lastTickAt,omitempty"`
	NextTickAt     *time.Time `json:"nextTickAt,omitempty"`
}

// StatusTracker maintains worker status under a lock.
type StatusTracker struct {
	mu             sync.Mutex
	batchTotal     int
	batchCompleted int
	running        map[string]struct{}
	lastTickAt     *time.Time
	nextTickAt     *time.Time
}

// NewStatusTracker creates an empty tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{running: make(map[string]struct{})}
}

// BeginBatch records the size of a new execution batch.
func (t *StatusTracker) BeginBatch(total int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batchTotal = total
	t.batchCompleted = 0
	t.lastTickAt = &now
}

// SetNextTick records when the scheduler will look for due indicators again.
func (t *StatusTracker) SetNextTick(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextTickAt = &at
}

// Started marks an indicator execution as in flight.
func (t *StatusTracker) Started(indicatorID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running[indicatorID] = struct{}{}
}

// Finished marks an indicator execution as done.
func (t *StatusTracker) Finished(indicatorID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.running, indicatorID)
	t.batchCompleted++
}

// Snapshot returns a copy of the current status.
func (t *StatusTracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.running))
	for id := range t.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return Status{
		Running:        len(t.running) > 0,
		BatchTotal:     t.batchTotal,
		BatchCompleted: t.batchCompleted,
		RunningIDs:     ids,
		LastTickAt:     t.lastTickAt,
		NextTickAt:     t.nextTickAt,
	}
}
