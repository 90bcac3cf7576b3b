package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// UpstreamHealth represents the health status of an upstream dependency,
// such as the alert mail gateway or the metrics source database.
type UpstreamHealth struct {
	// Name is the upstream identifier.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is the timestamp of the last successful request.
	LastSuccessAt *time.Time

	// LastFailureAt is the timestamp of the last failed request.
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string
}

// IsHealthy returns true if the upstream is considered healthy.
func (h *UpstreamHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded returns true if the upstream is in a degraded state (half-open).
func (h *UpstreamHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy returns true if the upstream is unhealthy (circuit open).
func (h *UpstreamHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks registered upstreams and their health status.
// The ops readiness endpoint reports from it.
type Registry struct {
	mu        sync.RWMutex
	upstreams map[string]*registeredUpstream
}

type registeredUpstream struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// GlobalRegistry is the default upstream registry.
var GlobalRegistry = NewRegistry()

// NewRegistry creates a new upstream registry.
func NewRegistry() *Registry {
	return &Registry{
		upstreams: make(map[string]*registeredUpstream),
	}
}

// Register adds an upstream client to the registry.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upstreams[name] = &registeredUpstream{
		client: client,
	}
}

// Unregister removes an upstream from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.upstreams, name)
}

// RecordSuccess records a successful request for an upstream.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.upstreams[name]; ok {
		now := time.Now()
		u.lastSuccessAt = &now
	}
}

// RecordFailure records a failed request for an upstream.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.upstreams[name]; ok {
		now := time.Now()
		u.lastFailureAt = &now
		if err != nil {
			u.lastError = err.Error()
		}
	}
}

// GetHealth returns the health status of a specific upstream.
func (r *Registry) GetHealth(name string) *UpstreamHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.upstreams[name]
	if !ok {
		return nil
	}

	return &UpstreamHealth{
		Name:          name,
		CircuitState:  u.client.CircuitBreakerState(),
		Counts:        u.client.CircuitBreakerCounts(),
		LastSuccessAt: u.lastSuccessAt,
		LastFailureAt: u.lastFailureAt,
		LastError:     u.lastError,
	}
}

// GetAllHealth returns the health status of all registered upstreams.
func (r *Registry) GetAllHealth() []*UpstreamHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*UpstreamHealth, 0, len(r.upstreams))
	for name, u := range r.upstreams {
		health = append(health, &UpstreamHealth{
			Name:          name,
			CircuitState:  u.client.CircuitBreakerState(),
			Counts:        u.client.CircuitBreakerCounts(),
			LastSuccessAt: u.lastSuccessAt,
			LastFailureAt: u.lastFailureAt,
			LastError:     u.lastError,
		})
	}

	return health
}

// UpstreamNames returns the names of all registered upstreams.
func (r *Registry) UpstreamNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.upstreams))
	for name := range r.upstreams {
		names = append(names, name)
	}
	return names
}

// UpstreamCount returns the number of registered upstreams.
func (r *Registry) UpstreamCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.upstreams)
}
