// Package handler provides HTTP handlers for the PulseWatch API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/api/models"
	"github.com/pulsewatch/pulsewatch/internal/api/response"
	"github.com/pulsewatch/pulsewatch/internal/resilience"
)

// HealthCheckFunc probes a single subsystem.
type HealthCheckFunc func(ctx context.Context) error

// SubsystemCheck names a subsystem probe for readiness and status reporting.
type SubsystemCheck struct {
	Name  string
	Check HealthCheckFunc
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	checks    []SubsystemCheck
	upstreams *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. upstreams may be nil.
func NewOpsHandler(version, buildTime string, checks []SubsystemCheck, upstreams *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		checks:    checks,
		upstreams: upstreams,
	}
}

// HealthCheck handles GET /api/v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /api/v1/ops/ready - readiness check. Fails with
// 503 when any subsystem probe fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	subsystems, healthy := h.probe(ctx)

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	status := http.StatusOK
	if !healthy {
		health.Status = models.HealthStatusFail
		status = http.StatusServiceUnavailable
		details := map[string]interface{}{}
		for _, s := range subsystems {
			if s.Detail != nil {
				details[s.Name] = *s.Detail
			}
		}
		health.Details = details
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /api/v1/ops/status - subsystem and upstream status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	subsystems, healthy := h.probe(ctx)

	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: subsystems,
		Upstreams:  h.upstreamStatus(),
	}
	if !healthy {
		status.Status = models.HealthStatusDegraded
	}
	for _, u := range status.Upstreams {
		if u.Status != models.HealthStatusOK && status.Status == models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}
	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) probe(ctx context.Context) ([]models.SubsystemStatus, bool) {
	healthy := true
	subsystems := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, c := range h.checks {
		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err := c.Check(ctx); err != nil {
			healthy = false
			s.Status = models.HealthStatusFail
			msg := err.Error()
			s.Detail = &msg
		}
		subsystems = append(subsystems, s)
	}
	return subsystems, healthy
}

func (h *OpsHandler) upstreamStatus() []models.UpstreamStatus {
	if h.upstreams == nil {
		return nil
	}

	all := h.upstreams.GetAllHealth()
	statuses := make([]models.UpstreamStatus, 0, len(all))
	for _, u := range all {
		s := models.UpstreamStatus{Upstream: u.Name, Status: models.HealthStatusOK}
		switch {
		case u.IsUnhealthy():
			s.Status = models.HealthStatusFail
		case u.IsDegraded():
			s.Status = models.HealthStatusDegraded
		}
		if u.LastSuccessAt != nil {
			ts := models.Timestamp(*u.LastSuccessAt)
			s.LastSuccessAt = &ts
		}
		if u.LastFailureAt != nil {
			ts := models.Timestamp(*u.LastFailureAt)
			s.LastFailureAt = &ts
		}
		if u.LastError != "" {
			msg := u.LastError
			s.Message = &msg
		}
		statuses = append(statuses, s)
	}
	return statuses
}
