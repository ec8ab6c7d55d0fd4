package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dieselroute/dieselroute/internal/api/models"
	"github.com/dieselroute/dieselroute/internal/api/response"
	"github.com/dieselroute/dieselroute/internal/provider/resilience"
)

// readinessTimeout bounds all readiness checks of one request.
const readinessTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	checks    map[string]ReadinessCheck
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler. registry and checks may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, checks map[string]ReadinessCheck) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		checks:    checks,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   h.now().UTC(),
		Details: map[string]string{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Any failing check answers 503.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	health := models.Health{Status: models.HealthStatusOK, Time: h.now().UTC()}
	for name, check := range h.checks {
		if health.Details == nil {
			health.Details = make(map[string]string, len(h.checks))
		}
		if err := check(ctx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details[name] = err.Error()
			continue
		}
		health.Details[name] = "ok"
	}

	status := http.StatusOK
	if health.Status == models.HealthStatusFail {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider circuit breaker status.
// The service is DEGRADED while any provider breaker is not closed.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      h.now().UTC(),
		Providers: []models.ProviderStatus{},
	}

	if h.registry != nil {
		for _, p := range h.registry.Snapshot() {
			ps := models.NewProviderStatus(p)
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}
