package http

import (
	"net/http"
	"sort"
	"time"

	"feedhub/internal/handler/http/respond"
	"feedhub/internal/observability/slo"
)

// HealthResponse represents the JSON response for the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "degraded"
	Timestamp string                 `json:"timestamp"` // RFC 3339
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// UpstreamStater is implemented by source adapters that expose their circuit breaker.
type UpstreamStater interface {
	UpstreamState() string
}

// ObjectiveReporter reports the SLO state of a source. *slo.Tracker satisfies it.
type ObjectiveReporter interface {
	Status(source string, now time.Time) (slo.Status, bool)
}

// HealthHandler reports the state of every upstream. An open breaker marks
// the server degraded but still answers 200: other sources keep working.
type HealthHandler struct {
	Version   string
	Upstreams map[string]UpstreamStater
	// Objectives is optional. Sources without any run yet are not reported.
	Objectives ObjectiveReporter
	Now        func() time.Time
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	names := make([]string, 0, len(h.Upstreams))
	for name := range h.Upstreams {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	open := make([]string, 0)
	states := make(map[string]any, len(names))
	for _, name := range names {
		st := h.Upstreams[name].UpstreamState()
		states[name] = st
		if st != "closed" {
			status = "degraded"
		}
		if st == "open" {
			open = append(open, name)
		}
	}

	upstreams := CheckStatus{Status: "healthy", Details: states}
	if len(open) > 0 {
		upstreams.Status = "degraded"
		upstreams.Message = "circuit open for some sources"
	}

	checks := map[string]CheckStatus{"upstreams": upstreams}
	if h.Objectives != nil {
		objectives := h.objectives(names, now())
		if objectives.Status != "healthy" {
			status = "degraded"
		}
		checks["objectives"] = objectives
	}

	respond.JSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	})
}

func (h *HealthHandler) objectives(names []string, now time.Time) CheckStatus {
	check := CheckStatus{Status: "healthy", Details: make(map[string]any, len(names))}
	breaching := 0
	for _, name := range names {
		st, ok := h.Objectives.Status(name, now)
		if !ok {
			continue
		}
		check.Details[name] = map[string]any{
			"success_ratio": st.SuccessRatio,
			"breaching":     st.Breaching,
		}
		if st.Breaching {
			breaching++
		}
	}
	if breaching > 0 {
		check.Status = "degraded"
		check.Message = "some sources miss their objectives"
	}
	return check
}
