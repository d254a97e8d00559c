package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/trainerscope/internal/domain/correlation"
	"github.com/okian/trainerscope/internal/domain/trend"
	"github.com/okian/trainerscope/internal/domain/types"
)

// AnalyticsDependencies defines the interface for the read-side analytics.
type AnalyticsDependencies interface {
	TrainerSummary(ctx context.Context, trainerID string) (types.TrainerSummary, error)
	TrainerAlerts(ctx context.Context, trainerID string, now time.Time) ([]trend.Alert, error)
	ManagerAlerts(ctx context.Context, managerID string, now time.Time) ([]trend.Alert, error)
	PlatformAlerts(ctx context.Context, now time.Time) ([]trend.Alert, error)
	Correlations(ctx context.Context, set string) (correlation.Matrix, error)
}

// AnalyticsHandler serves summaries, alerts and correlations.
type AnalyticsHandler struct {
	deps AnalyticsDependencies
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps AnalyticsDependencies) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps}
}

// HandleTrainerSummary handles GET /trainers/{id}/summary requests.
func (h *AnalyticsHandler) HandleTrainerSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeFailure(w, err)
		return
	}
	summary, err := h.deps.TrainerSummary(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleTrainerAlerts handles GET /trainers/{id}/alerts requests.
func (h *AnalyticsHandler) HandleTrainerAlerts(w http.ResponseWriter, r *http.Request) {
	h.scoped(w, r, h.deps.TrainerAlerts)
}

// HandleManagerAlerts handles GET /managers/{id}/alerts requests.
func (h *AnalyticsHandler) HandleManagerAlerts(w http.ResponseWriter, r *http.Request) {
	h.scoped(w, r, h.deps.ManagerAlerts)
}

func (h *AnalyticsHandler) scoped(w http.ResponseWriter, r *http.Request, detect func(context.Context, string, time.Time) ([]trend.Alert, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeFailure(w, err)
		return
	}
	now, err := parseNow(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	alerts, err := detect(r.Context(), id, now)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// HandlePlatformAlerts handles GET /alerts/platform requests.
func (h *AnalyticsHandler) HandlePlatformAlerts(w http.ResponseWriter, r *http.Request) {
	now, err := parseNow(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	alerts, err := h.deps.PlatformAlerts(r.Context(), now)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// HandleCorrelations handles GET /correlations?set=name requests.
func (h *AnalyticsHandler) HandleCorrelations(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.Correlations(r.Context(), r.URL.Query().Get("set"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
