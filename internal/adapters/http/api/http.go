// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/trainerscope/internal/app"
	repository "github.com/okian/trainerscope/internal/adapters/repository"
	"github.com/okian/trainerscope/internal/domain/correlation"
	"github.com/okian/trainerscope/internal/domain/model"
	"github.com/okian/trainerscope/internal/domain/types"
)

// DefaultMaxLimit bounds /leaderboard when no limit is configured.
const DefaultMaxLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AssessmentDependencies
	AnalyticsDependencies
	LeaderboardDependencies
	RankDependencies
	ProgressDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	assessmentHandler  *AssessmentHandler
	analyticsHandler   *AnalyticsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	progressHandler    *ProgressHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = DefaultMaxLimit
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		assessmentHandler:  NewAssessmentHandler(deps),
		analyticsHandler:   NewAnalyticsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		progressHandler:    NewProgressHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	handle("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	handle("GET /metrics", "metrics", s.healthHandler.HandleMetrics)
	handle("GET /stats", "stats", s.statsHandler.HandleStats)

	handle("POST /assessments", "assessments", s.assessmentHandler.HandlePostAssessment)
	handle("GET /assessments", "assessments", s.assessmentHandler.HandleListRecent)
	handle("GET /assessments/{id}", "assessment", s.assessmentHandler.HandleGetAssessment)
	handle("GET /trainers/{id}/assessments", "trainer_assessments", s.assessmentHandler.HandleTrainerAssessments)
	handle("GET /managers/{id}/assessments", "manager_assessments", s.assessmentHandler.HandleManagerAssessments)

	handle("GET /trainers/{id}/summary", "trainer_summary", s.analyticsHandler.HandleTrainerSummary)
	handle("GET /trainers/{id}/alerts", "trainer_alerts", s.analyticsHandler.HandleTrainerAlerts)
	handle("GET /managers/{id}/alerts", "manager_alerts", s.analyticsHandler.HandleManagerAlerts)
	handle("GET /alerts/platform", "platform_alerts", s.analyticsHandler.HandlePlatformAlerts)
	handle("GET /correlations", "correlations", s.analyticsHandler.HandleCorrelations)

	handle("GET /leaderboard", "leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
	handle("GET /rank/{user_id}", "rank", s.rankHandler.HandleGetRank)
	handle("GET /users/{id}/progress", "progress", s.progressHandler.HandleGetProgress)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an upstream error onto its HTTP status.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case isBadRequest(err):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func isBadRequest(err error) bool {
	for _, kind := range []error{
		ErrBadRequest,
		ErrLimitExceeded,
		ErrInvalidNow,
		service.ErrInvalidAssessment,
		service.ErrInvalidRequest,
		repository.ErrInvalidLimit,
		correlation.ErrUnknownSet,
		model.ErrUnknownParameter,
		model.ErrRatingOutOfRange,
		model.ErrMissingField,
		model.ErrInvalidDate,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// pathID returns the trimmed {id} wildcard, or ErrBadRequest when it is blank.
func pathID(r *http.Request, name string) (string, error) {
	id := strings.TrimSpace(r.PathValue(name))
	if id == "" {
		return "", ErrBadRequest
	}
	return id, nil
}

// parseLimit reads ?limit=N and checks it against 1..maxLimit.
func parseLimit(r *http.Request, maxLimit int) (int, error) {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		return 0, ErrBadRequest
	}
	if n > maxLimit {
		return 0, ErrLimitExceeded
	}
	return n, nil
}

// parseNow reads the optional ?now= RFC3339 timestamp. Absent means zero,
// which the service replaces with its clock.
func parseNow(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidNow
	}
	return t, nil
}
