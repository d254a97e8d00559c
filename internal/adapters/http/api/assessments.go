package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/trainerscope/internal/app"
	"github.com/okian/trainerscope/internal/domain/model"
	"github.com/okian/trainerscope/internal/domain/scoring"
)

// recentLimit bounds GET /assessments.
const recentLimit = 500

// AssessmentDependencies defines the interface for assessment ingestion and lookup.
type AssessmentDependencies interface {
	SubmitAssessment(ctx context.Context, a model.Assessment) (service.SubmitResult, error)
	Assessment(ctx context.Context, id string) (model.Assessment, error)
	TrainerAssessments(ctx context.Context, trainerID string) ([]model.Assessment, error)
	ManagerAssessments(ctx context.Context, managerID string) ([]model.Assessment, error)
	RecentAssessments(ctx context.Context, limit int) ([]model.Assessment, error)
}

// AssessmentHandler handles assessment requests.
type AssessmentHandler struct {
	deps AssessmentDependencies
}

// NewAssessmentHandler creates a new assessment handler.
func NewAssessmentHandler(deps AssessmentDependencies) *AssessmentHandler {
	return &AssessmentHandler{deps: deps}
}

// assessmentRequest mirrors the OpenAPI schema for POST /assessments.
// Ratings and comments are keyed by parameter key.
type assessmentRequest struct {
	ID              string            `json:"id"`
	TrainerID       string            `json:"trainer_id"`
	AssessorID      string            `json:"assessor_id"`
	AssessmentDate  string            `json:"assessment_date"`
	Ratings         map[string]int    `json:"ratings"`
	Comments        map[string]string `json:"comments"`
	OverallComments string            `json:"overall_comments"`
}

func (req *assessmentRequest) toModel() (model.Assessment, error) {
	switch {
	case strings.TrimSpace(req.TrainerID) == "":
		return model.Assessment{}, fmt.Errorf("%w: trainer_id", model.ErrMissingField)
	case strings.TrimSpace(req.AssessorID) == "":
		return model.Assessment{}, fmt.Errorf("%w: assessor_id", model.ErrMissingField)
	}
	date, err := model.ParseDate(req.AssessmentDate)
	if err != nil {
		return model.Assessment{}, err
	}

	a := model.Assessment{
		ID:              strings.TrimSpace(req.ID),
		TrainerID:       strings.TrimSpace(req.TrainerID),
		AssessorID:      strings.TrimSpace(req.AssessorID),
		Date:            date,
		OverallComments: req.OverallComments,
	}
	for key, v := range req.Ratings {
		p, err := model.ParseParameterID(key)
		if err != nil {
			return model.Assessment{}, err
		}
		if err := a.Ratings.Set(p, v); err != nil {
			return model.Assessment{}, err
		}
	}
	if len(req.Comments) > 0 {
		a.Comments = make(map[model.ParameterID]string, len(req.Comments))
		for key, text := range req.Comments {
			p, err := model.ParseParameterID(key)
			if err != nil {
				return model.Assessment{}, err
			}
			a.Comments[p] = text
		}
	}
	return a, nil
}

type assessmentResponse struct {
	ID              string            `json:"id"`
	TrainerID       string            `json:"trainer_id"`
	AssessorID      string            `json:"assessor_id"`
	AssessmentDate  string            `json:"assessment_date"`
	Ratings         map[string]int    `json:"ratings"`
	Comments        map[string]string `json:"comments,omitempty"`
	OverallComments string            `json:"overall_comments,omitempty"`
	OverallAverage  float64           `json:"overall_average"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toResponse(a *model.Assessment) assessmentResponse {
	out := assessmentResponse{
		ID:              a.ID,
		TrainerID:       a.TrainerID,
		AssessorID:      a.AssessorID,
		AssessmentDate:  a.Date.Format(model.DateLayout),
		Ratings:         make(map[string]int, a.Ratings.RatedCount()),
		OverallComments: a.OverallComments,
		OverallAverage:  scoring.Round2(scoring.RecordAverage(a)),
		CreatedAt:       a.CreatedAt,
	}
	for _, p := range model.Parameters() {
		if v := a.Ratings.Get(p); v > 0 {
			out.Ratings[p.Key()] = v
		}
	}
	if len(a.Comments) > 0 {
		out.Comments = make(map[string]string, len(a.Comments))
		for p, text := range a.Comments {
			out.Comments[p.Key()] = text
		}
	}
	return out
}

func toResponses(records []model.Assessment) []assessmentResponse {
	out := make([]assessmentResponse, len(records))
	for i := range records {
		out[i] = toResponse(&records[i])
	}
	return out
}

// HandlePostAssessment handles POST /assessments requests.
func (h *AssessmentHandler) HandlePostAssessment(w http.ResponseWriter, r *http.Request) {
	var req assessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	a, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.SubmitAssessment(r.Context(), a)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if res.Status == service.StatusDuplicate {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// HandleGetAssessment handles GET /assessments/{id} requests.
func (h *AssessmentHandler) HandleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeFailure(w, err)
		return
	}
	a, err := h.deps.Assessment(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(&a))
}

// HandleListRecent handles GET /assessments?limit=N requests.
func (h *AssessmentHandler) HandleListRecent(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r, recentLimit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	records, err := h.deps.RecentAssessments(r.Context(), n)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(records))
}

// HandleTrainerAssessments handles GET /trainers/{id}/assessments requests.
func (h *AssessmentHandler) HandleTrainerAssessments(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.deps.TrainerAssessments)
}

// HandleManagerAssessments handles GET /managers/{id}/assessments requests.
func (h *AssessmentHandler) HandleManagerAssessments(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.deps.ManagerAssessments)
}

func (h *AssessmentHandler) list(w http.ResponseWriter, r *http.Request, load func(context.Context, string) ([]model.Assessment, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeFailure(w, err)
		return
	}
	records, err := load(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(records))
}
