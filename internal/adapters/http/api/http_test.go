package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/trainerscope/internal/adapters/http/api"
	repository "github.com/okian/trainerscope/internal/adapters/repository"
	service "github.com/okian/trainerscope/internal/app"
	"github.com/okian/trainerscope/internal/domain/correlation"
	"github.com/okian/trainerscope/internal/domain/gamification"
	"github.com/okian/trainerscope/internal/domain/model"
	"github.com/okian/trainerscope/internal/domain/trend"
	"github.com/okian/trainerscope/internal/domain/types"
	"github.com/okian/trainerscope/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

// mockDependencies records what handlers pass through and returns canned data.
type mockDependencies struct {
	submitted []model.Assessment
	submitRes service.SubmitResult
	submitErr error

	stored  map[string]model.Assessment
	topN    []types.Entry
	rank    types.Entry
	rankErr error

	alertNow time.Time
	set      string
	progress types.UserProgress
	readErr  error
}

func (m *mockDependencies) SubmitAssessment(_ context.Context, a model.Assessment) (service.SubmitResult, error) {
	m.submitted = append(m.submitted, a)
	return m.submitRes, m.submitErr
}

func (m *mockDependencies) Assessment(_ context.Context, id string) (model.Assessment, error) {
	a, ok := m.stored[id]
	if !ok {
		return model.Assessment{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *mockDependencies) list() []model.Assessment {
	out := make([]model.Assessment, 0, len(m.stored))
	for _, a := range m.stored {
		out = append(out, a)
	}
	return out
}

func (m *mockDependencies) TrainerAssessments(context.Context, string) ([]model.Assessment, error) {
	return m.list(), m.readErr
}

func (m *mockDependencies) ManagerAssessments(context.Context, string) ([]model.Assessment, error) {
	return m.list(), m.readErr
}

func (m *mockDependencies) RecentAssessments(_ context.Context, limit int) ([]model.Assessment, error) {
	out := m.list()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, m.readErr
}

func (m *mockDependencies) TrainerSummary(_ context.Context, id string) (types.TrainerSummary, error) {
	return types.TrainerSummary{TrainerID: id}, m.readErr
}

func (m *mockDependencies) TrainerAlerts(_ context.Context, id string, now time.Time) ([]trend.Alert, error) {
	m.alertNow = now
	return []trend.Alert{{Type: trend.TypeDeclining, TrainerID: id}}, m.readErr
}

func (m *mockDependencies) ManagerAlerts(_ context.Context, id string, now time.Time) ([]trend.Alert, error) {
	m.alertNow = now
	return []trend.Alert{{Type: trend.TypeInactivity, ManagerID: id}}, m.readErr
}

func (m *mockDependencies) PlatformAlerts(_ context.Context, now time.Time) ([]trend.Alert, error) {
	m.alertNow = now
	return []trend.Alert{}, m.readErr
}

func (m *mockDependencies) Correlations(_ context.Context, set string) (correlation.Matrix, error) {
	m.set = set
	vs, err := correlation.ParseSet(set)
	if err != nil {
		return correlation.Matrix{}, fmt.Errorf("%w: %w", service.ErrInvalidRequest, err)
	}
	return correlation.Matrix{Set: vs}, nil
}

func (m *mockDependencies) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n > len(m.topN) {
		return m.topN, nil
	}
	return m.topN[:n], nil
}

func (m *mockDependencies) Rank(context.Context, string) (types.Entry, error) {
	return m.rank, m.rankErr
}

func (m *mockDependencies) UserProgress(_ context.Context, id string) (types.UserProgress, error) {
	if m.readErr != nil {
		return types.UserProgress{}, m.readErr
	}
	p := m.progress
	p.UserID = id
	return p, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	stats := &mockStatsProvider{stats: map[string]interface{}{"started": true}}
	api.NewServer(deps, stats, 10).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

const validBody = `{
	"id": "a-1",
	"trainer_id": "trainer-1",
	"assessor_id": "manager-1",
	"assessment_date": "2025-06-30",
	"ratings": {"punctuality": 4, "clarity": 5},
	"comments": {"punctuality": "always early"},
	"overall_comments": "solid session"
}`

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then health returns ok", func() {
			w := do(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")
		})

		Convey("Then metrics are served in the Prometheus text format", func() {
			_ = do(mux, "GET", "/healthz", "")
			w := do(mux, "GET", "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "trainerscope_http_requests_total")
		})

		Convey("Then stats are returned as JSON", func() {
			w := do(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Then a wrong method is rejected", func() {
			w := do(mux, "DELETE", "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then unknown paths are not found", func() {
			w := do(mux, "GET", "/dashboard", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then a nil mux panics", func() {
			So(func() {
				api.NewServer(deps, &mockStatsProvider{}, 0).Register(context.Background(), nil)
			}, ShouldPanic)
		})
	})
}

func TestAssessmentHandler(t *testing.T) {
	Convey("Given an assessment handler", t, func() {
		deps := &mockDependencies{submitRes: service.SubmitResult{Status: service.StatusAccepted, ID: "a-1"}}
		mux := newMux(deps)

		Convey("When handling a valid POST request", func() {
			w := do(mux, "POST", "/assessments", validBody)

			Convey("Then it should return accepted status", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode(w)
				So(body["status"], ShouldEqual, "accepted")
				So(body["id"], ShouldEqual, "a-1")
			})

			Convey("Then the request is converted to the model", func() {
				So(len(deps.submitted), ShouldEqual, 1)
				a := deps.submitted[0]
				So(a.ID, ShouldEqual, "a-1")
				So(a.Date.Format(model.DateLayout), ShouldEqual, "2025-06-30")
				So(a.Ratings.RatedCount(), ShouldEqual, 2)
				p, _ := model.ParseParameterID("punctuality")
				So(a.Ratings.Get(p), ShouldEqual, 4)
				So(a.Comments[p], ShouldEqual, "always early")
			})
		})

		Convey("When handling a duplicate submission", func() {
			deps.submitRes = service.SubmitResult{Status: service.StatusDuplicate, ID: "a-1"}
			w := do(mux, "POST", "/assessments", validBody)

			Convey("Then it should return duplicate status", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["status"], ShouldEqual, "duplicate")
			})
		})

		Convey("When the store already holds the id", func() {
			deps.submitErr = fmt.Errorf("store assessment a-1: %w", repository.ErrAlreadyExists)
			w := do(mux, "POST", "/assessments", validBody)

			Convey("Then it should return conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "conflict")
			})
		})

		Convey("When the service is not running", func() {
			deps.submitErr = service.ErrNotStarted
			w := do(mux, "POST", "/assessments", validBody)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When handling malformed requests", func() {
			cases := map[string]string{
				"invalid json":     `{"id":`,
				"missing trainer":  `{"assessor_id":"m","assessment_date":"2025-06-30"}`,
				"missing assessor": `{"trainer_id":"t","assessment_date":"2025-06-30"}`,
				"bad date":         `{"trainer_id":"t","assessor_id":"m","assessment_date":"30/06/2025"}`,
				"unknown key":      `{"trainer_id":"t","assessor_id":"m","assessment_date":"2025-06-30","ratings":{"charisma":3}}`,
				"out of range":     `{"trainer_id":"t","assessor_id":"m","assessment_date":"2025-06-30","ratings":{"punctuality":6}}`,
				"negative":         `{"trainer_id":"t","assessor_id":"m","assessment_date":"2025-06-30","ratings":{"punctuality":-1}}`,
				"unknown comment":  `{"trainer_id":"t","assessor_id":"m","assessment_date":"2025-06-30","comments":{"charisma":"x"}}`,
			}
			for name, body := range cases {
				w := do(mux, "POST", "/assessments", body)

				Convey("Then "+name+" is a bad request", func() {
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(decode(w)["code"], ShouldEqual, "bad_request")
				})
			}
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When service validation rejects the assessment", func() {
			deps.submitErr = fmt.Errorf("%w: %w", service.ErrInvalidAssessment, model.ErrMissingField)
			w := do(mux, "POST", "/assessments", validBody)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading stored assessments", func() {
			a := model.Assessment{ID: "a-9", TrainerID: "t", AssessorID: "m", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
			p, _ := model.ParseParameterID("punctuality")
			_ = a.Ratings.Set(p, 3)
			deps.stored = map[string]model.Assessment{"a-9": a}

			Convey("Then a known id is returned with rated parameters only", func() {
				w := do(mux, "GET", "/assessments/a-9", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["assessment_date"], ShouldEqual, "2025-06-01")
				So(body["ratings"], ShouldResemble, map[string]any{"punctuality": 3.0})
				So(body["overall_average"], ShouldEqual, 3.0)
			})

			Convey("Then an unknown id is not found", func() {
				w := do(mux, "GET", "/assessments/missing", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then lists are returned for trainers, managers and recent", func() {
				for _, target := range []string{"/trainers/t/assessments", "/managers/m/assessments", "/assessments?limit=5"} {
					w := do(mux, "GET", target, "")
					So(w.Code, ShouldEqual, http.StatusOK)
					var list []map[string]any
					So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
					So(len(list), ShouldEqual, 1)
				}
			})

			Convey("Then recent requires a valid limit", func() {
				So(do(mux, "GET", "/assessments", "").Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, "GET", "/assessments?limit=100000", "").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestAnalyticsHandler(t *testing.T) {
	Convey("Given an analytics handler", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When requesting a trainer summary", func() {
			w := do(mux, "GET", "/trainers/trainer-1/summary", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["trainer_id"], ShouldEqual, "trainer-1")
		})

		Convey("When requesting trainer alerts with a fixed now", func() {
			w := do(mux, "GET", "/trainers/trainer-1/alerts?now=2025-06-30T12:00:00Z", "")

			Convey("Then the timestamp is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.alertNow.Equal(time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
				var alerts []trend.Alert
				So(json.Unmarshal(w.Body.Bytes(), &alerts), ShouldBeNil)
				So(alerts[0].Type, ShouldEqual, trend.TypeDeclining)
			})
		})

		Convey("When now is not RFC3339", func() {
			for _, target := range []string{
				"/trainers/t/alerts?now=yesterday",
				"/managers/m/alerts?now=2025-06-30",
				"/alerts/platform?now=noon",
			} {
				So(do(mux, "GET", target, "").Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When requesting manager and platform alerts", func() {
			w := do(mux, "GET", "/managers/manager-1/alerts", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.alertNow.IsZero(), ShouldBeTrue)

			w = do(mux, "GET", "/alerts/platform", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When requesting correlations", func() {
			w := do(mux, "GET", "/correlations?set=categories", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["set"], ShouldEqual, "categories")

			w = do(mux, "GET", "/correlations?set=everything", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the store fails", func() {
			deps.readErr = errors.New("disk on fire")
			w := do(mux, "GET", "/trainers/t/summary", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(w)["code"], ShouldEqual, "internal_error")
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a leaderboard handler", t, func() {
		deps := &mockDependencies{
			topN: []types.Entry{
				{Rank: 1, UserID: "alice", TotalXP: 900, Level: 2, LevelName: "Learner"},
				{Rank: 1, UserID: "bob", TotalXP: 900, Level: 2, LevelName: "Learner"},
				{Rank: 2, UserID: "carol", TotalXP: 100, Level: 1, LevelName: "Novice"},
			},
		}
		mux := newMux(deps)

		Convey("When requesting top N entries", func() {
			w := do(mux, "GET", "/leaderboard?limit=2", "")

			Convey("Then it should return the top N entries", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var entries []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(entries, ShouldResemble, deps.topN[:2])
			})
		})

		Convey("When no limit is specified", func() {
			w := do(mux, "GET", "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is above the maximum", func() {
			w := do(mux, "GET", "/leaderboard?limit=11", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When the limit is not positive", func() {
			So(do(mux, "GET", "/leaderboard?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/leaderboard?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRankAndProgressHandlers(t *testing.T) {
	Convey("Given rank and progress handlers", t, func() {
		deps := &mockDependencies{
			rank:     types.Entry{Rank: 3, UserID: "alice", TotalXP: 1200, Level: 3, LevelName: "Competent"},
			progress: types.UserProgress{Level: gamification.LevelFor(1200)},
		}
		mux := newMux(deps)

		Convey("When requesting a known user", func() {
			w := do(mux, "GET", "/rank/alice", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var e types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
			So(e, ShouldResemble, deps.rank)
		})

		Convey("When requesting an unknown user", func() {
			deps.rankErr = repository.ErrNotFound
			w := do(mux, "GET", "/rank/ghost", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When requesting progress", func() {
			w := do(mux, "GET", "/users/alice/progress", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["user_id"], ShouldEqual, "alice")
			level := body["level"].(map[string]any)
			So(level["name"], ShouldEqual, "Competent")
		})

		Convey("When progress is missing", func() {
			deps.readErr = fmt.Errorf("get xp ghost: %w", repository.ErrNotFound)
			w := do(mux, "GET", "/users/ghost/progress", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEndToEnd(t *testing.T) {
	Convey("Given the API over a running service", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithClock(func() time.Time { return time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC) }),
		)
		So(svc.Start(ctx), ShouldBeNil)
		mux := http.NewServeMux()
		api.NewServer(svc, svc, 10).Register(ctx, mux)

		Convey("When an assessment is posted twice", func() {
			first := do(mux, "POST", "/assessments", validBody)
			second := do(mux, "POST", "/assessments", validBody)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it is accepted once and reported as duplicate", func() {
				So(first.Code, ShouldEqual, http.StatusAccepted)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(decode(second)["status"], ShouldEqual, "duplicate")
			})
		})

		Convey("When the queue has drained", func() {
			So(do(mux, "POST", "/assessments", validBody).Code, ShouldEqual, http.StatusAccepted)

			var w *httptest.ResponseRecorder
			for i := 0; i < 100; i++ {
				w = do(mux, "GET", "/leaderboard?limit=5", "")
				if strings.Contains(w.Body.String(), "trainer-1") {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			Convey("Then both participants are on the leaderboard", func() {
				var entries []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].UserID, ShouldEqual, "trainer-1")
				So(entries[0].TotalXP, ShouldEqual, int64(gamification.DefaultXPPerAssessmentReceived+gamification.DefaultXPHighScoreBonus+gamification.DefaultXPPerBadge))
				So(entries[1].UserID, ShouldEqual, "manager-1")
			})

			Convey("Then the summary reflects the ratings", func() {
				w := do(mux, "GET", "/trainers/trainer-1/summary", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["assessments"], ShouldEqual, 1.0)
				So(body["overall_average"], ShouldEqual, 4.5)
			})
		})

		Reset(func() { _ = svc.Stop(ctx) })
	})
}
