package seed_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/trainerscope/internal/adapters/http/api"
	repository "github.com/okian/trainerscope/internal/adapters/repository"
	service "github.com/okian/trainerscope/internal/app"
	"github.com/okian/trainerscope/internal/domain/model"
	"github.com/okian/trainerscope/internal/domain/trend"
	"github.com/okian/trainerscope/internal/domain/types"
	"github.com/okian/trainerscope/internal/seed"
	"github.com/okian/trainerscope/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func testConfig() seed.Config {
	cfg := seed.DefaultConfig()
	cfg.Trainers = 4
	cfg.Managers = 2
	cfg.Days = 60
	cfg.Count = 40
	cfg.Seed = 7
	cfg.Workers = 4
	cfg.Now = fixedNow
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	Convey("Given seed configurations", t, func() {
		mutations := []func(*seed.Config){
			func(c *seed.Config) { c.BaseURL = "" },
			func(c *seed.Config) { c.Trainers = 0 },
			func(c *seed.Config) { c.Managers = 0 },
			func(c *seed.Config) { c.Days = 0 },
			func(c *seed.Config) { c.Count = -1 },
			func(c *seed.Config) { c.Workers = 0 },
		}

		Convey("Then the defaults are valid", func() {
			cfg := seed.DefaultConfig()
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Then each broken field is reported", func() {
			for _, mutate := range mutations {
				cfg := seed.DefaultConfig()
				mutate(&cfg)
				So(errors.Is(cfg.Validate(), seed.ErrConfig), ShouldBeTrue)
			}
		})
	})
}

func TestGenerate(t *testing.T) {
	Convey("Given a fixed seed", t, func() {
		cfg := testConfig()

		Convey("When generating twice", func() {
			first := seed.Generate(&cfg)
			second := seed.Generate(&cfg)

			Convey("Then the traffic is identical", func() {
				So(len(first), ShouldEqual, 40)
				So(second, ShouldResemble, first)
			})
		})

		Convey("When generating with another seed", func() {
			other := cfg
			other.Seed = 8

			Convey("Then the ids differ", func() {
				So(seed.Generate(&other)[0].ID, ShouldNotEqual, seed.Generate(&cfg)[0].ID)
			})
		})

		Convey("Then every assessment is valid for the service", func() {
			oldest := fixedNow.AddDate(0, 0, -cfg.Days)
			ids := make(map[string]bool)
			for _, a := range seed.Generate(&cfg) {
				So(ids[a.ID], ShouldBeFalse)
				ids[a.ID] = true

				d, err := model.ParseDate(a.AssessmentDate)
				So(err, ShouldBeNil)
				So(d.After(oldest), ShouldBeTrue)
				So(d.After(fixedNow), ShouldBeFalse)

				for key, v := range a.Ratings {
					_, err := model.ParseParameterID(key)
					So(err, ShouldBeNil)
					So(v, ShouldBeBetweenOrEqual, 1, 5)
				}
			}
		})
	})
}

func TestSubmit(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithStore(repository.NewMemoryStore()),
			service.WithWorkerCount(2),
			service.WithClock(func() time.Time { return fixedNow }),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, api.DefaultMaxLimit).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := testConfig()
		client := seed.NewClient(srv.URL+"/", time.Second)
		assessments := seed.Generate(&cfg)

		Convey("When the traffic is submitted", func() {
			So(client.Health(ctx), ShouldBeNil)
			stats, err := seed.Submit(ctx, client, assessments, cfg.Workers)
			So(err, ShouldBeNil)

			Convey("Then every assessment is accepted", func() {
				So(stats.Generated, ShouldEqual, 40)
				So(stats.Accepted, ShouldEqual, 40)
				So(stats.Failed, ShouldEqual, 0)
			})

			Convey("Then a second run only yields duplicates", func() {
				again, err := seed.Submit(ctx, client, assessments, cfg.Workers)
				So(err, ShouldBeNil)
				So(again.Accepted, ShouldEqual, 0)
				So(again.Duplicate, ShouldEqual, 40)
			})

			Convey("Then the API answers report queries", func() {
				// Restarting drains the queue and warms the leaderboard from the store.
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)

				top, err := client.Leaderboard(ctx, 5)
				So(err, ShouldBeNil)
				So(len(top), ShouldBeGreaterThan, 0)
				So(top[0].Rank, ShouldEqual, 1)

				alerts, err := client.TrainerAlerts(ctx, seed.TrainerID(0))
				So(err, ShouldBeNil)
				So(alerts, ShouldNotBeNil)
				_, err = client.PlatformAlerts(ctx)
				So(err, ShouldBeNil)
			})
		})

		Convey("When an assessment is malformed", func() {
			bad := []seed.Assessment{{ID: "bad", TrainerID: "t", AssessorID: "m", AssessmentDate: "yesterday"}}
			stats, err := seed.Submit(ctx, client, bad, 1)

			Convey("Then it is counted as failed", func() {
				So(err, ShouldBeNil)
				So(stats.Failed, ShouldEqual, 1)
			})
		})

		Convey("When the leaderboard limit is invalid", func() {
			_, err := client.Leaderboard(ctx, 0)
			So(errors.Is(err, seed.ErrUnexpectedCode), ShouldBeTrue)
		})
	})
}

func TestPrinter(t *testing.T) {
	Convey("Given a plain printer", t, func() {
		var buf bytes.Buffer
		p := seed.NewPrinter(&buf, false)

		Convey("When printing a leaderboard and alerts", func() {
			p.Stats(seed.Stats{Generated: 3, Accepted: 2, Duplicate: 1, Duration: time.Second})
			p.Leaderboard([]types.Entry{{Rank: 1, UserID: "manager-01", TotalXP: 550, Level: 2, LevelName: "Learner"}})
			p.Alerts("Alerts", []trend.Alert{{Type: trend.TypeDeclining, Severity: trend.SeverityHigh, TrainerID: "trainer-001", Message: "scores dropped"}})
			p.Alerts("Platform", nil)
			out := buf.String()

			Convey("Then the rows are rendered without colour codes", func() {
				So(out, ShouldContainSubstring, "manager-01")
				So(out, ShouldContainSubstring, "550")
				So(out, ShouldContainSubstring, "Learner")
				So(out, ShouldContainSubstring, "trainer-001")
				So(out, ShouldContainSubstring, "scores dropped")
				So(out, ShouldContainSubstring, "no alerts")
				So(out, ShouldNotContainSubstring, "\x1b[")
			})
		})
	})
}
