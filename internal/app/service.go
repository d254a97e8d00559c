// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	eventqueue "github.com/okian/trainerscope/internal/adapters/mq/queue"
	workerpool "github.com/okian/trainerscope/internal/adapters/mq/worker"
	repository "github.com/okian/trainerscope/internal/adapters/repository"
	"github.com/okian/trainerscope/internal/domain/correlation"
	"github.com/okian/trainerscope/internal/domain/dedupe"
	"github.com/okian/trainerscope/internal/domain/gamification"
	"github.com/okian/trainerscope/internal/domain/model"
	"github.com/okian/trainerscope/internal/domain/scoring"
	"github.com/okian/trainerscope/internal/domain/trend"
	"github.com/okian/trainerscope/internal/domain/types"
	"github.com/okian/trainerscope/pkg/logger"
	"github.com/okian/trainerscope/pkg/metrics"
)

// Submission statuses.
const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
)

// SubmitResult reports what happened to a submitted assessment.
type SubmitResult struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	// Inline is true when the queue was full and gamification ran on the
	// caller's goroutine.
	Inline bool `json:"-"`
}

// Service implements the API dependencies for trainer analytics.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	ownsStore bool
	board     *repository.Leaderboard
	deduper   dedupe.Deduper
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool
	inline    *workerpool.InMemoryWorker
	processor *gamification.Processor
	detector  *trend.Detector

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	storeDriver string
	storeDSN    string
	rules       gamification.Rules
	loc         *time.Location
	now         func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the activity queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication window. Zero keeps every id.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreDriver selects the persistence backend opened on Start.
func WithStoreDriver(driver, dsn string) Option {
	return func(s *Service) {
		s.storeDriver = driver
		s.storeDSN = dsn
	}
}

// WithStore uses an already opened store. The service does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRules sets the XP table.
func WithRules(rules gamification.Rules) Option {
	return func(s *Service) {
		s.rules = rules
	}
}

// WithLocation sets the time zone used for calendar-day arithmetic.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10000,
		dedupeSize:  100000,
		storeDriver: repository.DriverMemory,
		rules:       gamification.DefaultRules(),
		loc:         time.UTC,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store, warms the leaderboard and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting trainerscope service...")

	if s.store == nil {
		store, err := repository.Open(ctx, s.storeDriver, s.storeDSN)
		if err != nil {
			return fmt.Errorf("open %s store: %w", s.storeDriver, err)
		}
		s.store = store
		s.ownsStore = true
		s.logger.Info(ctx, "store opened", logger.String("driver", s.storeDriver))
	}

	s.board = repository.NewLeaderboard(ctx)
	if err := s.warmLeaderboard(ctx); err != nil {
		_ = s.board.Close()
		s.closeStore(ctx)
		return err
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.processor = gamification.NewProcessor(s.store, s.store, s.board,
		gamification.WithRules(s.rules),
		gamification.WithLocation(s.loc),
		gamification.WithClock(s.now),
	)
	s.detector = trend.New(trend.WithLocation(s.loc))

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.processor)
	s.inline = workerpool.NewInMemoryWorker(s.queue, s.processor, workerpool.WithName("inline"))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "trainerscope service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("leaderboardUsers", s.board.Count(ctx)),
	)

	return nil
}

func (s *Service) warmLeaderboard(ctx context.Context) error {
	totals, err := s.store.ListXP(ctx)
	if err != nil {
		return fmt.Errorf("load xp totals: %w", err)
	}
	for _, x := range totals {
		if err := s.board.UpsertXP(ctx, x.UserID, x.TotalXP); err != nil {
			return fmt.Errorf("warm leaderboard: %w", err)
		}
	}
	return nil
}

func (s *Service) closeStore(ctx context.Context) {
	if !s.ownsStore || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}
}

// Stop drains the worker pool and releases the store. Activities still
// queued when ctx expires are lost.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping trainerscope service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.board.Close(); err != nil {
		errs = append(errs, err)
	}
	s.closeStore(ctx)

	s.started = false
	s.logger.Info(ctx, "trainerscope service stopped")
	return errors.Join(errs...)
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) at(now time.Time) time.Time {
	if now.IsZero() {
		return s.now()
	}
	return now
}

// SubmitAssessment validates, deduplicates and stores an assessment, then
// hands one activity per participant to the worker pool. When the queue
// cannot take an activity it is applied inline.
func (s *Service) SubmitAssessment(ctx context.Context, a model.Assessment) (SubmitResult, error) { //nolint:gocritic // hugeParam: assessments are values
	if err := s.ready(); err != nil {
		return SubmitResult{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := a.Validate(); err != nil {
		metrics.RecordAssessmentRejected("invalid")
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrInvalidAssessment, err)
	}

	if s.deduper.SeenAndRecord(ctx, a.ID) {
		metrics.RecordAssessmentDuplicate()
		s.logger.Debug(ctx, "duplicate assessment detected, skipping", logger.String("id", a.ID))
		return SubmitResult{Status: StatusDuplicate, ID: a.ID}, nil
	}

	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.store.InsertAssessment(ctx, a); err != nil {
		s.deduper.Unrecord(ctx, a.ID)
		if errors.Is(err, repository.ErrAlreadyExists) {
			metrics.RecordAssessmentRejected("conflict")
		} else {
			metrics.RecordAssessmentRejected("store_error")
			metrics.RecordErrorByComponent("service", "insert_failed")
		}
		return SubmitResult{}, fmt.Errorf("store assessment %s: %w", a.ID, err)
	}
	metrics.RecordAssessmentAccepted()

	res := SubmitResult{Status: StatusAccepted, ID: a.ID}
	for _, act := range activities(&a, now) {
		err := s.queue.Enqueue(ctx, act)
		if err == nil {
			continue
		}
		// The assessment is already stored, so the XP must not be dropped.
		s.logger.Warn(ctx, "queue unavailable, applying activity inline",
			logger.String("activity_id", act.ID),
			logger.Error(err),
		)
		metrics.RecordActivityInline()
		res.Inline = true
		if err := s.inline.Handle(context.WithoutCancel(ctx), act); err != nil {
			return res, err
		}
	}
	return res, nil
}

// activities derives the assessor and trainer activities of a.
func activities(a *model.Assessment, now time.Time) []model.Activity {
	avg := scoring.RecordAverage(a)
	mk := func(user string, typ model.ActivityType) model.Activity {
		return model.Activity{
			ID:           a.ID + ":" + string(typ),
			UserID:       user,
			Type:         typ,
			AssessmentID: a.ID,
			Date:         a.Date,
			Average:      avg,
			OccurredAt:   now,
		}
	}
	return []model.Activity{
		mk(a.AssessorID, model.ActivityAssessmentGiven),
		mk(a.TrainerID, model.ActivityAssessmentReceived),
	}
}

// Assessment returns a stored assessment by id.
func (s *Service) Assessment(ctx context.Context, id string) (model.Assessment, error) {
	if err := s.ready(); err != nil {
		return model.Assessment{}, err
	}
	return s.store.GetAssessment(ctx, id)
}

// TrainerAssessments lists the assessments a trainer received, newest first.
func (s *Service) TrainerAssessments(ctx context.Context, trainerID string) ([]model.Assessment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListByTrainer(ctx, trainerID)
}

// ManagerAssessments lists the assessments a manager gave, newest first.
func (s *Service) ManagerAssessments(ctx context.Context, managerID string) ([]model.Assessment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListByAssessor(ctx, managerID)
}

// RecentAssessments lists the latest assessments across all trainers.
func (s *Service) RecentAssessments(ctx context.Context, limit int) ([]model.Assessment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListRecent(ctx, limit)
}

// TrainerSummary aggregates a trainer's assessments and adds improvement tips.
func (s *Service) TrainerSummary(ctx context.Context, trainerID string) (types.TrainerSummary, error) {
	if err := s.ready(); err != nil {
		return types.TrainerSummary{}, err
	}
	defer observe("summary")()

	history, err := s.store.ListByTrainer(ctx, trainerID)
	if err != nil {
		return types.TrainerSummary{}, fmt.Errorf("load history for %s: %w", trainerID, err)
	}
	summary := scoring.Summarize(history)
	return types.TrainerSummary{
		TrainerID:   trainerID,
		Summary:     summary,
		Suggestions: scoring.Suggestions(summary.Parameters),
	}, nil
}

// TrainerAlerts runs the trainer trend rules. A zero now uses the clock.
func (s *Service) TrainerAlerts(ctx context.Context, trainerID string, now time.Time) ([]trend.Alert, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	defer observe("trainer_alerts")()

	history, err := s.store.ListByTrainer(ctx, trainerID)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", trainerID, err)
	}
	return recordAlerts(s.detector.Trainer(trainerID, history, s.at(now))), nil
}

// ManagerAlerts reports whether a manager has gone quiet.
func (s *Service) ManagerAlerts(ctx context.Context, managerID string, now time.Time) ([]trend.Alert, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	defer observe("manager_alerts")()

	last, err := s.store.LastAssessmentDate(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("load last assessment of %s: %w", managerID, err)
	}
	alerts := []trend.Alert{}
	if a, ok := s.detector.Inactivity(managerID, last, s.at(now)); ok {
		alerts = append(alerts, a)
	}
	return recordAlerts(alerts), nil
}

// PlatformAlerts runs the platform-wide rules over every stored assessment.
func (s *Service) PlatformAlerts(ctx context.Context, now time.Time) ([]trend.Alert, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	defer observe("platform_alerts")()

	records, err := s.store.ListAssessments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assessments: %w", err)
	}
	return recordAlerts(s.detector.Platform(records, s.at(now))), nil
}

func recordAlerts(alerts []trend.Alert) []trend.Alert {
	if alerts == nil {
		alerts = []trend.Alert{}
	}
	for i := range alerts {
		metrics.RecordAlert(string(alerts[i].Type), string(alerts[i].Severity))
	}
	return alerts
}

// Correlations builds the correlation matrix of the named variable set over
// every stored assessment.
func (s *Service) Correlations(ctx context.Context, set string) (correlation.Matrix, error) {
	if err := s.ready(); err != nil {
		return correlation.Matrix{}, err
	}
	vs, err := correlation.ParseSet(set)
	if err != nil {
		return correlation.Matrix{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	defer observe("correlations")()

	records, err := s.store.ListAssessments(ctx)
	if err != nil {
		return correlation.Matrix{}, fmt.Errorf("load assessments: %w", err)
	}
	return correlation.Analyze(records, vs)
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	entries, err := s.board.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	apiEntries := make([]types.Entry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = toEntry(entry)
	}
	return apiEntries, nil
}

// Rank returns the leaderboard entry of a user.
func (s *Service) Rank(ctx context.Context, userID string) (types.Entry, error) {
	if err := s.ready(); err != nil {
		return types.Entry{}, err
	}
	entry, err := s.board.Rank(ctx, userID)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(entry), nil
}

func toEntry(e repository.Entry) types.Entry {
	info := gamification.LevelFor(e.TotalXP)
	return types.Entry{
		Rank:      e.Rank,
		UserID:    e.UserID,
		TotalXP:   e.TotalXP,
		Level:     info.Level,
		LevelName: info.Name,
	}
}

// UserProgress returns a user's XP, streaks and badges. Users who have never
// earned XP are reported as repository.ErrNotFound.
func (s *Service) UserProgress(ctx context.Context, userID string) (types.UserProgress, error) {
	if err := s.ready(); err != nil {
		return types.UserProgress{}, err
	}
	xp, err := s.store.GetXP(ctx, userID)
	if err != nil {
		return types.UserProgress{}, err
	}
	streaks, err := s.store.ListStreaks(ctx, userID)
	if err != nil {
		return types.UserProgress{}, fmt.Errorf("load streaks of %s: %w", userID, err)
	}
	badges, err := s.store.ListBadges(ctx, userID)
	if err != nil {
		return types.UserProgress{}, fmt.Errorf("load badges of %s: %w", userID, err)
	}

	out := types.UserProgress{
		UserID:    userID,
		Level:     gamification.LevelFor(xp.TotalXP),
		LevelUpAt: xp.LevelUpAt,
		Streaks:   make([]types.Streak, 0, len(streaks)),
		Badges:    make([]types.Badge, 0, len(badges)),
	}
	for _, st := range streaks {
		out.Streaks = append(out.Streaks, types.Streak{
			Type:         string(st.Type),
			Current:      st.Current,
			Longest:      st.Longest,
			LastActivity: formatDate(st.LastActivity),
			StartedAt:    formatDate(st.StartedAt),
		})
	}
	for _, b := range badges {
		view := types.Badge{
			ID:           string(b.Badge),
			Name:         string(b.Badge),
			AssessmentID: b.AssessmentID,
			AwardedAt:    b.AwardedAt,
		}
		if def, ok := gamification.Lookup(b.Badge); ok {
			view.Name = def.Name
			view.Description = def.Description
		}
		out.Badges = append(out.Badges, view)
	}
	return out, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"storeDriver": s.storeDriver,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		users := s.board.Count(ctx)

		stats["workerCount"] = s.pool.Size()
		stats["queueLength"] = queueLen
		stats["leaderboardUsers"] = users
		stats["dedupeEntries"] = s.deduper.Size()
		if n, err := s.store.CountAssessments(ctx); err == nil {
			stats["assessments"] = n
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateLeaderboardSize(users)
	}

	return stats
}

// observe starts timing an analytics operation.
func observe(op string) func() {
	start := time.Now()
	return func() {
		metrics.RecordAnalyticsLatency(op, float64(time.Since(start).Microseconds())/1000)
	}
}
