package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/trainerscope/internal/domain/model"
)

type streakKey struct {
	userID string
	typ    model.ActivityType
}

type badgeKey struct {
	userID string
	badge  model.BadgeID
}

// MemoryStore is a Store backed by maps. Values are copied on the way in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string]model.Assessment
	byTrainer   map[string][]string
	byAssessor  map[string][]string
	xp          map[string]model.UserXP
	streaks     map[streakKey]model.Streak
	badges      map[badgeKey]model.UserBadge
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assessments: make(map[string]model.Assessment),
		byTrainer:   make(map[string][]string),
		byAssessor:  make(map[string][]string),
		xp:          make(map[string]model.UserXP),
		streaks:     make(map[streakKey]model.Streak),
		badges:      make(map[badgeKey]model.UserBadge),
	}
}

func copyAssessment(a model.Assessment) model.Assessment {
	if a.Comments != nil {
		comments := make(map[model.ParameterID]string, len(a.Comments))
		for k, v := range a.Comments {
			comments[k] = v
		}
		a.Comments = comments
	}
	return a
}

func copyXP(x model.UserXP) model.UserXP {
	if x.LevelUpAt != nil {
		t := *x.LevelUpAt
		x.LevelUpAt = &t
	}
	return x
}

// InsertAssessment implements AssessmentStore.
func (s *MemoryStore) InsertAssessment(_ context.Context, a model.Assessment) error {
	defer observe("insert_assessment")()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assessments[a.ID]; ok {
		return ErrAlreadyExists
	}
	s.assessments[a.ID] = copyAssessment(a)
	s.byTrainer[a.TrainerID] = append(s.byTrainer[a.TrainerID], a.ID)
	s.byAssessor[a.AssessorID] = append(s.byAssessor[a.AssessorID], a.ID)
	return nil
}

// GetAssessment implements AssessmentStore.
func (s *MemoryStore) GetAssessment(_ context.Context, id string) (model.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[id]
	if !ok {
		return model.Assessment{}, ErrNotFound
	}
	return copyAssessment(a), nil
}

func (s *MemoryStore) collect(ids []string) []model.Assessment {
	out := make([]model.Assessment, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyAssessment(s.assessments[id]))
	}
	return model.NewestFirst(out)
}

// ListByTrainer implements AssessmentStore.
func (s *MemoryStore) ListByTrainer(_ context.Context, trainerID string) ([]model.Assessment, error) {
	defer observe("list_by_trainer")()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byTrainer[trainerID]), nil
}

// ListByAssessor implements AssessmentStore.
func (s *MemoryStore) ListByAssessor(_ context.Context, assessorID string) ([]model.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byAssessor[assessorID]), nil
}

// ListAssessments implements AssessmentStore.
func (s *MemoryStore) ListAssessments(_ context.Context) ([]model.Assessment, error) {
	defer observe("list_assessments")()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Assessment, 0, len(s.assessments))
	for _, a := range s.assessments {
		out = append(out, copyAssessment(a))
	}
	return model.NewestFirst(out), nil
}

// ListRecent implements AssessmentStore.
func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]model.Assessment, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	all, err := s.ListAssessments(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// CountAssessments implements AssessmentStore.
func (s *MemoryStore) CountAssessments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assessments), nil
}

// LastAssessmentDate implements AssessmentStore.
func (s *MemoryStore) LastAssessmentDate(_ context.Context, assessorID string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last *time.Time
	for _, id := range s.byAssessor[assessorID] {
		d := s.assessments[id].Date
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	return last, nil
}

// GetXP implements ProgressStore.
func (s *MemoryStore) GetXP(_ context.Context, userID string) (model.UserXP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	x, ok := s.xp[userID]
	if !ok {
		return model.UserXP{}, ErrNotFound
	}
	return copyXP(x), nil
}

// ListXP implements ProgressStore.
func (s *MemoryStore) ListXP(_ context.Context) ([]model.UserXP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.UserXP, 0, len(s.xp))
	for _, x := range s.xp {
		out = append(out, copyXP(x))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// UpdateXP implements ProgressStore.
func (s *MemoryStore) UpdateXP(_ context.Context, userID string, fn func(model.UserXP) model.UserXP) (model.UserXP, error) {
	defer observe("update_xp")()

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.xp[userID]
	if !ok {
		cur = model.UserXP{UserID: userID}
	}
	next := fn(copyXP(cur))
	next.UserID = userID
	s.xp[userID] = copyXP(next)
	return next, nil
}

// ListStreaks implements ProgressStore.
func (s *MemoryStore) ListStreaks(_ context.Context, userID string) ([]model.Streak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Streak
	for k, v := range s.streaks {
		if k.userID == userID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// UpdateStreak implements ProgressStore.
func (s *MemoryStore) UpdateStreak(_ context.Context, userID string, typ model.ActivityType, fn func(*model.Streak) model.Streak) (model.Streak, error) {
	defer observe("update_streak")()

	s.mu.Lock()
	defer s.mu.Unlock()
	key := streakKey{userID: userID, typ: typ}
	var prev *model.Streak
	if cur, ok := s.streaks[key]; ok {
		prev = &cur
	}
	next := fn(prev)
	next.UserID, next.Type = userID, typ
	s.streaks[key] = next
	return next, nil
}

// AwardBadge implements ProgressStore.
func (s *MemoryStore) AwardBadge(_ context.Context, b model.UserBadge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := badgeKey{userID: b.UserID, badge: b.Badge}
	if _, ok := s.badges[key]; ok {
		return false, nil
	}
	s.badges[key] = b
	return true, nil
}

// ListBadges implements ProgressStore.
func (s *MemoryStore) ListBadges(_ context.Context, userID string) ([]model.UserBadge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.UserBadge
	for k, v := range s.badges {
		if k.userID == userID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AwardedAt.Equal(out[j].AwardedAt) {
			return out[i].AwardedAt.Before(out[j].AwardedAt)
		}
		return out[i].Badge < out[j].Badge
	})
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
