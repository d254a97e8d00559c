package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/okian/trainerscope/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"
)

// GormStore is a Store on a relational database through gorm.
type GormStore struct {
	db            *gorm.DB
	logLevel      gormLogger.LogLevel
	slowThreshold time.Duration
}

// GormOption configures a GormStore.
type GormOption func(*GormStore)

// WithLogLevel sets the gorm log level.
func WithLogLevel(level gormLogger.LogLevel) GormOption {
	return func(s *GormStore) {
		if level > 0 {
			s.logLevel = level
		}
	}
}

// WithSlowThreshold sets the duration above which queries are logged as slow.
func WithSlowThreshold(d time.Duration) GormOption {
	return func(s *GormStore) {
		if d > 0 {
			s.slowThreshold = d
		}
	}
}

// NewGormStore opens dialector and migrates the schema.
func NewGormStore(ctx context.Context, dialector gorm.Dialector, opts ...GormOption) (*GormStore, error) {
	s := &GormStore{
		logLevel:      gormLogger.Warn,
		slowThreshold: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             s.slowThreshold,
			LogLevel:                  s.logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}

	if dialector.Name() == DriverSQLite {
		// A single connection keeps in-memory databases shared and
		// serialises writers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.WithContext(ctx).AutoMigrate(&assessmentRow{}, &xpRow{}, &streakRow{}, &badgeRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.db = db
	return s, nil
}

// DB exposes the underlying handle.
func (s *GormStore) DB() *gorm.DB { return s.db }

// InsertAssessment implements AssessmentStore.
func (s *GormStore) InsertAssessment(ctx context.Context, a model.Assessment) error {
	defer observe("insert_assessment")()

	row := toAssessmentRow(a)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert assessment %s: %w", a.ID, err)
	}
	return nil
}

// GetAssessment implements AssessmentStore.
func (s *GormStore) GetAssessment(ctx context.Context, id string) (model.Assessment, error) {
	var row assessmentRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Assessment{}, ErrNotFound
	}
	if err != nil {
		return model.Assessment{}, fmt.Errorf("get assessment %s: %w", id, err)
	}
	return row.toModel(), nil
}

func newestFirst(tx *gorm.DB) *gorm.DB {
	return tx.Order("assessment_date DESC").Order("created_at DESC").Order("id DESC")
}

func (s *GormStore) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]model.Assessment, error) {
	var rows []assessmentRow
	if err := newestFirst(scope(s.db.WithContext(ctx))).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Assessment, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// ListByTrainer implements AssessmentStore.
func (s *GormStore) ListByTrainer(ctx context.Context, trainerID string) ([]model.Assessment, error) {
	defer observe("list_by_trainer")()

	out, err := s.list(ctx, func(tx *gorm.DB) *gorm.DB { return tx.Where("trainer_id = ?", trainerID) })
	if err != nil {
		return nil, fmt.Errorf("list assessments of trainer %s: %w", trainerID, err)
	}
	return out, nil
}

// ListByAssessor implements AssessmentStore.
func (s *GormStore) ListByAssessor(ctx context.Context, assessorID string) ([]model.Assessment, error) {
	out, err := s.list(ctx, func(tx *gorm.DB) *gorm.DB { return tx.Where("assessor_id = ?", assessorID) })
	if err != nil {
		return nil, fmt.Errorf("list assessments by %s: %w", assessorID, err)
	}
	return out, nil
}

// ListRecent implements AssessmentStore.
func (s *GormStore) ListRecent(ctx context.Context, limit int) ([]model.Assessment, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	out, err := s.list(ctx, func(tx *gorm.DB) *gorm.DB { return tx.Limit(limit) })
	if err != nil {
		return nil, fmt.Errorf("list recent assessments: %w", err)
	}
	return out, nil
}

// ListAssessments implements AssessmentStore.
func (s *GormStore) ListAssessments(ctx context.Context) ([]model.Assessment, error) {
	defer observe("list_assessments")()

	out, err := s.list(ctx, func(tx *gorm.DB) *gorm.DB { return tx })
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return out, nil
}

// CountAssessments implements AssessmentStore.
func (s *GormStore) CountAssessments(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&assessmentRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count assessments: %w", err)
	}
	return int(n), nil
}

// LastAssessmentDate implements AssessmentStore.
func (s *GormStore) LastAssessmentDate(ctx context.Context, assessorID string) (*time.Time, error) {
	var rows []assessmentRow
	err := s.db.WithContext(ctx).
		Select("assessment_date").
		Where("assessor_id = ?", assessorID).
		Order("assessment_date DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("last assessment of %s: %w", assessorID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	d := rows[0].AssessmentDate.UTC()
	return &d, nil
}

// GetXP implements ProgressStore.
func (s *GormStore) GetXP(ctx context.Context, userID string) (model.UserXP, error) {
	var row xpRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.UserXP{}, ErrNotFound
	}
	if err != nil {
		return model.UserXP{}, fmt.Errorf("get xp of %s: %w", userID, err)
	}
	return row.toModel(), nil
}

// ListXP implements ProgressStore.
func (s *GormStore) ListXP(ctx context.Context) ([]model.UserXP, error) {
	var rows []xpRow
	if err := s.db.WithContext(ctx).Order("user_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list xp: %w", err)
	}
	out := make([]model.UserXP, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// UpdateXP implements ProgressStore.
func (s *GormStore) UpdateXP(ctx context.Context, userID string, fn func(model.UserXP) model.UserXP) (model.UserXP, error) {
	defer observe("update_xp")()

	var next model.UserXP
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Claim the row first so FOR UPDATE has something to lock for a new user.
		claim := xpRow{UserID: userID}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim)
		if ins.Error != nil {
			return ins.Error
		}
		var rows []xpRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Limit(1).
			Find(&rows).Error; err != nil {
			return err
		}
		cur := model.UserXP{UserID: userID}
		if ins.RowsAffected == 0 && len(rows) > 0 {
			cur = rows[0].toModel()
		}
		next = fn(cur)
		next.UserID = userID

		row := toXPRow(next)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_xp", "current_level", "level_xp", "level_up_at", "updated_at"}),
		}).Create(&row).Error
	})
	if err != nil {
		return model.UserXP{}, fmt.Errorf("update xp of %s: %w", userID, err)
	}
	return next, nil
}

// ListStreaks implements ProgressStore.
func (s *GormStore) ListStreaks(ctx context.Context, userID string) ([]model.Streak, error) {
	var rows []streakRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("streak_type").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list streaks of %s: %w", userID, err)
	}
	out := make([]model.Streak, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// UpdateStreak implements ProgressStore.
func (s *GormStore) UpdateStreak(ctx context.Context, userID string, typ model.ActivityType, fn func(*model.Streak) model.Streak) (model.Streak, error) {
	defer observe("update_streak")()

	var next model.Streak
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := streakRow{UserID: userID, Type: string(typ)}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim)
		if ins.Error != nil {
			return ins.Error
		}
		var rows []streakRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND streak_type = ?", userID, string(typ)).
			Limit(1).
			Find(&rows).Error; err != nil {
			return err
		}
		// A row this transaction just inserted is a placeholder, not history.
		var prev *model.Streak
		if ins.RowsAffected == 0 && len(rows) > 0 {
			cur := rows[0].toModel()
			prev = &cur
		}
		next = fn(prev)
		next.UserID, next.Type = userID, typ

		row := toStreakRow(next)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "streak_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"current_streak", "longest_streak", "last_activity_date", "streak_start_date"}),
		}).Create(&row).Error
	})
	if err != nil {
		return model.Streak{}, fmt.Errorf("update %s streak of %s: %w", typ, userID, err)
	}
	return next, nil
}

// AwardBadge implements ProgressStore.
func (s *GormStore) AwardBadge(ctx context.Context, b model.UserBadge) (bool, error) {
	row := badgeRow{
		UserID:       b.UserID,
		Badge:        string(b.Badge),
		AssessmentID: b.AssessmentID,
		AwardedAt:    b.AwardedAt,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("award %s to %s: %w", b.Badge, b.UserID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListBadges implements ProgressStore.
func (s *GormStore) ListBadges(ctx context.Context, userID string) ([]model.UserBadge, error) {
	var rows []badgeRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("awarded_at").Order("badge_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list badges of %s: %w", userID, err)
	}
	out := make([]model.UserBadge, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// Close implements Store.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
