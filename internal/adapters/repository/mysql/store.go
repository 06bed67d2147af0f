// Package mysql implements the repository ports on MySQL through gorm.
package mysql

import (
	"context"
	"errors"
	"fmt"

	driver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/skillgrade/internal/adapters/repository"
	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/pkg/logger"
)

// erDupEntry is MySQL's duplicate key error number.
const erDupEntry = 1062

// Store implements repository.Store.
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

var _ repository.Store = (*Store)(nil)

// Open connects with dsn and migrates the schema.
func Open(ctx context.Context, dsn string, l logger.Logger) (*Store, error) {
	if l == nil {
		l = logger.NewNop()
	}
	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, unavailable("open", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&attemptRow{}, &referenceRow{}, &reviewRow{}); err != nil {
		return nil, unavailable("migrate", err)
	}
	l.Info(ctx, "mysql store ready")
	return &Store{db: db, log: l}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Exists(ctx context.Context, playerID, gameID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&attemptRow{}).
		Where("player_id = ? AND game_id = ?", playerID, gameID).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, unavailable("exists", err)
	}
	return n > 0, nil
}

func (s *Store) InsertIfAbsent(ctx context.Context, rec model.AttemptRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := toAttemptRow(rec)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return repository.ErrConflict
		}
		return unavailable("insert attempt", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, playerID, gameID string) (model.AttemptRecord, error) {
	var row attemptRow
	err := s.db.WithContext(ctx).
		Where("player_id = ? AND game_id = ?", playerID, gameID).
		First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.AttemptRecord{}, repository.ErrNotFound
	case err != nil:
		return model.AttemptRecord{}, unavailable("get attempt", err)
	}
	return row.record(), nil
}

func (s *Store) QueryByGame(ctx context.Context, gameID string) ([]model.ReferenceAnswer, error) {
	var rows []referenceRow
	if err := s.db.WithContext(ctx).Where("game_id = ?", gameID).Order("created_at").Find(&rows).Error; err != nil {
		return nil, unavailable("query corpus", err)
	}
	out := make([]model.ReferenceAnswer, 0, len(rows))
	for _, r := range rows {
		ref, err := r.answer()
		if err != nil {
			s.log.Warn(ctx, "skipping corrupt reference answer", logger.String("id", r.ID), logger.Error(err))
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, ref model.ReferenceAnswer) error {
	if ref.ID == "" {
		ref.ID = uuid.NewString()
	}
	row := toReferenceRow(ref)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return unavailable("append corpus", err)
	}
	return nil
}

func (s *Store) Enqueue(ctx context.Context, item model.ReviewQueueItem) error {
	row, err := toReviewRow(item)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return unavailable("enqueue review", err)
	}
	return nil
}

func (s *Store) Pending(ctx context.Context, limit int) ([]model.ReviewQueueItem, error) {
	q := s.db.WithContext(ctx).Order("created_at").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []reviewRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, unavailable("pending reviews", err)
	}
	out := make([]model.ReviewQueueItem, 0, len(rows))
	for _, r := range rows {
		item, err := r.item()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *driver.MySQLError
	return errors.As(err, &me) && me.Number == erDupEntry
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", repository.ErrUnavailable, op, err)
}
