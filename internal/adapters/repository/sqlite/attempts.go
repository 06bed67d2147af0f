package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/okian/skillgrade/internal/adapters/repository"
	"github.com/okian/skillgrade/internal/domain/model"
)

var attemptColumns = []string{
	"id", "player_id", "game_id", "team_id", "final_score", "confidence",
	"integrity_risk", "used_ai_scoring", "hints_used", "created_at",
}

func (s *Store) Exists(ctx context.Context, playerID, gameID string) (bool, error) {
	query, args, err := sqlBuilder.Select("1").From("attempts").
		Where(squirrel.Eq{"player_id": playerID, "game_id": gameID}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	var one int
	switch err := s.db.QueryRowContext(ctx, query, args...).Scan(&one); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, unavailable("exists", err)
	}
	return true, nil
}

func (s *Store) InsertIfAbsent(ctx context.Context, rec model.AttemptRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	query, args, err := sqlBuilder.Insert("attempts").Columns(attemptColumns...).
		Values(rec.ID, rec.PlayerID, rec.GameID, rec.TeamID, rec.FinalScore, rec.Confidence,
			string(rec.IntegrityRisk), rec.UsedAIScoring, rec.HintsUsed, rec.CreatedAt.UTC()).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return unavailable("insert attempt", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, playerID, gameID string) (model.AttemptRecord, error) {
	query, args, err := sqlBuilder.Select(attemptColumns...).From("attempts").
		Where(squirrel.Eq{"player_id": playerID, "game_id": gameID}).ToSql()
	if err != nil {
		return model.AttemptRecord{}, err
	}
	var (
		rec  model.AttemptRecord
		risk string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &rec.PlayerID, &rec.GameID, &rec.TeamID,
		&rec.FinalScore, &rec.Confidence, &risk, &rec.UsedAIScoring, &rec.HintsUsed, &rec.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.AttemptRecord{}, repository.ErrNotFound
	case err != nil:
		return model.AttemptRecord{}, unavailable("get attempt", err)
	}
	rec.IntegrityRisk = model.Risk(risk)
	return rec, nil
}
