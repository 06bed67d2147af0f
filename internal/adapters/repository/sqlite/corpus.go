package sqlite

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/okian/skillgrade/internal/domain/model"
)

func (s *Store) QueryByGame(ctx context.Context, gameID string) ([]model.ReferenceAnswer, error) {
	query, args, err := sqlBuilder.
		Select("id", "game_id", "embedding", "score", "source_type", "verified", "created_at").
		From("reference_answers").
		Where(squirrel.Eq{"game_id": gameID}).
		OrderBy("created_at").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query corpus", err)
	}
	defer rows.Close()

	var out []model.ReferenceAnswer
	for rows.Next() {
		var (
			ref    model.ReferenceAnswer
			blob   []byte
			source string
		)
		if err := rows.Scan(&ref.ID, &ref.GameID, &blob, &ref.Score, &source, &ref.Verified, &ref.CreatedAt); err != nil {
			return nil, unavailable("scan corpus", err)
		}
		if ref.Embedding, err = model.EmbeddingFromBytes(blob); err != nil {
			s.log.Warn(ctx, "skipping corrupt reference embedding")
			continue
		}
		ref.SourceType = model.SourceType(source)
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate corpus", err)
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, ref model.ReferenceAnswer) error {
	if ref.ID == "" {
		ref.ID = uuid.NewString()
	}
	query, args, err := sqlBuilder.Insert("reference_answers").
		Columns("id", "game_id", "embedding", "score", "source_type", "verified", "created_at").
		Values(ref.ID, ref.GameID, ref.Embedding.Bytes(), ref.Score, string(ref.SourceType), ref.Verified, ref.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return unavailable("append reference", err)
	}
	return nil
}
