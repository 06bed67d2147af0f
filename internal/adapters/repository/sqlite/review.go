package sqlite

import (
	"context"
	"encoding/json"

	"github.com/okian/skillgrade/internal/domain/model"
)

func (s *Store) Enqueue(ctx context.Context, item model.ReviewQueueItem) error {
	reasons, err := json.Marshal(item.Reasons)
	if err != nil {
		return err
	}
	query, args, err := sqlBuilder.Insert("review_queue").
		Columns("attempt_id", "reasons", "confidence", "risk", "created_at").
		Values(item.AttemptID, string(reasons), item.Confidence, string(item.Risk), item.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return unavailable("enqueue review", err)
	}
	return nil
}

func (s *Store) Pending(ctx context.Context, limit int) ([]model.ReviewQueueItem, error) {
	q := sqlBuilder.Select("attempt_id", "reasons", "confidence", "risk", "created_at").
		From("review_queue").OrderBy("created_at", "id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("pending reviews", err)
	}
	defer rows.Close()

	var out []model.ReviewQueueItem
	for rows.Next() {
		var (
			item    model.ReviewQueueItem
			reasons string
			risk    string
		)
		if err := rows.Scan(&item.AttemptID, &reasons, &item.Confidence, &risk, &item.CreatedAt); err != nil {
			return nil, unavailable("scan review", err)
		}
		if err := json.Unmarshal([]byte(reasons), &item.Reasons); err != nil {
			return nil, err
		}
		item.Risk = model.Risk(risk)
		out = append(out, item)
	}
	return out, rows.Err()
}
