// Package analytics publishes scored-attempt events to downstream consumers.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/pkg/logger"
)

// Record is the wire shape of an analytics entry.
type Record struct {
	EventID    string         `json:"eventId"`
	Kind       string         `json:"kind"`
	AttemptID  string         `json:"attemptId"`
	PlayerID   string         `json:"playerId"`
	GameID     string         `json:"gameId"`
	Score      int            `json:"score"`
	Attributes map[string]any `json:"attributes,omitempty"`
	TS         time.Time      `json:"ts"`
}

// NewRecord projects e onto the wire shape. Embeddings are not published.
func NewRecord(e model.Event) Record { //nolint:gocritic // hugeParam
	return Record{
		EventID:    e.EventID,
		Kind:       string(e.Kind),
		AttemptID:  e.AttemptID,
		PlayerID:   e.PlayerID,
		GameID:     e.GameID,
		Score:      e.Score,
		Attributes: e.Attributes,
		TS:         e.TS.UTC(),
	}
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	log logger.Logger
}

// NewLogSink returns a sink logging through l.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.NewNop()
	}
	return &LogSink{log: l}
}

func (s *LogSink) Handle(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam
	s.log.Info(ctx, "attempt scored",
		logger.String("attempt_id", e.AttemptID),
		logger.String("player_id", e.PlayerID),
		logger.String("game_id", e.GameID),
		logger.Int("score", e.Score),
		logger.Any("attributes", e.Attributes),
	)
	return nil
}

// StreamClient is the subset of redis.Cmdable used by RedisStreamSink.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamSink appends each event to a Redis stream.
type RedisStreamSink struct {
	client StreamClient
	stream string
	maxLen int64
}

// NewRedisStreamSink returns a sink writing to stream. maxLen > 0 trims the
// stream approximately to that length.
func NewRedisStreamSink(client StreamClient, stream string, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

// NewRedisClient dials addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     20,
		MinIdleConns: 2,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (s *RedisStreamSink) Handle(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam
	data, err := json.Marshal(NewRecord(e))
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{"data": data},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
