package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/pkg/logger"
)

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	cmd := redis.NewStringCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal("1-0")
	}
	return cmd
}

func sampleEvent() model.Event {
	return model.Event{
		EventID:    "e1",
		Kind:       model.EventAttemptScored,
		AttemptID:  "a1",
		PlayerID:   "p1",
		GameID:     "g1",
		Score:      74,
		Embedding:  model.Embedding{1, 2},
		Attributes: map[string]any{"confidence": 80},
		TS:         time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRedisStreamSink(t *testing.T) {
	fs := &fakeStream{}
	sink := NewRedisStreamSink(fs, "skillgrade:analytics", 1000)

	require.NoError(t, sink.Handle(context.Background(), sampleEvent()))
	require.Len(t, fs.args, 1)
	a := fs.args[0]
	assert.Equal(t, "skillgrade:analytics", a.Stream)
	assert.Equal(t, int64(1000), a.MaxLen)
	assert.True(t, a.Approx)

	values, ok := a.Values.(map[string]interface{})
	require.True(t, ok)
	var rec Record
	require.NoError(t, json.Unmarshal(values["data"].([]byte), &rec))
	assert.Equal(t, "a1", rec.AttemptID)
	assert.Equal(t, 74, rec.Score)
	assert.Equal(t, "attempt_scored", rec.Kind)
}

func TestRedisStreamSinkError(t *testing.T) {
	fs := &fakeStream{err: errors.New("connection refused")}
	err := NewRedisStreamSink(fs, "s", 0).Handle(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "xadd s")
	assert.Zero(t, fs.args[0].MaxLen)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(logger.New(zap.New(core)))

	require.NoError(t, sink.Handle(context.Background(), sampleEvent()))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "p1", fields["player_id"])
	assert.EqualValues(t, 74, fields["score"])
}
