// Package replay posts recorded attempt requests to a running server and
// tallies the outcomes.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/skillgrade/internal/domain/types"
	"github.com/okian/skillgrade/pkg/logger"
)

const (
	defaultWorkers = 8
	defaultTimeout = 60 * time.Second
	maxLineBytes   = 1 << 20
)

// ErrBadLine is returned for a JSONL line that is not an attempt request.
var ErrBadLine = errors.New("malformed request line")

// Config controls a replay run.
type Config struct {
	BaseURL string
	Workers int
	Timeout time.Duration
}

// Stats summarises a run.
type Stats struct {
	Submitted int            `json:"submitted"`
	Scored    int            `json:"scored"`
	Duplicate int            `json:"duplicate"`
	Rejected  int            `json:"rejected"`
	Failed    int            `json:"failed"`
	MeanScore float64        `json:"meanScore"`
	Review    int            `json:"reviewRequired"`
	ByStatus  map[string]int `json:"byStatus"`

	scoreSum int
}

// Read parses one attempt request per non-empty line.
func Read(r io.Reader) ([]types.AttemptRequest, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var out []types.AttemptRequest
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		var req types.AttemptRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadLine, line, err)
		}
		out = append(out, req)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Run submits reqs with cfg.Workers concurrent clients. Transport failures are
// counted, not returned; only context cancellation aborts the run.
func Run(ctx context.Context, cfg Config, reqs []types.AttemptRequest, l logger.Logger) (Stats, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if l == nil {
		l = logger.NewNop()
	}
	client := &http.Client{Timeout: cfg.Timeout}
	url := strings.TrimRight(cfg.BaseURL, "/") + "/v1/attempts"

	var (
		mu    sync.Mutex
		stats = Stats{ByStatus: map[string]int{}}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range reqs {
		req := reqs[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			status, resp, err := submit(gctx, client, url, req)
			mu.Lock()
			defer mu.Unlock()
			stats.record(status, resp, err)
			if err != nil {
				l.Warn(gctx, "submit failed",
					logger.String("player_id", req.PlayerID),
					logger.String("game_id", req.GameID),
					logger.Error(err))
			}
			return nil
		})
	}
	err := g.Wait()
	if stats.Scored > 0 {
		stats.MeanScore = float64(stats.scoreSum) / float64(stats.Scored)
	}
	l.Info(ctx, "replay finished",
		logger.Int("submitted", stats.Submitted),
		logger.Int("scored", stats.Scored),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
	)
	return stats, err
}

func submit(ctx context.Context, client *http.Client, url string, req types.AttemptRequest) (int, *types.AttemptResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(hreq)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil, nil
	}
	var out types.AttemptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, &out, nil
}

func (s *Stats) record(status int, resp *types.AttemptResponse, err error) {
	s.Submitted++
	if status != 0 {
		s.ByStatus[fmt.Sprint(status)]++
	}
	switch {
	case err != nil:
		s.Failed++
	case status == http.StatusOK:
		s.Scored++
		s.scoreSum += resp.FinalScore
		if resp.ReviewRequired {
			s.Review++
		}
	case status == http.StatusConflict:
		s.Duplicate++
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		s.Rejected++
	default:
		s.Failed++
	}
}
