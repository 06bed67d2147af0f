// Package service assembles the grading pipeline, its background workers, and
// the stores behind them from configuration.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/okian/skillgrade/internal/adapters/analytics"
	"github.com/okian/skillgrade/internal/adapters/gemini"
	"github.com/okian/skillgrade/internal/adapters/http/api"
	eventqueue "github.com/okian/skillgrade/internal/adapters/mq/queue"
	workerpool "github.com/okian/skillgrade/internal/adapters/mq/worker"
	"github.com/okian/skillgrade/internal/adapters/registry"
	"github.com/okian/skillgrade/internal/adapters/repository"
	"github.com/okian/skillgrade/internal/adapters/repository/mysql"
	"github.com/okian/skillgrade/internal/adapters/repository/sqlite"
	"github.com/okian/skillgrade/internal/config"
	"github.com/okian/skillgrade/internal/domain/curation"
	"github.com/okian/skillgrade/internal/domain/dedupe"
	"github.com/okian/skillgrade/internal/domain/generative"
	"github.com/okian/skillgrade/internal/domain/grading"
	"github.com/okian/skillgrade/internal/domain/integrity"
	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/internal/domain/review"
	"github.com/okian/skillgrade/internal/domain/scoring"
	"github.com/okian/skillgrade/internal/domain/similarity"
	"github.com/okian/skillgrade/pkg/logger"
	"github.com/okian/skillgrade/pkg/metrics"
	"github.com/okian/skillgrade/pkg/tracing"
)

const (
	redisStreamMaxLen = 100_000
	shutdownTimeout   = 30 * time.Second
)

// ErrNotStarted is returned by operations that need a running service.
var ErrNotStarted = errors.New("service not started")

// Service owns every long-lived component of the scoring pipeline.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	store      repository.Store
	games      *registry.Registry
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	grader     *grading.Grader
	engine     *similarity.Engine

	scorer   grading.ModelScorer
	embedder similarity.Embedder

	tracer *sdktrace.TracerProvider
	redis  *redis.Client

	storeOpener func(context.Context) (repository.Store, error)

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the configured store driver.
func WithStore(store repository.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithRegistry replaces the games file.
func WithRegistry(games *registry.Registry) Option {
	return func(s *Service) { s.games = games }
}

// WithModelScorer replaces the generative tier chain.
func WithModelScorer(scorer grading.ModelScorer) Option {
	return func(s *Service) { s.scorer = scorer }
}

// WithEmbedder replaces the embedding provider.
func WithEmbedder(e similarity.Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// New constructs a Service. A nil cfg uses defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts every component. On failure, everything Start opened
// is released again.
func (s *Service) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	cfg := s.cfg
	s.logger.Info(ctx, "starting skillgrade service...")

	var release []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(release) - 1; i >= 0; i-- {
			release[i]()
		}
		s.logger.Error(ctx, "skillgrade service failed to start", logger.Error(err))
	}()

	if cfg.TracingEnabled {
		tp, err := tracing.Init(cfg.ServiceName, cfg.TracingEndpoint)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		s.tracer = tp
		release = append(release, func() {
			_ = tp.Shutdown(context.WithoutCancel(ctx))
			s.tracer = nil
		})
	}

	if s.store == nil {
		open := s.openStore
		if s.storeOpener != nil {
			open = s.storeOpener
		}
		store, err := open(ctx)
		if err != nil {
			return err
		}
		s.store = store
		release = append(release, func() {
			_ = store.Close()
			s.store = nil
		})
	}

	if s.games == nil {
		games, err := s.loadRegistry()
		if err != nil {
			return err
		}
		s.games = games
	}

	if err := s.connectModels(ctx); err != nil {
		return err
	}
	s.engine = similarity.NewEngine(s.embedder,
		similarity.WithTimeout(time.Duration(cfg.EmbeddingTimeoutMS)*time.Millisecond),
		similarity.WithLogger(s.logger.Named("similarity")),
	)

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(cfg.DedupeSize),
		dedupe.WithTTL(time.Duration(cfg.DedupeTTLMS)*time.Millisecond),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(cfg.EventQueueSize))
	s.workerPool = workerpool.NewPool(cfg.WorkerCount, s.eventQueue,
		workerpool.WithName("events"),
		workerpool.WithLogger(s.logger.Named("worker")),
	)
	if err := s.registerHandlers(ctx); err != nil {
		return err
	}
	// From here on nothing fails; Stop owns every resource.

	opts := []grading.Option{
		grading.WithEmbedder(s.engine),
		grading.WithCorpus(similarity.NewCorpusScorer(s.store, corpusPolicy(cfg), s.logger.Named("corpus"))),
		grading.WithPublisher(s.eventQueue),
		grading.WithDeduper(s.deduper),
		grading.WithLogger(s.logger.Named("grading")),
		grading.WithEnsemblePolicy(ensemblePolicy(cfg)),
		grading.WithAdjustmentPolicy(adjustmentPolicy(cfg)),
		grading.WithIntegrityPolicy(integrityPolicy(cfg)),
		grading.WithRouter(review.NewRouter(cfg.ReviewConfidenceThreshold)),
	}
	if s.scorer != nil {
		opts = append(opts, grading.WithModelScorer(s.scorer))
	}
	s.grader = grading.New(s.games, s.store, opts...)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "skillgrade service started",
		logger.String("store", cfg.StoreDriver),
		logger.Int("games", s.games.Len()),
		logger.Bool("generative", s.scorer != nil),
		logger.Bool("embeddings", s.embedder != nil),
		logger.Int("workers", cfg.WorkerCount),
		logger.Int("queueSize", cfg.EventQueueSize),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	l := s.logger.Named("store")
	switch s.cfg.StoreDriver {
	case config.StoreSQLite:
		return sqlite.Open(ctx, s.cfg.SQLitePath, l)
	case config.StoreMySQL:
		return mysql.Open(ctx, s.cfg.MySQLDSN, l)
	default:
		return repository.NewMemoryStore(repository.WithCorpusLimit(s.cfg.CorpusLimit)), nil
	}
}

func (s *Service) loadRegistry() (*registry.Registry, error) {
	if s.cfg.GamesFile == "" {
		s.logger.Warn(context.Background(), "no games_file configured; registry is empty")
		return registry.New(nil)
	}
	return registry.Load(s.cfg.GamesFile)
}

// connectModels builds the Gemini-backed scorer and embedder unless both were injected.
func (s *Service) connectModels(ctx context.Context) error {
	cfg := s.cfg
	if cfg.GeminiAPIKey == "" || (s.scorer != nil && s.embedder != nil) {
		return nil
	}
	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}
	if s.scorer == nil && len(cfg.ModelTiers) > 0 {
		tiers := make([]generative.Tier, 0, len(cfg.ModelTiers))
		for _, name := range cfg.ModelTiers {
			tiers = append(tiers, generative.Tier{
				Generator: gemini.NewGenerator(client, name),
				Timeout:   time.Duration(cfg.ModelTimeoutMS) * time.Millisecond,
				Limiter:   rate.NewLimiter(rate.Limit(cfg.ModelRPS), cfg.ModelBurst),
			})
		}
		chain, err := generative.NewChain(tiers, generative.WithLogger(s.logger.Named("generative")))
		if err != nil {
			return err
		}
		s.scorer = chain
	}
	if s.embedder == nil && cfg.EmbeddingModel != "" {
		s.embedder = gemini.NewEmbedder(client, cfg.EmbeddingModel)
	}
	return nil
}

func (s *Service) registerHandlers(ctx context.Context) error {
	s.workerPool.Register(model.EventAttemptScored, analytics.NewLogSink(s.logger.Named("analytics")))
	if s.cfg.RedisAddr != "" {
		client, err := analytics.NewRedisClient(ctx, s.cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		s.redis = client
		s.workerPool.Register(model.EventAttemptScored,
			analytics.NewRedisStreamSink(client, s.cfg.RedisStream, redisStreamMaxLen))
	}
	s.workerPool.Register(model.EventCurationCandidate,
		curation.New(s.store, s.cfg.CurationMinScore, s.logger.Named("curation")))
	s.workerPool.Register(model.EventReviewEscalation,
		review.NewEnqueuer(s.store, s.logger.Named("review")))
	return nil
}

// Stop drains the worker pool and releases every connection.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping skillgrade service...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.workerPool.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("workers: %w", err))
	}
	s.cancel()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if s.tracer != nil {
		if err := s.tracer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracing: %w", err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "skillgrade service stopped")
	return errors.Join(errs...)
}

// Grade scores one submission.
func (s *Service) Grade(ctx context.Context, req grading.Request) (grading.Result, error) {
	s.mu.RLock()
	g := s.grader
	s.mu.RUnlock()
	if g == nil {
		return grading.Result{}, ErrNotStarted
	}
	return g.Grade(ctx, req)
}

// Get returns the stored attempt for a (player, game) pair.
func (s *Service) Get(ctx context.Context, playerID, gameID string) (model.AttemptRecord, error) {
	store, err := s.running()
	if err != nil {
		return model.AttemptRecord{}, err
	}
	return store.Get(ctx, playerID, gameID)
}

// Pending lists review escalations, oldest first.
func (s *Service) Pending(ctx context.Context, limit int) ([]model.ReviewQueueItem, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	return store.Pending(ctx, limit)
}

func (s *Service) running() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// seedNamespace derives stable reference IDs for seed answers.
var seedNamespace = uuid.MustParse("6f1c2a9e-3b7d-4c55-9a1e-0d2f7b8c4e61")

// SeedID is the reference ID a seed answer is stored under. It depends only on
// the game and the seed text, so reseeding finds entries it wrote before.
func SeedID(gameID, text string) string {
	return uuid.NewSHA1(seedNamespace, []byte(gameID+"\x00"+text)).String()
}

// Seed embeds every registry seed answer into the reference corpus as a
// verified seed entry. Seeds already present are skipped, so running it again
// never grows the corpus. It returns the number of entries appended.
func (s *Service) Seed(ctx context.Context) (int, error) {
	store, err := s.running()
	if err != nil {
		return 0, err
	}
	var (
		n, skipped int
		errs       []error
	)
	for _, game := range s.games.Games() {
		if len(game.Seeds) == 0 {
			continue
		}
		existing, err := store.QueryByGame(ctx, game.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", game.ID, err))
			continue
		}
		seen := make(map[string]bool, len(existing))
		for _, ref := range existing {
			seen[ref.ID] = true
		}
		for i, seed := range game.Seeds {
			id := SeedID(game.ID, seed.Text)
			if seen[id] {
				skipped++
				continue
			}
			emb, err := s.engine.Embed(ctx, seed.Text)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s seed %d: %w", game.ID, i, err))
				continue
			}
			ref := model.ReferenceAnswer{
				ID:         id,
				GameID:     game.ID,
				Embedding:  emb,
				Score:      seed.Score,
				SourceType: model.SourceSeed,
				Verified:   true,
				CreatedAt:  time.Now().UTC(),
			}
			if err := store.Append(ctx, ref); err != nil {
				errs = append(errs, fmt.Errorf("%s seed %d: %w", game.ID, i, err))
				continue
			}
			seen[id] = true
			n++
		}
	}
	s.logger.Info(ctx, "seeded reference corpus",
		logger.Int("appended", n),
		logger.Int("skipped", skipped),
		logger.Int("failed", len(errs)),
	)
	return n, errors.Join(errs...)
}

// Games returns the loaded registry.
func (s *Service) Games() *registry.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games
}

// Handler returns the HTTP API bound to this service.
func (s *Service) Handler() http.Handler {
	return api.NewServer(api.Dependencies{
		Grader:   s,
		Attempts: s,
		Reviews:  s,
		Stats:    s,
		Logger:   s.logger,
	}).Routes()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"storeDriver": s.cfg.StoreDriver,
		"workerCount": s.cfg.WorkerCount,
		"queueSize":   s.cfg.EventQueueSize,
		"generative":  s.scorer != nil,
		"embeddings":  s.embedder != nil,
	}
	if s.started {
		queueLen := s.eventQueue.Len()
		stats["queueLength"] = queueLen
		stats["inflight"] = s.deduper.Size()
		stats["games"] = s.games.Len()
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}

func ensemblePolicy(cfg *config.Config) scoring.EnsemblePolicy {
	return scoring.EnsemblePolicy{
		WeightAI:         cfg.WeightAI,
		WeightValidation: cfg.WeightValidation,
		WeightEmbedding:  cfg.WeightEmbedding,
		SpreadFactor:     cfg.ConfidenceSpreadFactor,
		NoAICoverage:     cfg.NoAICoverage,
	}
}

func adjustmentPolicy(cfg *config.Config) scoring.AdjustmentPolicy {
	return scoring.AdjustmentPolicy{
		ExactCopyCap:       cfg.ExactCopyCap,
		HighRiskMultiplier: cfg.HighRiskMultiplier,
		HintPenaltyPoints:  cfg.HintPenaltyPoints,
		MaxHints:           cfg.MaxHints,
	}
}

func integrityPolicy(cfg *config.Config) integrity.Policy {
	p := integrity.DefaultPolicy()
	p.ExactCopyThreshold = cfg.ExactCopyThreshold
	p.HighSimilarityThreshold = cfg.HighSimilarityThreshold
	return p
}

func corpusPolicy(cfg *config.Config) similarity.CorpusPolicy {
	return similarity.CorpusPolicy{
		MinSamples:     cfg.CorpusMinSamples,
		Baseline:       cfg.CorpusBaseline,
		Scale:          cfg.CorpusScale,
		MaxAdjustment:  cfg.CorpusMaxAdjustment,
		WeightCeiling:  cfg.CorpusWeightCeiling,
		HalfSaturation: cfg.CorpusHalfSaturation,
		PlayerWeight:   cfg.CorpusPlayerWeight,
	}
}
