// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat snake_case, shared by the YAML file and SKILLGRADE_ env vars.
// - New returns a Config populated with defaults; Load layers file and env on top.
package config

import (
	"runtime"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFile enables a rotating JSON log file when non-empty.
	LogFile string `koanf:"log_file"`
	LogJSON bool   `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory background event queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of background event workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize caps the number of in-flight attempt keys tracked at once.
	DedupeSize  int `koanf:"dedupe_size"`
	DedupeTTLMS int `koanf:"dedupe_ttl_ms"`

	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`
	MySQLDSN    string `koanf:"mysql_dsn"`
	// CorpusLimit caps reference answers per game in the memory store.
	CorpusLimit int `koanf:"corpus_limit"`

	// RedisAddr enables the Redis stream analytics sink when non-empty.
	RedisAddr   string `koanf:"redis_addr"`
	RedisStream string `koanf:"redis_stream"`

	// GamesFile points at the YAML game registry.
	GamesFile string `koanf:"games_file"`

	// GeminiAPIKey enables generative scoring and embeddings when non-empty.
	GeminiAPIKey string `koanf:"gemini_api_key"`
	// ModelTiers lists generative models in fallback order.
	ModelTiers     []string `koanf:"model_tiers"`
	ModelTimeoutMS int      `koanf:"model_timeout_ms"`
	// ModelRPS and ModelBurst size each tier's quota limiter.
	ModelRPS   float64 `koanf:"model_rps"`
	ModelBurst int     `koanf:"model_burst"`

	EmbeddingModel     string `koanf:"embedding_model"`
	EmbeddingTimeoutMS int    `koanf:"embedding_timeout_ms"`

	// Scoring policy.
	HintPenaltyPoints       int     `koanf:"hint_penalty_points"`
	MaxHints                int     `koanf:"max_hints"`
	ExactCopyThreshold      float64 `koanf:"exact_copy_threshold"`
	HighSimilarityThreshold float64 `koanf:"high_similarity_threshold"`
	HighRiskMultiplier      float64 `koanf:"high_risk_multiplier"`
	ExactCopyCap            int     `koanf:"exact_copy_cap"`

	WeightAI               float64 `koanf:"weight_ai"`
	WeightValidation       float64 `koanf:"weight_validation"`
	WeightEmbedding        float64 `koanf:"weight_embedding"`
	ConfidenceSpreadFactor float64 `koanf:"confidence_spread_factor"`
	NoAICoverage           float64 `koanf:"no_ai_coverage"`

	CorpusMinSamples     int     `koanf:"corpus_min_samples"`
	CorpusBaseline       float64 `koanf:"corpus_baseline"`
	CorpusScale          float64 `koanf:"corpus_scale"`
	CorpusMaxAdjustment  float64 `koanf:"corpus_max_adjustment"`
	CorpusWeightCeiling  float64 `koanf:"corpus_weight_ceiling"`
	CorpusHalfSaturation float64 `koanf:"corpus_half_saturation"`
	CorpusPlayerWeight   float64 `koanf:"corpus_player_weight"`

	ReviewConfidenceThreshold int `koanf:"review_confidence_threshold"`
	CurationMinScore          int `koanf:"curation_min_score"`

	TracingEnabled  bool   `koanf:"tracing_enabled"`
	TracingEndpoint string `koanf:"tracing_endpoint"`
	ServiceName     string `koanf:"service_name"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		EventQueueSize: 10_000,
		WorkerCount:    runtime.NumCPU() * 2,
		DedupeSize:     100_000,
		DedupeTTLMS:    120_000,

		StoreDriver: StoreMemory,
		SQLitePath:  "skillgrade.db",
		CorpusLimit: 500,
		RedisStream: "skillgrade:analytics",

		ModelTiers:         []string{"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"},
		ModelTimeoutMS:     20_000,
		ModelRPS:           2,
		ModelBurst:         4,
		EmbeddingModel:     "gemini-embedding-001",
		EmbeddingTimeoutMS: 8_000,

		HintPenaltyPoints:       3,
		MaxHints:                3,
		ExactCopyThreshold:      0.95,
		HighSimilarityThreshold: 0.85,
		HighRiskMultiplier:      0.85,
		ExactCopyCap:            50,

		WeightAI:               0.5,
		WeightValidation:       0.3,
		WeightEmbedding:        0.2,
		ConfidenceSpreadFactor: 2,
		NoAICoverage:           0.6,

		CorpusMinSamples:     3,
		CorpusBaseline:       0.75,
		CorpusScale:          40,
		CorpusMaxAdjustment:  8,
		CorpusWeightCeiling:  1,
		CorpusHalfSaturation: 5,
		CorpusPlayerWeight:   0.25,

		ReviewConfidenceThreshold: 50,
		CurationMinScore:          80,

		TracingEndpoint: "http://localhost:14268/api/traces",
		ServiceName:     "skillgrade",
	}
}
