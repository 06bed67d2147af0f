package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SKILLGRADE_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SKILLGRADE_CONFIG is set
//  3. env (prefix SKILLGRADE_), including a .env file in the working directory
//
// Variables already set in the process environment win over .env entries.
func Load(_ context.Context) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SKILLGRADE_QUEUE_SIZE -> queue_size (flat keys)
	envProvider := env.ProviderWithValue(EnvPrefix, ".", envValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// maxExactCopyCap is the highest score an exact copy may ever receive.
const maxExactCopyCap = 50

// listKeys are comma-separated when set through the environment.
var listKeys = map[string]bool{
	"model_tiers": true,
}

func envValue(key, value string) (string, any) {
	key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
	if !listKeys[key] {
		return key, value
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return key, out
}

// Validate checks invariants the scoring pipeline depends on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite && c.StoreDriver != StoreMySQL:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreMySQL && c.MySQLDSN == "":
		return fmt.Errorf("%w: mysql_dsn required for mysql store", ErrInvalidConfig)
	case c.HintPenaltyPoints < 0 || c.MaxHints < 0:
		return fmt.Errorf("%w: hint settings must be non-negative", ErrInvalidConfig)
	case c.ExactCopyThreshold <= 0 || c.ExactCopyThreshold > 1:
		return fmt.Errorf("%w: exact_copy_threshold must be in (0,1]", ErrInvalidConfig)
	case c.HighSimilarityThreshold <= 0 || c.HighSimilarityThreshold > c.ExactCopyThreshold:
		return fmt.Errorf("%w: high_similarity_threshold must be in (0,exact_copy_threshold]", ErrInvalidConfig)
	case c.ExactCopyCap < 0 || c.ExactCopyCap > maxExactCopyCap:
		return fmt.Errorf("%w: exact_copy_cap must be in [0,%d]", ErrInvalidConfig, maxExactCopyCap)
	case c.HighRiskMultiplier < 0 || c.HighRiskMultiplier > 1:
		return fmt.Errorf("%w: high_risk_multiplier must be in [0,1]", ErrInvalidConfig)
	case c.WeightAI < 0 || c.WeightValidation < 0 || c.WeightEmbedding < 0:
		return fmt.Errorf("%w: ensemble weights must be non-negative", ErrInvalidConfig)
	case c.WeightValidation == 0:
		return fmt.Errorf("%w: weight_validation must be positive", ErrInvalidConfig)
	case c.CorpusMinSamples < 1:
		return fmt.Errorf("%w: corpus_min_samples must be at least 1", ErrInvalidConfig)
	case c.CurationMinScore < 0 || c.CurationMinScore > 100:
		return fmt.Errorf("%w: curation_min_score must be in [0,100]", ErrInvalidConfig)
	}
	return nil
}
