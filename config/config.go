package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/services"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "ENGINE_"
	envConfigFile = "ENGINE_CONFIG"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type KFactorTier struct {
	BelowMatches int `koanf:"below_matches"`
	K            int `koanf:"k"`
}

// Config holds every tunable of the server.
type Config struct {
	ServerPort     int      `koanf:"server_port"`
	LogLevel       string   `koanf:"log_level"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	JWTSecretKey   string   `koanf:"jwt_secret"`

	StoreDriver    string `koanf:"store_driver"`
	DatabaseURL    string `koanf:"database_url"`
	MigrateOnStart bool   `koanf:"migrate_on_start"`

	TxMaxAttempts   int `koanf:"tx_max_attempts"`
	TxBaseBackoffMS int `koanf:"tx_base_backoff_ms"`

	PointsForWin  int           `koanf:"points_for_win"`
	PointsForLoss int           `koanf:"points_for_loss"`
	PlayoffMode   string        `koanf:"playoff_mode"`
	InitialRating int           `koanf:"initial_rating"`
	KFactorTiers  []KFactorTier `koanf:"k_factor_tiers"`

	R2AccountID       string `koanf:"r2_account_id"`
	R2AccessKeyID     string `koanf:"r2_access_key_id"`
	R2SecretAccessKey string `koanf:"r2_secret_access_key"`
	R2BucketName      string `koanf:"r2_bucket_name"`
	R2PublicBaseURL   string `koanf:"r2_public_base_url"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	engine := services.DefaultEngineConfig()
	tiers := make([]KFactorTier, len(engine.KFactorTiers))
	for i, t := range engine.KFactorTiers {
		tiers[i] = KFactorTier{BelowMatches: t.BelowMatches, K: t.K}
	}
	return &Config{
		ServerPort:      8080,
		LogLevel:        "info",
		StoreDriver:     StoreMemory,
		MigrateOnStart:  true,
		TxMaxAttempts:   5,
		TxBaseBackoffMS: 10,
		PointsForWin:    engine.PointsForWin,
		PointsForLoss:   engine.PointsForLoss,
		PlayoffMode:     string(engine.PlayoffMode),
		InitialRating:   engine.InitialRating,
		KFactorTiers:    tiers,
	}
}

// Load layers the configuration, lowest precedence first:
//  1. Default()
//  2. the YAML file named by ENGINE_CONFIG, if set
//  3. ENGINE_* environment variables, after loading .env
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	k.Delete("config")
	if raw, ok := k.Get("allowed_origins").(string); ok && raw != "" {
		if err := k.Set("allowed_origins", strings.Split(raw, ",")); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if k.Exists("k_factor_tiers") {
		cfg.KFactorTiers = nil
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.JWTSecretKey == "" {
		return errors.New("jwt_secret is not set")
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store_driver %q", c.StoreDriver)
	}
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("tx_max_attempts must be positive, got %d", c.TxMaxAttempts)
	}
	if !models.PlayoffMode(c.PlayoffMode).Valid() {
		return fmt.Errorf("unknown playoff_mode %q", c.PlayoffMode)
	}
	if c.PointsForLoss > c.PointsForWin {
		return errors.New("points_for_loss cannot exceed points_for_win")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// ArchiveEnabled reports whether results archiving to R2 is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func (c *Config) Engine() services.EngineConfig {
	tiers := make([]models.KFactorTier, len(c.KFactorTiers))
	for i, t := range c.KFactorTiers {
		tiers[i] = models.KFactorTier{BelowMatches: t.BelowMatches, K: t.K}
	}
	return services.EngineConfig{
		PointsForWin:  c.PointsForWin,
		PointsForLoss: c.PointsForLoss,
		PlayoffMode:   models.PlayoffMode(c.PlayoffMode),
		KFactorTiers:  tiers,
		InitialRating: c.InitialRating,
	}
}

func (c *Config) Coordinator() services.CoordinatorConfig {
	return services.CoordinatorConfig{
		MaxAttempts: c.TxMaxAttempts,
		BaseBackoff: time.Duration(c.TxBaseBackoffMS) * time.Millisecond,
	}
}
