// Package config assembles runtime configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"

	"github.com/clinical-rosetta/internal/db"
	"github.com/clinical-rosetta/internal/match"
	"github.com/clinical-rosetta/internal/symspell"
)

// Learning store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the complete runtime configuration
type Config struct {
	Database db.Config

	LearningBackend string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisPrefix     string

	// Catalog is a YAML/JSON file, a CSV directory, or "postgres"
	Catalog string

	Abbreviations      string
	WatchAbbreviations bool

	LogLevel  string
	LogFormat string
	Debug     bool

	WebHost string
	WebPort int

	Engine   match.Settings
	SymSpell symspell.Config
}

// Load reads the .env file if present and builds a validated Config
func Load() (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}
	return FromEnv()
}

// FromEnv builds a validated Config from variables already loaded
func FromEnv() (*Config, error) {
	defaults := match.DefaultSettings()
	spell := symspell.DefaultConfig()

	cfg := &Config{
		Database: db.Config{
			Host:         GetEnv("PGHOST", "localhost"),
			Port:         GetEnv("PGPORT", "5432"),
			User:         GetEnv("PGUSER", "postgres"),
			Password:     GetEnv("PGPASSWORD", ""),
			Database:     GetEnv("PGDATABASE", "rosetta"),
			SSLMode:      GetEnv("PGSSLMODE", "disable"),
			MaxOpenConns: GetEnvInt("PGMAXCONNS", 20),
			MaxIdleConns: GetEnvInt("PGMAXIDLE", 10),
		},

		LearningBackend: strings.ToLower(GetEnv("ROSETTA_LEARNING_BACKEND", BackendMemory)),
		RedisAddr:       GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   GetEnv("REDIS_PASSWORD", ""),
		RedisDB:         GetEnvInt("REDIS_DB", 0),
		RedisPrefix:     GetEnv("ROSETTA_REDIS_PREFIX", ""),

		Catalog:            GetEnv("ROSETTA_CATALOG", "data/catalog.yaml"),
		Abbreviations:      GetEnv("ROSETTA_ABBREVIATIONS", ""),
		WatchAbbreviations: GetEnvBool("ROSETTA_WATCH_ABBREVIATIONS", false),

		LogLevel:  GetEnv("ROSETTA_LOG_LEVEL", "info"),
		LogFormat: GetEnv("ROSETTA_LOG_FORMAT", "console"),
		Debug:     GetEnvBool("ROSETTA_DEBUG", false),

		WebHost: GetEnv("ROSETTA_WEB_HOST", "0.0.0.0"),
		WebPort: GetEnvInt("ROSETTA_WEB_PORT", 8080),

		Engine: match.Settings{
			TopK:             GetEnvInt("ROSETTA_TOP_K", defaults.TopK),
			CuratedScore:     GetEnvFloat("ROSETTA_CURATED_SCORE", defaults.CuratedScore),
			FuzzyCalibration: GetEnvFloat("ROSETTA_FUZZY_CALIBRATION", defaults.FuzzyCalibration),
			TieMargin:        GetEnvFloat("ROSETTA_TIE_MARGIN", defaults.TieMargin),
			AmbiguityPenalty: GetEnvFloat("ROSETTA_AMBIGUITY_PENALTY", defaults.AmbiguityPenalty),
			MinTokenOverlap:  GetEnvFloat("ROSETTA_MIN_TOKEN_OVERLAP", defaults.MinTokenOverlap),
			MinSimilarity:    GetEnvFloat("ROSETTA_MIN_SIMILARITY", defaults.MinSimilarity),
			MaxPrefilter:     GetEnvInt("ROSETTA_MAX_PREFILTER", defaults.MaxPrefilter),
			MaxExpansions:    GetEnvInt("ROSETTA_MAX_EXPANSIONS", defaults.MaxExpansions),
			BatchWorkers:     GetEnvInt("ROSETTA_BATCH_WORKERS", defaults.BatchWorkers),
		},

		SymSpell: symspell.Config{
			Enabled:         GetEnvBool("SYMSPELL_ENABLED", spell.Enabled),
			MaxEditDistance: GetEnvInt("SYMSPELL_MAX_EDIT_DISTANCE", spell.MaxEditDistance),
			MinTermLength:   GetEnvInt("SYMSPELL_MIN_TERM_LENGTH", spell.MinTermLength),
			MinFrequency:    int64(GetEnvInt("SYMSPELL_MIN_FREQUENCY", int(spell.MinFrequency))),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unusable settings
func (c *Config) Validate() error {
	switch c.LearningBackend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("unknown learning backend %q (want memory, postgres or redis)", c.LearningBackend)
	}
	if c.WebPort <= 0 || c.WebPort > 65535 {
		return fmt.Errorf("invalid web port %d", c.WebPort)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("invalid engine settings: %w", err)
	}
	return nil
}

// NeedsDatabase reports whether any configured component reads PostgreSQL
func (c *Config) NeedsDatabase() bool {
	return c.LearningBackend == BackendPostgres || strings.TrimSpace(c.Catalog) == "postgres"
}
