package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "FEEDRANKER_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	embeddingURLEnv  = "EMBEDDING_API_URL"
	embeddingKeyEnv  = "EMBEDDING_API_KEY"
	logLevelEnv      = "FEEDRANKER_LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig describes the feedback store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// EmbeddingConfig defines how to contact the embedding similarity provider.
type EmbeddingConfig struct {
	BaseURL        string `yaml:"baseUrl"`
	APIKey         string `yaml:"apiKey"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	BatchSize      int    `yaml:"batchSize"`
}

// Timeout resolves the configured provider timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// RankingConfig groups the engine tunables shared by all users.
type RankingConfig struct {
	OnboardingVoteThreshold int      `yaml:"onboardingVoteThreshold"`
	TargetMean              float64  `yaml:"targetMean"`
	TargetStdDev            float64  `yaml:"targetStdDev"`
	MaxFeedSize             int      `yaml:"maxFeedSize"`
	SuppressionWindowHours  int      `yaml:"suppressionWindowHours"`
	HighVolumeSources       []string `yaml:"highVolumeSources"`
}

// SuppressionWindow resolves the rolling window for impression suppression.
func (r RankingConfig) SuppressionWindow() time.Duration {
	if r.SuppressionWindowHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(r.SuppressionWindowHours) * time.Hour
}

// SchedulerConfig defines when the weight backfill should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(embeddingURLEnv); v != "" {
		c.Embedding.BaseURL = v
	}

	if v := os.Getenv(embeddingKeyEnv); v != "" {
		c.Embedding.APIKey = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Embedding.BaseURL != "" {
		base.Embedding.BaseURL = override.Embedding.BaseURL
	}
	if override.Embedding.APIKey != "" {
		base.Embedding.APIKey = override.Embedding.APIKey
	}
	if override.Embedding.TimeoutSeconds > 0 {
		base.Embedding.TimeoutSeconds = override.Embedding.TimeoutSeconds
	}
	if override.Embedding.BatchSize > 0 {
		base.Embedding.BatchSize = override.Embedding.BatchSize
	}

	if override.Ranking.OnboardingVoteThreshold > 0 {
		base.Ranking.OnboardingVoteThreshold = override.Ranking.OnboardingVoteThreshold
	}
	if override.Ranking.TargetMean > 0 {
		base.Ranking.TargetMean = override.Ranking.TargetMean
	}
	if override.Ranking.TargetStdDev > 0 {
		base.Ranking.TargetStdDev = override.Ranking.TargetStdDev
	}
	if override.Ranking.MaxFeedSize > 0 {
		base.Ranking.MaxFeedSize = override.Ranking.MaxFeedSize
	}
	if override.Ranking.SuppressionWindowHours > 0 {
		base.Ranking.SuppressionWindowHours = override.Ranking.SuppressionWindowHours
	}
	if len(override.Ranking.HighVolumeSources) > 0 {
		base.Ranking.HighVolumeSources = override.Ranking.HighVolumeSources
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database:  DatabaseConfig{Driver: "memory"},
		Embedding: EmbeddingConfig{TimeoutSeconds: 5, BatchSize: 20},
		Ranking: RankingConfig{
			OnboardingVoteThreshold: 10,
			TargetMean:              50,
			TargetStdDev:            20,
			MaxFeedSize:             100,
			SuppressionWindowHours:  72,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 4 * * *", Timezone: defaultTimezone, location: tz},
		Logging:   LoggingConfig{Level: "info"},
	}
}
