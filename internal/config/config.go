package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
)

// DefaultDatabasePath is where the database lives unless configured otherwise.
const DefaultDatabasePath = "$HOME/.local/share/cofre/cofre.db"

// Config is the typed application configuration.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Engine   EngineConfig
	Learning LearningConfig
	History  HistoryConfig
	Import   ImportConfig
	Server   ServerConfig
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path        string
	BusyRetries int
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string
	Format string
}

// EngineConfig configures the categorization cascade.
type EngineConfig struct {
	CacheTTL     time.Duration
	StrongTokens int
}

// LearningConfig configures the feedback pipeline.
type LearningConfig struct {
	ConflictPolicy model.ConflictPolicy
	SeedConfidence float64
}

// HistoryConfig configures the history suggester.
type HistoryConfig struct {
	Window time.Duration
}

// ImportConfig configures transaction import.
type ImportConfig struct {
	MinConfidence float64
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.busy_retries", 3)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("engine.cache_ttl", 5*time.Minute)
	v.SetDefault("engine.strong_tokens", 2)
	v.SetDefault("learning.conflict_policy", string(model.ConflictKeep))
	v.SetDefault("learning.seed_confidence", model.DefaultRuleSeedConfidence)
	v.SetDefault("history.window", 180*24*time.Hour)
	v.SetDefault("import.min_confidence", 0.7)
	v.SetDefault("server.address", "127.0.0.1:8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
}

// Load builds a Config from v, filling defaults and validating the result.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	policy, err := model.ParseConflictPolicy(v.GetString("learning.conflict_policy"))
	if err != nil {
		return nil, fmt.Errorf("learning.conflict_policy: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path:        ExpandPath(v.GetString("database.path")),
			BusyRetries: v.GetInt("database.busy_retries"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Engine: EngineConfig{
			CacheTTL:     v.GetDuration("engine.cache_ttl"),
			StrongTokens: v.GetInt("engine.strong_tokens"),
		},
		Learning: LearningConfig{
			ConflictPolicy: policy,
			SeedConfidence: v.GetFloat64("learning.seed_confidence"),
		},
		History: HistoryConfig{
			Window: v.GetDuration("history.window"),
		},
		Import: ImportConfig{
			MinConfidence: v.GetFloat64("import.min_confidence"),
		},
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path must not be empty"))
	}
	if c.Database.BusyRetries < 1 {
		errs = append(errs, errors.New("database.busy_retries must be at least 1"))
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format: invalid log format: %s", c.Logging.Format))
	}
	if c.Engine.CacheTTL <= 0 {
		errs = append(errs, errors.New("engine.cache_ttl must be positive"))
	}
	if c.Engine.StrongTokens < 1 {
		errs = append(errs, errors.New("engine.strong_tokens must be at least 1"))
	}
	if c.Learning.SeedConfidence <= 0 || c.Learning.SeedConfidence > 1 {
		errs = append(errs, errors.New("learning.seed_confidence must be in (0, 1]"))
	}
	if c.History.Window <= 0 {
		errs = append(errs, errors.New("history.window must be positive"))
	}
	if c.Import.MinConfidence < 0 || c.Import.MinConfidence > 1 {
		errs = append(errs, errors.New("import.min_confidence must be in [0, 1]"))
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address must not be empty"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
