// Package config loads and validates the citegap service configuration.
package config

import (
	"fmt"
	"os"
	"time"
)

// Default service configuration values.
const (
	defaultServiceName    = "citegap"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8081
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

// Default database configuration values.
const (
	defaultDBHost         = "localhost"
	defaultDBPort         = 5432
	defaultDBUser         = "postgres"
	defaultDBName         = "citegap"
	defaultDBSSLMode      = "disable"
	defaultDBMaxConns     = 25
	defaultDBMaxIdleConns = 5
	defaultDBConnLifetime = time.Hour
)

// Default pipeline pacing and quota values.
const (
	defaultProbeDelay        = time.Second
	defaultProbeTimeout      = 45 * time.Second
	defaultAnalysisWindow    = 7
	defaultMinPriority       = 5
	defaultDailyMaxArticles  = 10
	defaultGenerationDelay   = 3 * time.Second
	defaultCrosspostBatch    = 20
	defaultCrosspostDelay    = 1500 * time.Millisecond
	defaultScheduleCron      = "0 6 * * *"
	defaultCompetitorExcerpt = 2000
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Product   ProductConfig   `yaml:"product"`
	Platforms PlatformsConfig `yaml:"platforms"`
	Probing   ProbingConfig   `yaml:"probing"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Generate  GenerateConfig  `yaml:"generate"`
	Crosspost CrosspostConfig `yaml:"crosspost"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
}

// ServiceConfig holds service identity and runtime settings.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"CITEGAP_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"    yaml:"debug"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `env:"POSTGRES_HOST"     yaml:"host"`
	Port            int           `env:"POSTGRES_PORT"     yaml:"port"`
	User            string        `env:"POSTGRES_USER"     yaml:"user"`
	Password        string        `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database        string        `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConnections  int           `yaml:"max_connections"`
	MaxIdleConns    int           `yaml:"max_idle_connections"`
	ConnMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// AuthConfig holds trigger authentication settings.
type AuthConfig struct {
	// SchedulerSecret authenticates the scheduled trigger and the manual
	// endpoints, presented as a bearer token or X-Cron-Secret header.
	SchedulerSecret string `env:"SCHEDULER_SECRET" yaml:"scheduler_secret"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// ProductConfig identifies the product being tracked and its competitors.
type ProductConfig struct {
	// Name is the canonical product name used in reports.
	Name string `yaml:"name"`
	// Aliases are alternative spellings that count as product mentions.
	Aliases []string `yaml:"aliases"`
	// Competitors are the tracked competitor names.
	Competitors []string `yaml:"competitors"`
}

// PlatformsConfig holds per-adapter AI platform credentials.
type PlatformsConfig struct {
	OpenAI     AdapterConfig `yaml:"openai"`
	Anthropic  AdapterConfig `yaml:"anthropic"`
	Perplexity AdapterConfig `yaml:"perplexity"`
}

// AdapterConfig holds credentials for one AI platform adapter.
// An adapter with an empty APIKey is treated as unavailable.
type AdapterConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// ProbingConfig paces and bounds citation probes.
type ProbingConfig struct {
	// Delay is the pause between consecutive external calls in a batch.
	Delay time.Duration `yaml:"delay"`
	// Timeout bounds a single platform completion call.
	Timeout time.Duration `yaml:"timeout"`
	// Queries is the explicit fallback list probed when the datastore has
	// no active tracked queries.
	Queries []string `yaml:"queries"`
}

// AnalysisConfig tunes the gap analyzer.
type AnalysisConfig struct {
	// WindowDays is the trailing citation window the analyzer scans.
	WindowDays int `yaml:"window_days"`
	// MinPriority is the minimum gap priority eligible for generation.
	MinPriority float64 `yaml:"min_priority"`
}

// GenerateConfig tunes content generation and publishing.
type GenerateConfig struct {
	// DailyMax caps articles published per calendar day.
	DailyMax int `yaml:"daily_max"`
	// Delay is the pause between consecutive generations in a run.
	Delay time.Duration `yaml:"delay"`
	// PublishURL is the site publish endpoint; empty disables publishing.
	PublishURL string `env:"PUBLISH_URL"   yaml:"publish_url"`
	// PublishToken authenticates against the publish endpoint.
	PublishToken string `env:"PUBLISH_TOKEN" yaml:"publish_token"`
	// CompetitorExcerptMax bounds the competitor page excerpt length.
	CompetitorExcerptMax int `yaml:"competitor_excerpt_max"`
}

// CrosspostConfig holds secondary distribution channel settings.
type CrosspostConfig struct {
	// BatchSize caps articles dispatched per channel per run.
	BatchSize int `yaml:"batch_size"`
	// Delay is the pause between consecutive pushes in a sweep.
	Delay    time.Duration  `yaml:"delay"`
	DevTo    DevToConfig    `yaml:"devto"`
	Hashnode HashnodeConfig `yaml:"hashnode"`
}

// DevToConfig holds dev.to credentials.
type DevToConfig struct {
	APIKey string `env:"DEVTO_API_KEY" yaml:"api_key"`
}

// HashnodeConfig holds hashnode credentials.
type HashnodeConfig struct {
	Token         string `env:"HASHNODE_TOKEN" yaml:"token"`
	PublicationID string `yaml:"publication_id"`
}

// ScheduleConfig controls the in-process cron trigger.
type ScheduleConfig struct {
	// Enabled starts an in-process cron when serving.
	Enabled bool `yaml:"enabled"`
	// Cron is a standard 5-field cron expression.
	Cron string `yaml:"cron"`
}

// Load loads configuration from a YAML file, applies defaults, then env overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if loadErr := load(path, &cfg); loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	setDefaults(&cfg)
	// Env always wins, including over defaults.
	applyEnvOverrides(&cfg)
	applyPlatformEnv(&cfg.Platforms)

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return &ValidationError{Field: "service.port", Message: "must be between 1 and 65535"}
	}

	if c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Message: "is required"}
	}

	if c.Database.Database == "" {
		return &ValidationError{Field: "database.database", Message: "is required"}
	}

	if c.Product.Name == "" {
		return &ValidationError{Field: "product.name", Message: "is required"}
	}

	if c.Auth.SchedulerSecret == "" {
		return &ValidationError{Field: "auth.scheduler_secret", Message: "is required"}
	}

	return nil
}

// applyPlatformEnv fills adapter credentials from the conventional env
// vars. AdapterConfig is shared across platforms, so these cannot be
// expressed as per-field env tags.
func applyPlatformEnv(p *PlatformsConfig) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		p.OpenAI.APIKey = key
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		p.Anthropic.APIKey = key
	}

	if key := os.Getenv("PERPLEXITY_API_KEY"); key != "" {
		p.Perplexity.APIKey = key
	}
}

// setDefaults applies default values to all configuration sections.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setLoggingDefaults(&cfg.Logging)
	setPipelineDefaults(cfg)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}

	if s.Version == "" {
		s.Version = defaultServiceVersion
	}

	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}

	if d.Port == 0 {
		d.Port = defaultDBPort
	}

	if d.User == "" {
		d.User = defaultDBUser
	}

	if d.Database == "" {
		d.Database = defaultDBName
	}

	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}

	if d.MaxConnections == 0 {
		d.MaxConnections = defaultDBMaxConns
	}

	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultDBMaxIdleConns
	}

	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = defaultDBConnLifetime
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}

	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}

func setPipelineDefaults(cfg *Config) {
	if cfg.Probing.Delay == 0 {
		cfg.Probing.Delay = defaultProbeDelay
	}

	if cfg.Probing.Timeout == 0 {
		cfg.Probing.Timeout = defaultProbeTimeout
	}

	if cfg.Analysis.WindowDays == 0 {
		cfg.Analysis.WindowDays = defaultAnalysisWindow
	}

	if cfg.Analysis.MinPriority == 0 {
		cfg.Analysis.MinPriority = defaultMinPriority
	}

	if cfg.Generate.DailyMax == 0 {
		cfg.Generate.DailyMax = defaultDailyMaxArticles
	}

	if cfg.Generate.Delay == 0 {
		cfg.Generate.Delay = defaultGenerationDelay
	}

	if cfg.Generate.CompetitorExcerptMax == 0 {
		cfg.Generate.CompetitorExcerptMax = defaultCompetitorExcerpt
	}

	if cfg.Crosspost.BatchSize == 0 {
		cfg.Crosspost.BatchSize = defaultCrosspostBatch
	}

	if cfg.Crosspost.Delay == 0 {
		cfg.Crosspost.Delay = defaultCrosspostDelay
	}

	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = defaultScheduleCron
	}
}
