// Package config loads application configuration via viper. Each section
// carries its own Validate/Normalize so misconfiguration fails at startup,
// not mid-run.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the alignment service.
type Config struct {
	General    GeneralConfig     `mapstructure:"general"`
	Server     ServerConfig      `mapstructure:"server"`
	Engine     EngineConfig      `mapstructure:"engine"`
	Lexicons   LexiconsConfig    `mapstructure:"lexicons"`
	Storage    StorageConfig     `mapstructure:"storage"`
	Scheduler  SchedulerConfig   `mapstructure:"scheduler"`
	Telemetry  TelemetryConfig   `mapstructure:"telemetry"`
	References []ReferenceConfig `mapstructure:"references"`
}

// ReferenceConfig anchors relative scoring for one axis: known member
// positions for coalition propagation and the two reference blocs for the
// vote scorer. Supplied here because the engine never infers them.
type ReferenceConfig struct {
	Axis    string             `mapstructure:"axis"`
	Anchors map[string]float64 `mapstructure:"anchors"`
	PoleA   []string           `mapstructure:"pole_a"`
	PoleB   []string           `mapstructure:"pole_b"`
}

// Validate checks anchor values are in range.
func (r ReferenceConfig) Validate() error {
	if strings.TrimSpace(r.Axis) == "" {
		return fmt.Errorf("references entry missing axis")
	}
	for id, v := range r.Anchors {
		if v < -1 || v > 1 {
			return fmt.Errorf("references[%s]: anchor %s value %v outside [-1, 1]", r.Axis, id, v)
		}
	}
	return nil
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// EngineConfig tunes the scoring engine.
type EngineConfig struct {
	Weights        SignalWeights     `mapstructure:"weights"`
	Labels         LabelThresholds   `mapstructure:"labels"`
	VoteEdgeWeight float64           `mapstructure:"vote_edge_weight"`
	Propagation    PropagationConfig `mapstructure:"propagation"`
	VoteSample     VoteSampleConfig  `mapstructure:"vote_sample"`
}

// SignalWeights is the configured per-signal weighting; must sum to 1.
type SignalWeights struct {
	Text      float64 `mapstructure:"text"`
	Coalition float64 `mapstructure:"coalition"`
	Vote      float64 `mapstructure:"vote"`
}

// LabelThresholds bands the aggregate value into ideology labels.
type LabelThresholds struct {
	Left  float64 `mapstructure:"left"`
	Right float64 `mapstructure:"right"`
}

// PropagationConfig bounds the coalition fixed-point iteration.
type PropagationConfig struct {
	Tolerance     float64 `mapstructure:"tolerance"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

// VoteSampleConfig tunes the insufficient-sample guard.
type VoteSampleConfig struct {
	MinSample        int `mapstructure:"min_sample"`
	SampleSaturation int `mapstructure:"sample_saturation"`
}

// Normalize applies engine defaults for unset values.
func (e EngineConfig) Normalize() EngineConfig {
	if e.Weights.Text == 0 && e.Weights.Coalition == 0 && e.Weights.Vote == 0 {
		e.Weights = SignalWeights{Text: 1.0 / 3, Coalition: 1.0 / 3, Vote: 1.0 / 3}
	}
	if e.Labels.Left == 0 && e.Labels.Right == 0 {
		e.Labels = LabelThresholds{Left: 0.3, Right: -0.3}
	}
	if e.VoteEdgeWeight <= 0 {
		e.VoteEdgeWeight = 1
	}
	if e.Propagation.Tolerance <= 0 {
		e.Propagation.Tolerance = 1e-4
	}
	if e.Propagation.MaxIterations <= 0 {
		e.Propagation.MaxIterations = 100
	}
	if e.VoteSample.MinSample <= 0 {
		e.VoteSample.MinSample = 5
	}
	if e.VoteSample.SampleSaturation <= 0 {
		e.VoteSample.SampleSaturation = 20
	}
	return e
}

// Validate checks engine settings.
func (e EngineConfig) Validate() error {
	sum := e.Weights.Text + e.Weights.Coalition + e.Weights.Vote
	if math.Abs(sum-1) > 0.001 {
		return fmt.Errorf("engine.weights must sum to 1.0, got %.4f", sum)
	}
	if e.Weights.Text < 0 || e.Weights.Coalition < 0 || e.Weights.Vote < 0 {
		return fmt.Errorf("engine.weights cannot be negative")
	}
	if e.Labels.Left < e.Labels.Right {
		return fmt.Errorf("engine.labels.left must be >= engine.labels.right")
	}
	if e.VoteSample.SampleSaturation < e.VoteSample.MinSample {
		return fmt.Errorf("engine.vote_sample.sample_saturation must be >= min_sample")
	}
	return nil
}

// LexiconsConfig points at the axis lexicon file.
type LexiconsConfig struct {
	Path string `mapstructure:"path"`
}

func (l LexiconsConfig) Validate() error {
	if strings.TrimSpace(l.Path) == "" {
		return fmt.Errorf("lexicons.path is required")
	}
	return nil
}

// StorageConfig contains storage and persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a connection string from the configured parts.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Addr returns host:port with defaults applied.
func (r RedisConfig) Addr() string {
	host := r.Host
	if host == "" {
		host = "localhost"
	}
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return host + ":" + port
}

// SchedulerConfig controls recurring scoring runs.
type SchedulerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Cron       string `mapstructure:"cron"`        // cron expression or @hourly/@daily
	WindowDays int    `mapstructure:"window_days"` // trailing window length
}

// Normalize applies scheduler defaults.
func (s SchedulerConfig) Normalize() SchedulerConfig {
	if s.Cron == "" {
		s.Cron = "@daily"
	}
	if s.WindowDays <= 0 {
		s.WindowDays = 30
	}
	return s
}

// TelemetryConfig contains monitoring settings.
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogFile string `mapstructure:"log_file"`
}

// LoadConfig reads configuration from the given file, or searches the usual
// locations when path is empty. Environment variables with the ALIGNATOR_
// prefix override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("lexicons.path", "lexicons.yaml")
	v.SetDefault("scheduler.cron", "@daily")
	v.SetDefault("scheduler.window_days", 30)
	v.SetDefault("telemetry.enabled", true)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("ALIGNATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Engine = cfg.Engine.Normalize()
	cfg.Scheduler = cfg.Scheduler.Normalize()

	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Lexicons.Validate(); err != nil {
		return nil, err
	}
	for _, ref := range cfg.References {
		if err := ref.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
