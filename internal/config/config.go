package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	HTTP      HTTPConfig      `yaml:"http" envconfig:"HTTP"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/complexome.log"`
}

// HTTPConfig configures the client used for the annotation and mapping services
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"60s"`
	MaxAttempts       int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" default:"3"`
	InitialBackoff    time.Duration `yaml:"initial_backoff" envconfig:"INITIAL_BACKOFF" default:"2s"`
	MaxBackoff        time.Duration `yaml:"max_backoff" envconfig:"MAX_BACKOFF" default:"30s"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" envconfig:"BACKOFF_MULTIPLIER" default:"2"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"1"`
	Burst             int           `yaml:"burst" envconfig:"BURST" default:"1"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT" default:"complexome/1.0"`
}

// TelemetryConfig controls tracing and metric export
type TelemetryConfig struct {
	Enabled       bool    `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	TraceFile     string  `yaml:"trace_file" envconfig:"TRACE_FILE"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1"`
	MetricsFile   string  `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
}

// PipelineConfig bounds how long each pipeline step may run. Zero means the
// step runs until it finishes.
type PipelineConfig struct {
	StageTimeout    time.Duration `yaml:"stage_timeout" envconfig:"STAGE_TIMEOUT" default:"30m"`
	AnnotateTimeout time.Duration `yaml:"annotate_timeout" envconfig:"ANNOTATE_TIMEOUT" default:"0"`
	ClusterTimeout  time.Duration `yaml:"cluster_timeout" envconfig:"CLUSTER_TIMEOUT" default:"0"`
}

// Load loads configuration from environment variables and an optional YAML file.
// Environment values take precedence over file values.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays explicitly set environment variables on the file config.
// envconfig fills defaults for every field, so only variables that are
// actually present in the environment override file values.
func mergeConfigs(fileConfig, envConfig Config) Config {
	merged := fileConfig
	defaults := Default()

	pick := func(name string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + name)
		return ok
	}

	if pick("LOGGING_LEVEL") || merged.Logging.Level == "" {
		merged.Logging.Level = envConfig.Logging.Level
	}
	if pick("LOGGING_FORMAT") || merged.Logging.Format == "" {
		merged.Logging.Format = envConfig.Logging.Format
	}
	if pick("LOGGING_OUTPUT") || merged.Logging.Output == "" {
		merged.Logging.Output = envConfig.Logging.Output
	}
	if pick("LOGGING_FILE_PATH") || merged.Logging.FilePath == "" {
		merged.Logging.FilePath = envConfig.Logging.FilePath
	}

	if pick("HTTP_TIMEOUT") || merged.HTTP.Timeout == 0 {
		merged.HTTP.Timeout = envConfig.HTTP.Timeout
	}
	if pick("HTTP_MAX_ATTEMPTS") || merged.HTTP.MaxAttempts == 0 {
		merged.HTTP.MaxAttempts = envConfig.HTTP.MaxAttempts
	}
	if pick("HTTP_INITIAL_BACKOFF") || merged.HTTP.InitialBackoff == 0 {
		merged.HTTP.InitialBackoff = envConfig.HTTP.InitialBackoff
	}
	if pick("HTTP_MAX_BACKOFF") || merged.HTTP.MaxBackoff == 0 {
		merged.HTTP.MaxBackoff = envConfig.HTTP.MaxBackoff
	}
	if pick("HTTP_BACKOFF_MULTIPLIER") || merged.HTTP.BackoffMultiplier == 0 {
		merged.HTTP.BackoffMultiplier = envConfig.HTTP.BackoffMultiplier
	}
	if pick("HTTP_REQUESTS_PER_SECOND") || merged.HTTP.RequestsPerSecond == 0 {
		merged.HTTP.RequestsPerSecond = envConfig.HTTP.RequestsPerSecond
	}
	if pick("HTTP_BURST") || merged.HTTP.Burst == 0 {
		merged.HTTP.Burst = envConfig.HTTP.Burst
	}
	if pick("HTTP_USER_AGENT") || merged.HTTP.UserAgent == "" {
		merged.HTTP.UserAgent = envConfig.HTTP.UserAgent
	}

	if pick("TELEMETRY_ENABLED") {
		merged.Telemetry.Enabled = envConfig.Telemetry.Enabled
	}
	if pick("TELEMETRY_TRACE_EXPORTER") || merged.Telemetry.TraceExporter == "" {
		merged.Telemetry.TraceExporter = envConfig.Telemetry.TraceExporter
	}
	if pick("TELEMETRY_TRACE_FILE") {
		merged.Telemetry.TraceFile = envConfig.Telemetry.TraceFile
	}
	if pick("TELEMETRY_SAMPLE_RATIO") || merged.Telemetry.SampleRatio == 0 {
		merged.Telemetry.SampleRatio = envConfig.Telemetry.SampleRatio
	}
	if pick("TELEMETRY_METRICS_FILE") {
		merged.Telemetry.MetricsFile = envConfig.Telemetry.MetricsFile
	}
	if pick("TELEMETRY_ENVIRONMENT") || merged.Telemetry.Environment == "" {
		merged.Telemetry.Environment = envConfig.Telemetry.Environment
	}
	if merged.Telemetry.Environment == "" {
		merged.Telemetry.Environment = defaults.Telemetry.Environment
	}

	if pick("PIPELINE_STAGE_TIMEOUT") || merged.Pipeline.StageTimeout == 0 {
		merged.Pipeline.StageTimeout = envConfig.Pipeline.StageTimeout
	}
	if pick("PIPELINE_ANNOTATE_TIMEOUT") {
		merged.Pipeline.AnnotateTimeout = envConfig.Pipeline.AnnotateTimeout
	}
	if pick("PIPELINE_CLUSTER_TIMEOUT") {
		merged.Pipeline.ClusterTimeout = envConfig.Pipeline.ClusterTimeout
	}

	return merged
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.HTTP.MaxAttempts < 1 {
		return fmt.Errorf("http max attempts must be at least 1, got %d", c.HTTP.MaxAttempts)
	}
	if c.HTTP.RequestsPerSecond <= 0 {
		return fmt.Errorf("http requests per second must be positive")
	}
	if c.HTTP.Burst < 1 {
		c.HTTP.Burst = 1
	}

	// Log records are always JSON
	c.Logging.Format = "json"

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("unsupported logging output: %s", c.Logging.Output)
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1], got %v", c.Telemetry.SampleRatio)
	}

	if c.Pipeline.StageTimeout < 0 || c.Pipeline.AnnotateTimeout < 0 || c.Pipeline.ClusterTimeout < 0 {
		return fmt.Errorf("pipeline timeouts must not be negative")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"complexome.yaml",
		"configs/complexome.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/complexome.log",
		},
		HTTP: HTTPConfig{
			Timeout:           DefaultHTTPTimeout,
			MaxAttempts:       DefaultHTTPMaxAttempts,
			InitialBackoff:    2 * time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2,
			RequestsPerSecond: 1,
			Burst:             1,
			UserAgent:         AppName + "/" + AppVersion,
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			TraceExporter: "none",
			SampleRatio:   1,
			Environment:   "development",
		},
		Pipeline: PipelineConfig{
			StageTimeout: DefaultStageTimeout,
		},
	}
}
