package operations

import (
	"time"

	"complexome/internal/config"
)

// Config represents the pipeline execution configuration
type Config struct {
	// Execution mode; only sequential execution is supported
	ExecutionMode ExecutionMode `json:"execution_mode"`

	// Timeout for steps without their own entry. Zero disables it.
	DefaultTimeout time.Duration `json:"default_timeout"`

	// Step-specific timeouts; zero lets the step run to completion
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	// Whether later steps run after a non-fatal step failure
	ContinueOnError bool `json:"continue_on_error"`
}

// NewConfig returns the default pipeline configuration. Annotation and
// clustering scale with the input and have no timeout.
func NewConfig() *Config {
	return &Config{
		ExecutionMode:  ExecutionModeSequential,
		DefaultTimeout: DefaultStageTimeout,
		StageTimeouts: map[string]time.Duration{
			StageIDAnnotate: 0,
			StageIDCluster:  0,
		},
		ContinueOnError: true,
	}
}

// NewConfigFromSettings builds the execution configuration from the
// application's pipeline section
func NewConfigFromSettings(p config.PipelineConfig) *Config {
	return NewConfigBuilder().
		WithDefaultTimeout(p.StageTimeout).
		WithStageTimeout(StageIDAnnotate, p.AnnotateTimeout).
		WithStageTimeout(StageIDCluster, p.ClusterTimeout).
		Build()
}

// GetStageTimeout returns the timeout for a specific Step, zero for none
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stageID]; ok {
		return timeout
	}
	return c.DefaultTimeout
}

// SetStageTimeout sets the timeout for a specific Step
func (c *Config) SetStageTimeout(stageID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stageID] = timeout
}

// ConfigBuilder provides a fluent interface for building pipeline configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: NewConfig(),
	}
}

// WithDefaultTimeout sets the timeout of steps without their own entry
func (b *ConfigBuilder) WithDefaultTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.DefaultTimeout = timeout
	return b
}

// WithStageTimeout sets the timeout for a Step
func (b *ConfigBuilder) WithStageTimeout(stageID string, timeout time.Duration) *ConfigBuilder {
	b.config.SetStageTimeout(stageID, timeout)
	return b
}

// WithContinueOnError sets whether to continue after non-fatal failures
func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
