package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EnvPipelineWorkers       = "DOCUPROC_PIPELINE_WORKERS"
	EnvPipelinePollInterval  = "DOCUPROC_PIPELINE_POLL_INTERVAL"
	EnvPipelineLeaseDuration = "DOCUPROC_PIPELINE_LEASE_DURATION"
	EnvPipelineStageTimeout  = "DOCUPROC_PIPELINE_STAGE_TIMEOUT"
	EnvPipelineMaxAttempts   = "DOCUPROC_PIPELINE_MAX_ATTEMPTS"
	EnvPipelineBackoffBase   = "DOCUPROC_PIPELINE_BACKOFF_BASE"
	EnvPipelineBackoffCap    = "DOCUPROC_PIPELINE_BACKOFF_CAP"
	EnvPipelineAmountEpsilon = "DOCUPROC_PIPELINE_AMOUNT_EPSILON"
)

// PipelineConfig holds worker pool and task queue parameters.
// LeaseDuration bounds a worker's exclusive claim on a task; StageTimeout
// bounds a single pipeline stage and must fit inside the lease.
type PipelineConfig struct {
	Workers       int    `toml:"workers"`
	PollInterval  string `toml:"poll_interval"`
	LeaseDuration string `toml:"lease_duration"`
	StageTimeout  string `toml:"stage_timeout"`
	MaxAttempts   int    `toml:"max_attempts"`
	BackoffBase   string `toml:"backoff_base"`
	BackoffCap    string `toml:"backoff_cap"`
	AmountEpsilon string `toml:"amount_epsilon"`
}

// PollIntervalDuration returns PollInterval as a time.Duration.
func (c *PipelineConfig) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// LeaseDurationDuration returns LeaseDuration as a time.Duration.
func (c *PipelineConfig) LeaseDurationDuration() time.Duration {
	d, _ := time.ParseDuration(c.LeaseDuration)
	return d
}

// StageTimeoutDuration returns StageTimeout as a time.Duration.
func (c *PipelineConfig) StageTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StageTimeout)
	return d
}

// BackoffBaseDuration returns BackoffBase as a time.Duration.
func (c *PipelineConfig) BackoffBaseDuration() time.Duration {
	d, _ := time.ParseDuration(c.BackoffBase)
	return d
}

// BackoffCapDuration returns BackoffCap as a time.Duration.
func (c *PipelineConfig) BackoffCapDuration() time.Duration {
	d, _ := time.ParseDuration(c.BackoffCap)
	return d
}

// AmountEpsilonDecimal returns AmountEpsilon as a fixed-point decimal.
func (c *PipelineConfig) AmountEpsilonDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.AmountEpsilon)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.LeaseDuration != "" {
		c.LeaseDuration = overlay.LeaseDuration
	}
	if overlay.StageTimeout != "" {
		c.StageTimeout = overlay.StageTimeout
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BackoffBase != "" {
		c.BackoffBase = overlay.BackoffBase
	}
	if overlay.BackoffCap != "" {
		c.BackoffCap = overlay.BackoffCap
	}
	if overlay.AmountEpsilon != "" {
		c.AmountEpsilon = overlay.AmountEpsilon
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.PollInterval == "" {
		c.PollInterval = "2s"
	}
	if c.LeaseDuration == "" {
		c.LeaseDuration = "5m"
	}
	if c.StageTimeout == "" {
		c.StageTimeout = "1m"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffBase == "" {
		c.BackoffBase = "5s"
	}
	if c.BackoffCap == "" {
		c.BackoffCap = "5m"
	}
	if c.AmountEpsilon == "" {
		c.AmountEpsilon = "1.00"
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvPipelinePollInterval); v != "" {
		c.PollInterval = v
	}
	if v := os.Getenv(EnvPipelineLeaseDuration); v != "" {
		c.LeaseDuration = v
	}
	if v := os.Getenv(EnvPipelineStageTimeout); v != "" {
		c.StageTimeout = v
	}
	if v := os.Getenv(EnvPipelineMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvPipelineBackoffBase); v != "" {
		c.BackoffBase = v
	}
	if v := os.Getenv(EnvPipelineBackoffCap); v != "" {
		c.BackoffCap = v
	}
	if v := os.Getenv(EnvPipelineAmountEpsilon); v != "" {
		c.AmountEpsilon = v
	}
}

func (c *PipelineConfig) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive: %d", c.Workers)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive: %d", c.MaxAttempts)
	}

	poll, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll_interval: %w", err)
	}
	if poll <= 0 {
		return fmt.Errorf("poll_interval must be positive: %s", c.PollInterval)
	}

	lease, err := time.ParseDuration(c.LeaseDuration)
	if err != nil {
		return fmt.Errorf("invalid lease_duration: %w", err)
	}

	stage, err := time.ParseDuration(c.StageTimeout)
	if err != nil {
		return fmt.Errorf("invalid stage_timeout: %w", err)
	}
	if stage <= 0 || stage > lease {
		return fmt.Errorf("stage_timeout must be positive and within lease_duration")
	}

	base, err := time.ParseDuration(c.BackoffBase)
	if err != nil {
		return fmt.Errorf("invalid backoff_base: %w", err)
	}

	capDur, err := time.ParseDuration(c.BackoffCap)
	if err != nil {
		return fmt.Errorf("invalid backoff_cap: %w", err)
	}
	if base <= 0 || capDur < base {
		return fmt.Errorf("backoff_cap must be at least backoff_base")
	}

	eps, err := decimal.NewFromString(c.AmountEpsilon)
	if err != nil {
		return fmt.Errorf("invalid amount_epsilon: %w", err)
	}
	if eps.IsNegative() || eps.IsZero() {
		return fmt.Errorf("amount_epsilon must be positive: %s", c.AmountEpsilon)
	}

	return nil
}
