package config_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudwise/docuproc/internal/config"
)

func TestPipelineConfigDefaults(t *testing.T) {
	var cfg config.PipelineConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Workers != 4 {
		t.Errorf("workers: got %d, want 4", cfg.Workers)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("max_attempts: got %d, want 5", cfg.MaxAttempts)
	}
	if cfg.PollIntervalDuration() != 2*time.Second {
		t.Errorf("poll_interval: got %v", cfg.PollIntervalDuration())
	}
	if cfg.LeaseDurationDuration() != 5*time.Minute {
		t.Errorf("lease_duration: got %v", cfg.LeaseDurationDuration())
	}
	if !cfg.AmountEpsilonDecimal().Equal(decimal.NewFromInt(1)) {
		t.Errorf("amount_epsilon: got %s", cfg.AmountEpsilonDecimal())
	}
}

func TestPipelineConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.PipelineConfig)
	}{
		{
			name:   "negative workers",
			modify: func(c *config.PipelineConfig) { c.Workers = -1 },
		},
		{
			name:   "invalid poll interval",
			modify: func(c *config.PipelineConfig) { c.PollInterval = "soon" },
		},
		{
			name: "stage timeout exceeds lease",
			modify: func(c *config.PipelineConfig) {
				c.LeaseDuration = "1m"
				c.StageTimeout = "2m"
			},
		},
		{
			name: "backoff cap below base",
			modify: func(c *config.PipelineConfig) {
				c.BackoffBase = "1m"
				c.BackoffCap = "30s"
			},
		},
		{
			name:   "zero amount epsilon",
			modify: func(c *config.PipelineConfig) { c.AmountEpsilon = "0" },
		},
		{
			name:   "malformed amount epsilon",
			modify: func(c *config.PipelineConfig) { c.AmountEpsilon = "about a dollar" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg config.PipelineConfig
			tt.modify(&cfg)
			if err := cfg.Finalize(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPipelineConfigEnvOverride(t *testing.T) {
	t.Setenv(config.EnvPipelineWorkers, "8")
	t.Setenv(config.EnvPipelineMaxAttempts, "3")

	var cfg config.PipelineConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Workers != 8 {
		t.Errorf("workers: got %d, want 8", cfg.Workers)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("max_attempts: got %d, want 3", cfg.MaxAttempts)
	}
}

func TestScoringConfigDefaults(t *testing.T) {
	var cfg config.ScoringConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.WeightCustomer != 1.0 || cfg.WeightPolicy != 1.0 ||
		cfg.WeightInvoice != 1.0 || cfg.WeightQuality != 1.0 {
		t.Errorf("weights not defaulted equally: %+v", cfg)
	}
	if cfg.ReviewThreshold != 0.75 {
		t.Errorf("review_threshold: got %f, want 0.75", cfg.ReviewThreshold)
	}
	if cfg.DimensionFloor != 0.4 {
		t.Errorf("dimension_floor: got %f, want 0.4", cfg.DimensionFloor)
	}
}

func TestScoringConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.ScoringConfig)
	}{
		{
			name:   "negative weight",
			modify: func(c *config.ScoringConfig) { c.WeightPolicy = -0.5 },
		},
		{
			name:   "threshold above one",
			modify: func(c *config.ScoringConfig) { c.ReviewThreshold = 1.5 },
		},
		{
			name:   "floor below zero",
			modify: func(c *config.ScoringConfig) { c.DimensionFloor = -0.1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg config.ScoringConfig
			tt.modify(&cfg)
			if err := cfg.Finalize(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestServerConfigDefaults(t *testing.T) {
	var cfg config.ServerConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Addr() == "" {
		t.Error("expected default address")
	}
}

func TestNotifyConfig(t *testing.T) {
	var cfg config.NotifyConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.Enabled() {
		t.Error("notify should be disabled without a sink url")
	}
	if cfg.Source != "docuproc" {
		t.Errorf("source: got %s", cfg.Source)
	}

	bad := config.NotifyConfig{SinkURL: "::not-a-url"}
	if err := bad.Finalize(); err == nil {
		t.Error("expected validation error for malformed sink url")
	}
}
