package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvScoringWeightCustomer = "DOCUPROC_SCORING_WEIGHT_CUSTOMER"
	EnvScoringWeightPolicy   = "DOCUPROC_SCORING_WEIGHT_POLICY"
	EnvScoringWeightInvoice  = "DOCUPROC_SCORING_WEIGHT_INVOICE"
	EnvScoringWeightQuality  = "DOCUPROC_SCORING_WEIGHT_QUALITY"
	EnvScoringThreshold      = "DOCUPROC_SCORING_REVIEW_THRESHOLD"
	EnvScoringFloor          = "DOCUPROC_SCORING_DIMENSION_FLOOR"
)

// ScoringConfig holds dimension weights and review gate thresholds.
// Weights are fixed for a deployment; equal weighting is the default,
// not a mandate.
type ScoringConfig struct {
	WeightCustomer  float64 `toml:"weight_customer"`
	WeightPolicy    float64 `toml:"weight_policy"`
	WeightInvoice   float64 `toml:"weight_invoice"`
	WeightQuality   float64 `toml:"weight_quality"`
	ReviewThreshold float64 `toml:"review_threshold"`
	DimensionFloor  float64 `toml:"dimension_floor"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ScoringConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. A zero weight in the file
// overlay reads as unset; zeroing out a dimension for a deployment goes
// through the environment overrides, which distinguish empty from "0".
func (c *ScoringConfig) Merge(overlay *ScoringConfig) {
	if overlay.WeightCustomer != 0 {
		c.WeightCustomer = overlay.WeightCustomer
	}
	if overlay.WeightPolicy != 0 {
		c.WeightPolicy = overlay.WeightPolicy
	}
	if overlay.WeightInvoice != 0 {
		c.WeightInvoice = overlay.WeightInvoice
	}
	if overlay.WeightQuality != 0 {
		c.WeightQuality = overlay.WeightQuality
	}
	if overlay.ReviewThreshold != 0 {
		c.ReviewThreshold = overlay.ReviewThreshold
	}
	if overlay.DimensionFloor != 0 {
		c.DimensionFloor = overlay.DimensionFloor
	}
}

func (c *ScoringConfig) loadDefaults() {
	if c.WeightCustomer == 0 {
		c.WeightCustomer = 1.0
	}
	if c.WeightPolicy == 0 {
		c.WeightPolicy = 1.0
	}
	if c.WeightInvoice == 0 {
		c.WeightInvoice = 1.0
	}
	if c.WeightQuality == 0 {
		c.WeightQuality = 1.0
	}
	if c.ReviewThreshold == 0 {
		c.ReviewThreshold = 0.75
	}
	if c.DimensionFloor == 0 {
		c.DimensionFloor = 0.4
	}
}

func (c *ScoringConfig) loadEnv() {
	loadFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	loadFloat(EnvScoringWeightCustomer, &c.WeightCustomer)
	loadFloat(EnvScoringWeightPolicy, &c.WeightPolicy)
	loadFloat(EnvScoringWeightInvoice, &c.WeightInvoice)
	loadFloat(EnvScoringWeightQuality, &c.WeightQuality)
	loadFloat(EnvScoringThreshold, &c.ReviewThreshold)
	loadFloat(EnvScoringFloor, &c.DimensionFloor)
}

func (c *ScoringConfig) validate() error {
	weights := map[string]float64{
		"weight_customer": c.WeightCustomer,
		"weight_policy":   c.WeightPolicy,
		"weight_invoice":  c.WeightInvoice,
		"weight_quality":  c.WeightQuality,
	}

	sum := 0.0
	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("%s must not be negative: %f", name, w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("at least one dimension weight must be positive")
	}

	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("review_threshold must be in [0,1]: %f", c.ReviewThreshold)
	}
	if c.DimensionFloor < 0 || c.DimensionFloor > 1 {
		return fmt.Errorf("dimension_floor must be in [0,1]: %f", c.DimensionFloor)
	}

	return nil
}
