// Package scoring computes the overall confidence for a processed document
// and decides whether it needs manual review. Score is a pure function of
// its inputs; persistence and routing belong to the pipeline.
package scoring

import "sort"

// Dimension is one confidence input. Absent dimensions are excluded from
// the weighted mean entirely rather than counted as zero, so a document
// with no invoice reference is not punished for lacking one.
type Dimension struct {
	Score   float64
	Present bool
}

// Evaluated returns a present dimension carrying the given score.
func Evaluated(score float64) Dimension {
	return Dimension{Score: score, Present: true}
}

// Absent returns a dimension excluded from scoring.
func Absent() Dimension {
	return Dimension{}
}

// Inputs carries the per-dimension confidences produced by the matching
// engine and the extraction stage.
type Inputs struct {
	Customer Dimension
	Policy   Dimension
	Invoice  Dimension
	Quality  Dimension
}

// Weights are the relative contribution of each dimension to the overall
// score. Only present dimensions contribute; weights are renormalized over
// the present subset.
type Weights struct {
	Customer float64
	Policy   float64
	Invoice  float64
	Quality  float64
}

// Config governs scoring behavior.
type Config struct {
	Weights Weights

	// ReviewThreshold is the minimum overall score that avoids manual
	// review.
	ReviewThreshold float64

	// DimensionFloor flags a document for review when any present
	// dimension scores below it, regardless of the overall score.
	DimensionFloor float64
}

// Outcome is the scoring verdict for one document.
type Outcome struct {
	Overall              float64
	RequiresManualReview bool
	EvaluatedDimensions  []string
}

type weighted struct {
	name string
	dim  Dimension
	w    float64
}

// Score computes the weighted mean of the present dimensions and applies
// the review gate. A document with zero present dimensions always requires
// review: there is nothing to trust.
func Score(in Inputs, cfg Config) Outcome {
	dims := []weighted{
		{"customer_match", in.Customer, cfg.Weights.Customer},
		{"policy_match", in.Policy, cfg.Weights.Policy},
		{"invoice_match", in.Invoice, cfg.Weights.Invoice},
		{"data_quality", in.Quality, cfg.Weights.Quality},
	}

	var (
		sum       float64
		weightSum float64
		evaluated []string
		belowFloor bool
	)

	for _, d := range dims {
		if !d.dim.Present || d.w <= 0 {
			continue
		}

		sum += d.dim.Score * d.w
		weightSum += d.w
		evaluated = append(evaluated, d.name)

		if d.dim.Score < cfg.DimensionFloor {
			belowFloor = true
		}
	}

	if weightSum == 0 {
		return Outcome{RequiresManualReview: true}
	}

	overall := clamp(sum / weightSum)
	sort.Strings(evaluated)

	return Outcome{
		Overall:              overall,
		RequiresManualReview: overall < cfg.ReviewThreshold || belowFloor,
		EvaluatedDimensions:  evaluated,
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
