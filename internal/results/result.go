// Package results implements persistence for processing results, the terminal
// artifact of the reconciliation pipeline. A document has at most one live
// result; reprocessing replaces it rather than appending.
package results

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingResult holds the scores and extracted text for one pipeline run.
// Dimension scores are nil when that dimension was not evaluable for the
// document (e.g. no policy reference was extracted); absent dimensions are
// excluded from OverallScore rather than treated as zero.
type ProcessingResult struct {
	ID                         uuid.UUID `json:"id"`
	DocumentID                 uuid.UUID `json:"document_id"`
	ExtractedText              string    `json:"extracted_text"`
	CustomerMatchScore         *float64  `json:"customer_match_score"`
	PolicyMatchScore           *float64  `json:"policy_match_score"`
	InvoiceReconciliationScore *float64  `json:"invoice_reconciliation_score"`
	DataQualityScore           *float64  `json:"data_quality_score"`
	OverallScore               float64   `json:"overall_score"`
	RequiresManualReview       bool      `json:"requires_manual_review"`
	CreatedAt                  time.Time `json:"created_at"`
}

// UpsertCommand carries the data persisted at the pipeline's terminal commit.
type UpsertCommand struct {
	DocumentID                 uuid.UUID
	ExtractedText              string
	CustomerMatchScore         *float64
	PolicyMatchScore           *float64
	InvoiceReconciliationScore *float64
	DataQualityScore           *float64
	OverallScore               float64
	RequiresManualReview       bool
}
