package results

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cloudwise/docuproc/pkg/query"
	"github.com/cloudwise/docuproc/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "processing_results", "r").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("extracted_text", "ExtractedText").
	Project("customer_match_score", "CustomerMatchScore").
	Project("policy_match_score", "PolicyMatchScore").
	Project("invoice_reconciliation_score", "InvoiceReconciliationScore").
	Project("data_quality_score", "DataQualityScore").
	Project("overall_score", "OverallScore").
	Project("requires_manual_review", "RequiresManualReview").
	Project("created_at", "CreatedAt")

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a result repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "results"),
	}
}

func (r *repo) FindByDocument(ctx context.Context, documentID uuid.UUID) (*ProcessingResult, error) {
	q, args := query.NewBuilder(projection).BuildSingle("DocumentID", documentID)

	result, err := repository.QueryOne(ctx, r.db, q, args, scanResult)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &result, nil
}

func (r *repo) UpsertTx(ctx context.Context, tx *sql.Tx, cmd UpsertCommand) (*ProcessingResult, error) {
	q := `
		INSERT INTO processing_results(
			id, document_id, extracted_text,
			customer_match_score, policy_match_score,
			invoice_reconciliation_score, data_quality_score,
			overall_score, requires_manual_review
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (document_id) DO UPDATE SET
			extracted_text = EXCLUDED.extracted_text,
			customer_match_score = EXCLUDED.customer_match_score,
			policy_match_score = EXCLUDED.policy_match_score,
			invoice_reconciliation_score = EXCLUDED.invoice_reconciliation_score,
			data_quality_score = EXCLUDED.data_quality_score,
			overall_score = EXCLUDED.overall_score,
			requires_manual_review = EXCLUDED.requires_manual_review,
			created_at = now()
		RETURNING id, document_id, extracted_text, customer_match_score, policy_match_score,
			invoice_reconciliation_score, data_quality_score, overall_score,
			requires_manual_review, created_at`

	args := []any{
		uuid.New(),
		cmd.DocumentID,
		cmd.ExtractedText,
		cmd.CustomerMatchScore,
		cmd.PolicyMatchScore,
		cmd.InvoiceReconciliationScore,
		cmd.DataQualityScore,
		cmd.OverallScore,
		cmd.RequiresManualReview,
	}

	result, err := repository.QueryOne(ctx, tx, q, args, scanResult)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"result persisted",
		"document_id", result.DocumentID,
		"overall_score", result.OverallScore,
		"requires_manual_review", result.RequiresManualReview,
	)
	return &result, nil
}

func (r *repo) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.db.ExecContext(
		ctx,
		"DELETE FROM processing_results WHERE document_id = $1",
		documentID,
	)
	return err
}

func scanResult(s repository.Scanner) (ProcessingResult, error) {
	var p ProcessingResult

	err := s.Scan(
		&p.ID,
		&p.DocumentID,
		&p.ExtractedText,
		&p.CustomerMatchScore,
		&p.PolicyMatchScore,
		&p.InvoiceReconciliationScore,
		&p.DataQualityScore,
		&p.OverallScore,
		&p.RequiresManualReview,
		&p.CreatedAt,
	)

	return p, err
}
