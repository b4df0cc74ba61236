package results

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// System defines the public contract for processing result persistence.
type System interface {
	// FindByDocument returns the live result for a document, or ErrNotFound.
	FindByDocument(ctx context.Context, documentID uuid.UUID) (*ProcessingResult, error)

	// UpsertTx inserts the result for a document, replacing any prior result
	// for the same document. It runs inside the pipeline's terminal commit
	// transaction so the result and the document status flip are atomic.
	UpsertTx(ctx context.Context, tx *sql.Tx, cmd UpsertCommand) (*ProcessingResult, error)

	// DeleteByDocument removes the live result for a document, if any.
	// Used when a completed document is re-enqueued so the status endpoint
	// does not surface stale scores during reprocessing.
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
}
