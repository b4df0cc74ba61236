package documents

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/cloudwise/docuproc/pkg/pagination"
)

// System defines the public contract for document domain operations.
//
// The Tx variants participate in the pipeline's terminal commit: the result
// upsert, the document status flip, and the task transition succeed or roll
// back together.
type System interface {
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// MarkProcessing transitions a document into the worker ownership window.
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	// MarkPending returns a document to the pending state after a requeue.
	MarkPending(ctx context.Context, id uuid.UUID) error

	CompleteTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, processedAt time.Time) error
	FailTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string, processedAt time.Time) error
}
