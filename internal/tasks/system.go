package tasks

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// System defines the public contract for the task queue.
//
// Enqueue is idempotent per document: while a live task exists, repeated
// calls return it unchanged. Claim transitions exactly one claimable task
// to running under a lease; concurrent workers never claim the same task.
// SucceedTx and FailTx run inside the caller's terminal transaction so the
// task outcome commits atomically with the document and result rows.
type System interface {
	Enqueue(ctx context.Context, documentID uuid.UUID) (*Task, bool, error)
	Claim(ctx context.Context, lease time.Duration) (*Task, error)
	Retry(ctx context.Context, id uuid.UUID, reason string, delay time.Duration) error
	Release(ctx context.Context, id uuid.UUID, reason string) error
	SucceedTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	FailTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string) error
	Find(ctx context.Context, id uuid.UUID) (*Task, error)
	FindByDocument(ctx context.Context, documentID uuid.UUID) (*Task, error)
}
