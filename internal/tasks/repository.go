package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloudwise/docuproc/pkg/query"
	"github.com/cloudwise/docuproc/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a task repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "tasks"),
	}
}

// Enqueue inserts a queued task for the document unless a live task already
// exists. The partial unique index on live tasks makes concurrent enqueues
// collapse to a single row; the second return value reports whether this
// call created the task.
func (r *repo) Enqueue(ctx context.Context, documentID uuid.UUID) (*Task, bool, error) {
	q := fmt.Sprintf(`
		INSERT INTO processing_tasks(id, document_id)
		VALUES ($1, $2)
		ON CONFLICT (document_id) WHERE status IN ('queued', 'running') DO NOTHING
		RETURNING %s`, taskColumns)

	t, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Task, error) {
		return repository.QueryOne(ctx, tx, q, []any{uuid.New(), documentID}, scanTask)
	})

	if err == nil {
		r.logger.Info("task enqueued", "id", t.ID, "document_id", documentID)
		return &t, true, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("enqueue task: %w", err)
	}

	existing, err := r.FindByDocument(ctx, documentID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Claim atomically transitions one claimable task to running and returns
// it. Claimable means queued with not_before due, or running with an
// expired lease (the worker that held it is presumed dead). Returns
// ErrNoTask when nothing is claimable.
func (r *repo) Claim(ctx context.Context, lease time.Duration) (*Task, error) {
	q := fmt.Sprintf(`
		UPDATE processing_tasks
		SET status = $1,
			attempt = attempt + 1,
			lease_expires_at = now() + make_interval(secs => $2),
			updated_at = now()
		WHERE id = (
			SELECT id FROM processing_tasks
			WHERE (status = $3 AND not_before <= now())
				OR (status = $1 AND lease_expires_at < now())
			ORDER BY not_before
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s`, taskColumns)

	args := []any{StatusRunning, lease.Seconds(), StatusQueued}

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTask)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTask
		}
		return nil, fmt.Errorf("claim task: %w", err)
	}

	r.logger.Debug("task claimed", "id", t.ID, "document_id", t.DocumentID, "attempt", t.Attempt)
	return &t, nil
}

// Retry requeues a running task after a transient failure, deferring the
// next claim by the given delay.
func (r *repo) Retry(ctx context.Context, id uuid.UUID, reason string, delay time.Duration) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		`UPDATE processing_tasks
		SET status = $1,
			last_error = $2,
			not_before = now() + make_interval(secs => $3),
			lease_expires_at = NULL,
			updated_at = now()
		WHERE id = $4 AND status = $5`,
		StatusQueued, reason, delay.Seconds(), id, StatusRunning,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrNotFound)
	}

	r.logger.Info("task requeued", "id", id, "delay", delay, "reason", reason)
	return nil
}

// Release returns a running task to the queue without counting the attempt
// against it. Used when the worker gave up for reasons that are not the
// task's fault, such as shutdown mid-claim.
func (r *repo) Release(ctx context.Context, id uuid.UUID, reason string) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		`UPDATE processing_tasks
		SET status = $1,
			attempt = attempt - 1,
			last_error = $2,
			lease_expires_at = NULL,
			updated_at = now()
		WHERE id = $3 AND status = $4`,
		StatusQueued, reason, id, StatusRunning,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrNotFound)
	}

	r.logger.Info("task released", "id", id, "reason", reason)
	return nil
}

func (r *repo) SucceedTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	err := repository.ExecExpectOne(
		ctx, tx,
		`UPDATE processing_tasks
		SET status = $1, last_error = NULL, lease_expires_at = NULL, updated_at = now()
		WHERE id = $2 AND status = $3`,
		StatusSucceeded, id, StatusRunning,
	)
	return repository.MapError(err, ErrNotFound, ErrNotFound)
}

func (r *repo) FailTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string) error {
	err := repository.ExecExpectOne(
		ctx, tx,
		`UPDATE processing_tasks
		SET status = $1, last_error = $2, lease_expires_at = NULL, updated_at = now()
		WHERE id = $3 AND status = $4`,
		StatusFailed, reason, id, StatusRunning,
	)
	return repository.MapError(err, ErrNotFound, ErrNotFound)
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Task, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTask)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &t, nil
}

// FindByDocument returns the most recent task for a document.
func (r *repo) FindByDocument(ctx context.Context, documentID uuid.UUID) (*Task, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM processing_tasks
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, taskColumns)

	t, err := repository.QueryOne(ctx, r.db, q, []any{documentID}, scanTask)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &t, nil
}
