package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cloudwise/docuproc/internal/documents"
	"github.com/cloudwise/docuproc/internal/extraction"
	"github.com/cloudwise/docuproc/internal/matching"
	"github.com/cloudwise/docuproc/internal/notify"
	"github.com/cloudwise/docuproc/internal/results"
	"github.com/cloudwise/docuproc/internal/scoring"
	"github.com/cloudwise/docuproc/internal/tasks"
	"github.com/cloudwise/docuproc/pkg/repository"
	"github.com/cloudwise/docuproc/pkg/storage"
)

// outcome carries the artifacts of a successful pipeline run to the
// terminal commit.
type outcome struct {
	extracted *extraction.Result
	matches   *matching.Set
	verdict   scoring.Outcome
}

func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, task *tasks.Task) {
	logger = logger.With(
		"task_id", task.ID,
		"document_id", task.DocumentID,
		"attempt", task.Attempt,
	)

	doc, err := p.documents.Find(ctx, task.DocumentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			p.failOrphan(ctx, logger, task)
			return
		}
		p.transient(ctx, logger, task, fmt.Errorf("load document: %w", err))
		return
	}

	if err := p.documents.MarkProcessing(ctx, doc.ID); err != nil {
		p.transient(ctx, logger, task, fmt.Errorf("mark processing: %w", err))
		return
	}

	out, err := p.run(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			p.release(logger, task, doc)
			return
		}
		if terminal(err) {
			p.fail(ctx, logger, task, doc, err)
			return
		}
		p.transient(ctx, logger, task, err)
		return
	}

	p.complete(ctx, logger, task, doc, out)
}

// run executes the extract, match, and score stages. Each blocking stage is
// bounded by the stage timeout so a stuck stage cannot outlive the lease.
func (p *Pipeline) run(ctx context.Context, doc *documents.Document) (*outcome, error) {
	timeout := p.config.StageTimeoutDuration()

	data, err := p.download(ctx, timeout, doc.StorageKey)
	if err != nil {
		return nil, err
	}

	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	extracted, err := p.extractor.Extract(stageCtx, data, doc.ContentType, doc.Filename)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	stageCtx, cancel = context.WithTimeout(ctx, timeout)
	matches, err := p.matcher.Match(stageCtx, extracted.Fields)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}

	verdict := scoring.Score(scoring.Inputs{
		Customer: dimension(matches.Customer),
		Policy:   dimension(matches.Policy),
		Invoice:  dimension(matches.Invoice),
		Quality:  quality(extracted),
	}, p.scoring)

	return &outcome{
		extracted: extracted,
		matches:   matches,
		verdict:   verdict,
	}, nil
}

func (p *Pipeline) download(ctx context.Context, timeout time.Duration, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reader, err := p.storage.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download blob: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// complete commits the result, the document status flip, and the task
// outcome in one transaction, then emits the completion event post-commit.
func (p *Pipeline) complete(ctx context.Context, logger *slog.Logger, task *tasks.Task, doc *documents.Document, out *outcome) {
	processedAt := time.Now().UTC()

	cmd := results.UpsertCommand{
		DocumentID:                 doc.ID,
		ExtractedText:              out.extracted.Text,
		CustomerMatchScore:         score(out.matches.Customer),
		PolicyMatchScore:           score(out.matches.Policy),
		InvoiceReconciliationScore: score(out.matches.Invoice),
		DataQualityScore:           qualityScore(out.extracted),
		OverallScore:               out.verdict.Overall,
		RequiresManualReview:       out.verdict.RequiresManualReview,
	}

	_, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := p.results.UpsertTx(ctx, tx, cmd); err != nil {
			return struct{}{}, fmt.Errorf("upsert result: %w", err)
		}
		if err := p.documents.CompleteTx(ctx, tx, doc.ID, processedAt); err != nil {
			return struct{}{}, fmt.Errorf("complete document: %w", err)
		}
		if err := p.tasks.SucceedTx(ctx, tx, task.ID); err != nil {
			return struct{}{}, fmt.Errorf("succeed task: %w", err)
		}
		return struct{}{}, nil
	})

	if err != nil {
		p.transient(ctx, logger, task, fmt.Errorf("terminal commit: %w", err))
		return
	}

	logger.Info(
		"document processed",
		"overall_score", out.verdict.Overall,
		"requires_manual_review", out.verdict.RequiresManualReview,
		"evaluated_dimensions", out.verdict.EvaluatedDimensions,
		"customer_match", audit(out.matches.Customer),
		"policy_match", audit(out.matches.Policy),
		"invoice_match", audit(out.matches.Invoice),
	)

	p.notifier.DocumentCompleted(ctx, notify.Completion{
		DocumentID:           doc.ID,
		OverallScore:         out.verdict.Overall,
		RequiresManualReview: out.verdict.RequiresManualReview,
		ProcessedAt:          processedAt,
	})
}

// fail records a terminal failure for both the document and the task in
// one transaction, then emits the failure event post-commit.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, task *tasks.Task, doc *documents.Document, cause error) {
	processedAt := time.Now().UTC()
	reason := cause.Error()

	_, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (struct{}, error) {
		if err := p.documents.FailTx(ctx, tx, doc.ID, reason, processedAt); err != nil {
			return struct{}{}, fmt.Errorf("fail document: %w", err)
		}
		if err := p.tasks.FailTx(ctx, tx, task.ID, reason); err != nil {
			return struct{}{}, fmt.Errorf("fail task: %w", err)
		}
		return struct{}{}, nil
	})

	if err != nil {
		p.transient(ctx, logger, task, fmt.Errorf("failure commit: %w", err))
		return
	}

	logger.Warn("document failed", "reason", reason)

	p.notifier.DocumentFailed(ctx, notify.Failure{
		DocumentID:  doc.ID,
		Reason:      reason,
		Attempt:     task.Attempt,
		ProcessedAt: processedAt,
	})
}

// failOrphan marks a task failed when its document no longer exists. There
// is no document row to update and no event subject worth emitting.
func (p *Pipeline) failOrphan(ctx context.Context, logger *slog.Logger, task *tasks.Task) {
	_, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, p.tasks.FailTx(ctx, tx, task.ID, "document no longer exists")
	})
	if err != nil {
		logger.Error("orphan task cleanup failed", "error", err)
		return
	}
	logger.Warn("task failed: document no longer exists")
}

// transient requeues the task with backoff, or fails it terminally once
// the attempt budget is exhausted.
func (p *Pipeline) transient(ctx context.Context, logger *slog.Logger, task *tasks.Task, cause error) {
	if task.Attempt >= p.config.MaxAttempts {
		doc, err := p.documents.Find(ctx, task.DocumentID)
		if err != nil {
			p.failOrphan(ctx, logger, task)
			return
		}
		p.fail(ctx, logger, task, doc, fmt.Errorf("attempts exhausted: %w", cause))
		return
	}

	delay := tasks.Backoff(task.Attempt, p.config.BackoffBaseDuration(), p.config.BackoffCapDuration())
	if err := p.tasks.Retry(ctx, task.ID, cause.Error(), delay); err != nil {
		logger.Error("requeue failed", "error", err)
		return
	}

	if err := p.documents.MarkPending(ctx, task.DocumentID); err != nil && !errors.Is(err, documents.ErrNotFound) {
		logger.Warn("mark pending failed after requeue", "error", err)
	}

	logger.Warn("transient failure, requeued", "delay", delay, "error", cause)
}

// release hands a claimed task back to the queue without burning an
// attempt. Used when shutdown interrupted the run mid-flight.
func (p *Pipeline) release(logger *slog.Logger, task *tasks.Task, doc *documents.Document) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.tasks.Release(ctx, task.ID, "worker shutdown"); err != nil {
		logger.Error("release failed", "error", err)
		return
	}

	if err := p.documents.MarkPending(ctx, doc.ID); err != nil {
		logger.Warn("mark pending failed after release", "error", err)
	}

	logger.Info("task released for shutdown")
}

// terminal reports whether an error can never succeed on retry.
func terminal(err error) bool {
	return errors.Is(err, extraction.ErrUnsupportedType) ||
		errors.Is(err, extraction.ErrUnreadable) ||
		errors.Is(err, extraction.ErrEmptyDocument) ||
		errors.Is(err, storage.ErrNotFound)
}

func dimension(m matching.Match) scoring.Dimension {
	if !m.Evaluated {
		return scoring.Absent()
	}
	return scoring.Evaluated(m.Score)
}

// quality is present only when extraction recovered at least one field.
func quality(r *extraction.Result) scoring.Dimension {
	if len(r.Fields) == 0 {
		return scoring.Absent()
	}
	return scoring.Evaluated(r.DataQuality())
}

// audit renders a match's resolution trail for the completion log.
func audit(m matching.Match) string {
	if !m.Evaluated {
		return "absent"
	}
	if m.RecordID == nil {
		return fmt.Sprintf("unmatched score=%.2f", m.Score)
	}
	s := fmt.Sprintf("%s record=%s score=%.2f", m.Method, m.RecordID, m.Score)
	if m.TieBreak {
		s += " tie_break"
	}
	return s
}

func score(m matching.Match) *float64 {
	if !m.Evaluated {
		return nil
	}
	s := m.Score
	return &s
}

func qualityScore(r *extraction.Result) *float64 {
	if len(r.Fields) == 0 {
		return nil
	}
	q := r.DataQuality()
	return &q
}
