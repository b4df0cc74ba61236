package pipeline

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cloudwise/docuproc/internal/config"
	"github.com/cloudwise/docuproc/internal/documents"
	"github.com/cloudwise/docuproc/internal/extraction"
	"github.com/cloudwise/docuproc/internal/matching"
	"github.com/cloudwise/docuproc/internal/notify"
	"github.com/cloudwise/docuproc/internal/results"
	"github.com/cloudwise/docuproc/internal/tasks"
	"github.com/cloudwise/docuproc/pkg/storage"
)

// The terminal commit only needs a transaction it can begin and commit;
// the stubbed systems never touch the connection underneath it.
type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConnector struct{}

func (stubConnector) Connect(context.Context) (driver.Conn, error) { return stubConn{}, nil }
func (stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubDocuments struct {
	documents.System
	findFn           func(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	markProcessingFn func(ctx context.Context, id uuid.UUID) error
	markPendingFn    func(ctx context.Context, id uuid.UUID) error
	completeTxFn     func(ctx context.Context, tx *sql.Tx, id uuid.UUID, processedAt time.Time) error
	failTxFn         func(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string, processedAt time.Time) error
}

func (s *stubDocuments) Find(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	return s.findFn(ctx, id)
}

func (s *stubDocuments) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	if s.markProcessingFn != nil {
		return s.markProcessingFn(ctx, id)
	}
	return nil
}

func (s *stubDocuments) MarkPending(ctx context.Context, id uuid.UUID) error {
	if s.markPendingFn != nil {
		return s.markPendingFn(ctx, id)
	}
	return nil
}

func (s *stubDocuments) CompleteTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, processedAt time.Time) error {
	if s.completeTxFn != nil {
		return s.completeTxFn(ctx, tx, id, processedAt)
	}
	return nil
}

func (s *stubDocuments) FailTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string, processedAt time.Time) error {
	if s.failTxFn != nil {
		return s.failTxFn(ctx, tx, id, reason, processedAt)
	}
	return nil
}

type stubQueue struct {
	tasks.System
	retryFn     func(ctx context.Context, id uuid.UUID, reason string, delay time.Duration) error
	releaseFn   func(ctx context.Context, id uuid.UUID, reason string) error
	succeedTxFn func(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	failTxFn    func(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string) error
}

func (s *stubQueue) Retry(ctx context.Context, id uuid.UUID, reason string, delay time.Duration) error {
	if s.retryFn != nil {
		return s.retryFn(ctx, id, reason, delay)
	}
	return nil
}

func (s *stubQueue) Release(ctx context.Context, id uuid.UUID, reason string) error {
	if s.releaseFn != nil {
		return s.releaseFn(ctx, id, reason)
	}
	return nil
}

func (s *stubQueue) SucceedTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	if s.succeedTxFn != nil {
		return s.succeedTxFn(ctx, tx, id)
	}
	return nil
}

func (s *stubQueue) FailTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string) error {
	if s.failTxFn != nil {
		return s.failTxFn(ctx, tx, id, reason)
	}
	return nil
}

type stubResults struct {
	results.System
	upsertTxFn func(ctx context.Context, tx *sql.Tx, cmd results.UpsertCommand) (*results.ProcessingResult, error)
}

func (s *stubResults) UpsertTx(ctx context.Context, tx *sql.Tx, cmd results.UpsertCommand) (*results.ProcessingResult, error) {
	if s.upsertTxFn != nil {
		return s.upsertTxFn(ctx, tx, cmd)
	}
	return &results.ProcessingResult{}, nil
}

type stubStorage struct {
	storage.System
	downloadFn func(ctx context.Context, key string) (io.ReadCloser, error)
}

func (s *stubStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.downloadFn(ctx, key)
}

type stubExtractor struct {
	extractFn func(ctx context.Context, data []byte, contentType, filename string) (*extraction.Result, error)
}

func (s *stubExtractor) Extract(ctx context.Context, data []byte, contentType, filename string) (*extraction.Result, error) {
	return s.extractFn(ctx, data, contentType, filename)
}

type stubMatcher struct {
	matchFn func(ctx context.Context, fields map[extraction.Field]extraction.Candidate) (*matching.Set, error)
}

func (s *stubMatcher) Match(ctx context.Context, fields map[extraction.Field]extraction.Candidate) (*matching.Set, error) {
	return s.matchFn(ctx, fields)
}

type stubNotifier struct {
	completions []notify.Completion
	failures    []notify.Failure
}

func (s *stubNotifier) DocumentCompleted(ctx context.Context, c notify.Completion) {
	s.completions = append(s.completions, c)
}

func (s *stubNotifier) DocumentFailed(ctx context.Context, f notify.Failure) {
	s.failures = append(s.failures, f)
}

func testPipelineConfig(t *testing.T) config.PipelineConfig {
	t.Helper()
	var cfg config.PipelineConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize pipeline config: %v", err)
	}
	return cfg
}

func testScoringConfig(t *testing.T) config.ScoringConfig {
	t.Helper()
	var cfg config.ScoringConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize scoring config: %v", err)
	}
	return cfg
}

func newTestPipeline(
	t *testing.T,
	docs *stubDocuments,
	queue *stubQueue,
	res *stubResults,
	store *stubStorage,
	ext *stubExtractor,
	match *stubMatcher,
	ntf *stubNotifier,
) *Pipeline {
	t.Helper()
	db := sql.OpenDB(stubConnector{})
	t.Cleanup(func() { db.Close() })

	return New(
		db,
		docs,
		res,
		queue,
		store,
		ext,
		match,
		ntf,
		testPipelineConfig(t),
		testScoringConfig(t),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func testDocument() *documents.Document {
	return &documents.Document{
		ID:          uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Filename:    "notice.txt",
		ContentType: "text/plain",
		StorageKey:  "documents/550e8400-e29b-41d4-a716-446655440000/notice.txt",
		Status:      documents.StatusPending,
	}
}

func testTask(attempt int) *tasks.Task {
	return &tasks.Task{
		ID:         uuid.New(),
		DocumentID: uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Status:     tasks.StatusRunning,
		Attempt:    attempt,
	}
}

func textBlob(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func TestProcessCorruptDocumentFailsWithoutRetry(t *testing.T) {
	doc := testDocument()
	task := testTask(1)

	var docFailed, taskFailed, retried bool
	var failReason string

	docs := &stubDocuments{
		findFn: func(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
			return doc, nil
		},
		failTxFn: func(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string, processedAt time.Time) error {
			docFailed = true
			failReason = reason
			return nil
		},
	}
	queue := &stubQueue{
		retryFn: func(ctx context.Context, id uuid.UUID, reason string, delay time.Duration) error {
			retried = true
			return nil
		},
		failTxFn: func(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string) error {
			taskFailed = true
			return nil
		},
	}
	store := &stubStorage{
		downloadFn: func(ctx context.Context, key string) (io.ReadCloser, error) {
			return textBlob("garbage"), nil
		},
	}
	ext := &stubExtractor{
		extractFn: func(ctx context.Context, data []byte, contentType, filename string) (*extraction.Result, error) {
			return nil, extraction.ErrUnreadable
		},
	}
	ntf := &stubNotifier{}

	p := newTestPipeline(t, docs, queue, &stubResults{}, store, ext, &stubMatcher{}, ntf)
	p.process(context.Background(), p.logger, task)

	if !docFailed || !taskFailed {
		t.Errorf("terminal failure not committed: doc=%v task=%v", docFailed, taskFailed)
	}
	if retried {
		t.Error("unreadable document must not consume a retry")
	}
	if !strings.Contains(failReason, "extract") {
		t.Errorf("failure reason should name the stage: %q", failReason)
	}
	if len(ntf.failures) != 1 {
		t.Errorf("failures notified: got %d, want 1", len(ntf.failures))
	}
}

func TestProcessTransientErrorRequeuesWithBackoff(t *testing.T) {
	doc := testDocument()
	task := testTask(2)

	var gotDelay time.Duration
	var retried, markedPending, failed bool

	docs := &stubDocuments{
		findFn: func(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
			return doc, nil
		},
		markPendingFn: func(ctx context.Context, id uuid.UUID) error {
			markedPending = true
			return nil
		},
		failTxFn: func(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string, processedAt time.Time) error {
			failed = true
			return nil
		},
	}
	queue := &stubQueue{
		retryFn: func(ctx context.Context, id uuid.UUID, reason string, delay time.Duration) error {
			retried = true
			gotDelay = delay
			return nil
		},
	}
	store := &stubStorage{
		downloadFn: func(ctx context.Context, key string) (io.ReadCloser, error) {
			return nil, errors.New("connection reset")
		},
	}

	p := newTestPipeline(t, docs, queue, &stubResults{}, store, &stubExtractor{}, &stubMatcher{}, &stubNotifier{})
	p.process(context.Background(), p.logger, task)

	if !retried {
		t.Fatal("transient failure should requeue the task")
	}
	if failed {
		t.Error("transient failure must not fail the document")
	}
	if !markedPending {
		t.Error("document should return to pending after requeue")
	}

	want := tasks.Backoff(task.Attempt, p.config.BackoffBaseDuration(), p.config.BackoffCapDuration())
	if gotDelay != want {
		t.Errorf("backoff delay: got %v, want %v", gotDelay, want)
	}
}

func TestProcessExhaustedAttemptsFail(t *testing.T) {
	doc := testDocument()

	var retried, docFailed, taskFailed bool
	var failReason string

	docs := &stubDocuments{
		findFn: func(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
			return doc, nil
		},
		failTxFn: func(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string, processedAt time.Time) error {
			docFailed = true
			failReason = reason
			return nil
		},
	}
	queue := &stubQueue{
		retryFn: func(ctx context.Context, id uuid.UUID, reason string, delay time.Duration) error {
			retried = true
			return nil
		},
		failTxFn: func(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string) error {
			taskFailed = true
			return nil
		},
	}
	store := &stubStorage{
		downloadFn: func(ctx context.Context, key string) (io.ReadCloser, error) {
			return nil, errors.New("connection reset")
		},
	}
	ntf := &stubNotifier{}

	p := newTestPipeline(t, docs, queue, &stubResults{}, store, &stubExtractor{}, &stubMatcher{}, ntf)
	task := testTask(p.config.MaxAttempts)
	p.process(context.Background(), p.logger, task)

	if retried {
		t.Error("exhausted budget must not requeue")
	}
	if !docFailed || !taskFailed {
		t.Errorf("exhausted budget should fail terminally: doc=%v task=%v", docFailed, taskFailed)
	}
	if !strings.Contains(failReason, "attempts exhausted") {
		t.Errorf("failure reason: %q", failReason)
	}
	if len(ntf.failures) != 1 || ntf.failures[0].Attempt != task.Attempt {
		t.Errorf("failure notification: %+v", ntf.failures)
	}
}

func TestProcessShutdownReleasesClaim(t *testing.T) {
	doc := testDocument()
	task := testTask(3)

	var released, retried, failed, markedPending bool

	docs := &stubDocuments{
		findFn: func(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
			return doc, nil
		},
		markPendingFn: func(ctx context.Context, id uuid.UUID) error {
			markedPending = true
			return nil
		},
		failTxFn: func(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string, processedAt time.Time) error {
			failed = true
			return nil
		},
	}
	queue := &stubQueue{
		retryFn: func(ctx context.Context, id uuid.UUID, reason string, delay time.Duration) error {
			retried = true
			return nil
		},
		releaseFn: func(ctx context.Context, id uuid.UUID, reason string) error {
			released = true
			return nil
		},
	}
	store := &stubStorage{
		downloadFn: func(ctx context.Context, key string) (io.ReadCloser, error) {
			return nil, ctx.Err()
		},
	}

	p := newTestPipeline(t, docs, queue, &stubResults{}, store, &stubExtractor{}, &stubMatcher{}, &stubNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.process(ctx, p.logger, task)

	if !released {
		t.Fatal("shutdown should release the claim")
	}
	if retried || failed {
		t.Errorf("shutdown must not burn the attempt: retried=%v failed=%v", retried, failed)
	}
	if !markedPending {
		t.Error("document should return to pending after release")
	}
}

func TestProcessSuccessCommitsAndNotifies(t *testing.T) {
	doc := testDocument()
	task := testTask(1)
	recordID := uuid.New()

	var upserted *results.UpsertCommand
	var completed, succeeded, retried, failed bool

	docs := &stubDocuments{
		findFn: func(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
			return doc, nil
		},
		completeTxFn: func(ctx context.Context, tx *sql.Tx, id uuid.UUID, processedAt time.Time) error {
			completed = true
			return nil
		},
		failTxFn: func(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string, processedAt time.Time) error {
			failed = true
			return nil
		},
	}
	queue := &stubQueue{
		retryFn: func(ctx context.Context, id uuid.UUID, reason string, delay time.Duration) error {
			retried = true
			return nil
		},
		succeedTxFn: func(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
			succeeded = true
			return nil
		},
	}
	res := &stubResults{
		upsertTxFn: func(ctx context.Context, tx *sql.Tx, cmd results.UpsertCommand) (*results.ProcessingResult, error) {
			upserted = &cmd
			return &results.ProcessingResult{}, nil
		},
	}
	store := &stubStorage{
		downloadFn: func(ctx context.Context, key string) (io.ReadCloser, error) {
			return textBlob("Dear John Smith, invoice INV-100001 totals $1,250.00."), nil
		},
	}
	ext := &stubExtractor{
		extractFn: func(ctx context.Context, data []byte, contentType, filename string) (*extraction.Result, error) {
			return &extraction.Result{
				Text: string(data),
				Fields: map[extraction.Field]extraction.Candidate{
					extraction.FieldCustomerName:  {Value: "John Smith", Confidence: 0.8},
					extraction.FieldInvoiceNumber: {Value: "INV-100001", Confidence: 1.0},
				},
			}, nil
		},
	}
	match := &stubMatcher{
		matchFn: func(ctx context.Context, fields map[extraction.Field]extraction.Candidate) (*matching.Set, error) {
			return &matching.Set{
				Customer: matching.Match{Evaluated: true, Score: 1.0, RecordID: &recordID, Method: matching.MethodFuzzyName},
				Invoice:  matching.Match{Evaluated: true, Score: 0.9, RecordID: &recordID, Method: matching.MethodExactKey},
			}, nil
		},
	}
	ntf := &stubNotifier{}

	p := newTestPipeline(t, docs, queue, res, store, ext, match, ntf)
	p.process(context.Background(), p.logger, task)

	if retried || failed {
		t.Fatalf("success routed elsewhere: retried=%v failed=%v", retried, failed)
	}
	if !completed || !succeeded {
		t.Errorf("terminal commit incomplete: document=%v task=%v", completed, succeeded)
	}
	if upserted == nil {
		t.Fatal("result not upserted")
	}

	// Present dimensions: customer 1.0, invoice 0.9, quality (0.8+1.0)/2.
	// Policy never evaluated, so it is excluded, not zeroed.
	wantOverall := (1.0 + 0.9 + 0.9) / 3.0
	if math.Abs(upserted.OverallScore-wantOverall) > 1e-9 {
		t.Errorf("overall score: got %f, want %f", upserted.OverallScore, wantOverall)
	}
	if upserted.RequiresManualReview {
		t.Error("high-confidence run should not require review")
	}
	if upserted.PolicyMatchScore != nil {
		t.Errorf("absent policy dimension should persist NULL, got %v", *upserted.PolicyMatchScore)
	}
	if upserted.DataQualityScore == nil || math.Abs(*upserted.DataQualityScore-0.9) > 1e-9 {
		t.Errorf("data quality score: got %v", upserted.DataQualityScore)
	}

	if len(ntf.completions) != 1 {
		t.Fatalf("completions notified: got %d, want 1", len(ntf.completions))
	}
	if math.Abs(ntf.completions[0].OverallScore-wantOverall) > 1e-9 {
		t.Errorf("notified score: got %f", ntf.completions[0].OverallScore)
	}
}
