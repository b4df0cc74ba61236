// Package notify publishes terminal document transitions as CloudEvents.
// Delivery is post-commit and at-most-once: a failed delivery is logged,
// never retried, and never blocks the pipeline.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/cloudwise/docuproc/internal/config"
)

// Event types emitted on terminal transitions.
const (
	TypeDocumentCompleted = "com.cloudwise.docuproc.document.completed"
	TypeDocumentFailed    = "com.cloudwise.docuproc.document.failed"
)

// Completion describes a document that finished processing.
type Completion struct {
	DocumentID           uuid.UUID `json:"document_id"`
	OverallScore         float64   `json:"overall_score"`
	RequiresManualReview bool      `json:"requires_manual_review"`
	ProcessedAt          time.Time `json:"processed_at"`
}

// Failure describes a document whose processing exhausted its attempts or
// hit a terminal error.
type Failure struct {
	DocumentID  uuid.UUID `json:"document_id"`
	Reason      string    `json:"reason"`
	Attempt     int       `json:"attempt"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Notifier delivers terminal transition events. Implementations must not
// return delivery failures to callers; the pipeline's outcome is already
// committed when these run.
type Notifier interface {
	DocumentCompleted(ctx context.Context, c Completion)
	DocumentFailed(ctx context.Context, f Failure)
}

// New creates a Notifier for the given configuration. Without a sink URL
// transitions are logged only.
func New(logger *slog.Logger, cfg config.NotifyConfig) (Notifier, error) {
	logger = logger.With("system", "notify")

	if !cfg.Enabled() {
		return &logNotifier{logger: logger}, nil
	}

	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("create cloudevents client: %w", err)
	}

	return &sinkNotifier{
		client: client,
		sink:   cfg.SinkURL,
		source: cfg.Source,
		logger: logger,
	}, nil
}

type sinkNotifier struct {
	client cloudevents.Client
	sink   string
	source string
	logger *slog.Logger
}

func (n *sinkNotifier) DocumentCompleted(ctx context.Context, c Completion) {
	n.send(ctx, TypeDocumentCompleted, c.DocumentID, c)
}

func (n *sinkNotifier) DocumentFailed(ctx context.Context, f Failure) {
	n.send(ctx, TypeDocumentFailed, f.DocumentID, f)
}

func (n *sinkNotifier) send(ctx context.Context, eventType string, documentID uuid.UUID, data any) {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetType(eventType)
	event.SetSource(n.source)
	event.SetSubject(documentID.String())
	event.SetTime(time.Now().UTC())

	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		n.logger.Error("encode event", "type", eventType, "document_id", documentID, "error", err)
		return
	}

	result := n.client.Send(cloudevents.ContextWithTarget(ctx, n.sink), event)
	if cloudevents.IsUndelivered(result) {
		n.logger.Warn(
			"event delivery failed",
			"type", eventType,
			"document_id", documentID,
			"sink", n.sink,
			"error", result,
		)
		return
	}

	n.logger.Debug("event delivered", "type", eventType, "document_id", documentID)
}

type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) DocumentCompleted(ctx context.Context, c Completion) {
	n.logger.Info(
		"document completed",
		"document_id", c.DocumentID,
		"overall_score", c.OverallScore,
		"requires_manual_review", c.RequiresManualReview,
	)
}

func (n *logNotifier) DocumentFailed(ctx context.Context, f Failure) {
	n.logger.Info(
		"document failed",
		"document_id", f.DocumentID,
		"reason", f.Reason,
		"attempt", f.Attempt,
	)
}
