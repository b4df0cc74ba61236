// Package documents implements the document domain: upload and registration,
// blob storage integration, and the status lifecycle owned by the processing
// pipeline once a document is enqueued.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Document statuses. A document is Pending until a worker claims its task,
// Processing only inside a worker's ownership window, and terminal afterwards.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document represents a registered document with its metadata and blob storage reference.
// ProcessedAt is set once, on the terminal transition. FailureReason is populated
// only for failed documents and is the operator-visible explanation.
type Document struct {
	ID            uuid.UUID  `json:"id"`
	Filename      string     `json:"filename"`
	ContentType   string     `json:"content_type"`
	SizeBytes     int64      `json:"size_bytes"`
	PageCount     *int       `json:"page_count"`
	StorageKey    string     `json:"storage_key"`
	Status        string     `json:"status"`
	FailureReason *string    `json:"failure_reason"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Terminal reports whether the document has reached a terminal status.
func (d *Document) Terminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed
}

// CreateCommand carries the data needed to upload and register a new document.
// Data holds the raw file bytes. PageCount is optional and extracted by the
// caller via pdfcpu for PDF uploads; nil values are stored as NULL.
type CreateCommand struct {
	Data        []byte
	Filename    string
	ContentType string
	PageCount   *int
}
