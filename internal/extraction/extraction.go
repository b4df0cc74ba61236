// Package extraction turns stored document bytes into structured candidate
// fields for the matching engine. It handles PDF, RFC 5322 email, and plain
// text payloads; per-field confidences feed the data quality dimension.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
)

// Field names a candidate value recovered from a document.
type Field string

const (
	FieldCustomerName  Field = "customer_name"
	FieldCustomerEmail Field = "customer_email"
	FieldPolicyNumber  Field = "policy_number"
	FieldInvoiceNumber Field = "invoice_number"
	FieldAmount        Field = "amount"
	FieldDate          Field = "date"
)

// Candidate is one recovered field value. Alternates carry lower-confidence
// candidates for the same field, best first; the matching engine considers
// all of them.
type Candidate struct {
	Value      string   `json:"value"`
	Alternates []string `json:"alternates,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Values returns the candidate value and its alternates as one slice.
func (c Candidate) Values() []string {
	return append([]string{c.Value}, c.Alternates...)
}

// Result is the structured output of the extraction stage. Absent fields
// propagate as unmatched dimensions downstream; partial extraction is not
// an error.
type Result struct {
	Text   string              `json:"text"`
	Fields map[Field]Candidate `json:"fields"`
}

// DataQuality returns the mean of per-field confidences, or 0 when no
// fields were extracted.
func (r *Result) DataQuality() float64 {
	if len(r.Fields) == 0 {
		return 0
	}

	sum := 0.0
	for _, c := range r.Fields {
		sum += c.Confidence
	}
	return sum / float64(len(r.Fields))
}

// Extractor produces a Result from stored document bytes and the declared
// media type. Extract has no side effects beyond reading its inputs.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType, filename string) (*Result, error)
}

type extractor struct {
	logger *slog.Logger
}

// New creates the default extractor.
func New(logger *slog.Logger) Extractor {
	return &extractor{
		logger: logger.With("system", "extraction"),
	}
}

func (e *extractor) Extract(ctx context.Context, data []byte, contentType, filename string) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	var (
		text string
		err  error
	)

	switch detectKind(contentType, filename) {
	case kindPDF:
		text, err = extractPDF(data)
	case kindEmail:
		text, err = extractEmail(data)
	case kindText:
		text = string(data)
	default:
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, filename, contentType)
	}

	if err != nil {
		return nil, err
	}

	normalized := NormalizeText(text)
	if normalized == "" {
		return nil, ErrEmptyDocument
	}

	fields := ExtractFields(normalized)

	e.logger.Debug(
		"extraction complete",
		"filename", filename,
		"text_length", len(normalized),
		"field_count", len(fields),
	)

	return &Result{Text: normalized, Fields: fields}, nil
}

type documentKind int

const (
	kindUnknown documentKind = iota
	kindPDF
	kindEmail
	kindText
)

func detectKind(contentType, filename string) documentKind {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	switch mediaType {
	case "application/pdf":
		return kindPDF
	case "message/rfc822":
		return kindEmail
	case "text/plain":
		return kindText
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return kindPDF
	case ".eml":
		return kindEmail
	case ".txt":
		return kindText
	}

	return kindUnknown
}
