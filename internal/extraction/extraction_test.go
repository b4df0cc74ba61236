package extraction_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/cloudwise/docuproc/internal/extraction"
)

func testExtractor() extraction.Extractor {
	return extraction.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractPlainText(t *testing.T) {
	data := []byte("Dear John Doe,\n\nInvoice INV-4821 totals $99.95, due 04/01/2026.")

	result, err := testExtractor().Extract(context.Background(), data, "text/plain", "notice.txt")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if !strings.Contains(result.Text, "INV-4821") {
		t.Errorf("text lost content: %q", result.Text)
	}
	if _, ok := result.Fields[extraction.FieldInvoiceNumber]; !ok {
		t.Error("invoice number not extracted")
	}
	if _, ok := result.Fields[extraction.FieldCustomerName]; !ok {
		t.Error("customer name not extracted")
	}
}

func TestExtractEmail(t *testing.T) {
	raw := strings.Join([]string{
		"From: billing@example.com",
		"To: jane.smith@example.com",
		"Subject: Payment reminder",
		"Date: Mon, 02 Mar 2026 10:00:00 +0000",
		"Content-Type: text/plain",
		"",
		"Dear Jane Smith,",
		"",
		"Policy POL123456 renews soon. Amount due: $430.00.",
	}, "\r\n")

	result, err := testExtractor().Extract(context.Background(), []byte(raw), "message/rfc822", "reminder.eml")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if _, ok := result.Fields[extraction.FieldPolicyNumber]; !ok {
		t.Error("policy number not extracted")
	}
	if c, ok := result.Fields[extraction.FieldCustomerEmail]; !ok {
		t.Error("email not extracted")
	} else if c.Value == "" {
		t.Error("email candidate empty")
	}
}

func TestExtractEmailMultipart(t *testing.T) {
	raw := strings.Join([]string{
		"From: billing@example.com",
		"Subject: Invoice attached",
		`Content-Type: multipart/mixed; boundary="frontier"`,
		"",
		"--frontier",
		"Content-Type: text/plain",
		"",
		"Invoice INV-100234 for $1,250.00 is attached.",
		"--frontier",
		"Content-Type: application/pdf",
		"",
		"%PDF-fake-binary-part",
		"--frontier--",
	}, "\r\n")

	result, err := testExtractor().Extract(context.Background(), []byte(raw), "message/rfc822", "invoice.eml")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if !strings.Contains(result.Text, "INV-100234") {
		t.Errorf("text/plain part lost: %q", result.Text)
	}
	if strings.Contains(result.Text, "PDF-fake-binary-part") {
		t.Error("non-text part leaked into extracted text")
	}
}

func TestExtractContentTypeFallsBackToExtension(t *testing.T) {
	data := []byte("Account note for Mr. Doe, reference B12345678.")

	result, err := testExtractor().Extract(context.Background(), data, "application/octet-stream", "note.txt")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if result.Text == "" {
		t.Error("expected extracted text")
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		filename    string
		wantErr     error
	}{
		{
			name:        "unsupported type",
			data:        []byte{0x01, 0x02},
			contentType: "image/png",
			filename:    "scan.png",
			wantErr:     extraction.ErrUnsupportedType,
		},
		{
			name:        "empty payload",
			data:        nil,
			contentType: "text/plain",
			filename:    "empty.txt",
			wantErr:     extraction.ErrEmptyDocument,
		},
		{
			name:        "whitespace-only text",
			data:        []byte("   \n\t  "),
			contentType: "text/plain",
			filename:    "blank.txt",
			wantErr:     extraction.ErrEmptyDocument,
		},
		{
			name:        "corrupt pdf",
			data:        []byte("not a pdf at all"),
			contentType: "application/pdf",
			filename:    "broken.pdf",
			wantErr:     extraction.ErrUnreadable,
		},
		{
			name:        "malformed email",
			data:        []byte("this is not an rfc822 message"),
			contentType: "message/rfc822",
			filename:    "broken.eml",
			wantErr:     extraction.ErrUnreadable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testExtractor().Extract(context.Background(), tt.data, tt.contentType, tt.filename)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCandidateValues(t *testing.T) {
	c := extraction.Candidate{Value: "a", Alternates: []string{"b", "c"}}

	values := c.Values()
	if len(values) != 3 || values[0] != "a" {
		t.Errorf("got %v", values)
	}
}

func TestResultDataQuality(t *testing.T) {
	r := &extraction.Result{
		Fields: map[extraction.Field]extraction.Candidate{
			extraction.FieldAmount:       {Value: "$1.00", Confidence: 0.8},
			extraction.FieldCustomerName: {Value: "Jane", Confidence: 0.6},
		},
	}
	if got := r.DataQuality(); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("got %f, want 0.7", got)
	}

	empty := &extraction.Result{}
	if got := empty.DataQuality(); got != 0 {
		t.Errorf("empty: got %f, want 0", got)
	}
}
