package extraction_test

import (
	"slices"
	"testing"

	"github.com/cloudwise/docuproc/internal/extraction"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses whitespace",
			in:   "Invoice  \t #12345\n\nDue soon",
			want: "Invoice #12345 Due soon",
		},
		{
			name: "normalizes date separators",
			in:   "Due 03-15-2026 or 3.1.26",
			want: "Due 03/15/2026 or 3/1/26",
		},
		{
			name: "trims surrounding whitespace",
			in:   "  hello  ",
			want: "hello",
		},
		{
			name: "empty input",
			in:   "   \n\t ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extraction.NormalizeText(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractFields(t *testing.T) {
	text := extraction.NormalizeText(`
		Dear Jane Smith,

		Your invoice INV-100234 for policy POL123456 is due 03/15/2026.
		Amount due: $1,250.00. Questions? Reply to billing@example.com.
	`)

	fields := extraction.ExtractFields(text)

	tests := []struct {
		field extraction.Field
		want  string
	}{
		{extraction.FieldCustomerName, "Jane Smith"},
		{extraction.FieldCustomerEmail, "billing@example.com"},
		{extraction.FieldInvoiceNumber, "INV-100234"},
		{extraction.FieldPolicyNumber, "POL123456"},
		{extraction.FieldAmount, "$1,250.00"},
		{extraction.FieldDate, "03/15/2026"},
	}

	for _, tt := range tests {
		c, ok := fields[tt.field]
		if !ok {
			t.Errorf("%s: not extracted", tt.field)
			continue
		}
		if c.Value != tt.want {
			t.Errorf("%s: got %q, want %q", tt.field, c.Value, tt.want)
		}
		if c.Confidence <= 0 || c.Confidence > 1 {
			t.Errorf("%s: confidence out of range: %f", tt.field, c.Confidence)
		}
	}
}

func TestExtractFieldsLabeledBeatsBare(t *testing.T) {
	text := "Reference GH7654321 relates to Policy Number: AB1234567."

	fields := extraction.ExtractFields(text)

	c, ok := fields[extraction.FieldPolicyNumber]
	if !ok {
		t.Fatal("policy number not extracted")
	}
	if c.Value != "AB1234567" {
		t.Errorf("labeled value should rank first: got %q", c.Value)
	}
	if !slices.Contains(c.Alternates, "GH7654321") {
		t.Errorf("bare pattern should survive as alternate: %v", c.Alternates)
	}
}

func TestExtractFieldsDeduplicates(t *testing.T) {
	text := "Invoice #100234 and again invoice #100234."

	fields := extraction.ExtractFields(text)

	c, ok := fields[extraction.FieldInvoiceNumber]
	if !ok {
		t.Fatal("invoice number not extracted")
	}
	if len(c.Alternates) != 0 {
		t.Errorf("duplicate value should collapse: %v", c.Alternates)
	}
}

func TestExtractFieldsEmptyText(t *testing.T) {
	fields := extraction.ExtractFields("no reconcilable signal here")
	for f := range fields {
		switch f {
		case extraction.FieldCustomerName, extraction.FieldCustomerEmail,
			extraction.FieldPolicyNumber, extraction.FieldInvoiceNumber,
			extraction.FieldAmount, extraction.FieldDate:
		default:
			t.Errorf("unexpected field: %s", f)
		}
	}
	if _, ok := fields[extraction.FieldAmount]; ok {
		t.Error("amount extracted from text without amounts")
	}
}
