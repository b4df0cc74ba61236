package extraction

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// extractPDF validates the payload with pdfcpu and pulls the embedded text
// layer. Scanned PDFs without a text layer yield ErrEmptyDocument; OCR is an
// external concern.
func extractPDF(data []byte) (string, error) {
	if _, err := api.PageCount(bytes.NewReader(data), nil); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	return buf.String(), nil
}
