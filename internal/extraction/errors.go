package extraction

import "errors"

// Extraction failures are terminal: retrying the same bytes cannot succeed.
var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrUnreadable      = errors.New("document is corrupt or unreadable")
	ErrEmptyDocument   = errors.New("document contains no extractable text")
)
