package reference

import (
	"errors"
	"net/http"
)

// Domain errors for ledger operations.
var (
	ErrNotFound  = errors.New("reference record not found")
	ErrDuplicate = errors.New("reference record already exists")
)

// MapHTTPStatus maps ledger domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
