package results

import (
	"errors"
	"net/http"
)

// Domain errors for result operations.
var (
	ErrNotFound  = errors.New("processing result not found")
	ErrDuplicate = errors.New("processing result already exists")
)

// MapHTTPStatus maps result domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
