package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the backend's failure envelope: the HTTP status plus the response
// body text. Status 401 is the distinguished unauthorized condition; callers
// route it through the access gate instead of the generic error path.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a backend 401.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
