package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// IsValidation reports whether the backend rejected the request as invalid.
// Every 4xx qualifies except 408 and 429, which only ask for a later retry.
func IsValidation(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return statusErr.Status >= http.StatusBadRequest && statusErr.Status < http.StatusInternalServerError
}

// IsTransient reports whether the request may succeed later: a 5xx, 408 or
// 429 answer or a transport failure.
func IsTransient(err error) bool {
	return err != nil && !IsValidation(err)
}
