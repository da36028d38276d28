// Package apperr defines the error taxonomy shared across gebo.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a remote task or list cannot be resolved.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a document that exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNoList is returned when no destination list can be resolved for a
	// remote create.
	ErrNoList = errors.New("no destination list available")
)

// APIError is a non-2xx response from the remote task service. Indexing
// failures carrying this error abort the whole pass; write-back failures
// only abandon the affected pair.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api: status %d: %s", e.Status, e.Body)
}

// AsAPIError extracts an APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
