// Package types holds the error kinds shared by every layer of the archive.
//
// Packages wrap these sentinels with their own context, for example
//
//	fmt.Errorf("people: %w: slug %q escapes records root", types.ErrInvalidInput, slug)
//
// so callers classify failures with errors.Is without depending on the
// package that produced them.
package types

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidInput marks malformed caller input: bad identifiers, path
	// escapes, a file squatting on a reserved directory name.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermission marks a target the process cannot write to.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound marks an absent record where the operation requires one.
	// Lookups that treat absence as a normal outcome do not return it.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt marks a document that exists but does not parse or does not
	// satisfy the record schema.
	ErrCorrupt = errors.New("data corruption")
)

// HTTPStatus maps an error onto the status code the API reports for it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCorrupt):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
