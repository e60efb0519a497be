package generations

import "errors"

var (
	// ErrNotFound indicates the generation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the generation belongs to another user.
	ErrForbidden = errors.New("forbidden")

	// ErrFileRequired is returned when no resume file was supplied.
	ErrFileRequired = errors.New("resume file is required")

	// ErrNotReady is returned when artifacts of an unfinished or failed run are requested.
	ErrNotReady = errors.New("generation not ready")

	// ErrStorage wraps object store failures while saving inputs or artifacts.
	ErrStorage = errors.New("artifact storage failed")
)
