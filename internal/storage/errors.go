package storage

import "errors"

// Sentinel errors for the storage layer. Adapters wrap backend-specific
// failures into one of these so callers can branch with errors.Is.
var (
	ErrMalformedID = errors.New("malformed identifier")
	ErrNotFound    = errors.New("record not found")
	ErrConstraint  = errors.New("constraint violation")
	ErrUnavailable = errors.New("storage unavailable")
	ErrValidation  = errors.New("validation failure")
	ErrTimeout     = errors.New("timeout exceeded")
	ErrTenantScope = errors.New("tenant context required")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConstraint(err error) bool {
	return errors.Is(err, ErrConstraint)
}
