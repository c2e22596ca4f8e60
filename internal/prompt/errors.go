package prompt

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError signals that no row matched a lookup. Lookups never treat
// an absent row as a store failure.
type NotFoundError struct {
	Resource string // "prompt", "live version", ...
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// DuplicateVersionError signals a (name, version) uniqueness violation.
type DuplicateVersionError struct {
	Name    string
	Version string
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("prompt %q already has version %q", e.Name, e.Version)
}

// ReferencedError blocks a hard delete while the injected referenced-check
// predicate reports the version as in use.
type ReferencedError struct {
	ID uuid.UUID
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("prompt %s is referenced by other resources", e.ID)
}

// ValidationError reports malformed input the engine itself checks.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError classifies an underlying persistence failure. The operation it
// wraps has been fully rolled back.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsDuplicateVersion(err error) bool {
	var d *DuplicateVersionError
	return errors.As(err, &d)
}

func IsReferenced(err error) bool {
	var r *ReferencedError
	return errors.As(err, &r)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
