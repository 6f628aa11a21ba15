package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")

	// ErrVersionConflict is returned when a compare-and-swap update finds a
	// newer version than the one the caller read.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidTransition is returned when a calibration status change would
	// move backwards or skip its guard.
	ErrInvalidTransition = errors.New("invalid calibration transition")

	// ErrClosed is returned when answering a challenge that was already
	// expired or answered.
	ErrClosed = errors.New("challenge closed")
)

// StorageError wraps a failure of the underlying database. It is transient
// from the caller's point of view: the same operation may succeed on retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// wrap classifies a database error. Uniqueness violations become ErrDuplicate,
// references to a missing user or skill become ErrNotFound, everything else
// a *StorageError.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageFailure reports whether err came from the database layer.
func IsStorageFailure(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
