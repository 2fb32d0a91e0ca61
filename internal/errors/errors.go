package errors

import (
	"errors"
	"fmt"
	"time"
)

// Category identifies an error family. Error strings always begin with the
// category name so callers that only see the string can still classify.
type Category string

const (
	CategoryPathNotFound           Category = "PathNotFound"
	CategoryInvalidInput           Category = "InvalidInput"
	CategoryIndexingAlreadyRunning Category = "IndexingAlreadyRunning"
	CategoryIndexingCancelled      Category = "IndexingCancelled"
	CategoryTimeout                Category = "Timeout"
	CategoryInternal               Category = "InternalError"
)

type categorized interface {
	ErrorCategory() Category
}

// CategoryOf classifies an error. Unknown errors map to InternalError.
func CategoryOf(err error) Category {
	var c categorized
	if errors.As(err, &c) {
		return c.ErrorCategory()
	}
	return CategoryInternal
}

// Is reports whether err belongs to the given category.
func Is(err error, cat Category) bool {
	return err != nil && CategoryOf(err) == cat
}

// PathError reports an operation against a path that does not exist in the
// filesystem or in the index.
type PathError struct {
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewPathNotFound(op, path string, err error) *PathError {
	return &PathError{Path: path, Operation: op, Underlying: err, Timestamp: time.Now()}
}

func (e *PathError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s failed for %s: %v", CategoryPathNotFound, e.Operation, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s: %s failed for %s", CategoryPathNotFound, e.Operation, e.Path)
}

func (e *PathError) Unwrap() error { return e.Underlying }

func (e *PathError) ErrorCategory() Category { return CategoryPathNotFound }

// InputError reports a caller-supplied argument that fails validation, such
// as an empty query or an empty extension filter.
type InputError struct {
	Field     string
	Reason    string
	Timestamp time.Time
}

func NewInvalidInput(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason, Timestamp: time.Now()}
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s %s", CategoryInvalidInput, e.Field, e.Reason)
}

func (e *InputError) ErrorCategory() Category { return CategoryInvalidInput }

// IndexingError reports background-indexing lifecycle failures.
type IndexingError struct {
	Cat        Category // IndexingAlreadyRunning or IndexingCancelled
	Root       string
	Underlying error
	Timestamp  time.Time
}

func NewIndexingAlreadyRunning(root string) *IndexingError {
	return &IndexingError{Cat: CategoryIndexingAlreadyRunning, Root: root, Timestamp: time.Now()}
}

func NewIndexingCancelled(root string) *IndexingError {
	return &IndexingError{Cat: CategoryIndexingCancelled, Root: root, Timestamp: time.Now()}
}

func (e *IndexingError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: indexing of %s: %v", e.Cat, e.Root, e.Underlying)
	}
	return fmt.Sprintf("%s: indexing of %s", e.Cat, e.Root)
}

func (e *IndexingError) Unwrap() error { return e.Underlying }

func (e *IndexingError) ErrorCategory() Category { return e.Cat }

// TimeoutError reports an operation that exceeded its configured deadline.
// Engine search does not return it: a search past its deadline returns the
// partial results ranked so far with a nil error.
type TimeoutError struct {
	Operation string
	Elapsed   time.Duration
	Timestamp time.Time
}

func NewTimeout(op string, elapsed time.Duration) *TimeoutError {
	return &TimeoutError{Operation: op, Elapsed: elapsed, Timestamp: time.Now()}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s exceeded deadline after %s", CategoryTimeout, e.Operation, e.Elapsed)
}

func (e *TimeoutError) ErrorCategory() Category { return CategoryTimeout }

// InternalError reports unexpected failures: I/O errors outside the walker's
// per-entry recovery, or invariant violations.
type InternalError struct {
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewInternal(op string, err error) *InternalError {
	return &InternalError{Operation: op, Underlying: err, Timestamp: time.Now()}
}

func (e *InternalError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", CategoryInternal, e.Operation, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", CategoryInternal, e.Operation)
}

func (e *InternalError) Unwrap() error { return e.Underlying }

func (e *InternalError) ErrorCategory() Category { return CategoryInternal }
