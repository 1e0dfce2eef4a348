// Package errs defines the sentinel errors shared across colvals packages.
//
// Errors the library detects itself wrap one of these sentinels, so callers
// can classify them with errors.Is without parsing messages. Errors from the
// underlying io.Writers are returned as they come:
//
//	if errors.Is(err, errs.ErrInvariant) {
//	    // caller bug: malformed cursor input
//	}
package errs

import "errors"

var (
	// ErrClosed is returned when a field is added to a writer after Close.
	ErrClosed = errors.New("writer already closed")

	// ErrInvariant indicates a caller bug: the input violated a contract the
	// codec relies on (ordinals not starting at 0, GCD compression on
	// ordinals, a term cursor yielding a different count than declared).
	// The segment being written is invalid.
	ErrInvariant = errors.New("invariant violation")

	// ErrInvalidConfig is returned for out-of-range writer configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrValueOutOfRange is returned when a value does not fit the declared
	// bit width of a packed writer.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrTooManyValues is returned when more values are added to a packed
	// writer than were declared at creation.
	ErrTooManyValues = errors.New("too many values")

	// ErrValueCountMismatch is returned when a packed writer is finished
	// before all declared values were added.
	ErrValueCountMismatch = errors.New("value count mismatch")

	// ErrNonMonotonic is returned when a value added to a monotonic writer
	// is smaller than its predecessor.
	ErrNonMonotonic = errors.New("sequence not monotonic")

	// ErrTermOrder is returned when the term cursor yields terms that are
	// not in strictly ascending byte order.
	ErrTermOrder = errors.New("terms out of order")

	// ErrDocOrder is returned when a doc-value cursor yields document ids
	// that are not strictly increasing.
	ErrDocOrder = errors.New("docs out of order")
)
