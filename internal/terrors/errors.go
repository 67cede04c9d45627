// Package terrors defines the error-kind taxonomy shared across tpccstore.
//
// Business errors (ErrKeyNotFound, ErrDuplicateKey, ErrArgumentOutOfRange)
// are returned to callers as ordinary Go errors. Invariant violations
// (ErrSchemaViolation, ErrUnknownEnumID, ErrModelInconsistency) indicate an
// implementation bug and are raised with panic, never returned quietly.
package terrors

import "errors"

var (
	ErrArgumentOutOfRange   = errors.New("tpccstore: argument out of range")
	ErrDuplicateKey         = errors.New("tpccstore: duplicate key")
	ErrKeyNotFound          = errors.New("tpccstore: key not found")
	ErrSchemaViolation      = errors.New("tpccstore: schema violation")
	ErrUnknownEnumID        = errors.New("tpccstore: unknown enum id")
	ErrEnumCapacityExceeded = errors.New("tpccstore: enum capacity exceeded")
	ErrModelInconsistency   = errors.New("tpccstore: model inconsistency")
)

// IoFailure wraps an underlying I/O error from the direct-I/O page file.
// The current transaction must abort when it sees one; the process itself
// does not need to die.
type IoFailure struct {
	Op  string
	Err error
}

func (e *IoFailure) Error() string { return "tpccstore: io failure during " + e.Op + ": " + e.Err.Error() }

func (e *IoFailure) Unwrap() error { return e.Err }

func NewIoFailure(op string, err error) error {
	return &IoFailure{Op: op, Err: err}
}
