package core

import "errors"

// Configuration errors. They are returned before any statement reaches the connector.
var (
	// ErrMissingConnector is returned when an Executor is created without a storage connector.
	ErrMissingConnector = errors.New("storage connector is not configured")
	// ErrMissingTable is returned when a statement has no target table.
	ErrMissingTable = errors.New("target table is not configured")
	// ErrMissingJoinCondition is returned when a joined table has no ON predicate.
	ErrMissingJoinCondition = errors.New("join condition is not configured")
	// ErrMissingID is returned when an update or delete has no record id.
	ErrMissingID = errors.New("record id is required")
	// ErrNoValues is returned when an insert or update has nothing to write.
	ErrNoValues = errors.New("no values to write")
	// ErrUnsupportedValueType is returned for values that cannot be written as a SQL literal.
	ErrUnsupportedValueType = errors.New("unsupported value type")
	// ErrJoinBindMarker is returned when a join predicate contains a "?", which the
	// statement would read as an argument marker.
	ErrJoinBindMarker = errors.New("join condition must not contain ?")
	// ErrInvalidDirection is returned for an order direction other than ASC or DESC.
	ErrInvalidDirection = errors.New("invalid order direction")
	// ErrPlaceholderMismatch is returned when a statement's markers and arguments disagree.
	ErrPlaceholderMismatch = errors.New("placeholder count does not match arguments")
)

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
