package database

import "errors"

var (
	// ErrInvalidParameters is returned by Initialize when a connection field is empty.
	ErrInvalidParameters = errors.New("invalid connection parameters")
	// ErrConnectFailed wraps the cause of a failed open or connectivity probe.
	ErrConnectFailed = errors.New("database connect failed")
	// ErrAlreadyInitialized is returned by a second Initialize on the same Factory.
	ErrAlreadyInitialized = errors.New("database already initialized")
	// ErrNotInitialized is returned by Factory.Engine before Initialize succeeded.
	ErrNotInitialized = errors.New("database not initialized")
	// ErrUnsupportedDriver is returned for a driver name with no DSN builder.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrPoolExhausted is returned when no pooled connection frees up within the acquire timeout.
	ErrPoolExhausted = errors.New("database pool exhausted")
	// ErrNotFound is returned by Session.Get when the query matched no row.
	ErrNotFound = errors.New("no rows found")
	// ErrSessionReleased is returned by any Session method after its scope ended.
	ErrSessionReleased = errors.New("session already released")
)

// QueryError hides driver detail behind a generic message. The cause stays
// reachable through errors.Unwrap for server-side logging.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return "database query failed" }

func (e *QueryError) Unwrap() error { return e.Err }

func queryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Op: op, Err: err}
}
