package credentials

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingLocalKey matches *MissingLocalKeyError.
	ErrMissingLocalKey = errors.New("missing local key")
	// ErrIncomplete matches *IncompleteError.
	ErrIncomplete = errors.New("credentials incomplete")
	// ErrIncompleteParameters is returned when building parameters with empty fields.
	ErrIncompleteParameters = errors.New("incomplete connection parameters")
	// ErrDuplicateKeyName is returned when two remote key names are the same.
	ErrDuplicateKeyName = errors.New("duplicate secret key name")
	// ErrEmptyKeyName is returned when a remote key name is blank.
	ErrEmptyKeyName = errors.New("empty secret key name")
)

// MissingLocalKeyError reports a required key absent or empty in the local env file.
type MissingLocalKeyError struct {
	File string
	Key  string
}

func (e *MissingLocalKeyError) Error() string {
	return fmt.Sprintf("%s: %q not set in %s", ErrMissingLocalKey, e.Key, e.File)
}

func (e *MissingLocalKeyError) Is(target error) bool { return target == ErrMissingLocalKey }

// IncompleteError lists every key that neither the secret store nor the
// environment could provide.
type IncompleteError struct {
	Keys []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: unresolved keys [%s]", ErrIncomplete, strings.Join(e.Keys, ", "))
}

func (e *IncompleteError) Is(target error) bool { return target == ErrIncomplete }
