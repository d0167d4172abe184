// Package errs holds the error taxonomy shared by tweetbot components.
package errs

import (
	"errors"
	"fmt"
)

// ErrEmptyContent is returned when a content file holds no messages.
var ErrEmptyContent = errors.New("content list is empty")

// ConfigurationError is fatal at startup: the tick loop must not start.
type ConfigurationError struct {
	Field string // config key or file that is wrong
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Config wraps err as a ConfigurationError for field.
func Config(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ConfigurationError{Field: field, Err: err}
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// PersistenceError reports a cursor store read or write failure.
//
// Load failures degrade to cursor 0; save failures are logged loudly
// but never stop the loop.
type PersistenceError struct {
	Op   string // "load" | "save" | "open" | ...
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError.
func Persistence(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Path: path, Err: err}
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}
