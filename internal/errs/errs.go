// Package errs defines the error taxonomy for a backup run.
package errs

import "fmt"

// Kind classifies a fatal run error.
type Kind int

const (
	// KindConfig marks malformed, missing or contradictory configuration.
	// Raised before any filesystem or network access.
	KindConfig Kind = iota
	// KindConnection marks a failed remote session establishment.
	KindConnection
	// KindLock marks a run lock held by another invocation.
	KindLock
	// KindCommand marks a fatal external command failure (folder creation,
	// probes, space report). Per-folder sync and purge failures are result
	// values, not errors of this kind.
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindConnection:
		return "connection"
	case KindLock:
		return "lock"
	case KindCommand:
		return "command"
	}
	return "unknown"
}

// Error is a fatal, run-aborting error. Non-fatal conditions (per-folder sync
// failures, purge failures, non-date roster entries) never use this type.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Config returns a configuration error with a formatted message.
func Config(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, args...)}
}

// Connection wraps a failed remote session establishment.
func Connection(host string, err error) *Error {
	return &Error{Kind: KindConnection, Msg: fmt.Sprintf("Failed connecting to %s", host), Err: err}
}

// Lock wraps a failed run lock acquisition.
func Lock(path string, err error) *Error {
	return &Error{Kind: KindLock, Msg: fmt.Sprintf("Failed locking %s", path), Err: err}
}

// Command wraps a fatal external command failure.
func Command(msg string, err error) *Error {
	return &Error{Kind: KindCommand, Msg: msg, Err: err}
}
