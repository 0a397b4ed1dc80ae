// Package access provides uniform directory-listing, stat, append and
// command-execution operations against either the local machine or a remote
// host reached over SSH. The implementation is chosen once at the start of a
// run and owned by it for its whole lifetime.
package access

import "errors"

// ErrNotFound is returned by Stat for paths that do not exist.
var ErrNotFound = errors.New("path not found")

// Entry is one directory-listing element.
type Entry struct {
	Name  string
	IsDir bool
}

// Info is the stat metadata the orchestration needs.
type Info struct {
	IsDir bool
}

// RunResult carries an executed command's outcome. A non-zero exit code is
// not an error at this layer; callers decide what is fatal.
type RunResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Access is the uniform local/remote operation contract.
type Access interface {
	// Host returns the remote address, or "" for local access.
	Host() string
	// List returns the entries of a directory.
	List(dir string) ([]Entry, error)
	// Stat returns metadata for a path, or ErrNotFound.
	Stat(path string) (Info, error)
	// Run executes a command and captures its output.
	Run(name string, args ...string) (*RunResult, error)
	// Append appends data to a file, creating it and its parent directory
	// when missing.
	Append(path string, data []byte) error
	// Close releases the underlying session, if any.
	Close() error
}
