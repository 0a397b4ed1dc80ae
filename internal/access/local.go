package access

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Local implements Access with direct filesystem and process calls.
type Local struct {
	logger zerolog.Logger
}

// NewLocal creates a local access layer.
func NewLocal(logger zerolog.Logger) *Local {
	return &Local{logger: logger}
}

func (l *Local) Host() string { return "" }

func (l *Local) List(dir string) ([]Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		entries = append(entries, Entry{Name: d.Name(), IsDir: d.IsDir()})
	}
	return entries, nil
}

func (l *Local) Stat(path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, ErrNotFound
		}
		return Info{}, err
	}
	return Info{IsDir: st.IsDir()}, nil
}

func (l *Local) Run(name string, args ...string) (*RunResult, error) {
	l.logger.Debug().Str("command", name).Strs("args", args).Msg("running local command")

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running %s: %w", name, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

func (l *Local) Append(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (l *Local) Close() error { return nil }
