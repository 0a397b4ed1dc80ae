// Package report routes user-visible run output. Severity picks the stream
// and whether a line is mirrored into the run log; color is a separate
// presentation concern applied only when the stream is a terminal.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fgeck/blue-backup/internal/access"
	"github.com/mattn/go-isatty"
)

var (
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Reporter accumulates the run log while printing to the user. The log
// buffer is flushed through the Access Layer so that a remote target gets
// its log written on the remote side.
type Reporter struct {
	stdout io.Writer
	stderr io.Writer
	color  bool
	logBuf bytes.Buffer
}

// New creates a reporter on the process streams, with color enabled when
// stderr is an interactive terminal.
func New() *Reporter {
	return &Reporter{
		stdout: os.Stdout,
		stderr: os.Stderr,
		color:  isatty.IsTerminal(os.Stderr.Fd()),
	}
}

// NewWithStreams creates a reporter on explicit streams without color
// (for testing).
func NewWithStreams(stdout, stderr io.Writer) *Reporter {
	return &Reporter{stdout: stdout, stderr: stderr}
}

// Print writes an informational line to stdout and the run log.
func (r *Reporter) Print(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.stdout, line)
	r.logBuf.WriteString(line + "\n")
}

// Warn writes a non-fatal warning to stderr and the run log.
func (r *Reporter) Warn(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.stderr, r.styled(warnStyle, line))
	r.logBuf.WriteString(line + "\n")
}

// Error writes a non-fatal inline error to stderr and the run log,
// indented to group it under the folder being processed.
func (r *Reporter) Error(format string, args ...any) {
	line := "    " + fmt.Sprintf(format, args...)
	fmt.Fprintln(r.stderr, r.styled(errorStyle, line))
	r.logBuf.WriteString(line + "\n")
}

// Fatal writes a run-aborting error message to stderr, indented like inline
// errors. Fatal errors are not mirrored: the run log may not have a home yet
// (lock and config errors).
func (r *Reporter) Fatal(msg string) {
	fmt.Fprintln(r.stderr, r.styled(errorStyle, "    "+msg))
}

// Log appends raw tool output to the run log only.
func (r *Reporter) Log(data []byte) {
	r.logBuf.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		r.logBuf.WriteByte('\n')
	}
}

// Flush appends the buffered log to path through the given access layer and
// resets the buffer. Flushing an empty buffer is a no-op.
func (r *Reporter) Flush(a access.Access, path string) error {
	if r.logBuf.Len() == 0 {
		return nil
	}
	data := r.logBuf.Bytes()
	r.logBuf.Reset()
	if err := a.Append(path, data); err != nil {
		return fmt.Errorf("Error writing to '%s': %w", joinHostPath(a.Host(), path), err)
	}
	return nil
}

func (r *Reporter) styled(style lipgloss.Style, line string) string {
	if !r.color {
		return line
	}
	return style.Render(line)
}

func joinHostPath(host, path string) string {
	if host == "" {
		return path
	}
	return host + ":" + path
}
