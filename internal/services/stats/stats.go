// Package stats parses the sync tool's textual summary and renders the
// per-run summary table.
package stats

import (
	"strings"
	"time"

	"github.com/fgeck/blue-backup/internal/models"
)

// Summary line prefixes as printed by rsync --stats. A missing line leaves
// the field empty rather than failing: the summary is advisory output.
const (
	prefixFiles           = "Number of files:"
	prefixTransferred     = "Number of regular files transferred:"
	prefixTotalSize       = "Total file size:"
	prefixTransferredSize = "Total transferred file size:"
)

// Parse extracts the four numeric summary fields from raw tool output.
func Parse(output []byte) models.SyncStats {
	var s models.SyncStats
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, prefixTransferred):
			s.Transferred = value(line, prefixTransferred)
		case strings.HasPrefix(line, prefixTransferredSize):
			s.TransferredSize = value(line, prefixTransferredSize)
		case strings.HasPrefix(line, prefixTotalSize):
			s.TotalSize = value(line, prefixTotalSize)
		case strings.HasPrefix(line, prefixFiles):
			s.Files = value(line, prefixFiles)
		}
	}
	return s
}

// value trims the prefix and reduces "10 (reg: 7, dir: 3)" or
// "5.00M bytes" to the bare figure.
func value(line, prefix string) string {
	v := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	if i := strings.Index(v, " ("); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimSuffix(v, " bytes")
	return v
}

var header = []string{"backup folder", "files", "transferred", "total size", "transferred size", "time"}

// Table renders the aligned summary. The folder column is left-aligned,
// numeric columns right-aligned; every column is as wide as its widest cell
// including the header label. Returns "" when no folders were processed.
func Table(results []models.FolderResult) string {
	if len(results) == 0 {
		return ""
	}

	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, header)
	for _, r := range results {
		rows = append(rows, []string{
			r.Folder,
			r.Stats.Files,
			r.Stats.Transferred,
			r.Stats.TotalSize,
			r.Stats.TransferredSize,
			r.Stats.Elapsed.Round(10 * time.Millisecond).String(),
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	formatRow := func(row []string) string {
		cells := make([]string, len(row))
		for i, cell := range row {
			pad := strings.Repeat(" ", widths[i]-len(cell))
			if i == 0 {
				cells[i] = cell + pad
			} else {
				cells[i] = pad + cell
			}
		}
		return strings.TrimRight(strings.Join(cells, "  "), " ")
	}

	// The separator row is the header row with every character replaced
	// by a dash, alignment preserved.
	separator := make([]string, len(header))
	for i, w := range widths {
		separator[i] = strings.Repeat("-", w)
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, formatRow(rows[0]), strings.Join(separator, "  "))
	for _, row := range rows[1:] {
		lines = append(lines, formatRow(row))
	}
	return strings.Join(lines, "\n")
}
