package stats

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fgeck/blue-backup/internal/models"
	"github.com/stretchr/testify/assert"
)

const sampleSummary = `
Number of files: 10 (reg: 7, dir: 3)
Number of created files: 1 (reg: 1)
Number of deleted files: 0
Number of regular files transferred: 2
Total file size: 5.00M bytes
Total transferred file size: 1.00M bytes
Literal data: 1.00M bytes
Matched data: 0 bytes
File list size: 0
Total bytes sent: 1.00M
Total bytes received: 54
`

func TestParse_SampleSummary(t *testing.T) {
	s := Parse([]byte(sampleSummary))

	assert.Equal(t, "10", s.Files)
	assert.Equal(t, "2", s.Transferred)
	assert.Equal(t, "5.00M", s.TotalSize)
	assert.Equal(t, "1.00M", s.TransferredSize)
}

func TestParse_MissingLinesLeaveFieldsEmpty(t *testing.T) {
	s := Parse([]byte("sending incremental file list\n"))

	assert.Equal(t, models.SyncStats{}, s)
}

func TestParse_IgnoresSurroundingNoise(t *testing.T) {
	output := "sending incremental file list\ndata/file.txt\n" + sampleSummary
	s := Parse([]byte(output))

	assert.Equal(t, "10", s.Files)
}

func TestTable_Empty(t *testing.T) {
	assert.Equal(t, "", Table(nil))
}

func TestTable_AlignsColumns(t *testing.T) {
	results := []models.FolderResult{
		{
			Folder: "/home/user/data/",
			Stats: models.SyncStats{
				Files:           "1,234",
				Transferred:     "2",
				TotalSize:       "5.00M",
				TransferredSize: "1.00M",
				Elapsed:         1530 * time.Millisecond,
			},
		},
		{
			Folder: "/etc/",
			Stats: models.SyncStats{
				Files:           "7",
				Transferred:     "0",
				TotalSize:       "12.5K",
				TransferredSize: "0",
				Elapsed:         90 * time.Millisecond,
			},
		},
	}

	table := Table(results)
	lines := strings.Split(table, "\n")

	// Header, separator, one row per folder.
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "backup folder"))
	assert.Equal(t, strings.Repeat("-", len(lines[0])), strings.ReplaceAll(lines[1], " ", "-"))
	assert.Contains(t, lines[2], "/home/user/data/")
	assert.Contains(t, lines[2], "1.53s")
	assert.Contains(t, lines[3], "90ms")

	// Every row ends flush with its last cell.
	for _, line := range lines {
		assert.Equal(t, line, strings.TrimRight(line, " "))
	}
}

func TestTable_FailedFolderRendersEmptyCells(t *testing.T) {
	results := []models.FolderResult{
		{Folder: "/gone/", Error: errors.New("unreachable")},
	}

	table := Table(results)

	assert.Contains(t, table, "/gone/")
}
