package models

import "time"

// SyncStats holds the numeric fields parsed from the sync tool's summary.
// Values are kept as the tool printed them ("5.00M", "1,234"); a field the
// summary did not contain stays empty.
type SyncStats struct {
	Files           string
	Transferred     string
	TotalSize       string
	TransferredSize string
	Elapsed         time.Duration
}

// FolderResult is the outcome of synchronizing one folder. A failure is a
// value, not a raised error: one unreachable source must not stop the run.
type FolderResult struct {
	Folder string // display name of the source
	Stats  SyncStats
	Output []byte // raw tool output, appended to the run log
	Error  error  // nil on success
}

// PurgeResult reports the retention pass.
type PurgeResult struct {
	MonthlyKept int
	DailyKept   int
	Deleted     int
}
