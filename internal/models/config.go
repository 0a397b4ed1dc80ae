// Package models contains the data structures used throughout blue-backup.
package models

import (
	"time"

	"github.com/fgeck/blue-backup/internal/pathing"
)

// Mode classifies a run from the tokens in the target location.
type Mode int

const (
	// ModeSnapshot creates a dated snapshot folder per day ({TODAY}).
	ModeSnapshot Mode = iota
	// ModeCollect syncs sources into one flat target tree (no token).
	ModeCollect
	// ModeOffsite copies the latest existing snapshot elsewhere ({LATEST}).
	ModeOffsite
)

func (m Mode) String() string {
	switch m {
	case ModeSnapshot:
		return "snapshot"
	case ModeCollect:
		return "collect"
	case ModeOffsite:
		return "offsite"
	}
	return "unknown"
}

// BackupConfig holds the validated configuration for one run.
type BackupConfig struct {
	ConfigPath   string       // absolute path of the TOML file
	Target       pathing.Path // target-location, tokens still pending
	Mode         Mode
	Exclude      []string // global exclude patterns
	RsyncOptions []string // global options, forwarded verbatim
	WOL          *WOLConfig
	Folders      []FolderSpec // declaration order
}

// FolderSpec is one backup-folders entry.
type FolderSpec struct {
	Source pathing.Path
	// Target is relative to the target root. When not declared it defaults
	// to the source path stripped of its leading separator.
	Target         string
	TargetDeclared bool
	Exclude        []string
	Chown          string // optional "user:group" override
	Chmod          string // optional permission-mode override
	RsyncOptions   []string
}

// WOLConfig wakes a sleeping remote target before the session is opened.
type WOLConfig struct {
	MACAddress string
	Broadcast  string
	Wait       time.Duration
}
