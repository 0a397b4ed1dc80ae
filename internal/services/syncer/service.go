// Package syncer builds and executes one rsync invocation per backup folder.
package syncer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/blue-backup/internal/access"
	"github.com/fgeck/blue-backup/internal/models"
	"github.com/fgeck/blue-backup/internal/pathing"
	"github.com/fgeck/blue-backup/internal/services/stats"
	"github.com/rs/zerolog"
)

// IOTimeoutSeconds bounds rsync's own I/O timeout; a stalled remote peer
// fails the folder instead of hanging the run.
const IOTimeoutSeconds = 900

// Service defines the interface for folder synchronization.
type Service interface {
	Sync(folder models.FolderSpec, dest pathing.Path, cfg *models.BackupConfig, dryRun bool) *models.FolderResult
}

// CommandExecutor allows mocking the rsync subprocess in tests. rsync is
// always invoked on this machine ("force local"): it requires one local
// endpoint and drives its own transport for the remote one.
type CommandExecutor interface {
	Run(name string, args ...string) (*access.RunResult, error)
}

// Impl implements the Service interface.
type Impl struct {
	executor CommandExecutor
	logger   zerolog.Logger
}

// New creates a syncer running rsync as a local subprocess.
func New(logger zerolog.Logger) *Impl {
	return &Impl{executor: access.NewLocal(logger), logger: logger}
}

// NewWithExecutor creates a syncer with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor CommandExecutor) *Impl {
	return &Impl{executor: executor, logger: logger}
}

// BuildArgs assembles the rsync argument list for one folder. Built-in
// options come first so that configured rsync-options can override them.
func BuildArgs(folder models.FolderSpec, dest pathing.Path, cfg *models.BackupConfig, dryRun bool) []string {
	args := []string{
		"--archive",
		"--delete",
		"--delete-excluded",
		fmt.Sprintf("--timeout=%d", IOTimeoutSeconds),
		"--mkpath",
		"--stats",
	}
	if dryRun {
		args = append(args, "--dry-run")
	}
	if folder.Chown != "" {
		args = append(args, "--chown="+folder.Chown)
	}
	if folder.Chmod != "" {
		args = append(args, "--chmod="+folder.Chmod)
	}
	for _, pattern := range cfg.Exclude {
		args = append(args, "--exclude="+pattern)
	}
	for _, pattern := range folder.Exclude {
		args = append(args, "--exclude="+pattern)
	}
	args = append(args, cfg.RsyncOptions...)
	args = append(args, folder.RsyncOptions...)
	args = append(args, folder.Source.WithTrailingSlash(), dest.String())
	return args
}

// Sync runs one folder's synchronization. Failures are returned as result
// values: the caller reports them and moves on to the next folder.
func (s *Impl) Sync(folder models.FolderSpec, dest pathing.Path, cfg *models.BackupConfig, dryRun bool) *models.FolderResult {
	result := &models.FolderResult{Folder: folder.Source.String()}

	if folder.Source.IsRemote() && dest.IsRemote() {
		result.Error = fmt.Errorf("the source and destination cannot both be remote")
		return result
	}

	args := BuildArgs(folder, dest, cfg, dryRun)
	s.logger.Debug().Strs("args", args).Msg("rsync")

	start := time.Now()
	run, err := s.executor.Run("rsync", args...)
	elapsed := time.Since(start)

	if err != nil {
		result.Error = fmt.Errorf("rsync failed: %w", err)
		result.Stats.Elapsed = elapsed
		return result
	}

	result.Output = joinOutput(run)
	result.Stats = stats.Parse(run.Stdout)
	result.Stats.Elapsed = elapsed

	// Any stderr output counts as a failure even on exit code zero; rsync
	// reports partial-transfer problems there.
	if run.ExitCode != 0 || len(bytes.TrimSpace(run.Stderr)) > 0 {
		result.Error = fmt.Errorf("%sReturn code: %d",
			indentLines(string(run.Stderr)), run.ExitCode)
	}
	return result
}

func joinOutput(run *access.RunResult) []byte {
	out := make([]byte, 0, len(run.Stdout)+len(run.Stderr))
	out = append(out, run.Stdout...)
	out = append(out, run.Stderr...)
	return out
}

func indentLines(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ReplaceAll(s, "\n", "\n    ") + "\n    "
}
