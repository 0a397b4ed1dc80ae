// Package runner orchestrates a full backup run: lock, parse, validate,
// wake and connect to the target, materialize the snapshot folder, sync
// every source, apply retention and write the run log.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/blue-backup/internal/access"
	"github.com/fgeck/blue-backup/internal/config"
	"github.com/fgeck/blue-backup/internal/errs"
	"github.com/fgeck/blue-backup/internal/lock"
	"github.com/fgeck/blue-backup/internal/models"
	"github.com/fgeck/blue-backup/internal/pathing"
	"github.com/fgeck/blue-backup/internal/report"
	"github.com/fgeck/blue-backup/internal/services/purge"
	"github.com/fgeck/blue-backup/internal/services/snapshot"
	"github.com/fgeck/blue-backup/internal/services/stats"
	"github.com/fgeck/blue-backup/internal/services/syncer"
	"github.com/fgeck/blue-backup/internal/services/wol"
	"github.com/rs/zerolog"
)

// ResidualLogName receives collect-mode output that no folder log claimed.
const ResidualLogName = "blue-backup.log"

// Options are the per-run command line switches.
type Options struct {
	ConfigPath string
	FirstTime  bool
	DryRun     bool
}

// Service defines a complete backup run.
type Service interface {
	Run(ctx context.Context, opts Options) error
}

// Impl implements the Service interface.
type Impl struct {
	reporter *report.Reporter
	logger   zerolog.Logger
	syncer   syncer.Service
	wol      wol.Service
	connect  func(address string, logger zerolog.Logger) (access.Access, error)
	now      func() time.Time
}

// New creates a runner with production wiring.
func New(reporter *report.Reporter, logger zerolog.Logger) *Impl {
	return &Impl{
		reporter: reporter,
		logger:   logger,
		syncer:   syncer.New(logger),
		wol:      wol.New(logger),
		connect: func(address string, logger zerolog.Logger) (access.Access, error) {
			if address == "" {
				return access.NewLocal(logger), nil
			}
			return access.Connect(address, logger)
		},
		now: time.Now,
	}
}

// NewWithDeps creates a runner with injected collaborators (for testing).
func NewWithDeps(reporter *report.Reporter, logger zerolog.Logger,
	sync syncer.Service, wake wol.Service,
	connect func(address string, logger zerolog.Logger) (access.Access, error),
	now func() time.Time) *Impl {
	return &Impl{reporter: reporter, logger: logger, syncer: sync, wol: wake, connect: connect, now: now}
}

// Run executes one backup run. The configuration file doubles as the run
// lock, so concurrent runs over the same file are rejected up front.
func (s *Impl) Run(ctx context.Context, opts Options) error {
	runLock, err := lock.Acquire(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer runLock.Release()

	parser := config.NewParser()
	cfg, err := parser.LoadFile(opts.ConfigPath)
	if err != nil {
		return err
	}
	for _, warning := range parser.Warnings() {
		s.reporter.Warn("%s", warning)
	}
	if err := config.Validate(cfg, opts.FirstTime); err != nil {
		return err
	}
	config.ApplyConfigDir(cfg)

	if cfg.WOL != nil && cfg.Target.IsRemote() {
		if err := s.wol.Wake(ctx, *cfg.WOL); err != nil {
			return errs.Connection(cfg.Target.Address, err)
		}
	}

	conns := newConnections(s.connect, s.logger)
	defer conns.Close()
	targetAccess, err := conns.Open(cfg.Target.Address)
	if err != nil {
		return err
	}

	today := s.now().Format(snapshot.DateLayout)
	snapSvc := snapshot.New(targetAccess, s.reporter, s.logger, opts.DryRun)

	target := cfg.Target
	snapName := today
	switch cfg.Mode {
	case models.ModeSnapshot:
		target = target.Format(map[string]string{pathing.TokenToday: today})
	case models.ModeOffsite:
		source := cfg.Folders[0].Source
		sourceAccess, err := conns.Open(source.Address)
		if err != nil {
			return err
		}
		latest, err := snapshot.New(sourceAccess, s.reporter, s.logger, opts.DryRun).
			LatestDated(source.Parent())
		if err != nil {
			return err
		}
		vars := map[string]string{pathing.TokenLatest: latest}
		target = target.Format(vars)
		cfg.Folders[0].Source = source.Format(vars)
		snapName = latest
	case models.ModeCollect:
	}
	rootParent := target.Parent()

	s.reporter.Print("Backup target: %s at %s", target, s.now().Format("2006-01-02 15:04:05"))

	var disc *snapshot.Discovery
	if cfg.Mode != models.ModeCollect {
		if disc, err = snapSvc.Discover(rootParent); err != nil {
			return err
		}
		if err = snapSvc.Prepare(rootParent, snapName, disc, opts.FirstTime); err != nil {
			return err
		}
	}

	results := s.syncFolders(ctx, cfg, target, targetAccess, opts.DryRun)

	if table := stats.Table(results); table != "" {
		s.reporter.Print("%s", table)
	}

	if cfg.Mode != models.ModeCollect {
		kept := purge.New(targetAccess, s.reporter, s.logger, opts.DryRun).
			Purge(rootParent, disc.Roster, disc.COW)
		s.reporter.Print("Kept backups: %d monthly, %d daily", kept.MonthlyKept, kept.DailyKept)
	}

	// In collect mode the target root may be its own mount point; its parent
	// could sit on a different filesystem.
	spaceRoot := rootParent
	if cfg.Mode == models.ModeCollect {
		spaceRoot = target
	}
	if err := s.reportSpace(targetAccess, spaceRoot); err != nil {
		return err
	}

	if !opts.DryRun {
		logPath := rootParent.Join(snapName + ".log").Path
		if cfg.Mode == models.ModeCollect {
			logPath = target.Join(ResidualLogName).Path
		}
		if err := s.reporter.Flush(targetAccess, logPath); err != nil {
			return err
		}
	}
	return nil
}

// syncFolders runs every folder in declaration order. A failed folder is
// reported and the run continues; in collect mode each folder's buffered
// output lands in its own log next to the synced tree. Cancellation stops
// before the next folder, never mid-transfer.
func (s *Impl) syncFolders(ctx context.Context, cfg *models.BackupConfig, target pathing.Path, a access.Access, dryRun bool) []models.FolderResult {
	results := make([]models.FolderResult, 0, len(cfg.Folders))
	for _, folder := range cfg.Folders {
		if ctx.Err() != nil {
			s.reporter.Warn("Run canceled, skipping remaining folders")
			break
		}
		dest := target.Join(folder.Target)
		s.reporter.Print("%s", folder.Source.WithTrailingSlash())

		result := s.syncer.Sync(folder, dest, cfg, dryRun)
		s.reporter.Log(result.Output)
		if result.Error != nil {
			s.reporter.Error("%v", result.Error)
		}
		results = append(results, *result)

		if cfg.Mode == models.ModeCollect && !dryRun {
			logPath := target.Join(folder.Target + ".log").Path
			if err := s.reporter.Flush(a, logPath); err != nil {
				s.reporter.Error("%v", err)
			}
		}
	}
	return results
}

// reportSpace prints the free space of the filesystem holding the target.
func (s *Impl) reportSpace(a access.Access, rootParent pathing.Path) error {
	result, err := a.Run("df", "-h", rootParent.Path)
	if err != nil {
		return errs.Command(fmt.Sprintf("Failed reading free space of '%s'", rootParent), err)
	}
	if result.ExitCode != 0 {
		detail := strings.TrimSpace(string(result.Stderr))
		return errs.Command(fmt.Sprintf("Failed reading free space of '%s'", rootParent), fmt.Errorf("%s", detail))
	}
	s.reporter.Print("%s", strings.TrimRight(string(result.Stdout), "\n"))
	return nil
}

// connections caches one Access per host so the offsite source and the
// target can share a session when they live on the same machine.
type connections struct {
	connect func(address string, logger zerolog.Logger) (access.Access, error)
	logger  zerolog.Logger
	open    map[string]access.Access
}

func newConnections(connect func(string, zerolog.Logger) (access.Access, error), logger zerolog.Logger) *connections {
	return &connections{connect: connect, logger: logger, open: map[string]access.Access{}}
}

func (c *connections) Open(address string) (access.Access, error) {
	if a, ok := c.open[address]; ok {
		return a, nil
	}
	a, err := c.connect(address, c.logger)
	if err != nil {
		return nil, err
	}
	c.open[address] = a
	return a, nil
}

func (c *connections) Close() {
	for _, a := range c.open {
		_ = a.Close()
	}
}
