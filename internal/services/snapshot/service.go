// Package snapshot manages the dated snapshot folders under the target
// root: discovering the existing roster, probing the filesystem kind, and
// materializing today's folder.
package snapshot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fgeck/blue-backup/internal/access"
	"github.com/fgeck/blue-backup/internal/errs"
	"github.com/fgeck/blue-backup/internal/pathing"
	"github.com/fgeck/blue-backup/internal/report"
	"github.com/rs/zerolog"
)

const (
	// DateLayout is the canonical snapshot folder name format.
	DateLayout = "2006-01-02"
	// TempSuffix marks an in-progress hard-link clone. The folder becomes
	// visible under its dated name only after an atomic rename.
	TempSuffix = ".incomplete"
)

// CanonicalDate checks that a folder name is a calendar date that survives
// a parse/format round trip, so "2024-02-30" and "20191204" are rejected.
func CanonicalDate(name string) error {
	t, err := time.Parse(DateLayout, name)
	if err != nil {
		return fmt.Errorf("invalid date: %s", name)
	}
	if canonical := t.Format(DateLayout); canonical != name {
		return fmt.Errorf("%s != %s", name, canonical)
	}
	return nil
}

// Discovery is the roster of existing snapshot folders plus the probed
// filesystem capability.
type Discovery struct {
	Roster []string // canonical dated folder names, ascending
	COW    bool     // target filesystem supports copy-on-write subvolumes
}

// Contains reports whether a dated folder is already in the roster.
func (d *Discovery) Contains(name string) bool {
	for _, existing := range d.Roster {
		if existing == name {
			return true
		}
	}
	return false
}

// Service defines the snapshot lifecycle operations.
type Service interface {
	Discover(rootParent pathing.Path) (*Discovery, error)
	LatestDated(dir pathing.Path) (string, error)
	Prepare(rootParent pathing.Path, name string, disc *Discovery, firstTime bool) error
}

// Impl implements the Service interface over an Access layer.
type Impl struct {
	access   access.Access
	reporter *report.Reporter
	logger   zerolog.Logger
	dryRun   bool
}

// New creates a snapshot lifecycle manager.
func New(a access.Access, reporter *report.Reporter, logger zerolog.Logger, dryRun bool) *Impl {
	return &Impl{access: a, reporter: reporter, logger: logger, dryRun: dryRun}
}

// Discover lists the target root's parent and builds the roster. Entries
// that are not directories are ignored (the run log lives there); directory
// names that are not canonical dates are skipped with a warning. The
// filesystem probe is a read-only query and runs even under --dry-run.
func (s *Impl) Discover(rootParent pathing.Path) (*Discovery, error) {
	entries, err := s.access.List(rootParent.Path)
	if err != nil {
		return nil, errs.Command(fmt.Sprintf("Error writing to target location '%s'", rootParent), err)
	}

	disc := &Discovery{}
	for _, entry := range entries {
		if !entry.IsDir || strings.HasSuffix(entry.Name, TempSuffix) {
			continue
		}
		if err := CanonicalDate(entry.Name); err != nil {
			s.reporter.Warn("Folder %s, non ISO date: %v", entry.Name, err)
			continue
		}
		disc.Roster = append(disc.Roster, entry.Name)
	}
	sort.Strings(disc.Roster)

	kind, err := s.filesystemKind(rootParent)
	if err != nil {
		return nil, err
	}
	disc.COW = kind == "btrfs"

	s.logger.Debug().
		Strs("roster", disc.Roster).
		Str("filesystem", kind).
		Msg("target discovered")
	return disc, nil
}

// LatestDated returns the newest canonical dated subfolder of dir. Used to
// resolve the {LATEST} token in offsite mode.
func (s *Impl) LatestDated(dir pathing.Path) (string, error) {
	entries, err := s.access.List(dir.Path)
	if err != nil {
		return "", errs.Command(fmt.Sprintf("Failed reading source location '%s'", dir), err)
	}
	latest := ""
	for _, entry := range entries {
		if !entry.IsDir || CanonicalDate(entry.Name) != nil {
			continue
		}
		if entry.Name > latest {
			latest = entry.Name
		}
	}
	if latest == "" {
		return "", errs.Command(fmt.Sprintf("No dated folders found in '%s'", dir.Path), nil)
	}
	return latest, nil
}

// Prepare materializes the dated folder for this run. First-time runs
// create it empty; a new day clones the latest existing folder; a repeated
// run on the same day is a no-op. The roster in disc is kept current.
func (s *Impl) Prepare(rootParent pathing.Path, name string, disc *Discovery, firstTime bool) error {
	if disc.Contains(name) {
		if firstTime {
			return errs.Config("This is not the first time you are backing up to this folder, remove --first-time")
		}
		s.logger.Debug().Str("folder", name).Msg("snapshot folder already present")
		return nil
	}

	if firstTime {
		if len(disc.Roster) > 0 {
			return errs.Config("This is not the first time you are backing up to this folder, remove --first-time")
		}
		if err := s.create(rootParent.Join(name), disc.COW); err != nil {
			return err
		}
	} else {
		if len(disc.Roster) == 0 {
			return errs.Config("This is the first time you are backing up to this folder, specify --first-time")
		}
		latest := disc.Roster[len(disc.Roster)-1]
		if err := s.clone(rootParent, latest, name, disc.COW); err != nil {
			return err
		}
	}

	disc.Roster = append(disc.Roster, name)
	sort.Strings(disc.Roster)
	return nil
}

func (s *Impl) create(folder pathing.Path, cow bool) error {
	if s.dryRun {
		return nil
	}
	if cow {
		return s.run("Error writing to target location '%s'", folder, "btrfs", "subvolume", "create", folder.Path)
	}
	return s.run("Error writing to target location '%s'", folder, "mkdir", folder.Path)
}

// clone copies the latest snapshot into the new dated folder. On a COW
// filesystem the previous folder is marked read-only first: it is about to
// become an immutable ancestor. Otherwise a hard-link copy lands in a
// temporary sibling and is renamed into place, so a crash can never leave a
// half-populated folder under a dated name.
func (s *Impl) clone(rootParent pathing.Path, latest, name string, cow bool) error {
	prev := rootParent.Join(latest)
	next := rootParent.Join(name)

	if cow {
		if s.dryRun {
			return nil
		}
		if err := s.run("Error writing to '%s'", prev, "btrfs", "property", "set", "-ts", prev.Path, "ro", "true"); err != nil {
			return err
		}
		return s.run("Error writing to target location '%s'", next, "btrfs", "subvolume", "snapshot", prev.Path, next.Path)
	}

	tmp := next
	tmp.Path += TempSuffix
	if _, err := s.access.Stat(tmp.Path); err == nil {
		s.reporter.Warn("Removing stale temporary folder '%s'", tmp)
		if !s.dryRun {
			if err := s.run("Error removing '%s'", tmp, "rm", "-rf", tmp.Path); err != nil {
				return err
			}
		}
	}
	if s.dryRun {
		return nil
	}
	if err := s.run("Error writing to target location '%s'", tmp, "cp", "-al", prev.Path, tmp.Path); err != nil {
		return err
	}
	if err := s.run("Error writing to target location '%s'", next, "mv", "-T", tmp.Path, next.Path); err != nil {
		return err
	}
	return s.run("Error syncing '%s'", next, "sync")
}

// filesystemKind probes the filesystem holding the target root. The probe
// runs on the machine the target lives on, through the Access layer.
func (s *Impl) filesystemKind(rootParent pathing.Path) (string, error) {
	result, err := s.access.Run("stat", "-f", "--format=%T", rootParent.Path)
	if err != nil {
		return "", errs.Command(fmt.Sprintf("Failed probing filesystem of '%s'", rootParent), err)
	}
	if result.ExitCode != 0 {
		detail := strings.TrimSpace(string(result.Stderr))
		return "", errs.Command(fmt.Sprintf("Failed probing filesystem of '%s'", rootParent), fmt.Errorf("%s", detail))
	}
	return strings.TrimSpace(string(result.Stdout)), nil
}

func (s *Impl) run(format string, subject pathing.Path, name string, args ...string) error {
	result, err := s.access.Run(name, args...)
	if err != nil {
		return errs.Command(fmt.Sprintf(format, subject), err)
	}
	if result.ExitCode != 0 {
		detail := strings.TrimSpace(string(result.Stderr))
		return errs.Command(fmt.Sprintf(format, subject), fmt.Errorf("%s", detail))
	}
	return nil
}
