// Package purge applies the retention policy to the snapshot roster: the
// earliest folder of every month is kept forever, the newest DailyKeep
// dailies survive, the rest are deleted.
package purge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fgeck/blue-backup/internal/access"
	"github.com/fgeck/blue-backup/internal/models"
	"github.com/fgeck/blue-backup/internal/pathing"
	"github.com/fgeck/blue-backup/internal/report"
	"github.com/rs/zerolog"
)

// DailyKeep is the number of non-monthly snapshot folders retained.
const DailyKeep = 20

// Service defines the retention pass.
type Service interface {
	Purge(rootParent pathing.Path, roster []string, cow bool) models.PurgeResult
}

// Impl implements the Service interface.
type Impl struct {
	access   access.Access
	reporter *report.Reporter
	logger   zerolog.Logger
	dryRun   bool
}

// New creates a retention service.
func New(a access.Access, reporter *report.Reporter, logger zerolog.Logger, dryRun bool) *Impl {
	return &Impl{access: a, reporter: reporter, logger: logger, dryRun: dryRun}
}

// Plan splits the roster into monthly anchors and dailies and returns the
// dailies to delete, oldest first. The anchor of a month is its earliest
// folder; anchors never expire.
func Plan(roster []string) (monthly, daily, expired []string) {
	sorted := append([]string(nil), roster...)
	sort.Strings(sorted)

	anchors := map[string]string{}
	for _, name := range sorted {
		month := name[:len("2006-01")]
		if _, ok := anchors[month]; !ok {
			anchors[month] = name
			monthly = append(monthly, name)
			continue
		}
		daily = append(daily, name)
	}

	if len(daily) > DailyKeep {
		expired = daily[:len(daily)-DailyKeep]
		daily = daily[len(daily)-DailyKeep:]
	}
	return monthly, daily, expired
}

// Purge deletes the expired dailies and reports the kept counts. A folder
// that fails to delete is reported and still counted as gone: it will be
// retried on the next run, and retention math must not stall behind it.
func (s *Impl) Purge(rootParent pathing.Path, roster []string, cow bool) models.PurgeResult {
	monthly, daily, expired := Plan(roster)

	for _, name := range expired {
		folder := rootParent.Join(name)
		s.logger.Debug().Str("folder", name).Msg("deleting expired snapshot")
		if s.dryRun {
			continue
		}
		if err := s.delete(folder, cow); err != nil {
			s.reporter.Error("Failed deleting '%s': %v", folder, err)
		}
	}

	return models.PurgeResult{
		MonthlyKept: len(monthly),
		DailyKept:   len(daily),
		Deleted:     len(expired),
	}
}

func (s *Impl) delete(folder pathing.Path, cow bool) error {
	var result *access.RunResult
	var err error
	if cow {
		result, err = s.access.Run("btrfs", "subvolume", "delete", folder.Path)
	} else {
		result, err = s.access.Run("rm", "-rf", folder.Path)
	}
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%s", strings.TrimSpace(string(result.Stderr)))
	}
	return nil
}
