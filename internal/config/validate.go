package config

import (
	"path/filepath"

	"github.com/fgeck/blue-backup/internal/errs"
	"github.com/fgeck/blue-backup/internal/models"
	"github.com/fgeck/blue-backup/internal/pathing"
)

// ResolveMode classifies the run from the tokens in the target location.
// {TODAY} is checked before {LATEST}: a target carrying both runs in
// snapshot mode and keeps {LATEST} verbatim, like any unknown token.
func ResolveMode(target pathing.Path) models.Mode {
	if target.HasToken(pathing.TokenToday) {
		return models.ModeSnapshot
	}
	if target.HasToken(pathing.TokenLatest) {
		return models.ModeOffsite
	}
	return models.ModeCollect
}

// Validate checks every structural invariant that can be decided without
// touching the filesystem or the network. It runs before any I/O so that a
// bad configuration can never half-execute a backup.
func Validate(cfg *models.BackupConfig, firstTime bool) error {
	if !cfg.Target.IsAbsolute() {
		return errs.Config("Target location '%s' must be absolute path.", cfg.Target)
	}

	for _, folder := range cfg.Folders {
		if !folder.Source.IsAbsolute() {
			return errs.Config("Source location '%s' must be absolute path.", folder.Source)
		}
		// A defaulted target is derived from the source path, so a remote
		// or token-bearing source must declare one explicitly.
		if folder.Source.IsRemote() && !folder.TargetDeclared {
			return errs.Config("Remote source '%s' requires a target path.", folder.Source)
		}
		if folder.Source.HasToken(pathing.TokenConfigDir) && !folder.TargetDeclared {
			return errs.Config("Source location '%s' requires target path.", folder.Source)
		}
	}

	switch cfg.Mode {
	case models.ModeOffsite:
		if len(cfg.Folders) != 1 {
			return errs.Config("Only one backup folder allowed in offsite mode.")
		}
		folder := cfg.Folders[0]
		if !folder.Source.HasToken(pathing.TokenLatest) {
			return errs.Config("Missing backup folder with {LATEST} field in offsite mode.")
		}
		if !folder.TargetDeclared || folder.Target != "" {
			return errs.Config("Backup folder target must be empty (target='') in offsite mode.")
		}
	case models.ModeCollect:
		if firstTime {
			return errs.Config("--first-time cannot be specified in collect mode.")
		}
	case models.ModeSnapshot:
	}

	for i, a := range cfg.Folders {
		for _, b := range cfg.Folders[i+1:] {
			if pathing.Overlaps(a.Target, b.Target) {
				return errs.Config("Target folder of '%s' overlaps with target folder of '%s'.",
					a.Source, b.Source)
			}
		}
	}

	return nil
}

// ApplyConfigDir substitutes the {TOML_FOLDER} token in the target location
// and every source with the configuration file's directory. Called once,
// after validation: the requires-target checks must see the raw token.
func ApplyConfigDir(cfg *models.BackupConfig) {
	dir, err := filepath.Abs(filepath.Dir(cfg.ConfigPath))
	if err != nil {
		dir = filepath.Dir(cfg.ConfigPath)
	}
	vars := map[string]string{pathing.TokenConfigDir: dir}
	cfg.Target = cfg.Target.Format(vars)
	for i := range cfg.Folders {
		cfg.Folders[i].Source = cfg.Folders[i].Source.Format(vars)
	}
}
