// Package config parses and validates the blue-backup TOML document.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fgeck/blue-backup/internal/errs"
	"github.com/fgeck/blue-backup/internal/models"
	"github.com/fgeck/blue-backup/internal/pathing"
	toml "github.com/pelletier/go-toml/v2"
)

const defaultWOLWait = 30 * time.Second

// Parser handles configuration file parsing. Wrong types are fatal; unknown
// keys are collected as warnings and reported without failing the run.
type Parser struct {
	warnings []string
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	return &Parser{}
}

// Warnings returns the unknown-key warnings collected by the last load.
func (p *Parser) Warnings() []string {
	return p.warnings
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.BackupConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindConfig, Msg: fmt.Sprintf("Failed to read '%s'", path), Err: err}
	}
	return p.parse(data, path)
}

// LoadReader loads configuration from a string (useful for testing).
// The name stands in for the file path in messages.
func (p *Parser) LoadReader(content, name string) (*models.BackupConfig, error) {
	return p.parse([]byte(content), name)
}

func (p *Parser) parse(data []byte, file string) (*models.BackupConfig, error) {
	p.warnings = nil

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, &errs.Error{Kind: errs.KindConfig, Msg: fmt.Sprintf("Failed to parse '%s'", file), Err: err}
	}

	cfg := &models.BackupConfig{ConfigPath: file}

	rawTarget, ok := doc["target-location"]
	if !ok {
		return nil, errs.Config("Missing string 'target-location' in %s", file)
	}
	target, ok := rawTarget.(string)
	if !ok {
		return nil, errs.Config("Expected string for 'target-location' in %s got: %v", file, rawTarget)
	}
	cfg.Target = pathing.Parse(target)
	cfg.Mode = ResolveMode(cfg.Target)

	var err error
	if cfg.Exclude, err = stringSlice(doc["exclude"], "exclude", file); err != nil {
		return nil, err
	}
	if cfg.RsyncOptions, err = stringSlice(doc["rsync-options"], "rsync-options", file); err != nil {
		return nil, err
	}

	// File-level warnings come before any per-folder warning.
	for _, key := range sortedKeys(doc) {
		switch key {
		case "target-location", "exclude", "rsync-options", "wake-on-lan", "backup-folders":
		default:
			p.warnings = append(p.warnings, fmt.Sprintf("Unknown field in '%s': '%s'", file, key))
		}
	}

	if raw, ok := doc["wake-on-lan"]; ok {
		if cfg.WOL, err = p.parseWOL(raw); err != nil {
			return nil, err
		}
	}

	rawFolders, ok := doc["backup-folders"]
	if !ok {
		return nil, errs.Config("Missing table 'backup-folders' in %s", file)
	}
	folders, ok := rawFolders.(map[string]any)
	if !ok {
		return nil, errs.Config("Expected table for 'backup-folders' in %s got: %v", file, rawFolders)
	}
	if cfg.Folders, err = p.parseFolders(folders, data); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (p *Parser) parseWOL(raw any) (*models.WOLConfig, error) {
	table, ok := raw.(map[string]any)
	if !ok {
		return nil, errs.Config("Expected table for 'wake-on-lan' got: %v", raw)
	}
	wol := &models.WOLConfig{Broadcast: "255.255.255.255", Wait: defaultWOLWait}
	for _, key := range sortedKeys(table) {
		value := table[key]
		str, isStr := value.(string)
		switch key {
		case "mac":
			if !isStr {
				return nil, errs.Config("Expected string for 'mac' in wake-on-lan got: %v", value)
			}
			wol.MACAddress = str
		case "broadcast":
			if !isStr {
				return nil, errs.Config("Expected string for 'broadcast' in wake-on-lan got: %v", value)
			}
			wol.Broadcast = str
		case "wait":
			if !isStr {
				return nil, errs.Config("Expected string for 'wait' in wake-on-lan got: %v", value)
			}
			wait, err := time.ParseDuration(str)
			if err != nil {
				return nil, errs.Config("Expected duration for 'wait' in wake-on-lan got: %v", value)
			}
			wol.Wait = wait
		default:
			p.warnings = append(p.warnings, fmt.Sprintf("Unknown field in 'wake-on-lan': '%s'", key))
		}
	}
	if wol.MACAddress == "" {
		return nil, errs.Config("Missing string 'mac' in wake-on-lan")
	}
	return wol, nil
}

func (p *Parser) parseFolders(folders map[string]any, raw []byte) ([]models.FolderSpec, error) {
	specs := make([]models.FolderSpec, 0, len(folders))
	for _, source := range sortedKeys(folders) {
		rawInfo := folders[source]
		info, ok := rawInfo.(map[string]any)
		if !ok {
			return nil, errs.Config("Expected table for '%s' in backup-folders got: %v", source, rawInfo)
		}
		spec := models.FolderSpec{Source: pathing.Parse(source)}
		var err error
		if spec.Exclude, err = stringSlice(info["exclude"], "exclude", source); err != nil {
			return nil, err
		}
		if spec.RsyncOptions, err = stringSlice(info["rsync-options"], "rsync-options", source); err != nil {
			return nil, err
		}
		if spec.Target, spec.TargetDeclared, err = stringField(info, "target", source); err != nil {
			return nil, err
		}
		if !spec.TargetDeclared {
			// Default target mirrors the source path under the target root.
			spec.Target = strings.TrimPrefix(spec.Source.Path, "/")
		}
		if spec.Chown, _, err = stringField(info, "chown", source); err != nil {
			return nil, err
		}
		if spec.Chmod, _, err = stringField(info, "chmod", source); err != nil {
			return nil, err
		}
		for _, key := range sortedKeys(info) {
			switch key {
			case "target", "exclude", "chown", "chmod", "rsync-options":
			default:
				p.warnings = append(p.warnings, fmt.Sprintf("Unknown field for '%s': '%s'", source, key))
			}
		}
		specs = append(specs, spec)
	}

	// TOML tables unmarshal as maps, so re-derive the declaration order from
	// the source key's first occurrence in the document. Folders are synced
	// in this order and the summary table follows it.
	sort.SliceStable(specs, func(i, j int) bool {
		return keyOffset(raw, specs[i].Source.String()) < keyOffset(raw, specs[j].Source.String())
	})
	return specs, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// keyOffset locates a folder source's declaration in the document. Sources
// are quoted TOML keys, so the quotes are part of the match: a bare substring
// search would let "/data/a" collide with the longer key "/data/ab" or with
// a value like target-location.
func keyOffset(raw []byte, key string) int {
	doc := string(raw)
	best := -1
	for _, quoted := range []string{`"` + key + `"`, `'` + key + `'`} {
		if i := strings.Index(doc, quoted); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	// Bare keys cannot contain slashes; this only matches simple names.
	if i := strings.Index(doc, key); i >= 0 {
		return i
	}
	return len(raw)
}

func stringField(info map[string]any, key, owner string) (string, bool, error) {
	raw, ok := info[key]
	if !ok {
		return "", false, nil
	}
	str, isStr := raw.(string)
	if !isStr {
		return "", true, errs.Config("Expected string for '%s' in %s got: %v", key, owner, raw)
	}
	return str, true, nil
}

func stringSlice(raw any, key, owner string) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errs.Config("Expected array of strings for '%s' in %s got: %v", key, owner, raw)
	}
	strs := make([]string, 0, len(items))
	for _, item := range items {
		str, isStr := item.(string)
		if !isStr {
			return nil, errs.Config("Expected array of strings for '%s' in %s got: %v", key, owner, raw)
		}
		strs = append(strs, str)
	}
	return strs, nil
}
