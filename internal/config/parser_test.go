package config

import (
	"testing"

	"github.com/fgeck/blue-backup/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
target-location = "/backup/main/{TODAY}"

[backup-folders]
[backup-folders."/home/user/data"]
`

func TestLoadReader_Minimal(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.LoadReader(minimalConfig, "test.toml")

	require.NoError(t, err)
	assert.Empty(t, parser.Warnings())
	assert.Equal(t, "/backup/main/{TODAY}", cfg.Target.Path)
	assert.Equal(t, models.ModeSnapshot, cfg.Mode)
	require.Len(t, cfg.Folders, 1)
	assert.Equal(t, "/home/user/data", cfg.Folders[0].Source.Path)
	assert.Equal(t, "home/user/data", cfg.Folders[0].Target)
	assert.False(t, cfg.Folders[0].TargetDeclared)
}

func TestLoadReader_FullFolderSpec(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.LoadReader(`
target-location = "/backup/main"
exclude = ["*.tmp"]
rsync-options = ["--compress"]

[backup-folders."/var/lib/app"]
target = "app"
exclude = ["cache/"]
chown = "backup:backup"
chmod = "D750,F640"
rsync-options = ["--sparse"]
`, "test.toml")

	require.NoError(t, err)
	assert.Equal(t, []string{"*.tmp"}, cfg.Exclude)
	assert.Equal(t, []string{"--compress"}, cfg.RsyncOptions)

	require.Len(t, cfg.Folders, 1)
	folder := cfg.Folders[0]
	assert.Equal(t, "app", folder.Target)
	assert.True(t, folder.TargetDeclared)
	assert.Equal(t, []string{"cache/"}, folder.Exclude)
	assert.Equal(t, "backup:backup", folder.Chown)
	assert.Equal(t, "D750,F640", folder.Chmod)
	assert.Equal(t, []string{"--sparse"}, folder.RsyncOptions)
}

func TestLoadReader_FoldersKeepDeclarationOrder(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.LoadReader(`
target-location = "/backup/main"

[backup-folders."/zeta"]
[backup-folders."/alpha"]
[backup-folders."/mid"]
`, "test.toml")

	require.NoError(t, err)
	require.Len(t, cfg.Folders, 3)
	assert.Equal(t, "/zeta", cfg.Folders[0].Source.Path)
	assert.Equal(t, "/alpha", cfg.Folders[1].Source.Path)
	assert.Equal(t, "/mid", cfg.Folders[2].Source.Path)
}

func TestLoadReader_SubstringKeysKeepDeclarationOrder(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.LoadReader(`
target-location = "/backup/main"

[backup-folders."/data/ab"]
[backup-folders."/data/a"]
`, "test.toml")

	require.NoError(t, err)
	require.Len(t, cfg.Folders, 2)
	assert.Equal(t, "/data/ab", cfg.Folders[0].Source.Path)
	assert.Equal(t, "/data/a", cfg.Folders[1].Source.Path)
}

func TestLoadReader_KeyInsideValueDoesNotStealOrder(t *testing.T) {
	parser := NewParser()

	// "/backup" occurs inside the target-location value long before its own
	// declaration; the declared order must still hold.
	cfg, err := parser.LoadReader(`
target-location = "/backup/flat"

[backup-folders."/data/z"]
target = "z"
[backup-folders."/backup"]
target = "b"
`, "test.toml")

	require.NoError(t, err)
	require.Len(t, cfg.Folders, 2)
	assert.Equal(t, "/data/z", cfg.Folders[0].Source.Path)
	assert.Equal(t, "/backup", cfg.Folders[1].Source.Path)
}

func TestLoadReader_FileLevelWarningsBeforeFolderWarnings(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadReader(`
target-location = "/backup"

[backup-folders."/data"]
excludes = ["typo"]

[extra-table]
value = 1
`, "test.toml")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"Unknown field in 'test.toml': 'extra-table'",
		"Unknown field for '/data': 'excludes'",
	}, parser.Warnings())
}

func TestLoadReader_MissingTargetLocation(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadReader(`
[backup-folders."/data"]
`, "test.toml")

	require.Error(t, err)
	assert.Equal(t, "Missing string 'target-location' in test.toml", err.Error())
}

func TestLoadReader_TargetLocationWrongType(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadReader(`
target-location = 42

[backup-folders."/data"]
`, "test.toml")

	require.Error(t, err)
	assert.Equal(t, "Expected string for 'target-location' in test.toml got: 42", err.Error())
}

func TestLoadReader_MissingBackupFolders(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadReader(`target-location = "/backup"`, "test.toml")

	require.Error(t, err)
	assert.Equal(t, "Missing table 'backup-folders' in test.toml", err.Error())
}

func TestLoadReader_ExcludeWrongType(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadReader(`
target-location = "/backup"
exclude = "single"

[backup-folders."/data"]
`, "test.toml")

	require.Error(t, err)
	assert.Equal(t, "Expected array of strings for 'exclude' in test.toml got: single", err.Error())
}

func TestLoadReader_ExcludeMixedElements(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadReader(`
target-location = "/backup"

[backup-folders."/data"]
exclude = ["ok", 5]
`, "test.toml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected array of strings for 'exclude' in /data got:")
}

func TestLoadReader_FolderTargetWrongType(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadReader(`
target-location = "/backup"

[backup-folders."/data"]
target = false
`, "test.toml")

	require.Error(t, err)
	assert.Equal(t, "Expected string for 'target' in /data got: false", err.Error())
}

func TestLoadReader_UnknownTopLevelKeyWarns(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadReader(`
target-location = "/backup"
typo-key = "oops"

[backup-folders."/data"]
`, "test.toml")

	require.NoError(t, err)
	assert.Equal(t, []string{"Unknown field in 'test.toml': 'typo-key'"}, parser.Warnings())
}

func TestLoadReader_UnknownFolderKeyWarns(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadReader(`
target-location = "/backup"

[backup-folders."/data"]
excludes = ["typo"]
`, "test.toml")

	require.NoError(t, err)
	assert.Equal(t, []string{"Unknown field for '/data': 'excludes'"}, parser.Warnings())
}

func TestLoadReader_EmptyFoldersTableIsEmptyRun(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.LoadReader(`
target-location = "/backup"

[backup-folders]
`, "test.toml")

	require.NoError(t, err)
	assert.Empty(t, cfg.Folders)
}

func TestLoadReader_WakeOnLAN(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.LoadReader(`
target-location = "nas:/backup/{TODAY}"

[wake-on-lan]
mac = "AA:BB:CC:DD:EE:FF"
broadcast = "192.168.1.255"
wait = "2m"

[backup-folders."/data"]
`, "test.toml")

	require.NoError(t, err)
	require.NotNil(t, cfg.WOL)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.WOL.MACAddress)
	assert.Equal(t, "192.168.1.255", cfg.WOL.Broadcast)
	assert.Equal(t, "2m0s", cfg.WOL.Wait.String())
}

func TestLoadReader_WakeOnLANDefaults(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.LoadReader(`
target-location = "nas:/backup/{TODAY}"

[wake-on-lan]
mac = "AA:BB:CC:DD:EE:FF"

[backup-folders."/data"]
`, "test.toml")

	require.NoError(t, err)
	require.NotNil(t, cfg.WOL)
	assert.Equal(t, "255.255.255.255", cfg.WOL.Broadcast)
	assert.Equal(t, "30s", cfg.WOL.Wait.String())
}

func TestLoadReader_WakeOnLANMissingMAC(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadReader(`
target-location = "/backup"

[wake-on-lan]
broadcast = "192.168.1.255"

[backup-folders."/data"]
`, "test.toml")

	require.Error(t, err)
	assert.Equal(t, "Missing string 'mac' in wake-on-lan", err.Error())
}

func TestLoadFile_MissingFile(t *testing.T) {
	parser := NewParser()

	_, err := parser.LoadFile("/nonexistent/backup.toml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read '/nonexistent/backup.toml'")
}
