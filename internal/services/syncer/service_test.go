package syncer

import (
	"errors"
	"io"
	"testing"

	"github.com/fgeck/blue-backup/internal/access"
	"github.com/fgeck/blue-backup/internal/models"
	"github.com/fgeck/blue-backup/internal/pathing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExecutor struct {
	runFunc func(name string, args ...string) (*access.RunResult, error)
}

func (m *mockExecutor) Run(name string, args ...string) (*access.RunResult, error) {
	if m.runFunc != nil {
		return m.runFunc(name, args...)
	}
	return &access.RunResult{}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig() *models.BackupConfig {
	return &models.BackupConfig{
		Exclude:      []string{"*.tmp"},
		RsyncOptions: []string{"--compress"},
	}
}

func TestBuildArgs_Order(t *testing.T) {
	folder := models.FolderSpec{
		Source:       pathing.Parse("/home/user/data"),
		Exclude:      []string{"cache/"},
		Chown:        "backup:backup",
		Chmod:        "D750",
		RsyncOptions: []string{"--sparse"},
	}
	dest := pathing.Parse("/backup/main/2024-06-01/home/user/data")

	args := BuildArgs(folder, dest, testConfig(), false)

	assert.Equal(t, []string{
		"--archive",
		"--delete",
		"--delete-excluded",
		"--timeout=900",
		"--mkpath",
		"--stats",
		"--chown=backup:backup",
		"--chmod=D750",
		"--exclude=*.tmp",
		"--exclude=cache/",
		"--compress",
		"--sparse",
		"/home/user/data/",
		"/backup/main/2024-06-01/home/user/data",
	}, args)
}

func TestBuildArgs_DryRun(t *testing.T) {
	folder := models.FolderSpec{Source: pathing.Parse("/data")}

	args := BuildArgs(folder, pathing.Parse("/backup/data"), &models.BackupConfig{}, true)

	assert.Contains(t, args, "--dry-run")
}

func TestBuildArgs_RemoteEndpoints(t *testing.T) {
	folder := models.FolderSpec{Source: pathing.Parse("pi:/var/lib/app")}
	dest := pathing.Parse("/backup/app")

	args := BuildArgs(folder, dest, &models.BackupConfig{}, false)

	assert.Equal(t, "pi:/var/lib/app/", args[len(args)-2])
	assert.Equal(t, "/backup/app", args[len(args)-1])
}

func TestSync_Success(t *testing.T) {
	var gotName string
	var gotArgs []string
	executor := &mockExecutor{
		runFunc: func(name string, args ...string) (*access.RunResult, error) {
			gotName = name
			gotArgs = args
			return &access.RunResult{Stdout: []byte(
				"Number of files: 10 (reg: 7, dir: 3)\n" +
					"Number of regular files transferred: 2\n" +
					"Total file size: 5.00M bytes\n" +
					"Total transferred file size: 1.00M bytes\n")}, nil
		},
	}
	svc := NewWithExecutor(testLogger(), executor)

	folder := models.FolderSpec{Source: pathing.Parse("/data")}
	result := svc.Sync(folder, pathing.Parse("/backup/data"), testConfig(), false)

	require.NoError(t, result.Error)
	assert.Equal(t, "rsync", gotName)
	assert.Equal(t, "/data/", gotArgs[len(gotArgs)-2])
	assert.Equal(t, "10", result.Stats.Files)
	assert.Equal(t, "2", result.Stats.Transferred)
	assert.Contains(t, string(result.Output), "Number of files")
}

func TestSync_BothEndpointsRemote(t *testing.T) {
	called := false
	executor := &mockExecutor{
		runFunc: func(name string, args ...string) (*access.RunResult, error) {
			called = true
			return &access.RunResult{}, nil
		},
	}
	svc := NewWithExecutor(testLogger(), executor)

	folder := models.FolderSpec{Source: pathing.Parse("pi:/data")}
	result := svc.Sync(folder, pathing.Parse("nas:/backup/data"), testConfig(), false)

	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "cannot both be remote")
	assert.False(t, called)
}

func TestSync_NonZeroExitCode(t *testing.T) {
	executor := &mockExecutor{
		runFunc: func(name string, args ...string) (*access.RunResult, error) {
			return &access.RunResult{
				ExitCode: 23,
				Stderr:   []byte("rsync: some files could not be transferred\n"),
			}, nil
		},
	}
	svc := NewWithExecutor(testLogger(), executor)

	folder := models.FolderSpec{Source: pathing.Parse("/data")}
	result := svc.Sync(folder, pathing.Parse("/backup/data"), testConfig(), false)

	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "some files could not be transferred")
	assert.Contains(t, result.Error.Error(), "Return code: 23")
}

func TestSync_StderrOnCleanExitIsFailure(t *testing.T) {
	executor := &mockExecutor{
		runFunc: func(name string, args ...string) (*access.RunResult, error) {
			return &access.RunResult{Stderr: []byte("rsync: permission denied\n")}, nil
		},
	}
	svc := NewWithExecutor(testLogger(), executor)

	folder := models.FolderSpec{Source: pathing.Parse("/data")}
	result := svc.Sync(folder, pathing.Parse("/backup/data"), testConfig(), false)

	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "Return code: 0")
}

func TestSync_ExecutorError(t *testing.T) {
	executor := &mockExecutor{
		runFunc: func(name string, args ...string) (*access.RunResult, error) {
			return nil, errors.New("rsync: executable file not found")
		},
	}
	svc := NewWithExecutor(testLogger(), executor)

	folder := models.FolderSpec{Source: pathing.Parse("/data")}
	result := svc.Sync(folder, pathing.Parse("/backup/data"), testConfig(), false)

	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "rsync failed")
}
