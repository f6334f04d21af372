package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/Swind/go-uthread/config"
)

// stubExits replaces both process exit paths for the duration of the test.
func stubExits(t *testing.T) (appExit, cliExit *int) {
	t.Helper()
	appCode, cliCode := -1, -1

	origProcess, origCLI, origErrWriter := exitProcess, cli.OsExiter, cli.ErrWriter
	exitProcess = func(code int) { appCode = code }
	cli.OsExiter = func(code int) { cliCode = code }
	cli.ErrWriter = io.Discard
	t.Cleanup(func() {
		exitProcess, cli.OsExiter, cli.ErrWriter = origProcess, origCLI, origErrWriter
	})
	return &appCode, &cliCode
}

// runApp runs the app on a fresh goroutine. The run command ends that
// goroutine through the scheduler's exit path rather than returning.
func runApp(t *testing.T, args ...string) (stdout, stderr *bytes.Buffer, err error) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	app := newApp(stdout, stderr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		err = app.Run(append([]string{"uthreads"}, args...))
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("app did not finish")
	}
	return stdout, stderr, err
}

func TestConfigCommand_Defaults(t *testing.T) {
	stubExits(t)

	stdout, _, err := runApp(t, "config")

	require.NoError(t, err)
	parsed, perr := config.Parse(stdout.Bytes(), "stdout.hcl")
	require.NoError(t, perr)
	assert.Equal(t, config.Default(), parsed)
}

// TestConfigCommand_File verifies the config flag is loaded and echoed back
func TestConfigCommand_File(t *testing.T) {
	// Arrange
	stubExits(t)
	path := filepath.Join(t.TempDir(), "uthreads.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`workload { threads = 9 }`), 0o644))

	// Act
	stdout, _, err := runApp(t, "config", "--config", path)

	// Assert
	require.NoError(t, err)
	parsed, perr := config.Parse(stdout.Bytes(), "stdout.hcl")
	require.NoError(t, perr)
	assert.Equal(t, 9, parsed.Workload.Threads)
}

func TestConfigCommand_EnvVar(t *testing.T) {
	stubExits(t)
	path := filepath.Join(t.TempDir(), "uthreads.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`log { format = "json" }`), 0o644))
	t.Setenv("UTHREADS_CONFIG", path)

	stdout, _, err := runApp(t, "config")

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), `"json"`)
}

// TestRunCommand_ManualTicks verifies a full run prints the report
// Given: A small workload on manual ticks
// When: The run command executes
// Then: Every worker appears in the table and the process exits with 0
func TestRunCommand_ManualTicks(t *testing.T) {
	// Arrange
	appExit, _ := stubExits(t)

	// Act
	stdout, stderr, _ := runApp(t, "run", "--manual-ticks", "-n", "3", "--iterations", "4", "--log-level", "error")

	// Assert
	assert.Equal(t, 0, *appExit)
	out := stdout.String()
	assert.Contains(t, out, "worker-1")
	assert.Contains(t, out, "worker-2")
	assert.Contains(t, out, "worker-3")
	assert.Contains(t, out, "total quantums:")
	assert.Empty(t, stderr.String())
}

func TestRunCommand_InvalidSettings(t *testing.T) {
	appExit, cliExit := stubExits(t)

	stdout, _, err := runApp(t, "run", "--quantum-us", "0")

	require.Error(t, err)
	assert.Equal(t, 1, *cliExit)
	assert.Equal(t, -1, *appExit, "no scheduler should have been started")
	assert.Empty(t, stdout.String())
}

func TestRunCommand_MissingConfigFile(t *testing.T) {
	_, cliExit := stubExits(t)

	_, _, err := runApp(t, "run", "--config", filepath.Join(t.TempDir(), "missing.hcl"))

	require.Error(t, err)
	assert.Equal(t, 1, *cliExit)
}
