// Package integration provides CLI integration tests for worldstore.
package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// worldstoreBin is the path to the built worldstore binary.
	worldstoreBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// SetWorldstoreBin sets the path to the worldstore binary (called from TestMain).
func SetWorldstoreBin(path string) {
	worldstoreBin = path
}

// SetBuildErr sets the build error (called from TestMain).
func SetBuildErr(err error) {
	buildErr = err
}

// TestEnv provides an isolated test environment with its own config and
// data directory.
type TestEnv struct {
	t         *testing.T
	TempDir   string
	ConfigDir string
	DataDir   string
}

// NewTestEnv creates a new isolated test environment. The config.yaml it
// writes points data_dir at the environment's data directory so commands
// run without a --data-dir flag still land there.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build worldstore: %v", buildErr)
	}
	if worldstoreBin == "" {
		t.Fatal("worldstore binary not built (worldstoreBin is empty)")
	}

	tempDir := t.TempDir()
	dataDir := filepath.Join(tempDir, "data")
	configDir := filepath.Join(tempDir, "config")

	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configContent := "data_dir: " + dataDir + "\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return &TestEnv{
		t:         t,
		TempDir:   tempDir,
		ConfigDir: configDir,
		DataDir:   dataDir,
	}
}

// WriteBlueprint writes a YAML blueprint file into the temp directory and
// returns its path.
func (e *TestEnv) WriteBlueprint(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.TempDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.t.Fatalf("failed to write blueprint %s: %v", name, err)
	}
	return path
}

// CmdResult holds the result of a worldstore command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunWorldstore executes the worldstore CLI with the given arguments,
// pinning both the config and data directories to the test environment.
func (e *TestEnv) RunWorldstore(args ...string) CmdResult {
	e.t.Helper()
	allArgs := append([]string{"--config-dir", e.ConfigDir, "--data-dir", e.DataDir}, args...)
	return e.run(allArgs)
}

// RunWithConfigOnly executes the CLI with only --config-dir set, so the
// data directory resolves through config.yaml.
func (e *TestEnv) RunWithConfigOnly(args ...string) CmdResult {
	e.t.Helper()
	allArgs := append([]string{"--config-dir", e.ConfigDir}, args...)
	return e.run(allArgs)
}

func (e *TestEnv) run(args []string) CmdResult {
	e.t.Helper()

	cmd := exec.Command(worldstoreBin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run worldstore: %v", err)
		}
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRunWorldstore executes the worldstore CLI and fails the test if it
// returns non-zero.
func (e *TestEnv) MustRunWorldstore(args ...string) CmdResult {
	e.t.Helper()
	result := e.RunWorldstore(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("worldstore %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}

// Room represents a room instance for JSON parsing.
type Room struct {
	Type        string `json:"type"`
	ID          int64  `json:"id"`
	Barcode     string `json:"barcode"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Account represents an account instance for JSON parsing.
type Account struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
