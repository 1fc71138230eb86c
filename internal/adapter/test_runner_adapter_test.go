package adapter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	m "nessie.dev/pkg/nessie/internal/model"
)

// These tests use sh as the runtime so they run without a JS engine.

func TestLocalTestRunnerAdapter_RunTest_Success(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "test1.js")
	writeTestFile(t, script, "echo '[{\"done_0\": true}]'\n")

	adapter := NewLocalTestRunnerAdapter("sh", WithWorkDir(m.Path(dir)))

	out, err := adapter.RunTest(context.Background(), m.Path(script))
	if err != nil {
		t.Fatalf("RunTest() error = %v", err)
	}

	if got := string(out); got != "[{\"done_0\": true}]\n" {
		t.Fatalf("RunTest() output = %q", got)
	}
}

func TestLocalTestRunnerAdapter_RunTest_IgnoresExitStatus(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "test1.js")
	writeTestFile(t, script, "echo '[]'\nexit 3\n")

	adapter := NewLocalTestRunnerAdapter("sh")

	out, err := adapter.RunTest(context.Background(), m.Path(script))
	if err != nil {
		t.Fatalf("RunTest() error = %v", err)
	}

	if string(out) != "[]\n" {
		t.Fatalf("RunTest() output = %q", out)
	}
}

func TestLocalTestRunnerAdapter_RunTest_Timeout(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "test1.js")
	writeTestFile(t, script, "exec sleep 5\n")

	adapter := NewLocalTestRunnerAdapter("sh", WithTimeout(100*time.Millisecond))

	_, err := adapter.RunTest(context.Background(), m.Path(script))
	if !errors.Is(err, ErrTestTimeout) {
		t.Fatalf("RunTest() error = %v, want ErrTestTimeout", err)
	}
}

func TestLocalTestRunnerAdapter_RunTest_MissingRuntime(t *testing.T) {
	adapter := NewLocalTestRunnerAdapter(filepath.Join(t.TempDir(), "no-such-runtime"))

	_, err := adapter.RunTest(context.Background(), "test1.js")
	if err == nil {
		t.Fatalf("RunTest() expected error for missing runtime")
	}

	if errors.Is(err, ErrTestTimeout) {
		t.Fatalf("RunTest() error = %v, want start failure", err)
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()

	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll(%s) error = %v", path, err)
	}
}
