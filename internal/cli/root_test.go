package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	code := execute(root)
	return stdout.String(), stderr.String(), code
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	want := []string{"serve", "read", "simulate", "diagnose", "validate", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, "bogus")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestExecute_SimulateThenRead(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "data.log")

	_, stderr, code := run(t, "simulate", "--log-path", logPath, "--count", "4", "--interval", "1ms",
		"--log-level", "debug", "--log-format", "json")
	if code != 0 {
		t.Fatalf("simulate exit code = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stderr, `"msg":"appended sample"`) {
		t.Errorf("debug logs not written as JSON:\n%s", stderr)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	last := lines[len(lines)-1]

	stdout, _, code := run(t, "read", "--log-path", logPath, "-o", "json")
	if code != 0 {
		t.Fatalf("read exit code = %d", code)
	}

	var report struct {
		Status string `json:"status"`
		Line   string `json:"line"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("read output is not JSON: %v\n%s", err, stdout)
	}
	if report.Status != "ok" || report.Line != last {
		t.Errorf("report = %+v, want ok with line %q", report, last)
	}
}

func TestExecute_ReadUnparsedExitsOne(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "data.log")
	if err := os.WriteFile(logPath, []byte("not a reading\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, code := run(t, "read", "--log-path", logPath)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}

	// A later successful command resets the exit code.
	_, _, code = run(t, "version")
	if code != 0 {
		t.Errorf("exit code after version = %d, want 0", code)
	}
}

func TestExecute_InvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(configPath, []byte("log_path = \n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := run(t, "read", "--config", configPath)
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "Error:") {
		t.Errorf("stderr = %q", stderr)
	}
}
