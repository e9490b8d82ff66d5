package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func runCtl(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()

	var out, errOut bytes.Buffer

	env := map[string]string{"XDG_CONFIG_HOME": t.TempDir()}
	code := Run(strings.NewReader(stdin), &out, &errOut, append([]string{"storedctl"}, args...), env)

	return out.String(), errOut.String(), code
}

func assertExitCode(t *testing.T, got, want int, stderr string) {
	t.Helper()

	if got != want {
		t.Errorf("exit code = %d, want %d\nstderr: %s", got, want, stderr)
	}
}

func Test_Run_Executes_Piped_Script(t *testing.T) {
	t.Parallel()

	script := strings.Join([]string{
		"# counters",
		"new hits 0",
		"inc hits --by 2",
		"get hits",
		"exit",
		"get hits",
	}, "\n")

	stdout, stderr, code := runCtl(t, script)
	assertExitCode(t, code, 0, stderr)

	if strings.Count(stdout, "\n2\n") != 1 {
		t.Errorf("stdout should print hits once, got: %q", stdout)
	}
}

func Test_Run_Stops_At_First_Failing_Line(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCtl(t, "new a 1\nget b\nget a\n")
	assertExitCode(t, code, 1, stderr)

	if !strings.Contains(stderr, "error: line 2:") {
		t.Errorf("stderr = %q, want line number", stderr)
	}

	if strings.Contains(stdout, "\n1\n") {
		t.Errorf("line 3 should not have run, stdout: %q", stdout)
	}
}

func Test_Run_Script_Flag_Reads_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cmds.txt")
	writeFile(t, path, "slice xs 1 2 3\nget xs\n")

	stdout, stderr, code := runCtl(t, "", "--script", path)
	assertExitCode(t, code, 0, stderr)

	if !strings.Contains(stdout, "[1 2 3]") {
		t.Errorf("stdout = %q", stdout)
	}
}

func Test_Run_Print_Config_Includes_Overrides(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCtl(t, "", "--print-config", "--capacity", "9", "--log-level", "error")
	assertExitCode(t, code, 0, stderr)

	var cfg Config
	if err := json.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatalf("decode config: %v\n%s", err, stdout)
	}

	if cfg.InitialCapacity != 9 || cfg.LogLevel != "error" || cfg.Prompt != "stored> " {
		t.Errorf("config = %+v", cfg)
	}
}

func Test_Run_Rejects_Bad_Flags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{name: "unknown flag", args: []string{"--bogus"}, msg: "unknown flag"},
		{name: "extra argument", args: []string{"extra"}, msg: "unexpected argument"},
		{name: "negative capacity", args: []string{"--capacity", "-1"}, msg: "cannot be negative"},
		{name: "bad log level", args: []string{"--log-level", "loud"}, msg: "log_level"},
		{name: "missing script", args: []string{"-s", "/does/not/exist"}, msg: "error:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, stderr, code := runCtl(t, "", tt.args...)
			assertExitCode(t, code, 1, stderr)

			if !strings.Contains(stderr, tt.msg) {
				t.Errorf("stderr = %q, want %q", stderr, tt.msg)
			}
		})
	}
}

func Test_Run_Help_Prints_Usage(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCtl(t, "", "--help")
	assertExitCode(t, code, 0, stderr)

	if !strings.Contains(stdout, "Usage: storedctl") || !strings.Contains(stdout, "--script") {
		t.Errorf("stdout = %q", stdout)
	}
}
