package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/pkg/errs"
	"github.com/f9-o/inspiral/pkg/pprint"
)

// sandbox gives each test its own inspiral home and working directory and
// captures everything the commands print.
func sandbox(t *testing.T) (string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("INSPIRAL_HOME", filepath.Join(dir, "home"))

	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })

	var buf bytes.Buffer
	out := pprint.Out
	pprint.Out = &buf
	t.Cleanup(func() { pprint.Out = out })
	return dir, &buf
}

func listRuns(t *testing.T, buf *bytes.Buffer) []v1.RunRecord {
	t.Helper()
	buf.Reset()
	if err := execute([]string{"history", "ls", "--json"}); err != nil {
		t.Fatalf("history ls: %v", err)
	}
	var runs []v1.RunRecord
	if err := json.Unmarshal(buf.Bytes(), &runs); err != nil {
		t.Fatalf("decode history: %v\n%s", err, buf.String())
	}
	return runs
}

func TestRunRecordsHistoryAndExports(t *testing.T) {
	dir, buf := sandbox(t)

	if err := execute([]string{"run", "--no-pace", "--frames", "json", "--max-ticks", "5"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	frames := 0
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, `{"tick":`) {
			frames++
		}
	}
	if frames != 5 {
		t.Errorf("streamed %d frames, want 5\n%s", frames, buf.String())
	}

	runs := listRuns(t, buf)
	if len(runs) != 1 {
		t.Fatalf("history has %d runs, want 1", len(runs))
	}
	rec := runs[0]
	if rec.Ticks != 5 || rec.Result != v1.ResultInterrupted || rec.Surface != "stream" {
		t.Errorf("record = %+v", rec)
	}

	out := filepath.Join(dir, "run.db")
	if err := execute([]string{"export", rec.ID, "--format", "sqlite", "--out", out}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("export file: %v", err)
	}

	buf.Reset()
	if err := execute([]string{"export", rec.ID, "--format", "toml"}); err != nil {
		t.Fatalf("export toml: %v", err)
	}
	if !strings.Contains(buf.String(), `id = "`+rec.ID+`"`) {
		t.Errorf("toml export missing run id:\n%s", buf.String())
	}

	if err := execute([]string{"history", "rm", rec.ID}); err != nil {
		t.Fatalf("history rm: %v", err)
	}
	if runs := listRuns(t, buf); len(runs) != 0 {
		t.Errorf("history after rm = %+v", runs)
	}
}

func TestRunWithoutRecord(t *testing.T) {
	_, buf := sandbox(t)
	if err := execute([]string{"run", "--no-pace", "--frames", "none", "--no-record"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "merged after 300 ticks") {
		t.Errorf("summary missing:\n%s", buf.String())
	}
	if runs := listRuns(t, buf); len(runs) != 0 {
		t.Errorf("--no-record stored %d runs", len(runs))
	}
}

func TestHistoryShowUnknownRun(t *testing.T) {
	sandbox(t)
	err := execute([]string{"history", "show", "run-999999"})
	if !errs.IsCode(err, errs.ErrRunNotFound) {
		t.Fatalf("err = %v, want %s", err, errs.ErrRunNotFound)
	}
}

func TestInitWritesLoadableConfig(t *testing.T) {
	dir, _ := sandbox(t)

	if err := execute([]string{"init"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "inspiral.yaml")); err != nil {
		t.Fatal(err)
	}
	if err := execute([]string{"init"}); !errs.IsCode(err, errs.ErrConfig) {
		t.Errorf("second init err = %v, want %s", err, errs.ErrConfig)
	}

	if err := execute([]string{"init", "--format", "toml"}); err != nil {
		t.Fatalf("init toml: %v", err)
	}
	tomlPath := filepath.Join(dir, "inspiral.toml")
	if err := execute([]string{"--config", tomlPath, "run", "--no-pace", "--frames", "none", "--max-ticks", "1", "--no-record"}); err != nil {
		t.Fatalf("run with toml config: %v", err)
	}
}

func TestBadConfigIsReported(t *testing.T) {
	dir, _ := sandbox(t)
	if err := os.WriteFile(filepath.Join(dir, "inspiral.yaml"), []byte("orbit:\n  radius_step: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := execute([]string{"run", "--no-pace"})
	if !errs.IsCode(err, errs.ErrValidation) {
		t.Fatalf("err = %v, want %s", err, errs.ErrValidation)
	}
}

func TestVersionJSON(t *testing.T) {
	_, buf := sandbox(t)
	if err := execute([]string{"version", "--json"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if info["version"] == "" {
		t.Errorf("info = %v", info)
	}
}
