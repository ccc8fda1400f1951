package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_LoadsBuiltins(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	scenarios, loadErrs := s.List("")
	if len(loadErrs) != 0 {
		t.Fatalf("expected no load errors, got %v", loadErrs)
	}
	if len(scenarios) != 3 {
		t.Fatalf("expected 3 builtin scenarios, got %d", len(scenarios))
	}
	if _, ok := s.Get("builtin-flaky-link"); !ok {
		t.Fatal("expected builtin-flaky-link to be loaded")
	}
}

func TestNew_LoadsScenarioFilesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "custom.yaml", `
id: custom-one
name: Custom One
steps:
  - at_offset_ms: 0
    description: apply loss
    config:
      loss:
        enabled: true
        percent: 10
    hold_ms: 1000
`)

	s, err := New([]string{dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	sc, ok := s.Get("custom-one")
	if !ok {
		t.Fatal("expected custom-one to be loaded")
	}
	if sc.Metadata.TotalDurationMs != 1000 {
		t.Fatalf("expected recalculated total_duration_ms=1000, got %d", sc.Metadata.TotalDurationMs)
	}
}

func TestNew_InvalidFileBecomesLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "bad.yaml", `
id: bad-one
name: Bad
steps:
  - at_offset_ms: 0
    description: too much loss
    config:
      loss:
        enabled: true
        percent: 500
    hold_ms: 1000
`)

	s, err := New([]string{dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	_, loadErrs := s.List("")
	if len(loadErrs) != 1 {
		t.Fatalf("expected 1 load error, got %v", loadErrs)
	}
	if loadErrs[0].Category != "validate" {
		t.Fatalf("expected validate category, got %q", loadErrs[0].Category)
	}
	if _, ok := s.Get("bad-one"); ok {
		t.Fatal("expected bad-one not to be loaded")
	}
}

func TestWatchLoop_PicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New([]string{dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, ok := s.Get("late-arrival"); ok {
		t.Fatal("did not expect late-arrival before it's written")
	}

	writeScenarioFile(t, dir, "late.yaml", `
id: late-arrival
name: Late Arrival
steps:
  - at_offset_ms: 0
    description: noop
    hold_ms: 500
`)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.Get("late-arrival"); ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("timed out waiting for watcher to pick up the new scenario file")
}

func writeScenarioFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write scenario file: %v", err)
	}
}
