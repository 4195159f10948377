package statefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testState struct {
	Quotes int     `json:"quotes"`
	PnL    float64 `json:"pnl"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mm-metrics.json")

	if err := Save(path, testState{Quotes: 42, PnL: -3.5}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var got testState
	ok, err := Load(path, &got)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("load reported missing file")
	}
	if got.Quotes != 42 || got.PnL != -3.5 {
		t.Errorf("state = %+v", got)
	}
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	var got testState
	ok, err := Load(filepath.Join(t.TempDir(), "absent.json"), &got)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Error("load reported a missing file as present")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state", "cross-platform-state.json")

	if err := Save(path, testState{Quotes: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stat: %v", err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	for i := 0; i < 3; i++ {
		if err := Save(path, testState{Quotes: i}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"version":9,"ts":"2025-06-01T00:00:00Z","data":{}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got testState
	if _, err := Load(path, &got); err == nil {
		t.Error("expected version error")
	}
}

func TestLoadRejectsCorruptJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"version":1,`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got testState
	if _, err := Load(path, &got); err == nil {
		t.Error("expected decode error")
	}
}
