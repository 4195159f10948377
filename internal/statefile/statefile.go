// Package statefile persists small JSON state snapshots with atomic
// replace-via-rename writes so a crash mid-flush never leaves a torn file.
package statefile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// Version is stamped into every snapshot envelope.
const Version = 1

// Envelope wraps a snapshot payload with its version and write time.
type Envelope struct {
	Version int       `json:"version"`
	TS      time.Time `json:"ts"`
	Data    any       `json:"data"`
}

// Save writes data wrapped in an Envelope to path: temp file in the target
// directory, fsync, then rename over the destination.
func Save(path string, data any) error {
	payload, err := json.MarshalIndent(Envelope{
		Version: Version,
		TS:      time.Now().UTC(),
		Data:    data,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename state file: %w", err)
	}

	return nil
}

// Load reads a snapshot into out (the Data payload). A missing file is not an
// error; ok reports whether anything was loaded.
func Load(path string, out any) (ok bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read state file: %w", err)
	}

	env := Envelope{Data: out}
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("decode state file: %w", err)
	}
	if env.Version != Version {
		return false, fmt.Errorf("unsupported state version %d", env.Version)
	}

	return true, nil
}
