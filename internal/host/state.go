// Package host reads and writes host.json, the file through which an editor
// plugin (or `editorcord notify`) reports what the user is doing, and
// watches it for changes.
//
// The schema is versioned (see [migrate.Host]); older files are upgraded on
// read and files from a newer build are backed up before being normalized.
package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"tools.zach/dev/editorcord/internal/atomicfile"
	"tools.zach/dev/editorcord/internal/migrate"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// State is the host.json schema.
type State struct {
	// Version is the schema version. See [migrate.Host].
	Version int `json:"$version"`
	// Context is the open scene or document label.
	Context string `json:"context"`
	// Active is true while the host is in play mode.
	Active bool `json:"active"`
	// Product is the application or project name.
	Product string `json:"product,omitempty"`
	// EngineVersion is the engine version string, e.g. "2022.3.10f1".
	EngineVersion string `json:"engineVersion,omitempty"`
	// SessionStart is the unix second the host session began.
	SessionStart int64 `json:"sessionStart,omitempty"`
	// UpdatedAt is the unix second of the last write.
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

// Change flags which parts of the state differ between two reads.
type Change struct {
	Context bool
	Mode    bool
	Info    bool
}

// Any reports whether anything changed.
func (c Change) Any() bool { return c.Context || c.Mode || c.Info }

// Diff compares prev with next. A nil prev counts as everything changed.
func Diff(prev, next *State) Change {
	if next == nil {
		return Change{}
	}
	if prev == nil {
		return Change{Context: true, Mode: true, Info: true}
	}
	return Change{
		Context: prev.Context != next.Context,
		Mode:    prev.Active != next.Active,
		Info: prev.Product != next.Product ||
			prev.EngineVersion != next.EngineVersion ||
			prev.SessionStart != next.SessionStart,
	}
}

// ///////////////////////////////////////////////
// Reading and Writing
// ///////////////////////////////////////////////

// ErrCorrupted is wrapped by [Read] when the file is not valid JSON.
var ErrCorrupted = errors.New("corrupted host state")

// Read loads the state at path. A missing file returns an error wrapping
// [os.ErrNotExist]. A corrupted file is copied to path+".corrupted" and
// reported with [ErrCorrupted].
func Read(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading host state: %w", err)
	}

	s, err := decode(data)
	if errors.Is(err, ErrCorrupted) {
		backup := path + ".corrupted"
		if wErr := os.WriteFile(backup, data, 0o600); wErr != nil {
			slog.Warn("failed to back up corrupted host state", "path", backup, "error", wErr)
		}
		return nil, fmt.Errorf("%w (backed up to %s)", err, backup)
	}
	if err != nil {
		return nil, err
	}

	if s.Version > migrate.Host.CurrentVersion {
		backup := fmt.Sprintf("%s.v%d.bak", path, s.Version)
		slog.Warn("host state from a newer version, normalizing", "version", s.Version, "backup", backup)
		if wErr := os.WriteFile(backup, data, 0o600); wErr != nil {
			slog.Warn("failed to back up host state", "path", backup, "error", wErr)
		}
		s.Version = migrate.Host.CurrentVersion
	}
	return s, nil
}

// Peek loads the state at path like [Read] but never writes backups. The
// returned Version is the file's own, which may be newer than this build's.
func Peek(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading host state: %w", err)
	}
	return decode(data)
}

// decode migrates data in memory and unmarshals it. Invalid JSON is
// reported as [ErrCorrupted] wrapping the parse error.
func decode(data []byte) (*State, error) {
	version, err := PeekVersion(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}
	if migrate.Host.NeedsMigration(version) {
		data, version, err = migrate.Host.Run(data, version)
		if err != nil {
			return nil, err
		}
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}
	s.Version = version
	return &s, nil
}

// Write stamps s with the current schema version and atomically replaces
// the file at path.
func Write(path string, s *State) error {
	s.Version = migrate.Host.CurrentVersion
	return atomicfile.WriteJSON(path, s, 0o644)
}

// PeekVersion extracts $version without decoding the rest. A missing
// version reads as 1, the first schema.
func PeekVersion(data []byte) (int, error) {
	var head struct {
		Version int `json:"$version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, fmt.Errorf("peeking version: %w", err)
	}
	if head.Version == 0 {
		return 1, nil
	}
	return head.Version, nil
}
