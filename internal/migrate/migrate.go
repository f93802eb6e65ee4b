// Package migrate upgrades versioned on-disk documents (the TOML config and
// the host state JSON) one schema version at a time.
package migrate

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Migration upgrades a document to Version from the version before it.
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short label for log output.
	Description string
	// Upgrade rewrites the raw document.
	Upgrade func(data []byte) ([]byte, error)
}

// Registry holds the migrations of one document type. Version numbers are
// independent between registries.
type Registry struct {
	// Name identifies the document in logs, e.g. "config".
	Name string
	// CurrentVersion is the version this build reads and writes.
	CurrentVersion int
	// Migrations is exported so tests can swap the list on a private registry.
	Migrations []Migration
}

// Config is the registry for config.toml.
var Config = &Registry{Name: "config", CurrentVersion: 1}

// Host is the registry for host.json.
var Host = &Registry{Name: "host state", CurrentVersion: 2}

// ///////////////////////////////////////////////
// Registry API
// ///////////////////////////////////////////////

// Register adds m. Registering the same version twice panics, since it can
// only happen through a programming error at init time.
func (r *Registry) Register(m Migration) {
	if slices.ContainsFunc(r.Migrations, func(e Migration) bool { return e.Version == m.Version }) {
		panic(fmt.Sprintf("migrate: %s: duplicate migration version %d (%q)", r.Name, m.Version, m.Description))
	}
	if m.Version > r.CurrentVersion {
		panic(fmt.Sprintf("migrate: %s: migration v%d is newer than current version %d", r.Name, m.Version, r.CurrentVersion))
	}
	r.Migrations = append(r.Migrations, m)
}

// Pending returns, in version order, the migrations a document at
// fileVersion still needs.
func (r *Registry) Pending(fileVersion int) []Migration {
	var out []Migration
	for _, m := range r.Migrations {
		if m.Version > fileVersion {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out
}

// NeedsMigration reports whether Run would change a document at fileVersion.
func (r *Registry) NeedsMigration(fileVersion int) bool {
	return len(r.Pending(fileVersion)) > 0
}

// Run applies pending migrations in order and returns the upgraded data and
// the version reached. On error the version is the last one that succeeded.
func (r *Registry) Run(data []byte, fileVersion int) ([]byte, int, error) {
	version := fileVersion
	for _, m := range r.Pending(fileVersion) {
		slog.Info("applying migration", "document", r.Name, "version", m.Version, "description", m.Description)
		out, err := m.Upgrade(data)
		if err != nil {
			return nil, version, fmt.Errorf("%s migration to v%d failed: %w", r.Name, m.Version, err)
		}
		data, version = out, m.Version
	}
	return data, version, nil
}
