// Package paths names every file the daemon keeps in its data directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// Data directory file names.
const (
	PIDFile         = "daemon.pid"
	ConfigFile      = "config.toml"
	LogFile         = "daemon.log"
	HostStateFile   = "host.json"
	AssetsCacheFile = "assets-cache.json"
)

const (
	// BinaryName is the installed executable name.
	BinaryName = "editorcord"
	// DataDirRel is the data directory relative to the home directory.
	DataDirRel = ".editorcord"
	// DataDirEnv overrides the data directory location.
	DataDirEnv = "EDITORCORD_DATA_DIR"
)

// DataDir builds paths under a data directory root.
type DataDir struct {
	Root string
}

// Resolve picks the data directory: flag if set, then $EDITORCORD_DATA_DIR,
// then ~/.editorcord.
func Resolve(flag string) (DataDir, error) {
	if flag != "" {
		return DataDir{Root: filepath.Clean(flag)}, nil
	}
	if env := os.Getenv(DataDirEnv); env != "" {
		return DataDir{Root: filepath.Clean(env)}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDir{}, fmt.Errorf("resolving home directory: %w", err)
	}
	return DataDir{Root: filepath.Join(home, DataDirRel)}, nil
}

// Ensure creates the root directory.
func (d DataDir) Ensure() error {
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

func (d DataDir) PID() string         { return filepath.Join(d.Root, PIDFile) }
func (d DataDir) Config() string      { return filepath.Join(d.Root, ConfigFile) }
func (d DataDir) Log() string         { return filepath.Join(d.Root, LogFile) }
func (d DataDir) HostState() string   { return filepath.Join(d.Root, HostStateFile) }
func (d DataDir) AssetsCache() string { return filepath.Join(d.Root, AssetsCacheFile) }
