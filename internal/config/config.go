// Package config loads editorcord's TOML configuration.
//
// The file lives at <data-dir>/config.toml and is decoded over
// [DefaultConfig], so any key left out keeps its default. The schema is
// versioned through [migrate.Config]; a migrated file is backed up to
// config.toml.bak and re-saved.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/editorcord/internal/atomicfile"
	"tools.zach/dev/editorcord/internal/migrate"
	"tools.zach/dev/editorcord/internal/paths"
)

// DefaultDiscordAppID is the Discord application that owns the Unity editor
// assets (logo, play-mode-v2, edit-mode-v2).
const DefaultDiscordAppID = "1283700247440134174"

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config is the top-level configuration.
type Config struct {
	// Version is the schema version used for migrations.
	Version int `toml:"version"`
	// Discord holds connection settings.
	Discord DiscordConfig `toml:"discord"`
	// Display holds the presence card templates.
	Display DisplayConfig `toml:"display"`
	// Privacy holds context-hiding rules.
	Privacy PrivacyConfig `toml:"privacy"`
	// Behavior holds scheduler timings.
	Behavior BehaviorConfig `toml:"behavior"`
	// Assets controls the optional image key check.
	Assets AssetCheckConfig `toml:"assets"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// DiscordConfig holds connection settings.
type DiscordConfig struct {
	// AppID is the Discord application ID for Rich Presence.
	AppID string `toml:"app_id"`
	// PeerNames are the process names that count as a running Discord client.
	PeerNames []string `toml:"peer_names"`
	// HandshakeTimeoutMs bounds the wait for READY after connecting.
	HandshakeTimeoutMs int `toml:"handshake_timeout_ms"`
	// WriteTimeoutMs bounds each frame write.
	WriteTimeoutMs int `toml:"write_timeout_ms"`
}

// DisplayConfig holds the card templates. Text accepts {context},
// {product}, {engine_version} and {mode}.
type DisplayConfig struct {
	// State is the bottom line.
	State string `toml:"state"`
	// Details is the top line.
	Details string `toml:"details"`
	// Assets holds image keys and tooltips.
	Assets AssetsConfig `toml:"assets"`
	// Timestamps controls the elapsed timer.
	Timestamps TimestampsConfig `toml:"timestamps"`
	// Buttons are up to two links shown on the card.
	Buttons []ButtonConfig `toml:"buttons,omitempty"`
}

// AssetsConfig holds image keys (as uploaded to the Discord app) and their
// tooltips.
type AssetsConfig struct {
	LargeImage string `toml:"large_image"`
	LargeText  string `toml:"large_text"`
	PlayImage  string `toml:"play_image"`
	PlayText   string `toml:"play_text"`
	EditImage  string `toml:"edit_image"`
	EditText   string `toml:"edit_text"`
}

// TimestampsConfig holds timer settings.
type TimestampsConfig struct {
	// Mode is "connection", "host" or "none".
	Mode string `toml:"mode"`
}

// ButtonConfig is one card button.
type ButtonConfig struct {
	Label string `toml:"label"`
	URL   string `toml:"url"`
}

// PrivacyConfig holds context-hiding rules.
type PrivacyConfig struct {
	// HideContext hides every context label.
	HideContext bool `toml:"hide_context"`
	// HiddenContextText replaces hidden labels.
	HiddenContextText string `toml:"hidden_context_text"`
	// Patterns are doublestar globs; a matching context label is hidden.
	Patterns []string `toml:"patterns"`
}

// BehaviorConfig holds scheduler timings.
type BehaviorConfig struct {
	// StartupDelayMs postpones the first connection attempt.
	StartupDelayMs int `toml:"startup_delay_ms"`
	// TickMs is the daemon's tick period.
	TickMs int `toml:"tick_ms"`
	// PublishIntervalSeconds spaces periodic publishes.
	PublishIntervalSeconds int `toml:"publish_interval_seconds"`
	// ReconnectIntervalSeconds spaces connection attempts; 0 uses the publish interval.
	ReconnectIntervalSeconds int `toml:"reconnect_interval_seconds"`
	// PeerCheckSeconds is how often a live connection re-checks for the Discord process.
	PeerCheckSeconds int `toml:"peer_check_seconds"`
	// ThrottleBackoffSeconds delays the single retry of a rate-limited update.
	ThrottleBackoffSeconds int `toml:"throttle_backoff_seconds"`
}

// AssetCheckConfig controls validation of image keys against the Discord app.
type AssetCheckConfig struct {
	// Validate fetches the app's uploaded assets at startup and warns about unknown keys.
	Validate bool `toml:"validate"`
	// CacheHours is how long a fetched asset list is reused.
	CacheHours int `toml:"cache_hours"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `toml:"level"`
	// MaxSizeMB rotates the log file past this size.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Defaults
// ///////////////////////////////////////////////

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Discord: DiscordConfig{
			AppID:              DefaultDiscordAppID,
			PeerNames:          []string{"Discord", "DiscordPTB", "DiscordCanary", "DiscordDevelopment"},
			HandshakeTimeoutMs: 5000,
			WriteTimeoutMs:     2000,
		},
		Display: DisplayConfig{
			State:   "{context} scene",
			Details: "{product}",
			Assets: AssetsConfig{
				LargeImage: "logo",
				LargeText:  "Unity {engine_version}",
				PlayImage:  "play-mode-v2",
				PlayText:   "Play mode",
				EditImage:  "edit-mode-v2",
				EditText:   "Edit mode",
			},
			Timestamps: TimestampsConfig{Mode: "connection"},
		},
		Privacy: PrivacyConfig{
			HiddenContextText: "Untitled",
			Patterns:          []string{},
		},
		Behavior: BehaviorConfig{
			StartupDelayMs:           1000,
			TickMs:                   250,
			PublishIntervalSeconds:   5,
			ReconnectIntervalSeconds: 0,
			PeerCheckSeconds:         180,
			ThrottleBackoffSeconds:   30,
		},
		Assets: AssetCheckConfig{
			Validate:   false,
			CacheHours: 24,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ExampleConfig is the configuration written to config.default.toml.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// PeekVersion reads only the version key. Missing or unparseable input
// reads as 1.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if _, err := toml.Decode(string(data), &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// Load reads <dataDir>/config.toml. A missing file yields [DefaultConfig].
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	migrated := migrate.Config.NeedsMigration(version)
	if migrated {
		if bErr := os.WriteFile(path+".bak", data, 0o644); bErr != nil {
			slog.Warn("failed to write config backup", "error", bErr)
		}
		if data, _, err = migrate.Config.Run(data, version); err != nil {
			return nil, fmt.Errorf("migrate config: %w", err)
		}
	}

	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown config key", "key", key.String())
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}
	return cfg, nil
}

// Save encodes c as TOML and writes it atomically.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.AppID) == "" {
		return errors.New("discord.app_id must not be empty")
	}
	if len(c.Discord.PeerNames) == 0 {
		return errors.New("discord.peer_names must list at least one process name")
	}
	if c.Discord.HandshakeTimeoutMs <= 0 || c.Discord.WriteTimeoutMs <= 0 {
		return fmt.Errorf("discord timeouts must be > 0, got handshake=%d write=%d",
			c.Discord.HandshakeTimeoutMs, c.Discord.WriteTimeoutMs)
	}

	switch c.Display.Timestamps.Mode {
	case "connection", "host", "none":
	default:
		return fmt.Errorf("invalid display.timestamps.mode %q: must be connection, host, or none", c.Display.Timestamps.Mode)
	}

	if len(c.Display.Buttons) > 2 {
		return fmt.Errorf("display.buttons allows at most 2 buttons, got %d", len(c.Display.Buttons))
	}
	for i, b := range c.Display.Buttons {
		if b.Label == "" {
			return fmt.Errorf("display.buttons[%d]: label must not be empty", i)
		}
		if u, err := url.Parse(b.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("display.buttons[%d]: url %q must be an http(s) URL", i, b.URL)
		}
	}

	for _, p := range c.Privacy.Patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid privacy pattern %q", p)
		}
	}

	b := c.Behavior
	if b.StartupDelayMs < 0 {
		return fmt.Errorf("startup_delay_ms must be >= 0, got %d", b.StartupDelayMs)
	}
	if b.TickMs <= 0 {
		return fmt.Errorf("tick_ms must be > 0, got %d", b.TickMs)
	}
	if b.PublishIntervalSeconds <= 0 {
		return fmt.Errorf("publish_interval_seconds must be > 0, got %d", b.PublishIntervalSeconds)
	}
	if b.ReconnectIntervalSeconds < 0 {
		return fmt.Errorf("reconnect_interval_seconds must be >= 0, got %d", b.ReconnectIntervalSeconds)
	}
	if b.PeerCheckSeconds <= 0 {
		return fmt.Errorf("peer_check_seconds must be > 0, got %d", b.PeerCheckSeconds)
	}
	if b.ThrottleBackoffSeconds <= 0 {
		return fmt.Errorf("throttle_backoff_seconds must be > 0, got %d", b.ThrottleBackoffSeconds)
	}

	if c.Assets.CacheHours < 0 {
		return fmt.Errorf("assets.cache_hours must be >= 0, got %d", c.Assets.CacheHours)
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}
	return nil
}

// ///////////////////////////////////////////////
// Durations
// ///////////////////////////////////////////////

func (b BehaviorConfig) StartupDelay() time.Duration {
	return time.Duration(b.StartupDelayMs) * time.Millisecond
}

func (b BehaviorConfig) Tick() time.Duration {
	return time.Duration(b.TickMs) * time.Millisecond
}

func (b BehaviorConfig) PublishInterval() time.Duration {
	return time.Duration(b.PublishIntervalSeconds) * time.Second
}

// ReconnectInterval falls back to the publish interval when unset.
func (b BehaviorConfig) ReconnectInterval() time.Duration {
	if b.ReconnectIntervalSeconds == 0 {
		return b.PublishInterval()
	}
	return time.Duration(b.ReconnectIntervalSeconds) * time.Second
}

func (b BehaviorConfig) PeerCheck() time.Duration {
	return time.Duration(b.PeerCheckSeconds) * time.Second
}

func (b BehaviorConfig) ThrottleBackoff() time.Duration {
	return time.Duration(b.ThrottleBackoffSeconds) * time.Second
}

func (d DiscordConfig) HandshakeTimeout() time.Duration {
	return time.Duration(d.HandshakeTimeoutMs) * time.Millisecond
}

func (d DiscordConfig) WriteTimeout() time.Duration {
	return time.Duration(d.WriteTimeoutMs) * time.Millisecond
}

// ///////////////////////////////////////////////
// Privacy
// ///////////////////////////////////////////////

// ContextLabel returns the label that may be shown for context. Empty
// labels pass through so templates can drop the line.
func (c *Config) ContextLabel(context string) string {
	if context == "" {
		return ""
	}
	if c.Privacy.HideContext || c.IsHidden(context) {
		return c.Privacy.HiddenContextText
	}
	return context
}

// IsHidden reports whether context matches a privacy pattern.
func (c *Config) IsHidden(context string) bool {
	for _, pattern := range c.Privacy.Patterns {
		matched, err := doublestar.Match(pattern, context)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
