package config

// FieldDoc documents one config key for the generated config.default.toml.
type FieldDoc struct {
	// Comment is emitted above the key.
	Comment string
	// Alternatives are emitted as commented-out lines below the key.
	Alternatives []string
}

// ConfigDocs maps dotted TOML paths (e.g. "display.assets.large_image") to
// their documentation. cmd/genconfig reads it; TestConfigDocsCoverage keeps
// it in step with [Config].
var ConfigDocs = map[string]FieldDoc{
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Discord ──────────────────────────────────────────────────
	"discord.app_id": {
		Comment: "Discord application ID. Use your own app to upload custom images;\nimage keys below must exist in that app's Rich Presence assets.",
	},
	"discord.peer_names": {
		Comment: "Process names that count as a running Discord client. Matching ignores\ncase, a trailing .exe, and the characters '-', '_' and ' '.",
	},
	"discord.handshake_timeout_ms": {
		Comment: "How long to wait for Discord to answer the handshake.",
	},
	"discord.write_timeout_ms": {
		Comment: "How long a single write to Discord may block.",
	},

	// ── Display ──────────────────────────────────────────────────
	"display.state": {
		Comment: "Card text. Variables: {context}, {product}, {engine_version}, {mode}\nA line whose variables are still unknown is left off the card.\nstate = bottom line, details = top line",
		Alternatives: []string{
			`state = "Editing {context}"`,
		},
	},
	"display.details": {
		Alternatives: []string{
			`details = "{product} ({mode})"`,
		},
	},
	"display.buttons": {
		Comment: "Up to two buttons shown under the card.",
		Alternatives: []string{
			`[[display.buttons]]`,
			`label = "Wishlist on Steam"`,
			`url = "https://store.steampowered.com/"`,
		},
	},
	"display.assets.large_image": {
		Comment: "Image keys and tooltips. The play/edit pair is the small overlay.",
	},
	"display.assets.large_text": {},
	"display.assets.play_image": {},
	"display.assets.play_text":  {},
	"display.assets.edit_image": {},
	"display.assets.edit_text":  {},
	"display.timestamps.mode": {
		Comment: "What the elapsed timer counts from. Options: \"connection\", \"host\", \"none\"\n  connection: when editorcord connected to Discord (restarts on reconnect)\n  host:       the sessionStart reported in host.json, else the connection\n  none:       no timer",
		Alternatives: []string{
			`mode = "host"`,
			`mode = "none"`,
		},
	},

	// ── Privacy ──────────────────────────────────────────────────
	"privacy.hide_context": {
		Comment: "Never show the real context (scene) name.",
	},
	"privacy.hidden_context_text": {
		Comment: "Shown instead of a hidden context name.",
	},
	"privacy.patterns": {
		Comment: "Glob patterns (** supported) matched against the context label.\nMatching contexts are hidden.",
		Alternatives: []string{
			`patterns = ["Spoilers/**", "*Ending*"]`,
		},
	},

	// ── Behavior ─────────────────────────────────────────────────
	"behavior.startup_delay_ms": {
		Comment: "Delay before the first connection attempt.",
	},
	"behavior.tick_ms": {
		Comment: "Daemon tick period. Inbound Discord traffic is handled once per tick.",
	},
	"behavior.publish_interval_seconds": {
		Comment: "Minimum spacing of periodic presence updates. Discord limits clients\nto roughly one update per 15 seconds; unchanged updates are never sent.",
	},
	"behavior.reconnect_interval_seconds": {
		Comment: "Spacing of connection attempts while disconnected. 0 = publish interval.",
	},
	"behavior.peer_check_seconds": {
		Comment: "How often a live connection checks that the Discord process still exists.",
	},
	"behavior.throttle_backoff_seconds": {
		Comment: "Wait before the single retry of a rate-limited update.",
	},

	// ── Assets ───────────────────────────────────────────────────
	"assets.validate": {
		Comment: "Check the image keys above against the assets uploaded to discord.app_id\nand log a warning for unknown keys. Makes one HTTPS request to discord.com.",
	},
	"assets.cache_hours": {
		Comment: "Reuse a fetched asset list for this many hours.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate daemon.log past this size.",
	},
}
