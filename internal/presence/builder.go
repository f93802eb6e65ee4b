package presence

import (
	"strings"
	"time"

	"tools.zach/dev/editorcord/internal/discord"
)

// Timestamp modes for [StatusBuilder.TimestampMode].
const (
	// TimestampConnection counts from the current connection's start, so a
	// reconnect restarts the elapsed display.
	TimestampConnection = "connection"
	// TimestampHost counts from the host's session start when it reports one.
	TimestampHost = "host"
	// TimestampNone hides the elapsed timer.
	TimestampNone = "none"
)

// HostInfo is what the host has reported about itself so far.
type HostInfo struct {
	// Context is the current scene or document label.
	Context string
	// Active is true while the host is in play mode.
	Active bool
	// Product is the application or project name.
	Product string
	// EngineVersion is the host engine version, e.g. "2022.3.10f1".
	EngineVersion string
	// SessionStart is the unix second the host session began, or zero.
	SessionStart int64
}

// StatusBuilder controls how [HostInfo] is rendered into a [Status].
// Text fields accept {context}, {product}, {engine_version} and {mode}.
type StatusBuilder struct {
	State      string
	Details    string
	LargeImage string
	LargeText  string
	// ActiveImage and ActiveText are the small overlay in play mode.
	ActiveImage string
	ActiveText  string
	// IdleImage and IdleText are the small overlay in edit mode.
	IdleImage string
	IdleText  string
	// Buttons are rendered as-is; only the first two are used.
	Buttons []discord.Button
	// TimestampMode is one of the Timestamp* constants; empty means connection.
	TimestampMode string
	// Redact maps a context label to the text that may be shown publicly.
	// Nil shows labels unchanged.
	Redact func(context string) string
}

// DefaultStatusBuilder mirrors the Unity editor card: "<scene> scene" under the
// product name, the engine logo, and a play/edit overlay.
func DefaultStatusBuilder() StatusBuilder {
	return StatusBuilder{
		State:         "{context} scene",
		Details:       "{product}",
		LargeImage:    "logo",
		LargeText:     "Unity {engine_version}",
		ActiveImage:   "play-mode-v2",
		ActiveText:    "Play mode",
		IdleImage:     "edit-mode-v2",
		IdleText:      "Edit mode",
		TimestampMode: TimestampConnection,
	}
}

// Build renders info into a status. connectedAt is the start time of the
// connection the status will be sent on.
func (b StatusBuilder) Build(info HostInfo, connectedAt time.Time) Status {
	label := info.Context
	if b.Redact != nil {
		label = b.Redact(label)
	}

	smallImage, smallText := b.IdleImage, b.IdleText
	if info.Active {
		smallImage, smallText = b.ActiveImage, b.ActiveText
	}

	r := strings.NewReplacer(
		"{context}", label,
		"{product}", info.Product,
		"{engine_version}", info.EngineVersion,
		"{mode}", smallText,
	)

	st := Status{
		State:          renderLine(r, b.State, label),
		Details:        renderLine(r, b.Details, info.Product),
		LargeImageKey:  b.LargeImage,
		LargeImageText: renderLine(r, b.LargeText, info.EngineVersion),
		SmallImageKey:  smallImage,
		SmallImageText: smallText,
		Active:         info.Active,
	}

	copy(st.Buttons[:], b.Buttons)

	switch b.TimestampMode {
	case TimestampNone:
	case TimestampHost:
		if info.SessionStart > 0 {
			st.StartTimestamp = info.SessionStart
			break
		}
		fallthrough
	default:
		if !connectedAt.IsZero() {
			st.StartTimestamp = connectedAt.Unix()
		}
	}
	return st
}

// renderLine applies r to tmpl, but yields "" when the template references a
// value the host has not reported yet, so the card never shows " scene".
func renderLine(r *strings.Replacer, tmpl, required string) string {
	if tmpl == "" {
		return ""
	}
	if required == "" && strings.Contains(tmpl, "{") {
		return ""
	}
	return strings.TrimSpace(r.Replace(tmpl))
}
