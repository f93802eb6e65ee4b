package presence

import (
	"strings"
	"unicode/utf8"

	"tools.zach/dev/editorcord/internal/discord"
)

// Discord rejects presence strings shorter than 2 or longer than 128 runes,
// and button labels longer than 32.
const (
	minFieldLen  = 2
	maxFieldLen  = 128
	maxButtonLen = 32
)

// Status is one presence payload. It is a comparable value: two statuses
// are the same update exactly when they are ==.
type Status struct {
	// State is the bottom line of the card, e.g. "Lobby scene".
	State string
	// Details is the top line of the card, e.g. the product name.
	Details string
	// StartTimestamp is the unix second the elapsed timer counts from; zero
	// hides the timer.
	StartTimestamp int64
	// LargeImageKey and LargeImageText are the main asset and its tooltip.
	LargeImageKey  string
	LargeImageText string
	// SmallImageKey and SmallImageText are the overlay asset and its tooltip.
	SmallImageKey  string
	SmallImageText string
	// Buttons are up to two links shown under the card; empty labels are skipped.
	Buttons [2]discord.Button
	// Active is true in play mode and false in edit mode.
	Active bool
}

// Activity converts the status into the wire type, clamping text to the
// lengths Discord accepts and omitting empty sections.
func (s Status) Activity() *discord.Activity {
	a := &discord.Activity{
		Details: clampField(s.Details),
		State:   clampField(s.State),
	}
	if s.StartTimestamp > 0 {
		a.Timestamps = &discord.Timestamps{Start: s.StartTimestamp}
	}
	if s.LargeImageKey != "" || s.LargeImageText != "" || s.SmallImageKey != "" || s.SmallImageText != "" {
		a.Assets = &discord.Assets{
			LargeImage: s.LargeImageKey,
			LargeText:  clampField(s.LargeImageText),
			SmallImage: s.SmallImageKey,
			SmallText:  clampField(s.SmallImageText),
		}
	}
	for _, b := range s.Buttons {
		if b.Label != "" && b.URL != "" {
			a.Buttons = append(a.Buttons, discord.Button{Label: clampButton(b.Label), URL: b.URL})
		}
	}
	return a
}

// clampField trims v and fits it into Discord's length window. Empty input
// stays empty so the field is omitted; a single rune is padded with NUL.
func clampField(v string) string {
	v = strings.TrimSpace(v)
	n := utf8.RuneCountInString(v)
	switch {
	case n == 0:
		return ""
	case n < minFieldLen:
		return v + strings.Repeat("\x00", minFieldLen-n)
	case n > maxFieldLen:
		r := []rune(v)
		return string(r[:maxFieldLen-1]) + "…"
	default:
		return v
	}
}

func clampButton(label string) string {
	r := []rune(strings.TrimSpace(label))
	if len(r) > maxButtonLen {
		return string(r[:maxButtonLen-1]) + "…"
	}
	return string(r)
}
