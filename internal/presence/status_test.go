package presence

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"tools.zach/dev/editorcord/internal/discord"
)

func TestClampField(t *testing.T) {
	long := strings.Repeat("é", 200)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"single rune padded", "A", "A\x00"},
		{"trimmed", "  Lobby scene ", "Lobby scene"},
		{"exact max", strings.Repeat("x", 128), strings.Repeat("x", 128)},
		{"truncated", long, strings.Repeat("é", 127) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampField(tt.in)
			if got != tt.want {
				t.Fatalf("clampField(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if n := utf8.RuneCountInString(got); got != "" && (n < 2 || n > 128) {
				t.Fatalf("length %d outside 2..128", n)
			}
		})
	}
}

func TestStatusActivity(t *testing.T) {
	st := Status{
		State:          "Lobby scene",
		Details:        "Space Game",
		StartTimestamp: 1700000000,
		LargeImageKey:  "logo",
		LargeImageText: "Unity 2022.3.10f1",
		SmallImageKey:  "edit-mode-v2",
		SmallImageText: "Edit mode",
	}
	a := st.Activity()
	if a.State != st.State || a.Details != st.Details {
		t.Fatalf("text mismatch: %+v", a)
	}
	if a.Timestamps == nil || a.Timestamps.Start != 1700000000 {
		t.Fatalf("timestamps = %+v", a.Timestamps)
	}
	if a.Assets == nil || a.Assets.LargeImage != "logo" || a.Assets.SmallText != "Edit mode" {
		t.Fatalf("assets = %+v", a.Assets)
	}

	bare := Status{State: "Lobby scene"}.Activity()
	if bare.Timestamps != nil || bare.Assets != nil {
		t.Fatalf("empty sections should be omitted: %+v", bare)
	}
}

func TestStatusEquality(t *testing.T) {
	base := Status{State: "Lobby scene", Details: "Space Game", StartTimestamp: 1, LargeImageKey: "logo"}
	if copied := base; copied != base {
		t.Fatal("copied status should be equal")
	}
	changes := []func(*Status){
		func(s *Status) { s.State = "Boss scene" },
		func(s *Status) { s.Details = "Other" },
		func(s *Status) { s.StartTimestamp = 2 },
		func(s *Status) { s.LargeImageKey = "alt" },
		func(s *Status) { s.LargeImageText = "x" },
		func(s *Status) { s.SmallImageKey = "x" },
		func(s *Status) { s.SmallImageText = "x" },
		func(s *Status) { s.Active = true },
		func(s *Status) { s.Buttons[0].URL = "https://example.com" },
	}
	for i, change := range changes {
		other := base
		change(&other)
		if other == base {
			t.Fatalf("change %d not detected", i)
		}
	}
}

func TestBuild_DefaultCard(t *testing.T) {
	connected := time.Unix(1700000000, 0)
	info := HostInfo{Context: "Lobby", Product: "Space Game", EngineVersion: "2022.3.10f1"}

	st := DefaultStatusBuilder().Build(info, connected)
	want := Status{
		State:          "Lobby scene",
		Details:        "Space Game",
		StartTimestamp: 1700000000,
		LargeImageKey:  "logo",
		LargeImageText: "Unity 2022.3.10f1",
		SmallImageKey:  "edit-mode-v2",
		SmallImageText: "Edit mode",
	}
	if st != want {
		t.Fatalf("Build =\n%+v\nwant\n%+v", st, want)
	}

	info.Active = true
	st = DefaultStatusBuilder().Build(info, connected)
	if st.SmallImageKey != "play-mode-v2" || st.SmallImageText != "Play mode" || !st.Active {
		t.Fatalf("play mode overlay = %q/%q active=%v", st.SmallImageKey, st.SmallImageText, st.Active)
	}
}

func TestBuild_MissingValues(t *testing.T) {
	st := DefaultStatusBuilder().Build(HostInfo{}, time.Time{})
	if st.State != "" || st.Details != "" || st.LargeImageText != "" {
		t.Fatalf("unreported values should blank their lines: %+v", st)
	}
	if st.StartTimestamp != 0 {
		t.Fatalf("StartTimestamp = %d, want 0", st.StartTimestamp)
	}
}

func TestBuild_TimestampModes(t *testing.T) {
	connected := time.Unix(1700000500, 0)
	tests := []struct {
		mode         string
		sessionStart int64
		want         int64
	}{
		{TimestampConnection, 1700000000, 1700000500},
		{"", 1700000000, 1700000500},
		{TimestampHost, 1700000000, 1700000000},
		{TimestampHost, 0, 1700000500},
		{TimestampNone, 1700000000, 0},
	}
	for _, tt := range tests {
		b := DefaultStatusBuilder()
		b.TimestampMode = tt.mode
		st := b.Build(HostInfo{Context: "Lobby", SessionStart: tt.sessionStart}, connected)
		if st.StartTimestamp != tt.want {
			t.Errorf("mode %q session %d: StartTimestamp = %d, want %d", tt.mode, tt.sessionStart, st.StartTimestamp, tt.want)
		}
	}
}

func TestBuild_RedactAndMode(t *testing.T) {
	b := DefaultStatusBuilder()
	b.Redact = func(string) string { return "Secret" }
	b.Details = "{product} ({mode})"

	st := b.Build(HostInfo{Context: "Ending", Product: "Space Game", Active: true}, time.Time{})
	if st.State != "Secret scene" {
		t.Fatalf("State = %q", st.State)
	}
	if st.Details != "Space Game (Play mode)" {
		t.Fatalf("Details = %q", st.Details)
	}
}

func TestStatusActivity_Buttons(t *testing.T) {
	st := Status{State: "Lobby scene"}
	st.Buttons[0] = discord.Button{Label: "Play the demo", URL: "https://example.com/demo"}
	st.Buttons[1] = discord.Button{Label: "", URL: "https://example.com/skip"}

	a := st.Activity()
	if len(a.Buttons) != 1 || a.Buttons[0].Label != "Play the demo" {
		t.Fatalf("buttons = %+v", a.Buttons)
	}

	st.Buttons[0].Label = strings.Repeat("b", 40)
	if n := utf8.RuneCountInString(st.Activity().Buttons[0].Label); n != 32 {
		t.Fatalf("button label length = %d, want 32", n)
	}
}
