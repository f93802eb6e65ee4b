package peer

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

var quiet = slog.New(slog.DiscardHandler)

func locatorWith(procs []string, err error, names ...string) *Locator {
	l := NewLocator(quiet, names...)
	l.list = func() ([]string, error) { return procs, err }
	return l
}

func TestAvailable(t *testing.T) {
	tests := []struct {
		name  string
		procs []string
		want  bool
	}{
		{"stable windows", []string{"explorer.exe", "Discord.exe"}, true},
		{"canary linux", []string{"bash", "discord-canary"}, true},
		{"ptb spaced", []string{"Discord PTB"}, true},
		{"development", []string{"DiscordDevelopment"}, true},
		{"absent", []string{"bash", "Unity", "code"}, false},
		{"prefix only", []string{"DiscordHelper"}, false},
		{"empty table", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := locatorWith(tt.procs, nil).Available(); got != tt.want {
				t.Fatalf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailable_EnumerationErrorIsFalse(t *testing.T) {
	l := locatorWith([]string{"Discord"}, errors.New("permission denied"))
	if l.Available() {
		t.Fatal("expected false when the process table cannot be read")
	}
}

func TestAvailable_EnumerationErrorUsesGivenLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLocator(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	l.list = func() ([]string, error) { return nil, errors.New("permission denied") }

	l.Available()
	if !strings.Contains(buf.String(), "process enumeration failed") {
		t.Fatalf("failure not logged to the locator's logger: %q", buf.String())
	}
}

func TestNewLocator_CustomNames(t *testing.T) {
	l := locatorWith([]string{"Vesktop"}, nil, "vesktop")
	if !l.Available() {
		t.Fatal("expected custom peer name to match")
	}
	if locatorWith([]string{"Discord"}, nil, "vesktop").Available() {
		t.Fatal("custom names should replace the defaults")
	}
}

func TestNormalize(t *testing.T) {
	for in, want := range map[string]string{
		"DiscordCanary.exe": "discordcanary",
		" discord-ptb ":     "discordptb",
		"Discord_Dev":       "discorddev",
	} {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProcessNames_Live(t *testing.T) {
	names, err := processNames()
	if err != nil {
		t.Skipf("process table unavailable: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected at least the test process in the table")
	}
}
