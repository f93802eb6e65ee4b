package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tools.zach/dev/editorcord/internal/host"
)

func TestNotify_MergesChangedFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.json")

	if _, err := execute(t, dir, "notify", "--context", "Main", "--product", "Racer", "--engine-version", "6000.0.23f1"); err != nil {
		t.Fatalf("first notify: %v", err)
	}
	if _, err := execute(t, dir, "notify", "--active"); err != nil {
		t.Fatalf("second notify: %v", err)
	}

	s, err := host.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Context != "Main" || s.Product != "Racer" || s.EngineVersion != "6000.0.23f1" || !s.Active {
		t.Errorf("merged state = %+v", s)
	}
	if s.UpdatedAt == 0 {
		t.Error("UpdatedAt not stamped")
	}

	if _, err := execute(t, dir, "notify", "--edit"); err != nil {
		t.Fatalf("edit notify: %v", err)
	}
	if s, _ = host.Read(path); s.Active {
		t.Error("--edit did not leave play mode")
	}
}

func TestNotify_ExclusiveFlags(t *testing.T) {
	if _, err := execute(t, t.TempDir(), "notify", "--active", "--edit"); err == nil {
		t.Fatal("expected --active and --edit to conflict")
	}
}

func TestNotify_NewSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.json")
	now := time.Unix(1_760_000_000, 0)
	f := notifyFlags{newSession: true}

	s, err := notify(path, f, func(string) bool { return false }, now)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if s.SessionStart != now.Unix() || s.UpdatedAt != now.Unix() {
		t.Errorf("state = %+v", s)
	}
}

func TestNotify_ReplacesCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	changed := func(name string) bool { return name == "context" }

	s, err := notify(path, notifyFlags{context: "Level1"}, changed, time.Now())
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if s.Context != "Level1" {
		t.Errorf("context = %q", s.Context)
	}
	if _, err := host.Read(path); err != nil {
		t.Errorf("rewritten file unreadable: %v", err)
	}
}
