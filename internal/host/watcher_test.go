package host

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitEvent(t *testing.T, w *Watcher, within time.Duration) {
	t.Helper()
	select {
	case <-w.Events():
	case <-time.After(within):
		t.Fatal("timed out waiting for change event")
	}
}

func drain(w *Watcher) {
	for {
		select {
		case <-w.Events():
		default:
			return
		}
	}
}

func TestWatcher_Modes(t *testing.T) {
	modes := []struct {
		name string
		opts []WatchOption
	}{
		{"fsnotify", nil},
		{"polling", []WatchOption{ForcePolling(), WithPollInterval(50 * time.Millisecond)}},
	}
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			if testing.Short() {
				t.Skip("slow watcher test")
			}
			path := filepath.Join(t.TempDir(), "host.json")
			w, err := NewWatcher(path, m.opts...)
			if err != nil {
				t.Fatalf("NewWatcher: %v", err)
			}
			defer w.Close()
			if m.name == "polling" && !w.Polling() {
				t.Fatal("ForcePolling was ignored")
			}
			time.Sleep(100 * time.Millisecond)

			// Created through an atomic rename, like a real save.
			if err := Write(path, &State{Context: "Lobby"}); err != nil {
				t.Fatal(err)
			}
			waitEvent(t, w, 5*time.Second)

			time.Sleep(100 * time.Millisecond)
			drain(w)
			if err := Write(path, &State{Context: "Boss", UpdatedAt: time.Now().UnixNano()}); err != nil {
				t.Fatal(err)
			}
			waitEvent(t, w, 5*time.Second)
		})
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	if testing.Short() {
		t.Skip("slow watcher test")
	}
	dir := t.TempDir()
	w, err := NewWatcher(filepath.Join(dir, "host.json"))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	if w.Polling() {
		t.Skip("fsnotify unavailable")
	}
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(filepath.Join(dir, "daemon.log"), []byte("line\n"), 0o644)
	select {
	case <-w.Events():
		t.Fatal("event for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not", "yet", "host.json")
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("parent directory missing: %v", err)
	}
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.json")
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	os.WriteFile(path, []byte(`{}`), 0o644)
	select {
	case <-w.Events():
		t.Fatal("event after Close")
	case <-time.After(300 * time.Millisecond):
	}
}
