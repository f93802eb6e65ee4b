package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// errAlreadyRunning is wrapped by [acquirePID] when another daemon holds
// the lock.
var errAlreadyRunning = errors.New("daemon already running")

// pidFile is the daemon's single-instance lock. The file holds "PID:TOKEN";
// the token lets Release tell its own file from a successor's.
type pidFile struct {
	path  string
	token string
	f     *os.File
}

func newToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// acquirePID locks path and records the current process in it. The lock is
// held until Release.
func acquirePID(path string) (*pidFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		if pid, ok := readPID(path); ok {
			return nil, fmt.Errorf("%w (pid %d)", errAlreadyRunning, pid)
		}
		return nil, fmt.Errorf("%w: %w", errAlreadyRunning, err)
	}

	p := &pidFile{path: path, token: newToken(), f: f}
	content := fmt.Sprintf("%d:%s", os.Getpid(), p.token)
	if err := f.Truncate(0); err != nil {
		p.unlock()
		return nil, fmt.Errorf("truncate PID file: %w", err)
	}
	if _, err := f.WriteAt([]byte(content), 0); err != nil {
		p.unlock()
		return nil, fmt.Errorf("write PID file: %w", err)
	}
	return p, nil
}

func (p *pidFile) unlock() {
	_ = unlockFile(p.f)
	p.f.Close()
}

// Release drops the lock and removes the file if it still carries this
// instance's token.
func (p *pidFile) Release() {
	p.unlock()
	data, err := os.ReadFile(p.path)
	if err != nil {
		return
	}
	if _, token, ok := strings.Cut(string(data), ":"); ok && token == p.token {
		os.Remove(p.path)
	}
}

// pidState describes what a PID file says about the daemon.
type pidState int

const (
	pidAbsent pidState = iota
	pidRunning
	// pidStale is a PID file nobody holds the lock on, left by a daemon
	// that did not exit cleanly. The next acquirePID reuses it.
	pidStale
)

// inspectPID reports the daemon's state from the PID file at path without
// modifying it. pid is the recorded PID when it can be read.
func inspectPID(path string) (pid int, state pidState) {
	f, err := os.Open(path)
	if err != nil {
		return 0, pidAbsent
	}
	defer f.Close()

	pid, _ = readPID(path)
	if err := lockFile(f); err != nil {
		return pid, pidRunning
	}
	_ = unlockFile(f)
	return pid, pidStale
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	head, _, _ := strings.Cut(string(data), ":")
	pid, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, false
	}
	return pid, true
}
