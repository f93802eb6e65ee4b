// Package peer detects whether a local Discord client process is running.
//
// Process existence is only a cheap gate in front of connection attempts: a
// running client may still refuse IPC, so callers treat a positive answer as
// "worth dialing", never as "connected".
package peer

import (
	"log/slog"
	"strings"

	"github.com/shirou/gopsutil/process"
)

// DefaultNames are the executable names of the Discord desktop builds.
var DefaultNames = []string{
	"Discord",
	"DiscordPTB",
	"DiscordCanary",
	"DiscordDevelopment",
}

// Locator matches the OS process table against a set of peer names.
type Locator struct {
	// names holds normalized peer names.
	names map[string]struct{}
	// list returns the names of all running processes.
	list func() ([]string, error)
	log  *slog.Logger
}

// NewLocator returns a Locator for the given executable names, or for
// [DefaultNames] when none are given. A nil log uses [slog.Default].
func NewLocator(log *slog.Logger, names ...string) *Locator {
	if len(names) == 0 {
		names = DefaultNames
	}
	if log == nil {
		log = slog.Default()
	}
	l := &Locator{names: make(map[string]struct{}, len(names)), list: processNames, log: log}
	for _, n := range names {
		if key := normalize(n); key != "" {
			l.names[key] = struct{}{}
		}
	}
	return l
}

// Available reports whether at least one recognized peer process is running.
// Enumeration failures are logged and reported as not available.
func (l *Locator) Available() bool {
	procs, err := l.list()
	if err != nil {
		l.log.Debug("process enumeration failed", "error", err)
		return false
	}
	for _, name := range procs {
		if _, ok := l.names[normalize(name)]; ok {
			return true
		}
	}
	return false
}

// normalize folds the platform spellings of one build to a single key:
// "Discord PTB.exe", "discord-ptb" and "DiscordPTB" all become "discordptb".
func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, ".exe")
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(name)
}

// processNames lists running process names. Processes that exit or deny
// access mid-scan are skipped.
func processNames() ([]string, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
