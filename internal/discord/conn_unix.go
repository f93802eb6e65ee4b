// conn_unix.go implements Discord IPC socket discovery for Unix-like systems
// (Linux, macOS, FreeBSD). It probes the runtime and temp directories Discord
// itself honors, then Snap and Flatpak sandboxes.

//go:build !windows

package discord

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ///////////////////////////////////////////////
// Socket Discovery
// ///////////////////////////////////////////////

// variants are the socket name prefixes of the stable, Canary and PTB builds.
var variants = []string{"discord-ipc", "discordcanary-ipc", "discordptb-ipc"}

// runtimeDirs returns the base directories Discord may create its socket in,
// in the order the desktop client checks them. Duplicates are dropped.
func runtimeDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(key); dir != "" && !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	if !seen["/tmp"] {
		dirs = append(dirs, "/tmp")
	}
	return dirs
}

// socketCandidates lists every socket path worth dialing, most likely first.
func socketCandidates() []string {
	var paths []string

	for _, dir := range runtimeDirs() {
		for _, v := range variants {
			for i := range maxIPCSlots {
				paths = append(paths, filepath.Join(dir, fmt.Sprintf("%s-%d", v, i)))
			}
		}
	}

	uid := strconv.Itoa(os.Getuid())
	sandboxes := []string{
		"snap.discord", "snap.discord-canary", "snap.discord-ptb",
		"app/com.discordapp.Discord", "app/com.discordapp.DiscordCanary", "app/com.discordapp.DiscordPTB",
	}
	for _, sb := range sandboxes {
		for i := range maxIPCSlots {
			paths = append(paths, fmt.Sprintf("/run/user/%s/%s/discord-ipc-%d", uid, sb, i))
		}
	}

	// A socat + npiperelay bridge on WSL usually lands on one of the paths
	// above already; Dial on a missing path fails fast so repeats are harmless.
	return append(paths, wslSocketPaths()...)
}

// dialIPC returns the first socket that accepts a connection.
func dialIPC(timeout time.Duration) (net.Conn, error) {
	for _, path := range socketCandidates() {
		conn, err := net.DialTimeout("unix", path, timeout)
		if err == nil {
			return conn, nil
		}
	}

	if isWSL() {
		return nil, fmt.Errorf("%w: running under WSL, a socat + npiperelay.exe relay is required", ErrIPCNotAvailable)
	}
	return nil, ErrIPCNotAvailable
}
