// conn_wsl.go adds WSL-specific socket discovery.
//
// Under WSL, Discord runs on the Windows side and listens on a named pipe
// that WSL2 cannot reach directly. A relay bridges it to a Unix socket:
//
//	socat UNIX-LISTEN:/tmp/discord-ipc-0,fork EXEC:"npiperelay.exe -ep -s //./pipe/discord-ipc-0"
//
// Without a relay the extra paths simply do not exist and dialing falls
// through to ErrIPCNotAvailable.

//go:build linux

package discord

import (
	"fmt"
	"os"
	"strings"
)

// isWSL reports whether the current process is running inside WSL.
func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}

// wslSocketPaths returns relay socket locations to try under WSL, including
// the WSLg runtime directory.
func wslSocketPaths() []string {
	if !isWSL() {
		return nil
	}
	var paths []string
	for _, dir := range []string{"/tmp", "/mnt/wslg/runtime-dir"} {
		for i := range maxIPCSlots {
			paths = append(paths, fmt.Sprintf("%s/discord-ipc-%d", dir, i))
		}
	}
	return paths
}
