// conn_windows.go dials Discord's named pipes (\\.\pipe\discord-ipc-N) with
// go-winio.

//go:build windows

package discord

import (
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// socketCandidates lists the named pipe slots Discord may listen on.
func socketCandidates() []string {
	paths := make([]string, 0, maxIPCSlots)
	for i := range maxIPCSlots {
		paths = append(paths, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
	}
	return paths
}

// dialIPC returns the first named pipe that accepts a connection.
func dialIPC(timeout time.Duration) (net.Conn, error) {
	for _, path := range socketCandidates() {
		conn, err := winio.DialPipe(path, &timeout)
		if err == nil {
			return conn, nil
		}
	}
	return nil, ErrIPCNotAvailable
}
