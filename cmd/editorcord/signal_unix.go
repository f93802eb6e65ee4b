//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// signals returns channels for stop requests (SIGINT, SIGTERM) and config
// reloads (SIGHUP).
func signals() (stop, reload <-chan os.Signal) {
	s := make(chan os.Signal, 1)
	signal.Notify(s, os.Interrupt, syscall.SIGTERM)
	r := make(chan os.Signal, 1)
	signal.Notify(r, syscall.SIGHUP)
	return s, r
}
