//go:build windows

package main

import (
	"os"
	"os/signal"
)

// signals returns a stop channel fed by Ctrl+C. Windows has no SIGHUP, so
// the reload channel never fires.
func signals() (stop, reload <-chan os.Signal) {
	s := make(chan os.Signal, 1)
	signal.Notify(s, os.Interrupt)
	return s, make(chan os.Signal)
}
