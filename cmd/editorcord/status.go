package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"tools.zach/dev/editorcord/internal/config"
	"tools.zach/dev/editorcord/internal/host"
	"tools.zach/dev/editorcord/internal/paths"
	"tools.zach/dev/editorcord/internal/peer"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, Discord and host state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := dataDir(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(dir.Root)
			if err != nil {
				return err
			}
			discordUp := peer.NewLocator(slog.Default(), cfg.Discord.PeerNames...).Available()
			return writeStatus(cmd.OutOrStdout(), dir, discordUp, time.Now())
		},
	}
}

func writeStatus(w io.Writer, dir paths.DataDir, discordUp bool, now time.Time) error {
	fmt.Fprintf(w, "data dir:  %s\n", dir.Root)

	switch pid, state := inspectPID(dir.PID()); state {
	case pidRunning:
		fmt.Fprintf(w, "daemon:    running (pid %d)\n", pid)
	case pidStale:
		fmt.Fprintf(w, "daemon:    stopped (stale PID file from pid %d)\n", pid)
	default:
		fmt.Fprintln(w, "daemon:    stopped")
	}

	if discordUp {
		fmt.Fprintln(w, "discord:   running")
	} else {
		fmt.Fprintln(w, "discord:   not found")
	}

	s, err := host.Peek(dir.HostState())
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(w, "host:      no state reported")
		return nil
	case errors.Is(err, host.ErrCorrupted):
		fmt.Fprintf(w, "host:      unreadable (%v)\n", err)
		return nil
	case err != nil:
		return err
	}
	mode := "edit"
	if s.Active {
		mode = "play"
	}
	fmt.Fprintf(w, "host:      %s (%s mode)\n", s.Context, mode)
	if s.Product != "" || s.EngineVersion != "" {
		fmt.Fprintf(w, "product:   %s %s\n", s.Product, s.EngineVersion)
	}
	if s.UpdatedAt > 0 {
		age := now.Sub(time.Unix(s.UpdatedAt, 0)).Truncate(time.Second)
		fmt.Fprintf(w, "updated:   %s ago\n", age)
	}
	return nil
}
