package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"tools.zach/dev/editorcord/internal/host"
)

// notifyFlags are the host.json fields notify can set. Unset flags keep the
// value already in the file.
type notifyFlags struct {
	context       string
	active        bool
	edit          bool
	product       string
	engineVersion string
	sessionStart  int64
	newSession    bool
}

func newNotifyCmd() *cobra.Command {
	var f notifyFlags
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Update host.json the way an editor plugin would",
		Example: `  editorcord notify --context SampleScene --edit
  editorcord notify --product "My Game" --engine-version 6000.0.23f1 --new-session
  editorcord notify --active`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := dataDir(cmd)
			if err != nil {
				return err
			}
			if err := dir.Ensure(); err != nil {
				return err
			}
			s, err := notify(dir.HostState(), f, cmd.Flags().Changed, time.Now())
			if err != nil {
				return err
			}
			mode := "edit"
			if s.Active {
				mode = "play"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "context=%q mode=%s product=%q engine=%q\n",
				s.Context, mode, s.Product, s.EngineVersion)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.context, "context", "", "open scene or document")
	fl.BoolVar(&f.active, "active", false, "enter play mode")
	fl.BoolVar(&f.edit, "edit", false, "return to edit mode")
	fl.StringVar(&f.product, "product", "", "product or project name")
	fl.StringVar(&f.engineVersion, "engine-version", "", "engine version")
	fl.Int64Var(&f.sessionStart, "session-start", 0, "unix second the host session began")
	fl.BoolVar(&f.newSession, "new-session", false, "start a host session now")
	cmd.MarkFlagsMutuallyExclusive("active", "edit")
	cmd.MarkFlagsMutuallyExclusive("session-start", "new-session")
	return cmd
}

// notify merges the changed flags into the state at path and writes it.
// A missing or corrupted file starts from an empty state.
func notify(path string, f notifyFlags, changed func(string) bool, now time.Time) (*host.State, error) {
	s, err := host.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, host.ErrCorrupted) {
			return nil, err
		}
		s = &host.State{}
	}

	if changed("context") {
		s.Context = f.context
	}
	if changed("active") {
		s.Active = f.active
	}
	if changed("edit") && f.edit {
		s.Active = false
	}
	if changed("product") {
		s.Product = f.product
	}
	if changed("engine-version") {
		s.EngineVersion = f.engineVersion
	}
	if changed("session-start") {
		s.SessionStart = f.sessionStart
	}
	if f.newSession {
		s.SessionStart = now.Unix()
	}
	s.UpdatedAt = now.Unix()

	if err := host.Write(path, s); err != nil {
		return nil, fmt.Errorf("writing host state: %w", err)
	}
	return s, nil
}
