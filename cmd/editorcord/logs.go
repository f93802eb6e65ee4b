package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"tools.zach/dev/editorcord/internal/logger"
)

func newLogsCmd() *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := dataDir(cmd)
			if err != nil {
				return err
			}
			out, err := logger.ReadTail(dir.Log(), lines)
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no log at %s; has the daemon run?", dir.Log())
			}
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to show")
	return cmd
}
