package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"tools.zach/dev/editorcord/internal/paths"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   paths.BinaryName,
		Short: "Discord Rich Presence for your editor",
		Long: `editorcord shows what you are working on in your Discord status.

An editor plugin (or "editorcord notify") writes host.json in the data
directory; "editorcord run" watches it and keeps Discord up to date.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("data-dir", "", "data directory (default $"+paths.DataDirEnv+" or ~/"+paths.DataDirRel+")")

	root.AddCommand(
		newRunCmd(),
		newNotifyCmd(),
		newStatusCmd(),
		newLogsCmd(),
		newVersionCmd(),
	)
	return root
}

// dataDir resolves the --data-dir flag inherited by every subcommand.
func dataDir(cmd *cobra.Command) (paths.DataDir, error) {
	flag, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return paths.DataDir{}, err
	}
	return paths.Resolve(flag)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", paths.BinaryName, resolveVersion())
		},
	}
}
