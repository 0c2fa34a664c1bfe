package main

import (
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "unblockpreview",
		Short: "Find and remove the Mark of the Web from downloaded files",
		Long: "unblockpreview lists files carrying the Zone.Identifier stream (Mark of the Web)\n" +
			"whose extension is on an allowlist, and removes the mark from the files you select\n" +
			"so that Explorer can preview them.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/unblockpreview/config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override the log level: debug, info, warn or error")

	cmd.AddCommand(newScanCmd(flags))
	cmd.AddCommand(newUnblockCmd(flags))
	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newAllowlistCmd(flags))
	cmd.AddCommand(newHistoryCmd(flags))
	cmd.AddCommand(newMCPCmd(flags))

	return cmd
}
