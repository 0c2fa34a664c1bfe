package main

import (
	"github.com/spf13/cobra"

	"github.com/choplin/unblockpreview/internal/mcp"
)

func newMCPCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server on stdio so agents can scan and unblock files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries the protocol, so status lines only reach the log.
			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			server := mcp.NewServer(a.session, a.allowlist, mcp.Options{
				Version:   version,
				Recursive: a.cfg.Scan.Recursive,
			}, a.logger)
			return server.Run(cmd.Context())
		},
	}

	return cmd
}
