package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/choplin/unblockpreview/internal/database"
	"github.com/choplin/unblockpreview/internal/services"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		limit    int
		format   string
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent scans and unblocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}

			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			ctx := cmd.Context()
			if clearAll {
				if err := database.ClearHistory(ctx, a.db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
				return nil
			}

			records, err := a.history.List(ctx, limit)
			if err != nil {
				return err
			}

			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), historyOutputs(records))
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No operations recorded yet")
				return nil
			}
			renderHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", services.DefaultHistoryLimit, "Number of operations to show")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete the recorded history")

	return cmd
}
