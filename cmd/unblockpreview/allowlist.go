package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/session"
)

func newAllowlistCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allowlist",
		Short: "Show or change the extensions eligible for unblocking",
	}

	cmd.AddCommand(newAllowlistListCmd(flags))
	cmd.AddCommand(newAllowlistAddCmd(flags))
	cmd.AddCommand(newAllowlistRemoveCmd(flags))
	cmd.AddCommand(newAllowlistOfficeCmd(flags))
	cmd.AddCommand(newAllowlistResetCmd(flags))

	return cmd
}

type allowlistOutput struct {
	Extensions    []string `json:"extensions"`
	OfficeFormats bool     `json:"office_formats"`
}

func printAllowlist(w io.Writer, set allowlist.Set, format string) error {
	switch format {
	case "json":
		exts := set.Slice()
		if exts == nil {
			exts = []string{}
		}
		return writeJSON(w, allowlistOutput{Extensions: exts, OfficeFormats: allowlist.HasOfficeFormats(set)})
	case "table":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Extension", "Office"})
		for _, ext := range set.Slice() {
			office := ""
			if slices.Contains(allowlist.OfficeFormats, ext) {
				office = "yes"
			}
			t.AppendRow(table.Row{ext, office})
		}
		t.Render()
		if set.Len() == 0 {
			fmt.Fprintln(w, session.Describe(allowlist.ErrEmptyAllowlist))
		}
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
	}
}

func newAllowlistListCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the allowed extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			set, err := a.allowlist.Load(cmd.Context())
			if err != nil {
				return err
			}
			return printAllowlist(cmd.OutOrStdout(), set, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func newAllowlistAddCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <ext>...",
		Short: "Allow one or more extensions, e.g. .heic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := allowlist.New(args...); err != nil {
				return err
			}

			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			for _, raw := range args {
				_, added, err := a.allowlist.Add(cmd.Context(), raw)
				if err != nil {
					return err
				}
				ext, _ := allowlist.Normalize(raw)
				if added {
					fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", ext)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already allowed\n", ext)
				}
			}
			return nil
		},
	}
}

func newAllowlistRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <ext>...",
		Aliases: []string{"rm"},
		Short:   "Stop allowing one or more extensions",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			for _, raw := range args {
				set, removed, err := a.allowlist.Remove(cmd.Context(), raw)
				if err != nil {
					return err
				}
				ext, _ := allowlist.Normalize(raw)
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", ext)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s was not allowed\n", ext)
				}
				if set.Len() == 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), "The allowlist is now empty; scans will be refused until an extension is added.")
				}
			}
			return nil
		},
	}
}

func newAllowlistOfficeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "office <on|off>",
		Short:     "Add or remove .docx, .xlsx and .pptx together",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := parseOnOff(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			set, err := a.allowlist.SetOfficeFormats(cmd.Context(), enabled)
			if err != nil {
				return err
			}
			return printAllowlist(cmd.OutOrStdout(), set, "table")
		},
	}
}

func newAllowlistResetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default allowlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			set, err := a.allowlist.Reset(cmd.Context())
			if err != nil {
				return err
			}
			return printAllowlist(cmd.OutOrStdout(), set, "table")
		},
	}
}
