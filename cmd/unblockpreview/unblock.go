package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/choplin/unblockpreview/internal/motw"
	"github.com/choplin/unblockpreview/internal/session"
)

type unblockOutput struct {
	DryRun       bool               `json:"dry_run"`
	Results      []motw.PathOutcome `json:"results"`
	StillBlocked []recordOutput     `json:"still_blocked,omitempty"`
}

func newUnblockCmd(flags *globalFlags) *cobra.Command {
	var (
		opts      scanOptions
		dir       string
		pathFlags []string
		dryRun    bool
		yes       bool
		strict    bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "unblock --paths <p1,p2,...>",
		Short: "Remove the Mark of the Web from files",
		Long: "Remove the Zone.Identifier stream from the given files, or from every blocked\n" +
			"file found in --dir. Only files whose extension is on the allowlist are accepted.\n" +
			"You are asked to confirm unless --yes or --dry-run is given. After a real unblock\n" +
			"the folder is scanned again and remaining files are listed.\n\n" +
			"Files the tool could not unblock are reported but do not make the command fail\n" +
			"unless --strict is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := append(slices.Clone(args), pathFlags...)
			if len(targets) == 0 && dir == "" {
				return errors.New("give the files to unblock with --paths, or --dir to unblock everything found there")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}

			a, err := openApp(flags, session.NewWriterSink(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			ctx := cmd.Context()
			cfg, err := opts.sessionConfig(ctx, cmd, a, dir)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.DryRun = dryRun
			}

			paths := make([]string, 0, len(targets))
			for _, target := range targets {
				abs, err := filepath.Abs(target)
				if err != nil {
					return err
				}
				paths = append(paths, abs)
			}
			if len(paths) == 0 {
				result, err := a.session.Scan(ctx, cfg)
				if err != nil {
					return shown(err)
				}
				if len(result.Records) == 0 {
					return nil
				}
				if format == "table" {
					renderRecords(cmd.OutOrStdout(), result.Records, nil)
				}
				paths = a.session.SelectedPaths()
			}

			confirm := newPrompter(cmd).confirmUnblock
			if yes {
				confirm = func(int) (bool, error) { return true, nil }
			}

			report, err := a.session.Unblock(ctx, cfg, paths, confirm)
			if err != nil {
				return shown(err)
			}
			if report.Declined {
				return nil
			}

			if format == "json" {
				out := unblockOutput{DryRun: cfg.DryRun, Results: report.Result.Paths}
				if report.Refresh != nil {
					out.StillBlocked = recordOutputs(report.Refresh.Records, nil)
				}
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				if len(report.Result.Paths) > 0 {
					renderOutcomes(cmd.OutOrStdout(), report.Result.Paths)
				}
				if report.Refresh != nil && len(report.Refresh.Records) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Still blocked:")
					renderRecords(cmd.OutOrStdout(), report.Refresh.Records, nil)
				}
			}

			if failed := report.Result.Failed(); len(failed) > 0 {
				msg := fmt.Sprintf("%d of %d file(s) could not be unblocked", len(failed), len(report.Result.Paths))
				if strict {
					return errors.New(msg)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
			}
			if report.RefreshErr != nil {
				return shown(report.RefreshErr)
			}
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringSliceVar(&pathFlags, "paths", nil, "Comma separated files to unblock; may also be given as arguments")
	cmd.Flags().StringVar(&dir, "dir", "", "Unblock every blocked file found in this folder; also the folder rescanned afterwards")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report what would be unblocked (default from config)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any file could not be unblocked")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}
