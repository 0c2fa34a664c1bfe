package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/session"
)

// scanOptions are the flags that shape a scan, shared by scan, unblock and run.
type scanOptions struct {
	recursive bool
	exts      string
}

func (o *scanOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&o.recursive, "recursive", "r", false, "Include subfolders (default from config)")
	cmd.Flags().StringVar(&o.exts, "ext", "", "Comma separated extensions to scan for instead of the stored allowlist, e.g. .pdf,.txt")
}

// sessionConfig builds the settings for one operation from the flags, the
// config file and the stored allowlist.
func (o *scanOptions) sessionConfig(ctx context.Context, cmd *cobra.Command, a *app, dir string) (session.Config, error) {
	recursive := a.cfg.Scan.Recursive
	if cmd.Flags().Changed("recursive") {
		recursive = o.recursive
	}

	var (
		exts allowlist.Set
		err  error
	)
	if cmd.Flags().Changed("ext") {
		exts, err = allowlist.Parse(o.exts)
	} else {
		exts, err = a.allowlist.Load(ctx)
	}
	if err != nil {
		return session.Config{}, err
	}

	return session.Config{
		Dir:       dir,
		Recursive: recursive,
		DryRun:    a.cfg.Unblock.DryRun,
		Allowlist: exts,
	}, nil
}

func newScanCmd(flags *globalFlags) *cobra.Command {
	var (
		opts   scanOptions
		dir    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "scan --dir <dir>",
		Short: "List blocked files in a folder",
		Long: "List the files in a folder that carry the Mark of the Web (Zone.Identifier)\n" +
			"and whose extension is on the allowlist. Nothing is modified.\n" +
			"The folder may also be given as the only argument.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if dir != "" && dir != args[0] {
					return fmt.Errorf("folder given twice: %q and --dir %q", args[0], dir)
				}
				dir = args[0]
			}
			if dir == "" {
				return errors.New("give the folder to scan with --dir")
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

			result, err := a.session.Scan(ctx, cfg)
			if err != nil {
				return shown(err)
			}

			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), recordOutputs(result.Records, nil))
			}
			if len(result.Records) > 0 {
				renderRecords(cmd.OutOrStdout(), result.Records, nil)
			}
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&dir, "dir", "", "Folder to scan")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}
