package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/session"
)

const runHelp = `Commands:
  1,3-5 | all | none   choose the files to unblock, then confirm
  select <rows>        change the selection without unblocking
  unblock              unblock the current selection
  dry on|off           toggle dry run (currently %s)
  recursive on|off     toggle subfolders (currently %s)
  office on|off        add or remove .docx .xlsx .pptx from the allowlist
  dir <path>           scan another folder
  rescan               scan the current folder again
  list                 show the current result
  help                 show this help
  (empty line)         quit
`

// interactive holds the state of one run session. Dry run starts enabled.
type interactive struct {
	cmd    *cobra.Command
	app    *app
	prompt *prompter

	dir       string
	recursive bool
	dryRun    bool
	exts      allowlist.Set
	override  bool
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		opts   scanOptions
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Scan a folder and unblock files interactively",
		Long: "Scan a folder, show the blocked files as a numbered table and unblock the rows\n" +
			"you pick. The list is refreshed after each unblock. Dry run is on until you turn it off.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, session.NewWriterSink(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			ctx := cmd.Context()
			cfg, err := opts.sessionConfig(ctx, cmd, a, "")
			if err != nil {
				return err
			}

			r := &interactive{
				cmd:       cmd,
				app:       a,
				prompt:    newPrompter(cmd),
				recursive: cfg.Recursive,
				dryRun:    dryRun,
				exts:      cfg.Allowlist,
				override:  cmd.Flags().Changed("ext"),
			}
			if len(args) == 1 {
				r.dir = args[0]
			}
			return r.loop(ctx)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Start with dry run enabled")

	return cmd
}

func (r *interactive) out() io.Writer { return r.cmd.OutOrStdout() }

func (r *interactive) config() session.Config {
	return session.Config{
		Dir:       r.dir,
		Recursive: r.recursive,
		DryRun:    r.dryRun,
		Allowlist: r.exts,
	}
}

func (r *interactive) loop(ctx context.Context) error {
	for r.dir == "" {
		dir, err := r.prompt.readLine("Folder to scan: ")
		if errors.Is(err, io.EOF) || (err == nil && dir == "") {
			return nil
		}
		if err != nil {
			return err
		}
		r.dir = dir
	}
	r.scan(ctx)

	for {
		line, err := r.prompt.readLine(r.promptText())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		if err := r.handle(ctx, line); err != nil {
			fmt.Fprintln(r.cmd.ErrOrStderr(), err)
		}
	}
}

func (r *interactive) promptText() string {
	mode := "dry run"
	if !r.dryRun {
		mode = "LIVE"
	}
	return fmt.Sprintf("[%s, %d selected] > ", mode, len(r.app.session.SelectedPaths()))
}

func (r *interactive) handle(ctx context.Context, line string) error {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "help", "?":
		fmt.Fprintf(r.out(), runHelp, onOff(r.dryRun), onOff(r.recursive))
	case "list", "ls":
		r.list()
	case "rescan":
		r.scan(ctx)
	case "dir", "cd":
		if rest == "" {
			return errors.New("usage: dir <path>")
		}
		r.dir = rest
		r.scan(ctx)
	case "dry":
		on, err := parseOnOff(rest)
		if err != nil {
			return err
		}
		r.dryRun = on
	case "recursive":
		on, err := parseOnOff(rest)
		if err != nil {
			return err
		}
		r.recursive = on
		r.scan(ctx)
	case "office":
		on, err := parseOnOff(rest)
		if err != nil {
			return err
		}
		return r.office(ctx, on)
	case "select":
		return r.selectRows(rest)
	case "unblock":
		return r.unblock(ctx)
	default:
		if err := r.selectRows(line); err != nil {
			return fmt.Errorf("%w (type help for commands)", err)
		}
		return r.unblock(ctx)
	}
	return nil
}

func (r *interactive) scan(ctx context.Context) {
	if _, err := r.app.session.Scan(ctx, r.config()); err != nil {
		return
	}
	r.list()
}

func (r *interactive) list() {
	records := r.app.session.Records()
	if len(records) == 0 {
		return
	}
	selected := make(map[string]bool)
	for _, p := range r.app.session.SelectedPaths() {
		selected[p] = true
	}
	renderRecords(r.out(), records, selected)
}

func (r *interactive) selectRows(expr string) error {
	records := r.app.session.Records()
	if len(records) == 0 {
		return errors.New("nothing to select; scan a folder first")
	}
	rows, err := parseSelection(expr, len(records))
	if err != nil {
		return err
	}
	r.app.session.SelectAll(false)
	for _, i := range rows {
		if err := r.app.session.Select(records[i].FullName, true); err != nil {
			return err
		}
	}
	return nil
}

func (r *interactive) unblock(ctx context.Context) error {
	report, err := r.app.session.UnblockSelected(ctx, r.config(), r.prompt.confirmUnblock)
	if err != nil || report.Declined {
		return nil
	}
	if len(report.Result.Paths) > 0 {
		renderOutcomes(r.out(), report.Result.Paths)
	}
	if report.Refresh != nil {
		r.list()
	}
	return nil
}

func (r *interactive) office(ctx context.Context, enabled bool) error {
	if r.override {
		r.exts = allowlist.ToggleOfficeFormats(enabled, r.exts)
	} else {
		set, err := r.app.allowlist.SetOfficeFormats(ctx, enabled)
		if err != nil {
			return err
		}
		r.exts = set
	}
	fmt.Fprintf(r.out(), "Allowlist: %s\n", r.exts)
	r.scan(ctx)
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
