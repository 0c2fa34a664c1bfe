package main

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/choplin/unblockpreview/internal/database"
	"github.com/choplin/unblockpreview/internal/motw"
)

func getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// pathWidth is what remains of the terminal for the path column once the
// fixed columns are laid out. Paths are truncated from the left so the file
// name stays visible.
func pathWidth(termWidth, fixed, columns int) int {
	width := termWidth - fixed - columns*3
	if width < 20 {
		width = 20
	}
	return width
}

func truncateLeft(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	const ellipsis = "..."
	runes := []rune(s)
	width := runewidth.StringWidth(ellipsis)
	start := len(runes)
	for start > 0 {
		w := runewidth.RuneWidth(runes[start-1])
		if width+w > maxWidth {
			break
		}
		width += w
		start--
	}
	return ellipsis + string(runes[start:])
}

type recordOutput struct {
	Index         int    `json:"index"`
	Path          string `json:"path"`
	Name          string `json:"name"`
	Ext           string `json:"ext"`
	Size          int64  `json:"size"`
	LastWriteTime string `json:"last_write_time"`
	Selected      bool   `json:"selected"`
}

func recordOutputs(records []motw.Record, selected map[string]bool) []recordOutput {
	out := make([]recordOutput, 0, len(records))
	for i, rec := range records {
		out = append(out, recordOutput{
			Index:         i + 1,
			Path:          rec.FullName,
			Name:          rec.Name,
			Ext:           rec.Ext,
			Size:          rec.Length,
			LastWriteTime: rec.LastWriteTime,
			Selected:      selected == nil || selected[rec.FullName],
		})
	}
	return out
}

// renderRecords prints the scan result. A nil selected map hides the selection column.
func renderRecords(w io.Writer, records []motw.Record, selected map[string]bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	showSelection := selected != nil
	// #, [x], Size, Last write are fixed width; the path takes the rest.
	fixed := 4 + 10 + 19
	columns := 4
	if showSelection {
		fixed += 3
		columns++
	}
	width := pathWidth(getTerminalWidth(), fixed, columns)

	header := table.Row{"#"}
	if showSelection {
		header = append(header, "Sel")
	}
	header = append(header, "Path", "Size", "Last Write")
	t.AppendHeader(header)

	for i, rec := range records {
		row := table.Row{i + 1}
		if showSelection {
			mark := ""
			if selected[rec.FullName] {
				mark = "x"
			}
			row = append(row, mark)
		}
		row = append(row,
			truncateLeft(rec.FullName, width),
			humanize.IBytes(uint64(rec.Length)),
			rec.LastWriteTime,
		)
		t.AppendRow(row)
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Size", Align: text.AlignRight},
	})
	t.Render()
}

func renderOutcomes(w io.Writer, outcomes []motw.PathOutcome) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	width := pathWidth(getTerminalWidth(), 10+30, 3)
	t.AppendHeader(table.Row{"Path", "Status", "Message"})
	for _, o := range outcomes {
		t.AppendRow(table.Row{
			truncateLeft(o.Path, width),
			string(o.Status),
			runewidth.Truncate(o.Message, 30, "..."),
		})
	}
	t.Render()
}

type historyOutput struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Dir        string `json:"dir,omitempty"`
	Recursive  bool   `json:"recursive"`
	DryRun     bool   `json:"dry_run"`
	ExitCode   int    `json:"exit_code"`
	Count      int    `json:"count"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
}

func historyOutputs(records []database.OperationRecord) []historyOutput {
	out := make([]historyOutput, 0, len(records))
	for _, rec := range records {
		out = append(out, historyOutput{
			ID:         rec.ID,
			Kind:       rec.Kind,
			Dir:        rec.Dir,
			Recursive:  rec.Recursive,
			DryRun:     rec.DryRun,
			ExitCode:   rec.ExitCode,
			Count:      rec.Count,
			Error:      rec.Error,
			StartedAt:  rec.StartedAt.Format(time.RFC3339),
			DurationMS: rec.Duration().Milliseconds(),
		})
	}
	return out
}

func renderHistory(w io.Writer, records []database.OperationRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	termWidth := getTerminalWidth()
	// Started, Kind, Files, Exit, Took are fixed; Dir and Error share the rest.
	shared := pathWidth(termWidth, 19+8+5+4+8, 7) / 2

	t.AppendHeader(table.Row{"Started", "Kind", "Dir", "Files", "Exit", "Took", "Error"})
	for _, rec := range records {
		kind := rec.Kind
		if rec.DryRun {
			kind += " (dry)"
		}
		exit := ""
		if rec.Error != "" || rec.ExitCode != 0 {
			exit = strconv.Itoa(rec.ExitCode)
		}
		t.AppendRow(table.Row{
			humanize.Time(rec.StartedAt),
			kind,
			truncateLeft(rec.Dir, shared),
			rec.Count,
			exit,
			rec.Duration().Round(time.Millisecond).String(),
			runewidth.Truncate(rec.Error, shared, "..."),
		})
	}
	t.Render()
}
