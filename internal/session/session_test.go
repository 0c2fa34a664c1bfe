package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/motw"
	"github.com/choplin/unblockpreview/internal/motw/motwtest"
	"github.com/choplin/unblockpreview/internal/powershell"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) Line(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, text)
}

func (l *lineRecorder) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

type opRecorder struct {
	mu  sync.Mutex
	ops []Operation
}

func (r *opRecorder) RecordOperation(_ context.Context, op Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	return nil
}

type fixture struct {
	dir     string
	tool    *motwtest.Tool
	lines   *lineRecorder
	session *Session
	cfg     Config
}

func newFixture(t *testing.T, files map[string]bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	tool := motwtest.New()
	for name, marked := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if marked {
			tool.Mark(path)
		}
	}

	exts, err := allowlist.New(".pdf", ".txt")
	if err != nil {
		t.Fatalf("allowlist.New failed: %v", err)
	}

	lines := &lineRecorder{}
	return &fixture{
		dir:     dir,
		tool:    tool,
		lines:   lines,
		session: New(motw.NewEngine(tool, nil), lines, nil),
		cfg:     Config{Dir: dir, Allowlist: exts},
	}
}

func approve(int) (bool, error) { return true, nil }

func TestScanSelectsEveryRow(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true, "b.txt": true, "c.pdf": false})
	ctx := context.Background()

	result, err := f.session.Scan(ctx, f.cfg)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
	if got := f.session.SelectedPaths(); len(got) != 2 {
		t.Fatalf("expected every row selected, got %v", got)
	}
	if f.session.State() != Idle {
		t.Fatalf("expected Idle after scan, got %s", f.session.State())
	}
	if !f.lines.contains("Scan complete. Blocked files found: 2") {
		t.Errorf("missing completion line in %v", f.lines.lines)
	}
}

func TestSelectionResetsOnRescan(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true, "b.pdf": true})
	ctx := context.Background()

	if _, err := f.session.Scan(ctx, f.cfg); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	a := filepath.Join(f.dir, "a.pdf")
	if err := f.session.Select(a, false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if got := f.session.SelectedPaths(); len(got) != 1 {
		t.Fatalf("expected 1 selected path, got %v", got)
	}

	if err := f.session.Select(filepath.Join(f.dir, "other.pdf"), true); !errors.Is(err, ErrUnknownPath) {
		t.Fatalf("expected ErrUnknownPath, got %v", err)
	}

	if _, err := f.session.Scan(ctx, f.cfg); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := f.session.SelectedPaths(); len(got) != 2 {
		t.Fatalf("expected selection to be recomputed, got %v", got)
	}

	f.session.SelectAll(false)
	if got := f.session.SelectedPaths(); len(got) != 0 {
		t.Fatalf("expected empty selection, got %v", got)
	}
}

func TestUnblockWithoutSelection(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true})

	_, err := f.session.Unblock(context.Background(), f.cfg, nil, approve)
	if !errors.Is(err, motw.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if f.tool.Invocations() != 0 {
		t.Fatalf("expected zero invocations, got %d", f.tool.Invocations())
	}
	if f.session.State() != Idle {
		t.Fatalf("expected Idle, got %s", f.session.State())
	}
}

func TestUnblockRequiresAllowlist(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true})
	rec := &opRecorder{}
	f.session.WithRecorder(rec)
	a := filepath.Join(f.dir, "a.pdf")

	_, err := f.session.Unblock(context.Background(), Config{Dir: f.dir, Allowlist: allowlist.Set{}}, []string{a}, approve)
	if !errors.Is(err, allowlist.ErrEmptyAllowlist) {
		t.Fatalf("expected ErrEmptyAllowlist, got %v", err)
	}
	if f.tool.Invocations() != 0 || !f.tool.Marked(a) {
		t.Fatalf("empty allowlist reached the tool: invocations=%d", f.tool.Invocations())
	}
	if len(rec.ops) != 0 {
		t.Fatalf("validation failure was recorded: %v", rec.ops)
	}
	if !f.lines.contains("Please select at least one allowed extension.") {
		t.Errorf("missing status line in %v", f.lines.lines)
	}
}

func TestUnblockRejectsExtensionsOutsideAllowlist(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true, "setup.exe": true})
	a := filepath.Join(f.dir, "a.pdf")
	exe := filepath.Join(f.dir, "setup.exe")

	for _, batch := range [][]string{{exe}, {a, exe}} {
		_, err := f.session.Unblock(context.Background(), f.cfg, batch, approve)
		if !errors.Is(err, motw.ErrExtensionNotAllowed) {
			t.Fatalf("batch %v: expected ErrExtensionNotAllowed, got %v", batch, err)
		}
		if !IsValidation(err) {
			t.Errorf("expected %v to be a validation error", err)
		}
	}
	if f.tool.Invocations() != 0 {
		t.Fatalf("expected zero invocations, got %d", f.tool.Invocations())
	}
	if !f.tool.Marked(exe) || !f.tool.Marked(a) {
		t.Fatal("a rejected batch removed a mark")
	}
	if !f.lines.contains("Only files with an allowed extension can be unblocked: " + exe) {
		t.Errorf("missing status line in %v", f.lines.lines)
	}
	if f.session.State() != Idle {
		t.Fatalf("expected Idle, got %s", f.session.State())
	}
}

func TestUnblockMatchesExtensionsCaseInsensitively(t *testing.T) {
	f := newFixture(t, map[string]bool{"Report.PDF": true})
	path := filepath.Join(f.dir, "Report.PDF")

	if _, err := f.session.Unblock(context.Background(), f.cfg, []string{path}, approve); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if f.tool.Marked(path) {
		t.Fatal("mark still present")
	}
}

func TestUnreadableUnblockReportIsShown(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true})
	f.tool.GarbleReport = true
	a := filepath.Join(f.dir, "a.pdf")

	report, err := f.session.Unblock(context.Background(), f.cfg, []string{a}, approve)
	if err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if report.Result.ReportErr == nil || len(report.Result.Paths) != 0 {
		t.Fatalf("expected an unreadable report, got %#v", report.Result)
	}
	if !f.lines.contains("Unblock finished; per-file report unreadable.") {
		t.Errorf("missing status line in %v", f.lines.lines)
	}
	if f.tool.Marked(a) {
		t.Fatal("batch did not run")
	}
}

func TestDeclinedConfirmationRunsNothing(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true})
	ctx := context.Background()
	if _, err := f.session.Scan(ctx, f.cfg); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	before := f.tool.Invocations()

	asked := 0
	report, err := f.session.UnblockSelected(ctx, f.cfg, func(n int) (bool, error) {
		asked = n
		return false, nil
	})
	if err != nil {
		t.Fatalf("UnblockSelected failed: %v", err)
	}
	if !report.Declined {
		t.Fatal("expected a declined report")
	}
	if asked != 1 {
		t.Fatalf("expected confirmation for 1 file, got %d", asked)
	}
	if f.tool.Invocations() != before {
		t.Fatal("declined unblock invoked the tool")
	}
	if f.session.State() != Idle {
		t.Fatalf("expected Idle, got %s", f.session.State())
	}
}

func TestNilConfirmDeclines(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true})

	report, err := f.session.Unblock(context.Background(), f.cfg, []string{filepath.Join(f.dir, "a.pdf")}, nil)
	if err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if !report.Declined || f.tool.Invocations() != 0 {
		t.Fatalf("expected decline without invocation, got %#v", report)
	}
}

func TestDryRunSkipsConfirmationAndRefresh(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true})
	ctx := context.Background()
	if _, err := f.session.Scan(ctx, f.cfg); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	cfg := f.cfg
	cfg.DryRun = true
	report, err := f.session.UnblockSelected(ctx, cfg, func(int) (bool, error) {
		t.Fatal("dry run must not ask for confirmation")
		return false, nil
	})
	if err != nil {
		t.Fatalf("UnblockSelected failed: %v", err)
	}
	if report.Refresh != nil {
		t.Fatal("dry run must not refresh")
	}
	if f.tool.Invocations() != 2 {
		t.Fatalf("expected scan + dry run = 2 invocations, got %d", f.tool.Invocations())
	}
	if !f.tool.Marked(filepath.Join(f.dir, "a.pdf")) {
		t.Fatal("dry run removed the mark")
	}
	if !f.lines.contains("Dry run complete (no changes made).") {
		t.Errorf("missing dry run line in %v", f.lines.lines)
	}
}

func TestCommitRefreshesAutomatically(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true, "b.pdf": true})
	ctx := context.Background()
	if _, err := f.session.Scan(ctx, f.cfg); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	var states []State
	f.tool.BeforeInvoke = func(string) { states = append(states, f.session.State()) }

	a := filepath.Join(f.dir, "a.pdf")
	report, err := f.session.Unblock(ctx, Config{Allowlist: f.cfg.Allowlist}, []string{a}, approve)
	if err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if report.RefreshErr != nil {
		t.Fatalf("refresh failed: %v", report.RefreshErr)
	}
	if !reflect.DeepEqual(states, []State{Unblocking, Scanning}) {
		t.Fatalf("expected Unblocking then Scanning, got %v", states)
	}
	if report.Refresh == nil || len(report.Refresh.Records) != 1 || report.Refresh.Records[0].Name != "b.pdf" {
		t.Fatalf("unexpected refresh %#v", report.Refresh)
	}
	if got := f.session.Records(); len(got) != 1 {
		t.Fatalf("session did not adopt refreshed records: %v", got)
	}
	if f.session.State() != Idle {
		t.Fatalf("expected Idle, got %s", f.session.State())
	}
}

func TestUnblockWithoutScanContextSkipsRefresh(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true})

	report, err := f.session.Unblock(context.Background(), Config{Allowlist: f.cfg.Allowlist}, []string{filepath.Join(f.dir, "a.pdf")}, approve)
	if err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if report.Refresh != nil || f.tool.Invocations() != 1 {
		t.Fatalf("expected a single invocation without refresh, got %d", f.tool.Invocations())
	}
}

func TestOperationSlotIsExclusive(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true})
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.tool.BeforeInvoke = func(string) {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.session.Scan(ctx, f.cfg)
		done <- err
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("scan never reached the tool")
	}

	if f.session.State() != Scanning {
		t.Fatalf("expected Scanning, got %s", f.session.State())
	}
	if _, err := f.session.Scan(ctx, f.cfg); !errors.Is(err, ErrBusy) {
		t.Errorf("second scan: expected ErrBusy, got %v", err)
	}
	if _, err := f.session.Unblock(ctx, f.cfg, []string{"x"}, approve); !errors.Is(err, ErrBusy) {
		t.Errorf("unblock during scan: expected ErrBusy, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if f.session.State() != Idle {
		t.Fatalf("expected Idle, got %s", f.session.State())
	}
	if f.tool.Invocations() != 1 {
		t.Fatalf("expected exactly one invocation, got %d", f.tool.Invocations())
	}
}

func TestScanSnapshotsAllowlist(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true, "b.txt": true})

	f.tool.BeforeInvoke = func(string) { f.cfg.Allowlist.Remove(".txt") }

	result, err := f.session.Scan(context.Background(), f.cfg)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("later allowlist edit leaked into a running scan: %v", result.Records)
	}
}

func TestFailuresReleaseSlotAndAreRecorded(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true})
	rec := &opRecorder{}
	f.session.WithRecorder(rec)
	ctx := context.Background()

	f.tool.ExitCode = 1
	f.tool.Stderr = "boom"
	_, err := f.session.Scan(ctx, f.cfg)
	var scanErr *motw.ScanFailedError
	if !errors.As(err, &scanErr) {
		t.Fatalf("expected ScanFailedError, got %v", err)
	}
	if f.session.State() != Idle {
		t.Fatalf("expected Idle after failure, got %s", f.session.State())
	}
	if !f.lines.contains("PS ERR: boom") || !f.lines.contains("Scan failed. Exit code: 1") {
		t.Errorf("missing failure lines in %v", f.lines.lines)
	}

	bad := f.cfg
	bad.Dir = filepath.Join(f.dir, "missing")
	if _, err := f.session.Scan(ctx, bad); !errors.Is(err, motw.ErrInvalidFolder) {
		t.Fatalf("expected ErrInvalidFolder, got %v", err)
	}

	if len(rec.ops) != 1 {
		t.Fatalf("expected only the failed invocation to be recorded, got %d", len(rec.ops))
	}
	op := rec.ops[0]
	if op.Kind != KindScan || op.ExitCode != 1 || op.Error == "" || op.ID == "" {
		t.Fatalf("unexpected operation %#v", op)
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: ErrBusy, want: "Another operation is still running."},
		{err: motw.ErrInvalidFolder, want: "Please select a valid folder first."},
		{err: allowlist.ErrEmptyAllowlist, want: "Please select at least one allowed extension."},
		{err: motw.ErrNoSelection, want: "Please select at least one file to unblock."},
		{err: fmt.Errorf("%w: C:\\x\\setup.exe", motw.ErrExtensionNotAllowed), want: "Only files with an allowed extension can be unblocked: C:\\x\\setup.exe"},
		{err: &motw.ScanFailedError{ExitCode: 3}, want: "Scan failed. Exit code: 3"},
		{err: &motw.UnblockFailedError{ExitCode: 4}, want: "Unblock step failed. Exit code: 4"},
	}
	for _, tc := range cases {
		if got := Describe(tc.err); got != tc.want {
			t.Errorf("Describe(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}

	if got := Describe(powershell.ErrToolInvocationFailed); !strings.HasPrefix(got, "Could not run PowerShell") {
		t.Errorf("unexpected invocation failure text %q", got)
	}
	if !IsValidation(motw.ErrNoSelection) || IsValidation(&motw.ScanFailedError{}) {
		t.Error("IsValidation misclassified errors")
	}
}

func TestLogSinkLogsFailuresAtWarn(t *testing.T) {
	f := newFixture(t, map[string]bool{"a.pdf": true})
	f.tool.ExitCode = 1
	f.tool.Stderr = "boom"

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	sess := New(motw.NewEngine(f.tool, nil), NewLogSink(logger), nil)

	if _, err := sess.Scan(context.Background(), f.cfg); err == nil {
		t.Fatal("expected scan failure")
	}
	out := buf.String()
	for _, want := range []string{"PS ERR: boom", "Scan failed. Exit code: 1", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output %q", want, out)
		}
	}
	if strings.Contains(out, "Scanning for blocked files") {
		t.Errorf("progress line logged above info: %q", out)
	}
}

func TestWriterSinkTimestamps(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)
	sink.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local) }

	sink.Line("hello")
	if got := buf.String(); got != "[07:08:09] hello\n" {
		t.Fatalf("unexpected sink output %q", got)
	}
}
