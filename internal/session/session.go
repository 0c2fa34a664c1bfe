// Package session sequences scan, selection, unblock and refresh, and allows
// at most one of those operations to run at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/motw"
	"github.com/choplin/unblockpreview/internal/powershell"
)

// State is the operation currently occupying the session.
type State int

const (
	Idle State = iota
	Scanning
	Unblocking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Unblocking:
		return "unblocking"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config is built from the caller's current settings right before each
// operation and is not retained across operations.
type Config struct {
	Dir       string
	Recursive bool
	DryRun    bool
	Allowlist allowlist.Set
}

// Pipelines is the engine the session drives.
type Pipelines interface {
	Scan(dir string, recursive bool, exts allowlist.Set) (*motw.ScanResult, error)
	Unblock(paths []string, dryRun bool) (*motw.UnblockResult, error)
}

// ConfirmFunc asks the user to approve removing the mark from count files.
type ConfirmFunc func(count int) (bool, error)

func declineAll(int) (bool, error) { return false, nil }

// UnblockReport summarizes an unblock request.
type UnblockReport struct {
	// Declined is set when the user refused the confirmation; nothing ran.
	Declined bool
	Result   *motw.UnblockResult
	// Refresh holds the rescan that follows a committed unblock.
	Refresh    *motw.ScanResult
	RefreshErr error
}

// Session owns the current scan result and selection.
type Session struct {
	engine   Pipelines
	sink     Sink
	recorder Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	result   *motw.ScanResult
	selected map[string]bool
}

// New returns an idle session.
func New(engine Pipelines, sink Sink, logger *slog.Logger) *Session {
	if sink == nil {
		sink = Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		engine:   engine,
		sink:     sink,
		logger:   logger.With("component", "session"),
		selected: make(map[string]bool),
	}
}

// WithRecorder makes the session record every invocation in r.
func (s *Session) WithRecorder(r Recorder) *Session {
	s.recorder = r
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) begin(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		s.logger.Debug("operation rejected", "requested", next, "active", s.state)
		return ErrBusy
	}
	s.logger.Debug("state change", "from", s.state, "to", next)
	s.state = next
	return nil
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("state change", "from", s.state, "to", next)
	s.state = next
}

func (s *Session) end() { s.transition(Idle) }

// Scan replaces the current result with a fresh scan and selects every row.
func (s *Session) Scan(ctx context.Context, cfg Config) (*motw.ScanResult, error) {
	if err := s.begin(Scanning); err != nil {
		s.fail(err)
		return nil, err
	}
	defer s.end()
	return s.scan(ctx, cfg)
}

func (s *Session) scan(ctx context.Context, cfg Config) (*motw.ScanResult, error) {
	s.sink.Line("Scanning for blocked files (Mark of the Web / Zone.Identifier) ...")

	started := time.Now()
	result, err := s.engine.Scan(cfg.Dir, cfg.Recursive, cfg.Allowlist)
	if result != nil {
		s.reportStderr(result.Outcome.Stderr)
	}
	if err != nil {
		var scanErr *motw.ScanFailedError
		if errors.As(err, &scanErr) {
			s.reportStderr(scanErr.Stderr)
		}
		s.fail(err)
		if !IsValidation(err) {
			s.replace(nil)
			s.record(ctx, Operation{Kind: KindScan, Dir: cfg.Dir, Recursive: cfg.Recursive}, started, err)
		}
		return nil, err
	}

	s.replace(result)
	if len(result.Records) == 0 {
		s.sink.Line("No blocked files found (within allowlist).")
	} else {
		s.sink.Line(fmt.Sprintf("Scan complete. Blocked files found: %d", len(result.Records)))
	}
	s.record(ctx, Operation{
		Kind:      KindScan,
		Dir:       result.Dir,
		Recursive: result.Recursive,
		Count:     len(result.Records),
	}, started, nil)
	return result, nil
}

// Unblock clears the mark from paths. Every path must have an extension from
// cfg.Allowlist. Unless cfg.DryRun is set, confirm must approve first. A committed unblock is followed by a rescan of cfg.Dir, or of
// the directory of the last scan when cfg.Dir is empty.
func (s *Session) Unblock(ctx context.Context, cfg Config, paths []string, confirm ConfirmFunc) (*UnblockReport, error) {
	if err := s.begin(Unblocking); err != nil {
		s.fail(err)
		return nil, err
	}
	defer s.end()

	if len(paths) == 0 {
		s.fail(motw.ErrNoSelection)
		return nil, motw.ErrNoSelection
	}
	batch := slices.Clone(paths)

	exts, err := allowlist.EffectiveSet(cfg.Allowlist)
	if err == nil {
		err = motw.CheckAllowed(batch, exts)
	}
	if err != nil {
		s.fail(err)
		return nil, err
	}

	if !cfg.DryRun {
		if confirm == nil {
			confirm = declineAll
		}
		ok, err := confirm(len(batch))
		if err != nil {
			err = fmt.Errorf("confirmation: %w", err)
			s.fail(err)
			return nil, err
		}
		if !ok {
			s.sink.Line("Unblock cancelled.")
			return &UnblockReport{Declined: true}, nil
		}
	}

	if cfg.DryRun {
		s.sink.Line(fmt.Sprintf("Dry run %d file(s) ...", len(batch)))
	} else {
		s.sink.Line(fmt.Sprintf("Unblocking %d file(s) ...", len(batch)))
	}

	started := time.Now()
	result, err := s.engine.Unblock(batch, cfg.DryRun)
	op := Operation{Kind: KindUnblock, Dir: cfg.Dir, DryRun: cfg.DryRun, Count: len(batch)}
	if err != nil {
		var unblockErr *motw.UnblockFailedError
		if errors.As(err, &unblockErr) {
			s.reportStderr(unblockErr.Stderr)
		}
		s.fail(err)
		s.record(ctx, op, started, err)
		return nil, err
	}
	s.reportStderr(result.Outcome.Stderr)
	if result.ReportErr != nil {
		s.failLine("Unblock finished; per-file report unreadable.")
	}
	s.record(ctx, op, started, nil)

	report := &UnblockReport{Result: result}
	if cfg.DryRun {
		s.sink.Line("Dry run complete (no changes made).")
		return report, nil
	}

	refresh, ok := s.refreshConfig(cfg)
	if !ok {
		s.sink.Line("Unblock complete.")
		return report, nil
	}
	s.sink.Line("Unblock complete. Refreshing list ...")
	s.transition(Scanning)
	report.Refresh, report.RefreshErr = s.scan(ctx, refresh)
	return report, nil
}

// UnblockSelected unblocks the current selection.
func (s *Session) UnblockSelected(ctx context.Context, cfg Config, confirm ConfirmFunc) (*UnblockReport, error) {
	return s.Unblock(ctx, cfg, s.SelectedPaths(), confirm)
}

func (s *Session) refreshConfig(cfg Config) (Config, bool) {
	if cfg.Dir != "" {
		return cfg, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Config{}, false
	}
	return Config{
		Dir:       s.result.Dir,
		Recursive: s.result.Recursive,
		Allowlist: s.result.Allowlist.Clone(),
	}, true
}

func (s *Session) replace(result *motw.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	s.selected = make(map[string]bool)
	if result == nil {
		return
	}
	for _, rec := range result.Records {
		s.selected[rec.FullName] = true
	}
}

func (s *Session) reportStderr(stderr string) {
	if msg := strings.TrimSpace(stderr); msg != "" {
		s.failLine("PS ERR: " + msg)
	}
}

func (s *Session) fail(err error) { s.failLine(Describe(err)) }

func (s *Session) failLine(text string) {
	if fs, ok := s.sink.(FailureSink); ok {
		fs.Failure(text)
		return
	}
	s.sink.Line(text)
}

// Records returns a copy of the current scan result rows.
func (s *Session) Records() []motw.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	return slices.Clone(s.result.Records)
}

// Select marks or unmarks path for the next unblock.
func (s *Session) Select(path string, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil || !slices.ContainsFunc(s.result.Records, func(r motw.Record) bool { return r.FullName == path }) {
		return fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	if selected {
		s.selected[path] = true
	} else {
		delete(s.selected, path)
	}
	return nil
}

// SelectAll marks or unmarks every row of the current result.
func (s *Session) SelectAll(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]bool)
	if !selected || s.result == nil {
		return
	}
	for _, rec := range s.result.Records {
		s.selected[rec.FullName] = true
	}
}

// SelectedPaths returns the selected paths in result order.
func (s *Session) SelectedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	var paths []string
	for _, rec := range s.result.Records {
		if s.selected[rec.FullName] {
			paths = append(paths, rec.FullName)
		}
	}
	return paths
}

func (s *Session) record(ctx context.Context, op Operation, started time.Time, err error) {
	if s.recorder == nil {
		return
	}
	op.ID = uuid.New().String()
	op.StartedAt = started
	op.FinishedAt = time.Now()
	if err != nil {
		op.Error = err.Error()
		var scanErr *motw.ScanFailedError
		var unblockErr *motw.UnblockFailedError
		switch {
		case errors.As(err, &scanErr):
			op.ExitCode = scanErr.ExitCode
		case errors.As(err, &unblockErr):
			op.ExitCode = unblockErr.ExitCode
		case errors.Is(err, powershell.ErrToolInvocationFailed):
			op.ExitCode = -1
		}
	}
	if recErr := s.recorder.RecordOperation(ctx, op); recErr != nil {
		s.logger.Warn("failed to record operation", "kind", op.Kind, "err", recErr)
	}
}
