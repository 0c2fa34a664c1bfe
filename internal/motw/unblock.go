package motw

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/powershell"
)

// PathStatus is the per-path result reported by the unblock script.
type PathStatus string

const (
	StatusUnblocked PathStatus = "unblocked"
	StatusSimulated PathStatus = "simulated"
	StatusFailed    PathStatus = "failed"
)

// PathOutcome is the result for one path of an unblock batch.
type PathOutcome struct {
	Path    string     `json:"Path"`
	Status  PathStatus `json:"Status"`
	Message string     `json:"Message,omitempty"`
}

// UnblockResult describes a completed batch. A batch can succeed as a whole
// while individual paths failed; see Failed.
type UnblockResult struct {
	DryRun  bool
	Paths   []PathOutcome
	Outcome powershell.Outcome
	// ReportErr is set when the batch ran but its per-path report could not
	// be decoded. Paths is empty in that case.
	ReportErr error
}

// Failed returns the paths the script could not process.
func (r *UnblockResult) Failed() []PathOutcome {
	var failed []PathOutcome
	for _, p := range r.Paths {
		if p.Status == StatusFailed {
			failed = append(failed, p)
		}
	}
	return failed
}

// Unblock removes the Zone.Identifier stream from every path, or only
// simulates it when dryRun is set. A failure on one path does not stop the
// rest of the batch. The caller owns refreshing any earlier scan result.
func (e *Engine) Unblock(paths []string, dryRun bool) (*UnblockResult, error) {
	if len(paths) == 0 {
		return nil, ErrNoSelection
	}
	batch := slices.Clone(paths)

	script, err := UnblockScript(batch, dryRun)
	if err != nil {
		return nil, fmt.Errorf("render unblock script: %w", err)
	}

	e.logger.Debug("unblock started", "paths", len(batch), "dry_run", dryRun)
	outcome, err := e.tool.Invoke(script)
	if err != nil {
		return nil, err
	}
	if !outcome.Succeeded() {
		return nil, &UnblockFailedError{ExitCode: outcome.ExitCode, Stderr: outcome.Stderr}
	}

	result := &UnblockResult{DryRun: dryRun, Outcome: outcome}
	result.Paths, result.ReportErr = ParsePathOutcomes(outcome.Stdout)
	if result.ReportErr != nil {
		// The batch itself completed; only the report is unreadable.
		e.logger.Warn("unblock report unreadable", "err", result.ReportErr)
	}

	e.logger.Debug("unblock finished", "paths", len(batch), "failed", len(result.Failed()))
	return result, nil
}

// CheckAllowed rejects the batch when any path has an extension outside exts.
func CheckAllowed(paths []string, exts allowlist.Set) error {
	for _, p := range paths {
		if ext := filepath.Ext(p); !exts.Contains(ext) {
			return fmt.Errorf("%w: %s", ErrExtensionNotAllowed, p)
		}
	}
	return nil
}

// ParsePathOutcomes reads the JSON array on the last non-blank line of stdout.
// Lines before it are WhatIf messages written by the host.
func ParsePathOutcomes(stdout string) ([]PathOutcome, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" || last == "null" {
		return nil, nil
	}

	var outcomes []PathOutcome
	if strings.HasPrefix(last, "{") {
		var one PathOutcome
		if err := json.Unmarshal([]byte(last), &one); err != nil {
			return nil, fmt.Errorf("decode unblock report: %w", err)
		}
		return []PathOutcome{one}, nil
	}
	if err := json.Unmarshal([]byte(last), &outcomes); err != nil {
		return nil, fmt.Errorf("decode unblock report: %w", err)
	}
	return outcomes, nil
}
