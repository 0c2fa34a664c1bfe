package motw

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/powershell"
)

// ScanResult holds the records of one scan, sorted by path, along with the
// raw outcome so callers can surface anything written to stderr.
type ScanResult struct {
	Dir       string
	Recursive bool
	Allowlist allowlist.Set
	Records   []Record
	Outcome   powershell.Outcome
}

// ValidateFolder resolves dir to an absolute path and checks it is a directory.
func ValidateFolder(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%w: no folder given", ErrInvalidFolder)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFolder, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFolder, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidFolder, abs)
	}
	return abs, nil
}

// Scan lists the files under dir whose extension is in exts and that carry
// the Zone.Identifier stream.
func (e *Engine) Scan(dir string, recursive bool, exts allowlist.Set) (*ScanResult, error) {
	root, err := ValidateFolder(dir)
	if err != nil {
		return nil, err
	}
	snapshot, err := allowlist.EffectiveSet(exts)
	if err != nil {
		return nil, err
	}

	script, err := ScanScript(root, recursive, snapshot.Slice())
	if err != nil {
		return nil, fmt.Errorf("render scan script: %w", err)
	}

	e.logger.Debug("scan started", "dir", root, "recursive", recursive, "extensions", snapshot.String())
	outcome, err := e.tool.Invoke(script)
	if err != nil {
		return nil, err
	}
	if !outcome.Succeeded() {
		return nil, &ScanFailedError{ExitCode: outcome.ExitCode, Stderr: outcome.Stderr}
	}

	records, err := ParseRecords(outcome.Stdout)
	if err != nil {
		return nil, err
	}
	if err := checkAllowed(records, snapshot); err != nil {
		return nil, err
	}
	SortRecords(records)

	e.logger.Debug("scan finished", "dir", root, "records", len(records))
	return &ScanResult{
		Dir:       root,
		Recursive: recursive,
		Allowlist: snapshot,
		Records:   records,
		Outcome:   outcome,
	}, nil
}
