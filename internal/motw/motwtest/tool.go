// Package motwtest provides an in-memory stand-in for PowerShell that
// understands the scan and unblock scripts, for use in tests.
package motwtest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/choplin/unblockpreview/internal/motw"
	"github.com/choplin/unblockpreview/internal/powershell"
)

// Tool walks the real filesystem but keeps the Zone.Identifier marks in memory.
type Tool struct {
	// ExitCode and Stderr, when set, are returned instead of running the script.
	ExitCode int
	Stderr   string
	// Err is returned as an invocation failure when non-nil.
	Err error
	// FailPaths makes the unblock script report a failure for these paths.
	FailPaths map[string]string
	// GarbleReport applies the unblock batch but replaces its JSON report with text.
	GarbleReport bool
	// BeforeInvoke runs at the start of every invocation.
	BeforeInvoke func(script string)

	mu      sync.Mutex
	marked  map[string]bool
	scripts []string
}

// New returns a Tool with no marked files.
func New() *Tool {
	return &Tool{marked: make(map[string]bool)}
}

// Mark attaches the Zone.Identifier mark to path.
func (t *Tool) Mark(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.marked[filepath.Clean(path)] = true
}

// Marked reports whether path carries the mark.
func (t *Tool) Marked(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.marked[filepath.Clean(path)]
}

// Scripts returns every script received so far.
func (t *Tool) Scripts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.scripts)
}

// Invocations returns the number of Invoke calls.
func (t *Tool) Invocations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.scripts)
}

// Invoke interprets a script produced by motw.ScanScript or motw.UnblockScript.
func (t *Tool) Invoke(script string) (powershell.Outcome, error) {
	if t.BeforeInvoke != nil {
		t.BeforeInvoke(script)
	}

	t.mu.Lock()
	t.scripts = append(t.scripts, script)
	t.mu.Unlock()

	if t.Err != nil {
		return powershell.Outcome{}, t.Err
	}
	if t.ExitCode != 0 {
		return powershell.Outcome{ExitCode: t.ExitCode, Stderr: t.Stderr}, nil
	}

	vars, err := parseAssignments(script)
	if err != nil {
		return powershell.Outcome{ExitCode: 1, Stderr: err.Error()}, nil
	}
	if strings.Contains(script, "Unblock-File") {
		return t.unblock(vars)
	}
	return t.scan(vars)
}

func (t *Tool) scan(vars map[string]value) (powershell.Outcome, error) {
	folder := vars["folder"].str
	recurse := vars["recurse"].boolean
	exts := vars["exts"].list

	var rows []motw.Record
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != folder && !recurse {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(d.Name())
		if !slices.Contains(exts, strings.ToLower(ext)) || !t.Marked(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rows = append(rows, motw.Record{
			FullName:      path,
			Name:          d.Name(),
			Ext:           ext,
			Length:        info.Size(),
			LastWriteTime: info.ModTime().Format(motw.TimeLayout),
		})
		return nil
	})
	if err != nil {
		return powershell.Outcome{ExitCode: 1, Stderr: err.Error()}, nil
	}

	// ConvertTo-Json emits nothing, a bare object or an array depending on count.
	var payload []byte
	switch len(rows) {
	case 0:
	case 1:
		payload, err = json.Marshal(rows[0])
	default:
		payload, err = json.Marshal(rows)
	}
	if err != nil {
		return powershell.Outcome{}, err
	}
	return powershell.Outcome{Stdout: string(payload) + "\n"}, nil
}

func (t *Tool) unblock(vars map[string]value) (powershell.Outcome, error) {
	dryRun := vars["dryRun"].boolean

	var stdout, stderr strings.Builder
	results := make([]motw.PathOutcome, 0, len(vars["paths"].list))
	for _, p := range vars["paths"].list {
		if msg, ok := t.FailPaths[p]; ok {
			fmt.Fprintf(&stderr, "Failed: %s -> %s\n", p, msg)
			results = append(results, motw.PathOutcome{Path: p, Status: motw.StatusFailed, Message: msg})
			continue
		}
		if _, err := os.Stat(p); err != nil {
			fmt.Fprintf(&stderr, "Failed: %s -> %v\n", p, err)
			results = append(results, motw.PathOutcome{Path: p, Status: motw.StatusFailed, Message: err.Error()})
			continue
		}
		if dryRun {
			fmt.Fprintf(&stdout, "What if: Performing the operation \"Unblock-File\" on target %q.\n", p)
			results = append(results, motw.PathOutcome{Path: p, Status: motw.StatusSimulated})
			continue
		}
		t.mu.Lock()
		delete(t.marked, filepath.Clean(p))
		t.mu.Unlock()
		results = append(results, motw.PathOutcome{Path: p, Status: motw.StatusUnblocked})
	}

	if t.GarbleReport {
		stdout.WriteString("report lost\n")
		return powershell.Outcome{Stdout: stdout.String(), Stderr: stderr.String()}, nil
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return powershell.Outcome{}, err
	}
	stdout.WriteString("\n")
	stdout.Write(payload)
	stdout.WriteString("\n")
	return powershell.Outcome{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
