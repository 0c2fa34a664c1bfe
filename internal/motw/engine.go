// Package motw finds files carrying the Mark of the Web and removes it, by
// driving PowerShell through the scan and unblock scripts.
package motw

import (
	"log/slog"

	"github.com/choplin/unblockpreview/internal/powershell"
)

// Invoker runs a single script and returns its captured outcome.
type Invoker interface {
	Invoke(script string) (powershell.Outcome, error)
}

// Engine runs the scan and unblock pipelines. It holds no result state; each
// call issues exactly one invocation.
type Engine struct {
	tool   Invoker
	logger *slog.Logger
}

// NewEngine returns an Engine that uses tool for every invocation.
func NewEngine(tool Invoker, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		tool:   tool,
		logger: logger.With("component", "motw"),
	}
}
