package session

import (
	"context"
	"time"
)

// Operation kinds stored in the history.
const (
	KindScan    = "scan"
	KindUnblock = "unblock"
)

// Operation describes one finished invocation of the external tool.
type Operation struct {
	ID         string
	Kind       string
	Dir        string
	Recursive  bool
	DryRun     bool
	ExitCode   int
	Count      int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder persists operations. Failures are logged and never fail the operation.
type Recorder interface {
	RecordOperation(ctx context.Context, op Operation) error
}
