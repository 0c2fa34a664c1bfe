package database

import "time"

// OperationRecord mirrors a row of the operations table: one finished
// invocation of the external tool.
type OperationRecord struct {
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

// Duration returns how long the operation ran.
func (r OperationRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
