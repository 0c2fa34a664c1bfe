package sqldb

import "database/sql"

type Operation struct {
	ID         string
	Kind       string
	Dir        sql.NullString
	Recursive  int64
	DryRun     int64
	ExitCode   int64
	ItemCount  int64
	Error      sql.NullString
	StartedAt  int64
	FinishedAt int64
}
