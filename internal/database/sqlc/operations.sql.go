package sqldb

import (
	"context"
	"database/sql"
)

const insertOperation = `INSERT INTO operations (
    id, kind, dir, recursive, dry_run, exit_code, item_count, error, started_at, finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type InsertOperationParams struct {
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

func (q *Queries) InsertOperation(ctx context.Context, arg InsertOperationParams) error {
	_, err := q.db.ExecContext(ctx, insertOperation,
		arg.ID,
		arg.Kind,
		arg.Dir,
		arg.Recursive,
		arg.DryRun,
		arg.ExitCode,
		arg.ItemCount,
		arg.Error,
		arg.StartedAt,
		arg.FinishedAt,
	)
	return err
}

const listOperations = `SELECT id, kind, dir, recursive, dry_run, exit_code, item_count, error, started_at, finished_at
FROM operations
ORDER BY started_at DESC, id
LIMIT ?`

func (q *Queries) ListOperations(ctx context.Context, limit int64) ([]Operation, error) {
	rows, err := q.db.QueryContext(ctx, listOperations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Operation
	for rows.Next() {
		var i Operation
		if err := rows.Scan(
			&i.ID,
			&i.Kind,
			&i.Dir,
			&i.Recursive,
			&i.DryRun,
			&i.ExitCode,
			&i.ItemCount,
			&i.Error,
			&i.StartedAt,
			&i.FinishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAllOperations = `DELETE FROM operations`

func (q *Queries) DeleteAllOperations(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllOperations)
	return err
}
