package database

import (
	"context"
	"fmt"

	sqldb "github.com/choplin/unblockpreview/internal/database/sqlc"
)

// OperationRepository stores the operation history.
type OperationRepository struct {
	ctx *Context
}

func NewOperationRepository(dbCtx *Context) *OperationRepository {
	return &OperationRepository{ctx: dbCtx}
}

// Insert appends rec to the history.
func (r *OperationRepository) Insert(ctx context.Context, rec OperationRecord) error {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return ErrNoDatabase
	}

	err := queries.InsertOperation(ctx, sqldb.InsertOperationParams{
		ID:         rec.ID,
		Kind:       rec.Kind,
		Dir:        nullString(rec.Dir),
		Recursive:  boolToInt64(rec.Recursive),
		DryRun:     boolToInt64(rec.DryRun),
		ExitCode:   int64(rec.ExitCode),
		ItemCount:  int64(rec.Count),
		Error:      nullString(rec.Error),
		StartedAt:  toMillis(rec.StartedAt),
		FinishedAt: toMillis(rec.FinishedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to insert operation %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns at most limit operations, newest first.
func (r *OperationRepository) Recent(ctx context.Context, limit int) ([]OperationRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrNoDatabase
	}

	rows, err := queries.ListOperations(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}

	result := make([]OperationRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, mapOperationRow(row))
	}
	return result, nil
}

func mapOperationRow(row sqldb.Operation) OperationRecord {
	return OperationRecord{
		ID:         row.ID,
		Kind:       row.Kind,
		Dir:        optionalString(row.Dir),
		Recursive:  row.Recursive != 0,
		DryRun:     row.DryRun != 0,
		ExitCode:   int(row.ExitCode),
		Count:      int(row.ItemCount),
		Error:      optionalString(row.Error),
		StartedAt:  fromMillis(row.StartedAt),
		FinishedAt: fromMillis(row.FinishedAt),
	}
}
