package services

import (
	"context"
	"fmt"

	"github.com/choplin/unblockpreview/internal/database"
	"github.com/choplin/unblockpreview/internal/session"
)

// DefaultHistoryLimit is the number of operations returned when no limit is given.
const DefaultHistoryLimit = 20

// HistoryService records session operations and lists them back.
type HistoryService struct {
	repo *database.OperationRepository
}

func NewHistoryService(ctx *database.Context) *HistoryService {
	return &HistoryService{repo: database.NewOperationRepository(ctx)}
}

var _ session.Recorder = (*HistoryService)(nil)

// RecordOperation implements session.Recorder.
func (s *HistoryService) RecordOperation(ctx context.Context, op session.Operation) error {
	return s.repo.Insert(ctx, database.OperationRecord{
		ID:         op.ID,
		Kind:       op.Kind,
		Dir:        op.Dir,
		Recursive:  op.Recursive,
		DryRun:     op.DryRun,
		ExitCode:   op.ExitCode,
		Count:      op.Count,
		Error:      op.Error,
		StartedAt:  op.StartedAt,
		FinishedAt: op.FinishedAt,
	})
}

// List returns the newest operations first. A non-positive limit selects DefaultHistoryLimit.
func (s *HistoryService) List(ctx context.Context, limit int) ([]database.OperationRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	records, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return records, nil
}
