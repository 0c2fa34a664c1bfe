package database

import (
	"context"
	"fmt"

	sqldb "github.com/choplin/unblockpreview/internal/database/sqlc"
)

// AllowlistRepository stores the enabled extensions, one row per extension.
// Values are expected to be normalized by the caller.
type AllowlistRepository struct {
	ctx *Context
}

func NewAllowlistRepository(dbCtx *Context) *AllowlistRepository {
	return &AllowlistRepository{ctx: dbCtx}
}

// List returns the stored extensions in ascending order.
func (r *AllowlistRepository) List(ctx context.Context) ([]string, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrNoDatabase
	}
	exts, err := queries.ListAllowlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list allowlist: %w", err)
	}
	return exts, nil
}

// Add inserts ext and reports whether it was not already present.
func (r *AllowlistRepository) Add(ctx context.Context, ext string) (bool, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return false, ErrNoDatabase
	}
	affected, err := queries.InsertAllowlistExt(ctx, ext)
	if err != nil {
		return false, fmt.Errorf("failed to add %s: %w", ext, err)
	}
	return affected > 0, nil
}

// Remove deletes ext and reports whether it was present.
func (r *AllowlistRepository) Remove(ctx context.Context, ext string) (bool, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return false, ErrNoDatabase
	}
	affected, err := queries.DeleteAllowlistExt(ctx, ext)
	if err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", ext, err)
	}
	return affected > 0, nil
}

// Replace swaps the stored extensions for exts in a single transaction.
func (r *AllowlistRepository) Replace(ctx context.Context, exts []string) error {
	return WithTx(ctx, r.ctx, func(q *sqldb.Queries) error {
		if err := q.DeleteAllAllowlist(ctx); err != nil {
			return fmt.Errorf("failed to clear allowlist: %w", err)
		}
		for _, ext := range exts {
			if _, err := q.InsertAllowlistExt(ctx, ext); err != nil {
				return fmt.Errorf("failed to add %s: %w", ext, err)
			}
		}
		return nil
	})
}
