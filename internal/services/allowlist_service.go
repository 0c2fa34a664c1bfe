package services

import (
	"context"
	"fmt"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/database"
)

// AllowlistService persists the allowlist between runs. Every mutation
// normalizes its input through the allowlist package first.
type AllowlistService struct {
	repo *database.AllowlistRepository
}

func NewAllowlistService(ctx *database.Context) *AllowlistService {
	return &AllowlistService{repo: database.NewAllowlistRepository(ctx)}
}

// Load returns the stored allowlist. A fresh database holds the default set.
func (s *AllowlistService) Load(ctx context.Context) (allowlist.Set, error) {
	exts, err := s.repo.List(ctx)
	if err != nil {
		return allowlist.Set{}, err
	}
	set, err := allowlist.New(exts...)
	if err != nil {
		return allowlist.Set{}, fmt.Errorf("stored allowlist is invalid: %w", err)
	}
	return set, nil
}

// Add stores raw and returns the updated set.
func (s *AllowlistService) Add(ctx context.Context, raw string) (allowlist.Set, bool, error) {
	ext, err := allowlist.Normalize(raw)
	if err != nil {
		return allowlist.Set{}, false, err
	}
	added, err := s.repo.Add(ctx, ext)
	if err != nil {
		return allowlist.Set{}, false, err
	}
	set, err := s.Load(ctx)
	return set, added, err
}

// Remove deletes raw and returns the updated set.
func (s *AllowlistService) Remove(ctx context.Context, raw string) (allowlist.Set, bool, error) {
	ext, err := allowlist.Normalize(raw)
	if err != nil {
		return allowlist.Set{}, false, err
	}
	removed, err := s.repo.Remove(ctx, ext)
	if err != nil {
		return allowlist.Set{}, false, err
	}
	set, err := s.Load(ctx)
	return set, removed, err
}

// Save replaces the stored allowlist with set.
func (s *AllowlistService) Save(ctx context.Context, set allowlist.Set) error {
	return s.repo.Replace(ctx, set.Slice())
}

// SetOfficeFormats adds or removes the Office formats as a group.
func (s *AllowlistService) SetOfficeFormats(ctx context.Context, enabled bool) (allowlist.Set, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return allowlist.Set{}, err
	}
	next := allowlist.ToggleOfficeFormats(enabled, current)
	if next.Equal(current) {
		return current, nil
	}
	if err := s.Save(ctx, next); err != nil {
		return allowlist.Set{}, err
	}
	return next, nil
}

// Reset restores the default allowlist.
func (s *AllowlistService) Reset(ctx context.Context) (allowlist.Set, error) {
	def := allowlist.Default()
	if err := s.Save(ctx, def); err != nil {
		return allowlist.Set{}, err
	}
	return def, nil
}
