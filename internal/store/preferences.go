package store

import (
	"context"
	"fmt"

	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/storage"
)

// GetPreferences returns the current preferences, or the zero record if none were saved
func (s *Store) GetPreferences(ctx context.Context) (*domain.Preferences, error) {
	defer s.lock(domain.KeyPreferences)()

	prefs, err := s.loadPreferences(ctx)
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpdatePreferences shallow-merges patch over the current preferences
func (s *Store) UpdatePreferences(ctx context.Context, patch domain.Patch) (*domain.Preferences, error) {
	defer s.lock(domain.KeyPreferences)()

	current, err := s.loadPreferences(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := mergePatch(current, patch)
	if err != nil {
		return nil, err
	}
	if err := storage.SaveJSON(ctx, s.backend, domain.KeyPreferences, updated); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}
	return &updated, nil
}

func (s *Store) loadPreferences(ctx context.Context) (domain.Preferences, error) {
	prefs, _, err := storage.LoadJSON[domain.Preferences](ctx, s.backend, domain.KeyPreferences)
	if err != nil {
		return prefs, fmt.Errorf("load preferences: %w", err)
	}
	return prefs, nil
}
