package store

import (
	"context"

	"github.com/pbaille/promptvault/internal/domain"
	"go.uber.org/zap"
)

// CreatePrompt stores a new prompt, filling in id, title and defaults
func (s *Store) CreatePrompt(ctx context.Context, in domain.NewPrompt) (*domain.Prompt, error) {
	defer s.lock(domain.KeyPrompts)()

	prompts, err := loadList[domain.Prompt](ctx, s.backend, domain.KeyPrompts)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(prompts))
	for i, p := range prompts {
		ids[i] = p.ID
	}

	p := domain.Prompt{
		ID:           domain.NextID(ids),
		Title:        in.Title,
		PromptText:   in.PromptText,
		ResponseText: in.ResponseText,
		FolderID:     in.FolderID,
		TagIDs:       in.TagIDs,
		Source:       in.Source,
	}

	if p.Title == "" {
		text := in.PromptText
		if text == "" {
			text = in.ResponseText
		}
		p.Title = domain.DeriveTitle(text)
	}
	if p.FolderID != nil && *p.FolderID == 0 {
		p.FolderID = nil
	}
	if p.TagIDs == nil {
		p.TagIDs = []int64{}
	}
	if p.Source == "" {
		p.Source = domain.SourceManual
	}
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
		p.CreatedAt = *in.CreatedAt
	} else {
		p.CreatedAt = s.now().UTC()
	}

	prompts = append(prompts, p)
	if err := s.saveAll(ctx, map[string]any{domain.KeyPrompts: prompts}); err != nil {
		return nil, err
	}

	s.log.Debug("prompt created", zap.Int64("id", p.ID), zap.String("source", p.Source))
	return &p, nil
}

// ListPrompts returns every prompt in storage order
func (s *Store) ListPrompts(ctx context.Context) ([]domain.Prompt, error) {
	defer s.lock(domain.KeyPrompts)()
	return loadList[domain.Prompt](ctx, s.backend, domain.KeyPrompts)
}

// GetPrompt returns the prompt with the given id
func (s *Store) GetPrompt(ctx context.Context, id int64) (*domain.Prompt, error) {
	defer s.lock(domain.KeyPrompts)()

	prompts, err := loadList[domain.Prompt](ctx, s.backend, domain.KeyPrompts)
	if err != nil {
		return nil, err
	}
	for i := range prompts {
		if prompts[i].ID == id {
			return &prompts[i], nil
		}
	}
	return nil, &NotFoundError{Kind: "prompt", ID: id}
}

// UpdatePrompt merges patch over the stored prompt. The id never changes.
func (s *Store) UpdatePrompt(ctx context.Context, id int64, patch domain.Patch) (*domain.Prompt, error) {
	defer s.lock(domain.KeyPrompts)()

	prompts, err := loadList[domain.Prompt](ctx, s.backend, domain.KeyPrompts)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range prompts {
		if prompts[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, &NotFoundError{Kind: "prompt", ID: id}
	}

	updated, err := mergePatch(prompts[idx], patch)
	if err != nil {
		return nil, err
	}
	updated.ID = id
	if updated.TagIDs == nil {
		updated.TagIDs = []int64{}
	}
	if updated.FolderID != nil && *updated.FolderID == 0 {
		updated.FolderID = nil
	}
	if updated.CreatedAt.IsZero() {
		updated.CreatedAt = prompts[idx].CreatedAt
	}

	prompts[idx] = updated
	if err := s.saveAll(ctx, map[string]any{domain.KeyPrompts: prompts}); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletePrompt removes the prompt if present. Deleting a missing id succeeds.
func (s *Store) DeletePrompt(ctx context.Context, id int64) error {
	defer s.lock(domain.KeyPrompts)()

	prompts, err := loadList[domain.Prompt](ctx, s.backend, domain.KeyPrompts)
	if err != nil {
		return err
	}

	kept := prompts[:0]
	for _, p := range prompts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(prompts) {
		return nil
	}
	return s.saveAll(ctx, map[string]any{domain.KeyPrompts: kept})
}
