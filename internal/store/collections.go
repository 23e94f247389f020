package store

import (
	"context"

	"github.com/pbaille/promptvault/internal/domain"
	"go.uber.org/zap"
)

// CreateFolder adds a folder with the next free id
func (s *Store) CreateFolder(ctx context.Context, name string) (*domain.Folder, error) {
	defer s.lock(domain.KeyFolders)()
	return s.createFolder(ctx, name)
}

func (s *Store) createFolder(ctx context.Context, name string) (*domain.Folder, error) {
	folders, err := loadList[domain.Folder](ctx, s.backend, domain.KeyFolders)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(folders))
	for i, f := range folders {
		ids[i] = f.ID
	}

	f := domain.Folder{ID: domain.NextID(ids), Name: name}
	folders = append(folders, f)
	if err := s.saveAll(ctx, map[string]any{domain.KeyFolders: folders}); err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFolders returns every folder
func (s *Store) ListFolders(ctx context.Context) ([]domain.Folder, error) {
	defer s.lock(domain.KeyFolders)()
	return loadList[domain.Folder](ctx, s.backend, domain.KeyFolders)
}

// GetOrCreateFolder finds a folder by exact name or creates it
func (s *Store) GetOrCreateFolder(ctx context.Context, name string) (*domain.Folder, bool, error) {
	defer s.lock(domain.KeyFolders)()

	folders, err := loadList[domain.Folder](ctx, s.backend, domain.KeyFolders)
	if err != nil {
		return nil, false, err
	}
	for i := range folders {
		if folders[i].Name == name {
			return &folders[i], false, nil
		}
	}

	f, err := s.createFolder(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

// DeleteFolder removes a folder and unfiles every prompt that was in it.
// Both collections are written together.
func (s *Store) DeleteFolder(ctx context.Context, id int64) error {
	defer s.lock(domain.KeyPrompts, domain.KeyFolders)()

	folders, err := loadList[domain.Folder](ctx, s.backend, domain.KeyFolders)
	if err != nil {
		return err
	}

	kept := folders[:0]
	for _, f := range folders {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(folders) {
		return &NotFoundError{Kind: "folder", ID: id}
	}

	prompts, err := loadList[domain.Prompt](ctx, s.backend, domain.KeyPrompts)
	if err != nil {
		return err
	}
	unfiled := 0
	for i := range prompts {
		if prompts[i].FolderID != nil && *prompts[i].FolderID == id {
			prompts[i].FolderID = nil
			unfiled++
		}
	}

	values := map[string]any{domain.KeyFolders: kept}
	if unfiled > 0 {
		values[domain.KeyPrompts] = prompts
	}
	if err := s.saveAll(ctx, values); err != nil {
		return err
	}

	s.log.Debug("folder deleted", zap.Int64("id", id), zap.Int("unfiled", unfiled))
	return nil
}

// CreateTag adds a tag with the next free id. An empty color gets the default.
func (s *Store) CreateTag(ctx context.Context, name, color string) (*domain.Tag, error) {
	defer s.lock(domain.KeyTags)()
	return s.createTag(ctx, name, color)
}

func (s *Store) createTag(ctx context.Context, name, color string) (*domain.Tag, error) {
	tags, err := loadList[domain.Tag](ctx, s.backend, domain.KeyTags)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	if color == "" {
		color = domain.DefaultTagColor
	}

	t := domain.Tag{ID: domain.NextID(ids), Name: name, Color: color}
	tags = append(tags, t)
	if err := s.saveAll(ctx, map[string]any{domain.KeyTags: tags}); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTags returns every tag
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	defer s.lock(domain.KeyTags)()
	return loadList[domain.Tag](ctx, s.backend, domain.KeyTags)
}

// GetOrCreateTag finds a tag by exact name or creates it with color
func (s *Store) GetOrCreateTag(ctx context.Context, name, color string) (*domain.Tag, bool, error) {
	defer s.lock(domain.KeyTags)()

	tags, err := loadList[domain.Tag](ctx, s.backend, domain.KeyTags)
	if err != nil {
		return nil, false, err
	}
	for i := range tags {
		if tags[i].Name == name {
			return &tags[i], false, nil
		}
	}

	t, err := s.createTag(ctx, name, color)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// DeleteTag removes a tag and strips its id from every prompt.
// Both collections are written together.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	defer s.lock(domain.KeyPrompts, domain.KeyTags)()

	tags, err := loadList[domain.Tag](ctx, s.backend, domain.KeyTags)
	if err != nil {
		return err
	}

	kept := tags[:0]
	for _, t := range tags {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tags) {
		return &NotFoundError{Kind: "tag", ID: id}
	}

	prompts, err := loadList[domain.Prompt](ctx, s.backend, domain.KeyPrompts)
	if err != nil {
		return err
	}
	scrubbed := 0
	for i := range prompts {
		if !prompts[i].HasTag(id) {
			continue
		}
		ids := make([]int64, 0, len(prompts[i].TagIDs)-1)
		for _, t := range prompts[i].TagIDs {
			if t != id {
				ids = append(ids, t)
			}
		}
		prompts[i].TagIDs = ids
		scrubbed++
	}

	values := map[string]any{domain.KeyTags: kept}
	if scrubbed > 0 {
		values[domain.KeyPrompts] = prompts
	}
	if err := s.saveAll(ctx, values); err != nil {
		return err
	}

	s.log.Debug("tag deleted", zap.Int64("id", id), zap.Int("scrubbed", scrubbed))
	return nil
}
