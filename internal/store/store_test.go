package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	backend := storage.NewMemory()
	s, err := New(context.Background(), backend, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return s, backend
}

func int64p(v int64) *int64 { return &v }

// countingBackend records how many writes reach the wrapped backend
type countingBackend struct {
	storage.Backend
	mu     sync.Mutex
	writes int
}

func (b *countingBackend) Save(ctx context.Context, key string, value []byte) error {
	b.count()
	return b.Backend.Save(ctx, key, value)
}

func (b *countingBackend) SaveAll(ctx context.Context, values map[string][]byte) error {
	b.count()
	return b.Backend.SaveAll(ctx, values)
}

func (b *countingBackend) count() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
}

func (b *countingBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

func TestNewSeedsCollections(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	prompts, err := s.ListPrompts(ctx)
	require.NoError(t, err)
	assert.Empty(t, prompts)
	assert.NotNil(t, prompts)

	folders, err := s.ListFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Folder{{ID: 1, Name: "Favorites"}}, folders)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SeedTags(), tags)

	prefs, err := s.GetPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SeedPreferences(), *prefs)
}

func TestNewNeverResetsExistingData(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{Backend: storage.NewMemory()}
	require.NoError(t, backend.Save(ctx, domain.KeyFolders, []byte(`[{"id":7,"name":"Mine"}]`)))

	s, err := New(ctx, backend)
	require.NoError(t, err)

	folders, err := s.ListFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Folder{{ID: 7, Name: "Mine"}}, folders)

	// the other keys were still seeded
	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 3)

	// opening again changes nothing
	writes := backend.Writes()
	_, err = New(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, writes, backend.Writes())
}

func TestCreatePromptDefaults(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "Explain goroutines"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Explain goroutines", p.Title)
	assert.Nil(t, p.FolderID)
	assert.Equal(t, []int64{}, p.TagIDs)
	assert.Equal(t, domain.SourceManual, p.Source)
	assert.Equal(t, fixedNow, p.CreatedAt)
}

func TestCreatePromptKeepsSuppliedFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	p, err := s.CreatePrompt(ctx, domain.NewPrompt{
		Title:        "Custom",
		PromptText:   "text",
		ResponseText: "answer",
		FolderID:     int64p(1),
		TagIDs:       []int64{2, 1},
		Source:       "claude.ai",
		CreatedAt:    &created,
	})
	require.NoError(t, err)

	assert.Equal(t, "Custom", p.Title)
	assert.Equal(t, "answer", p.ResponseText)
	assert.Equal(t, int64p(1), p.FolderID)
	assert.Equal(t, []int64{2, 1}, p.TagIDs)
	assert.Equal(t, "claude.ai", p.Source)
	assert.Equal(t, created, p.CreatedAt)
}

func TestCreatePromptDerivesTitle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	long := "Write a haiku about the garbage collector pausing at night"
	p, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: long})
	require.NoError(t, err)
	assert.Equal(t, long[:50]+"...", p.Title)

	// response-only captures still get a title
	p, err = s.CreatePrompt(ctx, domain.NewPrompt{ResponseText: "Only the answer"})
	require.NoError(t, err)
	assert.Equal(t, "Only the answer", p.Title)
}

func TestCreatePromptTreatsZeroFolderAsUnfiled(t *testing.T) {
	s, _ := newTestStore(t)
	p, err := s.CreatePrompt(context.Background(), domain.NewPrompt{PromptText: "x", FolderID: int64p(0)})
	require.NoError(t, err)
	assert.Nil(t, p.FolderID)
}

func TestCreatePromptIDsIncreaseFromMax(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var last int64
	for i := 0; i < 5; i++ {
		p, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "p"})
		require.NoError(t, err)
		assert.Greater(t, p.ID, last)
		last = p.ID
	}

	// deleting a middle row does not cause reuse
	require.NoError(t, s.DeletePrompt(ctx, 3))
	p, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "p"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), p.ID)

	// deleting the highest row lets its id be computed again from the new max
	require.NoError(t, s.DeletePrompt(ctx, 6))
	p, err = s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "p"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), p.ID)
}

func TestConcurrentCreatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	const n = 50
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "concurrent"})
			if assert.NoError(t, err) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}

	prompts, err := s.ListPrompts(ctx)
	require.NoError(t, err)
	assert.Len(t, prompts, n)
}

func TestGetPromptNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetPrompt(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "prompt", nf.Kind)
	assert.Equal(t, int64(42), nf.ID)
}

func TestDeletePromptIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "bye"})
	require.NoError(t, err)

	require.NoError(t, s.DeletePrompt(ctx, p.ID))
	_, err = s.GetPrompt(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.DeletePrompt(ctx, p.ID))
	assert.NoError(t, s.DeletePrompt(ctx, 999))
}

func TestUpdatePromptChangesOnlyGivenFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	orig, err := s.CreatePrompt(ctx, domain.NewPrompt{
		PromptText:   "original text",
		ResponseText: "original answer",
		FolderID:     int64p(1),
		TagIDs:       []int64{1, 3},
		Source:       "chat.openai.com",
	})
	require.NoError(t, err)

	updated, err := s.UpdatePrompt(ctx, orig.ID, domain.Patch{}.Set("title", "X").Set("id", 99))
	require.NoError(t, err)

	want := *orig
	want.Title = "X"
	assert.Equal(t, want, *updated)

	stored, err := s.GetPrompt(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, want, *stored)

	_, err = s.GetPrompt(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePromptNullsFolder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "t", FolderID: int64p(1)})
	require.NoError(t, err)

	p, err = s.UpdatePrompt(ctx, p.ID, domain.Patch{"folderId": json.RawMessage(`null`)})
	require.NoError(t, err)
	assert.Nil(t, p.FolderID)
}

func TestUpdatePromptKeepsCreatedAtAndDropsFolderZero(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "t", FolderID: int64p(1)})
	require.NoError(t, err)

	p, err = s.UpdatePrompt(ctx, p.ID, domain.Patch{
		"createdAt": json.RawMessage(`null`),
		"folderId":  json.RawMessage(`0`),
	})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, p.CreatedAt)
	assert.Nil(t, p.FolderID)

	stored, err := s.GetPrompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, stored.CreatedAt)
	assert.Nil(t, stored.FolderID)
}

func TestUpdatePromptErrors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.UpdatePrompt(ctx, 1, domain.Patch{}.Set("title", "X"))
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "t"})
	require.NoError(t, err)

	_, err = s.UpdatePrompt(ctx, p.ID, domain.Patch{"title": json.RawMessage(`5`)})
	assert.ErrorIs(t, err, ErrInvalid)

	// the failed patch left the prompt alone
	got, err := s.GetPrompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestCreateFolderAfterSeed(t *testing.T) {
	s, _ := newTestStore(t)

	f, err := s.CreateFolder(context.Background(), "Work")
	require.NoError(t, err)
	assert.Equal(t, domain.Folder{ID: 2, Name: "Work"}, *f)
}

func TestCreateTagAfterSeed(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	tag, err := s.CreateTag(ctx, "Urgent", "#000000")
	require.NoError(t, err)
	assert.Equal(t, domain.Tag{ID: 4, Name: "Urgent", Color: "#000000"}, *tag)

	tag, err = s.CreateTag(ctx, "Plain", "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTagColor, tag.Color)
	assert.Equal(t, int64(5), tag.ID)
}

func TestDeleteFolderUnfilesPrompts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	work, err := s.CreateFolder(ctx, "Work")
	require.NoError(t, err)
	a, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "a", FolderID: &work.ID})
	require.NoError(t, err)
	b, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "b", FolderID: int64p(1)})
	require.NoError(t, err)

	require.NoError(t, s.DeleteFolder(ctx, work.ID))

	got, err := s.GetPrompt(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FolderID)

	got, err = s.GetPrompt(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64p(1), got.FolderID)

	err = s.DeleteFolder(ctx, work.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTagScrubsReferences(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, tagIDs := range [][]int64{{1, 2}, {2}, {3}, {2, 3, 1}} {
		_, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "p", TagIDs: tagIDs})
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteTag(ctx, 2))

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	live := make(map[int64]bool)
	for _, tag := range tags {
		live[tag.ID] = true
	}
	assert.False(t, live[2])

	prompts, err := s.ListPrompts(ctx)
	require.NoError(t, err)
	for _, p := range prompts {
		for _, id := range p.TagIDs {
			assert.True(t, live[id], "prompt %d references deleted tag %d", p.ID, id)
		}
	}
	// remaining ids keep their order
	assert.Equal(t, []int64{3, 1}, prompts[3].TagIDs)

	assert.ErrorIs(t, s.DeleteTag(ctx, 2), ErrNotFound)
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	f, created, err := s.GetOrCreateFolder(ctx, "Favorites")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), f.ID)

	f, created, err = s.GetOrCreateFolder(ctx, "Research")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(2), f.ID)

	tag, created, err := s.GetOrCreateTag(ctx, "Work", "#FFFFFF")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "#10B981", tag.Color)

	tag, created, err = s.GetOrCreateTag(ctx, "Go", "#00ADD8")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.Tag{ID: 4, Name: "Go", Color: "#00ADD8"}, *tag)
}

func TestPreferencesShallowMerge(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	backup := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	prefs, err := s.UpdatePreferences(ctx, domain.Patch{}.Set("includeTags", false).Set("lastBackup", backup))
	require.NoError(t, err)

	assert.False(t, prefs.IncludeTags)
	assert.True(t, prefs.IncludeTimestamps)
	assert.True(t, prefs.ExportAsJSON)
	require.NotNil(t, prefs.LastBackup)
	assert.True(t, backup.Equal(*prefs.LastBackup))

	got, err := s.GetPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, *prefs, *got)
}

func TestGetPreferencesUninitialized(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := &Store{backend: backend}

	prefs, err := s.loadPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Preferences{}, prefs)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.CreatePrompt(ctx, domain.NewPrompt{PromptText: "snap"})
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Prompts, 1)
	assert.Len(t, snap.Folders, 1)
	assert.Len(t, snap.Tags, 3)
	assert.True(t, snap.Preferences.IncludeTags)
}
