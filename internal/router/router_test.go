package router

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/storage"
	"github.com/pbaille/promptvault/internal/store"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	s, err := store.New(context.Background(), storage.NewMemory())
	require.NoError(t, err)
	return New(s, nil)
}

func encode(t *testing.T, resp Response) map[string]any {
	t.Helper()
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestSavePrompt(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	resp := r.Handle(ctx, Request{
		Action: ActionSavePrompt,
		Data:   json.RawMessage(`{"promptText":"Explain goroutines","responseText":"They are cheap threads","source":"claude.ai"}`),
	})
	require.True(t, resp.Success, resp.Message)
	require.NotNil(t, resp.Prompt)
	assert.Equal(t, int64(1), resp.Prompt.ID)
	assert.Equal(t, "Explain goroutines", resp.Prompt.Title)
	assert.Equal(t, "claude.ai", resp.Prompt.Source)
	assert.NotEmpty(t, resp.RequestID)
}

func TestSavePromptValidation(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing data", ``, "data is required"},
		{"null data", `null`, "data is required"},
		{"no text", `{"title":"empty"}`, "promptText is required when responseText is empty"},
		{"bad json", `{"promptText":1}`, "decode data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := r.Handle(ctx, Request{Action: ActionSavePrompt, Data: json.RawMessage(tt.data)})
			assert.False(t, resp.Success)
			assert.Equal(t, KindValidation, resp.Error)
			assert.Contains(t, resp.Message, tt.want)
		})
	}

	resp := r.Handle(ctx, Request{Action: ActionSavePrompt, Data: json.RawMessage(`{"responseText":"answer only"}`)})
	assert.True(t, resp.Success)
}

func TestPromptLifecycle(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	created := r.Handle(ctx, Request{Action: ActionSavePrompt, Data: json.RawMessage(`{"promptText":"original"}`)})
	require.True(t, created.Success)
	id := created.Prompt.ID

	updated := r.Handle(ctx, Request{
		Action: ActionUpdatePrompt,
		ID:     id,
		Prompt: domain.Patch{}.Set("title", "Renamed").Set("id", 99),
	})
	require.True(t, updated.Success, updated.Message)
	assert.Equal(t, "Renamed", updated.Prompt.Title)
	assert.Equal(t, id, updated.Prompt.ID)
	assert.Equal(t, "original", updated.Prompt.PromptText)

	got := r.Handle(ctx, Request{Action: ActionGetPrompt, ID: id})
	require.True(t, got.Success)
	assert.Equal(t, "Renamed", got.Prompt.Title)

	assert.True(t, r.Handle(ctx, Request{Action: ActionDeletePrompt, ID: id}).Success)
	assert.True(t, r.Handle(ctx, Request{Action: ActionDeletePrompt, ID: id}).Success)

	missing := r.Handle(ctx, Request{Action: ActionGetPrompt, ID: id})
	assert.False(t, missing.Success)
	assert.Equal(t, KindNotFound, missing.Error)
	assert.Equal(t, "Prompt not found", missing.Message)

	missing = r.Handle(ctx, Request{Action: ActionUpdatePrompt, ID: id, Prompt: domain.Patch{}.Set("title", "x")})
	assert.Equal(t, "Prompt not found", missing.Message)
}

func TestUpdatePromptInvalidPatch(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	created := r.Handle(ctx, Request{Action: ActionSavePrompt, Data: json.RawMessage(`{"promptText":"x"}`)})
	require.True(t, created.Success)

	resp := r.Handle(ctx, Request{
		Action: ActionUpdatePrompt,
		ID:     created.Prompt.ID,
		Prompt: domain.Patch{"tagIds": json.RawMessage(`"not a list"`)},
	})
	assert.False(t, resp.Success)
	assert.Equal(t, KindValidation, resp.Error)
}

func TestFoldersAndTags(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	folder := r.Handle(ctx, Request{Action: ActionCreateFolder, Name: "Work"})
	require.True(t, folder.Success)
	assert.Equal(t, domain.Folder{ID: 2, Name: "Work"}, *folder.Folder)

	tag := r.Handle(ctx, Request{Action: ActionCreateTag, Name: "Urgent", Color: "#000000"})
	require.True(t, tag.Success)
	assert.Equal(t, int64(4), tag.Tag.ID)

	plain := r.Handle(ctx, Request{Action: ActionCreateTag, Name: "Later"})
	require.True(t, plain.Success)
	assert.Equal(t, domain.DefaultTagColor, plain.Tag.Color)

	folders := r.Handle(ctx, Request{Action: ActionGetFolders})
	assert.Len(t, folders.Folders, 2)
	tags := r.Handle(ctx, Request{Action: ActionGetTags})
	assert.Len(t, tags.Tags, 5)

	assert.True(t, r.Handle(ctx, Request{Action: ActionDeleteFolder, ID: 2}).Success)
	gone := r.Handle(ctx, Request{Action: ActionDeleteFolder, ID: 2})
	assert.Equal(t, "Folder not found", gone.Message)

	assert.True(t, r.Handle(ctx, Request{Action: ActionDeleteTag, ID: 4}).Success)
	gone = r.Handle(ctx, Request{Action: ActionDeleteTag, ID: 4})
	assert.Equal(t, KindNotFound, gone.Error)
	assert.Equal(t, "Tag not found", gone.Message)
}

func TestCreateValidation(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	resp := r.Handle(ctx, Request{Action: ActionCreateFolder})
	assert.Equal(t, KindValidation, resp.Error)
	assert.Contains(t, resp.Message, "name is required")

	resp = r.Handle(ctx, Request{Action: ActionCreateTag, Name: "x", Color: "red"})
	assert.Equal(t, KindValidation, resp.Error)
	assert.Contains(t, resp.Message, "color must be a hex color")
}

func TestPreferences(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	resp := r.Handle(ctx, Request{
		Action:      ActionUpdatePreferences,
		Preferences: domain.Patch{}.Set("includeTags", false),
	})
	require.True(t, resp.Success)
	assert.False(t, resp.Preferences.IncludeTags)
	assert.True(t, resp.Preferences.IncludeTimestamps)

	got := r.Handle(ctx, Request{Action: ActionGetPreferences})
	assert.Equal(t, resp.Preferences, got.Preferences)
}

func TestUnknownAction(t *testing.T) {
	r := newTestRouter(t)

	resp := r.Handle(context.Background(), Request{Action: "insertPrompt", RequestID: "req-1"})
	assert.False(t, resp.Success)
	assert.Equal(t, KindUnknownAction, resp.Error)
	assert.Equal(t, "unknown action: insertPrompt", resp.Message)
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestResponseEncoding(t *testing.T) {
	r := newTestRouter(t)

	out := encode(t, r.Handle(context.Background(), Request{Action: ActionGetPrompts, RequestID: "abc"}))
	assert.Equal(t, true, out["success"])
	assert.Equal(t, []any{}, out["prompts"])
	assert.Equal(t, "abc", out["requestId"])
	assert.NotContains(t, out, "message")
	assert.NotContains(t, out, "folders")

	out = encode(t, r.Handle(context.Background(), Request{Action: ActionGetPrompt, ID: 7}))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "not_found", out["error"])
	assert.Equal(t, "Prompt not found", out["message"])
}

func TestActions(t *testing.T) {
	assert.Len(t, newTestRouter(t).actions(), 13)
}
