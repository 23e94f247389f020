package store

import (
	"sort"
	"strings"

	"github.com/pbaille/promptvault/internal/domain"
)

// Filter selects and orders prompts for display
type Filter struct {
	FolderID    *int64
	TagID       *int64
	Query       string
	OldestFirst bool
	Limit       int
}

// FilterPrompts returns the prompts matching f, newest first unless
// f.OldestFirst is set. The input slice is not modified.
func FilterPrompts(prompts []domain.Prompt, f Filter) []domain.Prompt {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]domain.Prompt, 0, len(prompts))
	for _, p := range prompts {
		if f.FolderID != nil && (p.FolderID == nil || *p.FolderID != *f.FolderID) {
			continue
		}
		if f.TagID != nil && !p.HasTag(*f.TagID) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Title), query) &&
			!strings.Contains(strings.ToLower(p.PromptText), query) {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if f.OldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// FolderCounts returns the number of prompts filed in each folder
func FolderCounts(prompts []domain.Prompt) map[int64]int {
	counts := make(map[int64]int)
	for _, p := range prompts {
		if p.FolderID != nil {
			counts[*p.FolderID]++
		}
	}
	return counts
}
