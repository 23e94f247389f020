package domain

import (
	"encoding/json"
	"time"
	"unicode/utf8"
)

// Collection keys in persistent storage
const (
	KeyPrompts     = "prompts"
	KeyFolders     = "folders"
	KeyTags        = "tags"
	KeyPreferences = "preferences"
)

// SourceManual marks prompts authored by hand rather than captured
const SourceManual = "manual"

// DefaultTagColor is used when a tag is created without a color
const DefaultTagColor = "#6B7280"

// titleLength is the number of characters kept when deriving a title
const titleLength = 50

// Prompt is a captured or manually authored prompt/response pair
type Prompt struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	PromptText   string    `json:"promptText"`
	ResponseText string    `json:"responseText"`
	FolderID     *int64    `json:"folderId"`
	TagIDs       []int64   `json:"tagIds"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasTag reports whether the prompt carries the given tag
func (p Prompt) HasTag(id int64) bool {
	for _, t := range p.TagIDs {
		if t == id {
			return true
		}
	}
	return false
}

// NewPrompt is the caller-supplied data for creating a prompt.
// Zero values are filled in by the store.
type NewPrompt struct {
	Title        string     `json:"title,omitempty"`
	PromptText   string     `json:"promptText" validate:"required_without=ResponseText"`
	ResponseText string     `json:"responseText,omitempty"`
	FolderID     *int64     `json:"folderId,omitempty"`
	TagIDs       []int64    `json:"tagIds,omitempty"`
	Source       string     `json:"source,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// Folder is a single-level named grouping of prompts
type Folder struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tag is a named, colored label
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Preferences is the singleton settings record
type Preferences struct {
	IncludeTags       bool       `json:"includeTags"`
	IncludeTimestamps bool       `json:"includeTimestamps"`
	ExportAsJSON      bool       `json:"exportAsJson"`
	LastBackup        *time.Time `json:"lastBackup"`
}

// Patch is a partial record: only the keys present are applied
type Patch map[string]json.RawMessage

// Set encodes v under key. It panics only if v cannot be marshaled,
// which for the plain values callers pass is a programming error.
func (p Patch) Set(key string, v any) Patch {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	p[key] = raw
	return p
}

// DeriveTitle builds a title from the first 50 characters of text,
// adding an ellipsis when the text was cut.
func DeriveTitle(text string) string {
	if utf8.RuneCountInString(text) <= titleLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:titleLength]) + "..."
}

// NextID returns max(ids)+1, or 1 for an empty collection
func NextID(ids []int64) int64 {
	var max int64
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// SeedFolders is written on first run only
func SeedFolders() []Folder {
	return []Folder{
		{ID: 1, Name: "Favorites"},
	}
}

// SeedTags is written on first run only
func SeedTags() []Tag {
	return []Tag{
		{ID: 1, Name: "Important", Color: "#EF4444"},
		{ID: 2, Name: "Work", Color: "#10B981"},
		{ID: 3, Name: "Personal", Color: "#4A7BF7"},
	}
}

// SeedPreferences is written on first run only
func SeedPreferences() Preferences {
	return Preferences{
		IncludeTags:       true,
		IncludeTimestamps: true,
		ExportAsJSON:      true,
	}
}
