// Package export writes and reads the portable JSON backup document.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/store"
)

// PromptRecord is a prompt with folder and tag ids resolved to names
type PromptRecord struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	PromptText   string     `json:"promptText"`
	ResponseText string     `json:"responseText"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	Folder       string     `json:"folder,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
}

// Document is the export file
type Document struct {
	Prompts    []PromptRecord  `json:"prompts"`
	Folders    []domain.Folder `json:"folders"`
	Tags       []domain.Tag    `json:"tags,omitempty"`
	ExportDate time.Time       `json:"exportDate"`
}

// Filename is the suggested name for an export taken at t
func Filename(t time.Time) string {
	return "prompt_vault_export_" + t.UTC().Format("2006-01-02") + ".json"
}

// Build renders snap according to its preferences
func Build(snap *store.Snapshot, now time.Time) *Document {
	prefs := snap.Preferences

	folderNames := make(map[int64]string, len(snap.Folders))
	for _, f := range snap.Folders {
		folderNames[f.ID] = f.Name
	}
	tagNames := make(map[int64]string, len(snap.Tags))
	for _, t := range snap.Tags {
		tagNames[t.ID] = t.Name
	}

	doc := &Document{
		Prompts:    make([]PromptRecord, 0, len(snap.Prompts)),
		Folders:    snap.Folders,
		ExportDate: now.UTC(),
	}
	if prefs.IncludeTags {
		doc.Tags = snap.Tags
	}

	for _, p := range snap.Prompts {
		rec := PromptRecord{
			ID:           p.ID,
			Title:        p.Title,
			PromptText:   p.PromptText,
			ResponseText: p.ResponseText,
		}
		if prefs.IncludeTimestamps {
			created := p.CreatedAt
			rec.CreatedAt = &created
		}
		if p.FolderID != nil {
			rec.Folder = folderNames[*p.FolderID]
		}
		if prefs.IncludeTags {
			for _, id := range p.TagIDs {
				if name, ok := tagNames[id]; ok {
					rec.Tags = append(rec.Tags, name)
				}
			}
		}
		doc.Prompts = append(doc.Prompts, rec)
	}
	return doc
}

// Exporter reads and writes documents against a store
type Exporter struct {
	store *store.Store
	log   *zap.Logger
	now   func() time.Time
}

// New creates an Exporter
func New(s *store.Store, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{store: s, log: log, now: time.Now}
}

// Export builds a document from the current state and records lastBackup
func (e *Exporter) Export(ctx context.Context) (*Document, error) {
	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	doc := Build(snap, e.now())

	if _, err := e.store.UpdatePreferences(ctx, domain.Patch{}.Set("lastBackup", doc.ExportDate)); err != nil {
		return nil, fmt.Errorf("record backup: %w", err)
	}

	e.log.Info("exported",
		zap.Int("prompts", len(doc.Prompts)),
		zap.Time("export_date", doc.ExportDate),
	)
	return doc, nil
}

// WriteTo exports to w as indented JSON
func (e *Exporter) WriteTo(ctx context.Context, w io.Writer) (*Document, error) {
	doc, err := e.Export(ctx)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}
	return doc, nil
}
