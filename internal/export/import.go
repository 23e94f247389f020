package export

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/pbaille/promptvault/internal/domain"
)

// SourceImport marks prompts created by Import
const SourceImport = "import"

// ErrInvalidDocument is returned when the input does not match the schema
var ErrInvalidDocument = errors.New("invalid export document")

//go:embed schema.json
var schemaJSON string

var documentSchema = gojsonschema.NewStringLoader(schemaJSON)

// ImportResult counts what Import created
type ImportResult struct {
	Prompts int `json:"prompts"`
	Folders int `json:"folders"`
	Tags    int `json:"tags"`
}

// Validate checks raw against the document schema
func Validate(raw []byte) error {
	result, err := gojsonschema.Validate(documentSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}
	return nil
}

// Import reads a document from r and adds its contents to the store.
// Folders and tags are matched by name; prompts always get new ids.
func (e *Exporter) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	res := &ImportResult{}
	folders := make(map[string]int64)
	tags := make(map[string]int64)
	colors := make(map[string]string, len(doc.Tags))
	for _, t := range doc.Tags {
		colors[t.Name] = t.Color
	}

	folderID := func(name string) (int64, error) {
		if id, ok := folders[name]; ok {
			return id, nil
		}
		f, created, err := e.store.GetOrCreateFolder(ctx, name)
		if err != nil {
			return 0, err
		}
		if created {
			res.Folders++
		}
		folders[name] = f.ID
		return f.ID, nil
	}
	tagID := func(name string) (int64, error) {
		if id, ok := tags[name]; ok {
			return id, nil
		}
		t, created, err := e.store.GetOrCreateTag(ctx, name, colors[name])
		if err != nil {
			return 0, err
		}
		if created {
			res.Tags++
		}
		tags[name] = t.ID
		return t.ID, nil
	}

	for _, f := range doc.Folders {
		if _, err := folderID(f.Name); err != nil {
			return res, fmt.Errorf("import folder %q: %w", f.Name, err)
		}
	}
	for _, t := range doc.Tags {
		if _, err := tagID(t.Name); err != nil {
			return res, fmt.Errorf("import tag %q: %w", t.Name, err)
		}
	}

	for _, rec := range doc.Prompts {
		in := domain.NewPrompt{
			Title:        rec.Title,
			PromptText:   rec.PromptText,
			ResponseText: rec.ResponseText,
			TagIDs:       []int64{},
			Source:       SourceImport,
			CreatedAt:    rec.CreatedAt,
		}
		if rec.Folder != "" {
			id, err := folderID(rec.Folder)
			if err != nil {
				return res, fmt.Errorf("import folder %q: %w", rec.Folder, err)
			}
			in.FolderID = &id
		}
		for _, name := range rec.Tags {
			id, err := tagID(name)
			if err != nil {
				return res, fmt.Errorf("import tag %q: %w", name, err)
			}
			in.TagIDs = append(in.TagIDs, id)
		}

		if _, err := e.store.CreatePrompt(ctx, in); err != nil {
			return res, fmt.Errorf("import prompt %d: %w", rec.ID, err)
		}
		res.Prompts++
	}

	e.log.Info("imported",
		zap.Int("prompts", res.Prompts),
		zap.Int("folders", res.Folders),
		zap.Int("tags", res.Tags),
	)
	return res, nil
}
