// Package store owns the prompt, folder, tag and preferences collections.
//
// Every operation loads the collections it needs, computes the new state and
// saves it while holding the lock of each collection involved, so two callers
// can never interleave between a read and the matching write.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is matched by every NotFoundError
	ErrNotFound = errors.New("not found")
	// ErrInvalid marks a patch that cannot be applied to the stored record
	ErrInvalid = errors.New("invalid data")
)

// NotFoundError names the missing entity
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// lockOrder fixes the acquisition order of collection locks
var lockOrder = map[string]int{
	domain.KeyPrompts:     0,
	domain.KeyFolders:     1,
	domain.KeyTags:        2,
	domain.KeyPreferences: 3,
}

// Store is the single owner of persisted state
type Store struct {
	backend storage.Backend
	log     *zap.Logger
	now     func() time.Time
	locks   map[string]*sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for store events
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock replaces time.Now, for deterministic timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over backend and seeds any collection that is missing
func New(ctx context.Context, backend storage.Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		log:     zap.NewNop(),
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex, len(lockOrder)),
	}
	for key := range lockOrder {
		s.locks[key] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// init writes seed values for absent keys only; existing data is never reset
func (s *Store) init(ctx context.Context) error {
	defer s.lock(domain.KeyPrompts, domain.KeyFolders, domain.KeyTags, domain.KeyPreferences)()

	seeds := map[string]any{
		domain.KeyPrompts:     []domain.Prompt{},
		domain.KeyFolders:     domain.SeedFolders(),
		domain.KeyTags:        domain.SeedTags(),
		domain.KeyPreferences: domain.SeedPreferences(),
	}

	missing := make(map[string][]byte)
	for key, seed := range seeds {
		_, err := s.backend.Load(ctx, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("check %s: %w", key, err)
		}
		raw, err := json.Marshal(seed)
		if err != nil {
			return fmt.Errorf("encode seed %s: %w", key, err)
		}
		missing[key] = raw
	}

	if len(missing) == 0 {
		return nil
	}
	if err := s.backend.SaveAll(ctx, missing); err != nil {
		return fmt.Errorf("seed collections: %w", err)
	}
	for key := range missing {
		s.log.Info("seeded collection", zap.String("key", key))
	}
	return nil
}

// lock acquires the named collection locks in canonical order and returns
// the matching unlock function.
func (s *Store) lock(keys ...string) func() {
	sorted := append([]string(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool {
		return lockOrder[sorted[i]] < lockOrder[sorted[j]]
	})
	for _, k := range sorted {
		s.locks[k].Lock()
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			s.locks[sorted[i]].Unlock()
		}
	}
}

// loadList reads a collection, treating an absent key as empty
func loadList[T any](ctx context.Context, b storage.Backend, key string) ([]T, error) {
	items, _, err := storage.LoadJSON[[]T](ctx, b, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// saveAll encodes and writes several collections at once
func (s *Store) saveAll(ctx context.Context, values map[string]any) error {
	encoded := make(map[string][]byte, len(values))
	for key, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		encoded[key] = raw
	}
	if err := s.backend.SaveAll(ctx, encoded); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// mergePatch applies patch as a shallow merge over the JSON form of current
func mergePatch[T any](current T, patch domain.Patch) (T, error) {
	var out T

	raw, err := json.Marshal(current)
	if err != nil {
		return out, fmt.Errorf("encode record: %w", err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	for k, v := range patch {
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("encode merged record: %w", err)
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return out, nil
}

// Snapshot is a consistent view of every collection
type Snapshot struct {
	Prompts     []domain.Prompt
	Folders     []domain.Folder
	Tags        []domain.Tag
	Preferences domain.Preferences
}

// Snapshot loads all collections under all locks
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	defer s.lock(domain.KeyPrompts, domain.KeyFolders, domain.KeyTags, domain.KeyPreferences)()

	prompts, err := loadList[domain.Prompt](ctx, s.backend, domain.KeyPrompts)
	if err != nil {
		return nil, err
	}
	folders, err := loadList[domain.Folder](ctx, s.backend, domain.KeyFolders)
	if err != nil {
		return nil, err
	}
	tags, err := loadList[domain.Tag](ctx, s.backend, domain.KeyTags)
	if err != nil {
		return nil, err
	}
	prefs, err := s.loadPreferences(ctx)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Prompts:     prompts,
		Folders:     folders,
		Tags:        tags,
		Preferences: prefs,
	}, nil
}
