package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/pbaille/promptvault/internal/capture"
	"github.com/pbaille/promptvault/internal/config"
	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/export"
	"github.com/pbaille/promptvault/internal/extract"
	"github.com/pbaille/promptvault/internal/fetcher"
	"github.com/pbaille/promptvault/internal/logger"
	"github.com/pbaille/promptvault/internal/router"
	"github.com/pbaille/promptvault/internal/storage"
	"github.com/pbaille/promptvault/internal/store"
)

// app holds the components a command needs
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	flush  func()
	store  *store.Store
	router *router.Router
}

func openApp(ctx context.Context, g *globalFlags) (*app, error) {
	cfg, err := config.LoadConfig(g.envFile)
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	if g.backend != "" {
		cfg.Backend = g.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, flush, err := logger.New(cfg.Logger())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		flush()
		return nil, err
	}

	s, err := store.New(ctx, backend, store.WithLogger(log))
	if err != nil {
		backend.Close()
		flush()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		log:    log,
		flush:  flush,
		store:  s,
		router: router.New(s, log),
	}, nil
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		return storage.DialRedis(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisPrefix)
	case config.BackendMemory:
		return storage.NewMemory(), nil
	default:
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		return storage.NewSQLite(cfg.DBPath)
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
	a.flush()
}

func (a *app) capturer() *capture.Capturer {
	return capture.New(extract.NewRegistry(), a.router, fetcher.New(a.cfg.FetchTimeout), a.log)
}

func (a *app) exporter() *export.Exporter {
	return export.New(a.store, a.log)
}

// call sends req through the router and turns a failed response into an error
func (a *app) call(ctx context.Context, req router.Request) (router.Response, error) {
	resp := a.router.Handle(ctx, req)
	if !resp.Success {
		return resp, errors.New(resp.Message)
	}
	return resp, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %s", s)
	}
	return id, nil
}

// resolveFolder accepts a folder id or a case-insensitive name
func resolveFolder(folders []domain.Folder, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, f := range folders {
			if f.ID == id {
				return id, nil
			}
		}
	}
	for _, f := range folders {
		if strings.EqualFold(f.Name, ref) {
			return f.ID, nil
		}
	}
	return 0, fmt.Errorf("folder not found: %s", ref)
}

// resolveTags accepts tag ids or case-insensitive names
func resolveTags(tags []domain.Tag, refs []string) ([]int64, error) {
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		id, err := resolveTag(tags, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func resolveTag(tags []domain.Tag, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, t := range tags {
			if t.ID == id {
				return id, nil
			}
		}
	}
	for _, t := range tags {
		if strings.EqualFold(t.Name, ref) {
			return t.ID, nil
		}
	}
	return 0, fmt.Errorf("tag not found: %s", ref)
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func jsonRaw(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return raw, nil
}
