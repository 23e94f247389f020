package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/pbaille/promptvault/internal/domain"
)

// DefaultDebounce is how long a file must stay quiet before it is captured
const DefaultDebounce = 500 * time.Millisecond

// Watcher captures saved chat pages as they land in a directory
type Watcher struct {
	capturer *Capturer
	dir      string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger

	// OnCapture, when set, is called after every capture attempt
	OnCapture func(path string, p *domain.Prompt, err error)
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WithDebounce overrides DefaultDebounce
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher starts watching dir. Events are processed by Run.
func NewWatcher(c *Capturer, dir string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		capturer: c,
		dir:      dir,
		watcher:  fw,
		debounce: DefaultDebounce,
		log:      c.log.With(zap.String("dir", dir)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes events until ctx is cancelled, then closes the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	w.log.Info("watching for saved pages")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if isPage(event.Name) && (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				pending[event.Name] = time.Now()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.debounce {
					continue
				}
				delete(pending, path)
				w.captureFile(ctx, path)
			}
		}
	}
}

func (w *Watcher) captureFile(ctx context.Context, path string) {
	p, err := w.capture(ctx, path)
	if err != nil {
		w.log.Warn("skipped page", zap.String("file", filepath.Base(path)), zap.Error(err))
	}
	if w.OnCapture != nil {
		w.OnCapture(path, p, err)
	}
}

func (w *Watcher) capture(ctx context.Context, path string) (*domain.Prompt, error) {
	page, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	src := SourceURL(page)
	if src == "" {
		return nil, fmt.Errorf("%w: no source URL in %s", ErrUnsupportedSite, filepath.Base(path))
	}
	return w.capturer.Capture(ctx, src, bytes.NewReader(page))
}

func isPage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}
