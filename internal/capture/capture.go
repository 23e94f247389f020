// Package capture turns chat pages into saved prompts.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/extract"
	"github.com/pbaille/promptvault/internal/fetcher"
	"github.com/pbaille/promptvault/internal/router"
)

var (
	// ErrUnsupportedSite is returned for pages no adapter handles
	ErrUnsupportedSite = errors.New("unsupported site")
	// ErrNothingCaptured is returned when the page has no prompt or response
	ErrNothingCaptured = errors.New("nothing to capture on this page")
	// ErrSaveFailed wraps a failed savePrompt response
	ErrSaveFailed = errors.New("save prompt")
)

// PageFetcher retrieves a page by URL
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error)
}

// Capturer extracts the latest exchange from a page and saves it
type Capturer struct {
	registry *extract.Registry
	router   *router.Router
	fetcher  PageFetcher
	log      *zap.Logger
	now      func() time.Time
}

// New creates a Capturer. f may be nil when only Capture is used.
func New(reg *extract.Registry, rt *router.Router, f PageFetcher, log *zap.Logger) *Capturer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Capturer{
		registry: reg,
		router:   rt,
		fetcher:  f,
		log:      log,
		now:      time.Now,
	}
}

// Capture extracts from the HTML in r, read as the page at pageURL
func (c *Capturer) Capture(ctx context.Context, pageURL string, r io.Reader) (*domain.Prompt, error) {
	site := c.registry.Detect(pageURL)
	adapter := c.registry.Lookup(site)
	if !adapter.Supported() {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedSite, pageURL, c.supported())
	}

	doc, err := extract.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	res := adapter.Extract(doc)
	if res.Empty() {
		return nil, ErrNothingCaptured
	}

	created := c.now().UTC()
	data, err := json.Marshal(domain.NewPrompt{
		PromptText:   res.Prompt,
		ResponseText: res.Response,
		Source:       sourceOf(pageURL, site),
		CreatedAt:    &created,
	})
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}

	resp := c.router.Handle(ctx, router.Request{Action: router.ActionSavePrompt, Data: data})
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrSaveFailed, resp.Message)
	}

	c.log.Info("captured prompt",
		zap.Int64("id", resp.Prompt.ID),
		zap.String("site", string(site)),
		zap.String("source", resp.Prompt.Source),
	)
	return resp.Prompt, nil
}

// CaptureURL fetches rawURL and captures it
func (c *Capturer) CaptureURL(ctx context.Context, rawURL string) (*domain.Prompt, error) {
	if c.fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}
	page, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	return c.Capture(ctx, page.URL, bytes.NewReader(page.Body))
}

func (c *Capturer) supported() string {
	sites := c.registry.Sites()
	names := make([]string, len(sites))
	for i, site := range sites {
		names[i] = string(site)
	}
	return strings.Join(names, ", ")
}

// sourceOf is the page hostname, or the site id when the URL has no host
func sourceOf(pageURL string, site extract.SiteID) string {
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return string(site)
}
