package extract

import (
	"strings"
	"sync"
)

type hostRule struct {
	pattern string
	site    SiteID
}

// Registry maps page URLs to site adapters
type Registry struct {
	mu       sync.RWMutex
	rules    []hostRule
	adapters map[SiteID]Adapter
}

// NewRegistry returns a registry holding the built-in chat sites
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[SiteID]Adapter)}

	r.Register(SelectorAdapter(SiteOpenAI,
		`[data-message-author-role="user"]`,
		`[data-message-author-role="assistant"]`,
	), "chat.openai.com", "chatgpt.com")
	r.Register(SelectorAdapter(SiteClaude,
		".human-message-content",
		".assistant-message-content",
	), "claude.ai")
	r.Register(SelectorAdapter(SiteGemini,
		".user-query",
		".model-response",
	), "gemini.google.com")
	r.Register(SelectorAdapter(SiteXAI,
		".user-message",
		".ai-message",
	), "x.ai")
	r.Register(SelectorAdapter(SiteDeepSeek,
		".user-message",
		".assistant-message",
	), "deepseek.com")

	return r
}

// Register adds or replaces the adapter for a.Site. Host patterns are
// matched as substrings of the page URL, in registration order.
func (r *Registry) Register(a Adapter, hostPatterns ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[a.Site] = a
	for _, p := range hostPatterns {
		r.rules = append(r.rules, hostRule{pattern: p, site: a.Site})
	}
}

// Detect returns the site for a page URL, or SiteUnsupported
func (r *Registry) Detect(pageURL string) SiteID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if strings.Contains(pageURL, rule.pattern) {
			return rule.site
		}
	}
	return SiteUnsupported
}

// Lookup returns the adapter for site, or Unsupported
func (r *Registry) Lookup(site SiteID) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.adapters[site]; ok {
		return a
	}
	return Unsupported
}

// ForURL is Lookup(Detect(pageURL))
func (r *Registry) ForURL(pageURL string) Adapter {
	return r.Lookup(r.Detect(pageURL))
}

// Sites lists the registered site ids
func (r *Registry) Sites() []SiteID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[SiteID]bool)
	var out []SiteID
	for _, rule := range r.rules {
		if !seen[rule.site] {
			seen[rule.site] = true
			out = append(out, rule.site)
		}
	}
	return out
}
