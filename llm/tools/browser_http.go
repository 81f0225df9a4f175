package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"cinema-agent/logger"

	"github.com/PuerkitoBio/goquery"
)

const (
	// MaxReadSize is the maximum response size (5MB)
	MaxReadSize = int64(5 * 1024 * 1024)

	httpFetchTimeout = 30 * time.Second
	userAgent        = "Mozilla/5.0 (compatible; cinema-agent/1.0)"
)

// ErrNeedsChrome is returned by engines that cannot interact with pages.
var ErrNeedsChrome = errors.New("this action needs the chrome browser engine (set BROWSER_ENGINE=chrome)")

// HTTPDoer is the subset of *http.Client used by the http engine.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPEngine fetches pages over plain HTTP. It cannot run scripts, so click
// and type are not supported.
type HTTPEngine struct {
	client HTTPDoer
	cache  PageCache

	mu      sync.Mutex
	current *Snapshot
}

// NewHTTPEngine returns an HTTPEngine. A nil client uses a default client with
// a 30s timeout; a nil cache disables caching.
func NewHTTPEngine(client HTTPDoer, cache PageCache) *HTTPEngine {
	if client == nil {
		client = &http.Client{Timeout: httpFetchTimeout}
	}
	return &HTTPEngine{client: client, cache: cache}
}

func (e *HTTPEngine) Name() string { return EngineHTTP }

// Navigate loads url, from the cache when possible.
func (e *HTTPEngine) Navigate(ctx context.Context, url string) (*Snapshot, error) {
	if e.cache != nil {
		page, ok, err := e.cache.Get(ctx, url)
		if err != nil {
			logger.Named("browser").Warn("page cache lookup failed", "url", url, "error", err)
		}
		if ok {
			e.setCurrent(page)
			return page, nil
		}
	}

	page, err := e.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if e.cache != nil && page.StatusCode == http.StatusOK {
		if err := e.cache.Set(ctx, url, page); err != nil {
			logger.Named("browser").Warn("page cache store failed", "url", url, "error", err)
		}
	}

	e.setCurrent(page)
	return page, nil
}

func (e *HTTPEngine) fetch(ctx context.Context, url string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxReadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	html := string(body)
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		html = "<html><body><pre>" + escapeHTML(html) + "</pre></body></html>"
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Snapshot{
		URL:        finalURL,
		Title:      pageTitle(html),
		HTML:       html,
		StatusCode: resp.StatusCode,
	}, nil
}

func (e *HTTPEngine) Click(context.Context, string) (*Snapshot, error) {
	return nil, ErrNeedsChrome
}

func (e *HTTPEngine) Type(context.Context, string, string, bool) (*Snapshot, error) {
	return nil, ErrNeedsChrome
}

// Current returns the last loaded page.
func (e *HTTPEngine) Current(context.Context) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil, ErrNoPage
	}
	return e.current, nil
}

func (e *HTTPEngine) Close() error { return nil }

func (e *HTTPEngine) setCurrent(page *Snapshot) {
	e.mu.Lock()
	e.current = page
	e.mu.Unlock()
}

func pageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }
