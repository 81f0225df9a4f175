package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

const (
	// BrowserToolName is the name of the web browsing tool
	BrowserToolName = "browser"

	// maxContentBytes is the maximum extracted content size (100KB)
	maxContentBytes = 100 * 1024
)

// Browser actions.
const (
	ActionNavigate = "navigate"
	ActionClick    = "click"
	ActionType     = "type"
	ActionExtract  = "extract"
)

// Engine names accepted by NewBrowserEngine.
const (
	EngineAuto   = "auto"
	EngineChrome = "chrome"
	EngineHTTP   = "http"
)

// ErrNoPage is returned when an action needs a loaded page and there is none.
var ErrNoPage = errors.New("no page loaded; call navigate first")

// BrowserEngine drives a single browsing session.
type BrowserEngine interface {
	Name() string
	Navigate(ctx context.Context, url string) (*Snapshot, error)
	Click(ctx context.Context, selector string) (*Snapshot, error)
	Type(ctx context.Context, selector, text string, submit bool) (*Snapshot, error)
	Current(ctx context.Context) (*Snapshot, error)
	Close() error
}

// BrowserParams defines parameters for the browser tool.
type BrowserParams struct {
	Action   string `json:"action" jsonschema:"description=One of navigate or click or type or extract"`
	URL      string `json:"url,omitempty" jsonschema:"description=URL for navigate. Must start with http:// or https://"`
	Selector string `json:"selector,omitempty" jsonschema:"description=CSS selector for click and type; optional scope for extract"`
	Text     string `json:"text,omitempty" jsonschema:"description=Text to type into the selected field"`
	Submit   bool   `json:"submit,omitempty" jsonschema:"description=Press Enter after typing"`
	Format   string `json:"format,omitempty" jsonschema:"description=Content format: text or markdown (default text),enum=text,enum=markdown"`
}

const browserDescription = `Browse web pages: open a URL, interact with it and read its content.

ACTIONS:
- navigate: load "url" and return its content
- click: click the element matching "selector" and return the resulting page
- type: type "text" into the field matching "selector" (set "submit" to press Enter)
- extract: return the content of the current page, optionally limited to "selector"

The page stays loaded between calls. Content is returned as plain text or markdown
("format") and is capped at 100KB. Prefer markdown when you need tables or links.

EXAMPLES:
- {"action": "navigate", "url": "https://sadecines.com/", "format": "markdown"}
- {"action": "extract", "selector": "table", "format": "markdown"}`

// Browser exposes a BrowserEngine as a tool.
type Browser struct {
	engine BrowserEngine
}

// NewBrowser returns a Browser backed by engine.
func NewBrowser(engine BrowserEngine) *Browser {
	return &Browser{engine: engine}
}

// Browse implements the browser tool.
func (b *Browser) Browse(ctx context.Context, params BrowserParams) (string, error) {
	format := strings.ToLower(params.Format)
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "markdown" {
		return Error("format must be one of: text, markdown")
	}

	var (
		page  *Snapshot
		err   error
		scope string
	)

	switch params.Action {
	case ActionNavigate:
		if !strings.HasPrefix(params.URL, "http://") && !strings.HasPrefix(params.URL, "https://") {
			return Error("url must start with http:// or https://")
		}
		page, err = b.engine.Navigate(ctx, params.URL)
	case ActionClick:
		if params.Selector == "" {
			return Error("selector is required for click")
		}
		page, err = b.engine.Click(ctx, params.Selector)
	case ActionType:
		if params.Selector == "" {
			return Error("selector is required for type")
		}
		page, err = b.engine.Type(ctx, params.Selector, params.Text, params.Submit)
	case ActionExtract:
		scope = params.Selector
		page, err = b.engine.Current(ctx)
	default:
		return Errorf("unknown action %q; expected one of %s, %s, %s, %s",
			params.Action, ActionNavigate, ActionClick, ActionType, ActionExtract)
	}
	if err != nil {
		return Errorf("%s: %v", params.Action, err)
	}

	content, err := RenderPage(page.HTML, scope, format)
	if err != nil {
		return Errorf("%s: %v", params.Action, err)
	}

	meta := &Metadata{
		URL:        page.URL,
		Title:      page.Title,
		StatusCode: page.StatusCode,
		Cached:     page.Cached,
	}
	if page.StatusCode >= 400 {
		return Partial(content, meta)
	}
	return Success(content, meta)
}

// RenderPage converts html, or the part matching selector, into text or markdown.
func RenderPage(html, selector, format string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}
	doc.Find("script, style, noscript, svg").Remove()

	sel := doc.Find("body")
	if selector != "" {
		sel = doc.Find(selector)
		if sel.Length() == 0 {
			return "", fmt.Errorf("no element matches %q", selector)
		}
	} else if sel.Length() == 0 {
		sel = doc.Selection
	}

	var out string
	switch format {
	case "markdown":
		converter := md.NewConverter("", true, nil)
		var parts []string
		sel.Each(func(_ int, s *goquery.Selection) {
			if part := strings.TrimSpace(converter.Convert(s)); part != "" {
				parts = append(parts, part)
			}
		})
		out = collapseWhitespace(strings.Join(parts, "\n\n"))
	default:
		var parts []string
		sel.Each(func(_ int, s *goquery.Selection) {
			if part := strings.Join(strings.Fields(s.Text()), " "); part != "" {
				parts = append(parts, part)
			}
		})
		out = strings.Join(parts, "\n")
	}

	if len(out) > maxContentBytes {
		out = out[:runeBoundary(out, maxContentBytes)] + "\n[content truncated]"
	}
	return out, nil
}

// runeBoundary returns the largest index <= n that does not split a rune of s.
func runeBoundary(s string, n int) int {
	if n >= len(s) {
		return len(s)
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

// multiBlankLine matches two or more consecutive newlines (with optional whitespace).
var multiBlankLine = regexp.MustCompile(`\n\s*\n`)

// collapseWhitespace reduces runs of blank lines to a single blank line.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(multiBlankLine.ReplaceAllString(s, "\n\n"))
}

// chromeBinaries are looked up on PATH when the engine is auto.
var chromeBinaries = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"}

var lookPath = exec.LookPath

// chromeAvailable reports whether a Chrome binary can be found.
func chromeAvailable() bool {
	for _, bin := range chromeBinaries {
		if _, err := lookPath(bin); err == nil {
			return true
		}
	}
	return false
}

// BrowserConfig selects and configures the browsing engine.
type BrowserConfig struct {
	Engine string
	Cache  PageCache
	// HTTPClient is used by the http engine.
	HTTPClient HTTPDoer
}

// NewBrowserEngine returns the engine named by cfg.Engine. "auto" picks
// chrome when a Chrome binary is on PATH and falls back to http.
func NewBrowserEngine(ctx context.Context, cfg BrowserConfig) (BrowserEngine, error) {
	engine := strings.ToLower(cfg.Engine)
	if engine == "" || engine == EngineAuto {
		engine = EngineHTTP
		if chromeAvailable() {
			engine = EngineChrome
		}
	}

	switch engine {
	case EngineChrome:
		return NewChromeEngine(ctx), nil
	case EngineHTTP:
		return NewHTTPEngine(cfg.HTTPClient, cfg.Cache), nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", cfg.Engine)
	}
}

// GetBrowserTool returns the browser tool bound to engine.
func GetBrowserTool(engine BrowserEngine) (tool.InvokableTool, error) {
	t, err := utils.InferTool(BrowserToolName, browserDescription, NewBrowser(engine).Browse)
	if err != nil {
		return nil, err
	}
	return WithCapability(t, CapabilityBrowser), nil
}
