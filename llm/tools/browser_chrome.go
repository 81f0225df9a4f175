package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// chromeOpTimeout bounds every browser action.
const chromeOpTimeout = 30 * time.Second

// ChromeEngine drives a headless incognito Chrome through chromedp. The
// Chrome process is started on first use and lives until Close.
type ChromeEngine struct {
	parentCtx context.Context

	mu          sync.Mutex
	started     bool
	navigated   bool
	browserCtx  context.Context
	browserDone context.CancelFunc
	allocDone   context.CancelFunc
}

// NewChromeEngine returns a ChromeEngine rooted at parentCtx; cancelling it
// tears down Chrome.
func NewChromeEngine(parentCtx context.Context) *ChromeEngine {
	return &ChromeEngine{parentCtx: parentCtx}
}

func (e *ChromeEngine) Name() string { return EngineChrome }

// ensureBrowser lazily starts the Chrome process on first call.
func (e *ChromeEngine) ensureBrowser() (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return e.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("incognito", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(e.parentCtx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force Chrome to start by running a noop.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	e.browserCtx = browserCtx
	e.browserDone = browserCancel
	e.allocDone = allocCancel
	e.started = true

	return e.browserCtx, nil
}

func (e *ChromeEngine) do(ctx context.Context, actions ...chromedp.Action) (*Snapshot, error) {
	bCtx, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(bCtx, chromeOpTimeout)
	defer cancel()
	// abort the browser action when the caller gives up
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	page := &Snapshot{}
	actions = append(actions,
		chromedp.Location(&page.URL),
		chromedp.Title(&page.Title),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
	)
	if err := chromedp.Run(opCtx, actions...); err != nil {
		return nil, err
	}
	return page, nil
}

// Navigate loads url and waits for the body to be ready.
func (e *ChromeEngine) Navigate(ctx context.Context, url string) (*Snapshot, error) {
	page, err := e.do(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}
	e.markNavigated()
	return page, nil
}

func (e *ChromeEngine) markNavigated() {
	e.mu.Lock()
	e.navigated = true
	e.mu.Unlock()
}

// Click clicks the first element matching selector.
func (e *ChromeEngine) Click(ctx context.Context, selector string) (*Snapshot, error) {
	if err := e.requirePage(); err != nil {
		return nil, err
	}
	return e.do(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Type sends text to the field matching selector, pressing Enter when submit is set.
func (e *ChromeEngine) Type(ctx context.Context, selector, text string, submit bool) (*Snapshot, error) {
	if err := e.requirePage(); err != nil {
		return nil, err
	}
	if submit {
		text += "\r"
	}
	return e.do(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Current returns the page currently loaded in the tab.
func (e *ChromeEngine) Current(ctx context.Context) (*Snapshot, error) {
	if err := e.requirePage(); err != nil {
		return nil, err
	}
	return e.do(ctx)
}

// requirePage fails until a navigation has succeeded.
func (e *ChromeEngine) requirePage() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.navigated {
		return ErrNoPage
	}
	return nil
}

// Close shuts down the Chrome process if it was started.
func (e *ChromeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}

	e.browserDone()
	e.allocDone()
	e.browserDone = nil
	e.allocDone = nil
	e.browserCtx = nil
	e.started = false
	e.navigated = false
	return nil
}
