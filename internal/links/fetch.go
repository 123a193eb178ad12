// ABOUTME: Page fetchers for link extraction from web pages
// ABOUTME: Plain HTTP fetcher plus a headless-browser fetcher for JS-rendered pages

package links

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// maxPageBytes caps how much of a fetched page we read.
const maxPageBytes = 4 << 20

// Fetcher retrieves the content of a web page as text. Implementations
// decide whether that content is the raw response body or a rendered DOM.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPFetcher fetches pages with a plain HTTP GET. Cheap, but blind to
// links that only exist after client-side rendering.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch retrieves the raw response body for pageURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "torrentbutler/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("reading page body: %w", err)
	}
	return string(body), nil
}

// BrowserFetcher fetches pages through a headless browser so that
// JS-rendered link lists are visible to extraction.
type BrowserFetcher struct {
	browser *rod.Browser
	timeout time.Duration
}

// NewBrowserFetcher connects to (or launches) a headless browser. Call
// Close when done.
func NewBrowserFetcher(timeout time.Duration) (*BrowserFetcher, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	browser := rod.New()
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return &BrowserFetcher{browser: browser, timeout: timeout}, nil
}

// Fetch navigates to pageURL and returns the serialized rendered DOM.
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	page, err := stealth.Page(f.browser)
	if err != nil {
		return "", fmt.Errorf("creating page: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return "", fmt.Errorf("navigating to %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		return "", fmt.Errorf("waiting for page load: %w", err)
	}

	res, err := page.Context(navCtx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("serializing DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Close shuts the underlying browser down.
func (f *BrowserFetcher) Close() error {
	return f.browser.Close()
}
