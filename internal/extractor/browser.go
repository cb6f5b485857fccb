package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher renders pages in headless Chromium for publishers that build
// their article body with JavaScript.
type BrowserFetcher struct {
	mu         sync.Mutex
	sessionDir string
	browser    *rod.Browser
}

// NewBrowserFetcher prepares a fetcher; the browser is launched on first use.
func NewBrowserFetcher() (*BrowserFetcher, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache directory: %w", err)
	}

	sessionDir := filepath.Join(cacheDir, "dronewire", "browser")
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create browser directory: %w", err)
	}

	return &BrowserFetcher{sessionDir: sessionDir}, nil
}

// initBrowser launches Chromium once
func (b *BrowserFetcher) initBrowser() error {
	if b.browser != nil {
		return nil
	}

	path, _ := launcher.LookPath()
	u, err := launcher.New().
		Bin(path).
		Headless(true).
		UserDataDir(b.sessionDir).
		Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	b.browser = browser
	return nil
}

// Fetch implements Fetcher
func (b *BrowserFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.initBrowser(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return []byte(html), nil
}

// Close closes the browser and cleans up resources
func (b *BrowserFetcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		err := b.browser.Close()
		b.browser = nil
		return err
	}
	return nil
}
