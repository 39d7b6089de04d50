package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is the extracted content of one fetch.
type Page struct {
	// HashTarget is the content fingerprint used for change detection.
	HashTarget string
	// ExtractedTarget is the normalized text used for similarity matching.
	ExtractedTarget string
	// ExtractedContent is the full extracted payload.
	ExtractedContent string
}

// Fetcher is the fetch/extract collaborator consumed by the execution
// runner.
type Fetcher interface {
	Fetch(ctx context.Context, url, selector string) (Page, error)
}

type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// HTTPFetcher fetches a page over HTTP and extracts text via a CSS
// selector (whole body when the selector is empty).
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "web-page-notify/1.0"
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: ua,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url, selector string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("creating request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Page{}, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("parsing %s: %w", url, err)
	}

	sel := strings.TrimSpace(selector)
	if sel == "" {
		sel = "body"
	}
	selection := doc.Find(sel)

	content, err := selection.Html()
	if err != nil {
		return Page{}, fmt.Errorf("extracting %s: %w", url, err)
	}
	target := normalizeText(selection.Text())

	return Page{
		HashTarget:       fingerprint(target),
		ExtractedTarget:  target,
		ExtractedContent: content,
	}, nil
}

// normalizeText collapses all runs of whitespace to single spaces so
// markup reflows don't register as content changes.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func fingerprint(target string) string {
	sum := sha256.Sum256([]byte(target))
	return hex.EncodeToString(sum[:])
}
