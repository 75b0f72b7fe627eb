package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var (
	// ErrThumbnailNotFound means the page has no og:image meta tag (or its
	// content is empty).
	ErrThumbnailNotFound = errors.New("thumbnail not found")
	// ErrFetchFailed means the remote fetch errored or returned a non-success
	// status; the transport error is wrapped alongside it.
	ErrFetchFailed = errors.New("fetch failed")
)

// The source site serves different markup to unidentified clients, so requests
// carry a fixed browser identity.
const (
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36"
	AcceptLanguage   = "en-US,en;q=0.9"
)

// Extractor resolves a public page URL to the preview-image URL the page
// declares in its Open Graph metadata.
type Extractor interface {
	ExtractThumbnail(ctx context.Context, pageURL string) (string, error)
}

type ogExtractor struct {
	client *http.Client
}

// NewOGExtractor creates an extractor that fetches pages over HTTP and reads
// the og:image meta tag. The timeout bounds the whole fetch.
func NewOGExtractor(timeout time.Duration) Extractor {
	return &ogExtractor{
		client: &http.Client{Timeout: timeout},
	}
}

// ExtractThumbnail fetches pageURL with a browser-like identity and returns
// the content of the single meta element whose property is "og:image".
// No retries; the caller decides whether to retry.
func (e *ogExtractor) ExtractThumbnail(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept-Language", AcceptLanguage)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: unexpected status %d from %s", ErrFetchFailed, resp.StatusCode, pageURL)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %w", ErrFetchFailed, err)
	}

	thumbnail := findOGImage(doc)
	if thumbnail == "" {
		return "", fmt.Errorf("%w: no og:image meta tag on %s", ErrThumbnailNotFound, pageURL)
	}
	return thumbnail, nil
}

// findOGImage walks the HTML tree looking for
// <meta property="og:image" content="...">.
func findOGImage(doc *html.Node) string {
	var found string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, content string
			for _, a := range n.Attr {
				switch {
				case strings.EqualFold(a.Key, "property"):
					property = a.Val
				case strings.EqualFold(a.Key, "content"):
					content = a.Val
				}
			}
			if property == "og:image" && strings.TrimSpace(content) != "" {
				found = strings.TrimSpace(content)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return found
}
