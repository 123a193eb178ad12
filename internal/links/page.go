// ABOUTME: Page-level source extraction combining a Fetcher with lexical and href scans
// ABOUTME: Anchor hrefs are scanned so links absent from literal page text are still found

package links

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Extractor discovers candidate torrent sources in free text and on web
// pages fetched through the configured Fetcher.
type Extractor struct {
	fetcher Fetcher
}

// NewExtractor creates an Extractor using fetcher for page retrieval.
func NewExtractor(fetcher Fetcher) *Extractor {
	return &Extractor{fetcher: fetcher}
}

// FromText returns all sources found in the given text.
func (e *Extractor) FromText(text string) []string {
	return Sources(text)
}

// FromPage fetches pageURL and returns the sources discovered in its
// content. Both the page text and anchor href attributes are scanned; the
// result is deduplicated in first-seen order with hrefs first (they are
// the links a user would click). Zero candidates is a valid result.
func (e *Extractor) FromPage(ctx context.Context, pageURL string) ([]string, error) {
	content, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extracting from %s: %w", pageURL, err)
	}

	candidates := anchorHrefs(content)
	candidates = append(candidates, Sources(content)...)
	return dedupe(candidates), nil
}

// anchorHrefs returns href values of <a> elements that look like torrent
// sources. A bad parse is not an error: the lexical scan still runs over
// the raw content.
func anchorHrefs(content string) []string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				href := strings.TrimSpace(a.Val)
				if torrentLinkPattern.MatchString(href) || magnetURIPattern.MatchString(href) {
					out = append(out, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
