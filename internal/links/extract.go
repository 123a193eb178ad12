// ABOUTME: Lexical extraction of torrent sources from free text and page content
// ABOUTME: Finds .torrent file links and magnet URIs, deduplicated in first-seen order

package links

import (
	"regexp"
)

var (
	torrentLinkPattern = regexp.MustCompile(`http[s]?://\S+\.torrent\b`)
	magnetURIPattern   = regexp.MustCompile(`magnet:\?\S+`)
)

// DirectSources returns the distinct .torrent file links found in text,
// in first-seen order. Empty input yields an empty result.
func DirectSources(text string) []string {
	return dedupe(torrentLinkPattern.FindAllString(text, -1))
}

// SwarmSources returns the distinct magnet URIs found in text, in
// first-seen order.
func SwarmSources(text string) []string {
	return dedupe(magnetURIPattern.FindAllString(text, -1))
}

// Sources returns all distinct sources in text: direct file links first,
// then magnet URIs, each group in first-seen order, deduplicated across
// both scans.
func Sources(text string) []string {
	return dedupe(append(DirectSources(text), SwarmSources(text)...))
}

// dedupe removes duplicate URIs preserving first-seen order.
func dedupe(uris []string) []string {
	if len(uris) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(uris))
	out := uris[:0]
	for _, u := range uris {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
