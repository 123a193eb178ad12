// ABOUTME: Tests for lexical source extraction
// ABOUTME: Validates pattern matching, deduplication, and first-seen ordering

package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectSources_DedupPreservesOrder(t *testing.T) {
	// The same link three times, interleaved with two distinct others.
	text := "see https://a.example/x.torrent and https://b.example/y.torrent " +
		"again https://a.example/x.torrent plus https://c.example/z.torrent " +
		"and once more https://a.example/x.torrent"

	got := DirectSources(text)
	assert.Equal(t, []string{
		"https://a.example/x.torrent",
		"https://b.example/y.torrent",
		"https://c.example/z.torrent",
	}, got)
}

func TestDirectSources_Empty(t *testing.T) {
	assert.Empty(t, DirectSources(""))
	assert.Empty(t, DirectSources("no links in here"))
	assert.Empty(t, DirectSources("https://example.com/page.html"))
}

func TestSwarmSources(t *testing.T) {
	text := "magnet:?xt=urn:btih:aaa first, magnet:?xt=urn:btih:bbb second, " +
		"magnet:?xt=urn:btih:aaa repeated"

	got := SwarmSources(text)
	assert.Equal(t, []string{
		"magnet:?xt=urn:btih:aaa",
		"magnet:?xt=urn:btih:bbb",
	}, got)
}

func TestSources_CombinesBothKinds(t *testing.T) {
	text := "magnet:?xt=urn:btih:aaa then https://a.example/x.torrent"

	got := Sources(text)
	assert.Equal(t, []string{
		"https://a.example/x.torrent",
		"magnet:?xt=urn:btih:aaa",
	}, got)
}

func TestSources_HTTPAndHTTPS(t *testing.T) {
	text := "http://plain.example/a.torrent https://tls.example/b.torrent"

	got := DirectSources(text)
	assert.Len(t, got, 2)
}
