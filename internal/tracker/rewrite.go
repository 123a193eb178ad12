// ABOUTME: Private-tracker URL rewriting for authenticated torrent downloads
// ABOUTME: Appends the tracker pass key as a query parameter, idempotently

package tracker

import (
	"net/url"
	"strings"
)

// passParam is the query parameter the tracker expects the pass key in.
const passParam = "torrent_pass"

// Rewriter appends a pre-shared pass key to torrent URLs served by one
// specific private tracker. URLs for any other host pass through untouched.
type Rewriter struct {
	host    string
	passKey string
}

// NewRewriter creates a Rewriter for the given tracker host (for example
// "torrentday.com"). An empty host or key disables rewriting.
func NewRewriter(host, passKey string) *Rewriter {
	return &Rewriter{host: strings.ToLower(host), passKey: passKey}
}

// Rewrite returns rawURL with the pass key appended when the URL is a
// .torrent link on the configured tracker. It is a pure function and
// idempotent: rewriting an already-rewritten URL changes nothing.
func (r *Rewriter) Rewrite(rawURL string) string {
	if r == nil || r.host == "" || r.passKey == "" {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return rawURL
	}
	if !hostMatches(u.Hostname(), r.host) {
		return rawURL
	}
	if !strings.HasSuffix(strings.ToLower(u.Path), ".torrent") {
		return rawURL
	}

	q := u.Query()
	if q.Get(passParam) == r.passKey {
		return u.String()
	}
	q.Set(passParam, r.passKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// hostMatches reports whether host is the tracker host or a subdomain of it.
func hostMatches(host, tracker string) bool {
	host = strings.ToLower(host)
	return host == tracker || strings.HasSuffix(host, "."+tracker)
}
