// Package links discovers candidate torrent sources: .torrent file links
// and magnet URIs extracted from free text or from fetched web pages.
// Results are deduplicated by exact URI in first-seen order. Page fetching
// is pluggable: a plain HTTP fetcher for static pages and a headless-browser
// fetcher for JS-rendered ones.
package links
