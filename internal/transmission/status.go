// ABOUTME: Status taxonomy normalization for Transmission torrents
// ABOUTME: Maps daemon status codes to {queued, downloading, seeding, paused, error} and listing classes

package transmission

import (
	"errors"
	"strings"
)

// ErrItemNotFound is returned by Get when the daemon does not track the id.
// Not a RemoteError: the daemon answered, the torrent just is not there.
var ErrItemNotFound = errors.New("torrent not found")

// Status is the normalized torrent status.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusSeeding     Status = "seeding"
	StatusPaused      Status = "paused"
	StatusError       Status = "error"
)

// Daemon status codes, per the Transmission RPC spec.
const (
	codeStopped      = 0
	codeCheckWait    = 1
	codeChecking     = 2
	codeDownloadWait = 3
	codeDownloading  = 4
	codeSeedWait     = 5
	codeSeeding      = 6
)

// normalizeStatus collapses the daemon's seven status codes into the
// five-value taxonomy. Pre-check and checking count as paused: the torrent
// is not transferring and the user parked it or the daemon is verifying it.
func normalizeStatus(code int) Status {
	switch code {
	case codeStopped, codeCheckWait, codeChecking:
		return StatusPaused
	case codeDownloadWait, codeSeedWait:
		return StatusQueued
	case codeDownloading:
		return StatusDownloading
	case codeSeeding:
		return StatusSeeding
	default:
		return StatusError
	}
}

// StatusClass is a user-facing listing category.
type StatusClass string

const (
	ClassDownloading StatusClass = "downloading"
	ClassSeeding     StatusClass = "seeding"
	ClassPaused      StatusClass = "paused"
)

// ParseClass maps user text to a listing class.
func ParseClass(text string) (StatusClass, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "downloading":
		return ClassDownloading, true
	case "seeding":
		return ClassSeeding, true
	case "paused":
		return ClassPaused, true
	default:
		return "", false
	}
}

// Contains reports whether a normalized status belongs to the class.
func (c StatusClass) Contains(s Status) bool {
	switch c {
	case ClassDownloading:
		return s == StatusDownloading
	case ClassSeeding:
		return s == StatusSeeding
	case ClassPaused:
		return s == StatusPaused
	default:
		return false
	}
}

// CategoryDir maps a content category to its storage location. Unrecognized
// categories fall back to the catch-all directory.
func CategoryDir(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "movie":
		return "/movies"
	case "tv show":
		return "/tvshows"
	default:
		return "/other"
	}
}
