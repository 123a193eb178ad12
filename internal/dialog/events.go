// ABOUTME: Event vocabulary and input classification for the dialogue engine
// ABOUTME: Ordered (pattern, constructor) rules turn normalized chat text into tagged events

package dialog

import (
	"regexp"
	"strconv"
	"strings"

	"torrentbutler/internal/links"
	"torrentbutler/internal/transmission"
)

// Event is one normalized inbound chat event. The concrete types below are
// the full vocabulary the state machine transitions on.
type Event interface {
	isEvent()
}

// SessionStarted is the explicit conversation opener (/start).
type SessionStarted struct{}

// SourceLinkOffered carries a directly usable torrent source: a .torrent
// file link or a magnet URI.
type SourceLinkOffered struct {
	URI string
}

// PageLinkOffered carries a web page URL to mine for torrent sources.
type PageLinkOffered struct {
	URI string
}

// StatusQueryRequested asks for the torrents in one listing class.
type StatusQueryRequested struct {
	Class transmission.StatusClass
}

// ItemSelected picks an existing torrent by its daemon id.
type ItemSelected struct {
	ID int64
}

// SourceIndexSelected picks a candidate source by its 1-based list position.
type SourceIndexSelected struct {
	Index int
}

// CategoryChosen names the content category for a pending source.
type CategoryChosen struct {
	Category string
}

// ItemActionChosen requests start, pause, or delete on the selected torrent.
// ID is only set in the structured-payload variant, where the button payload
// carries the target and is authoritative.
type ItemActionChosen struct {
	Action string // "start", "pause", "delete"
	ID     int64
}

// RemovalConfirmed resolves the keep-data question for a pending delete.
// ID as in ItemActionChosen.
type RemovalConfirmed struct {
	KeepData bool
	ID       int64
}

// CancelRequested aborts the flow in progress.
type CancelRequested struct{}

func (SessionStarted) isEvent()       {}
func (SourceLinkOffered) isEvent()    {}
func (PageLinkOffered) isEvent()      {}
func (StatusQueryRequested) isEvent() {}
func (ItemSelected) isEvent()         {}
func (SourceIndexSelected) isEvent()  {}
func (CategoryChosen) isEvent()       {}
func (ItemActionChosen) isEvent()     {}
func (RemovalConfirmed) isEvent()     {}
func (CancelRequested) isEvent()      {}

// rule pairs a pattern with an event constructor. Rules are evaluated in
// order; the first match wins.
type rule struct {
	pattern *regexp.Regexp
	build   func(m []string) Event
}

var pageURLPattern = regexp.MustCompile(`http[s]?://\S+`)

var rules = []rule{
	{regexp.MustCompile(`^/start$`), func([]string) Event { return SessionStarted{} }},
	{regexp.MustCompile(`(?i)^cancel$`), func([]string) Event { return CancelRequested{} }},
	{regexp.MustCompile(`(?i)^(downloading|seeding|paused)$`), func(m []string) Event {
		class, _ := transmission.ParseClass(m[1])
		return StatusQueryRequested{Class: class}
	}},
	{regexp.MustCompile(`(?i)^(movie|tv show|other)$`), func(m []string) Event {
		return CategoryChosen{Category: m[1]}
	}},
	{regexp.MustCompile(`(?i)^(start|pause|delete)$`), func(m []string) Event {
		return ItemActionChosen{Action: strings.ToLower(m[1])}
	}},
	{regexp.MustCompile(`(?i)^(keep data|delete data)$`), func(m []string) Event {
		return RemovalConfirmed{KeepData: strings.EqualFold(m[1], "keep data")}
	}},
	// "12. Some name" is how listed torrents echo back.
	{regexp.MustCompile(`^(\d+)\..*`), func(m []string) Event {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil
		}
		return ItemSelected{ID: id}
	}},
	// A bare number picks a candidate source by position.
	{regexp.MustCompile(`^(\d+)$`), func(m []string) Event {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		return SourceIndexSelected{Index: idx}
	}},
}

// Classify turns raw chat text into an Event, or nil when nothing matches.
// Torrent sources take precedence over the generic page-URL match so a
// .torrent link is never treated as a page to crawl.
func Classify(text string) Event {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if sources := links.Sources(text); len(sources) > 0 {
		return SourceLinkOffered{URI: sources[0]}
	}

	for _, r := range rules {
		if m := r.pattern.FindStringSubmatch(text); m != nil {
			return r.build(m)
		}
	}

	if u := pageURLPattern.FindString(text); u != "" {
		return PageLinkOffered{URI: u}
	}

	return nil
}

// ParseCallback decodes a structured button payload ("verb:operand[:operand]")
// into the same event vocabulary as free text. Operands are validated
// against the same id/category/action values; malformed payloads yield
// (nil, false).
func ParseCallback(data string) (Event, bool) {
	parts := strings.Split(data, ":")
	switch parts[0] {
	case "pick":
		if len(parts) != 2 {
			return nil, false
		}
		idx, err := strconv.Atoi(parts[1])
		if err != nil || idx < 1 {
			return nil, false
		}
		return SourceIndexSelected{Index: idx}, true

	case "category":
		if len(parts) != 2 {
			return nil, false
		}
		switch strings.ToLower(parts[1]) {
		case "movie", "tv show", "other":
			return CategoryChosen{Category: parts[1]}, true
		}
		return nil, false

	case "action":
		if len(parts) != 3 {
			return nil, false
		}
		action := strings.ToLower(parts[1])
		if action != "start" && action != "pause" && action != "delete" {
			return nil, false
		}
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || id < 1 {
			return nil, false
		}
		return ItemActionChosen{Action: action, ID: id}, true

	case "remove":
		if len(parts) != 3 {
			return nil, false
		}
		var keep bool
		switch strings.ToLower(parts[1]) {
		case "keep":
			keep = true
		case "delete":
			keep = false
		default:
			return nil, false
		}
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || id < 1 {
			return nil, false
		}
		return RemovalConfirmed{KeepData: keep, ID: id}, true

	case "cancel":
		return CancelRequested{}, true
	}
	return nil, false
}
