// ABOUTME: The dialogue state machine driving remote download commands from chat events
// ABOUTME: Routes events by current state, mutates the conversation atomically, emits ordered replies

package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"torrentbutler/internal/history"
	"torrentbutler/internal/session"
	"torrentbutler/internal/transmission"
)

// Reply is one outbound message: text plus the suggested replies the
// transport may render as a keyboard or buttons.
type Reply struct {
	Text    string
	Options []string
}

// DownloadClient defines what the engine needs from the remote download
// service.
type DownloadClient interface {
	Add(ctx context.Context, sourceURL, category string) (transmission.Item, error)
	List(ctx context.Context, class transmission.StatusClass) ([]transmission.Item, error)
	Get(ctx context.Context, id int64) (transmission.Item, error)
	Control(ctx context.Context, id int64, op transmission.Op) error
	Remove(ctx context.Context, id int64, deleteData bool) error
}

// SourceExtractor defines what the engine needs from link extraction.
type SourceExtractor interface {
	FromPage(ctx context.Context, pageURL string) ([]string, error)
}

// Recorder is the history ledger as the engine sees it: completed remote
// commands go in, recent entries come back out.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Suggested reply menus. Mirrored by the classification vocabulary.
var (
	statusMenu   = []string{"Downloading", "Seeding", "Paused"}
	categoryMenu = []string{"Movie", "TV Show", "Other", "Cancel"}
	actionMenu   = []string{"Start", "Pause", "Delete", "Cancel"}
	confirmMenu  = []string{"Keep data", "Delete data", "Cancel"}
)

const welcomeText = "Hi! I am an interface to a Transmission torrent client. " +
	"Send me a link to a .torrent file, a magnet link, or a page containing them, " +
	"and I will download it; you can also check the status of existing downloads."

// Deps bundles the engine's collaborators. Store, Client, and Extractor are
// required; Rewrite, Recorder, and Logger are optional.
type Deps struct {
	Store     session.Store
	Client    DownloadClient
	Extractor SourceExtractor
	Rewrite   func(string) string
	Recorder  Recorder
	Logger    *slog.Logger
}

// Engine is the per-conversation state machine. All transitions run under
// the store's per-key lock, so two events on the same conversation can
// never interleave their read-decide-write cycles.
type Engine struct {
	store     session.Store
	client    DownloadClient
	extractor SourceExtractor
	rewrite   func(string) string
	recorder  Recorder
	logger    *slog.Logger
}

// New creates an Engine from its dependencies.
func New(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rewrite := d.Rewrite
	if rewrite == nil {
		rewrite = func(u string) string { return u }
	}
	return &Engine{
		store:     d.Store,
		client:    d.Client,
		extractor: d.Extractor,
		rewrite:   rewrite,
		recorder:  d.Recorder,
		logger:    logger.With("component", "dialog"),
	}
}

// Handle applies one event to the conversation identified by key and
// returns the ordered replies to send. A nil event (unclassifiable input)
// re-prompts for the current state. Handle never returns an error to the
// transport: remote failures become user-facing messages and the
// conversation is reset rather than left stuck.
func (e *Engine) Handle(ctx context.Context, key session.Key, ev Event) []Reply {
	var replies []Reply
	err := e.store.Update(key, func(c *session.Conversation) error {
		replies = e.transition(ctx, c, ev)
		if c.State == session.StateMain && !c.Data.Empty() {
			// Should be unreachable; reset rather than violate the invariant.
			e.logger.Error("scoped data survived return to main, clearing", "key", key.String())
			c.Data = session.Data{}
		}
		return nil
	})
	if err != nil {
		e.logger.Error("conversation update failed", "key", key.String(), "error", err)
		return []Reply{{Text: "Something went wrong on my side. Please try again.", Options: statusMenu}}
	}
	return replies
}

// transition is the state × event table. Pairs not listed fall through to
// the unrecognized re-prompt, which changes nothing.
func (e *Engine) transition(ctx context.Context, c *session.Conversation, ev Event) []Reply {
	switch ev := ev.(type) {
	case SessionStarted:
		if c.State == session.StateMain {
			return []Reply{{Text: welcomeText, Options: statusMenu}}
		}

	case SourceLinkOffered:
		if c.State == session.StateMain {
			c.Data.PendingSourceURL = e.rewrite(ev.URI)
			c.State = session.StateChoosingCategory
			return []Reply{{Text: "Got a torrent link! What's the nature of its contents?", Options: categoryMenu}}
		}

	case PageLinkOffered:
		if c.State == session.StateMain {
			return e.handlePageLink(ctx, c, ev.URI)
		}

	case StatusQueryRequested:
		if c.State == session.StateMain {
			return e.handleStatusQuery(ctx, ev.Class)
		}

	case ItemSelected:
		if c.State == session.StateMain {
			return e.handleItemSelected(ctx, c, ev.ID)
		}

	case SourceIndexSelected:
		if c.State == session.StatePickingSource {
			return e.handleSourceIndex(c, ev.Index)
		}

	case CategoryChosen:
		if c.State == session.StateChoosingCategory {
			return e.handleCategoryChosen(ctx, c, ev.Category)
		}

	case ItemActionChosen:
		if c.State == session.StateChoosingAction {
			return e.handleItemAction(ctx, c, ev)
		}

	case RemovalConfirmed:
		if c.State == session.StateConfirmingRemoval {
			return e.handleRemovalConfirmed(ctx, c, ev)
		}

	case CancelRequested:
		if c.State != session.StateMain {
			facts := c.Data.Facts()
			c.Reset()
			text := "Cancelled."
			if facts != "" {
				text = "Cancelled. Data I had stored:\n" + facts
			}
			return []Reply{{Text: text, Options: statusMenu}}
		}
	}

	return e.unrecognized(c)
}

// unrecognized re-sends the prompt for the current state. Exactly one
// reply, no state or data change.
func (e *Engine) unrecognized(c *session.Conversation) []Reply {
	switch c.State {
	case session.StatePickingSource:
		return []Reply{{
			Text:    "Pick one of the listed sources by its number.",
			Options: indexOptions(len(c.Data.CandidateSources)),
		}}
	case session.StateChoosingCategory:
		return []Reply{{Text: "What's the nature of its contents?", Options: categoryMenu}}
	case session.StateChoosingAction:
		return []Reply{{Text: "What would you like to do?", Options: actionMenu}}
	case session.StateConfirmingRemoval:
		return []Reply{{Text: "Delete data too?", Options: confirmMenu}}
	default:
		return []Reply{{
			Text:    "Sorry, I didn't understand that. Send me a torrent link, a magnet link, or check your downloads.",
			Options: statusMenu,
		}}
	}
}

func (e *Engine) handlePageLink(ctx context.Context, c *session.Conversation, pageURL string) []Reply {
	sources, err := e.extractor.FromPage(ctx, pageURL)
	if err != nil {
		e.logger.Warn("page extraction failed", "url", pageURL, "error", err)
		return []Reply{{Text: "I couldn't read that page.", Options: statusMenu}}
	}
	if len(sources) == 0 {
		return []Reply{{Text: "No torrent or magnet links found on that page.", Options: statusMenu}}
	}

	c.Data.CandidateSources = sources
	c.State = session.StatePickingSource

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d links. Which one should I download?\n", len(sources))
	for i, s := range sources {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return []Reply{{Text: strings.TrimRight(b.String(), "\n"), Options: indexOptions(len(sources))}}
}

func (e *Engine) handleStatusQuery(ctx context.Context, class transmission.StatusClass) []Reply {
	items, err := e.client.List(ctx, class)
	if err != nil {
		return e.remoteFailure(nil, err)
	}
	if len(items) == 0 {
		return []Reply{{Text: fmt.Sprintf("Nothing is %s right now.", class), Options: statusMenu}}
	}

	replies := make([]Reply, 0, len(items))
	for _, it := range items {
		replies = append(replies, Reply{Text: formatItem(class, it)})
	}
	return replies
}

func (e *Engine) handleItemSelected(ctx context.Context, c *session.Conversation, id int64) []Reply {
	item, err := e.client.Get(ctx, id)
	if errors.Is(err, transmission.ErrItemNotFound) {
		return []Reply{{Text: fmt.Sprintf("I don't know any torrent with id %d.", id), Options: statusMenu}}
	}
	if err != nil {
		return e.remoteFailure(c, err)
	}

	c.Data.TargetItemID = item.ID
	c.State = session.StateChoosingAction
	return []Reply{{
		Text:    fmt.Sprintf("Selected %s\nWhat would you like to do?", item.Name),
		Options: actionMenu,
	}}
}

func (e *Engine) handleSourceIndex(c *session.Conversation, index int) []Reply {
	candidates := c.Data.CandidateSources
	if index < 1 || index > len(candidates) {
		return []Reply{{
			Text:    fmt.Sprintf("That's not on the list - pick a number between 1 and %d.", len(candidates)),
			Options: indexOptions(len(candidates)),
		}}
	}

	c.Data.PendingSourceURL = e.rewrite(candidates[index-1])
	c.State = session.StateChoosingCategory
	return []Reply{{Text: "Got it! What's the nature of its contents?", Options: categoryMenu}}
}

func (e *Engine) handleCategoryChosen(ctx context.Context, c *session.Conversation, category string) []Reply {
	c.Data.Category = category
	sourceURL := c.Data.PendingSourceURL

	item, err := e.client.Add(ctx, sourceURL, category)
	if err != nil {
		return e.remoteFailure(c, err)
	}

	e.record(ctx, history.Entry{
		Verb:      "add",
		ItemID:    item.ID,
		ItemName:  item.Name,
		SourceURL: sourceURL,
		Category:  category,
	})

	c.Reset()
	return []Reply{{Text: fmt.Sprintf("Neat! Started downloading %s.", item.Name), Options: statusMenu}}
}

func (e *Engine) handleItemAction(ctx context.Context, c *session.Conversation, ev ItemActionChosen) []Reply {
	// In the structured-payload variant the button payload carries the
	// target id and is authoritative.
	id := c.Data.TargetItemID
	if ev.ID != 0 {
		id = ev.ID
		c.Data.TargetItemID = id
	}

	switch ev.Action {
	case "delete":
		c.Data.RequestedOp = "delete"
		c.State = session.StateConfirmingRemoval
		return []Reply{{Text: "Delete data too?", Options: confirmMenu}}

	case "start", "pause":
		op := transmission.OpStart
		if ev.Action == "pause" {
			op = transmission.OpPause
		}
		if err := e.client.Control(ctx, id, op); err != nil {
			return e.remoteFailure(c, err)
		}
		e.record(ctx, history.Entry{Verb: ev.Action, ItemID: id})
		c.Reset()
		return []Reply{{Text: "Done!", Options: statusMenu}}
	}

	return e.unrecognized(c)
}

func (e *Engine) handleRemovalConfirmed(ctx context.Context, c *session.Conversation, ev RemovalConfirmed) []Reply {
	id := c.Data.TargetItemID
	if ev.ID != 0 {
		id = ev.ID
	}

	if err := e.client.Remove(ctx, id, !ev.KeepData); err != nil {
		return e.remoteFailure(c, err)
	}

	e.record(ctx, history.Entry{Verb: "remove", ItemID: id})
	c.Reset()
	return []Reply{{Text: "Done!", Options: statusMenu}}
}

// remoteFailure reports a generic failure and forces the conversation back
// to the resting state so it can never get stuck mid-flow.
func (e *Engine) remoteFailure(c *session.Conversation, err error) []Reply {
	e.logger.Error("remote service call failed", "error", err)
	if c != nil {
		c.Reset()
	}
	return []Reply{{
		Text:    "I couldn't reach the download service. Please try again later.",
		Options: statusMenu,
	}}
}

// Recent returns the most recent ledger entries formatted for chat, or a
// note when the ledger is disabled. Read-only, so it runs outside the
// state machine.
func (e *Engine) Recent(ctx context.Context, limit int) []Reply {
	if e.recorder == nil {
		return []Reply{{Text: "History is not enabled.", Options: statusMenu}}
	}

	entries, err := e.recorder.Recent(ctx, limit)
	if err != nil {
		e.logger.Error("history query failed", "error", err)
		return []Reply{{Text: "I couldn't read the history.", Options: statusMenu}}
	}
	if len(entries) == 0 {
		return []Reply{{Text: "No commands recorded yet.", Options: statusMenu}}
	}

	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "%s  %s", entry.At.Local().Format("2006-01-02 15:04"), entry.Verb)
		if entry.ItemName != "" {
			b.WriteString(" " + entry.ItemName)
		} else if entry.ItemID != 0 {
			b.WriteString(" #" + strconv.FormatInt(entry.ItemID, 10))
		}
		b.WriteString("\n")
	}
	return []Reply{{Text: strings.TrimRight(b.String(), "\n"), Options: statusMenu}}
}

// record appends to the history ledger. Best-effort: a ledger failure is
// logged and never surfaces to the user flow.
func (e *Engine) record(ctx context.Context, entry history.Entry) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(ctx, entry); err != nil {
		e.logger.Error("failed to record command", "verb", entry.Verb, "error", err)
	}
}

// indexOptions builds the numeric quick replies for candidate selection,
// capped so huge lists don't produce absurd keyboards.
func indexOptions(n int) []string {
	const maxShown = 10
	if n > maxShown {
		n = maxShown
	}
	opts := make([]string, 0, n+1)
	for i := 1; i <= n; i++ {
		opts = append(opts, strconv.Itoa(i))
	}
	return append(opts, "Cancel")
}
