// ABOUTME: Matrix bridge for torrentbutler
// ABOUTME: Syncs chat events, enforces the sender allow-list, and feeds the dialogue engine

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"torrentbutler/internal/config"
	"torrentbutler/internal/dedupe"
	"torrentbutler/internal/dialog"
	"torrentbutler/internal/session"
)

// dedupeWindow is how long handled event ids are remembered. The sync
// transport may re-deliver events across reconnects.
const dedupeWindow = 10 * time.Minute

// typingTimeout is the duration the typing indicator shows.
const typingTimeout = 30 * time.Second

// networkTimeout is the timeout for Matrix API calls.
const networkTimeout = 10 * time.Second

// Bridge connects a Matrix account to the dialogue engine.
type Bridge struct {
	config  *config.Config
	matrix  *mautrix.Client
	engine  *dialog.Engine
	seen    *dedupe.Cache
	allowed map[string]bool
	logger  *slog.Logger

	// ctx is the parent context for event-handling goroutines
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBridge creates a Matrix bridge for the configured account.
func NewBridge(cfg *config.Config, engine *dialog.Engine, logger *slog.Logger) (*Bridge, error) {
	client, err := mautrix.NewClient(cfg.Matrix.Homeserver, id.UserID(cfg.Matrix.UserID), cfg.Matrix.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	allowed := make(map[string]bool, len(cfg.Matrix.AllowedUsers))
	for _, u := range cfg.Matrix.AllowedUsers {
		allowed[u] = true
	}

	return &Bridge{
		config:  cfg,
		matrix:  client,
		engine:  engine,
		seen:    dedupe.New(dedupeWindow, 4096),
		allowed: allowed,
		logger:  logger.With("component", "bridge"),
	}, nil
}

// Run starts the sync loop and blocks until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("starting matrix bridge",
		"homeserver", b.config.Matrix.Homeserver,
		"user_id", b.config.Matrix.UserID,
		"allowed_users", len(b.allowed),
	)

	b.ctx, b.cancel = context.WithCancel(ctx)
	defer b.cancel()

	syncer, ok := b.matrix.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.matrix.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.matrix.SyncWithContext(b.ctx)
	}()

	b.logger.Info("matrix bridge running")

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		b.cancel()
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// handleMessageEvent filters inbound events and dispatches the survivors.
func (b *Bridge) handleMessageEvent(ctx context.Context, evt *event.Event) {
	// Ignore our own messages
	if evt.Sender == id.UserID(b.config.Matrix.UserID) {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return
	}
	if content.MsgType != event.MsgText {
		return
	}

	// Unauthorized senders are dropped before anything reaches the engine.
	if !b.allowed[evt.Sender.String()] {
		b.logger.Debug("dropping message from unauthorized sender", "sender", evt.Sender.String())
		return
	}

	if b.seen.Seen(evt.ID.String()) {
		b.logger.Debug("dropping replayed event", "event_id", evt.ID.String())
		return
	}

	text := strings.TrimSpace(content.Body)
	if text == "" {
		return
	}

	b.logger.Info("received message",
		"room", evt.RoomID.String(),
		"sender", evt.Sender.String(),
		"content", truncate(text, 50),
	)

	// One worker per event. Events for different conversations proceed in
	// parallel; the session store serializes same-conversation events.
	go b.processMessage(b.ctx, evt.RoomID, evt.Sender, text)
}

// processMessage runs one event through the engine and sends the replies.
func (b *Bridge) processMessage(ctx context.Context, roomID id.RoomID, sender id.UserID, text string) {
	if b.config.Bridge.TypingIndicator {
		b.setTyping(roomID, true)
		defer b.setTyping(roomID, false)
	}

	key := session.Key{RoomID: roomID.String(), UserID: sender.String()}

	var replies []dialog.Reply
	if text == "/recent" {
		replies = b.engine.Recent(ctx, 10)
	} else {
		// Structured payloads ("pick:2", "action:pause:5") are accepted as a
		// shorthand next to the natural-language forms.
		ev, ok := dialog.ParseCallback(text)
		if !ok {
			ev = dialog.Classify(text)
		}
		replies = b.engine.Handle(ctx, key, ev)
	}

	for _, reply := range replies {
		b.sendReply(roomID, reply)
	}
}

// sendReply renders one reply as markdown-formatted Matrix message.
func (b *Bridge) sendReply(roomID id.RoomID, reply dialog.Reply) {
	content := renderReply(reply)

	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()

	if _, err := b.matrix.SendMessageEvent(ctx, roomID, event.EventMessage, content); err != nil {
		b.logger.Error("failed to send reply", "room", roomID.String(), "error", err)
	}
}

// setTyping sends the typing indicator to a room.
func (b *Bridge) setTyping(roomID id.RoomID, typing bool) {
	var timeout time.Duration
	if typing {
		timeout = typingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.matrix.UserTyping(ctx, roomID, typing, timeout); err != nil {
		b.logger.Debug("failed to set typing indicator", "room", roomID.String(), "error", err)
	}
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
