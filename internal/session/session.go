// ABOUTME: Conversation data model for the dialogue state machine
// ABOUTME: Defines State, the flow-scoped Data carried between turns, and the Key identity

package session

import (
	"fmt"
	"strings"
)

// State is the position of a conversation in the dialogue flow.
type State int

const (
	// StateMain is the initial and resting state. A conversation in StateMain
	// carries no flow-scoped data.
	StateMain State = iota
	// StatePickingSource means we listed extracted candidate links and are
	// waiting for the user to pick one by its 1-based index.
	StatePickingSource
	// StateChoosingCategory means we hold a pending source URL and are waiting
	// for a content category.
	StateChoosingCategory
	// StateChoosingAction means a torrent is selected and we are waiting for
	// start/pause/delete.
	StateChoosingAction
	// StateConfirmingRemoval means a delete was requested and we are waiting
	// for the keep-data/delete-data confirmation.
	StateConfirmingRemoval
)

// String returns a short name for logging.
func (s State) String() string {
	switch s {
	case StateMain:
		return "main"
	case StatePickingSource:
		return "picking_source"
	case StateChoosingCategory:
		return "choosing_category"
	case StateChoosingAction:
		return "choosing_action"
	case StateConfirmingRemoval:
		return "confirming_removal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Key identifies one dialogue instance: a (room, user) pair.
type Key struct {
	RoomID string
	UserID string
}

func (k Key) String() string {
	return k.RoomID + "/" + k.UserID
}

// Data is the interaction-scoped state accumulated while a flow is in
// progress. It is only ever populated when the conversation has left
// StateMain, and is cleared in full on every return to it.
type Data struct {
	PendingSourceURL string
	CandidateSources []string
	Category         string
	TargetItemID     int64
	RequestedOp      string
}

// Empty reports whether no flow-scoped data is held.
func (d Data) Empty() bool {
	return d.PendingSourceURL == "" &&
		len(d.CandidateSources) == 0 &&
		d.Category == "" &&
		d.TargetItemID == 0 &&
		d.RequestedOp == ""
}

// Facts renders the held data as human-readable "key - value" lines, used
// for the dump shown when a flow is cancelled.
func (d Data) Facts() string {
	var facts []string
	if d.PendingSourceURL != "" {
		facts = append(facts, "torrent_url - "+d.PendingSourceURL)
	}
	if len(d.CandidateSources) > 0 {
		facts = append(facts, fmt.Sprintf("candidate_sources - %d found", len(d.CandidateSources)))
	}
	if d.Category != "" {
		facts = append(facts, "category - "+d.Category)
	}
	if d.TargetItemID != 0 {
		facts = append(facts, fmt.Sprintf("torrent_id - %d", d.TargetItemID))
	}
	if d.RequestedOp != "" {
		facts = append(facts, "operation - "+d.RequestedOp)
	}
	return strings.Join(facts, "\n")
}

// Conversation is one user's dialogue instance. The zero value is a valid
// resting conversation (StateMain, no data).
type Conversation struct {
	Key   Key
	State State
	Data  Data
}

// Reset returns the conversation to StateMain and drops all scoped data.
func (c *Conversation) Reset() {
	c.State = StateMain
	c.Data = Data{}
}
