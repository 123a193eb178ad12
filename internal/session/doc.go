// Package session holds the per-user conversation state for the dialogue
// engine: the State enum, the flow-scoped Data cleared on every return to
// StateMain, and a Store giving atomic per-key access so concurrent chat
// events on the same conversation never interleave.
package session
