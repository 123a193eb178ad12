// Package dialog implements the conversation state machine behind the bot.
//
// Inbound chat text is classified into tagged events (events.go), the
// Engine applies the current state × event transition under the session
// store's per-key lock, calls the download client or link extractor as the
// transition requires, and emits ordered replies with suggested quick
// replies. Remote failures never strand a conversation mid-flow: the
// engine reports a generic failure and returns the conversation to its
// resting state.
package dialog
