// Package transmission is a typed client for the Transmission daemon's RPC
// endpoint: add, list-by-class, get, start/pause, remove. The daemon's
// seven status codes are normalized into a five-value taxonomy; transport
// and protocol failures surface as *RemoteError so callers can turn them
// into a user-facing message instead of a stuck flow.
package transmission
