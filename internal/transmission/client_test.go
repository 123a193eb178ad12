// ABOUTME: Tests for the Transmission RPC client against a fake daemon
// ABOUTME: Covers the 409 session handshake, all operations, and error normalization

package transmission

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon is a minimal Transmission RPC endpoint for tests.
type fakeDaemon struct {
	t         *testing.T
	sessionID string
	requests  []rpcRequest
	respond   func(method string, args json.RawMessage) (string, any)
}

func (d *fakeDaemon) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Transmission-Session-Id") != d.sessionID {
			w.Header().Set("X-Transmission-Session-Id", d.sessionID)
			w.WriteHeader(http.StatusConflict)
			return
		}

		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		require.NoError(d.t, json.NewDecoder(r.Body).Decode(&req))
		d.requests = append(d.requests, rpcRequest{Method: req.Method})

		result, args := d.respond(req.Method, req.Arguments)
		resp := map[string]any{"result": result, "arguments": args}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(d.t, json.NewEncoder(w).Encode(resp))
	}
}

// newTestClient wires a Client at the fake daemon's address.
func newTestClient(t *testing.T, d *fakeDaemon) (*Client, *httptest.Server) {
	srv := httptest.NewServer(d.handler())
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return NewClient(u.Hostname(), port, "user", "pass"), srv
}

func TestClient_SessionHandshake(t *testing.T) {
	d := &fakeDaemon{t: t, sessionID: "abc123", respond: func(method string, _ json.RawMessage) (string, any) {
		return "success", map[string]any{"torrents": []any{}}
	}}
	c, srv := newTestClient(t, d)
	defer srv.Close()

	_, err := c.List(context.Background(), ClassDownloading)
	require.NoError(t, err)

	// First request got the 409, the retry carried the refreshed session id.
	assert.Equal(t, "abc123", c.sessionID)
}

func TestClient_ConcurrentSessionRefresh(t *testing.T) {
	// One client is shared by every conversation's worker goroutine, so the
	// session handshake must be safe when several calls race through it.
	// All goroutines start without a session id and hit the 409 at once.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Transmission-Session-Id") != "shared-sid" {
			w.Header().Set("X-Transmission-Session-Id", "shared-sid")
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":"success","arguments":{"torrents":[]}}`)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	c := NewClient(u.Hostname(), port, "", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := c.List(context.Background(), ClassDownloading)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "shared-sid", c.sessionID)
}

func TestClient_Add(t *testing.T) {
	d := &fakeDaemon{t: t, sessionID: "sid", respond: func(method string, args json.RawMessage) (string, any) {
		var a struct {
			Filename    string `json:"filename"`
			DownloadDir string `json:"download-dir"`
			Paused      bool   `json:"paused"`
		}
		require.NoError(t, json.Unmarshal(args, &a))
		assert.Equal(t, "https://example.com/a.torrent", a.Filename)
		assert.Equal(t, "/movies", a.DownloadDir)
		assert.True(t, a.Paused)
		return "success", map[string]any{
			"torrent-added": map[string]any{"id": 42, "name": "A Movie"},
		}
	}}
	c, srv := newTestClient(t, d)
	defer srv.Close()

	item, err := c.Add(context.Background(), "https://example.com/a.torrent", "Movie")
	require.NoError(t, err)
	assert.Equal(t, int64(42), item.ID)
	assert.Equal(t, "A Movie", item.Name)
}

func TestClient_AddDuplicate(t *testing.T) {
	d := &fakeDaemon{t: t, sessionID: "sid", respond: func(method string, _ json.RawMessage) (string, any) {
		return "success", map[string]any{
			"torrent-duplicate": map[string]any{"id": 7, "name": "Seen Before"},
		}
	}}
	c, srv := newTestClient(t, d)
	defer srv.Close()

	item, err := c.Add(context.Background(), "https://example.com/a.torrent", "Other")
	require.NoError(t, err)
	assert.Equal(t, "Seen Before", item.Name)
}

func TestClient_ListFiltersByClass(t *testing.T) {
	d := &fakeDaemon{t: t, sessionID: "sid", respond: func(method string, _ json.RawMessage) (string, any) {
		return "success", map[string]any{"torrents": []map[string]any{
			{"id": 1, "name": "dl", "status": codeDownloading},
			{"id": 2, "name": "seed", "status": codeSeeding},
			{"id": 3, "name": "stopped", "status": codeStopped},
			{"id": 4, "name": "checking", "status": codeChecking},
			{"id": 5, "name": "queued", "status": codeDownloadWait},
		}}
	}}
	c, srv := newTestClient(t, d)
	defer srv.Close()

	dl, err := c.List(context.Background(), ClassDownloading)
	require.NoError(t, err)
	require.Len(t, dl, 1)
	assert.Equal(t, "dl", dl[0].Name)

	// Paused class includes stopped and checking sub-statuses.
	paused, err := c.List(context.Background(), ClassPaused)
	require.NoError(t, err)
	require.Len(t, paused, 2)
	assert.Equal(t, "stopped", paused[0].Name)
	assert.Equal(t, "checking", paused[1].Name)
}

func TestClient_ListEmpty(t *testing.T) {
	d := &fakeDaemon{t: t, sessionID: "sid", respond: func(method string, _ json.RawMessage) (string, any) {
		return "success", map[string]any{"torrents": []any{}}
	}}
	c, srv := newTestClient(t, d)
	defer srv.Close()

	items, err := c.List(context.Background(), ClassPaused)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClient_GetNotFound(t *testing.T) {
	d := &fakeDaemon{t: t, sessionID: "sid", respond: func(method string, _ json.RawMessage) (string, any) {
		return "success", map[string]any{"torrents": []any{}}
	}}
	c, srv := newTestClient(t, d)
	defer srv.Close()

	_, err := c.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestClient_ControlMethods(t *testing.T) {
	d := &fakeDaemon{t: t, sessionID: "sid", respond: func(method string, _ json.RawMessage) (string, any) {
		return "success", map[string]any{}
	}}
	c, srv := newTestClient(t, d)
	defer srv.Close()

	require.NoError(t, c.Control(context.Background(), 5, OpStart))
	require.NoError(t, c.Control(context.Background(), 5, OpPause))

	var methods []string
	for _, r := range d.requests {
		methods = append(methods, r.Method)
	}
	assert.Contains(t, methods, "torrent-start")
	assert.Contains(t, methods, "torrent-stop")
}

func TestClient_Remove(t *testing.T) {
	var gotDelete bool
	d := &fakeDaemon{t: t, sessionID: "sid"}
	d.respond = func(method string, args json.RawMessage) (string, any) {
		var a struct {
			DeleteLocalData bool `json:"delete-local-data"`
		}
		require.NoError(t, json.Unmarshal(args, &a))
		gotDelete = a.DeleteLocalData
		return "success", map[string]any{}
	}
	c, srv := newTestClient(t, d)
	defer srv.Close()

	require.NoError(t, c.Remove(context.Background(), 5, true))
	assert.True(t, gotDelete)

	require.NoError(t, c.Remove(context.Background(), 5, false))
	assert.False(t, gotDelete)
}

func TestClient_DaemonFailure(t *testing.T) {
	d := &fakeDaemon{t: t, sessionID: "sid", respond: func(method string, _ json.RawMessage) (string, any) {
		return "something went wrong", map[string]any{}
	}}
	c, srv := newTestClient(t, d)
	defer srv.Close()

	_, err := c.List(context.Background(), ClassDownloading)
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "torrent-get", remoteErr.Op)
}

func TestClient_Unreachable(t *testing.T) {
	c := NewClient("127.0.0.1", 1, "", "")

	_, err := c.List(context.Background(), ClassDownloading)
	var remoteErr *RemoteError
	assert.ErrorAs(t, err, &remoteErr)
}

func TestClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	c := NewClient(u.Hostname(), port, "", "")

	_, err := c.List(context.Background(), ClassDownloading)
	var remoteErr *RemoteError
	assert.ErrorAs(t, err, &remoteErr)
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		code int
		want Status
	}{
		{codeStopped, StatusPaused},
		{codeCheckWait, StatusPaused},
		{codeChecking, StatusPaused},
		{codeDownloadWait, StatusQueued},
		{codeDownloading, StatusDownloading},
		{codeSeedWait, StatusQueued},
		{codeSeeding, StatusSeeding},
		{99, StatusError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeStatus(tt.code), "code %d", tt.code)
	}
}

func TestCategoryDir(t *testing.T) {
	assert.Equal(t, "/movies", CategoryDir("Movie"))
	assert.Equal(t, "/movies", CategoryDir("movie"))
	assert.Equal(t, "/tvshows", CategoryDir("TV Show"))
	assert.Equal(t, "/other", CategoryDir("Other"))
	// Unrecognized text falls back, no error.
	assert.Equal(t, "/other", CategoryDir("documentary"))
	assert.Equal(t, "/other", CategoryDir(""))
}

func TestParseClass(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want StatusClass
		ok   bool
	}{
		{"Downloading", ClassDownloading, true},
		{"seeding", ClassSeeding, true},
		{" Paused ", ClassPaused, true},
		{"stalled", "", false},
	} {
		got, ok := ParseClass(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
