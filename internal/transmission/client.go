// ABOUTME: Transmission RPC client for torrentbutler
// ABOUTME: Typed add/list/get/control/remove operations over the JSON-RPC HTTP endpoint

package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// itemFields is the torrent-get field set we request. Matches what the
// reply formatters need; nothing more is fetched.
var itemFields = []string{
	"id", "name", "addedDate", "status",
	"eta", "peersConnected", "percentDone", "sizeWhenDone", "leftUntilDone",
	"rateDownload", "rateUpload", "uploadRatio",
}

// RemoteError wraps any transport or protocol failure talking to the
// Transmission daemon. The dialogue engine matches on it to turn remote
// failures into a generic user-facing message.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("transmission %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Item mirrors one torrent tracked by the daemon. Read-only: mutation goes
// through client calls targeting ID.
type Item struct {
	ID           int64
	Name         string
	AddedAt      time.Time
	Status       Status
	Progress     float64 // completion fraction, 0..1
	DownloadRate int64   // bytes/sec
	UploadRate   int64   // bytes/sec
	Peers        int
	ETA          int64 // seconds; negative means unknown
	Ratio        float64
	SizeWhenDone int64
	LeftUntil    int64
}

// ETAKnown reports whether the daemon provided a usable ETA.
func (i Item) ETAKnown() bool { return i.ETA >= 0 }

// Op is a control operation on an existing torrent.
type Op string

const (
	OpStart Op = "start"
	OpPause Op = "pause"
)

// Client talks to a single Transmission daemon over its RPC endpoint.
// Stateless apart from the CSRF session id, which is refreshed on demand.
// Safe for concurrent use: events for different conversations share one
// client.
type Client struct {
	endpoint string
	username string
	password string
	http     *http.Client

	mu        sync.Mutex
	sessionID string
}

// NewClient creates a client for the daemon at host:port with basic auth.
func NewClient(host string, port int, username, password string) *Client {
	return &Client{
		endpoint: fmt.Sprintf("http://%s:%d/transmission/rpc", host, port),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// rpcRequest is the Transmission RPC envelope.
type rpcRequest struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments,omitempty"`
}

type rpcResponse struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
}

// wireItem is the torrent object as the daemon serializes it.
type wireItem struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	AddedDate      int64   `json:"addedDate"`
	Status         int     `json:"status"`
	ETA            int64   `json:"eta"`
	PeersConnected int     `json:"peersConnected"`
	PercentDone    float64 `json:"percentDone"`
	SizeWhenDone   int64   `json:"sizeWhenDone"`
	LeftUntilDone  int64   `json:"leftUntilDone"`
	RateDownload   int64   `json:"rateDownload"`
	RateUpload     int64   `json:"rateUpload"`
	UploadRatio    float64 `json:"uploadRatio"`
}

func (w wireItem) toItem() Item {
	return Item{
		ID:           w.ID,
		Name:         w.Name,
		AddedAt:      time.Unix(w.AddedDate, 0),
		Status:       normalizeStatus(w.Status),
		Progress:     w.PercentDone,
		DownloadRate: w.RateDownload,
		UploadRate:   w.RateUpload,
		Peers:        w.PeersConnected,
		ETA:          w.ETA,
		Ratio:        w.UploadRatio,
		SizeWhenDone: w.SizeWhenDone,
		LeftUntil:    w.LeftUntilDone,
	}
}

// Add submits a source URI for download. The destination directory comes
// from the category mapping; unknown categories land in the catch-all.
// The torrent is added paused so the user can start it deliberately.
func (c *Client) Add(ctx context.Context, sourceURL, category string) (Item, error) {
	args := map[string]any{
		"filename":     sourceURL,
		"download-dir": CategoryDir(category),
		"paused":       true,
	}

	raw, err := c.call(ctx, "torrent-add", args)
	if err != nil {
		return Item{}, err
	}

	// The daemon reports a re-added torrent under "torrent-duplicate".
	var out struct {
		Added     *wireItem `json:"torrent-added"`
		Duplicate *wireItem `json:"torrent-duplicate"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Item{}, &RemoteError{Op: "torrent-add", Err: err}
	}

	switch {
	case out.Added != nil:
		return out.Added.toItem(), nil
	case out.Duplicate != nil:
		return out.Duplicate.toItem(), nil
	default:
		return Item{}, &RemoteError{Op: "torrent-add", Err: fmt.Errorf("no torrent in response")}
	}
}

// List returns the torrents in the given status class, in daemon order.
func (c *Client) List(ctx context.Context, class StatusClass) ([]Item, error) {
	raw, err := c.call(ctx, "torrent-get", map[string]any{"fields": itemFields})
	if err != nil {
		return nil, err
	}

	var out struct {
		Torrents []wireItem `json:"torrents"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &RemoteError{Op: "torrent-get", Err: err}
	}

	var items []Item
	for _, w := range out.Torrents {
		item := w.toItem()
		if class.Contains(item.Status) {
			items = append(items, item)
		}
	}
	return items, nil
}

// Get fetches a single torrent by id. ErrItemNotFound when the id is not
// tracked by the daemon.
func (c *Client) Get(ctx context.Context, id int64) (Item, error) {
	args := map[string]any{"ids": []int64{id}, "fields": itemFields}
	raw, err := c.call(ctx, "torrent-get", args)
	if err != nil {
		return Item{}, err
	}

	var out struct {
		Torrents []wireItem `json:"torrents"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Item{}, &RemoteError{Op: "torrent-get", Err: err}
	}
	if len(out.Torrents) == 0 {
		return Item{}, ErrItemNotFound
	}
	return out.Torrents[0].toItem(), nil
}

// Control starts or pauses a torrent by id.
func (c *Client) Control(ctx context.Context, id int64, op Op) error {
	var method string
	switch op {
	case OpStart:
		method = "torrent-start"
	case OpPause:
		method = "torrent-stop"
	default:
		return fmt.Errorf("unknown operation %q", op)
	}

	_, err := c.call(ctx, method, map[string]any{"ids": []int64{id}})
	return err
}

// Remove deletes a torrent from the daemon, optionally with its data.
func (c *Client) Remove(ctx context.Context, id int64, deleteData bool) error {
	args := map[string]any{
		"ids":               []int64{id},
		"delete-local-data": deleteData,
	}
	_, err := c.call(ctx, "torrent-remove", args)
	return err
}

// call performs one RPC round trip, transparently refreshing the CSRF
// session id on a 409 and retrying once. All failures come back as
// *RemoteError.
func (c *Client) call(ctx context.Context, method string, args any) (json.RawMessage, error) {
	raw, status, err := c.post(ctx, method, args)
	if err != nil {
		return nil, &RemoteError{Op: method, Err: err}
	}
	if status == http.StatusConflict {
		raw, status, err = c.post(ctx, method, args)
		if err != nil {
			return nil, &RemoteError{Op: method, Err: err}
		}
	}
	if status != http.StatusOK {
		return nil, &RemoteError{Op: method, Err: fmt.Errorf("status %d", status)}
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RemoteError{Op: method, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if resp.Result != "success" {
		return nil, &RemoteError{Op: method, Err: fmt.Errorf("daemon result: %s", resp.Result)}
	}
	return resp.Arguments, nil
}

// post sends one HTTP request, capturing a refreshed session id if the
// daemon rotates it.
func (c *Client) post(ctx context.Context, method string, args any) ([]byte, int, error) {
	body, err := json.Marshal(rpcRequest{Method: method, Arguments: args})
	if err != nil {
		return nil, 0, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.mu.Lock()
	sid := c.sessionID
	c.mu.Unlock()
	if sid != "" {
		req.Header.Set("X-Transmission-Session-Id", sid)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("X-Transmission-Session-Id"); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}
	return raw, resp.StatusCode, nil
}
