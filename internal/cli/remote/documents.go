package remote

import (
	"SupplyRun/internal/cli/api"
	"SupplyRun/internal/cli/lists"
	"SupplyRun/internal/cli/session"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type addRequest struct {
	Fields           map[string]any `json:"fields"`
	ServerTimestamps []string       `json:"server_timestamps,omitempty"`
}

type addResponse struct {
	ID string `json:"id"`
}

type snapshotFrame struct {
	Type      string `json:"type"`
	Documents []struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"documents"`
}

func (f snapshotFrame) documents() []lists.Document {
	docs := make([]lists.Document, 0, len(f.Documents))
	for _, d := range f.Documents {
		docs = append(docs, lists.Document{ID: d.ID, Fields: d.Fields})
	}
	return docs
}

// Add writes one document into the collection at path.
func (c *Client) Add(ctx context.Context, id session.Identity, path string, fields map[string]any, serverTimestamps []string) (string, error) {
	var res addResponse
	err := c.api.Do(ctx, http.MethodPost, api.Join(c.baseURL, "/api/documents/"+path),
		addRequest{Fields: fields, ServerTimestamps: serverTimestamps}, id.Token, &res)
	if err != nil {
		return "", c.writeError(id, err)
	}
	return res.ID, nil
}

// Snapshot reads the current documents of the collection at path once.
func (c *Client) Snapshot(ctx context.Context, id session.Identity, path string) ([]lists.Document, error) {
	var frame snapshotFrame
	if err := c.api.Do(ctx, http.MethodGet, api.Join(c.baseURL, "/api/documents/"+path), nil, id.Token, &frame); err != nil {
		return nil, c.writeError(id, err)
	}
	return frame.documents(), nil
}

func (c *Client) writeError(id session.Identity, err error) error {
	if u := unavailable(err); u != nil {
		return &lists.WriteError{Reason: u}
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case api.CodePermissionDenied:
		return &lists.WriteError{Reason: lists.ErrPermissionDenied}
	case api.CodeResourceExhausted:
		return &lists.WriteError{Reason: lists.ErrQuotaExceeded}
	case api.CodeInvalidArgument:
		return &lists.WriteError{Reason: fmt.Errorf("%w: %s", lists.ErrInvalidArgument, apiErr.Message)}
	}
	if sessionRejected(err) {
		c.authLost(id.UID)
		return &lists.WriteError{Reason: lists.ErrUnauthenticated}
	}
	return &lists.WriteError{Reason: err}
}

// Listen keeps a websocket feed of the collection at path open, pushing
// every snapshot into sink. Dropped connections are retried no more often
// than once per reconnect timeout. Rejections of the session or of access
// end the feed with an error.
func (c *Client) Listen(ctx context.Context, id session.Identity, path string, sink lists.Sink) error {
	u := wsURL(c.baseURL) + "/api/listen/" + path
	headers := api.Headers(c.api.Project, id.Token)

	sink.Connectivity(lists.Connecting)
	for {
		started := time.Now()
		err := c.listenOnce(ctx, u, headers, sink)
		if ctx.Err() != nil {
			return nil
		}
		if terminal := c.feedError(id, err); terminal != nil {
			return terminal
		}
		c.logger.Infow("list feed disconnected", "path", path, "error", err)
		sink.Connectivity(lists.Reconnecting)

		wait := c.reconnectTimeout - time.Since(started)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (c *Client) listenOnce(ctx context.Context, url string, headers http.Header, sink lists.Sink) error {
	ws, resp, err := c.dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return api.DecodeError(resp)
		}
		return fmt.Errorf("%w: %v", api.ErrUnreachable, err)
	}
	defer ws.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			ws.Close()
		case <-done:
		}
	}()

	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(c.readTimeout))
		err := ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	sink.Connectivity(lists.Live)
	for {
		_ = ws.SetReadDeadline(time.Now().Add(c.readTimeout))
		_, msg, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		var frame snapshotFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			c.logger.Warnw("list feed: bad frame", "error", err)
			continue
		}
		if frame.Type != "snapshot" {
			continue
		}
		sink.Snapshot(frame.documents())
	}
}

// feedError returns the error that ends a feed, or nil when it should be retried.
func (c *Client) feedError(id session.Identity, err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		switch ce.Code {
		case closeUnauthenticated:
			c.authLost(id.UID)
			return lists.ErrUnauthenticated
		case closePermissionDenied:
			return lists.ErrPermissionDenied
		}
		return nil
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status >= http.StatusInternalServerError {
		return nil
	}
	if sessionRejected(err) {
		c.authLost(id.UID)
		return lists.ErrUnauthenticated
	}
	switch apiErr.Code {
	case api.CodePermissionDenied:
		return lists.ErrPermissionDenied
	case api.CodeInvalidArgument:
		return fmt.Errorf("%w: %s", lists.ErrInvalidArgument, apiErr.Message)
	}
	return apiErr
}

func wsURL(base string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
