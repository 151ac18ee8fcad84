// Package remote talks to the SupplyRun backend: the identity endpoints
// and the document store with its live feed.
package remote

import (
	"SupplyRun/internal/cli/api"
	"SupplyRun/internal/cli/session"
	"SupplyRun/internal/config"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Close codes sent by the listen endpoint.
const (
	closeUnauthenticated  = 4401
	closePermissionDenied = 4403
)

// Client implements session.IdentityProvider and lists.DocumentStore.
type Client struct {
	authURL string
	baseURL string

	api    *api.Client
	dialer *websocket.Dialer
	logger *zap.SugaredLogger

	reconnectTimeout time.Duration
	readTimeout      time.Duration

	mu         sync.Mutex
	onAuthLost func(uid string)
}

// New creates a Client for the servers in cfg. logger may be nil.
func New(cfg *config.Config, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = cfg.ServerURL
	}
	reconnect := cfg.ReconnectTimeout
	if reconnect <= 0 {
		reconnect = 5 * time.Second
	}
	return &Client{
		authURL: authURL,
		baseURL: cfg.ServerURL,
		api: &api.Client{
			HTTP:    &http.Client{Timeout: 30 * time.Second},
			Project: cfg.Project,
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		logger:           logger,
		reconnectTimeout: reconnect,
		readTimeout:      time.Minute,
	}
}

// OnUnauthenticated registers fn to run when the backend rejects the token
// of uid as expired or revoked.
func (c *Client) OnUnauthenticated(fn func(uid string)) {
	c.mu.Lock()
	c.onAuthLost = fn
	c.mu.Unlock()
}

func (c *Client) authLost(uid string) {
	c.mu.Lock()
	fn := c.onAuthLost
	c.mu.Unlock()
	if fn != nil {
		fn(uid)
	}
}

// sessionRejected reports whether err means the token no longer opens a session.
func sessionRejected(err error) bool {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == api.CodeTokenExpired || apiErr.Code == api.CodeUnauthenticated
}

// unavailable folds transport failures and backend faults into
// session.ErrNetworkUnavailable. It returns nil for anything else.
func unavailable(err error) error {
	if errors.Is(err, api.ErrUnreachable) {
		return fmt.Errorf("%w (%v)", session.ErrNetworkUnavailable, err)
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status >= http.StatusInternalServerError {
		return fmt.Errorf("%w (%v)", session.ErrNetworkUnavailable, apiErr)
	}
	return nil
}
