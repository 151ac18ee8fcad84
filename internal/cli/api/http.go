// Package api is the HTTP plumbing shared by the backend clients.
package api

import (
	"SupplyRun/internal/config"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Project headers sent with every backend request.
const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderProjectID = "X-Project-Id"
	HeaderAppID     = "X-App-Id"
)

// Backend error codes.
const (
	CodeMissingCredentials = "MISSING_CREDENTIALS"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeEmailNotFound      = "EMAIL_NOT_FOUND"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidIDToken     = "INVALID_ID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeResourceExhausted  = "RESOURCE_EXHAUSTED"
	CodeAPIKeyInvalid      = "API_KEY_INVALID"
)

// ErrUnreachable wraps transport failures: the request never got an answer.
var ErrUnreachable = errors.New("backend unreachable")

// Error is a non-2xx answer of the backend.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Headers builds the request headers for project and an optional bearer token.
func Headers(p config.Project, token string) http.Header {
	h := http.Header{}
	h.Set(HeaderAPIKey, p.APIKey)
	h.Set(HeaderProjectID, p.ProjectID)
	if p.AppID != "" {
		h.Set(HeaderAppID, p.AppID)
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// Client sends JSON requests on behalf of one project.
type Client struct {
	HTTP    *http.Client
	Project config.Project
}

// Do sends payload (if any) as JSON and decodes a 2xx body into out (if any).
func (c *Client) Do(ctx context.Context, method, url string, payload any, token string, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header = Headers(c.Project, token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return DecodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// DecodeError reads the error envelope of resp. Bodies that are not an
// envelope are kept as the message.
func DecodeError(resp *http.Response) *Error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &Error{Status: resp.StatusCode}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(b, &env) == nil && env.Error.Code != "" {
		e.Code, e.Message = env.Error.Code, env.Error.Message
		return e
	}
	e.Message = strings.TrimSpace(string(b))
	return e
}

// Join appends path to base, avoiding a doubled slash.
func Join(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
