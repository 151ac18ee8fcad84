package handlers

import (
	"SupplyRun/internal/config"
	"SupplyRun/internal/middleware"
	"SupplyRun/internal/service"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Websocket close codes of the listen endpoint.
const (
	CloseUnauthenticated  = 4401
	ClosePermissionDenied = 4403
)

const writeWait = 10 * time.Second

// DocumentHandler serves collection writes, reads and live snapshots.
type DocumentHandler struct {
	DocumentService *service.DocumentService
	Auth            middleware.TokenVerifier
	Logger          *zap.SugaredLogger
	Config          *config.Config

	upgrader websocket.Upgrader
}

func NewDocumentHandler(documentService *service.DocumentService, auth middleware.TokenVerifier, logger *zap.SugaredLogger, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		DocumentService: documentService,
		Auth:            auth,
		Logger:          logger,
		Config:          cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// clients authenticate with the project key and a bearer token, not cookies
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// AddRequest is one document write.
type AddRequest struct {
	Fields           map[string]any `json:"fields"`
	ServerTimestamps []string       `json:"server_timestamps,omitempty"`
}

// AddResponse carries the id assigned to a new document.
type AddResponse struct {
	ID string `json:"id"`
}

// SnapshotFrame is the body of a snapshot read and of every listen message.
type SnapshotFrame struct {
	Type      string                 `json:"type"`
	Documents []service.DocumentView `json:"documents"`
}

// Add commits one document into the collection named by the route wildcard.
func (h *DocumentHandler) Add(w http.ResponseWriter, r *http.Request) {
	uid, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req AddRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2*service.MaxDocumentBytes)).Decode(&req); err != nil {
		h.Logger.Warnw("Add: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, CodeInvalidArgument, "invalid request")
		return
	}

	path := chi.URLParam(r, "*")
	view, err := h.DocumentService.Add(r.Context(), uid, path, req.Fields, req.ServerTimestamps)
	if err != nil {
		if status, _ := errorStatus(err); status >= http.StatusInternalServerError {
			h.Logger.Errorw("Add: service error", "uid", uid, "path", path, "error", err)
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddResponse{ID: view.ID})
}

// List returns the current snapshot of a collection.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	docs, err := h.DocumentService.Snapshot(r.Context(), uid, chi.URLParam(r, "*"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotFrame{Type: "snapshot", Documents: docs})
}

// Listen upgrades to a websocket that pushes a full snapshot on connect and
// after every change of the collection. The session is re-checked on every
// ping; a revoked or expired session closes the socket with CloseUnauthenticated.
func (h *DocumentHandler) Listen(w http.ResponseWriter, r *http.Request) {
	uid, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	token, _ := middleware.GetToken(r.Context())
	collection, err := h.DocumentService.Authorize(uid, chi.URLParam(r, "*"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warnw("Listen: upgrade failed", "uid", uid, "error", err)
		return
	}
	defer ws.Close()

	changes, unsubscribe := h.DocumentService.Watch(collection)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ping := h.Config.ListenPingInterval
	if ping <= 0 {
		ping = 15 * time.Second
	}
	pongWait := 2 * ping

	// reader: nothing is expected from the client except control frames
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		docs, err := h.DocumentService.Snapshot(ctx, uid, collection)
		if err != nil {
			return err
		}
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		return ws.WriteJSON(SnapshotFrame{Type: "snapshot", Documents: docs})
	}

	h.Logger.Infow("listener attached", "uid", uid, "collection", collection)
	defer h.Logger.Infow("listener detached", "uid", uid, "collection", collection)

	if err := send(); err != nil {
		h.closeOnError(ws, err)
		return
	}

	ticker := time.NewTicker(ping)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			if err := send(); err != nil {
				h.closeOnError(ws, err)
				return
			}
		case <-ticker.C:
			if _, err := h.Auth.Authenticate(ctx, token); err != nil {
				h.closeOnError(ws, err)
				return
			}
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *DocumentHandler) closeOnError(ws *websocket.Conn, err error) {
	code, text := websocket.CloseInternalServerErr, "internal error"
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		code, text = CloseUnauthenticated, CodeTokenExpired
	case errors.Is(err, service.ErrPermissionDenied):
		code, text = ClosePermissionDenied, CodePermissionDenied
	case errors.Is(err, context.Canceled):
		return
	default:
		h.Logger.Warnw("Listen: closing after error", "error", err)
	}
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
