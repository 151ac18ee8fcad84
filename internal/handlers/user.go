package handlers

import (
	"SupplyRun/internal/config"
	"SupplyRun/internal/middleware"
	"SupplyRun/internal/service"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// UserHandler serves the identity provider endpoints.
type UserHandler struct {
	UserService *service.UserService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

func NewUserHandler(userService *service.UserService, logger *zap.SugaredLogger, cfg *config.Config) *UserHandler {
	return &UserHandler{UserService: userService, Logger: logger, Config: cfg}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type externalRequest struct {
	IDToken string `json:"id_token"`
}

// IdentityResponse describes a signed-in account.
type IdentityResponse struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email,omitempty"`
	Provider  string    `json:"provider"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *UserHandler) respondSession(w http.ResponseWriter, status int, res *service.AuthResult) {
	middleware.SetLoginCookie(w, res.Token, res.Principal.ExpiresAt)
	writeJSON(w, status, IdentityResponse{
		UID:       res.Principal.UserID,
		Email:     res.Principal.Email,
		Provider:  res.Principal.Provider,
		Token:     res.Token,
		ExpiresAt: res.Principal.ExpiresAt,
	})
}

// SignUp creates a password account.
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("SignUp: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, CodeInvalidArgument, "invalid request")
		return
	}

	res, err := h.UserService.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logAuthFailure("SignUp", err)
		writeServiceError(w, err)
		return
	}
	h.Logger.Infow("account created", "uid", res.Principal.UserID)
	h.respondSession(w, http.StatusCreated, res)
}

// Login signs in with email and password.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Login: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, CodeInvalidArgument, "invalid request")
		return
	}

	res, err := h.UserService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logAuthFailure("Login", err)
		writeServiceError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK, res)
}

// External exchanges a third-party identity token for a session.
func (h *UserHandler) External(w http.ResponseWriter, r *http.Request) {
	var req externalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidIDToken, "id_token is required")
		return
	}

	res, err := h.UserService.ExchangeExternal(r.Context(), req.IDToken)
	if err != nil {
		h.logAuthFailure("External", err)
		writeServiceError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK, res)
}

// Session reports the identity behind the presented token.
func (h *UserHandler) Session(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePrincipal(w, r); !ok {
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())
	writeJSON(w, http.StatusOK, IdentityResponse{
		UID:       p.UserID,
		Email:     p.Email,
		Provider:  p.Provider,
		ExpiresAt: p.ExpiresAt,
	})
}

// Logout revokes the session behind the presented token. Logging out
// without a valid session succeeds so clients can always clear local state.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearLoginCookie(w)
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.UserService.SignOut(r.Context(), p.SessionID); err != nil {
		h.Logger.Errorw("Logout: revoke failed", "uid", p.UserID, "error", err)
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) logAuthFailure(op string, err error) {
	if status, _ := errorStatus(err); status >= http.StatusInternalServerError {
		h.Logger.Errorw(op+": service error", "error", err)
		return
	}
	h.Logger.Infow(op+": rejected", "reason", err)
}
