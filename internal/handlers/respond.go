package handlers

import (
	"SupplyRun/internal/service"
	"encoding/json"
	"errors"
	"net/http"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// writeJSON marshals v and writes it with the given status. If marshaling
// fails a 500 is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL","message":"internal server error"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// Error codes shared with the client.
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
	CodeInternal           = "INTERNAL"
)

var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrMissingCredentials, http.StatusBadRequest, CodeMissingCredentials},
	{service.ErrEmailExists, http.StatusConflict, CodeEmailExists},
	{service.ErrWeakPassword, http.StatusBadRequest, CodeWeakPassword},
	{service.ErrEmailNotFound, http.StatusNotFound, CodeEmailNotFound},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
	{service.ErrInvalidIDToken, http.StatusUnauthorized, CodeInvalidIDToken},
	{service.ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired},
	{service.ErrPermissionDenied, http.StatusForbidden, CodePermissionDenied},
	{service.ErrInvalidPath, http.StatusBadRequest, CodeInvalidArgument},
	{service.ErrInvalidArgument, http.StatusBadRequest, CodeInvalidArgument},
	{service.ErrQuotaExceeded, http.StatusTooManyRequests, CodeResourceExhausted},
}

// errorStatus maps a service error to its HTTP status and code.
func errorStatus(err error) (int, string) {
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, code, msg)
}
