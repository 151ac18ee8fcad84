package handlers

import (
	"SupplyRun/internal/config"
	"SupplyRun/internal/middleware"
	"SupplyRun/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler wires the identity and document endpoints.
func NewHandler(
	userService *service.UserService,
	documentService *service.DocumentService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)

	userHandler := NewUserHandler(userService, logger, config)
	documentHandler := NewDocumentHandler(documentService, userService, logger, config)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.WithProject(config.Project))
		r.Use(middleware.WithAuth(userService))

		r.Post("/auth/signup", userHandler.SignUp)
		r.Post("/auth/login", userHandler.Login)
		r.Post("/auth/external", userHandler.External)
		r.Get("/auth/session", userHandler.Session)
		r.Post("/auth/logout", userHandler.Logout)

		r.Post("/documents/*", documentHandler.Add)
		r.Get("/documents/*", documentHandler.List)
		r.Get("/listen/*", documentHandler.Listen)
	})

	return &Handler{Router: r}
}

// requirePrincipal answers 401 unless the request carries a valid token.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.GetUserIDFromContext(r.Context())
	if ok {
		return uid, true
	}
	if err := middleware.GetAuthError(r.Context()); err != nil {
		writeServiceError(w, err)
		return "", false
	}
	writeError(w, http.StatusUnauthorized, CodeUnauthenticated, "sign in required")
	return "", false
}
