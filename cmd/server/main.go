package main

import (
	"SupplyRun/internal/config"
	"SupplyRun/internal/handlers"
	"SupplyRun/internal/hub"
	"SupplyRun/internal/middleware"
	"SupplyRun/internal/repo"
	"SupplyRun/internal/service"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	middleware.SetLogger(sugar)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, sugar); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}

func run(cfg *config.Config, sugar *zap.SugaredLogger) error {
	if err := cfg.Project.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		return err
	}

	userService := service.NewUserService(
		repo.NewUserRepository(gormDB),
		repo.NewSessionRepository(gormDB),
		service.AuthOptionsFromConfig(cfg),
	)
	documentService := service.NewDocumentService(repo.NewDocumentRepository(gormDB), hub.New(), cfg.MaxDocuments)

	h := handlers.NewHandler(userService, documentService, sugar, cfg)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"ProjectID", cfg.Project.ProjectID,
		"StorageBucket", cfg.Project.StorageBucket,
		"MaxDocuments", cfg.MaxDocuments,
		"ExternalCredentials", cfg.ExternalTokenSecret != "",
	)

	srv := &http.Server{
		Addr:              cfg.BaseURL,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
		// hijacked listen sockets are not tracked by Shutdown; they end with ctx
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sugar.Infow("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
