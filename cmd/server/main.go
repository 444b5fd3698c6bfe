package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrewy1n/platypus-academy/internal/app"
	"github.com/andrewy1n/platypus-academy/internal/config"
	"github.com/andrewy1n/platypus-academy/internal/logger"
	"github.com/andrewy1n/platypus-academy/internal/transport/rest"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("AI config",
		"provider", cfg.AI.Provider,
		"extract_model", cfg.AI.Models.Extract,
		"validate_model", cfg.AI.Models.Validate,
		"judge_model", cfg.AI.Models.Judge,
		"assistant_model", cfg.AI.Models.Assistant,
		"enabled", cfg.AI.IsEnabled(),
	)

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			slog.Warn("error while closing connections", "error", err)
		}
	}()

	router := rest.NewRouter(application.Container)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		slog.Info("endpoints",
			"sessions", "POST /v1/sessions/create, GET /v1/sessions/{id}[/questions]",
			"questions", "GET /v1/questions/{id}, POST /v1/questions/{id}/save-answer",
			"grading", "POST /v1/grade/{question,session}/{id}, POST /v1/grade/free-response",
			"users", "POST /v1/users/create, GET /v1/users/{id}[/sessions|/stats]",
			"assistant", "POST /v1/assistant, GET /v1/assistant/{conversationId}",
			"pipelines", "POST /v1/pipelines, WS /v1/ws/pipelines/{runId}",
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server exited")
}
