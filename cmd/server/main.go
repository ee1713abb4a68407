package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"mapchat.app/server/common/id"
	"mapchat.app/server/common/llm"
	"mapchat.app/server/common/logger"
	"mapchat.app/server/common/otel"
	"mapchat.app/server/core/config"
	"mapchat.app/server/internal/http/middleware"
	httprouter "mapchat.app/server/internal/http/router"
	"mapchat.app/server/internal/http/session"
	"mapchat.app/server/internal/service"
	"mapchat.app/server/internal/service/sourcehost"
	"mapchat.app/server/internal/store"
	"mapchat.app/server/web"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	}

	slog.InfoContext(ctx, "mapchat starting", "env", cfg.Env)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	conversations, err := newConversationStore(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize conversation store", "error", err)
		os.Exit(1)
	}

	repoCache, err := newRepoCache(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize repository cache", "error", err)
		os.Exit(1)
	}

	client, err := llm.NewClient(llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize llm client", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "llm client ready", "provider", cfg.LLM.Provider, "model", client.Model())

	links := sourcehost.NewLinkService(repoCache,
		sourcehost.NewGitHubHost(cfg.GitHub),
		sourcehost.NewGitLabHost(cfg.GitLab),
	)
	slog.InfoContext(ctx, "account linking configured",
		"github", cfg.GitHub.Enabled(), "gitlab", cfg.GitLab.Enabled())
	chat := service.NewChatService(conversations, links, client, cfg.LLM.MaxTokens)

	sessions, err := session.NewManager(cfg.Session, cfg.IsProduction())
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize session manager", "error", err)
		os.Exit(1)
	}

	static, err := web.Static()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load embedded frontend", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// Order matters: OTel creates span, Recovery catches panics, Logger
	// logs with trace context.
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, chat, links, sessions, httprouter.RouterConfig{
		AppOrigin: cfg.AppBaseURL,
		Static:    static,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// newConversationStore prefers Postgres when configured and falls back
// to the in-memory store for single-instance deployments.
func newConversationStore(ctx context.Context, cfg config.Config) (store.ConversationStore, error) {
	if cfg.DatabaseURL != "" {
		s, err := store.NewPostgresConversationStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "conversation store: postgres")
		return s, nil
	}
	slog.InfoContext(ctx, "conversation store: in-memory")
	return store.NewMemoryConversationStore(), nil
}

func newRepoCache(ctx context.Context, cfg config.Config) (store.RepoCache, error) {
	if cfg.RedisURL != "" {
		c, err := store.NewRedisRepoCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "repository cache: redis")
		return c, nil
	}
	slog.InfoContext(ctx, "repository cache: in-memory")
	return store.NewMemoryRepoCache(), nil
}
