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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/mwalcott/reqtrack/internal/adapter/driven/github"
	"github.com/mwalcott/reqtrack/internal/adapter/driven/identity"
	sqliteadapter "github.com/mwalcott/reqtrack/internal/adapter/driven/sqlite"
	"github.com/mwalcott/reqtrack/internal/adapter/driven/tracker"
	"github.com/mwalcott/reqtrack/internal/adapter/driving/web"
	"github.com/mwalcott/reqtrack/internal/application"
	"github.com/mwalcott/reqtrack/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing identity provider settings).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"api_base_url", cfg.APIBaseURL,
		"db_path", cfg.DBPath,
		"token_cache", len(cfg.SecretKey) > 0,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire the token cache and session manager.
	tokenStore := sqliteadapter.NewTokenRepo(db, cfg.SecretKey)
	if len(cfg.SecretKey) == 0 {
		slog.Warn("REQTRACK_SECRET_KEY not set, refresh tokens will not survive restarts")
	}

	session := identity.NewManager(identity.Config{
		AuthURL:     cfg.OAuthAuthURL,
		TokenURL:    cfg.OAuthTokenURL,
		LogoutURL:   cfg.OAuthLogoutURL,
		ClientID:    cfg.OAuthClientID,
		Scopes:      cfg.OAuthScopes,
		RedirectURL: cfg.OAuthRedirectURL,
	}, tokenStore, slog.Default())

	// 6. Wire the typed tracker client with the auth transport.
	trackerClient := tracker.NewClient(cfg.APIBaseURL, session, nil)

	// 7. Create the issue lookup (may be nil when no GitHub token configured).
	var issueLookup *githubadapter.Client
	if cfg.GitHubToken != "" {
		issueLookup = githubadapter.NewClient(cfg.GitHubToken)
		slog.Info("github issue lookup enabled")
	} else {
		slog.Info("no github token configured, linked issues render without live state")
	}
	provider := application.NewIssueLookupProvider(nil)
	if issueLookup != nil {
		provider.Replace(issueLookup)
	}

	// 8. Create the web shell.
	webHandler, err := web.NewHandler(trackerClient, session, provider, slog.Default())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           webHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("reqtrack started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
