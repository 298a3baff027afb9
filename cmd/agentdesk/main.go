package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/jask/agentdesk/internal/agentapi"
	"github.com/jask/agentdesk/internal/config"
	"github.com/jask/agentdesk/internal/conversation"
	"github.com/jask/agentdesk/internal/database"
	"github.com/jask/agentdesk/internal/database/repository"
	"github.com/jask/agentdesk/internal/logging"
	"github.com/jask/agentdesk/internal/secrets"
	"github.com/jask/agentdesk/internal/session"
	"github.com/jask/agentdesk/internal/submission"
	"github.com/jask/agentdesk/internal/teardown"
	"github.com/jask/agentdesk/internal/tui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, logCloser, err := logging.New(logging.Config{Path: cfg.Log.Path, Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	// SIGHUP covers the terminal closing, the closest thing to a tab closing.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("session store: %v", err)
	}
	defer closeStore.Close()

	httpClient, err := agentapi.NewHTTPClient()
	if err != nil {
		log.Fatalf("http client: %v", err)
	}
	client, err := agentapi.NewClient(cfg.Server.BaseURL, httpClient)
	if err != nil {
		log.Fatalf("agent client: %v", err)
	}

	sessionID := session.ResolveID(cfg.Session.ID)
	cache := session.NewCache(store, secrets.NewSealer("session-credential"), sessionID)
	gate := session.NewGate(cache, client, logger)
	convo := conversation.NewLog()
	controller := submission.NewController(gate, convo, client, submission.Options{
		Timeout: cfg.Server.RequestTimeout,
		Logger:  logger,
	})
	notifier := teardown.New(client, cfg.Server.TeardownTimeout, logger)

	logger.Info("starting", "backend", cfg.Server.BaseURL, "session_store", cfg.Session.Store, "session_id", sessionID)

	model := tui.New(ctx, tui.Deps{
		Gate:       gate,
		Log:        convo,
		Controller: controller,
		Notifier:   notifier,
		Health:     client,
		Examples:   cfg.UI.Examples,
		Logger:     logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, runErr := p.Run()

	// Signals end the program without going through the quit key.
	notifier.Fire()
	if !notifier.Wait(notifier.Timeout()) {
		logger.Warn("stop-browser still in flight at exit")
	}
	if runErr != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

// openStore picks the credential store named by session.store.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (session.Store, io.Closer, error) {
	switch cfg.Session.Store {
	case config.StoreRedis:
		store, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Session.TTL)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.StoreMemory:
		return session.NewMemoryStore(), closeFunc(func() error { return nil }), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Session.Path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("mkdir session dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Session.Path); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Session.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	store := session.NewSQLiteStore(repository.NewCredentialRepo(db), cfg.Session.TTL)
	if n, err := store.Prune(ctx); err != nil {
		logger.Warn("prune expired credentials", "error", err)
	} else if n > 0 {
		logger.Info("pruned expired credentials", "count", n)
	}
	return store, db, nil
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }
