package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"healthsync/internal/agent"
	"healthsync/internal/config"
	"healthsync/internal/conversation"
	"healthsync/internal/feedback"
	"healthsync/internal/observability"
	"healthsync/internal/platform/telegram"
	"healthsync/internal/report"
	"healthsync/internal/session"
	"healthsync/internal/translate"
)

func main() {
	log := observability.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config error", "error", err)
		os.Exit(1)
	}
	observability.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Infrastructure
	var db *sql.DB
	feedbackRepo := feedback.NewMemoryRepository()
	if cfg.DatabaseURL != "" {
		db, err = connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn("could not connect to database, feedback kept in memory", "error", err)
		} else {
			defer db.Close()
			runMigrations(cfg.MigrationsPath, cfg.DatabaseURL)
			feedbackRepo = feedback.NewRepository(db)
		}
	}

	// 2. Clients
	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		log.Error("completion client init failed", "error", err)
		os.Exit(1)
	}

	var translator translate.Translator
	if cfg.TranslateURL != "" {
		translator = agent.NewTranslateClient(cfg.TranslateURL, cfg.TranslateAPIKey)
	} else {
		log.Info("TRANSLATE_URL not set, messages are passed through untranslated")
	}

	var tgClient report.TelegramClient
	if tg := telegram.NewClient(cfg.TelegramBotToken); tg.Configured() {
		tgClient = tg
	}
	if tgClient == nil || cfg.AlertChatID == 0 {
		log.Info("telegram alerts disabled; set TELEGRAM_BOT_TOKEN and ALERT_CHAT_ID to enable")
	}

	// 3. Services
	store := session.NewStore(cfg.SessionTTL)
	go store.RunJanitor(ctx, time.Minute)

	reportSvc := report.NewService(tgClient, cfg.AlertChatID, cfg.ReportFontPath)
	sessionSvc := session.NewService(
		store,
		conversation.NewOrchestrator(completer, cfg.CompletionTimeout),
		translate.NewService(translator),
		reportSvc,
		feedbackRepo,
		cfg.WindowSize,
	)

	// 4. Router
	var pinger Pinger
	if db != nil {
		pinger = db
	}
	router := setupRouter(session.NewHandler(sessionSvc), feedback.NewHandler(feedbackRepo), pinger)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A chat request may wait for the model plus two translations.
		WriteTimeout: cfg.CompletionTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()
	log.Info("server listening", "port", cfg.Port, "provider", cfg.Provider)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func connectDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// The database container may still be starting.
	for i := 0; i < 10; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			observability.Logger().Info("connected to database")
			return db, nil
		}
		observability.Logger().Info("waiting for database", "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	db.Close()
	return nil, fmt.Errorf("ping db: %w", err)
}

func runMigrations(source, dbURL string) {
	log := observability.Logger()
	m, err := migrate.New(source, dbURL)
	if err != nil {
		log.Error("migration init failed", "error", err)
		return
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("migration up failed", "error", err)
		return
	}
	log.Info("migrations applied")
}

func newCompleter(ctx context.Context, cfg *config.Config) (conversation.Completer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return agent.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature)
	case config.ProviderMock:
		return agent.NewMockClient(), nil
	default:
		return agent.NewGroqClient(cfg.GroqAPIKey, agent.GroqOptions{
			BaseURL:     cfg.GroqBaseURL,
			Model:       cfg.GroqModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.CompletionTimeout,
		}), nil
	}
}
