package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bifrotek/voicebridge/internal/config"
	"github.com/bifrotek/voicebridge/internal/handler"
	"github.com/bifrotek/voicebridge/internal/service/assistant"
	"github.com/bifrotek/voicebridge/internal/service/brand"
	"github.com/bifrotek/voicebridge/internal/service/session"
	"github.com/bifrotek/voicebridge/internal/service/shortener"
	"github.com/bifrotek/voicebridge/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Redis is optional: without it, session routing degrades to
	// process-local memory and keeps working for a single worker.
	var external store.Store
	if cfg.Redis.Enabled() {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := store.DialRedis(dialCtx, cfg.Redis.URL)
		cancel()
		if err != nil {
			log.Printf("warning: redis unavailable, falling back to in-memory sessions: %v", err)
		} else {
			log.Println("connected to redis session store")
			external = rdb
		}
	} else {
		log.Println("REDIS_URL not set, using in-memory session store")
	}

	manager := config.NewManager(cfg.EnvFile)

	sessions := session.NewService(external)
	assistantSvc := assistant.NewService(cfg.Provider.BaseURL, cfg.Provider.PrivateKey)
	shortenerSvc := shortener.NewService(manager.Shortener())

	router, err := handler.NewRouter(handler.Deps{
		Sessions:  sessions,
		Assistant: assistantSvc,
		Shortener: shortenerSvc,
		Manager:   manager,
		Colors:    brand.NewExtractor(),
	})
	if err != nil {
		log.Fatalf("failed to build router: %v", err)
	}

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("voicebridge listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
