package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "taskchat/internal/app"
	chat "taskchat/internal/chat"
	httpx "taskchat/internal/http"
	upload "taskchat/internal/upload"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Upload storage; the one fatal startup error
	store, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Error("upload.store", "err", err)
		log.Fatal(err)
	}
	pipe := upload.NewPipeline(store, cfg.BaseURL, cfg.MaxUploadBytes, cfg.MaxFilesPerUpload)
	uploads := upload.NewHandler(logger, pipe)

	// Session hub over the in-memory room table
	table := chat.NewTable(cfg.HistoryLimit)
	hub := chat.NewHub(logger, table)
	go hub.Run(ctx, cfg.RoomIdleTTL)

	// HTTP + WS router
	router := httpx.NewRouter(cfg, logger, hub, uploads, store.Dir())
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
