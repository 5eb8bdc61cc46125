package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/astlabs/run-portal/internal/api"
	"github.com/astlabs/run-portal/internal/auth"
	"github.com/astlabs/run-portal/internal/blob"
	"github.com/astlabs/run-portal/internal/config"
	"github.com/astlabs/run-portal/internal/draft"
	"github.com/astlabs/run-portal/internal/fabric"
	"github.com/astlabs/run-portal/internal/runs"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	log.Println("Starting run portal...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	log.Println("✓ Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gate := auth.NewGate(cfg.AuthPassword, cfg.Production())

	uploader, err := blob.NewMinioUploader(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to create blob uploader: %v", err)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := uploader.EnsureBucket(startupCtx); err != nil {
		log.Fatalf("Failed to prepare blob bucket: %v", err)
	}
	log.Printf("✓ Blob storage ready (bucket %q)", cfg.Storage.Container)

	jobs, err := fabric.NewClient(cfg.Fabric)
	if err != nil {
		log.Fatalf("Failed to create job client: %v", err)
	}
	log.Println("✓ Job client initialized")

	records, err := runs.NewPostgresStore(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer records.Close()
	if err := records.EnsureSchema(startupCtx); err != nil {
		log.Fatalf("Failed to prepare database schema: %v", err)
	}
	log.Println("✓ Run record store ready")

	drafts := draft.NewStore(cfg.DraftTTL)
	log.Printf("✓ Draft store initialized (TTL %s)", cfg.DraftTTL)

	handler := api.NewHandler(gate, uploader, jobs, records, drafts, cfg.StaticDir)
	router := handler.SetupRoutes()
	log.Println("✓ HTTP routes configured")

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return drafts.Sweep(gctx, time.Minute)
	})

	g.Go(func() error {
		log.Printf("🚀 Server starting on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("⏳ Shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}
