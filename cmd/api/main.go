package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"waypost/internal/app"
	"waypost/internal/backup"
	"waypost/internal/config"
	"waypost/internal/search"
	"waypost/internal/session"
	"waypost/internal/store"
	"waypost/internal/web"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	renderer, err := web.New()
	if err != nil {
		log.Fatalf("template setup failed: %v", err)
	}

	var service *app.Service
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		// Keep serving so the misconfiguration surfaces as a descriptive
		// per-request error instead of a crash loop.
		log.Printf("WARNING: DATABASE_URL not set; requests will fail with a configuration error")
		service = app.New(cfg, nil, nil)
	} else {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := store.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("schema setup failed: %v", err)
		}

		dataStore := store.NewPostgresStore(db)

		if strings.TrimSpace(cfg.RedisURL) != "" {
			log.Printf("Using Redis for admin session storage")
			redisStore, err := session.NewRedisStore(cfg.RedisURL)
			if err != nil {
				log.Fatalf("redis connection failed: %v", err)
			}
			defer redisStore.Close()
			service = app.New(cfg, dataStore, redisStore)
		} else {
			log.Printf("Using PostgreSQL for admin session storage")
			service = app.New(cfg, dataStore, dataStore)
		}

		var meiliClient *search.Meili
		if strings.TrimSpace(cfg.MeiliURL) != "" {
			meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
			defer meiliClient.Close()
		}
		searchService := search.NewService(meiliClient, search.NewPgLinks(db))
		service.WithSearch(searchService)
		searchService.Reindex(ctx)
	}

	if strings.TrimSpace(cfg.BackupEndpoint) != "" {
		archiver, err := backup.NewArchiver(cfg.BackupEndpoint, cfg.BackupAccessKey, cfg.BackupSecretKey, cfg.BackupBucket, cfg.BackupUseSSL)
		if err != nil {
			log.Printf("WARNING: backup storage unavailable: %v", err)
		} else if err := archiver.EnsureBucket(ctx); err != nil {
			log.Printf("WARNING: backup bucket setup failed: %v", err)
		} else {
			service.WithArchiver(archiver)
		}
	}

	httpServer := app.NewHTTPServer(service, renderer, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Waypost listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
