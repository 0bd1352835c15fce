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

	"autoshutdown/api/internal/acl"
	"autoshutdown/api/internal/app"
	"autoshutdown/api/internal/authz"
	"autoshutdown/api/internal/config"
	"autoshutdown/api/internal/identity"
	"autoshutdown/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	aclList, err := acl.LoadFile(cfg.ACLPath)
	if err != nil {
		log.Fatalf("acl load failed: %v", err)
	}
	log.Printf("loaded acl with %d allowed users", len(aclList.Users))

	var cache *authz.PrincipalCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		cache, err = authz.NewPrincipalCache(cfg.RedisURL, cfg.PrincipalCacheTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer cache.Close()
		log.Printf("principal lookups cached in redis for %s", cfg.PrincipalCacheTTL)
	} else {
		log.Printf("no redis configured, principal lookups uncached")
	}

	authorizer := authz.NewRemote(identity.NewClient(cfg.IdentityURL), aclList, cache)
	service := app.New(store.NewPostgresStore(db), authorizer)

	httpServer := app.NewHTTPServer(service)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("auto-shutdown rules API listening on %s", cfg.Addr)
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
