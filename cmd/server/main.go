package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"Agora/internal/api/middleware"
	"Agora/internal/api/routes"
	"Agora/internal/app"
	"Agora/internal/config"
	"Agora/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (default $AGORA_CONFIG or ./config.toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slogger := logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, slogger)
	if err != nil {
		log.Fatal("Failed to initialize identity engine:", err)
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			log.Printf("Failed to close cache backend: %v", closeErr)
		}
	}()

	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	// Rate limiting: requests per minute per IP
	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimit, 1*time.Minute)
	defer rateLimiter.Close()
	r.Use(rateLimiter.Middleware)

	// Mount XRPC routes
	routes.RegisterIdentityRoutes(r, application.Engine, cfg.Server.CORSOrigins, slogger)
	routes.RegisterThreadRoutes(r, cfg.Server.CORSOrigins)
	routes.RegisterHealthRoutes(r, application.Engine)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	slogger.Info("Agora AppView starting",
		"addr", cfg.Server.Addr,
		"cache", cfg.Cache.Backend,
		"networks", application.Networks.Names())

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Server error: %v", err)
	}
}
