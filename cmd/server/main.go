package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/scmmishra/clickboard/internal/cache"
	"github.com/scmmishra/clickboard/internal/config"
	"github.com/scmmishra/clickboard/internal/handlers"
	"github.com/scmmishra/clickboard/internal/linkly"
	"github.com/scmmishra/clickboard/internal/notify"
	"github.com/scmmishra/clickboard/internal/report"
	"github.com/scmmishra/clickboard/internal/stats"
	"github.com/scmmishra/clickboard/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client, err := linkly.NewClient(linkly.Options{
		BaseURL:   cfg.APIURL,
		Workspace: cfg.WorkspaceID,
		APIKey:    cfg.APIKey,
		AuthMode:  linkly.AuthMode(cfg.AuthMode),
		Timeout:   cfg.RequestTimeout,
		Logger:    log.Default(),
	})
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	seriesCache, err := cache.New(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}

	notices := notify.NewCenter(0)

	svc := stats.NewService(client, stats.Config{
		Location:    cfg.Location,
		PageSize:    cfg.PageSize,
		Concurrency: cfg.Concurrency,
		Cache:       seriesCache,
		Notifier:    notices,
		Logger:      log.Default(),
	})

	view := report.NewView(svc, cfg.RefreshInterval, log.Default())

	statsHandler := &handlers.StatsHandler{
		View:     view,
		Notices:  notices,
		Location: cfg.Location,
	}

	reportHandler, err := web.NewReportHandler(view, notices, cfg.Location)
	if err != nil {
		log.Fatalf("web: %v", err)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	statsHandler.RegisterRoutes(r)
	reportHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("clickboard listening on :%s (workspace %s, refresh every %s)", cfg.Port, cfg.WorkspaceID, cfg.RefreshInterval)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-stop
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	view.Shutdown()
	log.Println("goodbye")
}
