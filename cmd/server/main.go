package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"hlsproxy/internal/api"
	"hlsproxy/internal/cache"
	"hlsproxy/internal/platform/config"
	"hlsproxy/internal/platform/cors"
	"hlsproxy/internal/platform/logger"
	"hlsproxy/internal/platform/metrics"
	"hlsproxy/internal/proxy"
	"hlsproxy/internal/scraper"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	log := logger.New(logLevel, logFormat)

	met := metrics.New()

	proxyHost := config.GetEnv("PROXY_HOST", "")
	defaultReferer := config.GetEnv("DEFAULT_REFERER", "")

	guard := proxy.NewGuard(proxyHost)
	fetcher := proxy.NewFetcher(guard, defaultReferer)

	var remote cache.Backend
	if backendURL := config.GetEnv("CACHE_BACKEND_URL", ""); backendURL != "" {
		remote = cache.NewHTTPBackend(backendURL, config.GetEnv("CACHE_BACKEND_TOKEN", ""), 5*time.Second)
	}
	cacheTier := cache.New(cache.Config{
		PlaylistCapacity: config.GetEnvInt("PLAYLIST_CACHE_CAPACITY", 2000),
		PlaylistTTL:      config.GetEnvDuration("PLAYLIST_CACHE_TTL", 12*time.Second),
		SegmentCapacity:  config.GetEnvInt("SEGMENT_CACHE_CAPACITY", 20000),
		SegmentTTL:       config.GetEnvDuration("SEGMENT_CACHE_TTL", 86400*time.Second),
	}, remote, log, met)

	endpoint := config.GetEnv("PROXY_ENDPOINT", "/m3u8")

	var builder proxy.URLBuilder
	var signer *proxy.Signer
	if config.GetEnvBool("SIGNED_URLS_ENABLED", false) {
		secret := config.GetEnv("URL_SIGNING_SECRET", "")
		if secret == "" {
			log.Error("SIGNED_URLS_ENABLED is set but URL_SIGNING_SECRET is empty")
			os.Exit(1)
		}
		signer = proxy.NewSigner(secret, config.GetEnvInt("SIGNED_URL_HANDLE_CAPACITY", 100000), 600*time.Second)
		builder = proxy.SignedBuilder{Endpoint: endpoint, Signer: signer}
	} else {
		builder = proxy.PassthroughBuilder{Endpoint: endpoint}
	}

	pipeline := &proxy.Pipeline{
		Guard:   guard,
		Fetcher: fetcher,
		Cache:   cacheTier,
		Builder: builder,
		Log:     log,
		Met:     met,
	}
	proxyHandler := &proxy.Handler{Pipeline: pipeline, Signer: signer}

	scraperBaseURL := config.GetEnv("SCRAPER_BASE_URL", "http://localhost:4000")
	scraperClient := scraper.NewClient(scraperBaseURL, config.GetEnvDuration("SCRAPER_TIMEOUT", 15*time.Second))
	scraperCache := scraper.NewCache()
	prewarmer := scraper.NewPrewarmer(scraperClient, scraperCache, log, met)
	apiHandlers := &api.Handlers{Client: scraperClient, Cache: scraperCache, Prewarmer: prewarmer}

	corsCfg := cors.Config{AllowedOrigins: config.GetEnv("CORS_ALLOWED_ORIGINS", "*")}

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(cors.Middleware(corsCfg))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", met.Handler().ServeHTTP)

	r.Handle(endpoint, proxyHandler)

	r.Route("/episode", func(r chi.Router) {
		r.Get("/servers", apiHandlers.Servers)
		r.Get("/sources", apiHandlers.Sources)
		r.Post("/prewarm", apiHandlers.Prewarm)
	})
	r.Get("/anime/{id}", apiHandlers.Anime)
	r.Get("/search", apiHandlers.Search)
	r.Get("/home", apiHandlers.Home)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"log_level", logLevel,
		"signed_urls", signer != nil,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
