package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hls-gateway/internal/gateway"
	"hls-gateway/internal/platform/config"
	"hls-gateway/internal/platform/logger"
	"hls-gateway/internal/platform/metrics"
	"hls-gateway/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	rateLimitRPS := config.GetEnvInt("RATE_LIMIT_RPS", 0)

	log := logger.New(logLevel, logFormat)
	ctx := context.Background()

	var repo gateway.AssetRepository
	if dbPath := config.GetEnv("ASSET_DB_PATH", ""); dbPath != "" {
		sqlRepo, err := gateway.OpenSQLiteAssetRepository(dbPath)
		if err != nil {
			log.Error("open asset repository", "error", err)
			os.Exit(1)
		}
		defer sqlRepo.Close()
		repo = sqlRepo
	} else {
		log.Warn("ASSET_DB_PATH not set, serving from an empty in-memory asset repository")
		repo = gateway.NewInMemoryAssetRepository()
	}

	var store storage.ObjectStore
	if bucket := config.GetEnv("S3_BUCKET", ""); bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          bucket,
			Region:          config.GetEnv("S3_REGION", "us-east-1"),
			Endpoint:        config.GetEnv("S3_ENDPOINT", ""),
			ForcePathStyle:  config.GetEnvBool("S3_FORCE_PATH_STYLE", false),
			AccessKeyID:     config.GetEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: config.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		})
		if err != nil {
			log.Error("connect object store", "error", err)
			os.Exit(1)
		}
		store = s3Store
	} else {
		log.Warn("S3_BUCKET not set, serving from an empty in-memory object store")
		store = storage.NewMemoryStore()
	}

	met := metrics.New()
	h := gateway.NewHandler(repo, store, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(cors.Handler(cors.Options{
		// Browser players on other origins fetch manifests and segments
		// directly; the origin is echoed back with credentials allowed.
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Accept", "Range"},
		ExposedHeaders:   []string{"Accept-Ranges", "Content-Range", "Content-Length", "ETag"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() {
			if n, err := repo.ReadyCount(req.Context()); err == nil {
				met.SetReadyAssets(n)
			}
		}).ServeHTTP(w, req)
	})
	r.Route("/media/{asset_id}", func(r chi.Router) {
		if rateLimitRPS > 0 {
			r.Use(httprate.LimitByIP(rateLimitRPS, time.Second))
		}
		r.Get("/master.m3u8", h.GetMasterManifest)
		r.Get("/variants/{file}", h.GetVariantPlaylist)
		r.Get("/segments/{file}", h.GetSegment)
	})

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
		"rate_limit_rps", rateLimitRPS,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
