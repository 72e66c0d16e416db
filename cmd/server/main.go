package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mangavault/internal/api"
	"mangavault/internal/config"
	"mangavault/internal/metrics"
	"mangavault/internal/notification"
	"mangavault/internal/notify"
	"mangavault/internal/storage"
	"mangavault/pkg/database"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfgPath := os.Getenv("MANGAVAULT_CONFIG")
	if cfgPath == "" {
		cfgPath = "./config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	gin.SetMode(cfg.GinMode)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("create data dir", zap.Error(err))
		}
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	if cfg.SeedFile != "" {
		if _, err := os.Stat(cfg.SeedFile); err == nil {
			seedFromFile(db, cfg.SeedFile, logger)
		} else {
			logger.Warn("seed file not found, skipping", zap.String("path", cfg.SeedFile))
		}
	}

	ctx := context.Background()
	store, presigner := buildStorage(ctx, cfg.Storage, logger)

	hub := notify.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	deps := &api.Deps{
		DB:                 db,
		Logger:             logger,
		JWTSecret:          []byte(cfg.JWTSecret),
		Store:              store,
		Presigner:          presigner,
		MaxUploadBytes:     cfg.Storage.MaxUploadBytes,
		Fanout:             notification.NewFanout(db, logger, hub),
		Hub:                hub,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	metrics.Register(r)
	deps.Routes(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP API listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

// buildStorage selects GCS when a bucket is configured, otherwise the
// in-memory store (dev only). With GCS, proxied uploads fail over to the
// memory store only in debug mode; in release the GCS error surfaces.
func buildStorage(ctx context.Context, cfg config.Storage, logger *zap.Logger) (storage.Strategy, storage.Presigner) {
	if cfg.Bucket == "" {
		logger.Warn("no storage bucket configured, using in-memory store")
		mem := storage.NewMemoryStore("http://localhost/blob", cfg.MaxUploadBytes)
		return mem, nil
	}

	gcs, err := storage.NewGCSStore(ctx, storage.GCSConfig{
		Bucket:          cfg.Bucket,
		CredentialsFile: cfg.CredentialsFile,
		PublicBaseURL:   cfg.PublicBaseURL,
		MaxUploadBytes:  cfg.MaxUploadBytes,
	})
	if err != nil {
		logger.Fatal("init GCS storage", zap.Error(err))
	}

	if gin.Mode() == gin.DebugMode {
		mem := storage.NewMemoryStore("http://localhost/blob", cfg.MaxUploadBytes)
		fb := storage.NewFallback(gcs, mem, logger, metrics.StorageFallbacks.Inc)
		return fb, gcs
	}
	return gcs, gcs
}

// seedFromFile imports the fetch-anilist output under a reserved library
// account that cannot be logged into.
func seedFromFile(db *sql.DB, path string, logger *zap.Logger) {
	list, err := database.LoadSeedFile(path)
	if err != nil {
		logger.Error("load seed file", zap.Error(err))
		return
	}

	ownerID := uuid.NewString()
	// "!" is not a bcrypt hash, so password checks always fail.
	_, err = db.Exec(`INSERT OR IGNORE INTO users (id, username, email, password_hash, role)
		VALUES (?, 'library', 'library@localhost', '!', 'uploader')`, ownerID)
	if err != nil {
		logger.Error("create seed owner", zap.Error(err))
		return
	}
	if err := db.QueryRow(`SELECT id FROM users WHERE username = 'library'`).Scan(&ownerID); err != nil {
		logger.Error("resolve seed owner", zap.Error(err))
		return
	}

	n, err := database.SeedManga(db, list, ownerID)
	if err != nil {
		logger.Error("seed manga", zap.Error(err))
		return
	}
	logger.Info("seeded manga", zap.Int("inserted", n), zap.String("file", path))
}
