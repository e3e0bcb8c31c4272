package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	v1 "github.com/jaennil/tileserve/internal/infrastructure/http/v1"
	"github.com/jaennil/tileserve/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/tileserve/internal/repository/content"
	"github.com/jaennil/tileserve/internal/repository/tiles"
	"github.com/jaennil/tileserve/internal/style"
	"github.com/jaennil/tileserve/internal/usecase"
	"github.com/jaennil/tileserve/pkg/config"
	"github.com/jaennil/tileserve/pkg/http_server"
	"github.com/jaennil/tileserve/pkg/logger"
	"github.com/jaennil/tileserve/pkg/metrics"
	"github.com/jaennil/tileserve/pkg/telemetry"
	"github.com/jaennil/tileserve/web"
)

const (
	staticModeDisk  = "disk"
	staticModeCache = "cache"
)

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(cfg.Logger.Level)
	defer l.Sync()

	l.Info("starting tileserve",
		"source", cfg.Tiles.Source,
		"static", cfg.Static.Dir,
		"static_mode", cfg.Static.Mode,
		"optimal_compression", cfg.Compression.Optimal,
		"redis", cfg.Redis.Enabled,
	)

	ctx := logger.WithLogger(context.Background(), l)

	// Initialize OpenTelemetry if enabled
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize telemetry", "error", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", "error", err)
			}
		}()
		l.Info("telemetry initialized", "service", cfg.Telemetry.ServiceName)
	}

	cache, err := buildCache(cfg, l)
	if err != nil {
		l.Fatal("failed to build static content cache", "error", err)
	}
	metrics.CacheEntries.Set(float64(cache.Len()))
	l.Info("static content cached", "entries", cache.Len())

	src, err := openTileSource(cfg, l)
	if err != nil {
		l.Fatal("failed to open tile source", "source", cfg.Tiles.Source, "error", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			l.Error("failed to close tile source", "error", err)
		}
	}()

	styleOpts := style.Options{
		BaseURL:  cfg.ResolvedBaseURL(),
		TilesURL: cfg.Tiles.URL,
		Glyphs:   cfg.Tiles.Glyphs,
		Sprites:  []style.Sprite{{ID: "basics", URL: cfg.Tiles.Sprites}},
	}

	tileUseCase, err := usecase.NewTileUseCase(ctx, src, style.NewGuesser(), styleOpts, cfg.Tiles.TMS, l)
	if err != nil {
		l.Fatal("failed to initialize tile layer", "error", err)
	}
	transcodeUseCase := usecase.NewTranscodeUseCase(cfg.Compression.Optimal, l)

	var static *content.Dir
	if cfg.Static.Dir != "" && cfg.Static.Mode == staticModeDisk {
		static, err = content.NewDir(cfg.Static.Dir)
		if err != nil {
			l.Fatal("failed to open static directory", "error", err)
		}
		l.Info("serving static files from disk", "dir", static.Root())
	}

	gin.SetMode(gin.ReleaseMode)

	h := handler.NewHandler(tileUseCase, transcodeUseCase, cache, static)
	router := v1.NewRouter(h, l, v1.RouterOptions{
		TelemetryEnabled: cfg.Telemetry.Enabled,
		ServiceName:      cfg.Telemetry.ServiceName,
	})

	server := http_server.NewServer(ctx, cfg.HTTP.Server, router)

	// Start server
	go func() {
		l.Info("starting http server", "address", server.Addr, "url", cfg.ResolvedBaseURL())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error("server forced to shutdown", "error", err)
		return
	}

	l.Info("server stopped")
}

// buildCache loads the bundled assets and, in cache mode, the user static
// directory on top of them.
func buildCache(cfg *config.Config, l logger.Logger) (*content.Cache, error) {
	cache := content.NewCache(l)

	assets, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, err
	}
	if err := cache.InsertFS("/", assets); err != nil {
		return nil, fmt.Errorf("failed to load bundled assets: %w", err)
	}

	if cfg.Static.Dir != "" && cfg.Static.Mode == staticModeCache {
		if err := cache.InsertDirectory("/", cfg.Static.Dir); err != nil {
			return nil, err
		}
	}

	return cache, nil
}

func openTileSource(cfg *config.Config, l logger.Logger) (tiles.Source, error) {
	src, err := tiles.Open(tiles.Options{
		Source:      cfg.Tiles.Source,
		Format:      cfg.Tiles.Format,
		Compression: cfg.Tiles.Compression,
		Timeout:     cfg.HTTP.Timeout,
	}, l)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.Redis.Enabled:
		redisCache, err := tiles.NewRedisCache(tiles.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			TTL:       cfg.Redis.TTL,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			src.Close()
			return nil, err
		}
		l.Info("redis tile cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		return tiles.NewCachedSource(src, redisCache, l), nil

	case cfg.Tiles.MemoryCache:
		l.Info("in-memory tile cache enabled")
		return tiles.NewCachedSource(src, tiles.NewMapCache(), l), nil
	}

	return src, nil
}
