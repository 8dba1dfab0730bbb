package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/loopmatch/internal/adapters/badgercache"
	"github.com/ewilliams-labs/loopmatch/internal/adapters/rest"
	"github.com/ewilliams-labs/loopmatch/internal/analysis/extractor"
	"github.com/ewilliams-labs/loopmatch/internal/analysis/fallback"
	"github.com/ewilliams-labs/loopmatch/internal/app"
	"github.com/ewilliams-labs/loopmatch/internal/config"
	"github.com/ewilliams-labs/loopmatch/internal/core/ports"
	"github.com/ewilliams-labs/loopmatch/internal/core/services"
	"github.com/ewilliams-labs/loopmatch/internal/logging"
)

func main() {
	// 1. Configuration (Environment Variables)
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// 2. Initialize "Driven" Adapters (The Tools)
	// -- Decoder
	decoder, err := app.NewDecoder(cfg.Decoder, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build decoder")
	}

	// -- Catalog
	catalog, closeCatalog, err := app.OpenCatalog(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.CatalogDriver).Msg("failed to open catalog")
	}
	defer closeCatalog()

	// -- Analysis cache, only when a directory is configured
	var cache ports.AnalysisCache
	if cfg.CacheDir != "" {
		c, err := badgercache.Open(cfg.CacheDir, cfg.CacheTTL, log)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.CacheDir).Msg("failed to open analysis cache")
		}
		defer c.Close()
		cache = c
	}

	// 3. Initialize Core Logic (The Driver)
	svc := services.NewOrchestrator(services.Deps{
		Limits:   cfg.Decoder.Limits,
		Decoder:  decoder,
		Primary:  extractor.New(cfg.AnalysisMaxSeconds, log),
		Fallback: fallback.New(),
		Catalog:  catalog,
		Cache:    cache,
	}, log)

	// 4. Initialize "Driving" Adapter (The Interface)
	gin.SetMode(cfg.GinMode)
	handler := rest.NewHandler(svc, rest.Options{
		CORSOrigins: cfg.CORSOrigins,
		Limits:      cfg.Decoder.Limits,
	}, log)

	// 5. Start the Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	log.Info().
		Str("addr", srv.Addr).
		Str("catalog", cfg.CatalogDriver).
		Str("decoder", cfg.Decoder.Mode).
		Bool("ffmpeg", cfg.Decoder.FFmpegPath != "").
		Bool("cache", cache != nil).
		Msg("loopmatch API is running")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}
}
