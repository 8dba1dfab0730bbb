// Command loopscan indexes a folder of loops into the SQLite catalog and
// analyzes the ones whose names do not give away tempo and key.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/ewilliams-labs/loopmatch/internal/adapters/badgercache"
	"github.com/ewilliams-labs/loopmatch/internal/adapters/sqlite"
	"github.com/ewilliams-labs/loopmatch/internal/analysis/extractor"
	"github.com/ewilliams-labs/loopmatch/internal/app"
	"github.com/ewilliams-labs/loopmatch/internal/config"
	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
	"github.com/ewilliams-labs/loopmatch/internal/core/ports"
	"github.com/ewilliams-labs/loopmatch/internal/core/services"
	"github.com/ewilliams-labs/loopmatch/internal/logging"
	"github.com/ewilliams-labs/loopmatch/internal/worker"
)

func main() {
	// 1. Configuration: environment first, flags override
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	var (
		dir       = flag.String("dir", "", "folder of loops to index (required)")
		dbPath    = flag.String("db", cfg.SQLitePath, "sqlite catalog path")
		urlPrefix = flag.String("url-prefix", "/loops", "prefix for catalog audio URLs")
		workers   = flag.Int("workers", cfg.Workers, "concurrent analyses")
		analyze   = flag.Bool("analyze", true, "analyze loops missing tempo or key")
		force     = flag.Bool("force", false, "re-analyze every loop")
	)
	flag.Parse()

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Catalog
	store, err := sqlite.NewAdapter(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("failed to open catalog")
	}
	defer store.Close()

	// 3. Index the folder
	scanned, err := collect(*dir, *urlPrefix, cfg.Decoder.Limits, log)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("scan failed")
	}
	items := make([]domain.CatalogItem, 0, len(scanned))
	for _, e := range scanned {
		items = append(items, e.item)
	}
	if err := store.SaveSamples(ctx, items); err != nil {
		log.Fatal().Err(err).Msg("failed to save samples")
	}
	log.Info().Int("samples", len(items)).Str("db", *dbPath).Msg("indexed loops")

	if !*analyze {
		return
	}

	// 4. Analyze what the filenames did not tell us
	stored, err := store.ListSamples(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to reload catalog")
	}
	jobs := pending(stored, scanned, *force)
	if len(jobs) == 0 {
		log.Info().Msg("nothing to analyze")
		return
	}

	decoder, err := app.NewDecoder(cfg.Decoder, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build decoder")
	}
	var cache ports.AnalysisCache
	if cfg.CacheDir != "" {
		c, err := badgercache.Open(cfg.CacheDir, cfg.CacheTTL, log)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.CacheDir).Msg("failed to open analysis cache")
		}
		defer c.Close()
		cache = c
	}
	svc := services.NewOrchestrator(services.Deps{
		Limits:  cfg.Decoder.Limits,
		Decoder: decoder,
		Primary: extractor.New(cfg.AnalysisMaxSeconds, log),
		Catalog: store,
		Cache:   cache,
	}, log)

	bar := progressbar.Default(int64(len(jobs)), "analyzing")
	var failed, fallbacks atomic.Int64

	pool := worker.NewPool(ctx, svc, store, cfg.QueueSize, log)
	pool.OnResult(func(r worker.Result) {
		_ = bar.Add(1)
		switch {
		case r.Err != nil:
			failed.Add(1)
		case r.Engine == domain.EngineFallback:
			fallbacks.Add(1)
		}
	})
	pool.Start(*workers)

	for _, job := range jobs {
		if err := pool.SubmitWait(ctx, job); err != nil {
			log.Warn().Err(err).Msg("stopped submitting jobs")
			break
		}
	}
	pool.Stop()
	_ = bar.Finish()

	log.Info().
		Int("jobs", len(jobs)).
		Int64("failed", failed.Load()).
		Int64("fallback", fallbacks.Load()).
		Msg("analysis finished")
}
