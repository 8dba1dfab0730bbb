package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/loopmatch/internal/analysis/fallback"
	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
	"github.com/ewilliams-labs/loopmatch/internal/core/ports"
	"github.com/ewilliams-labs/loopmatch/internal/core/query"
	"github.com/ewilliams-labs/loopmatch/internal/core/scoring"
)

// SilenceThreshold is the decoded peak below which a clip counts as silent.
const SilenceThreshold = 1e-4

// Deps are the ports the Orchestrator drives. Primary and Cache may be nil;
// a nil Fallback gets the built-in estimator.
type Deps struct {
	Limits   domain.Limits
	Decoder  ports.AudioDecoder
	Primary  ports.FeatureExtractor
	Fallback ports.FeatureExtractor
	Catalog  ports.CatalogRepository
	Cache    ports.AnalysisCache
}

// Orchestrator coordinates decoding, feature extraction and catalog ranking.
type Orchestrator struct {
	limits   domain.Limits
	decoder  ports.AudioDecoder
	primary  ports.FeatureExtractor
	fallback ports.FeatureExtractor
	catalog  ports.CatalogRepository
	cache    ports.AnalysisCache
	log      zerolog.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(deps Deps, log zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		limits:   deps.Limits,
		decoder:  deps.Decoder,
		primary:  deps.Primary,
		fallback: deps.Fallback,
		catalog:  deps.Catalog,
		cache:    deps.Cache,
		log:      log.With().Str("component", "orchestrator").Logger(),
	}
	if o.fallback == nil {
		o.fallback = fallback.New()
	}
	return o
}

// Analyze validates, decodes and describes one upload.
func (o *Orchestrator) Analyze(ctx context.Context, upload domain.AudioUpload) (domain.Analysis, error) {
	// 1. Reject before any decode work
	if err := o.limits.Validate(upload); err != nil {
		return domain.Analysis{}, fmt.Errorf("service: rejected upload: %w", err)
	}
	if o.decoder == nil {
		return domain.Analysis{}, fmt.Errorf("service: no decoder configured: %w", domain.ErrInternal)
	}

	// 2. Identical bytes analyse identically
	if o.cache != nil {
		cached, ok, err := o.cache.Get(ctx, upload.Data)
		switch {
		case err != nil:
			o.log.Warn().Err(err).Msg("analysis cache lookup failed")
		case ok:
			o.log.Debug().Str("file", upload.Filename).Msg("analysis cache hit")
			cached.Filename = upload.Filename
			return cached, nil
		}
	}

	// 3. Decode to canonical PCM
	started := time.Now()
	pcm, err := o.decoder.Decode(ctx, upload)
	if err != nil {
		var de domain.DecodeError
		if errors.As(err, &de) && de.Stderr != "" {
			o.log.Warn().Str("file", upload.Filename).Str("stderr", de.Stderr).Msg("decoder diagnostics")
		}
		return domain.Analysis{}, fmt.Errorf("service: failed to decode audio: %w", err)
	}
	if len(pcm.Samples) == 0 || pcm.Peak() < SilenceThreshold {
		return domain.Analysis{}, fmt.Errorf("service: %w", domain.SilentOrTooQuietError{
			Size:   upload.Size(),
			Reason: "no signal after decoding",
		})
	}

	// 4. Describe it, falling back when the primary extractor cannot
	result, engine, err := o.extract(ctx, pcm)
	if err != nil {
		return domain.Analysis{}, err
	}

	analysis := domain.Analysis{
		Filename: upload.Filename,
		Size:     upload.Size(),
		Duration: math.Round(pcm.Seconds()*1000) / 1000,
		Engine:   engine,
		MoodTag:  domain.MoodTag(result),
		Result:   result,
	}

	// 5. Remember it; a failed write only costs a future re-analysis
	if o.cache != nil {
		if err := o.cache.Put(ctx, upload.Data, analysis); err != nil {
			o.log.Warn().Err(err).Msg("analysis cache store failed")
		}
	}

	o.log.Info().
		Str("file", upload.Filename).
		Str("engine", string(engine)).
		Float64("bpm", result.Tempo()).
		Str("key", result.Key.String()).
		Dur("took", time.Since(started)).
		Msg("analyzed upload")
	return analysis, nil
}

func (o *Orchestrator) extract(ctx context.Context, pcm domain.PCMBuffer) (domain.DetectionResult, domain.Engine, error) {
	if o.primary != nil {
		result, err := o.primary.Extract(ctx, pcm)
		if err == nil {
			return result, domain.EnginePrimary, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.DetectionResult{}, "", fmt.Errorf("service: analysis aborted: %w", ctxErr)
		}
		o.log.Warn().Err(err).Msg("primary extractor failed, using fallback estimator")
	}

	result, err := o.fallback.Extract(ctx, pcm)
	if err != nil {
		return domain.DetectionResult{}, "", fmt.Errorf("service: fallback estimator failed: %w", err)
	}
	return result, domain.EngineFallback, nil
}

// Recommend ranks the catalog against a detected tempo and key. bpm 0 means
// unknown. Unparseable keys are not an error; they only earn the scorer's
// unknown-key credit.
func (o *Orchestrator) Recommend(ctx context.Context, bpm float64, key string) ([]domain.Recommendation, error) {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm < 0 {
		return nil, fmt.Errorf("service: bpm must be a non-negative number: %w", domain.ErrInvalidInput)
	}
	key = strings.TrimSpace(key)
	if o.catalog == nil {
		return nil, fmt.Errorf("service: no catalog configured: %w", domain.ErrInternal)
	}

	items, err := o.catalog.ListSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load catalog: %w", err)
	}
	return scoring.Rank(bpm, key, items), nil
}

// RecommendFromAudio analyses an upload and ranks the catalog against it.
func (o *Orchestrator) RecommendFromAudio(ctx context.Context, upload domain.AudioUpload) (domain.Analysis, []domain.Recommendation, error) {
	analysis, err := o.Analyze(ctx, upload)
	if err != nil {
		return domain.Analysis{}, nil, err
	}
	recs, err := o.Recommend(ctx, analysis.Result.Tempo(), analysis.Result.Key.String())
	if err != nil {
		return analysis, nil, err
	}
	return analysis, recs, nil
}

// ExtractFilters turns a free-text search into structured facets.
func (o *Orchestrator) ExtractFilters(text string) domain.ExtractedFilters {
	return query.ExtractFilters(text)
}
