// Package extractor is the full-featured analyzer: tempo with beat
// positions, key, energy, danceability, moods and MFCC timbre.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// MinSeconds is the shortest clip the extractor will describe.
const MinSeconds = 2.0

var (
	errTooShort = errors.New("clip shorter than minimum length")
	errNoOnsets = errors.New("no rhythmic onsets")
	errNoTonal  = errors.New("no tonal content")
	errBadRate  = errors.New("invalid sample rate")
	errNoFrames = errors.New("no spectral frames")
)

// Extractor implements ports.FeatureExtractor.
type Extractor struct {
	maxSeconds float64
	log        zerolog.Logger
}

// New returns an Extractor that looks at no more than maxSeconds of each
// clip. maxSeconds <= 0 means the whole clip.
func New(maxSeconds float64, log zerolog.Logger) *Extractor {
	return &Extractor{
		maxSeconds: maxSeconds,
		log:        log.With().Str("component", "extractor").Logger(),
	}
}

// Extract describes pcm. Every failure comes back as a domain.AnalysisError,
// including panics inside the DSP code.
func (e *Extractor) Extract(ctx context.Context, pcm domain.PCMBuffer) (res domain.DetectionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.AnalysisError{Stage: "panic", Err: fmt.Errorf("%v", r)}
		}
	}()

	started := time.Now()
	if pcm.SampleRate <= 0 {
		return res, domain.AnalysisError{Stage: "input", Err: errBadRate}
	}
	if pcm.Seconds() < MinSeconds {
		return res, domain.AnalysisError{Stage: "input", Err: errTooShort}
	}

	samples := pcm.Samples
	if e.maxSeconds > 0 {
		if limit := int(e.maxSeconds * float64(pcm.SampleRate)); len(samples) > limit {
			samples = samples[:limit]
		}
	}

	spec := stft(samples, pcm.SampleRate)
	if len(spec.frames) == 0 {
		return res, domain.AnalysisError{Stage: "spectrum", Err: errNoFrames}
	}
	if err := ctx.Err(); err != nil {
		return res, domain.AnalysisError{Stage: "spectrum", Err: err}
	}

	onsets := onsetEnvelope(spec)
	tempo, ok := estimateTempo(onsets, spec.frameRate())
	if !ok {
		return res, domain.AnalysisError{Stage: "rhythm", Err: errNoOnsets}
	}
	beats := trackBeats(onsets, tempo.period, spec.frameRate())

	if err := ctx.Err(); err != nil {
		return res, domain.AnalysisError{Stage: "rhythm", Err: err}
	}

	key, ok := detectKey(samples, pcm.SampleRate)
	if !ok {
		return res, domain.AnalysisError{Stage: "tonal", Err: errNoTonal}
	}

	energy := domain.Clamp01(domain.PCMBuffer{Samples: samples}.RMS() * 2)
	dance := domain.Clamp01(0.5*domain.TempoDanceability(tempo.bpm) + 0.5*beatRegularity(beats))
	valence, moods := domain.EstimateMood(energy, dance, key.Scale)

	bpm := tempo.bpm
	res = domain.DetectionResult{
		BPM:          &bpm,
		Alternatives: domain.TempoAlternatives(bpm, tempo.confidence),
		Beats:        beats,
		Confidence:   tempo.confidence,
		Key:          key,
		Danceability: dance,
		Energy:       energy,
		Valence:      valence,
		Moods:        moods,
		MFCC:         mfcc(spec),
	}

	e.log.Debug().
		Float64("bpm", bpm).
		Str("key", key.String()).
		Int("beats", len(beats)).
		Dur("took", time.Since(started)).
		Msg("extracted features")
	return res, nil
}
