package fallback

import (
	"context"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

const (
	pulseConfidence   = 0.25
	noPulseConfidence = 0.1
)

// Estimator implements ports.FeatureExtractor with the fallback heuristics.
// Its Extract never returns an error.
type Estimator struct{}

// New returns an Estimator.
func New() *Estimator {
	return &Estimator{}
}

// Extract describes pcm with tempo, a low-confidence key, energy,
// danceability and the derived moods. MFCC is left nil.
func (e *Estimator) Extract(_ context.Context, pcm domain.PCMBuffer) (domain.DetectionResult, error) {
	return Estimate(pcm), nil
}

// Estimate is Extract without the interface plumbing.
func Estimate(pcm domain.PCMBuffer) domain.DetectionResult {
	track := trackTempo(pcm.Samples, pcm.SampleRate)
	confidence := noPulseConfidence
	if track.found {
		confidence = pulseConfidence
	}

	bpm := track.bpm
	energy := Energy(pcm.Samples)
	dance := Danceability(bpm)
	k := EstimateKey(pcm.Samples, pcm.SampleRate)
	valence, moods := domain.EstimateMood(energy, dance, k.Scale)

	return domain.DetectionResult{
		BPM:          &bpm,
		Alternatives: domain.TempoAlternatives(bpm, confidence),
		Beats:        beatGrid(track, pcm.Seconds()),
		Confidence:   confidence,
		Key:          k,
		Danceability: dance,
		Energy:       energy,
		Valence:      valence,
		Moods:        moods,
	}
}
