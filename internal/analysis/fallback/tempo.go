// Package fallback is a lightweight estimator used when the primary
// extractor is unavailable or fails. It needs nothing beyond the PCM buffer
// and always produces a result.
package fallback

import (
	"math"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

const (
	// DefaultBPM is reported when the envelope has too few peaks.
	DefaultBPM = 120.0

	envelopeRate   = 22050
	windowSeconds  = 0.1
	maxPeakSpan    = 50
	peakThreshold  = 0.5
	minBPM, maxBPM = 60.0, 200.0
)

// downsample picks every n-th sample so the buffer runs at envelopeRate.
// Rates at or below envelopeRate are used as-is. It returns the new rate.
func downsample(samples []float32, sampleRate int) ([]float32, float64) {
	if sampleRate <= 0 {
		sampleRate = domain.CanonicalSampleRate
	}
	if sampleRate <= envelopeRate {
		return samples, float64(sampleRate)
	}
	ratio := float64(sampleRate) / envelopeRate
	out := make([]float32, int(float64(len(samples))/ratio))
	for i := range out {
		out[i] = samples[int(float64(i)*ratio)]
	}
	return out, envelopeRate
}

// envelope is the mean absolute amplitude over 100 ms windows with a
// quarter-window hop. It returns the envelope and the hop in samples.
func envelope(x []float32, rate float64) ([]float64, float64) {
	window := int(rate * windowSeconds)
	if window < 4 {
		return nil, 1
	}
	hop := float64(window) / 4
	var env []float64
	for k := 0; ; k++ {
		start := int(float64(k) * hop)
		if start+window >= len(x) {
			break
		}
		var sum float64
		for _, s := range x[start : start+window] {
			sum += math.Abs(float64(s))
		}
		env = append(env, sum/float64(window))
	}
	return env, hop
}

// peaks returns indices of strict local maxima above half the envelope max.
func peaks(env []float64) []int {
	var top float64
	for _, v := range env {
		if v > top {
			top = v
		}
	}
	threshold := top * peakThreshold
	var out []int
	for i := 1; i < len(env)-1; i++ {
		if env[i] > threshold && env[i] > env[i-1] && env[i] > env[i+1] {
			out = append(out, i)
		}
	}
	return out
}

// modeInterval is the most common gap between consecutive peaks among the
// first maxPeakSpan peaks. Ties go to the gap seen first.
func modeInterval(p []int) int {
	n := len(p)
	if n > maxPeakSpan {
		n = maxPeakSpan
	}
	var order []int
	counts := make(map[int]int)
	for i := 1; i < n; i++ {
		gap := p[i] - p[i-1]
		if counts[gap] == 0 {
			order = append(order, gap)
		}
		counts[gap]++
	}
	best, bestCount := 0, 0
	for _, gap := range order {
		if counts[gap] > bestCount {
			best, bestCount = gap, counts[gap]
		}
	}
	return best
}

// foldTempo doubles or halves bpm until it lies in [60, 200].
func foldTempo(bpm float64) float64 {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return DefaultBPM
	}
	for bpm < minBPM {
		bpm *= 2
	}
	for bpm > maxBPM {
		bpm /= 2
	}
	return bpm
}

// tempoTrack is the intermediate state shared by tempo and beat estimation.
type tempoTrack struct {
	bpm       float64
	firstBeat float64 // seconds
	found     bool
}

func trackTempo(samples []float32, sampleRate int) tempoTrack {
	x, rate := downsample(samples, sampleRate)
	env, hop := envelope(x, rate)
	p := peaks(env)
	if len(p) < 2 {
		return tempoTrack{bpm: DefaultBPM}
	}
	interval := modeInterval(p)
	if interval <= 0 {
		return tempoTrack{bpm: DefaultBPM}
	}
	windowsPerSecond := rate / hop
	bpm := math.Round(windowsPerSecond / float64(interval) * 60)
	return tempoTrack{
		bpm:       foldTempo(bpm),
		firstBeat: float64(p[0]) * hop / rate,
		found:     true,
	}
}

// EstimateTempo returns a BPM in [60, 200], DefaultBPM when the buffer has
// no discernible pulse.
func EstimateTempo(samples []float32, sampleRate int) float64 {
	return trackTempo(samples, sampleRate).bpm
}

// beatGrid lays beats at the detected tempo from the first envelope peak to
// the end of the buffer.
func beatGrid(t tempoTrack, duration float64) []float64 {
	if t.bpm <= 0 || duration <= 0 {
		return []float64{}
	}
	period := 60 / t.bpm
	beats := make([]float64, 0, int(duration/period)+1)
	for b := t.firstBeat; b < duration; b += period {
		beats = append(beats, math.Round(b*1000)/1000)
	}
	return beats
}

// Energy is mean absolute amplitude scaled into [0, 1].
func Energy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	return domain.Clamp01(sum / float64(len(samples)) * 5)
}

// Danceability favours tempos near 125 BPM.
func Danceability(bpm float64) float64 {
	return domain.TempoDanceability(bpm)
}
