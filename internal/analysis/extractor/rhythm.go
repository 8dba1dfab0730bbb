package extractor

import (
	"math"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

const (
	minTempo   = 60.0
	maxTempo   = 200.0
	priorBPM   = 120.0
	priorWidth = 1.0 // octaves
	smoothing  = 16  // frames in the local-mean subtraction

	minOnsetPower = 1e-9
)

// onsetEnvelope is the half-wave rectified log spectral flux, with a local
// mean removed so only sharp rises survive.
func onsetEnvelope(spec spectrogram) []float64 {
	n := len(spec.frames)
	if n < 2 {
		return nil
	}
	flux := make([]float64, n)
	for t := 1; t < n; t++ {
		prev, cur := spec.frames[t-1], spec.frames[t]
		var sum float64
		for k := range cur {
			d := math.Log1p(cur[k]) - math.Log1p(prev[k])
			if d > 0 {
				sum += d
			}
		}
		flux[t] = sum
	}

	out := make([]float64, n)
	var window float64
	for t := 0; t < n; t++ {
		window += flux[t]
		if t >= smoothing {
			window -= flux[t-smoothing]
		}
		count := t + 1
		if count > smoothing {
			count = smoothing
		}
		if v := flux[t] - window/float64(count); v > 0 {
			out[t] = v
		}
	}
	return out
}

// autocorrelation is the biased ACF of x for lags [0, maxLag].
func autocorrelation(x []float64, maxLag int) []float64 {
	acf := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag && lag < len(x); lag++ {
		var sum float64
		for t := 0; t+lag < len(x); t++ {
			sum += x[t] * x[t+lag]
		}
		acf[lag] = sum / float64(len(x))
	}
	return acf
}

func tempoPrior(bpm float64) float64 {
	z := math.Log2(bpm/priorBPM) / priorWidth
	return math.Exp(-0.5 * z * z)
}

// tempoEstimate is the dominant beat period of an onset envelope.
type tempoEstimate struct {
	bpm        float64
	period     float64 // frames
	confidence float64
}

// estimateTempo picks the autocorrelation lag in the 60-200 BPM range with
// the highest prior-weighted strength and refines it with a parabolic fit.
func estimateTempo(onsets []float64, frameRate float64) (tempoEstimate, bool) {
	minLag := int(math.Ceil(60 * frameRate / maxTempo))
	maxLag := int(math.Floor(60 * frameRate / minTempo))
	if minLag < 1 || len(onsets) <= maxLag+1 {
		return tempoEstimate{}, false
	}
	acf := autocorrelation(onsets, maxLag+1)
	if acf[0] <= minOnsetPower {
		return tempoEstimate{}, false
	}

	best, bestScore := -1, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		score := acf[lag] * tempoPrior(60*frameRate/float64(lag))
		if score > bestScore {
			best, bestScore = lag, score
		}
	}
	if best < 0 {
		return tempoEstimate{}, false
	}

	period := float64(best)
	if best > 0 && best+1 < len(acf) {
		a, b, c := acf[best-1], acf[best], acf[best+1]
		if denom := a - 2*b + c; denom < 0 {
			shift := 0.5 * (a - c) / denom
			if math.Abs(shift) < 1 {
				period += shift
			}
		}
	}

	bpm := math.Min(maxTempo, math.Max(minTempo, math.Round(60*frameRate/period)))
	return tempoEstimate{
		bpm:        bpm,
		period:     period,
		confidence: domain.Clamp01(acf[best] / acf[0]),
	}, true
}

// trackBeats places beats one period apart at the phase that collects the
// most onset strength, then nudges each beat to the strongest onset within
// a tenth of a period.
func trackBeats(onsets []float64, period float64, frameRate float64) []float64 {
	if period <= 0 || len(onsets) == 0 {
		return []float64{}
	}
	bestPhase, bestSum := 0, -1.0
	for phase := 0; phase < int(math.Ceil(period)); phase++ {
		var sum float64
		for pos := float64(phase); ; pos += period {
			idx := int(math.Round(pos))
			if idx >= len(onsets) {
				break
			}
			sum += onsets[idx]
		}
		if sum > bestSum {
			bestPhase, bestSum = phase, sum
		}
	}

	radius := int(math.Round(period / 10))
	beats := []float64{}
	last := -1
	for pos := float64(bestPhase); int(math.Round(pos)) < len(onsets); pos += period {
		center := int(math.Round(pos))
		peak := center
		for i := center - radius; i <= center+radius; i++ {
			if i >= 0 && i < len(onsets) && onsets[i] > onsets[peak] {
				peak = i
			}
		}
		if peak <= last {
			continue
		}
		last = peak
		beats = append(beats, math.Round(float64(peak)/frameRate*1000)/1000)
	}
	return beats
}

// beatRegularity is 1 for perfectly even beat spacing and falls towards 0
// as the coefficient of variation grows.
func beatRegularity(beats []float64) float64 {
	if len(beats) < 3 {
		return 0
	}
	intervals := make([]float64, len(beats)-1)
	var mean float64
	for i := 1; i < len(beats); i++ {
		intervals[i-1] = beats[i] - beats[i-1]
		mean += intervals[i-1]
	}
	mean /= float64(len(intervals))
	if mean <= 0 {
		return 0
	}
	var variance float64
	for _, v := range intervals {
		variance += (v - mean) * (v - mean)
	}
	cv := math.Sqrt(variance/float64(len(intervals))) / mean
	return domain.Clamp01(1 - cv*4)
}
