package fallback

import (
	"math"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

const (
	keySeconds     = 10.0
	keyFrameSize   = 4096
	lowestMIDI     = 48 // C3
	highestMIDI    = 83 // B5
	maxKeyStrength = 0.35
)

// goertzelPower is the signal power at freq over frame.
func goertzelPower(frame []float32, freq, rate float64) float64 {
	w := 2 * math.Pi * freq / rate
	coeff := 2 * math.Cos(w)
	var s1, s2 float64
	for _, x := range frame {
		s0 := float64(x) + coeff*s1 - s2
		s2, s1 = s1, s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}

func midiFreq(n int) float64 {
	return 440 * math.Pow(2, float64(n-69)/12)
}

// pitchClassEnergy sums Goertzel power at every semitone from C3 to B5
// into twelve pitch-class bins over the first keySeconds of audio.
func pitchClassEnergy(samples []float32, sampleRate int) [12]float64 {
	var bins [12]float64
	x, rate := downsample(samples, sampleRate)
	limit := int(rate * keySeconds)
	if len(x) > limit {
		x = x[:limit]
	}
	for start := 0; start+keyFrameSize <= len(x); start += keyFrameSize {
		frame := x[start : start+keyFrameSize]
		for n := lowestMIDI; n <= highestMIDI; n++ {
			f := midiFreq(n)
			if f >= rate/2 {
				continue
			}
			bins[n%12] += goertzelPower(frame, f, rate)
		}
	}
	return bins
}

// EstimateKey picks the loudest pitch class as tonic and calls the key
// minor when its minor third outweighs its major third. It always returns
// a key; silence yields C major with zero strength.
func EstimateKey(samples []float32, sampleRate int) domain.KeyEstimate {
	bins := pitchClassEnergy(samples, sampleRate)

	tonic, total := 0, 0.0
	for i, v := range bins {
		total += v
		if v > bins[tonic] {
			tonic = i
		}
	}
	if total <= 0 || math.IsNaN(total) {
		return domain.KeyEstimate{Key: domain.Key{Tonic: 0, Scale: domain.Major}}
	}

	scale := domain.Major
	if bins[(tonic+3)%12] > bins[(tonic+4)%12] {
		scale = domain.Minor
	}

	mean := total / 12
	strength := domain.Clamp01((bins[tonic]-mean)/bins[tonic]) * maxKeyStrength
	return domain.KeyEstimate{
		Key:      domain.Key{Tonic: domain.PitchClass(tonic), Scale: scale},
		Strength: strength,
	}
}
