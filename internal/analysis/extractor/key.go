package extractor

import (
	"math"
	"sort"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

const (
	chromaFrame = 4096
	chromaHop   = 2048
	chromaLowHz = 65.0
	chromaHiHz  = 2100.0
)

// Krumhansl-Kessler key profiles, tonic first.
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

func freqToMIDI(freq float64) float64 {
	return 12*math.Log2(freq/440.0) + 69
}

// chroma averages per-frame pitch-class magnitude over the clip. Each frame
// is normalised to its loudest class first.
func chroma(samples []float32, sampleRate int) []float64 {
	sum := make([]float64, 12)
	size := chromaFrame
	hop := chromaHop
	if len(samples) < size {
		size = len(samples)
		hop = size / 2
	}
	if size < 2 || hop < 1 {
		return sum
	}

	binHz := float64(sampleRate) / float64(size)
	classOf := make([]int, size/2+1)
	for bin := range classOf {
		f := float64(bin) * binHz
		if f < chromaLowHz || f > chromaHiHz {
			classOf[bin] = -1
			continue
		}
		classOf[bin] = ((int(math.Round(freqToMIDI(f))) % 12) + 12) % 12
	}

	frame := make([]float64, size)
	for pos := 0; pos+size <= len(samples); pos += hop {
		for i := range frame {
			frame[i] = float64(samples[pos+i])
		}
		window.Apply(frame, window.Hann)
		spectrum := fft.FFTReal(frame)

		var bins [12]float64
		for bin, class := range classOf {
			if class < 0 {
				continue
			}
			c := spectrum[bin]
			bins[class] += math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
		}
		var peak float64
		for _, v := range bins {
			peak = math.Max(peak, v)
		}
		if peak <= 0 {
			continue
		}
		for i, v := range bins {
			sum[i] += v / peak
		}
	}
	return sum
}

func rotate(profile []float64, shift int) []float64 {
	out := make([]float64, 12)
	for i := range out {
		out[i] = profile[(i-shift+12)%12]
	}
	return out
}

// correlate is Pearson's r; zero when either side is flat.
func correlate(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(len(a))
	meanB /= float64(len(b))
	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

type keyGuess struct {
	key   domain.Key
	score float64
}

// rankKeys correlates the chroma against all 24 rotated profiles, best first.
func rankKeys(c []float64) []keyGuess {
	guesses := make([]keyGuess, 0, 24)
	for root := 0; root < 12; root++ {
		guesses = append(guesses,
			keyGuess{domain.Key{Tonic: domain.PitchClass(root), Scale: domain.Major}, correlate(c, rotate(majorProfile, root))},
			keyGuess{domain.Key{Tonic: domain.PitchClass(root), Scale: domain.Minor}, correlate(c, rotate(minorProfile, root))},
		)
	}
	sort.SliceStable(guesses, func(i, j int) bool { return guesses[i].score > guesses[j].score })
	return guesses
}

// detectKey returns the best-correlated key with its correlation clamped to
// [0, 1] as strength. ok is false when the chroma carries no tonal content.
func detectKey(samples []float32, sampleRate int) (domain.KeyEstimate, bool) {
	c := chroma(samples, sampleRate)
	var total float64
	for _, v := range c {
		total += v
	}
	if total <= 0 {
		return domain.KeyEstimate{}, false
	}
	best := rankKeys(c)[0]
	return domain.KeyEstimate{Key: best.key, Strength: domain.Clamp01(best.score)}, true
}
