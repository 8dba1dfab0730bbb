package extractor

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

const melBands = 40

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds triangular filters spaced evenly on the mel scale
// from 0 Hz to Nyquist.
func melFilterbank(bins int, sampleRate int) [][]float64 {
	nyquist := float64(sampleRate) / 2
	lo, hi := hzToMel(0), hzToMel(nyquist)
	points := make([]float64, melBands+2)
	for i := range points {
		hz := melToHz(lo + (hi-lo)*float64(i)/float64(melBands+1))
		points[i] = hz / nyquist * float64(bins-1)
	}

	bank := make([][]float64, melBands)
	for m := 0; m < melBands; m++ {
		left, center, right := points[m], points[m+1], points[m+2]
		f := make([]float64, bins)
		for k := 0; k < bins; k++ {
			x := float64(k)
			switch {
			case x > left && x <= center && center > left:
				f[k] = (x - left) / (center - left)
			case x > center && x < right && right > center:
				f[k] = (right - x) / (right - center)
			}
		}
		bank[m] = f
	}
	return bank
}

// mfcc returns the cepstral summary of a spectrogram: per-coefficient mean
// and population standard deviation over frames.
func mfcc(spec spectrogram) *domain.Timbre {
	if len(spec.frames) == 0 {
		return nil
	}
	bank := melFilterbank(len(spec.frames[0]), spec.sampleRate)

	coeffs := make([][]float64, domain.MFCCCoefficients)
	for i := range coeffs {
		coeffs[i] = make([]float64, 0, len(spec.frames))
	}

	logMel := make([]float64, melBands)
	for _, mag := range spec.frames {
		for m, filter := range bank {
			var e float64
			for k, w := range filter {
				if w != 0 {
					e += mag[k] * mag[k] * w
				}
			}
			logMel[m] = math.Log(math.Max(e, 1e-10))
		}
		for c := 0; c < domain.MFCCCoefficients; c++ {
			var sum float64
			for m, v := range logMel {
				sum += v * math.Cos(math.Pi*float64(c)*(float64(m)+0.5)/melBands)
			}
			coeffs[c] = append(coeffs[c], sum)
		}
	}

	t := &domain.Timbre{
		Mean: make([]float64, domain.MFCCCoefficients),
		Std:  make([]float64, domain.MFCCCoefficients),
	}
	for c, series := range coeffs {
		t.Mean[c], t.Std[c] = stat.PopMeanStdDev(series, nil)
	}
	return t
}
