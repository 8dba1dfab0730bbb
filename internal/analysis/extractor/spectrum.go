package extractor

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	frameSize = 2048
	hopSize   = 512
)

// spectrogram holds per-frame magnitude spectra (frameSize/2+1 bins).
type spectrogram struct {
	frames     [][]float64
	sampleRate int
}

// frameRate is frames per second.
func (s spectrogram) frameRate() float64 {
	return float64(s.sampleRate) / hopSize
}

func (s spectrogram) binHz() float64 {
	return float64(s.sampleRate) / frameSize
}

// stft computes Hann-windowed magnitude frames. The FFT holds scratch state,
// so each call allocates its own.
func stft(samples []float32, sampleRate int) spectrogram {
	out := spectrogram{sampleRate: sampleRate}
	if len(samples) < frameSize {
		return out
	}
	fft := fourier.NewFFT(frameSize)
	buf := make([]float64, frameSize)
	coeffs := make([]complex128, frameSize/2+1)

	for start := 0; start+frameSize <= len(samples); start += hopSize {
		for i := 0; i < frameSize; i++ {
			buf[i] = float64(samples[start+i])
		}
		coeffs = fft.Coefficients(coeffs, window.Hann(buf))
		mag := make([]float64, len(coeffs))
		for i, c := range coeffs {
			mag[i] = math.Hypot(real(c), imag(c))
		}
		out.frames = append(out.frames, mag)
	}
	return out
}
