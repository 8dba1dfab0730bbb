package codec

import "math"

// resample converts samples between rates by linear interpolation.
func resample(samples []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}
	n := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	out := make([]float32, n)
	step := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j] + (samples[j+1]-samples[j])*frac
	}
	return out
}

// downmixInt averages interleaved integer frames into mono floats scaled by
// the source bit depth. 8-bit WAV is unsigned and centred at 128.
func downmixInt(data []int, channels, bitDepth int) []float32 {
	if channels < 1 {
		channels = 1
	}
	full := 1 << 15
	if bitDepth > 0 && bitDepth <= 32 {
		full = 1 << (bitDepth - 1)
	}
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	frames := len(data) / channels
	mono := make([]float32, frames)
	idx := 0
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(data[idx] - offset)
			idx++
		}
		mono[i] = float32(sum / float64(channels) / float64(full))
	}
	return mono
}
