package domain

import (
	"math"
	"path/filepath"
	"strings"
	"time"
)

// CanonicalSampleRate is the rate every decoder resamples to.
const CanonicalSampleRate = 44100

// AudioUpload is an opaque audio blob plus the name it arrived with.
type AudioUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the upload length in bytes.
func (u AudioUpload) Size() int64 {
	return int64(len(u.Data))
}

// Ext returns the lowercased extension without the dot, or "" when the
// upload carries no usable extension (including ".tmp" and ".blob" names
// produced by browsers and multipart clients).
func (u AudioUpload) Ext() string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(u.Filename), "."))
	switch ext {
	case "tmp", "blob", "bin":
		return ""
	}
	return ext
}

// PCMBuffer holds mono float samples nominally in [-1, 1].
type PCMBuffer struct {
	Samples    []float32
	SampleRate int
}

// Duration reports the playback length of the buffer.
func (b PCMBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// Seconds is Duration as a float, which is what the JSON envelope reports.
func (b PCMBuffer) Seconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Peak returns the largest absolute sample value.
func (b PCMBuffer) Peak() float64 {
	var peak float64
	for _, s := range b.Samples {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
	}
	return peak
}

// RMS returns the root-mean-square level of the buffer.
func (b PCMBuffer) RMS() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range b.Samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(b.Samples)))
}

// Limits bounds what the analyzer accepts before any decoding starts.
type Limits struct {
	MaxUploadBytes   int64
	MinAudioBytes    int64
	SupportedFormats []string
	AllowUntyped     bool
}

// DefaultLimits mirrors the upload policy of the web front end.
func DefaultLimits() Limits {
	return Limits{
		MaxUploadBytes:   30 << 20,
		MinAudioBytes:    10 << 10,
		SupportedFormats: []string{"mp3", "wav", "m4a", "ogg", "flac", "aac", "wma"},
		AllowUntyped:     true,
	}
}

// Validate checks size and format. The order matters: a huge file is
// rejected as too large even if its extension is also wrong.
func (l Limits) Validate(u AudioUpload) error {
	size := u.Size()
	if l.MaxUploadBytes > 0 && size > l.MaxUploadBytes {
		return FileTooLargeError{Size: size, Limit: l.MaxUploadBytes}
	}
	if !l.Accepts(u.Ext()) {
		return UnsupportedFormatError{Ext: u.Ext(), Supported: l.SupportedFormats}
	}
	if size < l.MinAudioBytes {
		return SilentOrTooQuietError{Size: size}
	}
	return nil
}

// Accepts reports whether ext (no dot, lowercase) may be decoded.
func (l Limits) Accepts(ext string) bool {
	if ext == "" {
		return l.AllowUntyped
	}
	for _, f := range l.SupportedFormats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}
