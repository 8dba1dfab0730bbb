package ports

import (
	"context"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// AudioDecoder turns an uploaded container into canonical mono PCM.
// Implementations return domain.DecodeError on failure and
// domain.UnsupportedFormatError for containers they do not handle.
type AudioDecoder interface {
	Decode(ctx context.Context, upload domain.AudioUpload) (domain.PCMBuffer, error)
}

// FeatureExtractor describes a PCM buffer musically.
type FeatureExtractor interface {
	Extract(ctx context.Context, pcm domain.PCMBuffer) (domain.DetectionResult, error)
}
