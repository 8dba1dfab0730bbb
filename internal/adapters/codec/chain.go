package codec

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
	"github.com/ewilliams-labs/loopmatch/internal/core/ports"
)

// Chain tries decoders in order. A decoder that declines the container is
// skipped; one that fails to decode it hands over to the next, and the last
// decode failure is returned if nobody succeeds.
type Chain struct {
	decoders []ports.AudioDecoder
	log      zerolog.Logger
}

// NewChain builds a Chain over decoders.
func NewChain(log zerolog.Logger, decoders ...ports.AudioDecoder) *Chain {
	return &Chain{decoders: decoders, log: log.With().Str("component", "decoder_chain").Logger()}
}

// Decode implements ports.AudioDecoder.
func (c *Chain) Decode(ctx context.Context, upload domain.AudioUpload) (domain.PCMBuffer, error) {
	var lastErr error
	for i, d := range c.decoders {
		pcm, err := d.Decode(ctx, upload)
		switch {
		case err == nil:
			return pcm, nil
		case errors.Is(err, domain.ErrUnsupportedFormat):
			continue
		case errors.Is(err, domain.ErrDecode):
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.PCMBuffer{}, err
			}
			c.log.Debug().Err(err).Int("decoder", i).Str("file", upload.Filename).Msg("decoder failed, trying next")
			lastErr = err
		default:
			return domain.PCMBuffer{}, err
		}
	}
	if lastErr != nil {
		return domain.PCMBuffer{}, lastErr
	}
	return domain.PCMBuffer{}, domain.UnsupportedFormatError{Ext: upload.Ext()}
}
