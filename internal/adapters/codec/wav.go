package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-audio/wav"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// wavFormatPCM is the fmt chunk tag for integer PCM. Float and extensible
// files are left to the next decoder in the chain.
const wavFormatPCM = 1

// WAVDecoder decodes RIFF/WAVE integer PCM in process.
type WAVDecoder struct {
	sampleRate int
}

// NewWAVDecoder returns a decoder producing mono PCM at sampleRate.
func NewWAVDecoder(sampleRate int) *WAVDecoder {
	if sampleRate <= 0 {
		sampleRate = domain.CanonicalSampleRate
	}
	return &WAVDecoder{sampleRate: sampleRate}
}

// Decode implements ports.AudioDecoder. Non-WAV containers and non-integer
// WAV encodings are declined with an UnsupportedFormatError.
func (d *WAVDecoder) Decode(ctx context.Context, upload domain.AudioUpload) (domain.PCMBuffer, error) {
	if Sniff(upload.Data) != FormatWAV {
		return domain.PCMBuffer{}, domain.UnsupportedFormatError{Ext: upload.Ext(), Supported: []string{FormatWAV}}
	}
	if err := ctx.Err(); err != nil {
		return domain.PCMBuffer{}, domain.DecodeError{Err: err}
	}

	dec := wav.NewDecoder(bytes.NewReader(upload.Data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return domain.PCMBuffer{}, domain.DecodeError{Err: fmt.Errorf("wav: %w", err)}
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return domain.PCMBuffer{}, domain.UnsupportedFormatError{Ext: upload.Ext(), Supported: []string{FormatWAV}}
	}
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 || len(buf.Data) == 0 {
		return domain.PCMBuffer{}, domain.DecodeError{Err: errors.New("wav: no PCM frames")}
	}

	mono := downmixInt(buf.Data, buf.Format.NumChannels, buf.SourceBitDepth)
	return domain.PCMBuffer{
		Samples:    resample(mono, buf.Format.SampleRate, d.sampleRate),
		SampleRate: d.sampleRate,
	}, nil
}
