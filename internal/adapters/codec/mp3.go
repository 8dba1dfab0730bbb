package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// MP3Decoder decodes MPEG-1/2 layer III in process.
type MP3Decoder struct {
	sampleRate int
}

// NewMP3Decoder returns a decoder producing mono PCM at sampleRate.
func NewMP3Decoder(sampleRate int) *MP3Decoder {
	if sampleRate <= 0 {
		sampleRate = domain.CanonicalSampleRate
	}
	return &MP3Decoder{sampleRate: sampleRate}
}

// Decode implements ports.AudioDecoder. go-mp3 always yields interleaved
// 16-bit little-endian stereo, which is folded to mono here.
func (d *MP3Decoder) Decode(ctx context.Context, upload domain.AudioUpload) (domain.PCMBuffer, error) {
	format := Sniff(upload.Data)
	if format != FormatMP3 && !(format == "" && upload.Ext() == FormatMP3) {
		return domain.PCMBuffer{}, domain.UnsupportedFormatError{Ext: upload.Ext(), Supported: []string{FormatMP3}}
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(upload.Data))
	if err != nil {
		return domain.PCMBuffer{}, domain.DecodeError{Err: fmt.Errorf("mp3: %w", err)}
	}

	var mono []float32
	if n := dec.Length(); n > 0 {
		mono = make([]float32, 0, n/4)
	}
	buf := make([]byte, 4096)
	var carry []byte
	for {
		if err := ctx.Err(); err != nil {
			return domain.PCMBuffer{}, domain.DecodeError{Err: err}
		}
		n, err := dec.Read(buf)
		chunk := append(carry, buf[:n]...)
		i := 0
		for ; i+3 < len(chunk); i += 4 {
			left := int16(chunk[i]) | int16(chunk[i+1])<<8
			right := int16(chunk[i+2]) | int16(chunk[i+3])<<8
			mono = append(mono, float32((float64(left)+float64(right))/2/32768))
		}
		carry = append(carry[:0:0], chunk[i:]...)
		if err != nil {
			if err == io.EOF {
				break
			}
			return domain.PCMBuffer{}, domain.DecodeError{Err: fmt.Errorf("mp3 read: %w", err)}
		}
	}
	if len(mono) == 0 {
		return domain.PCMBuffer{}, domain.DecodeError{Err: errors.New("mp3: no frames")}
	}

	return domain.PCMBuffer{
		Samples:    resample(mono, dec.SampleRate(), d.sampleRate),
		SampleRate: d.sampleRate,
	}, nil
}
