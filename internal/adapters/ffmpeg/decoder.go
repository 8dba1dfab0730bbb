// Package ffmpeg decodes uploads by piping them through an ffmpeg binary
// that emits raw little-endian float32 mono PCM.
package ffmpeg

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

const (
	defaultTimeout = 45 * time.Second
	waitDelay      = 2 * time.Second
	stderrLimit    = 16 << 10
	readChunk      = 32 << 10

	// MaxSeconds caps how much decoded audio is kept per upload.
	MaxSeconds = 600
)

var (
	errNoBinary  = errors.New("no ffmpeg binary configured")
	errTruncated = errors.New("decoder output ends mid-sample")
	errEmpty     = errors.New("decoder produced no audio")
	errTooLong   = errors.New("decoded audio exceeds maximum duration")
)

// Options configure a Decoder. Zero values take defaults.
type Options struct {
	Binary     string
	TempDir    string
	Timeout    time.Duration
	SampleRate int
}

// Decoder implements ports.AudioDecoder with an ffmpeg subprocess.
type Decoder struct {
	binary     string
	tempDir    string
	timeout    time.Duration
	sampleRate int
	log        zerolog.Logger
}

// New builds a Decoder. An empty Binary yields a decoder that fails every
// call with a DecodeError, so callers can still wire it.
func New(opts Options, log zerolog.Logger) *Decoder {
	d := &Decoder{
		binary:     opts.Binary,
		tempDir:    opts.TempDir,
		timeout:    opts.Timeout,
		sampleRate: opts.SampleRate,
		log:        log.With().Str("component", "ffmpeg").Logger(),
	}
	if d.tempDir == "" {
		d.tempDir = os.TempDir()
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	if d.sampleRate <= 0 {
		d.sampleRate = domain.CanonicalSampleRate
	}
	return d
}

// Available reports whether a binary is configured.
func (d *Decoder) Available() bool {
	return d.binary != ""
}

func (d *Decoder) args(input string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", fmt.Sprint(d.sampleRate),
		"-ac", "1",
		"pipe:1",
	}
}

// Decode writes the upload to a private temp file, runs ffmpeg on it and
// reads the PCM stream. The temp file is removed on every return path.
func (d *Decoder) Decode(ctx context.Context, upload domain.AudioUpload) (domain.PCMBuffer, error) {
	if !d.Available() {
		return domain.PCMBuffer{}, domain.DecodeError{Err: errNoBinary}
	}

	path, err := d.writeTemp(upload)
	if err != nil {
		return domain.PCMBuffer{}, domain.DecodeError{Err: fmt.Errorf("stage upload: %w", err)}
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			d.log.Warn().Err(rmErr).Msg("failed to remove temp upload")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// #nosec G204 -- binary comes from configuration, input is our own temp path
	cmd := exec.CommandContext(ctx, d.binary, d.args(path)...)
	cmd.WaitDelay = waitDelay
	stderr := &cappedBuffer{limit: stderrLimit}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return domain.PCMBuffer{}, domain.DecodeError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	started := time.Now()
	if err := cmd.Start(); err != nil {
		return domain.PCMBuffer{}, domain.DecodeError{Err: fmt.Errorf("start decoder: %w", err)}
	}

	samples, readErr := readPCM(stdout, d.sampleRate*MaxSeconds)
	if readErr != nil {
		// stop the process before waiting on it; the stream is no longer drained
		cancel()
	}
	waitErr := cmd.Wait()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = domain.DecodeError{Stderr: stderr.String(), Err: fmt.Errorf("decoder timed out after %s", d.timeout)}
	case ctx.Err() != nil && readErr == nil:
		err = domain.DecodeError{Stderr: stderr.String(), Err: ctx.Err()}
	case readErr != nil:
		err = domain.DecodeError{Stderr: stderr.String(), Err: readErr}
	case waitErr != nil:
		err = domain.DecodeError{Stderr: stderr.String(), Err: fmt.Errorf("decoder exited: %w", waitErr)}
	case len(samples) == 0:
		err = domain.DecodeError{Stderr: stderr.String(), Err: errEmpty}
	}
	if err != nil {
		d.log.Debug().Err(err).Str("stderr", stderr.String()).Msg("decode failed")
		return domain.PCMBuffer{}, err
	}

	pcm := domain.PCMBuffer{Samples: samples, SampleRate: d.sampleRate}
	d.log.Debug().
		Int("samples", len(samples)).
		Dur("audio", pcm.Duration()).
		Dur("took", time.Since(started)).
		Msg("decoded upload")
	return pcm, nil
}

func (d *Decoder) writeTemp(upload domain.AudioUpload) (string, error) {
	name := fmt.Sprintf("audio-upload-%d-%s", time.Now().UnixNano(), uuid.NewString())
	if ext := upload.Ext(); ext != "" {
		name += "." + ext
	}
	path := filepath.Join(d.tempDir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(upload.Data); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// readPCM converts an f32le stream to samples as it arrives. Non-finite
// values are zeroed.
func readPCM(r io.Reader, maxSamples int) ([]float32, error) {
	br := bufio.NewReaderSize(r, readChunk)
	buf := make([]byte, readChunk)
	var samples []float32
	var carry [4]byte
	carried := 0

	for {
		n, err := br.Read(buf)
		chunk := buf[:n]
		if carried > 0 && len(chunk) > 0 {
			need := copy(carry[carried:], chunk)
			carried += need
			chunk = chunk[need:]
			if carried == 4 {
				samples = append(samples, toSample(carry[:]))
				carried = 0
			}
		}
		for len(chunk) >= 4 {
			samples = append(samples, toSample(chunk[:4]))
			chunk = chunk[4:]
		}
		carried += copy(carry[carried:], chunk)

		if maxSamples > 0 && len(samples) > maxSamples {
			return nil, errTooLong
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read decoder output: %w", err)
		}
	}
	if carried != 0 {
		return nil, errTruncated
	}
	return samples, nil
}

func toSample(b []byte) float32 {
	v := math.Float32frombits(binary.LittleEndian.Uint32(b))
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}

// cappedBuffer keeps the first limit bytes written and discards the rest.
type cappedBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if room := c.limit - len(c.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		c.buf = append(c.buf, p[:room]...)
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.buf)
}
