package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// fakeDecoder writes an executable shell script standing in for ffmpeg.
// The upload path is the fifth argument.
func fakeDecoder(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func f32le(values ...float32) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
	}
	return buf.Bytes()
}

func newDecoder(t *testing.T, binary string, timeout time.Duration) (*Decoder, string) {
	t.Helper()
	dir := t.TempDir()
	return New(Options{Binary: binary, TempDir: dir, Timeout: timeout}, zerolog.Nop()), dir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp upload left behind")
}

func TestDecodeStreamsPCM(t *testing.T) {
	record := filepath.Join(t.TempDir(), "args")
	bin := fakeDecoder(t, `echo "$@" > "`+record+`"
exec cat "$5"`)
	d, dir := newDecoder(t, bin, 0)

	want := []float32{0, 0.5, -0.25, 1, -1}
	pcm, err := d.Decode(context.Background(), domain.AudioUpload{Filename: "Loop.WAV", Data: f32le(want...)})
	require.NoError(t, err)

	assert.Equal(t, want, pcm.Samples)
	assert.Equal(t, domain.CanonicalSampleRate, pcm.SampleRate)
	assertEmptyDir(t, dir)

	raw, err := os.ReadFile(record)
	require.NoError(t, err)
	args := strings.Fields(string(raw))
	require.Len(t, args, 14)
	assert.Equal(t, []string{"-hide_banner", "-loglevel", "error", "-i"}, args[:4])
	assert.Equal(t, []string{"-f", "f32le", "-acodec", "pcm_f32le", "-ar", "44100", "-ac", "1", "pipe:1"}, args[5:])
	assert.Equal(t, dir, filepath.Dir(args[4]))
	assert.Regexp(t, regexp.MustCompile(`^audio-upload-\d+-[0-9a-f-]{36}\.wav$`), filepath.Base(args[4]))
}

func TestDecodeUntypedUploadHasNoExtension(t *testing.T) {
	record := filepath.Join(t.TempDir(), "path")
	bin := fakeDecoder(t, `echo "$5" > "`+record+`"
exec cat "$5"`)
	d, _ := newDecoder(t, bin, 0)

	_, err := d.Decode(context.Background(), domain.AudioUpload{Filename: "blob", Data: f32le(0.1)})
	require.NoError(t, err)

	raw, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Regexp(t, `^audio-upload-\d+-[0-9a-f-]{36}$`, filepath.Base(strings.TrimSpace(string(raw))))
}

func TestDecodeZeroesNonFinite(t *testing.T) {
	bin := fakeDecoder(t, `exec cat "$5"`)
	d, _ := newDecoder(t, bin, 0)

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	pcm, err := d.Decode(context.Background(), domain.AudioUpload{Filename: "a.mp3", Data: f32le(0.5, nan, inf)})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0, 0}, pcm.Samples)
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		timeout    time.Duration
		wantStderr string
		wantMsg    string
	}{
		{
			name:       "non-zero exit",
			script:     "echo 'Invalid data found when processing input' >&2\nexit 1",
			wantStderr: "Invalid data found",
			wantMsg:    "decoder exited",
		},
		{
			name:    "truncated sample",
			script:  "printf 'abcdefg'",
			wantMsg: errTruncated.Error(),
		},
		{
			name:    "no output",
			script:  "exit 0",
			wantMsg: errEmpty.Error(),
		},
		{
			name:    "timeout",
			script:  "exec sleep 5",
			timeout: 200 * time.Millisecond,
			wantMsg: "timed out",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			d, dir := newDecoder(t, fakeDecoder(t, tc.script), tc.timeout)

			_, err := d.Decode(context.Background(), domain.AudioUpload{Filename: "x.ogg", Data: []byte("not audio")})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrDecode))
			assert.Contains(t, err.Error(), tc.wantMsg)

			var de domain.DecodeError
			require.True(t, errors.As(err, &de))
			if tc.wantStderr != "" {
				assert.Contains(t, de.Stderr, tc.wantStderr)
				assert.NotContains(t, err.Error(), tc.wantStderr)
			}
			assertEmptyDir(t, dir)
		})
	}
}

func TestDecodeWithoutBinary(t *testing.T) {
	d, dir := newDecoder(t, "", 0)
	assert.False(t, d.Available())

	_, err := d.Decode(context.Background(), domain.AudioUpload{Filename: "x.mp3", Data: []byte{1}})
	assert.True(t, errors.Is(err, domain.ErrDecode))
	assertEmptyDir(t, dir)
}

func TestDecodeMissingBinary(t *testing.T) {
	d, dir := newDecoder(t, filepath.Join(t.TempDir(), "nope"), 0)

	_, err := d.Decode(context.Background(), domain.AudioUpload{Filename: "x.mp3", Data: []byte{1}})
	assert.True(t, errors.Is(err, domain.ErrDecode))
	assertEmptyDir(t, dir)
}

func TestDecodeCanceled(t *testing.T) {
	d, dir := newDecoder(t, fakeDecoder(t, "exec sleep 5"), 0)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := d.Decode(ctx, domain.AudioUpload{Filename: "x.mp3", Data: []byte{1}})
	assert.True(t, errors.Is(err, domain.ErrDecode))
	assert.True(t, errors.Is(err, context.Canceled))
	assertEmptyDir(t, dir)
}

func TestReadPCMSplitsAcrossReads(t *testing.T) {
	data := f32le(0.25, -0.5, 0.75)
	r := &oneByteReader{data: data}
	got, err := readPCM(r, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 0.75}, got)

	_, err = readPCM(bytes.NewReader(f32le(1, 2, 3)), 2)
	assert.ErrorIs(t, err, errTooLong)
}

type oneByteReader struct {
	data []byte
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

func TestCappedBuffer(t *testing.T) {
	c := &cappedBuffer{limit: 4}
	n, err := c.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, _ = c.Write([]byte("gh"))
	assert.Equal(t, "abcd", c.String())
}
