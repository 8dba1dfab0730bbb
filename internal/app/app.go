// Package app wires configured adapters into the core. Both binaries build
// their decoder and catalog through here.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/loopmatch/internal/adapters/codec"
	"github.com/ewilliams-labs/loopmatch/internal/adapters/ffmpeg"
	"github.com/ewilliams-labs/loopmatch/internal/adapters/sqlite"
	"github.com/ewilliams-labs/loopmatch/internal/adapters/supabase"
	"github.com/ewilliams-labs/loopmatch/internal/config"
	"github.com/ewilliams-labs/loopmatch/internal/core/ports"
)

// NewDecoder builds the decoder for cfg.Mode. Native decoders go first so
// WAV and MP3 never pay for a subprocess; ffmpeg picks up everything else.
func NewDecoder(cfg config.Decoder, log zerolog.Logger) (ports.AudioDecoder, error) {
	native := []ports.AudioDecoder{
		codec.NewWAVDecoder(cfg.SampleRate),
		codec.NewMP3Decoder(cfg.SampleRate),
	}
	ff := ffmpeg.New(ffmpeg.Options{
		Binary:     cfg.FFmpegPath,
		TempDir:    cfg.TempDir,
		Timeout:    cfg.Timeout,
		SampleRate: cfg.SampleRate,
	}, log)

	switch cfg.Mode {
	case config.DecoderNative:
		return codec.NewChain(log, native...), nil
	case config.DecoderFFmpeg:
		if !ff.Available() {
			return nil, fmt.Errorf("app: decoder mode %q needs an ffmpeg binary", cfg.Mode)
		}
		return ff, nil
	case config.DecoderAuto, "":
		if !ff.Available() {
			log.Warn().Msg("ffmpeg not found, only WAV and MP3 can be decoded")
			return codec.NewChain(log, native...), nil
		}
		return codec.NewChain(log, append(native, ff)...), nil
	}
	return nil, fmt.Errorf("app: unknown decoder mode %q", cfg.Mode)
}

// OpenCatalog opens the catalog named by cfg.CatalogDriver. The returned
// close func is never nil.
func OpenCatalog(cfg config.Config, log zerolog.Logger) (ports.CatalogRepository, func() error, error) {
	switch cfg.CatalogDriver {
	case config.CatalogSQLite, "":
		db, err := sqlite.NewAdapter(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("app: open sqlite catalog: %w", err)
		}
		return db, db.Close, nil
	case config.CatalogSupabase:
		client := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTable, log)
		return client, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("app: unknown catalog driver %q", cfg.CatalogDriver)
}
