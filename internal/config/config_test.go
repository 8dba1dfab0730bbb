package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, DecoderAuto, cfg.Decoder.Mode)
	assert.Equal(t, 45*time.Second, cfg.Decoder.Timeout)
	assert.Equal(t, domain.CanonicalSampleRate, cfg.Decoder.SampleRate)
	assert.Equal(t, domain.DefaultLimits(), cfg.Decoder.Limits)
	assert.Equal(t, CatalogSQLite, cfg.CatalogDriver)
	assert.Equal(t, 30.0, cfg.AnalysisMaxSeconds)
	assert.Equal(t, 2, cfg.Workers)
	assert.Empty(t, cfg.CacheDir)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(envOf(map[string]string{
		"PORT":           "9000",
		"CORS_ORIGINS":   "http://a.test, http://b.test,",
		"DECODER_MODE":   "Native",
		"DECODE_TIMEOUT": "5s",
		"MAX_UPLOAD_MB":  "8",
		"CATALOG_DRIVER": "supabase",
		"SUPABASE_URL":   "https://x.supabase.co",
		"SUPABASE_KEY":   "anon",
		"CACHE_DIR":      "/var/cache/loopmatch",
		"CACHE_TTL":      "1h",
		"WORKERS":        "4",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, DecoderNative, cfg.Decoder.Mode)
	assert.Equal(t, 5*time.Second, cfg.Decoder.Timeout)
	assert.Equal(t, int64(8<<20), cfg.Decoder.Limits.MaxUploadBytes)
	assert.Equal(t, CatalogSupabase, cfg.CatalogDriver)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"decoder mode", map[string]string{"DECODER_MODE": "gstreamer"}},
		{"gin mode", map[string]string{"GIN_MODE": "production"}},
		{"timeout", map[string]string{"DECODE_TIMEOUT": "soon"}},
		{"negative timeout", map[string]string{"DECODE_TIMEOUT": "-1s"}},
		{"workers", map[string]string{"WORKERS": "0"}},
		{"upload", map[string]string{"MAX_UPLOAD_MB": "lots"}},
		{"driver", map[string]string{"CATALOG_DRIVER": "postgres"}},
		{"supabase without key", map[string]string{"CATALOG_DRIVER": "supabase", "SUPABASE_URL": "https://x"}},
		{"max seconds", map[string]string{"ANALYSIS_MAX_SECONDS": "-3"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(envOf(tc.env))
			assert.Error(t, err)
		})
	}
}

func TestResolveFFmpeg(t *testing.T) {
	bundled := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(bundled, []byte("#!/bin/sh\n"), 0o755))
	assert.Equal(t, bundled, ResolveFFmpeg(bundled))

	t.Setenv("PATH", t.TempDir())
	assert.Empty(t, ResolveFFmpeg(filepath.Join(t.TempDir(), "missing")))
	assert.Empty(t, ResolveFFmpeg(t.TempDir()))
}
