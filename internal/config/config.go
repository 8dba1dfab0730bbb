// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// Decoder modes.
const (
	DecoderAuto   = "auto"
	DecoderFFmpeg = "ffmpeg"
	DecoderNative = "native"
)

// Catalog drivers.
const (
	CatalogSQLite   = "sqlite"
	CatalogSupabase = "supabase"
)

// Decoder holds everything the decoding adapters need.
type Decoder struct {
	Limits     domain.Limits
	FFmpegPath string
	Mode       string
	Timeout    time.Duration
	SampleRate int
	TempDir    string
}

// Config is the full service configuration.
type Config struct {
	Port        string
	GinMode     string
	LogLevel    string
	LogFormat   string
	CORSOrigins []string

	Decoder            Decoder
	AnalysisMaxSeconds float64

	CatalogDriver string
	SQLitePath    string
	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string

	CacheDir string
	CacheTTL time.Duration

	Workers   int
	QueueSize int
}

// Load builds a Config from the environment, falling back to defaults for
// anything unset. It fails on values that are set but malformed.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:          env("PORT", "8080"),
		GinMode:       env("GIN_MODE", "release"),
		LogLevel:      env("LOG_LEVEL", "info"),
		LogFormat:     env("LOG_FORMAT", "json"),
		CORSOrigins:   splitList(env("CORS_ORIGINS", "*")),
		CatalogDriver: strings.ToLower(env("CATALOG_DRIVER", CatalogSQLite)),
		SQLitePath:    env("SQLITE_PATH", "loopmatch.db"),
		SupabaseURL:   env("SUPABASE_URL", ""),
		SupabaseKey:   env("SUPABASE_KEY", ""),
		SupabaseTable: env("SUPABASE_TABLE", "samples"),
		CacheDir:      env("CACHE_DIR", ""),
		Decoder: Decoder{
			Limits:     domain.DefaultLimits(),
			Mode:       strings.ToLower(env("DECODER_MODE", DecoderAuto)),
			SampleRate: domain.CanonicalSampleRate,
			TempDir:    env("TEMP_DIR", os.TempDir()),
		},
	}

	var err error
	if cfg.Decoder.Timeout, err = durationVar(env, "DECODE_TIMEOUT", 45*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = durationVar(env, "CACHE_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.AnalysisMaxSeconds, err = floatVar(env, "ANALYSIS_MAX_SECONDS", 30); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = intVar(env, "WORKERS", 2); err != nil {
		return Config{}, err
	}
	if cfg.QueueSize, err = intVar(env, "QUEUE_SIZE", 100); err != nil {
		return Config{}, err
	}
	maxMB, err := intVar(env, "MAX_UPLOAD_MB", 30)
	if err != nil {
		return Config{}, err
	}
	cfg.Decoder.Limits.MaxUploadBytes = int64(maxMB) << 20

	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return Config{}, fmt.Errorf("config: unknown GIN_MODE %q", cfg.GinMode)
	}
	switch cfg.Decoder.Mode {
	case DecoderAuto, DecoderFFmpeg, DecoderNative:
	default:
		return Config{}, fmt.Errorf("config: unknown DECODER_MODE %q", cfg.Decoder.Mode)
	}
	switch cfg.CatalogDriver {
	case CatalogSQLite:
	case CatalogSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return Config{}, fmt.Errorf("config: SUPABASE_URL and SUPABASE_KEY are required for the supabase catalog")
		}
	default:
		return Config{}, fmt.Errorf("config: unknown CATALOG_DRIVER %q", cfg.CatalogDriver)
	}

	cfg.Decoder.FFmpegPath = ResolveFFmpeg(getenv("FFMPEG_PATH"))
	return cfg, nil
}

// ResolveFFmpeg returns bundled when it names an existing file, otherwise
// whatever ffmpeg is on PATH, otherwise "".
func ResolveFFmpeg(bundled string) string {
	if bundled != "" {
		if info, err := os.Stat(bundled); err == nil && !info.IsDir() {
			return bundled
		}
	}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		return p
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationVar(env func(string, string) string, key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: invalid %s %q", key, raw)
	}
	return d, nil
}

func intVar(env func(string, string) string, key string, def int) (int, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("config: invalid %s %q", key, raw)
	}
	return n, nil
}

func floatVar(env func(string, string) string, key string, def float64) (float64, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("config: invalid %s %q", key, raw)
	}
	return f, nil
}
