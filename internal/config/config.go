// Package config loads the service configuration from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/convert/img"
	"github.com/creatorstation/thumbnailer/pkg/ingress"
	"github.com/creatorstation/thumbnailer/pkg/thumbnail"
	v "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// Config holds every setting the service reads at startup.
type Config struct {
	ListenAddr string
	LogLevel   string
	LogFormat  string

	TempDir            string
	AtSeconds          float64
	MaxDimension       int
	Format             string
	ShortVideoFallback bool
	EchoVideo          bool
	ChunkSize          int
	DecodeTimeout      time.Duration

	// MaxUploadBytes caps the request body. Zero means no cap.
	MaxUploadBytes int

	FFmpegPath  string
	FFprobePath string

	JanitorSchedule string
	JanitorMaxAge   time.Duration
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		LogLevel:        "info",
		LogFormat:       "console",
		TempDir:         os.TempDir(),
		AtSeconds:       thumbnail.DefaultAt.Seconds(),
		MaxDimension:    thumbnail.DefaultMaxDimension,
		Format:          thumbnail.DefaultFormat,
		EchoVideo:       true,
		ChunkSize:       ingress.DefaultChunkSize,
		DecodeTimeout:   time.Minute,
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		JanitorSchedule: "@every 10m",
		JanitorMaxAge:   time.Hour,
	}
}

// Load reads envFile (if it exists) into the process environment and then
// builds a Config from THUMB_* variables. The result is validated.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	p := &parser{}

	cfg.ListenAddr = getenv("THUMB_LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = strings.ToLower(getenv("THUMB_LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getenv("THUMB_LOG_FORMAT", cfg.LogFormat))
	cfg.TempDir = getenv("THUMB_TEMP_DIR", cfg.TempDir)
	cfg.AtSeconds = p.float("THUMB_AT_SECONDS", cfg.AtSeconds)
	cfg.MaxDimension = p.int("THUMB_MAX_DIMENSION", cfg.MaxDimension)
	cfg.Format = strings.ToLower(getenv("THUMB_FORMAT", cfg.Format))
	cfg.ShortVideoFallback = p.bool("THUMB_SHORT_VIDEO_FALLBACK", cfg.ShortVideoFallback)
	cfg.EchoVideo = p.bool("THUMB_ECHO_VIDEO", cfg.EchoVideo)
	cfg.ChunkSize = p.int("THUMB_CHUNK_SIZE", cfg.ChunkSize)
	cfg.DecodeTimeout = p.duration("THUMB_DECODE_TIMEOUT", cfg.DecodeTimeout)
	cfg.MaxUploadBytes = p.int("THUMB_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.FFmpegPath = getenv("THUMB_FFMPEG", cfg.FFmpegPath)
	cfg.FFprobePath = getenv("THUMB_FFPROBE", cfg.FFprobePath)
	cfg.JanitorSchedule = getenv("THUMB_JANITOR_SCHEDULE", cfg.JanitorSchedule)
	cfg.JanitorMaxAge = p.duration("THUMB_JANITOR_MAX_AGE", cfg.JanitorMaxAge)

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	formats := make([]interface{}, 0)
	for _, f := range img.Formats() {
		formats = append(formats, f)
	}

	return v.ValidateStruct(&c,
		v.Field(&c.ListenAddr, v.Required),
		v.Field(&c.LogLevel, v.In("debug", "info", "warn", "error")),
		v.Field(&c.LogFormat, v.In("console", "json")),
		v.Field(&c.TempDir, v.Required, v.By(isDir)),
		v.Field(&c.AtSeconds, v.Min(0.0)),
		v.Field(&c.MaxDimension, v.Required, v.Min(1)),
		v.Field(&c.Format, v.Required, v.In(formats...)),
		v.Field(&c.ChunkSize, v.Required, v.Min(1)),
		v.Field(&c.DecodeTimeout, v.Min(time.Duration(0))),
		v.Field(&c.MaxUploadBytes, v.Min(0)),
		v.Field(&c.FFmpegPath, v.Required),
		v.Field(&c.FFprobePath, v.Required),
		v.Field(&c.JanitorSchedule, v.Required),
		v.Field(&c.JanitorMaxAge, v.Min(time.Minute)),
	)
}

// Pipeline converts the settings the thumbnail pipeline needs.
func (c Config) Pipeline() thumbnail.Config {
	return thumbnail.Config{
		TempDir:            c.TempDir,
		At:                 time.Duration(c.AtSeconds * float64(time.Second)),
		MaxDimension:       c.MaxDimension,
		Format:             c.Format,
		ShortVideoFallback: c.ShortVideoFallback,
		DecodeTimeout:      c.DecodeTimeout,
		ChunkSize:          c.ChunkSize,
		EchoVideo:          c.EchoVideo,
	}
}

func isDir(value interface{}) error {
	dir, _ := value.(string)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}

func getenv(k, d string) string {
	if val := os.Getenv(k); val != "" {
		return val
	}
	return d
}

// parser collects conversion errors so all bad variables are reported at once.
type parser struct {
	errs []error
}

func (p *parser) int(k string, d int) int {
	s := os.Getenv(k)
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", k, err))
		return d
	}
	return n
}

func (p *parser) float(k string, d float64) float64 {
	s := os.Getenv(k)
	if s == "" {
		return d
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", k, err))
		return d
	}
	return f
}

func (p *parser) bool(k string, d bool) bool {
	s := os.Getenv(k)
	if s == "" {
		return d
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", k, err))
		return d
	}
	return b
}

func (p *parser) duration(k string, d time.Duration) time.Duration {
	s := os.Getenv(k)
	if s == "" {
		return d
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", k, err))
		return d
	}
	return dur
}
