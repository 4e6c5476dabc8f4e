// Package thumbnail turns an uploaded video stream into the original bytes
// plus a bounded-size image of one frame, with the temp file removed on every
// exit path.
package thumbnail

import (
	"context"
	"encoding/base64"
	"io"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/ingress"
	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/creatorstation/thumbnailer/pkg/video"
	"github.com/rs/zerolog/log"
)

// Observer receives pipeline measurements.
type Observer interface {
	ObserveUpload(sizeBytes int64)
	ObserveStage(stage string, d time.Duration)
	ObserveRun(err error, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveUpload(int64)                {}
func (nopObserver) ObserveStage(string, time.Duration) {}
func (nopObserver) ObserveRun(error, time.Duration)    {}

// Pipeline is safe for concurrent use; each Run owns its temp file.
type Pipeline struct {
	cfg Config
	dec video.Decoder
	obs Observer
}

// New builds a pipeline. Zero-valued fields in cfg take their defaults.
func New(cfg Config, dec video.Decoder) *Pipeline {
	def := DefaultConfig()
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = def.MaxDimension
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	return &Pipeline{cfg: cfg, dec: dec, obs: nopObserver{}}
}

// WithObserver sets the measurement sink and returns p.
func (p *Pipeline) WithObserver(obs Observer) *Pipeline {
	if obs != nil {
		p.obs = obs
	}
	return p
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run buffers r to a temp file, extracts the thumbnail and returns both
// artifacts base64 encoded. The temp file is gone when Run returns.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (res *Result, err error) {
	start := time.Now()
	defer func() {
		p.obs.ObserveRun(err, time.Since(start))
		if err != nil {
			log.Warn().
				Err(err).
				Str("kind", mediaerr.KindOf(err).String()).
				Dur("duration", time.Since(start)).
				Msg("Thumbnail pipeline failed")
		}
	}()

	media, err := ingress.Buffer(ctx, r, ingress.Options{
		Dir:       p.cfg.TempDir,
		ChunkSize: p.cfg.ChunkSize,
		Echo:      p.cfg.EchoVideo,
	})
	if err != nil {
		return nil, err
	}
	defer media.Release()
	p.obs.ObserveStage("buffer", time.Since(start))
	p.obs.ObserveUpload(media.Size)

	thumb, err := p.ExtractThumbnail(ctx, media.Path, p.cfg.At, p.cfg.MaxDimension)
	if err != nil {
		return nil, err
	}

	res = &Result{
		VideoMIME:       DefaultVideoMIME,
		VideoSize:       media.Size,
		ThumbnailBase64: base64.StdEncoding.EncodeToString(thumb.Data),
		ThumbnailMIME:   thumb.MIMEType,
		Width:           thumb.Width,
		Height:          thumb.Height,
		At:              thumb.At,
	}
	if p.cfg.EchoVideo {
		res.VideoBase64 = base64.StdEncoding.EncodeToString(media.Raw)
	}

	log.Info().
		Int64("size_bytes", media.Size).
		Int("width", res.Width).
		Int("height", res.Height).
		Dur("duration", time.Since(start)).
		Msg("Thumbnail pipeline complete")

	return res, nil
}
