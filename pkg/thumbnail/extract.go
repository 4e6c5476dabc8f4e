package thumbnail

import (
	"bytes"
	"context"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/convert/img"
	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/creatorstation/thumbnailer/pkg/video"
	"github.com/rs/zerolog/log"
)

// Thumbnail is an encoded, bounded-size image of one video frame.
type Thumbnail struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	// At is the timestamp the frame was actually taken from.
	At time.Duration
}

// ExtractThumbnail decodes the frame at the given timestamp, fits it within a
// maxDim box and encodes it in the configured format.
func (p *Pipeline) ExtractThumbnail(ctx context.Context, path string, at time.Duration, maxDim int) (*Thumbnail, error) {
	if maxDim < 1 {
		return nil, mediaerr.Errorf(mediaerr.Encode, "thumbnail", "bounding dimension must be at least 1, got %d", maxDim)
	}

	if p.cfg.DecodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.DecodeTimeout)
		defer cancel()
	}

	start := time.Now()
	frame, err := p.dec.FrameAt(ctx, path, at)
	if err != nil && p.cfg.ShortVideoFallback && mediaerr.KindOf(err) == mediaerr.FrameOutOfRange {
		frame, at, err = p.fallbackFrame(ctx, path, at, err)
	}
	if err != nil {
		return nil, err
	}
	p.obs.ObserveStage("decode", time.Since(start))

	start = time.Now()
	rgb, err := frame.Image()
	if err != nil {
		return nil, err
	}

	thumb := img.Thumbnail(rgb, maxDim)

	var buf bytes.Buffer
	if err := img.Encode(&buf, thumb, p.cfg.Format); err != nil {
		return nil, err
	}
	p.obs.ObserveStage("encode", time.Since(start))

	bounds := thumb.Bounds()
	log.Debug().
		Str("path", path).
		Float64("at_seconds", at.Seconds()).
		Int("orig_width", frame.Width).
		Int("orig_height", frame.Height).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("output_size", buf.Len()).
		Msg("Thumbnail generated")

	return &Thumbnail{
		Data:     buf.Bytes(),
		MIMEType: img.MIMEType(p.cfg.Format),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		At:       at,
	}, nil
}

// fallbackFrame retries once at half the clip's duration. The original error
// is returned when the duration is unknown.
func (p *Pipeline) fallbackFrame(ctx context.Context, path string, at time.Duration, cause error) (*video.Frame, time.Duration, error) {
	info, err := p.dec.Probe(ctx, path)
	if err != nil {
		return nil, at, err
	}
	if info.Duration <= 0 {
		return nil, at, cause
	}

	retryAt := min(at, info.Duration/2)
	log.Info().
		Str("path", path).
		Dur("duration", info.Duration).
		Float64("at_seconds", retryAt.Seconds()).
		Msg("Clip shorter than requested timestamp, retrying at midpoint")

	frame, err := p.dec.FrameAt(ctx, path, retryAt)
	return frame, retryAt, err
}
