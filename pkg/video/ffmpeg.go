// Package video decodes single frames from media containers using the
// ffmpeg and ffprobe binaries.
package video

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/rs/zerolog/log"
)

// FFmpeg implements Decoder by shelling out to ffprobe and ffmpeg. Each call
// starts and waits for its own process, so the zero value is safe for
// concurrent use.
type FFmpeg struct {
	// FFmpegPath and FFprobePath default to "ffmpeg" and "ffprobe" on PATH.
	FFmpegPath  string
	FFprobePath string
}

var _ Decoder = (*FFmpeg)(nil)

// NewFFmpeg returns a decoder using the given binaries. Empty strings fall
// back to PATH lookup.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	return &FFmpeg{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// Check reports whether both binaries can be found.
func (f *FFmpeg) Check() error {
	if _, err := exec.LookPath(f.ffmpeg()); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := exec.LookPath(f.ffprobe()); err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	return nil
}

// FrameAt probes the container, then decodes the frame at the timestamp as
// raw rgb24. Timestamps at or past the duration fail with FrameOutOfRange.
func (f *FFmpeg) FrameAt(ctx context.Context, path string, at time.Duration) (*Frame, error) {
	info, err := f.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if info.Duration > 0 && at >= info.Duration {
		return nil, mediaerr.Errorf(mediaerr.FrameOutOfRange, "seek",
			"timestamp %s is not before clip duration %s", formatSeconds(at), formatSeconds(info.Duration))
	}

	// -noautorotate keeps the decoder's native frame size, which is what
	// ffprobe reports.
	cmd := f.command(ctx, f.ffmpeg(),
		"-v", "error",
		"-noautorotate",
		"-ss", formatSeconds(at),
		"-i", path,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, mediaerr.E(mediaerr.Decode, "ffmpeg", ctx.Err())
		}
		return nil, mediaerr.Errorf(mediaerr.Decode, "ffmpeg", "%w, details: %s", err, stderr.String())
	}

	if stdout.Len() == 0 {
		// ffmpeg exits cleanly when the seek lands past the last frame.
		if at > 0 {
			return nil, mediaerr.Errorf(mediaerr.FrameOutOfRange, "seek", "no frame at %s", formatSeconds(at))
		}
		return nil, mediaerr.Errorf(mediaerr.Decode, "ffmpeg", "no frame decoded at %s", formatSeconds(at))
	}

	frame := &Frame{Width: info.Width, Height: info.Height, Pix: stdout.Bytes()}
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", path).
		Float64("at_seconds", at.Seconds()).
		Stringer("frame", frame).
		Msg("Frame decoded")

	return frame, nil
}

func (f *FFmpeg) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 5 * time.Second
	return cmd
}

func (f *FFmpeg) ffmpeg() string {
	if f.FFmpegPath != "" {
		return f.FFmpegPath
	}
	return "ffmpeg"
}

func (f *FFmpeg) ffprobe() string {
	if f.FFprobePath != "" {
		return f.FFprobePath
	}
	return "ffprobe"
}
