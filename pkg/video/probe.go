package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/rs/zerolog/log"
)

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

type ffprobeStream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
	NbFrames  string `json:"nb_frames"`
}

// Probe runs ffprobe and reads the first video stream.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*Info, error) {
	cmd := f.command(ctx, f.ffprobe(),
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, mediaerr.E(mediaerr.Decode, "ffprobe", ctx.Err())
		}
		return nil, mediaerr.Errorf(mediaerr.Decode, "ffprobe", "%w, details: %s", err, stderr.String())
	}

	info, err := parseProbe(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", path).
		Dur("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Str("codec", info.Codec).
		Msg("Probed video")

	return info, nil
}

func parseProbe(data []byte) (*Info, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, mediaerr.Errorf(mediaerr.Decode, "ffprobe", "failed to parse ffprobe output: %w", err)
	}

	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return nil, mediaerr.Errorf(mediaerr.Decode, "ffprobe", "video stream has no frame size")
		}
		if s.NbFrames == "0" {
			return nil, mediaerr.Errorf(mediaerr.Decode, "ffprobe", "video stream has zero frames")
		}

		// The container duration covers the longest stream, which may be audio.
		duration := parseSeconds(s.Duration)
		if duration == 0 {
			duration = parseSeconds(probe.Format.Duration)
		}

		return &Info{
			Duration: duration,
			Width:    s.Width,
			Height:   s.Height,
			Codec:    s.CodecName,
		}, nil
	}

	return nil, mediaerr.Errorf(mediaerr.Decode, "ffprobe", "no video stream in container %q", probe.Format.FormatName)
}

// parseSeconds converts ffprobe's decimal seconds ("5.000000") to a
// duration. Missing or "N/A" values yield zero.
func parseSeconds(s string) time.Duration {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

// formatSeconds renders a timestamp the way ffmpeg's -ss expects it.
func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
