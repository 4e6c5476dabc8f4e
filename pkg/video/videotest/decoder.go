package videotest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/creatorstation/thumbnailer/pkg/video"
)

// Fake returns the bytes of a synthetic clip that Decoder understands.
func Fake(width, height int, seconds float64, payload string) []byte {
	return []byte(fmt.Sprintf("VID:%dx%d:%g:%s", width, height, seconds, payload))
}

// Color is the pixel color Decoder paints for the given file contents.
func Color(data []byte) [3]byte {
	sum := sha256.Sum256(data)
	return [3]byte{sum[0], sum[1], sum[2]}
}

// Decoder is an in-process video.Decoder for files built with Fake. Every
// pixel of a decoded frame has Color(file contents), so distinct inputs yield
// distinct thumbnails. Anything else fails with a Decode error.
type Decoder struct {
	// Block makes FrameAt wait for context cancellation.
	Block bool
	// BadFrame truncates the pixel buffer by one byte.
	BadFrame bool

	mu    sync.Mutex
	calls []time.Duration
}

var _ video.Decoder = (*Decoder)(nil)

// Calls returns the timestamps passed to FrameAt so far.
func (d *Decoder) Calls() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.calls...)
}

func (d *Decoder) Probe(ctx context.Context, path string) (*video.Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mediaerr.E(mediaerr.Decode, "probe", err)
	}

	var w, h int
	var seconds float64
	if _, err := fmt.Sscanf(string(data), "VID:%dx%d:%g:", &w, &h, &seconds); err != nil {
		return nil, mediaerr.Errorf(mediaerr.Decode, "probe", "not a fake clip: %w", err)
	}
	return &video.Info{
		Width:    w,
		Height:   h,
		Duration: time.Duration(seconds * float64(time.Second)),
		Codec:    "fake",
	}, nil
}

func (d *Decoder) FrameAt(ctx context.Context, path string, at time.Duration) (*video.Frame, error) {
	d.mu.Lock()
	d.calls = append(d.calls, at)
	d.mu.Unlock()

	if d.Block {
		<-ctx.Done()
		return nil, mediaerr.E(mediaerr.Decode, "frame", ctx.Err())
	}

	info, err := d.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if at >= info.Duration {
		return nil, mediaerr.Errorf(mediaerr.FrameOutOfRange, "seek", "timestamp %s is not before clip duration %s", at, info.Duration)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mediaerr.E(mediaerr.Decode, "frame", err)
	}
	c := Color(data)
	pix := bytes.Repeat(c[:], info.Width*info.Height)
	if d.BadFrame {
		pix = pix[:len(pix)-1]
	}
	return &video.Frame{Width: info.Width, Height: info.Height, Pix: pix}, nil
}
