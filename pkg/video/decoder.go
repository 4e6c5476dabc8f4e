package video

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
)

// Decoder opens media containers on local storage. Implementations release
// every OS resource they acquire before returning.
type Decoder interface {
	// Probe reports the container duration and native frame size.
	Probe(ctx context.Context, path string) (*Info, error)

	// FrameAt decodes the frame presented at the given timestamp.
	FrameAt(ctx context.Context, path string, at time.Duration) (*Frame, error)
}

// Info describes the first video stream of a container.
type Info struct {
	// Duration is zero when the container does not report one.
	Duration time.Duration
	Width    int
	Height   int
	Codec    string
}

// Frame is a dense 8-bit RGB pixel buffer, row-major, 3 bytes per pixel.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// Validate checks that the buffer length matches the dimensions.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return mediaerr.Errorf(mediaerr.Encode, "frame", "invalid frame size %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * 3; len(f.Pix) != want {
		return mediaerr.Errorf(mediaerr.Encode, "frame", "pixel buffer has %d bytes, want %d for %dx%d RGB", len(f.Pix), want, f.Width, f.Height)
	}
	return nil
}

// Image wraps the buffer as an opaque RGBA image of the frame's size.
func (f *Frame) Image() (*image.RGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for src, dst := 0, 0; src < len(f.Pix); src, dst = src+3, dst+4 {
		img.Pix[dst] = f.Pix[src]
		img.Pix[dst+1] = f.Pix[src+1]
		img.Pix[dst+2] = f.Pix[src+2]
		img.Pix[dst+3] = 0xff
	}
	return img, nil
}

func (f *Frame) String() string {
	return fmt.Sprintf("%dx%d rgb24", f.Width, f.Height)
}
