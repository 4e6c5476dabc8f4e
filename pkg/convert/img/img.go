package img

import (
	"fmt"
	"image"
	"io"
	"math"
	"strings"

	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/sunshineplan/imgconv"
	"golang.org/x/exp/slices"
)

type format struct {
	format imgconv.Format
	mime   string
}

var formats = map[string]format{
	"png":  {imgconv.PNG, "image/png"},
	"jpeg": {imgconv.JPEG, "image/jpeg"},
	"jpg":  {imgconv.JPEG, "image/jpeg"},
	"gif":  {imgconv.GIF, "image/gif"},
	"bmp":  {imgconv.BMP, "image/bmp"},
	"tiff": {imgconv.TIFF, "image/tiff"},
}

// Formats lists the accepted output format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseFormat resolves a format name such as "png" or "JPG".
func ParseFormat(name string) (imgconv.Format, error) {
	f, ok := formats[strings.ToLower(name)]
	if !ok {
		return 0, mediaerr.Errorf(mediaerr.Encode, "encode", "unsupported image format %q (supported: %s)", name, strings.Join(Formats(), ", "))
	}
	return f.format, nil
}

// MIMEType returns the media type for a format name, or "" if unknown.
func MIMEType(name string) string {
	return formats[strings.ToLower(name)].mime
}

// Fit returns the size of a width x height image scaled so that neither side
// exceeds maxDim, keeping the aspect ratio. Images already inside the box
// keep their size. maxDim must be positive.
func Fit(width, height, maxDim int) (int, int) {
	if width <= maxDim && height <= maxDim {
		return width, height
	}

	if width >= height {
		h := int(math.Round(float64(height) * float64(maxDim) / float64(width)))
		return maxDim, max(h, 1)
	}

	w := int(math.Round(float64(width) * float64(maxDim) / float64(height)))
	return max(w, 1), maxDim
}

// Thumbnail downscales src to fit within a maxDim box. It never upscales.
func Thumbnail(src image.Image, maxDim int) image.Image {
	bounds := src.Bounds()
	width, height := Fit(bounds.Dx(), bounds.Dy(), maxDim)
	if width == bounds.Dx() && height == bounds.Dy() {
		return src
	}

	return imgconv.Resize(src, &imgconv.ResizeOption{
		Width:  width,
		Height: height,
	})
}

// Encode serializes img in the named format.
func Encode(w io.Writer, img image.Image, name string) error {
	f, err := ParseFormat(name)
	if err != nil {
		return err
	}

	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return mediaerr.Errorf(mediaerr.Encode, "encode", "empty image %v", b)
	}

	if err := imgconv.Write(w, img, &imgconv.FormatOption{Format: f}); err != nil {
		return mediaerr.E(mediaerr.Encode, "encode", fmt.Errorf("error encoding %s: %w", name, err))
	}
	return nil
}
