package thumbnail

import (
	"time"

	"github.com/creatorstation/thumbnailer/pkg/ingress"
)

const (
	DefaultAt           = time.Second
	DefaultMaxDimension = 300
	DefaultFormat       = "png"
)

// Config is the pipeline's complete configuration. There is no package-level
// state; every Pipeline carries its own copy.
type Config struct {
	// TempDir receives the buffered uploads. Empty means os.TempDir().
	TempDir string
	// At is the presentation timestamp of the extracted frame.
	At time.Duration
	// MaxDimension bounds both sides of the thumbnail.
	MaxDimension int
	// Format is the thumbnail encoding, see img.Formats.
	Format string
	// ShortVideoFallback retries clips shorter than At at half their duration
	// instead of failing with FrameOutOfRange.
	ShortVideoFallback bool
	// DecodeTimeout bounds frame extraction. Zero means no limit beyond the
	// caller's context.
	DecodeTimeout time.Duration
	// ChunkSize is the upload copy buffer size.
	ChunkSize int
	// EchoVideo returns the uploaded bytes in the result.
	EchoVideo bool
}

// DefaultConfig takes the frame at 1s and encodes a 300px PNG, with
// no fallback for short clips.
func DefaultConfig() Config {
	return Config{
		At:           DefaultAt,
		MaxDimension: DefaultMaxDimension,
		Format:       DefaultFormat,
		ChunkSize:    ingress.DefaultChunkSize,
		EchoVideo:    true,
	}
}
