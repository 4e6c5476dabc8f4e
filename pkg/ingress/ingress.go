// Package ingress materializes an upload stream as a uniquely named file on
// local storage, for decoders that need file access instead of a stream.
package ingress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// Prefix starts every file name Buffer creates. The janitor uses it to
	// recognize orphans.
	Prefix = "vthumb-"

	DefaultSuffix    = ".mp4"
	DefaultChunkSize = 64 * 1024
)

// ErrStream marks failures reading the caller's stream, as opposed to local
// storage failures.
var ErrStream = errors.New("upload stream failed")

// Options controls where and how the upload is buffered.
type Options struct {
	Dir       string
	Suffix    string
	ChunkSize int

	// Echo keeps a copy of the raw bytes in memory so the caller can send the
	// video back. The temp file is the only other copy.
	Echo bool
}

// Media is a buffered upload. The caller owns it and must call Release.
type Media struct {
	Path string
	Size int64

	// Raw holds the uploaded bytes when Options.Echo is set.
	Raw []byte

	once sync.Once
}

// Buffer copies r into a new temp file chunk by chunk, checking ctx between
// chunks. On any error the partial file is removed before returning.
func Buffer(ctx context.Context, r io.Reader, opts Options) (*Media, error) {
	if opts.Dir == "" {
		opts.Dir = os.TempDir()
	}
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	path := filepath.Join(opts.Dir, Prefix+uuid.NewString()+opts.Suffix)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, mediaerr.E(mediaerr.IO, "create temp file", err)
	}

	log.Debug().Str("path", path).Msg("Buffering upload")

	var echo *bytes.Buffer
	var dst io.Writer = f
	if opts.Echo {
		echo = new(bytes.Buffer)
		dst = io.MultiWriter(f, echo)
	}

	n, copyErr := copyChunks(ctx, dst, r, opts.ChunkSize)
	if copyErr == nil {
		copyErr = f.Sync()
		if copyErr != nil {
			copyErr = mediaerr.E(mediaerr.IO, "sync temp file", copyErr)
		}
	}
	if err := f.Close(); err != nil && copyErr == nil {
		copyErr = mediaerr.E(mediaerr.IO, "close temp file", err)
	}
	if copyErr != nil {
		removeQuietly(path)
		return nil, copyErr
	}

	m := &Media{Path: path, Size: n}
	if echo != nil {
		m.Raw = echo.Bytes()
	}

	log.Debug().Str("path", path).Int64("size_bytes", n).Msg("Upload buffered")
	return m, nil
}

func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, mediaerr.E(mediaerr.IO, "read upload", err)
		}

		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			total += int64(nw)
			if werr != nil {
				return total, mediaerr.E(mediaerr.IO, "write temp file", werr)
			}
			if nw != nr {
				return total, mediaerr.E(mediaerr.IO, "write temp file", io.ErrShortWrite)
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, mediaerr.E(mediaerr.IO, "read upload", fmt.Errorf("%w: %w", ErrStream, rerr))
		}
	}
}

// Release deletes the temp file. Only the first call does anything; a file
// that is already gone is not an error.
func (m *Media) Release() {
	m.once.Do(func() {
		removeQuietly(m.Path)
		m.Raw = nil
	})
}

func removeQuietly(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		log.Debug().Str("path", path).Msg("Temp file removed")
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", path).Msg("Temp file already removed")
	default:
		log.Warn().Err(err).Str("path", path).Msg("Failed to remove temp file")
	}
}
