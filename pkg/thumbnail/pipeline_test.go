package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/creatorstation/thumbnailer/pkg/video"
	"github.com/creatorstation/thumbnailer/pkg/video/videotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, dec video.Decoder, mutate ...func(*Config)) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.TempDir = dir
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg, dec), dir
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files left behind")
}

func TestRunProducesBoundedPNG(t *testing.T) {
	p, dir := newTestPipeline(t, &videotest.Decoder{})
	input := videotest.Fake(640, 480, 5, "a")

	res, err := p.Run(context.Background(), bytes.NewReader(input))
	require.NoError(t, err)
	requireEmptyDir(t, dir)

	assert.Equal(t, 300, res.Width)
	assert.Equal(t, 225, res.Height)
	assert.Equal(t, "image/png", res.ThumbnailMIME)
	assert.Equal(t, int64(len(input)), res.VideoSize)
	assert.Equal(t, time.Second, res.At)

	echoed, err := base64.StdEncoding.DecodeString(res.VideoBase64)
	require.NoError(t, err)
	assert.Equal(t, input, echoed)

	thumb, err := base64.StdEncoding.DecodeString(res.ThumbnailBase64)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 225, cfg.Height)

	assert.True(t, strings.HasPrefix(res.VideoDataURI(), "data:video/mp4;base64,"))
	assert.True(t, strings.HasPrefix(res.ThumbnailDataURI(), "data:image/png;base64,"))
}

func TestRunAspectRatioPreserved(t *testing.T) {
	sizes := [][2]int{{1920, 1080}, {1080, 1920}, {333, 1000}, {301, 300}, {120, 90}}

	for _, size := range sizes {
		t.Run(fmt.Sprintf("%dx%d", size[0], size[1]), func(t *testing.T) {
			p, dir := newTestPipeline(t, &videotest.Decoder{})
			res, err := p.Run(context.Background(), bytes.NewReader(videotest.Fake(size[0], size[1], 2, "x")))
			require.NoError(t, err)
			requireEmptyDir(t, dir)

			assert.LessOrEqual(t, max(res.Width, res.Height), 300)
			if size[0] <= 300 && size[1] <= 300 {
				assert.Equal(t, size[0], res.Width)
				assert.Equal(t, size[1], res.Height)
				return
			}
			wantH := float64(res.Width) * float64(size[1]) / float64(size[0])
			assert.InDelta(t, wantH, float64(res.Height), 1.0)
		})
	}
}

func TestRunCorruptInput(t *testing.T) {
	p, dir := newTestPipeline(t, &videotest.Decoder{})

	_, err := p.Run(context.Background(), bytes.NewReader([]byte{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}))
	require.Error(t, err)
	assert.ErrorIs(t, err, mediaerr.ErrDecode)
	requireEmptyDir(t, dir)
}

func TestRunClipNotLongerThanTimestamp(t *testing.T) {
	for _, seconds := range []float64{1.0, 0.5} {
		t.Run(fmt.Sprint(seconds), func(t *testing.T) {
			p, dir := newTestPipeline(t, &videotest.Decoder{})

			_, err := p.Run(context.Background(), bytes.NewReader(videotest.Fake(64, 48, seconds, "short")))
			require.Error(t, err)
			assert.Equal(t, mediaerr.FrameOutOfRange, mediaerr.KindOf(err))
			requireEmptyDir(t, dir)
		})
	}
}

func TestRunShortVideoFallback(t *testing.T) {
	dec := &videotest.Decoder{}
	p, dir := newTestPipeline(t, dec, func(c *Config) { c.ShortVideoFallback = true })

	res, err := p.Run(context.Background(), bytes.NewReader(videotest.Fake(64, 48, 0.8, "short")))
	require.NoError(t, err)
	requireEmptyDir(t, dir)

	assert.Equal(t, 400*time.Millisecond, res.At)
	assert.Equal(t, []time.Duration{time.Second, 400 * time.Millisecond}, dec.Calls())
}

func TestExtractThumbnailRejectsEmptyBox(t *testing.T) {
	dec := &videotest.Decoder{}
	p, dir := newTestPipeline(t, dec)
	path := dir + "/clip.mp4"
	require.NoError(t, os.WriteFile(path, videotest.Fake(640, 480, 5, "box"), 0o600))

	for _, maxDim := range []int{0, -300} {
		_, err := p.ExtractThumbnail(context.Background(), path, time.Second, maxDim)
		require.Error(t, err)
		assert.ErrorIs(t, err, mediaerr.ErrEncode)
	}
	assert.Empty(t, dec.Calls())

	thumb, err := p.ExtractThumbnail(context.Background(), path, time.Second, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, thumb.Width)
	assert.Equal(t, 1, thumb.Height)
}

func TestRunIdempotent(t *testing.T) {
	p, _ := newTestPipeline(t, &videotest.Decoder{})
	input := videotest.Fake(1280, 720, 3, "same")

	first, err := p.Run(context.Background(), bytes.NewReader(input))
	require.NoError(t, err)
	second, err := p.Run(context.Background(), bytes.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, first.ThumbnailBase64, second.ThumbnailBase64)
}

func TestRunConcurrentInputsStayPaired(t *testing.T) {
	p, dir := newTestPipeline(t, &videotest.Decoder{})
	const n = 16

	results := make([]*Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Run(context.Background(), bytes.NewReader(videotest.Fake(400, 400, 2, fmt.Sprint(i))))
		}(i)
	}
	wg.Wait()
	requireEmptyDir(t, dir)

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		input := videotest.Fake(400, 400, 2, fmt.Sprint(i))
		want := videotest.Color(input)

		echoed, err := base64.StdEncoding.DecodeString(results[i].VideoBase64)
		require.NoError(t, err)
		assert.Equal(t, input, echoed)

		thumb, err := base64.StdEncoding.DecodeString(results[i].ThumbnailBase64)
		require.NoError(t, err)
		decoded, err := png.Decode(bytes.NewReader(thumb))
		require.NoError(t, err)
		r, g, b, _ := decoded.At(150, 150).RGBA()
		assert.InDelta(t, float64(want[0]), float64(r>>8), 1, "input %d", i)
		assert.InDelta(t, float64(want[1]), float64(g>>8), 1, "input %d", i)
		assert.InDelta(t, float64(want[2]), float64(b>>8), 1, "input %d", i)
	}
}

func TestRunDecodeTimeout(t *testing.T) {
	p, dir := newTestPipeline(t, &videotest.Decoder{Block: true}, func(c *Config) { c.DecodeTimeout = 20 * time.Millisecond })

	_, err := p.Run(context.Background(), bytes.NewReader(videotest.Fake(64, 48, 5, "slow")))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	requireEmptyDir(t, dir)
}

func TestRunBadFrameIsEncodeError(t *testing.T) {
	p, dir := newTestPipeline(t, &videotest.Decoder{BadFrame: true})

	_, err := p.Run(context.Background(), bytes.NewReader(videotest.Fake(64, 48, 5, "bad")))
	require.Error(t, err)
	assert.Equal(t, mediaerr.Encode, mediaerr.KindOf(err))
	requireEmptyDir(t, dir)
}

func TestRunWithoutEcho(t *testing.T) {
	p, _ := newTestPipeline(t, &videotest.Decoder{}, func(c *Config) { c.EchoVideo = false })

	res, err := p.Run(context.Background(), bytes.NewReader(videotest.Fake(64, 48, 5, "quiet")))
	require.NoError(t, err)
	assert.Empty(t, res.VideoBase64)
	assert.Empty(t, res.VideoDataURI())
}

type recordingObserver struct {
	mu     sync.Mutex
	upload int64
	stages []string
	runs   []error
}

func (o *recordingObserver) ObserveUpload(n int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.upload += n
}

func (o *recordingObserver) ObserveStage(stage string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) ObserveRun(err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, err)
}

func TestRunReportsToObserver(t *testing.T) {
	obs := &recordingObserver{}
	p, _ := newTestPipeline(t, &videotest.Decoder{})
	p.WithObserver(obs)

	input := videotest.Fake(64, 48, 5, "obs")
	_, err := p.Run(context.Background(), bytes.NewReader(input))
	require.NoError(t, err)
	_, err = p.Run(context.Background(), bytes.NewReader([]byte("junk")))
	require.Error(t, err)

	assert.Equal(t, int64(len(input)+len("junk")), obs.upload)
	assert.Equal(t, []string{"buffer", "decode", "encode", "buffer"}, obs.stages)
	require.Len(t, obs.runs, 2)
	assert.NoError(t, obs.runs[0])
	assert.ErrorIs(t, obs.runs[1], mediaerr.ErrDecode)
}

func TestNewAppliesDefaults(t *testing.T) {
	p := New(Config{}, &videotest.Decoder{})
	cfg := p.Config()
	assert.Equal(t, DefaultMaxDimension, cfg.MaxDimension)
	assert.Equal(t, DefaultFormat, cfg.Format)
	assert.Positive(t, cfg.ChunkSize)
}
