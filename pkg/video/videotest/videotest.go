// Package videotest generates small video clips for tests that need a real
// decoder.
package videotest

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"testing"
)

// RequireFFmpeg skips the test when ffmpeg or ffprobe is not installed.
func RequireFFmpeg(t testing.TB) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}
}

// Clip renders an MP4 test pattern of the given length and size into dir and
// returns its path.
func Clip(t testing.TB, dir string, seconds float64, width, height int) string {
	t.Helper()
	RequireFFmpeg(t)

	path := filepath.Join(dir, fmt.Sprintf("clip-%gs-%dx%d.mp4", seconds, width, height))
	src := fmt.Sprintf("testsrc=duration=%g:size=%dx%d:rate=25", seconds, width, height)
	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-f", "lavfi",
		"-i", src,
		"-c:v", "mpeg4",
		"-pix_fmt", "yuv420p",
		"-y", path,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("ffmpeg clip generation failed: %v: %s", err, stderr.String())
	}
	return path
}

// ClipWithAudio is like Clip but adds a sine audio track of audioSeconds, so
// the container can outlast the video stream.
func ClipWithAudio(t testing.TB, dir string, videoSeconds, audioSeconds float64, width, height int) string {
	t.Helper()
	RequireFFmpeg(t)

	path := filepath.Join(dir, fmt.Sprintf("clip-av-%gs-%gs-%dx%d.mp4", videoSeconds, audioSeconds, width, height))
	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-f", "lavfi",
		"-i", fmt.Sprintf("testsrc=duration=%g:size=%dx%d:rate=25", videoSeconds, width, height),
		"-f", "lavfi",
		"-i", fmt.Sprintf("sine=frequency=440:duration=%g", audioSeconds),
		"-c:v", "mpeg4",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-y", path,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("ffmpeg clip generation failed: %v: %s", err, stderr.String())
	}
	return path
}
