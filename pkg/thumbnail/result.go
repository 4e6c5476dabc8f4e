package thumbnail

import "time"

const DefaultVideoMIME = "video/mp4"

// Result is what the presentation layer embeds in its response.
type Result struct {
	VideoBase64     string        `json:"video"`
	VideoMIME       string        `json:"video_mime"`
	VideoSize       int64         `json:"video_size"`
	ThumbnailBase64 string        `json:"thumbnail"`
	ThumbnailMIME   string        `json:"thumbnail_mime"`
	Width           int           `json:"width"`
	Height          int           `json:"height"`
	At              time.Duration `json:"-"`
}

// VideoDataURI returns the video as a data: URI, or "" when the video was
// not echoed.
func (r *Result) VideoDataURI() string {
	if r.VideoBase64 == "" {
		return ""
	}
	return "data:" + r.VideoMIME + ";base64," + r.VideoBase64
}

// ThumbnailDataURI returns the thumbnail as a data: URI.
func (r *Result) ThumbnailDataURI() string {
	return "data:" + r.ThumbnailMIME + ";base64," + r.ThumbnailBase64
}
