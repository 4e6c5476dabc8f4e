package web

import (
	"context"
	"io"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/go-resty/resty/v2"
)

var client = resty.New().
	SetHeader("User-Agent", "thumbnailer-FetchMedia").
	SetTimeout(5 * time.Minute)

// FetchMedia opens a streaming GET for mediaURI. The caller must close the
// returned body.
func FetchMedia(ctx context.Context, mediaURI string) (io.ReadCloser, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(mediaURI)
	if err != nil {
		return nil, mediaerr.E(mediaerr.IO, "fetch media", err)
	}

	body := resp.RawBody()
	if resp.IsError() {
		defer body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		return nil, mediaerr.Errorf(mediaerr.IO, "fetch media", "failed to fetch media: %s, %s", resp.Status(), snippet)
	}

	return body, nil
}
