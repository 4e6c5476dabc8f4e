package media

import (
	"context"
	"errors"
	"strings"

	"github.com/creatorstation/thumbnailer/pkg/ingress"
	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/creatorstation/thumbnailer/pkg/thumbnail"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, ingress.ErrStream):
		return fiber.StatusBadRequest
	}

	switch mediaerr.KindOf(err) {
	case mediaerr.Decode, mediaerr.FrameOutOfRange:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  mediaerr.KindOf(err).String(),
	})
}

// videoMIME keeps the client's content type when it names a video type.
func videoMIME(contentType string) string {
	if strings.HasPrefix(contentType, "video/") {
		return contentType
	}
	return thumbnail.DefaultVideoMIME
}
