package media

import (
	"errors"

	"github.com/creatorstation/thumbnailer/pkg/ingress"
	"github.com/creatorstation/thumbnailer/pkg/thumbnail"
	"github.com/creatorstation/thumbnailer/pkg/web"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// FormField is the multipart field carrying the video.
const FormField = "video"

type controller struct {
	pipeline *thumbnail.Pipeline
}

func MountController(router fiber.Router, pipeline *thumbnail.Pipeline) {
	h := &controller{pipeline: pipeline}

	router.Post("/thumbnail", h.GenerateThumbnail)
	router.Post("/thumbnail-url", h.GenerateThumbnailFromURL)
}

func (h *controller) GenerateThumbnail(c *fiber.Ctx) error {
	file, err := c.FormFile(FormField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	fileContent, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	defer fileContent.Close()

	res, err := h.pipeline.Run(c.UserContext(), fileContent)
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	res.VideoMIME = videoMIME(file.Header.Get("Content-Type"))

	return c.Status(fiber.StatusOK).JSON(res)
}

func (h *controller) GenerateThumbnailFromURL(c *fiber.Ctx) error {
	var body MediaURLBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := body.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	log.Info().Str("media_uri", body.MediaURI).Msg("Generating thumbnail from URL")

	stream, err := web.FetchMedia(c.UserContext(), body.MediaURI)
	if err != nil {
		return errorJSON(c, fiber.StatusBadGateway, err)
	}
	defer stream.Close()

	res, err := h.pipeline.Run(c.UserContext(), stream)
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, ingress.ErrStream) {
			status = fiber.StatusBadGateway
		}
		return errorJSON(c, status, err)
	}

	return c.Status(fiber.StatusOK).JSON(res)
}
