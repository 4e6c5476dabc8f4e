// Package server assembles the fiber application.
package server

import (
	"context"
	"math"

	"github.com/creatorstation/thumbnailer/internal/config"
	"github.com/creatorstation/thumbnailer/internal/cron"
	"github.com/creatorstation/thumbnailer/internal/logging"
	"github.com/creatorstation/thumbnailer/internal/media"
	"github.com/creatorstation/thumbnailer/internal/metrics"
	"github.com/creatorstation/thumbnailer/pkg/thumbnail"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

// Deps are the components the routes are bound to. Metrics, Janitor and
// Health are optional.
type Deps struct {
	Pipeline *thumbnail.Pipeline
	Metrics  *metrics.Metrics
	Janitor  *cron.Janitor
	Health   func() error

	// BaseContext parents every request context. Canceling it aborts
	// in-flight pipeline runs. Nil means context.Background().
	BaseContext context.Context
}

func New(cfg config.Config, d Deps) *fiber.App {
	bodyLimit := cfg.MaxUploadBytes
	if bodyLimit == 0 {
		bodyLimit = math.MaxInt
	}

	app := fiber.New(fiber.Config{
		AppName:               "thumbnailer",
		BodyLimit:             bodyLimit,
		StreamRequestBody:     true,
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			log.Error().Interface("panic", e).Str("path", c.Path()).Msg("Recovered from panic")
		},
	}))
	app.Use(logging.Middleware())
	app.Use(requestContext(d.BaseContext))
	app.Use(limitBody(cfg.MaxUploadBytes))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if d.Health != nil {
			if err := d.Health(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "unavailable",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	media.MountPages(app, d.Pipeline)
	media.MountController(app.Group("/media"), d.Pipeline)

	if d.Metrics != nil {
		metrics.MountController(app, d.Metrics)
	}
	if d.Janitor != nil {
		cron.MountController(app, d.Janitor)
	}

	return app
}

// requestContext gives handlers a cancelable context derived from base.
func requestContext(base context.Context) fiber.Handler {
	if base == nil {
		base = context.Background()
	}
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithCancel(base)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// limitBody rejects requests whose declared Content-Length exceeds limit.
// Zero disables the check.
func limitBody(limit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limit > 0 && c.Request().Header.ContentLength() > limit {
			return fiber.ErrRequestEntityTooLarge
		}
		return c.Next()
	}
}
