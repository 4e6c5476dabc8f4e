package cron

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/ingress"
	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Janitor removes buffered uploads left behind by a crashed or killed
// process. Live requests delete their own files; anything older than MaxAge
// with the ingress prefix is considered orphaned.
type Janitor struct {
	Dir    string
	MaxAge time.Duration
}

// Sweep deletes orphaned files and returns how many were removed.
func (j *Janitor) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(j.Dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), ingress.Prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if now.Sub(info.ModTime()) < j.MaxAge {
			continue
		}

		path := filepath.Join(j.Dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
		log.Info().Str("path", path).Time("modified", info.ModTime()).Msg("Removed orphaned temp file")
	}

	return removed, errors.Join(errs...)
}

func (j *Janitor) run() {
	removed, err := j.Sweep(time.Now())
	if err != nil {
		log.Warn().Err(err).Str("dir", j.Dir).Msg("Janitor sweep incomplete")
	}
	log.Debug().Int("removed", removed).Str("dir", j.Dir).Msg("Janitor sweep completed")
}

// SetupJanitorCron sweeps once immediately, then on every tick of schedule.
// Stop the returned scheduler on shutdown.
func SetupJanitorCron(j *Janitor, schedule string) (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("failed to add janitor cron job: %w", err)
	}

	j.run()
	c.Start()
	log.Info().Str("schedule", schedule).Dur("max_age", j.MaxAge).Msg("Janitor cron job scheduled")
	return c, nil
}

func MountController(router fiber.Router, j *Janitor) {
	router.Post("/cron/janitor/run", func(c *fiber.Ctx) error {
		removed, err := j.Sweep(time.Now())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   err.Error(),
				"removed": removed,
			})
		}
		return c.JSON(fiber.Map{
			"removed": removed,
		})
	})
}
