package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creatorstation/thumbnailer/internal/config"
	"github.com/creatorstation/thumbnailer/internal/cron"
	"github.com/creatorstation/thumbnailer/internal/logging"
	"github.com/creatorstation/thumbnailer/internal/metrics"
	"github.com/creatorstation/thumbnailer/internal/server"
	"github.com/creatorstation/thumbnailer/pkg/thumbnail"
	"github.com/creatorstation/thumbnailer/pkg/video"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	envFileFlag  string
	addrFlag     string
	tempDirFlag  string
	atFlag       float64
	maxDimFlag   int
	formatFlag   string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "thumbnailer",
	Short: "Generate preview thumbnails from uploaded videos",
	Long: `Thumbnailer accepts a video upload, takes the frame at a fixed timestamp
and returns the video together with a small image thumbnail, both base64
encoded. A browser form is served at /form/ and a JSON API under /media.

Settings come from THUMB_* environment variables and an optional .env file.
Flags override both.

Examples:
  thumbnailer
  thumbnailer --addr :9090 --max-dim 480
  thumbnailer --format jpeg --at 2.5`,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	rootCmd.Flags().StringVar(&envFileFlag, "env-file", ".env", "Optional dotenv file read before the environment")
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (THUMB_LISTEN_ADDR)")
	rootCmd.Flags().StringVar(&tempDirFlag, "temp-dir", "", "Directory for buffered uploads (THUMB_TEMP_DIR)")
	rootCmd.Flags().Float64Var(&atFlag, "at", 0, "Timestamp of the thumbnail frame in seconds (THUMB_AT_SECONDS)")
	rootCmd.Flags().IntVar(&maxDimFlag, "max-dim", 0, "Largest thumbnail side in pixels (THUMB_MAX_DIMENSION)")
	rootCmd.Flags().StringVar(&formatFlag, "format", "", "Thumbnail image format (THUMB_FORMAT)")
	rootCmd.Flags().StringVar(&logLevelFlag, "log-level", "", "debug, info, warn or error (THUMB_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(envFileFlag)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.ListenAddr = addrFlag
	}
	if flags.Changed("temp-dir") {
		cfg.TempDir = tempDirFlag
	}
	if flags.Changed("at") {
		cfg.AtSeconds = atFlag
	}
	if flags.Changed("max-dim") {
		cfg.MaxDimension = maxDimFlag
	}
	if flags.Changed("format") {
		cfg.Format = formatFlag
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}

	return cfg, cfg.Validate()
}

func runMain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	decoder := video.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath)
	if err := decoder.Check(); err != nil {
		log.Warn().Err(err).Msg("ffmpeg is not usable, uploads will fail until it is installed")
	}

	m := metrics.New()
	pipeline := thumbnail.New(cfg.Pipeline(), decoder).WithObserver(m)

	janitor := &cron.Janitor{Dir: cfg.TempDir, MaxAge: cfg.JanitorMaxAge}
	scheduler, err := cron.SetupJanitorCron(janitor, cfg.JanitorSchedule)
	if err != nil {
		return err
	}

	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	app := server.New(cfg, server.Deps{
		Pipeline:    pipeline,
		Metrics:     m,
		Janitor:     janitor,
		Health:      decoder.Check,
		BaseContext: runCtx,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		cancelRuns()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Error().Err(err).Msg("Server shutdown incomplete")
		}
		<-scheduler.Stop().Done()
	}()

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("temp_dir", cfg.TempDir).
		Float64("at_seconds", cfg.AtSeconds).
		Int("max_dimension", cfg.MaxDimension).
		Str("format", cfg.Format).
		Msg("Starting thumbnailer")

	return app.Listen(cfg.ListenAddr)
}
