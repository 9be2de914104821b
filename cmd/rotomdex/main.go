package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kalambet/rotomdex/internal/api"
	"github.com/kalambet/rotomdex/internal/capture"
	"github.com/kalambet/rotomdex/internal/config"
	"github.com/kalambet/rotomdex/internal/detail"
	"github.com/kalambet/rotomdex/internal/history"
	"github.com/kalambet/rotomdex/internal/session"
	"github.com/kalambet/rotomdex/internal/storage"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "rotomdex",
	Short:         "Identify Pokémon from images and browse the Pokédex",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(pokemonCmd)
	rootCmd.AddCommand(pokedexCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	// .env values become process env before config resolves overrides.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// app bundles the wired client-side components for one command run.
type app struct {
	cfg      config.Config
	client   *api.Client
	store    *storage.Store
	history  *history.Store
	resolver *detail.Resolver
	session  *session.Session
}

// newApp loads config, initializes logging, opens storage, and wires the
// client stack. The returned cleanup closes storage.
func newApp() (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	initLogging(cfg.Log.Level)

	client := api.NewWithHTTPClient(cfg.API.BaseURL, &http.Client{
		Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	})

	store, err := storage.Open(cfg.History.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}

	hist := history.New(store, cfg.History.Cap)
	resolver := detail.New(client)
	sess := session.New(client, resolver, hist, cfg.API.TopN)

	return &app{
		cfg:      cfg,
		client:   client,
		store:    store,
		history:  hist,
		resolver: resolver,
		session:  sess,
	}, cleanup, nil
}

// cameraSource builds the ffmpeg-backed camera source from config.
func (a *app) cameraSource() *capture.FFmpegSource {
	return capture.NewFFmpegSource(a.cfg.Camera.FFmpegPath)
}

// cameraPipeline builds the capture pipeline from config.
func (a *app) cameraPipeline() *capture.Pipeline {
	source := a.cameraSource()
	opts := []capture.Option{
		capture.WithResolution(a.cfg.Camera.Width, a.cfg.Camera.Height),
	}
	if a.cfg.Camera.Device != "" {
		opts = append(opts, capture.WithDeviceID(a.cfg.Camera.Device))
	}
	if a.cfg.Camera.ReadyTimeoutMS > 0 {
		opts = append(opts, capture.WithReadyTimeout(time.Duration(a.cfg.Camera.ReadyTimeoutMS)*time.Millisecond))
	}
	return capture.NewPipeline(source, opts...)
}

func initLogging(level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}
