// Command skelly renders captured web pages as paginated one-bit
// images for an e-ink display. It runs an HTTP capture server, lays
// out incoming pages, and drives the configured display backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrewjensen/skelly/internal/config"
	"github.com/andrewjensen/skelly/internal/display"
	"github.com/andrewjensen/skelly/internal/ingest"
	"github.com/andrewjensen/skelly/internal/layout"
	"github.com/andrewjensen/skelly/internal/logging"
	"github.com/andrewjensen/skelly/internal/pagination"
	"github.com/andrewjensen/skelly/internal/raster"
	"github.com/andrewjensen/skelly/internal/text"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the JSON configuration file")
		backend    = flag.String("backend", "", "display backend override (window, device, static)")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	if err := run(*configPath, *backend, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "skelly:", err)
		os.Exit(1)
	}
}

func run(configPath, backendName string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	log := logging.Logger()

	cfg := config.Default()
	if configPath != "" {
		cfg = config.LoadWithFallback(configPath)
	}
	if backendName != "" {
		cfg.Display.Backend = backendName
	}

	coll, err := text.LoadCollection(cfg.Fonts.Cascade)
	if err != nil {
		return fmt.Errorf("loading fonts: %w", err)
	}
	shaper := text.NewShaper(coll)

	backend, err := display.Open(cfg.Display)
	if err != nil {
		return fmt.Errorf("opening display backend %q (available: %v): %w",
			cfg.Display.Backend, display.Available(), err)
	}
	defer backend.Close()

	w, h := backend.Geometry()
	geom := layout.Geometry{
		Width:  w,
		Height: h,
		Margin: layout.Insets{
			Top:    cfg.Rendering.MarginY,
			Right:  cfg.Rendering.MarginX,
			Bottom: cfg.Rendering.MarginY,
			Left:   cfg.Rendering.MarginX,
		},
		BaseSize:   float64(cfg.Rendering.FontSize) * cfg.Rendering.Scale,
		LineHeight: cfg.Rendering.LineHeight,
	}
	if err := geom.Validate(); err != nil {
		return err
	}

	rast, err := raster.New(shaper, raster.Options{Depth: backend.Depth(), Progress: true})
	if err != nil {
		return err
	}

	ctrl := pagination.NewController(backend)
	pipe := ingest.NewPipeline(shaper, rast, geom, ctrl)
	srv := ingest.NewServer(cfg.Server.Addr, pipe)

	log.Info("starting",
		"backend", backend.Name(),
		"size", fmt.Sprintf("%dx%d", w, h),
		"addr", cfg.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go pipe.Run(ctx)

	errc := make(chan error, 2)
	go func() { errc <- srv.ListenAndServe(ctx) }()
	go func() { errc <- ctrl.Run(ctx) }()

	err = <-errc
	cancel()
	<-errc

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
