package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"motion-planner/raster"
	"motion-planner/server"
)

const shutdownTimeout = 5 * time.Second

func serveAction(c *cli.Context) error {
	logger := newLogger(c)
	opts, render, err := loadOptions(c)
	if err != nil {
		return cli.Exit(err, exitError)
	}

	srv, err := server.New(*opts, render, logger)
	if err != nil {
		return cli.Exit(err, exitError)
	}
	if path := c.String("in"); path != "" {
		pix, width, height, err := raster.Decode(path)
		if err != nil {
			return cli.Exit(err, exitError)
		}
		if err := srv.SetMap(pix, width, height); err != nil {
			return cli.Exit(err, exitError)
		}
		logger.Infof("Loaded map %s (%dx%d)", path, width, height)
	} else {
		logger.Info("No map given, POST an image to /map to load one")
	}

	httpServer := &http.Server{
		Addr:              c.String("addr"),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return cli.Exit(err, exitError)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
