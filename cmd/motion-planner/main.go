// Package main plans a collision-free path across a map image and draws it onto the image, or
// serves the planner over HTTP.
package main

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"motion-planner/occupancy"
	"motion-planner/overlay"
	"motion-planner/planner"
	"motion-planner/raster"
)

const (
	exitError      = 1
	exitNoSolution = 2

	// start column used when no start or goal is given.
	defaultColumn = 150.0
)

// fileConfig is the layout of the --config JSON file. Missing fields keep their defaults.
type fileConfig struct {
	Planner *planner.Options `json:"planner"`
	Render  *overlay.Options `json:"render"`
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "motion-planner",
		Usage: "plan collision-free paths across map images",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			{
				Name:      "plan",
				Usage:     "plan a path and draw it onto the map",
				UsageText: "motion-planner plan --in map.png --out solved.png --start 150,0 --goal 150,299",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "in", Required: true, Usage: "map image, bright pixels are free"},
					&cli.StringFlag{Name: "out", Value: "solved.png", Usage: "output image (.png, .ppm, .jpg)"},
					&cli.StringFlag{Name: "start", Usage: "start pixel as x,y (default 150,0)"},
					&cli.StringFlag{Name: "goal", Usage: "goal pixel as x,y (default 150,height-1)"},
					&cli.StringFlag{Name: "path-out", Usage: "write the planner result as JSON to this file"},
				}, plannerFlags()...),
				Action: planAction,
			},
			{
				Name:  "serve",
				Usage: "serve the planner over HTTP",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "in", Usage: "map image to load at startup"},
					&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "listen address"},
				}, plannerFlags()...),
				Action: serveAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var coder cli.ExitCoder
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(exitError)
	}
}

func plannerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "JSON file with planner and render options"},
		&cli.DurationFlag{Name: "timeout", Usage: "planning time budget (default 5s)"},
		&cli.IntFlag{Name: "max-iter", Usage: "planner iteration limit, 0 for none"},
		&cli.IntFlag{Name: "threshold", Usage: "brightness 0-255 at or above which a pixel is free (default 200)"},
		&cli.Float64Flag{Name: "resolution", Usage: "motion check spacing as a fraction of the longer image side"},
		&cli.Float64Flag{Name: "range", Usage: "longest tree extension in pixels"},
		&cli.Float64Flag{Name: "goal-bias", Usage: "probability of sampling the opposite tree's root"},
		&cli.Int64Flag{Name: "seed", Usage: "random seed for reproducible plans"},
		&cli.BoolFlag{Name: "no-simplify", Usage: "keep the raw tree path"},
		&cli.IntFlag{Name: "marker-radius", Usage: "half-size of the square drawn around each path pixel (default 1)"},
		&cli.StringFlag{Name: "color", Usage: "path color as hex rrggbb (default ff0000)"},
	}
}

func newLogger(c *cli.Context) golog.Logger {
	if c.Bool("debug") {
		return golog.NewDebugLogger("motion-planner")
	}
	return golog.NewDevelopmentLogger("motion-planner")
}

// loadOptions builds the planner and render options from defaults, then the config file, then flags.
func loadOptions(c *cli.Context) (*planner.Options, overlay.Options, error) {
	opts := planner.NewDefaultOptions()
	render := overlay.NewDefaultOptions()

	if path := c.String("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, render, errors.Wrap(err, "failed to read config")
		}
		cfg := fileConfig{Planner: opts, Render: &render}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, render, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}

	if c.IsSet("timeout") {
		opts.TimeBudget = c.Duration("timeout").Seconds()
	}
	if c.IsSet("max-iter") {
		opts.MaxIterations = c.Int("max-iter")
	}
	if c.IsSet("threshold") {
		opts.FreeThreshold = c.Int("threshold")
	}
	if c.IsSet("resolution") {
		opts.StepResolution = c.Float64("resolution")
	}
	if c.IsSet("range") {
		opts.MaxExtendStep = c.Float64("range")
	}
	if c.IsSet("goal-bias") {
		opts.GoalBias = c.Float64("goal-bias")
	}
	if c.IsSet("seed") {
		opts.Seed(c.Int64("seed"))
	}
	if c.Bool("no-simplify") {
		opts.Simplify = false
	}
	if c.IsSet("marker-radius") {
		render.MarkerRadius = c.Int("marker-radius")
	}
	if c.IsSet("color") {
		col, err := parseColor(c.String("color"))
		if err != nil {
			return nil, render, err
		}
		render.LineColor = col
	}
	if err := opts.Validate(); err != nil {
		return nil, render, err
	}
	return opts, render, nil
}

func parseState(s string) (planner.State, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return planner.State{}, errors.Errorf("expected x,y but got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return planner.State{}, errors.Wrapf(err, "bad x in %q", s)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return planner.State{}, errors.Wrapf(err, "bad y in %q", s)
	}
	return planner.State{X: x, Y: y}, nil
}

func parseColor(s string) (color.RGBA, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil || len(strings.TrimPrefix(s, "#")) != 6 {
		return color.RGBA{}, errors.Errorf("expected a color as rrggbb but got %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func endpoints(c *cli.Context, height int) (planner.State, planner.State, error) {
	start := planner.State{X: defaultColumn, Y: 0}
	goal := planner.State{X: defaultColumn, Y: float64(height - 1)}
	var err error
	if s := c.String("start"); s != "" {
		if start, err = parseState(s); err != nil {
			return start, goal, err
		}
	}
	if s := c.String("goal"); s != "" {
		if goal, err = parseState(s); err != nil {
			return start, goal, err
		}
	}
	return start, goal, nil
}

func planAction(c *cli.Context) error {
	logger := newLogger(c)
	opts, render, err := loadOptions(c)
	if err != nil {
		return cli.Exit(err, exitError)
	}

	pix, width, height, err := raster.Decode(c.String("in"))
	if err != nil {
		return cli.Exit(err, exitError)
	}
	field, err := occupancy.New(pix, width, height, uint8(opts.FreeThreshold))
	if err != nil {
		return cli.Exit(err, exitError)
	}
	start, goal, err := endpoints(c, height)
	if err != nil {
		return cli.Exit(err, exitError)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Planning from %v to %v on %dx%d image", start, goal, width, height)
	result, err := planner.Plan(ctx, field, start, goal, opts, logger)
	if err != nil {
		return cli.Exit(err, exitError)
	}
	if path := c.String("path-out"); path != "" {
		if err := planner.SaveResult(result, path); err != nil {
			return cli.Exit(err, exitError)
		}
		logger.Infof("Wrote result to %s", path)
	}
	if !result.Solved() {
		logger.Warnf("No solution found (%s after %d iterations, seed %d)", result.Status, result.Iterations, result.Seed)
		return cli.Exit("no solution found", exitNoSolution)
	}
	logger.Infof("Found path with %d states, length %.2f px (raw %d states, %.2f px)",
		len(result.Path), result.Length(), len(result.RawPath), result.RawPath.Length())

	if _, err := overlay.Render(result.Path, pix, width, height, render); err != nil {
		return cli.Exit(err, exitError)
	}
	if err := raster.Encode(c.String("out"), pix, width, height); err != nil {
		return cli.Exit(err, exitError)
	}
	logger.Infof("Wrote %s", c.String("out"))
	return nil
}
