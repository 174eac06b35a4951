package planner

import (
	"math"
	"time"

	"motion-planner/occupancy"
)

// default values for planning options.
const (
	// default number of seconds to try to solve before returning.
	defaultTimeBudget = 5.0

	// Fraction of the space diagonal a single tree extension may cover.
	defaultRangeFraction = 0.2

	// default number of shortcutting rounds when simplifying.
	defaultShortcutRounds = 10

	// Random shortcut attempts per round, as a multiple of the path length in waypoints.
	defaultShortcutAttemptsPerWaypoint = 2

	// Waypoints closer than this many pixels to the line through their neighbours are collapsed.
	defaultCollinearTolerance = 0.5

	// Percentage interval of max iterations after which to print debug logs, used when
	// MaxIterations is set; otherwise logs every defaultLoggingEvery iterations.
	defaultLoggingInterval = 0.1
	defaultLoggingEvery    = 1000
)

// Options control a single planning run. For the fields documented as derived, a zero value means
// the default computed from the size of the occupancy field.
type Options struct {
	// Number of seconds before terminating the planner. Set < 0 to plan without a time budget.
	TimeBudget float64 `json:"time_budget_seconds"`

	// Brightness (0-255) at or above which a pixel is free. Used by callers building the field.
	FreeThreshold int `json:"free_threshold"`

	// Distance between motion checks as a fraction of max(width, height). Derived: 1/max(width, height),
	// i.e. one check per pixel.
	StepResolution float64 `json:"step_resolution"`

	// Longest single tree extension in pixels. Derived: 0.2 times the workspace diagonal.
	MaxExtendStep float64 `json:"max_extend_step"`

	// Probability of sampling the other tree's root instead of a uniform state.
	GoalBias float64 `json:"goal_bias"`

	// Seed for all randomness of a run. If nil a time based seed is picked once per planner.
	RandomSeed *int64 `json:"random_seed,omitempty"`

	// Max number of iterations before giving up with NotFound. Set <= 0 for no limit.
	MaxIterations int `json:"max_iterations"`

	// Whether to shortcut the path once found.
	Simplify bool `json:"simplify"`

	// Number of shortcutting rounds; a round without an accepted shortcut ends simplification early.
	ShortcutRounds int `json:"shortcut_rounds"`

	// Random shortcut attempts per round. Derived: twice the number of waypoints.
	ShortcutAttempts int `json:"shortcut_attempts"`

	// Douglas-Peucker tolerance in pixels for collapsing nearly collinear waypoints. Set < 0 to disable.
	CollinearTolerance float64 `json:"collinear_tolerance"`

	// Percentage interval of max iterations after which to print debug logs.
	LoggingInterval float64 `json:"logging_interval"`
}

// NewDefaultOptions returns the options of the reference setup: 5 seconds, threshold 200, one
// check per pixel, no goal bias, simplification on.
func NewDefaultOptions() *Options {
	return &Options{
		TimeBudget:         defaultTimeBudget,
		FreeThreshold:      occupancy.DefaultFreeThreshold,
		Simplify:           true,
		ShortcutRounds:     defaultShortcutRounds,
		CollinearTolerance: defaultCollinearTolerance,
		LoggingInterval:    defaultLoggingInterval,
	}
}

// Seed sets a fixed random seed and returns the options.
func (o *Options) Seed(seed int64) *Options {
	o.RandomSeed = &seed
	return o
}

// Validate checks ranges that do not depend on the occupancy field.
func (o *Options) Validate() error {
	switch {
	case math.IsNaN(o.TimeBudget):
		return newInputError("time budget is NaN")
	case o.TimeBudget <= 0 && o.MaxIterations <= 0:
		return newInputError("either a time budget or an iteration limit is required")
	case o.FreeThreshold < 0 || o.FreeThreshold > 255:
		return newInputError("free threshold %d outside [0, 255]", o.FreeThreshold)
	case !(o.StepResolution >= 0) || math.IsInf(o.StepResolution, 1):
		return newInputError("step resolution %v must be a finite number >= 0 (0 derives it from the field)", o.StepResolution)
	case !(o.MaxExtendStep >= 0) || math.IsInf(o.MaxExtendStep, 1):
		return newInputError("max extend step %v must be a finite number >= 0 (0 derives it from the field)", o.MaxExtendStep)
	case !(o.GoalBias >= 0 && o.GoalBias <= 1):
		return newInputError("goal bias %v outside [0, 1]", o.GoalBias)
	case o.ShortcutRounds < 0 || o.ShortcutAttempts < 0:
		return newInputError("shortcut rounds and attempts must not be negative")
	}
	return nil
}

// Timeout converts the time budget to a duration; zero means no budget.
func (o *Options) Timeout() time.Duration {
	if o.TimeBudget <= 0 {
		return 0
	}
	return time.Duration(o.TimeBudget * float64(time.Second))
}

// withDefaults returns a copy of the options with derived values filled in for the given space.
func (o *Options) withDefaults(space *StateSpace) *Options {
	opt := *o
	if opt.StepResolution == 0 {
		opt.StepResolution = 1 / space.MaxSide()
	}
	if opt.MaxExtendStep == 0 {
		opt.MaxExtendStep = defaultRangeFraction * space.MaxExtent()
		if opt.MaxExtendStep == 0 {
			opt.MaxExtendStep = 1
		}
	}
	return &opt
}

// checkStep is the motion check spacing in pixels.
func (o *Options) checkStep(space *StateSpace) float64 {
	return o.StepResolution * space.MaxSide()
}

// loggingEvery is the number of iterations between two progress logs.
func (o *Options) loggingEvery() int {
	if o.MaxIterations > 0 && o.LoggingInterval > 0 {
		if n := int(float64(o.MaxIterations) * o.LoggingInterval); n > 0 {
			return n
		}
		return 1
	}
	return defaultLoggingEvery
}
