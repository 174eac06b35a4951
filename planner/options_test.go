package planner

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestOptionsValidate(t *testing.T) {
	test.That(t, NewDefaultOptions().Validate(), test.ShouldBeNil)

	for name, mutate := range map[string]func(*Options){
		"no budget":        func(o *Options) { o.TimeBudget = -1 },
		"nan budget":       func(o *Options) { o.TimeBudget = math.NaN() },
		"threshold high":   func(o *Options) { o.FreeThreshold = 256 },
		"threshold low":    func(o *Options) { o.FreeThreshold = -1 },
		"negative step":    func(o *Options) { o.StepResolution = -0.1 },
		"nan range":        func(o *Options) { o.MaxExtendStep = math.NaN() },
		"goal bias":        func(o *Options) { o.GoalBias = 1.5 },
		"negative rounds":  func(o *Options) { o.ShortcutRounds = -1 },
		"infinite range":   func(o *Options) { o.MaxExtendStep = math.Inf(1) },
		"negative attempt": func(o *Options) { o.ShortcutAttempts = -2 },
	} {
		t.Run(name, func(t *testing.T) {
			opts := NewDefaultOptions()
			mutate(opts)
			test.That(t, IsInputError(opts.Validate()), test.ShouldBeTrue)
		})
	}

	// zero step and range are valid and mean derived from the field
	derived := NewDefaultOptions()
	derived.StepResolution = 0
	derived.MaxExtendStep = 0
	test.That(t, derived.Validate(), test.ShouldBeNil)
	derived.MaxExtendStep = -1
	err := derived.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, ">= 0 (0 derives it from the field)")

	iterOnly := NewDefaultOptions()
	iterOnly.TimeBudget = -1
	iterOnly.MaxIterations = 10
	test.That(t, iterOnly.Validate(), test.ShouldBeNil)
	test.That(t, iterOnly.Timeout(), test.ShouldEqual, time.Duration(0))
	test.That(t, NewDefaultOptions().Timeout(), test.ShouldEqual, 5*time.Second)
}

func TestOptionsDerived(t *testing.T) {
	ss, err := NewStateSpace(1, 1, nil)
	test.That(t, err, test.ShouldBeNil)
	opt := NewDefaultOptions().withDefaults(ss)
	test.That(t, opt.MaxExtendStep, test.ShouldEqual, 1)
	test.That(t, opt.checkStep(ss), test.ShouldAlmostEqual, 1)

	custom := NewDefaultOptions()
	custom.StepResolution = 0.5
	custom.MaxExtendStep = 3
	ss, err = NewStateSpace(8, 4, nil)
	test.That(t, err, test.ShouldBeNil)
	opt = custom.withDefaults(ss)
	test.That(t, opt.MaxExtendStep, test.ShouldEqual, 3)
	test.That(t, opt.checkStep(ss), test.ShouldAlmostEqual, 4)
	// the caller's options are not touched
	test.That(t, NewDefaultOptions().withDefaults(ss), test.ShouldNotResemble, NewDefaultOptions())

	test.That(t, NewDefaultOptions().loggingEvery(), test.ShouldEqual, defaultLoggingEvery)
	iter := NewDefaultOptions()
	iter.MaxIterations = 500
	test.That(t, iter.loggingEvery(), test.ShouldEqual, 50)
	iter.MaxIterations = 5
	test.That(t, iter.loggingEvery(), test.ShouldEqual, 1)
}

func TestStatusText(t *testing.T) {
	for _, s := range []Status{StatusNotFound, StatusSolved, StatusTimedOut} {
		text, err := s.MarshalText()
		test.That(t, err, test.ShouldBeNil)
		var back Status
		test.That(t, back.UnmarshalText(text), test.ShouldBeNil)
		test.That(t, back, test.ShouldEqual, s)
	}
	test.That(t, StatusTimedOut.String(), test.ShouldEqual, "timed_out")
	test.That(t, Status(42).String(), test.ShouldEqual, "unknown")

	var s Status
	test.That(t, s.UnmarshalText([]byte("maybe")), test.ShouldNotBeNil)
}

func TestSaveLoadResult(t *testing.T) {
	result := &Result{
		Status:        StatusSolved,
		Path:          Path{{X: 0, Y: 0}, {X: 4.5, Y: 2.25}},
		RawPath:       Path{{X: 0, Y: 0}, {X: 2, Y: 1}, {X: 4.5, Y: 2.25}},
		Iterations:    17,
		StartTreeSize: 9,
		GoalTreeSize:  12,
		Seed:          -3,
	}
	filename := filepath.Join(t.TempDir(), "result.json")
	test.That(t, SaveResult(result, filename), test.ShouldBeNil)

	loaded, err := LoadResult(filename)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded, test.ShouldResemble, result)

	_, err = LoadResult(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
