package planner

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

// iterationOptions plans without a clock so that runs are reproducible.
func iterationOptions(maxIter int, seed int64) *Options {
	opts := NewDefaultOptions().Seed(seed)
	opts.TimeBudget = -1
	opts.MaxIterations = maxIter
	return opts
}

// gapWall is a wall at x=20 of a 40x40 field with an opening at rows 30 to 34.
func gapWall(col, row int) bool {
	return col == 20 && (row < 30 || row > 34)
}

func checkSolution(t *testing.T, mp *RRTConnect, result *Result, start, goal State) {
	t.Helper()
	test.That(t, result.Solved(), test.ShouldBeTrue)
	for _, p := range []Path{result.RawPath, result.Path} {
		test.That(t, len(p), test.ShouldBeGreaterThanOrEqualTo, 2)
		test.That(t, p[0], test.ShouldResemble, start)
		test.That(t, p[len(p)-1], test.ShouldResemble, goal)
		test.That(t, mp.Validator().ValidatePath(p), test.ShouldEqual, -1)
	}
	test.That(t, result.Path.Length(), test.ShouldBeLessThanOrEqualTo, result.RawPath.Length()+1e-9)
}

func TestRRTConnectOpenField(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mp, err := NewRRTConnect(newTestField(t, 10, 10, nil), NewDefaultOptions().Seed(1), logger)
	test.That(t, err, test.ShouldBeNil)

	start := State{X: 0, Y: 0}
	goal := State{X: 9, Y: 9}
	result, err := mp.Plan(context.Background(), start, goal)
	test.That(t, err, test.ShouldBeNil)
	checkSolution(t, mp, result, start, goal)

	// nothing is in the way, so the simplified path is the straight segment
	test.That(t, result.Path, test.ShouldResemble, Path{start, goal})
	test.That(t, result.Length(), test.ShouldAlmostEqual, 9*math.Sqrt2)
	test.That(t, result.Seed, test.ShouldEqual, 1)
	test.That(t, result.StartTreeSize, test.ShouldBeGreaterThanOrEqualTo, 1)
	test.That(t, result.GoalTreeSize, test.ShouldBeGreaterThanOrEqualTo, 1)
}

func TestRRTConnectThroughGap(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mp, err := NewRRTConnect(newTestField(t, 40, 40, gapWall), iterationOptions(20000, 42), logger)
	test.That(t, err, test.ShouldBeNil)

	start := State{X: 2, Y: 2}
	goal := State{X: 37, Y: 3}
	result, err := mp.Plan(context.Background(), start, goal)
	test.That(t, err, test.ShouldBeNil)
	checkSolution(t, mp, result, start, goal)

	// any valid path has to pass through the opening
	through := false
	for i := 1; i < len(result.Path); i++ {
		a, b := result.Path[i-1], result.Path[i]
		if (a.X < 20) != (b.X < 20) {
			y := a.Y + (b.Y-a.Y)*(20-a.X)/(b.X-a.X)
			through = through || (y > 28 && y < 36)
		}
	}
	test.That(t, through, test.ShouldBeTrue)
}

func TestRRTConnectNoSimplify(t *testing.T) {
	opts := iterationOptions(20000, 3)
	opts.Simplify = false
	mp, err := NewRRTConnect(newTestField(t, 40, 40, gapWall), opts, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	start := State{X: 2, Y: 2}
	goal := State{X: 37, Y: 3}
	result, err := mp.Plan(context.Background(), start, goal)
	test.That(t, err, test.ShouldBeNil)
	checkSolution(t, mp, result, start, goal)
	test.That(t, result.Path, test.ShouldResemble, result.RawPath)
}

func TestRRTConnectDeterministic(t *testing.T) {
	logger := golog.NewTestLogger(t)
	field := newTestField(t, 40, 40, gapWall)
	start := State{X: 2, Y: 2}
	goal := State{X: 37, Y: 3}

	mp, err := NewRRTConnect(field, iterationOptions(20000, 99), logger)
	test.That(t, err, test.ShouldBeNil)
	first, err := mp.Plan(context.Background(), start, goal)
	test.That(t, err, test.ShouldBeNil)
	again, err := mp.Plan(context.Background(), start, goal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, first)

	other, err := Plan(context.Background(), field, start, goal, iterationOptions(20000, 99), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, other, test.ShouldResemble, first)
}

func TestRRTConnectNoPath(t *testing.T) {
	logger := golog.NewTestLogger(t)
	field := newTestField(t, 10, 10, wallAt(5))
	start := State{X: 0, Y: 0}
	goal := State{X: 9, Y: 9}

	result, err := Plan(context.Background(), field, start, goal, iterationOptions(500, 5), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Status, test.ShouldEqual, StatusNotFound)
	test.That(t, result.Solved(), test.ShouldBeFalse)
	test.That(t, result.Iterations, test.ShouldEqual, 500)
	test.That(t, result.Path, test.ShouldBeEmpty)

	opts := NewDefaultOptions().Seed(5)
	opts.TimeBudget = 0.05
	result, err = Plan(context.Background(), field, start, goal, opts, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Status, test.ShouldEqual, StatusTimedOut)
	test.That(t, result.Path, test.ShouldBeEmpty)
}

func TestRRTConnectCanceled(t *testing.T) {
	field := newTestField(t, 10, 10, wallAt(5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Plan(ctx, field, State{X: 0, Y: 0}, State{X: 9, Y: 9}, NewDefaultOptions(), golog.NewTestLogger(t))
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, result, test.ShouldBeNil)
}

func TestRRTConnectBadEndpoints(t *testing.T) {
	logger := golog.NewTestLogger(t)
	field := newTestField(t, 10, 10, func(col, row int) bool {
		return (col == 0 && row == 0) || (col == 9 && row == 9)
	})
	mp, err := NewRRTConnect(field, iterationOptions(100, 1), logger)
	test.That(t, err, test.ShouldBeNil)
	ctx := context.Background()

	result, err := mp.Plan(ctx, State{X: 0, Y: 0}, State{X: 5, Y: 5})
	test.That(t, errors.Is(err, ErrInfeasibleStart), test.ShouldBeTrue)
	test.That(t, result, test.ShouldBeNil)

	result, err = mp.Plan(ctx, State{X: 5, Y: 5}, State{X: 9, Y: 9})
	test.That(t, errors.Is(err, ErrInfeasibleGoal), test.ShouldBeTrue)
	test.That(t, result, test.ShouldBeNil)

	_, err = mp.Plan(ctx, State{X: -1, Y: 5}, State{X: 5, Y: 5})
	test.That(t, IsInputError(err), test.ShouldBeTrue)
	_, err = mp.Plan(ctx, State{X: 5, Y: 5}, State{X: 5, Y: 10})
	test.That(t, IsInputError(err), test.ShouldBeTrue)
	_, err = mp.Plan(ctx, State{X: math.NaN(), Y: 5}, State{X: 5, Y: 5})
	test.That(t, IsInputError(err), test.ShouldBeTrue)
}

func TestRRTConnectSameStartGoal(t *testing.T) {
	mp, err := NewRRTConnect(newTestField(t, 10, 10, nil), nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	s := State{X: 3, Y: 4}
	result, err := mp.Plan(context.Background(), s, s)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Solved(), test.ShouldBeTrue)
	test.That(t, result.Path, test.ShouldResemble, Path{s})
	test.That(t, result.Length(), test.ShouldEqual, 0)
	test.That(t, result.Iterations, test.ShouldEqual, 0)
}

func TestRRTConnectTreesStayValid(t *testing.T) {
	mp, err := NewRRTConnect(newTestField(t, 10, 10, wallAt(5)), iterationOptions(300, 11), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	//nolint:gosec
	ret := mp.grow(context.Background(), rand.New(rand.NewSource(11)), State{X: 0, Y: 0}, State{X: 9, Y: 9})
	test.That(t, ret.planerr, test.ShouldBeNil)
	test.That(t, ret.status, test.ShouldEqual, StatusNotFound)
	test.That(t, ret.startTree.Len(), test.ShouldBeGreaterThan, 1)
	test.That(t, ret.goalTree.Len(), test.ShouldBeGreaterThan, 1)

	for _, tree := range []*Tree{ret.startTree, ret.goalTree} {
		for _, e := range tree.Edges() {
			test.That(t, mp.Validator().IsMotionValid(e[0], e[1]), test.ShouldBeTrue)
			test.That(t, e[0].Distance(e[1]), test.ShouldBeLessThanOrEqualTo, mp.Options().MaxExtendStep+1e-9)
		}
	}
	// the trees never cross the wall
	for i := 0; i < ret.startTree.Len(); i++ {
		test.That(t, ret.startTree.State(i).X, test.ShouldBeLessThan, 4.5)
	}
	for i := 0; i < ret.goalTree.Len(); i++ {
		test.That(t, ret.goalTree.State(i).X, test.ShouldBeGreaterThanOrEqualTo, 5.5)
	}
}

func TestRRTConnectGoalBias(t *testing.T) {
	opts := iterationOptions(1000, 8)
	opts.GoalBias = 0.5
	mp, err := NewRRTConnect(newTestField(t, 40, 40, gapWall), opts, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	start := State{X: 2, Y: 2}
	goal := State{X: 2, Y: 37}
	result, err := mp.Plan(context.Background(), start, goal)
	test.That(t, err, test.ShouldBeNil)
	checkSolution(t, mp, result, start, goal)
}

func TestNewRRTConnectDefaults(t *testing.T) {
	_, err := NewRRTConnect(nil, nil, nil)
	test.That(t, IsInputError(err), test.ShouldBeTrue)

	opts := NewDefaultOptions()
	opts.TimeBudget = -1
	_, err = NewRRTConnect(newTestField(t, 10, 10, nil), opts, nil)
	test.That(t, IsInputError(err), test.ShouldBeTrue)

	mp, err := NewRRTConnect(newTestField(t, 10, 20, nil), nil, nil)
	test.That(t, err, test.ShouldBeNil)
	derived := mp.Options()
	test.That(t, derived.StepResolution, test.ShouldAlmostEqual, 0.05)
	test.That(t, mp.Validator().Step(), test.ShouldAlmostEqual, 1)
	test.That(t, derived.MaxExtendStep, test.ShouldAlmostEqual, 0.2*math.Hypot(9, 19))
	test.That(t, mp.Space().Bounds().Max.X(), test.ShouldEqual, 9)
	test.That(t, mp.Space().Bounds().Max.Y(), test.ShouldEqual, 19)
}

func TestConnectStopsWhenDone(t *testing.T) {
	mp, err := NewRRTConnect(newTestField(t, 10, 10, nil), iterationOptions(10, 1), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	tree := NewTree(State{X: 9, Y: 9})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	met, ok := mp.connect(ctx, tree, State{X: 0, Y: 0})
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, met, test.ShouldEqual, -1)
	test.That(t, tree.Len(), test.ShouldEqual, 1)

	met, ok = mp.connect(context.Background(), tree, State{X: 0, Y: 0})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, tree.State(met), test.ShouldResemble, State{X: 0, Y: 0})
}

func TestRRTConnectTinyStepKeepsDeadline(t *testing.T) {
	opts := NewDefaultOptions().Seed(2)
	opts.TimeBudget = 0.05
	opts.MaxExtendStep = 1e-4
	mp, err := NewRRTConnect(newTestField(t, 200, 200, nil), opts, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// a single connect across the map would take millions of extensions
	began := time.Now()
	result, err := mp.Plan(context.Background(), State{X: 0, Y: 0}, State{X: 199, Y: 199})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Status, test.ShouldEqual, StatusTimedOut)
	test.That(t, time.Since(began).Seconds(), test.ShouldBeLessThan, 2.0)
}
