package planner

import (
	"context"
	"math/rand"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"motion-planner/occupancy"
)

// extendStatus classifies a single tree extension.
type extendStatus int

const (
	// trapped means the motion toward the target was invalid and nothing was added.
	trapped extendStatus = iota
	// advanced means a node was added a bounded step short of the target.
	advanced
	// reached means the added node is the target itself.
	reached
)

// RRTConnect solves paths between two states of an occupancy field by growing one tree from the
// start and one from the goal, alternating which tree is extended toward a random sample while the
// other tries to connect to the new node. Kuffner and LaValle 2000.
type RRTConnect struct {
	field     *occupancy.Field
	space     *StateSpace
	validator *MotionValidator
	opts      *Options
	logger    golog.Logger
	seed      int64
}

// NewRRTConnect creates a planner over field. If opts is nil the defaults are used; if logger is nil
// the global logger is used.
func NewRRTConnect(field *occupancy.Field, opts *Options, logger golog.Logger) (*RRTConnect, error) {
	if field == nil {
		return nil, newInputError("nil occupancy field")
	}
	if opts == nil {
		opts = NewDefaultOptions()
	}
	if logger == nil {
		logger = golog.Global()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	space, err := NewStateSpace(field.Width(), field.Height(), nil)
	if err != nil {
		return nil, err
	}
	opt := opts.withDefaults(space)
	validator, err := NewMotionValidator(field, opt.checkStep(space))
	if err != nil {
		return nil, err
	}
	seed := time.Now().UnixNano()
	if opt.RandomSeed != nil {
		seed = *opt.RandomSeed
	}
	return &RRTConnect{
		field:     field,
		space:     space,
		validator: validator,
		opts:      opt,
		logger:    logger,
		seed:      seed,
	}, nil
}

// Space is the state space the planner searches.
func (mp *RRTConnect) Space() *StateSpace {
	return mp.space
}

// Validator is the motion validator used for tree edges and shortcuts.
func (mp *RRTConnect) Validator() *MotionValidator {
	return mp.validator
}

// Options returns the options with derived values filled in.
func (mp *RRTConnect) Options() Options {
	return *mp.opts
}

// Plan finds a path from start to goal. Start and goal outside the workspace produce an
// *InputError, and start or goal on a blocked pixel produce ErrInfeasibleStart or
// ErrInfeasibleGoal; no planning is attempted in those cases. Running out of time or iterations
// is reported through Result.Status with a nil error.
func (mp *RRTConnect) Plan(ctx context.Context, start, goal State) (*Result, error) {
	if !mp.space.Contains(start) {
		return nil, newInputError("start %v outside workspace %dx%d", start, mp.field.Width(), mp.field.Height())
	}
	if !mp.space.Contains(goal) {
		return nil, newInputError("goal %v outside workspace %dx%d", goal, mp.field.Width(), mp.field.Height())
	}
	if !mp.validator.IsValid(start) {
		return nil, errors.Wrapf(ErrInfeasibleStart, "start %v", start)
	}
	if !mp.validator.IsValid(goal) {
		return nil, errors.Wrapf(ErrInfeasibleGoal, "goal %v", goal)
	}
	if start == goal {
		path := Path{start}
		return &Result{Status: StatusSolved, Path: path, RawPath: path.Clone(), StartTreeSize: 1, GoalTreeSize: 1, Seed: mp.seed}, nil
	}

	planCtx := ctx
	if timeout := mp.opts.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		planCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	//nolint:gosec
	randseed := rand.New(rand.NewSource(mp.seed))
	solutionChan := make(chan *rrtPlanReturn, 1)
	utils.PanicCapturingGo(func() {
		mp.planRunner(planCtx, randseed, start, goal, solutionChan)
	})
	plan := <-solutionChan
	if plan == nil {
		return nil, errNoResult
	}
	if plan.planerr != nil {
		return nil, plan.planerr
	}

	result := &Result{
		Status:        plan.status,
		Iterations:    plan.iterations,
		StartTreeSize: plan.startTree.Len(),
		GoalTreeSize:  plan.goalTree.Len(),
		Seed:          mp.seed,
	}
	if plan.status != StatusSolved {
		return result, nil
	}
	result.RawPath = plan.path
	result.Path = plan.path.Clone()
	if mp.opts.Simplify {
		//nolint:gosec
		simplifier := newSimplifierFromOptions(mp.validator, rand.New(rand.NewSource(randseed.Int63())), mp.opts)
		result.Path = simplifier.Simplify(ctx, plan.path)
		mp.logger.Debugf("simplified path from %d to %d waypoints, length %.2f -> %.2f",
			len(result.RawPath), len(result.Path), result.RawPath.Length(), result.Path.Length())
	}
	return result, nil
}

type rrtPlanReturn struct {
	status     Status
	path       Path
	iterations int
	startTree  *Tree
	goalTree   *Tree
	planerr    error
}

// planRunner grows the two trees until they connect or the budget runs out. Plan calls it in a
// separate goroutine and waits for the result on solutionChan; the trees are only touched here.
func (mp *RRTConnect) planRunner(
	ctx context.Context,
	randseed *rand.Rand,
	start, goal State,
	solutionChan chan *rrtPlanReturn,
) {
	defer close(solutionChan)
	solutionChan <- mp.grow(ctx, randseed, start, goal)
}

func (mp *RRTConnect) grow(ctx context.Context, randseed *rand.Rand, start, goal State) *rrtPlanReturn {
	planStart := time.Now()
	space, err := NewStateSpace(mp.field.Width(), mp.field.Height(), randseed)
	if err != nil {
		return &rrtPlanReturn{planerr: err}
	}
	startTree := NewTree(start)
	goalTree := NewTree(goal)
	ret := &rrtPlanReturn{status: StatusNotFound, startTree: startTree, goalTree: goalTree}

	mp.logger.Debugf("running RRTConnect from %v to %v on %dx%d field, step %.3f, range %.3f",
		start, goal, mp.field.Width(), mp.field.Height(), mp.validator.Step(), mp.opts.MaxExtendStep)

	// Create a reference to the two trees so that we can alternate which one is grown
	tree1, tree2 := startTree, goalTree
	logEvery := mp.opts.loggingEvery()

	for i := 0; mp.opts.MaxIterations <= 0 || i < mp.opts.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				mp.logger.Debugf("RRTConnect timed out after %d iterations", i)
				ret.status = StatusTimedOut
			} else {
				ret.planerr = ctx.Err()
			}
			ret.iterations = i
			return ret
		default:
		}
		if i > 0 && i%logEvery == 0 {
			mp.logger.Debugf("iteration %d: start tree has %d nodes, goal tree has %d nodes", i, startTree.Len(), goalTree.Len())
		}

		target := space.Sample()
		if mp.opts.GoalBias > 0 && randseed.Float64() < mp.opts.GoalBias {
			target = tree2.Root()
		}

		// extend tree 1 toward the sample, then pull tree 2 onto the new node
		if status, added := mp.extend(tree1, target); status != trapped {
			if met, ok := mp.connect(ctx, tree2, tree1.State(added)); ok {
				iStart, iGoal := added, met
				if tree1 != startTree {
					iStart, iGoal = met, added
				}
				ret.status = StatusSolved
				ret.path = extractPath(startTree, goalTree, iStart, iGoal)
				ret.iterations = i + 1
				mp.logger.Infof("RRTConnect found solution after %d iterations (%s) with %d waypoints",
					ret.iterations, time.Since(planStart), len(ret.path))
				return ret
			}
		}

		tree1, tree2 = tree2, tree1
	}
	ret.iterations = mp.opts.MaxIterations
	mp.logger.Debugf("RRTConnect gave up after %d iterations", ret.iterations)
	return ret
}

// extend adds at most one node to tree, a bounded step from its nearest node toward target.
func (mp *RRTConnect) extend(tree *Tree, target State) (extendStatus, int) {
	near := tree.Nearest(target)
	qNear := tree.State(near)
	qNew := Steer(qNear, target, mp.opts.MaxExtendStep)
	if !mp.validator.IsMotionValid(qNear, qNew) {
		return trapped, -1
	}
	added := tree.Add(qNew, near)
	if qNew == target {
		return reached, added
	}
	return advanced, added
}

// connect extends tree toward target until it is reached, the tree gets trapped or ctx is done.
// It returns the index of the node holding target on success.
func (mp *RRTConnect) connect(ctx context.Context, tree *Tree, target State) (int, bool) {
	for {
		select {
		case <-ctx.Done():
			return -1, false
		default:
		}
		status, added := mp.extend(tree, target)
		switch status {
		case reached:
			return added, true
		case trapped:
			return -1, false
		case advanced:
		}
	}
}

// Plan is a convenience wrapper that builds an RRTConnect planner for field and runs it once.
func Plan(ctx context.Context, field *occupancy.Field, start, goal State, opts *Options, logger golog.Logger) (*Result, error) {
	mp, err := NewRRTConnect(field, opts, logger)
	if err != nil {
		return nil, err
	}
	return mp.Plan(ctx, start, goal)
}
