package planner

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb"
)

// StateSpace is the bounded rectangle [0, width-1] x [0, height-1] the planner searches.
type StateSpace struct {
	bounds   orb.Bound
	randseed *rand.Rand
}

// NewStateSpace creates the state space of a width x height raster. Samples are drawn from
// randseed, which may be nil if Sample is never called.
func NewStateSpace(width, height int, randseed *rand.Rand) (*StateSpace, error) {
	if width <= 0 || height <= 0 {
		return nil, newInputError("state space of %dx%d", width, height)
	}
	return &StateSpace{
		bounds: orb.Bound{
			Min: orb.Point{0, 0},
			Max: orb.Point{float64(width - 1), float64(height - 1)},
		},
		randseed: randseed,
	}, nil
}

// Bounds of the space.
func (ss *StateSpace) Bounds() orb.Bound {
	return ss.bounds
}

// Reseed replaces the sampling source.
func (ss *StateSpace) Reseed(seed int64) {
	//nolint:gosec
	ss.randseed = rand.New(rand.NewSource(seed))
}

// Contains reports whether s lies inside the bounds, borders included.
func (ss *StateSpace) Contains(s State) bool {
	if math.IsNaN(s.X) || math.IsNaN(s.Y) {
		return false
	}
	return ss.bounds.Contains(s.point())
}

// Sample draws x and y independently and uniformly from the bounds.
func (ss *StateSpace) Sample() State {
	x := ss.bounds.Min.X() + ss.randseed.Float64()*(ss.bounds.Max.X()-ss.bounds.Min.X())
	y := ss.bounds.Min.Y() + ss.randseed.Float64()*(ss.bounds.Max.Y()-ss.bounds.Min.Y())
	return State{X: x, Y: y}
}

// Distance is the Euclidean metric of the space.
func (ss *StateSpace) Distance(a, b State) float64 {
	return a.Distance(b)
}

// Interpolate linearly between a and b.
func (ss *StateSpace) Interpolate(a, b State, t float64) State {
	return Interpolate(a, b, t)
}

// Steer moves from "from" toward "toward" by at most maxStep.
func (ss *StateSpace) Steer(from, toward State, maxStep float64) State {
	return Steer(from, toward, maxStep)
}

// MaxExtent is the length of the diagonal of the bounds.
func (ss *StateSpace) MaxExtent() float64 {
	return State{X: ss.bounds.Min.X(), Y: ss.bounds.Min.Y()}.Distance(State{X: ss.bounds.Max.X(), Y: ss.bounds.Max.Y()})
}

// MaxSide is the length in pixels of the longer raster side, i.e. max(width, height).
func (ss *StateSpace) MaxSide() float64 {
	return math.Max(ss.bounds.Max.X()-ss.bounds.Min.X(), ss.bounds.Max.Y()-ss.bounds.Min.Y()) + 1
}
