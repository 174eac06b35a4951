package planner

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
)

// State is a position in the continuous 2D workspace, in pixel units.
type State struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s State) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", s.X, s.Y)
}

// Vec returns the state as a 2D vector.
func (s State) Vec() r2.Point {
	return r2.Point{X: s.X, Y: s.Y}
}

func stateFromVec(p r2.Point) State {
	return State{X: p.X, Y: p.Y}
}

func (s State) point() orb.Point {
	return orb.Point{s.X, s.Y}
}

// Distance is the Euclidean distance between two states.
func (s State) Distance(other State) float64 {
	dx := s.X - other.X
	dy := s.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Interpolate returns the state a fraction t of the way from a to b. The endpoints are returned
// unchanged for t <= 0 and t >= 1 so that interpolated motions start and end exactly on them.
func Interpolate(a, b State, t float64) State {
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	va := a.Vec()
	return stateFromVec(va.Add(b.Vec().Sub(va).Mul(t)))
}

// Steer returns the state at distance min(maxStep, |toward-from|) from "from" along the straight
// line to "toward". When toward is within reach it is returned as is.
func Steer(from, toward State, maxStep float64) State {
	d := from.Distance(toward)
	if d <= maxStep {
		return toward
	}
	return Interpolate(from, toward, maxStep/d)
}
