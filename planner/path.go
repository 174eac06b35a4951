package planner

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Path is an ordered sequence of states from start to goal.
type Path []State

// Length is the total Euclidean arc length of the path.
func (p Path) Length() float64 {
	if len(p) < 2 {
		return 0
	}
	return planar.Length(p.lineString())
}

// Clone returns a copy of the path that shares no memory with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path{}, p...)
}

func (p Path) lineString() orb.LineString {
	ls := make(orb.LineString, 0, len(p))
	for _, s := range p {
		ls = append(ls, s.point())
	}
	return ls
}

func pathFromLineString(ls orb.LineString) Path {
	p := make(Path, 0, len(ls))
	for _, pt := range ls {
		p = append(p, State{X: pt.X(), Y: pt.Y()})
	}
	return p
}

// extractPath joins the branch of the start tree ending at iStart with the branch of the goal tree
// ending at iGoal. Both nodes hold the same state, which appears once in the result.
func extractPath(startTree, goalTree *Tree, iStart, iGoal int) Path {
	startSide := startTree.PathToRoot(iStart)
	goalSide := goalTree.PathToRoot(iGoal)

	path := make(Path, 0, len(startSide)+len(goalSide)-1)
	for i := len(startSide) - 1; i >= 0; i-- {
		path = append(path, startSide[i])
	}
	return append(path, goalSide[1:]...)
}
