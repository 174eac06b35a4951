package planner

import (
	"context"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplifier removes redundant waypoints from a valid path. Every shortcut it takes is checked
// with the motion validator first, so a valid input stays valid, its endpoints are kept and its
// length never grows.
type Simplifier struct {
	validator *MotionValidator
	randseed  *rand.Rand

	rounds    int
	attempts  int
	tolerance float64
}

// NewSimplifier creates a simplifier. Zero rounds disables random shortcutting; zero attempts
// means twice the number of waypoints per round; a negative tolerance disables collinear
// collapsing.
func NewSimplifier(validator *MotionValidator, randseed *rand.Rand, rounds, attempts int, tolerance float64) *Simplifier {
	return &Simplifier{
		validator: validator,
		randseed:  randseed,
		rounds:    rounds,
		attempts:  attempts,
		tolerance: tolerance,
	}
}

func newSimplifierFromOptions(validator *MotionValidator, randseed *rand.Rand, opt *Options) *Simplifier {
	return NewSimplifier(validator, randseed, opt.ShortcutRounds, opt.ShortcutAttempts, opt.CollinearTolerance)
}

// Simplify runs random shortcutting, then a greedy farthest-reachable pass, then collinear
// collapsing. The input is not modified.
func (s *Simplifier) Simplify(ctx context.Context, path Path) Path {
	out := path.Clone()
	if len(out) <= 2 {
		return out
	}
	out = s.Shortcut(ctx, out)
	out = s.Reduce(out)
	return s.Collapse(out)
}

// Shortcut repeatedly picks two waypoints i < j with at least one waypoint between them and, if
// the direct motion is valid, drops everything in between. A round ends after its attempt budget;
// a round that accepted nothing ends shortcutting.
func (s *Simplifier) Shortcut(ctx context.Context, path Path) Path {
	out := path.Clone()
	for round := 0; round < s.rounds && len(out) > 2; round++ {
		attempts := s.attempts
		if attempts == 0 {
			attempts = defaultShortcutAttemptsPerWaypoint * len(out)
		}
		improved := false
		for attempt := 0; attempt < attempts && len(out) > 2; attempt++ {
			select {
			case <-ctx.Done():
				return out
			default:
			}
			// Intn returns an int in the half-open interval [0,n)
			i := s.randseed.Intn(len(out) - 2)
			j := i + 2 + s.randseed.Intn(len(out)-i-2)
			if s.validator.IsMotionValid(out[i], out[j]) {
				out = append(out[:i+1], out[j:]...)
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return out
}

// Reduce walks the path from the start and, from each kept waypoint, jumps to the farthest
// waypoint reachable with a single valid motion.
func (s *Simplifier) Reduce(path Path) Path {
	if len(path) <= 2 {
		return path.Clone()
	}
	out := Path{path[0]}
	for i := 0; i < len(path)-1; {
		j := len(path) - 1
		for j > i+1 && !s.validator.IsMotionValid(path[i], path[j]) {
			j--
		}
		out = append(out, path[j])
		i = j
	}
	return out
}

// Collapse drops waypoints that lie within the tolerance of the line through their neighbours,
// using Douglas-Peucker. The candidate is only taken when all of its motions are valid.
func (s *Simplifier) Collapse(path Path) Path {
	if s.tolerance < 0 || len(path) <= 2 {
		return path.Clone()
	}
	ls, ok := simplify.DouglasPeucker(s.tolerance).Simplify(path.lineString()).(orb.LineString)
	if !ok || len(ls) >= len(path) || len(ls) < 2 {
		return path.Clone()
	}
	candidate := pathFromLineString(ls)
	if s.validator.ValidatePath(candidate) >= 0 || candidate.Length() > path.Length() {
		return path.Clone()
	}
	return candidate
}
