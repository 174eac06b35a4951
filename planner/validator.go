package planner

import (
	"math"

	"motion-planner/occupancy"
)

// MotionValidator checks states and straight-line motions against an occupancy field. It holds no
// mutable state and may be shared between goroutines.
type MotionValidator struct {
	field *occupancy.Field
	step  float64
}

// NewMotionValidator creates a validator that samples motions every step pixels.
func NewMotionValidator(field *occupancy.Field, step float64) (*MotionValidator, error) {
	if field == nil {
		return nil, newInputError("nil occupancy field")
	}
	if !(step > 0) || math.IsInf(step, 1) {
		return nil, newInputError("motion check step %v must be positive", step)
	}
	return &MotionValidator{field: field, step: step}, nil
}

// Step is the distance in pixels between two consecutive checks along a motion.
func (mv *MotionValidator) Step() float64 {
	return mv.step
}

// IsValid reports whether s lies on a free pixel.
func (mv *MotionValidator) IsValid(s State) bool {
	return mv.field.IsFree(s.X, s.Y)
}

// IsMotionValid reports whether every sample along the segment a-b is free, endpoints included.
func (mv *MotionValidator) IsMotionValid(a, b State) bool {
	_, ok := mv.CheckMotion(a, b)
	return ok
}

// CheckMotion walks from a to b in ceil(|b-a|/step) equal increments. It returns b and true if
// every sample is free, otherwise the last free sample before the first blocked one and false.
// If a itself is blocked, a is returned.
func (mv *MotionValidator) CheckMotion(a, b State) (State, bool) {
	if !mv.IsValid(a) {
		return a, false
	}
	n := int(math.Ceil(a.Distance(b) / mv.step))
	last := a
	for i := 1; i <= n; i++ {
		s := Interpolate(a, b, float64(i)/float64(n))
		if !mv.IsValid(s) {
			return last, false
		}
		last = s
	}
	return b, true
}

// ValidatePath returns the index i of the first motion path[i]-path[i+1] that is not valid, or -1
// if the whole path is valid. A single-state path is valid when that state is free.
func (mv *MotionValidator) ValidatePath(path Path) int {
	if len(path) == 1 && !mv.IsValid(path[0]) {
		return 0
	}
	for i := 0; i+1 < len(path); i++ {
		if !mv.IsMotionValid(path[i], path[i+1]) {
			return i
		}
	}
	return -1
}
