package planner

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Status tags the outcome of a planning run.
type Status int

// The possible outcomes of a planning run.
const (
	StatusNotFound Status = iota
	StatusSolved
	StatusTimedOut
)

var statusNames = map[Status]string{
	StatusNotFound: "not_found",
	StatusSolved:   "solved",
	StatusTimedOut: "timed_out",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return errors.Errorf("unknown planner status %q", text)
}

// Result is the outcome of one planning run. Exhausting the budget is a normal result, not an
// error: Status is NotFound or TimedOut and Path is empty.
type Result struct {
	Status Status `json:"status"`

	// Path is the final path, simplified unless simplification was disabled.
	Path Path `json:"path,omitempty"`

	// RawPath is the path as extracted from the two trees.
	RawPath Path `json:"raw_path,omitempty"`

	Iterations    int   `json:"iterations"`
	StartTreeSize int   `json:"start_tree_size"`
	GoalTreeSize  int   `json:"goal_tree_size"`
	Seed          int64 `json:"seed"`
}

// Solved reports whether the run found a path.
func (r *Result) Solved() bool {
	return r.Status == StatusSolved
}

// Length of the final path.
func (r *Result) Length() float64 {
	return r.Path.Length()
}

// SaveResult serializes the result to a JSON file.
func SaveResult(result *Result, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal result")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write file")
	}
	return nil
}

// LoadResult reads a result written by SaveResult.
func LoadResult(filename string) (*Result, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal result")
	}
	return &result, nil
}
