package analyzer

import (
	"fmt"

	berrors "github.com/arkilian/ndxbench/internal/errors"
)

// Trial counts per measurement block.
const (
	SelectTrials        = 100
	JoinTrials          = 10
	SpatialSelectTrials = 10
	SpatialJoinTrials   = 2
	CrossTrials         = 2
	IDTrials            = 100
)

// Repetitions is the number of measurement passes per entity when the full
// sweep is disabled, and always for identifier lookups.
const Repetitions = 2

// The point-in-polygon cross join sweeps from the run start to a fixed
// bound in a fixed number of steps.
const (
	CrossStop  = 20000
	CrossSteps = 10
)

// Params are the run parameters of one analysis.
type Params struct {
	// Output is the report path. An empty path skips writing the file.
	Output string

	Start     int
	Stop      int
	StopSmall int
	NumPoints int

	Spatial bool
	IDs     bool

	// FullSweep loads each sweep point instead of the repetition index, so
	// select and join sequences have NumPoints entries instead of two.
	FullSweep bool

	// FetchRows drains result rows inside the timed region.
	FetchRows bool
}

// DefaultParams returns the documented run defaults.
func DefaultParams() Params {
	return Params{
		Output:    "report.json",
		Start:     100,
		Stop:      1000000,
		StopSmall: 10000,
		NumPoints: 10,
	}
}

// Validate checks the parameters before any statement is executed.
func (p Params) Validate() error {
	if p.NumPoints <= 0 {
		return berrors.NewValidationError(berrors.CodeInvalidRunParams,
			fmt.Sprintf("num_points must be positive, got %d", p.NumPoints))
	}
	if p.Start < 0 {
		return berrors.NewValidationError(berrors.CodeInvalidRunParams,
			fmt.Sprintf("start must not be negative, got %d", p.Start))
	}
	if p.Stop <= p.Start {
		return berrors.NewValidationError(berrors.CodeInvalidRunParams,
			fmt.Sprintf("stop (%d) must be greater than start (%d)", p.Stop, p.Start))
	}
	if p.Spatial && p.StopSmall <= p.Start {
		return berrors.NewValidationError(berrors.CodeInvalidRunParams,
			fmt.Sprintf("stop_small (%d) must be greater than start (%d)", p.StopSmall, p.Start))
	}
	if p.Spatial && (CrossStop-p.Start)/CrossSteps < 1 {
		return berrors.NewValidationError(berrors.CodeInvalidRunParams,
			fmt.Sprintf("start (%d) leaves no room for the point-in-polygon sweep below %d", p.Start, CrossStop))
	}
	return nil
}

// Sweep returns numPoints row counts from start in steps of
// (stop-start)/numPoints, using integer division.
func Sweep(start, stop, numPoints int) []int {
	if numPoints <= 0 {
		return nil
	}
	step := (stop - start) / numPoints
	out := make([]int, numPoints)
	for k := range out {
		out[k] = start + k*step
	}
	return out
}

// CrossSweep returns the row counts of the point-in-polygon cross join.
func CrossSweep(start int) []int {
	return Sweep(start, CrossStop, CrossSteps)
}

// rowCounts returns the row counts at which a base entity is loaded.
func (p Params) rowCounts(spatial bool) []int {
	if !p.FullSweep {
		return repetitions()
	}
	if spatial {
		return Sweep(p.Start, p.StopSmall, p.NumPoints)
	}
	return Sweep(p.Start, p.Stop, p.NumPoints)
}

// repetitions returns the repetition indexes, which double as row counts.
func repetitions() []int {
	out := make([]int, Repetitions)
	for i := range out {
		out[i] = i
	}
	return out
}
