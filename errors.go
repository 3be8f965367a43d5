package tvplan

import "errors"

// Planning can come up empty without anything being wrong: the wall-clock
// budget may run out, or the reachable grid may simply not contain the goal.
// Callers distinguish these outcomes from real faults with errors.Is.
var (
	// ErrBudgetExceeded is returned when the wall-clock budget expires before
	// a trajectory is found. This is an expected outcome under real-time
	// constraints, not a fault.
	ErrBudgetExceeded = errors.New("planning budget exceeded before a trajectory was found")

	// ErrSearchExhausted is returned when the open set empties before the
	// goal is reached. The goal is unreachable within the explored grid.
	ErrSearchExhausted = errors.New("search exhausted before reaching the goal")

	// ErrInvalidStart is returned when the start point fails a
	// time-independent validity check.
	ErrInvalidStart = errors.New("start point is not valid in the environment")

	// ErrInvalidStop is returned when the stop point fails a
	// time-independent validity check.
	ErrInvalidStop = errors.New("stop point is not valid in the environment")
)

var (
	errNoPlannerOptions = errors.New("planner options are required but have not been specified")
	errNilEnvironment   = errors.New("an environment is required but was not specified")
	errNilDynamics      = errors.New("a dynamics model is required but was not specified")
	errNilTerminus      = errors.New("cannot reconstruct a trajectory without a terminus")
)
