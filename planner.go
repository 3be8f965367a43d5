// Package tvplan plans time-parameterized, collision-checked trajectories
// through 3D space under a wall-clock budget, for robots whose safety
// envelope is selected by a switchable value function.
package tvplan

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
)

// ValueID identifies a precomputed reachability-based safety envelope. IDs
// are assigned externally and carried through planning unchanged.
type ValueID uint32

// AnyTime requests a time-independent validity check from an Environment.
const AnyTime = -1.0

// Environment answers time-stamped validity and collision probability
// queries and supplies random points for sampling-based planners. Results
// must be deterministic for fixed inputs within one Plan call.
type Environment interface {
	// IsValid reports whether position is collision free at time t under the
	// safety envelopes selected by incoming and outgoing, along with the
	// instantaneous collision probability there. Passing AnyTime requests a
	// check independent of time.
	IsValid(position r3.Vector, incoming, outgoing ValueID, t float64) (bool, float64)

	// Sample returns a random point within the environment bounds.
	Sample() r3.Vector
}

// State is one point of a lifted trajectory.
type State struct {
	Position r3.Vector `json:"position"`
	Velocity r3.Vector `json:"velocity"`
}

// Dynamics bounds travel times between points and lifts geometric waypoint
// sequences into full state trajectories.
type Dynamics interface {
	// BestPossibleTime returns the minimum feasible travel duration between
	// two points. It must be non-negative.
	BestPossibleTime(from, to r3.Vector) float64

	// LiftGeometricTrajectory converts matched position and time sequences
	// into a state trajectory of the same length. The lift must be a pure
	// function of its inputs.
	LiftGeometricTrajectory(positions []r3.Vector, times []float64) ([]State, error)
}

// Planner turns a start and stop point into a time-parameterized trajectory.
//
// Plan returns a sentinel error (ErrBudgetExceeded, ErrSearchExhausted,
// ErrInvalidStart, ErrInvalidStop) when no trajectory could be produced
// within budget, and ctx.Err() if the context ends first. Planners hold no
// mutable search state between calls, so a single Planner may serve
// concurrent Plan calls.
type Planner interface {
	Plan(ctx context.Context, start, stop r3.Vector, startTime float64, budget time.Duration) (*Trajectory, error)
}

// planner holds the collaborators every planning algorithm needs.
type planner struct {
	env    Environment
	dyn    Dynamics
	logger golog.Logger
	opt    *PlannerOptions
	clock  clock.Clock
}

func newPlanner(env Environment, dyn Dynamics, logger golog.Logger, opt *PlannerOptions) (*planner, error) {
	if opt == nil {
		return nil, errNoPlannerOptions
	}
	if env == nil {
		return nil, errNilEnvironment
	}
	if dyn == nil {
		return nil, errNilDynamics
	}
	if err := opt.validate(); err != nil {
		return nil, err
	}
	clk := opt.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &planner{env: env, dyn: dyn, logger: logger, opt: opt, clock: clk}, nil
}
