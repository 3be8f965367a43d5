package tvplan

import (
	"slices"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Waypoint is one time-indexed state of a trajectory, tagged with the value
// functions governing its validity on entry and exit.
type Waypoint struct {
	Time     float64 `json:"time"`
	State    State   `json:"state"`
	Incoming ValueID `json:"incoming_value"`
	Outgoing ValueID `json:"outgoing_value"`
}

// Trajectory is an ordered, time-indexed sequence of lifted states. It is
// built once by a successful Plan call and never modified afterward;
// ownership passes to the caller.
type Trajectory struct {
	waypoints []Waypoint
}

// Waypoints returns the waypoints in time order.
func (t *Trajectory) Waypoints() []Waypoint { return t.waypoints }

// Len returns the number of waypoints.
func (t *Trajectory) Len() int { return len(t.waypoints) }

// StartTime returns the time of the first waypoint.
func (t *Trajectory) StartTime() float64 { return t.waypoints[0].Time }

// EndTime returns the time of the last waypoint.
func (t *Trajectory) EndTime() float64 { return t.waypoints[len(t.waypoints)-1].Time }

// Positions returns the waypoint positions in time order.
func (t *Trajectory) Positions() []r3.Vector {
	positions := make([]r3.Vector, len(t.waypoints))
	for i, wp := range t.waypoints {
		positions[i] = wp.State.Position
	}
	return positions
}

// Times returns the waypoint times in time order.
func (t *Trajectory) Times() []float64 {
	times := make([]float64, len(t.waypoints))
	for i, wp := range t.waypoints {
		times[i] = wp.Time
	}
	return times
}

// reconstructTrajectory walks from terminus back to the root, reverses the
// collected positions and times so they run start to goal, and lifts them
// through the dynamics model. Every waypoint carries the planner's incoming
// value function on both sides; a value switch mid-trajectory is never
// produced.
func (p *planner) reconstructTrajectory(terminus *node) (*Trajectory, error) {
	if terminus == nil {
		return nil, errNilTerminus
	}

	var positions []r3.Vector
	var times []float64
	maxProb := 0.0
	for n := terminus; n != nil; n = n.parent {
		positions = append(positions, n.point)
		times = append(times, n.time)
		if n.collisionProb > maxProb {
			maxProb = n.collisionProb
		}
	}
	slices.Reverse(positions)
	slices.Reverse(times)

	states, err := p.dyn.LiftGeometricTrajectory(positions, times)
	if err != nil {
		return nil, errors.Wrap(err, "lifting geometric trajectory")
	}
	if len(states) != len(positions) {
		return nil, errors.Errorf("dynamics lift returned %d states for %d waypoints", len(states), len(positions))
	}

	waypoints := make([]Waypoint, len(states))
	for i, state := range states {
		waypoints[i] = Waypoint{
			Time:     times[i],
			State:    state,
			Incoming: p.opt.IncomingValue,
			Outgoing: p.opt.IncomingValue,
		}
	}
	p.logger.Debugf("reconstructed trajectory with %d waypoints, worst edge collision probability %.3f", len(waypoints), maxProb)
	return &Trajectory{waypoints: waypoints}, nil
}
