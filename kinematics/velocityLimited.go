// Package kinematics provides dynamics models for the planning library.
package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/switchback-robotics/tvplan"
)

// VelocityLimited is a point mass moving each axis independently at up to a
// fixed speed. The slowest axis dominates its travel times.
type VelocityLimited struct {
	maxSpeed r3.Vector
}

var _ = tvplan.Dynamics(&VelocityLimited{})

// NewVelocityLimited returns a point-mass dynamics model with the given
// per-axis speed limits, all of which must be positive.
func NewVelocityLimited(maxSpeed r3.Vector) (*VelocityLimited, error) {
	if maxSpeed.X <= 0 || maxSpeed.Y <= 0 || maxSpeed.Z <= 0 {
		return nil, errors.Errorf("max speed must be positive on every axis, got %v", maxSpeed)
	}
	return &VelocityLimited{maxSpeed: maxSpeed}, nil
}

// BestPossibleTime returns the duration of the slowest axis when every axis
// moves at its speed limit.
func (vl *VelocityLimited) BestPossibleTime(from, to r3.Vector) float64 {
	t := math.Abs(to.X-from.X) / vl.maxSpeed.X
	if ty := math.Abs(to.Y-from.Y) / vl.maxSpeed.Y; ty > t {
		t = ty
	}
	if tz := math.Abs(to.Z-from.Z) / vl.maxSpeed.Z; tz > t {
		t = tz
	}
	return t
}

// LiftGeometricTrajectory pairs each position with the constant velocity
// that carries it to the next waypoint on schedule. The final state is at
// rest.
func (vl *VelocityLimited) LiftGeometricTrajectory(positions []r3.Vector, times []float64) ([]tvplan.State, error) {
	if len(positions) != len(times) {
		return nil, errors.Errorf("got %d positions but %d times", len(positions), len(times))
	}
	states := make([]tvplan.State, len(positions))
	for i := range positions {
		var velocity r3.Vector
		if i+1 < len(positions) {
			if dt := times[i+1] - times[i]; dt > 0 {
				velocity = positions[i+1].Sub(positions[i]).Mul(1 / dt)
			}
		}
		states[i] = tvplan.State{Position: positions[i], Velocity: velocity}
	}
	return states, nil
}
