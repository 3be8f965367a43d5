// Package boxenv implements a probabilistic axis-aligned box environment
// with moving spherical obstacles.
package boxenv

import (
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/switchback-robotics/tvplan"
)

// Obstacle is a sphere moving at constant velocity. Its hard radius is
// inflated by the active safety margin; Padding beyond that carries a
// linearly decaying collision probability.
type Obstacle struct {
	Center   r3.Vector
	Velocity r3.Vector
	Radius   float64
	Padding  float64
}

// centerAt returns the obstacle center advected to time t. AnyTime queries
// see the initial position.
func (o Obstacle) centerAt(t float64) r3.Vector {
	if t == tvplan.AnyTime {
		return o.Center
	}
	return o.Center.Add(o.Velocity.Mul(t))
}

// Box is an axis-aligned environment with per-value-function safety
// margins. Configure it fully before handing it to a planner; only IsValid
// and Sample may be called during planning, and Sample draws from a single
// random stream, so a Box must not be shared by concurrent Plan calls.
type Box struct {
	lower, upper r3.Vector
	margins      map[tvplan.ValueID]float64
	obstacles    []Obstacle
	rnd          *rand.Rand
}

var _ = tvplan.Environment(&Box{})

// New returns a box spanning lower to upper, with sampling driven by seed
// so runs are reproducible.
func New(lower, upper r3.Vector, seed int64) (*Box, error) {
	if lower.X >= upper.X || lower.Y >= upper.Y || lower.Z >= upper.Z {
		return nil, errors.Errorf("box bounds are empty: lower %v, upper %v", lower, upper)
	}
	return &Box{
		lower:   lower,
		upper:   upper,
		margins: make(map[tvplan.ValueID]float64),
		rnd:     rand.New(rand.NewSource(seed)),
	}, nil
}

// SetMargin registers the safety margin for a value function. Margins
// shrink the usable bounds and inflate obstacle radii.
func (b *Box) SetMargin(id tvplan.ValueID, margin float64) {
	b.margins[id] = margin
}

// AddObstacle adds a moving spherical obstacle.
func (b *Box) AddObstacle(obstacle Obstacle) {
	b.obstacles = append(b.obstacles, obstacle)
}

// margin returns the larger of the two active margins. An unregistered
// value function contributes zero.
func (b *Box) margin(incoming, outgoing tvplan.ValueID) float64 {
	m := b.margins[incoming]
	if out := b.margins[outgoing]; out > m {
		m = out
	}
	return m
}

// IsValid reports whether position is collision free at time t under the
// margins of the given value functions, along with the instantaneous
// collision probability there. Passing tvplan.AnyTime checks obstacles at
// their initial positions.
func (b *Box) IsValid(position r3.Vector, incoming, outgoing tvplan.ValueID, t float64) (bool, float64) {
	margin := b.margin(incoming, outgoing)

	if position.X < b.lower.X+margin || position.X > b.upper.X-margin ||
		position.Y < b.lower.Y+margin || position.Y > b.upper.Y-margin ||
		position.Z < b.lower.Z+margin || position.Z > b.upper.Z-margin {
		return false, 1
	}

	maxProb := 0.0
	for _, obstacle := range b.obstacles {
		dist := position.Sub(obstacle.centerAt(t)).Norm()
		hardRadius := obstacle.Radius + margin
		switch {
		case dist <= hardRadius:
			return false, 1
		case obstacle.Padding > 0 && dist < hardRadius+obstacle.Padding:
			if prob := 1 - (dist-hardRadius)/obstacle.Padding; prob > maxProb {
				maxProb = prob
			}
		}
	}
	return true, maxProb
}

// Sample returns a uniform random point within the raw bounds. Margins are
// not applied; candidate points are screened by IsValid.
func (b *Box) Sample() r3.Vector {
	return r3.Vector{
		X: b.lower.X + b.rnd.Float64()*(b.upper.X-b.lower.X),
		Y: b.lower.Y + b.rnd.Float64()*(b.upper.Y-b.lower.Y),
		Z: b.lower.Z + b.rnd.Float64()*(b.upper.Z-b.lower.Z),
	}
}
