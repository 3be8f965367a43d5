package tvplan

import (
	"math"

	"github.com/golang/geo/r3"
)

// node is one reachable configuration at one search step. Nodes are
// immutable once constructed: a better route to the same grid cell is
// represented by a new node, never by mutating an existing one. Parent
// references form the tree that trajectory reconstruction walks, so parents
// must outlive their children for the duration of a Plan call.
type node struct {
	point  r3.Vector
	parent *node

	// time is the arrival time at point. It is non-decreasing along any
	// parent chain.
	time float64

	// costToCome accumulates Euclidean path length from the root. The
	// heuristic below is a time estimate, so open-set priorities mix
	// distance and time units. Do not change one without revisiting the
	// other and the trajectory timing that depends on them.
	costToCome float64

	// heuristic estimates the remaining time to goal.
	heuristic float64

	// priority orders the open set. Fixed at construction as
	// costToCome + heuristic.
	priority float64

	// collisionProb is the maximum instantaneous collision probability
	// observed along the incoming edge.
	collisionProb float64
}

func newNode(point r3.Vector, parent *node, time, costToCome, heuristic, collisionProb float64) *node {
	return &node{
		point:         point,
		parent:        parent,
		time:          time,
		costToCome:    costToCome,
		heuristic:     heuristic,
		priority:      costToCome + heuristic,
		collisionProb: collisionProb,
	}
}

// gridCell identifies the uniform grid cell containing a point. Time is
// deliberately excluded: closed-set membership and open-set equivalence are
// spatial only.
type gridCell struct {
	x, y, z int64
}

func cellForPoint(p r3.Vector, resolution float64) gridCell {
	return gridCell{
		x: int64(math.Round(p.X / resolution)),
		y: int64(math.Round(p.Y / resolution)),
		z: int64(math.Round(p.Z / resolution)),
	}
}

// pointsApproxEqual reports whether a and b coincide within tol on every
// axis.
func pointsApproxEqual(a, b r3.Vector, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}
