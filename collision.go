package tvplan

import "github.com/golang/geo/r3"

const (
	// samePointTolerance decides when a segment is a wait in place rather
	// than a move.
	samePointTolerance = 1e-8

	// stayPutStepFraction is the fraction of a wait edge's duration used as
	// its collision sampling step, since there is no spatial travel to pace
	// the walk.
	stayPutStepFraction = 0.1
)

// checkSegment walks the segment from start to stop through the collision
// oracle, pacing samples CollisionCheckResolution apart in space and scaling
// the time step so the walk spans [startTime, stopTime). It reports whether
// every sample was valid, together with the maximum instantaneous collision
// probability seen up to and including the first invalid sample. Partial
// risk information is preserved even when the segment is rejected.
func (p *planner) checkSegment(start, stop r3.Vector, startTime, stopTime float64) (bool, float64) {
	samePoint := pointsApproxEqual(start, stop, samePointTolerance)

	var dt float64
	var step r3.Vector
	if samePoint {
		dt = (stopTime - startTime) * stayPutStepFraction
	} else {
		dist := stop.Sub(start).Norm()
		dt = (stopTime - startTime) * p.opt.CollisionCheckResolution / dist
		step = stop.Sub(start).Mul(p.opt.CollisionCheckResolution / dist)
	}

	maxProb := 0.0
	query := start
	for t := startTime; t < stopTime; t += dt {
		valid, prob := p.env.IsValid(query, p.opt.IncomingValue, p.opt.OutgoingValue, t)
		if prob > maxProb {
			maxProb = prob
		}
		if !valid {
			return false, maxProb
		}
		query = query.Add(step)
	}
	return true, maxProb
}
