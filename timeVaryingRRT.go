package tvplan

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
)

const defaultOptimalityThreshold = 0.95

// timeVaryingRRTOptions is decoded from PlannerOptions.Extra.
type timeVaryingRRTOptions struct {
	// OptimalityThreshold ends sampling early once the best goal arrival
	// time is within this fraction of the dynamics lower bound.
	OptimalityThreshold float64 `json:"optimality_threshold"`
}

func newTimeVaryingRRTOptions(opt *PlannerOptions) (*timeVaryingRRTOptions, error) {
	algOpts := &timeVaryingRRTOptions{
		OptimalityThreshold: defaultOptimalityThreshold,
	}
	// convert map to json
	jsonString, err := json.Marshal(opt.Extra)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(jsonString, algOpts)
	if err != nil {
		return nil, err
	}
	return algOpts, nil
}

// timeVaryingRRT grows a tree of time-stamped nodes by random sampling,
// suited to spaces too unstructured for a uniform grid. Within the budget it
// keeps the goal connection with the earliest arrival time, rejecting
// samples that provably cannot improve on it.
type timeVaryingRRT struct {
	*planner
	algOpts *timeVaryingRRTOptions
}

// NewTimeVaryingRRT returns a sampling-based planner over env, drawing
// samples from env and arrival times from dyn.
func NewTimeVaryingRRT(env Environment, dyn Dynamics, logger golog.Logger, opt *PlannerOptions) (Planner, error) {
	p, err := newPlanner(env, dyn, logger, opt)
	if err != nil {
		return nil, err
	}
	algOpts, err := newTimeVaryingRRTOptions(opt)
	if err != nil {
		return nil, err
	}
	return &timeVaryingRRT{planner: p, algOpts: algOpts}, nil
}

func (rrt *timeVaryingRRT) Plan(ctx context.Context, start, stop r3.Vector, startTime float64, budget time.Duration) (*Trajectory, error) {
	planStart := rrt.clock.Now()

	// Endpoints must be valid independent of time before a search is worth
	// running at all.
	if valid, _ := rrt.env.IsValid(start, rrt.opt.IncomingValue, rrt.opt.OutgoingValue, AnyTime); !valid {
		rrt.logger.Warnf("start point %v is not valid in the environment", start)
		return nil, ErrInvalidStart
	}
	if valid, _ := rrt.env.IsValid(stop, rrt.opt.IncomingValue, rrt.opt.OutgoingValue, AnyTime); !valid {
		rrt.logger.Warnf("stop point %v is not valid in the environment", stop)
		return nil, ErrInvalidStop
	}

	rrt.logger.Debugf("planning from %v to %v departing at %.3f with budget %v", start, stop, startTime, budget)

	root := newNode(start, nil, startTime, 0, rrt.dyn.BestPossibleTime(start, stop), 0)
	index := newNodeIndex()
	index.insert(root)

	// No terminus can arrive before the dynamics lower bound; one within
	// OptimalityThreshold of it is good enough to stop sampling.
	goodEnough := startTime + rrt.dyn.BestPossibleTime(start, stop)/rrt.algOpts.OptimalityThreshold

	var best *node
	if terminus, ok := rrt.connect(root, stop); ok {
		best = terminus
	}

	samples := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rrt.clock.Since(planStart) >= budget {
			break
		}
		if best != nil && best.time <= goodEnough {
			break
		}

		sample := rrt.env.Sample()
		samples++

		// Informed rejection: discard samples that cannot lead to an
		// earlier terminus than the incumbent.
		if best != nil {
			bound := startTime + rrt.dyn.BestPossibleTime(start, sample) + rrt.dyn.BestPossibleTime(sample, stop)
			if bound >= best.time {
				continue
			}
		}

		neighbors := index.kNearest(sample, 1)
		if len(neighbors) == 0 {
			continue
		}
		near := neighbors[0]

		arrivalTime := near.time + rrt.dyn.BestPossibleTime(near.point, sample)
		free, prob := rrt.checkSegment(near.point, sample, near.time, arrivalTime)
		if !free {
			continue
		}
		costToCome := near.costToCome + sample.Sub(near.point).Norm()
		branch := newNode(sample, near, arrivalTime, costToCome, rrt.dyn.BestPossibleTime(sample, stop), prob)
		index.insert(branch)

		if terminus, ok := rrt.connect(branch, stop); ok {
			if best == nil || terminus.time < best.time {
				best = terminus
			}
		}
	}

	rrt.logger.Debugf("sampling finished after %d samples with %d tree nodes", samples, index.len())
	if best == nil {
		return nil, ErrBudgetExceeded
	}
	return rrt.reconstructTrajectory(best)
}

// connect attempts a collision-checked edge from n to the goal, returning a
// terminus node on success. Tree edges are checked once, at insertion, and
// never revalidated.
func (rrt *timeVaryingRRT) connect(n *node, stop r3.Vector) (*node, bool) {
	arrivalTime := n.time + rrt.dyn.BestPossibleTime(n.point, stop)
	free, prob := rrt.checkSegment(n.point, stop, n.time, arrivalTime)
	if !free {
		return nil, false
	}
	costToCome := n.costToCome + stop.Sub(n.point).Norm()
	return newNode(stop, n, arrivalTime, costToCome, 0, prob), true
}
