package tvplan

import (
	"container/heap"
	"context"
	"math"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
)

// stayPutTime is the fixed duration of the self-loop "wait" edge in grid
// expansion, which has no travel distance to derive a duration from.
const stayPutTime = 1.0

// timeVaryingAStar searches an implicit uniform grid whose edges carry
// time-stamped collision checks, so the same point may be free at one
// arrival time and blocked at another.
type timeVaryingAStar struct {
	*planner
}

// NewTimeVaryingAStar returns a grid A* planner over env, with travel times
// and the time-to-goal heuristic supplied by dyn.
func NewTimeVaryingAStar(env Environment, dyn Dynamics, logger golog.Logger, opt *PlannerOptions) (Planner, error) {
	p, err := newPlanner(env, dyn, logger, opt)
	if err != nil {
		return nil, err
	}
	return &timeVaryingAStar{planner: p}, nil
}

func (tva *timeVaryingAStar) Plan(ctx context.Context, start, stop r3.Vector, startTime float64, budget time.Duration) (*Trajectory, error) {
	planStart := tva.clock.Now()
	tva.logger.Debugf("planning from %v to %v departing at %.3f with budget %v", start, stop, startTime, budget)

	resolution := tva.opt.GridResolution
	open := newOpenSet(resolution)
	closed := make(map[gridCell]struct{})

	open.push(newNode(start, nil, startTime, 0, tva.dyn.BestPossibleTime(start, stop), 0))

	expanded := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if tva.clock.Since(planStart) >= budget {
			tva.logger.Debugf("budget exhausted after expanding %d nodes", expanded)
			return nil, ErrBudgetExceeded
		}
		if open.len() == 0 {
			tva.logger.Errorf("open set emptied after expanding %d nodes without reaching %v", expanded, stop)
			return nil, ErrSearchExhausted
		}

		next := open.pop()

		if nearGoal(next.point, stop, resolution) {
			if terminus, ok := tva.connectTerminus(next, stop); ok {
				tva.logger.Debugf("goal reached after expanding %d nodes", expanded)
				return tva.reconstructTrajectory(terminus)
			}
			// The final approach is blocked at this arrival time. Keep
			// searching; a later or different approach may get through.
		}

		closed[cellForPoint(next.point, resolution)] = struct{}{}
		expanded++

		for _, neighbor := range gridNeighbors(next.point, resolution) {
			if _, ok := closed[cellForPoint(neighbor, resolution)]; ok {
				continue
			}
			bestTime := stayPutTime
			if !pointsApproxEqual(neighbor, next.point, samePointTolerance) {
				bestTime = tva.dyn.BestPossibleTime(next.point, neighbor)
			}
			arrivalTime := next.time + bestTime
			free, prob := tva.checkSegment(next.point, neighbor, next.time, arrivalTime)
			if !free {
				continue
			}
			costToCome := next.costToCome + neighbor.Sub(next.point).Norm()
			heuristic := tva.dyn.BestPossibleTime(neighbor, stop)
			open.pushIfBetter(newNode(neighbor, next, arrivalTime, costToCome, heuristic, prob))
		}
	}
}

// connectTerminus joins the exact goal point to the tree once a popped node
// has landed within goal tolerance. The terminus parents to the popped
// node's own parent when one exists, avoiding a degenerate zero-length final
// edge when the goal coincides with the first expanded neighbor. The final
// edge gets the same collision check as any other; ok is false when it is
// blocked.
func (tva *timeVaryingAStar) connectTerminus(next *node, stop r3.Vector) (*node, bool) {
	parent := next
	if next.parent != nil {
		parent = next.parent
	}
	terminusTime := parent.time + tva.dyn.BestPossibleTime(parent.point, stop)
	free, prob := tva.checkSegment(parent.point, stop, parent.time, terminusTime)
	if !free {
		return nil, false
	}
	costToCome := parent.costToCome + stop.Sub(parent.point).Norm()
	return newNode(stop, parent, terminusTime, costToCome, 0, prob), true
}

// nearGoal reports whether p lies within half a grid cell of stop on every
// axis.
func nearGoal(p, stop r3.Vector, resolution float64) bool {
	return math.Abs(p.X-stop.X) < resolution/2 &&
		math.Abs(p.Y-stop.Y) < resolution/2 &&
		math.Abs(p.Z-stop.Z) < resolution/2
}

// gridNeighbors returns the 27 grid points offset by {-r, 0, +r} from p on
// each axis. The center point itself is included, representing a wait
// action.
func gridNeighbors(p r3.Vector, resolution float64) []r3.Vector {
	neighbors := make([]r3.Vector, 0, 27)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				neighbors = append(neighbors, r3.Vector{
					X: p.X + float64(dx)*resolution,
					Y: p.Y + float64(dy)*resolution,
					Z: p.Z + float64(dz)*resolution,
				})
			}
		}
	}
	return neighbors
}

// openEntry wraps a node in the open heap. seq breaks priority ties by
// insertion order so the heap imposes a total order.
type openEntry struct {
	node  *node
	seq   int64
	index int
}

type openHeap []*openEntry

func (h openHeap) Len() int { return len(h) }

func (h openHeap) Less(i, j int) bool {
	if h[i].node.priority != h[j].node.priority {
		return h[i].node.priority < h[j].node.priority
	}
	return h[i].seq < h[j].seq
}

func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *openHeap) Push(x any) {
	entry := x.(*openEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// openSet is the priority-ordered search frontier. Entries are indexed by
// grid cell so a strictly better route to an open cell replaces the
// existing entry, by removal and reinsertion; nodes themselves are never
// mutated.
type openSet struct {
	resolution float64
	heap       openHeap
	byCell     map[gridCell]*openEntry
	nextSeq    int64
}

func newOpenSet(resolution float64) *openSet {
	return &openSet{
		resolution: resolution,
		byCell:     make(map[gridCell]*openEntry),
	}
}

func (os *openSet) len() int { return len(os.heap) }

func (os *openSet) push(n *node) {
	entry := &openEntry{node: n, seq: os.nextSeq}
	os.nextSeq++
	heap.Push(&os.heap, entry)
	os.byCell[cellForPoint(n.point, os.resolution)] = entry
}

func (os *openSet) pop() *node {
	entry := heap.Pop(&os.heap).(*openEntry)
	delete(os.byCell, cellForPoint(entry.node.point, os.resolution))
	return entry.node
}

// pushIfBetter inserts candidate unless an entry for the same grid cell is
// already open with equal or lower priority.
func (os *openSet) pushIfBetter(candidate *node) {
	if existing, ok := os.byCell[cellForPoint(candidate.point, os.resolution)]; ok {
		if existing.node.priority <= candidate.priority {
			return
		}
		heap.Remove(&os.heap, existing.index)
	}
	os.push(candidate)
}
