package tvplan

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestAStarDegenerateGoal(t *testing.T) {
	logger := golog.NewTestLogger(t)
	env := &fakeEnv{}
	planner, err := NewTimeVaryingAStar(env, unitDynamics{}, logger, NewBasicPlannerOptions())
	test.That(t, err, test.ShouldBeNil)

	// Stop is within half a grid cell of start, so the root itself passes
	// the goal test and the trajectory is a single segment.
	start := r3.Vector{X: 1, Y: 1, Z: 1}
	stop := r3.Vector{X: 1.2, Y: 1, Z: 1}
	traj, err := planner.Plan(context.Background(), start, stop, 5, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, traj.Len(), test.ShouldEqual, 2)
	test.That(t, traj.Waypoints()[0].State.Position, test.ShouldResemble, start)
	test.That(t, traj.Waypoints()[1].State.Position, test.ShouldResemble, stop)
	test.That(t, traj.StartTime(), test.ShouldEqual, 5.0)
	test.That(t, traj.EndTime(), test.ShouldAlmostEqual, 5.0+stop.Sub(start).Norm())
}

func TestAStarStraightLine(t *testing.T) {
	logger := golog.NewTestLogger(t)
	env := &fakeEnv{}
	planner, err := NewTimeVaryingAStar(env, unitDynamics{}, logger, NewBasicPlannerOptions())
	test.That(t, err, test.ShouldBeNil)

	// Two grid hops along one axis: the minimal path is root, one
	// intermediate grid point, and the terminus.
	traj, err := planner.Plan(context.Background(), r3.Vector{}, r3.Vector{X: 2}, 0, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, traj.Len(), test.ShouldEqual, 3)
	test.That(t, traj.Positions(), test.ShouldResemble, []r3.Vector{{}, {X: 1}, {X: 2}})
	test.That(t, traj.Times(), test.ShouldResemble, []float64{0, 1, 2})
}

func TestAStarDetourEdgesAllChecked(t *testing.T) {
	logger := golog.NewTestLogger(t)
	obstacle := r3.Vector{X: 1}
	env := &fakeEnv{
		valid: func(position r3.Vector, tm float64) (bool, float64) {
			if position.Sub(obstacle).Norm() <= 0.4 {
				return false, 1
			}
			return true, 0
		},
	}
	planner, err := NewTimeVaryingAStar(env, unitDynamics{}, logger, NewBasicPlannerOptions())
	test.That(t, err, test.ShouldBeNil)

	start := r3.Vector{}
	stop := r3.Vector{X: 2}
	traj, err := planner.Plan(context.Background(), start, stop, 0, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, traj.Len(), test.ShouldEqual, 3)

	wps := traj.Waypoints()
	test.That(t, wps[0].State.Position, test.ShouldResemble, start)
	test.That(t, wps[len(wps)-1].State.Position, test.ShouldResemble, stop)

	// The straight line is blocked, so the middle waypoint must leave the
	// axis, and every returned edge must itself pass a collision check.
	test.That(t, wps[1].State.Position.Sub(obstacle).Norm(), test.ShouldBeGreaterThan, 0.4)
	tva := planner.(*timeVaryingAStar)
	for i := 0; i+1 < len(wps); i++ {
		test.That(t, wps[i+1].Time, test.ShouldBeGreaterThan, wps[i].Time)
		free, _ := tva.checkSegment(wps[i].State.Position, wps[i+1].State.Position, wps[i].Time, wps[i+1].Time)
		test.That(t, free, test.ShouldBeTrue)
	}
}

func TestAStarZeroBudget(t *testing.T) {
	logger := golog.NewTestLogger(t)
	env := &fakeEnv{}
	planner, err := NewTimeVaryingAStar(env, unitDynamics{}, logger, NewBasicPlannerOptions())
	test.That(t, err, test.ShouldBeNil)

	traj, err := planner.Plan(context.Background(), r3.Vector{}, r3.Vector{X: 5}, 0, 0)
	test.That(t, err, test.ShouldBeError, ErrBudgetExceeded)
	test.That(t, traj, test.ShouldBeNil)
	// The root must not have been expanded.
	test.That(t, env.queries, test.ShouldEqual, 0)
}

func TestAStarBudgetWithMockClock(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mock := clock.NewMock()
	env := &fakeEnv{}
	env.valid = func(position r3.Vector, tm float64) (bool, float64) {
		// Make wall time pass with oracle work so the budget check trips
		// deterministically mid-search.
		if env.queries > 50 {
			mock.Add(time.Second)
		}
		return true, 0
	}
	opt := NewBasicPlannerOptions()
	opt.Clock = mock
	planner, err := NewTimeVaryingAStar(env, unitDynamics{}, logger, opt)
	test.That(t, err, test.ShouldBeNil)

	traj, err := planner.Plan(context.Background(), r3.Vector{}, r3.Vector{X: 50}, 0, 500*time.Millisecond)
	test.That(t, err, test.ShouldBeError, ErrBudgetExceeded)
	test.That(t, traj, test.ShouldBeNil)
}

func TestAStarExhaustion(t *testing.T) {
	logger := golog.NewTestLogger(t)
	// Valid space is a small box and the goal is far outside it, so the
	// search must empty its open set in bounded time.
	env := &fakeEnv{
		valid: func(position r3.Vector, tm float64) (bool, float64) {
			inside := position.X >= -1 && position.X <= 1 &&
				position.Y >= -1 && position.Y <= 1 &&
				position.Z >= -1 && position.Z <= 1
			if !inside {
				return false, 1
			}
			return true, 0
		},
	}
	planner, err := NewTimeVaryingAStar(env, unitDynamics{}, logger, NewBasicPlannerOptions())
	test.That(t, err, test.ShouldBeNil)

	traj, err := planner.Plan(context.Background(), r3.Vector{}, r3.Vector{X: 5, Y: 5, Z: 5}, 0, 5*time.Second)
	test.That(t, err, test.ShouldBeError, ErrSearchExhausted)
	test.That(t, traj, test.ShouldBeNil)
}

func TestAStarIdempotence(t *testing.T) {
	logger := golog.NewTestLogger(t)
	env := &fakeEnv{}
	planner, err := NewTimeVaryingAStar(env, unitDynamics{}, logger, NewBasicPlannerOptions())
	test.That(t, err, test.ShouldBeNil)

	first, err := planner.Plan(context.Background(), r3.Vector{}, r3.Vector{X: 3, Y: 2}, 1, time.Second)
	test.That(t, err, test.ShouldBeNil)
	second, err := planner.Plan(context.Background(), r3.Vector{}, r3.Vector{X: 3, Y: 2}, 1, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.Waypoints(), test.ShouldResemble, first.Waypoints())
}

func TestAStarCancellation(t *testing.T) {
	logger := golog.NewTestLogger(t)
	env := &fakeEnv{}
	planner, err := NewTimeVaryingAStar(env, unitDynamics{}, logger, NewBasicPlannerOptions())
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	traj, err := planner.Plan(ctx, r3.Vector{}, r3.Vector{X: 5}, 0, time.Second)
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, traj, test.ShouldBeNil)
}

func TestAStarValueFunctionTags(t *testing.T) {
	logger := golog.NewTestLogger(t)
	env := &fakeEnv{}
	opt := NewBasicPlannerOptions()
	opt.IncomingValue = 7
	opt.OutgoingValue = 9
	planner, err := NewTimeVaryingAStar(env, unitDynamics{}, logger, opt)
	test.That(t, err, test.ShouldBeNil)

	traj, err := planner.Plan(context.Background(), r3.Vector{}, r3.Vector{X: 2}, 0, time.Second)
	test.That(t, err, test.ShouldBeNil)

	// The oracle sees both configured value functions unchanged; the
	// produced waypoints mirror the incoming one on both sides.
	test.That(t, env.lastIncoming, test.ShouldEqual, ValueID(7))
	test.That(t, env.lastOutgoing, test.ShouldEqual, ValueID(9))
	for _, wp := range traj.Waypoints() {
		test.That(t, wp.Incoming, test.ShouldEqual, ValueID(7))
		test.That(t, wp.Outgoing, test.ShouldEqual, ValueID(7))
	}
}

func TestGridNeighbors(t *testing.T) {
	p := r3.Vector{X: 1, Y: 2, Z: 3}
	neighbors := gridNeighbors(p, 0.5)
	test.That(t, neighbors, test.ShouldHaveLength, 27)

	foundSelf := false
	for _, n := range neighbors {
		if n == p {
			foundSelf = true
		}
		test.That(t, n.Sub(p).X, test.ShouldBeBetweenOrEqual, -0.5, 0.5)
		test.That(t, n.Sub(p).Y, test.ShouldBeBetweenOrEqual, -0.5, 0.5)
		test.That(t, n.Sub(p).Z, test.ShouldBeBetweenOrEqual, -0.5, 0.5)
	}
	test.That(t, foundSelf, test.ShouldBeTrue)
}

func TestOpenSetOrderingAndReplacement(t *testing.T) {
	set := newOpenSet(1.0)
	a := newNode(r3.Vector{X: 1}, nil, 0, 3, 0, 0)
	b := newNode(r3.Vector{X: 2}, nil, 0, 1, 0, 0)
	c := newNode(r3.Vector{X: 3}, nil, 0, 2, 0, 0)
	set.push(a)
	set.push(b)
	set.push(c)

	// A candidate for an open cell with equal priority does not replace the
	// incumbent; a strictly better one does.
	aTwin := newNode(r3.Vector{X: 1}, nil, 0, 3, 0, 0)
	set.pushIfBetter(aTwin)
	test.That(t, set.len(), test.ShouldEqual, 3)
	aBetter := newNode(r3.Vector{X: 1}, nil, 0, 1.5, 0, 0)
	set.pushIfBetter(aBetter)
	test.That(t, set.len(), test.ShouldEqual, 3)

	test.That(t, set.pop(), test.ShouldEqual, b)
	test.That(t, set.pop(), test.ShouldEqual, aBetter)
	test.That(t, set.pop(), test.ShouldEqual, c)
	test.That(t, set.len(), test.ShouldEqual, 0)
}

func TestOpenSetTieBreakByInsertion(t *testing.T) {
	set := newOpenSet(1.0)
	first := newNode(r3.Vector{X: 1}, nil, 0, 2, 0, 0)
	second := newNode(r3.Vector{X: 2}, nil, 0, 2, 0, 0)
	third := newNode(r3.Vector{X: 3}, nil, 0, 2, 0, 0)
	set.push(first)
	set.push(second)
	set.push(third)
	test.That(t, set.pop(), test.ShouldEqual, first)
	test.That(t, set.pop(), test.ShouldEqual, second)
	test.That(t, set.pop(), test.ShouldEqual, third)
}

func TestCellForPoint(t *testing.T) {
	test.That(t, cellForPoint(r3.Vector{X: 0.4, Y: -0.4, Z: 1.6}, 1.0), test.ShouldResemble, gridCell{0, 0, 2})
	test.That(t, cellForPoint(r3.Vector{X: 0.3, Y: 0.3, Z: 0.3}, 0.5), test.ShouldResemble, gridCell{1, 1, 1})
	// Points sharing a cell hash identically regardless of float noise.
	test.That(t,
		cellForPoint(r3.Vector{X: 1.0000001}, 1.0),
		test.ShouldResemble,
		cellForPoint(r3.Vector{X: 0.9999999}, 1.0))
}
