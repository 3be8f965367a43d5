package tvplan

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// defaultPrimaryFraction is the share of the budget given to the primary
// planner, the remainder going to the fallback.
const defaultPrimaryFraction = 0.75

// PlanManager coordinates a primary planner and a fallback under one
// budget. The primary runs first on a fraction of the budget; if it times
// out or exhausts its search, the fallback gets whatever wall-clock budget
// remains. Invalid-input failures are returned immediately, since the
// fallback would see the same inputs.
type PlanManager struct {
	primary         Planner
	fallback        Planner
	logger          golog.Logger
	clock           clock.Clock
	primaryFraction float64
}

// NewPlanManager returns a manager running primary first and fallback on
// primary's recoverable failures.
func NewPlanManager(primary, fallback Planner, logger golog.Logger) (*PlanManager, error) {
	if primary == nil || fallback == nil {
		return nil, errors.New("a plan manager needs both a primary and a fallback planner")
	}
	return &PlanManager{
		primary:         primary,
		fallback:        fallback,
		logger:          logger,
		clock:           clock.New(),
		primaryFraction: defaultPrimaryFraction,
	}, nil
}

// SetClock swaps the wall clock used to split the budget. Tests use a mock.
func (pm *PlanManager) SetClock(clk clock.Clock) {
	pm.clock = clk
}

// Plan implements the Planner contract over the primary/fallback pair.
func (pm *PlanManager) Plan(ctx context.Context, start, stop r3.Vector, startTime float64, budget time.Duration) (*Trajectory, error) {
	id := uuid.New().String()
	planStart := pm.clock.Now()

	primaryBudget := time.Duration(float64(budget) * pm.primaryFraction)
	pm.logger.Debugf("plan %s: primary planner gets %v of %v", id, primaryBudget, budget)

	traj, primaryErr := pm.runPlanner(ctx, pm.primary, start, stop, startTime, primaryBudget)
	if primaryErr == nil {
		return traj, nil
	}
	if !errors.Is(primaryErr, ErrBudgetExceeded) && !errors.Is(primaryErr, ErrSearchExhausted) {
		return nil, primaryErr
	}

	remaining := budget - pm.clock.Since(planStart)
	if remaining <= 0 {
		return nil, primaryErr
	}
	pm.logger.Debugf("plan %s: primary planner came up empty (%v), falling back with %v remaining", id, primaryErr, remaining)

	traj, fallbackErr := pm.runPlanner(ctx, pm.fallback, start, stop, startTime, remaining)
	if fallbackErr != nil {
		return nil, multierr.Combine(primaryErr, fallbackErr)
	}
	return traj, nil
}

// runPlanner runs p on its own goroutine so cancellation is honored even
// while the planner is mid-expansion.
func (pm *PlanManager) runPlanner(ctx context.Context, p Planner, start, stop r3.Vector, startTime float64, budget time.Duration) (*Trajectory, error) {
	solutionChan := make(chan *planReturn, 1)
	utils.PanicCapturingGo(func() {
		traj, err := p.Plan(ctx, start, stop, startTime, budget)
		solutionChan <- &planReturn{traj: traj, err: err}
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ret := <-solutionChan:
		return ret.traj, ret.err
	}
}

type planReturn struct {
	traj *Trajectory
	err  error
}
