package tvplan

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

const (
	// defaultGridResolution is the spacing of the implicit search grid, in
	// the same units as the planned points.
	defaultGridResolution = 1.0

	// defaultCollisionCheckResolution is the spatial step between collision
	// samples when walking an edge.
	defaultCollisionCheckResolution = 0.1
)

// PlannerOptions holds the tunable parameters shared by all planners.
// Algorithm-specific parameters ride along in Extra and are decoded by the
// planner that understands them.
type PlannerOptions struct {
	// GridResolution is the spacing of the uniform grid expanded by the A*
	// planner and the tolerance scale for its goal test.
	GridResolution float64 `json:"grid_resolution"`

	// CollisionCheckResolution is the spatial sampling density of continuous
	// collision checks along candidate edges.
	CollisionCheckResolution float64 `json:"collision_check_resolution"`

	// IncomingValue and OutgoingValue select the safety envelopes governing
	// validity checks for this planner. They are handed to the environment
	// unchanged, never inspected.
	IncomingValue ValueID `json:"incoming_value"`
	OutgoingValue ValueID `json:"outgoing_value"`

	// Extra is algorithm-specific parameters. Unknown keys are ignored.
	Extra map[string]interface{} `json:"extra,omitempty"`

	// Clock supplies the wall clock used for budget checks. Defaults to the
	// real clock; swapped for a mock in tests.
	Clock clock.Clock `json:"-"`
}

// NewBasicPlannerOptions specifies a set of default planner options.
func NewBasicPlannerOptions() *PlannerOptions {
	opt := &PlannerOptions{}
	opt.GridResolution = defaultGridResolution
	opt.CollisionCheckResolution = defaultCollisionCheckResolution
	opt.Clock = clock.New()
	return opt
}

func (opt *PlannerOptions) validate() error {
	if opt.GridResolution <= 0 {
		return errors.Errorf("grid resolution must be positive, got %f", opt.GridResolution)
	}
	if opt.CollisionCheckResolution <= 0 {
		return errors.Errorf("collision check resolution must be positive, got %f", opt.CollisionCheckResolution)
	}
	return nil
}
