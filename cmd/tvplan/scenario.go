package main

import (
	"os"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/switchback-robotics/tvplan"
	"github.com/switchback-robotics/tvplan/boxenv"
	"github.com/switchback-robotics/tvplan/kinematics"
)

// scenarioConfig is the YAML description of one planning problem: the
// environment, the robot's speed limits, the planner configuration, and the
// query itself.
type scenarioConfig struct {
	Bounds struct {
		Lower r3.Vector `yaml:"lower"`
		Upper r3.Vector `yaml:"upper"`
	} `yaml:"bounds"`
	Margins    map[uint32]float64 `yaml:"margins"`
	Obstacles  []obstacleConfig   `yaml:"obstacles"`
	MaxSpeed   r3.Vector          `yaml:"max_speed"`
	Planner    plannerConfig      `yaml:"planner"`
	Start      r3.Vector          `yaml:"start"`
	Stop       r3.Vector          `yaml:"stop"`
	StartTime  float64            `yaml:"start_time"`
	Budget     string             `yaml:"budget"`
	SampleSeed int64              `yaml:"sample_seed"`
}

type obstacleConfig struct {
	Center   r3.Vector `yaml:"center"`
	Velocity r3.Vector `yaml:"velocity"`
	Radius   float64   `yaml:"radius"`
	Padding  float64   `yaml:"padding"`
}

type plannerConfig struct {
	// Algorithm chooses the planner: astar (the default), rrt, or auto,
	// which runs A* with an RRT fallback under one budget.
	Algorithm                string                 `yaml:"algorithm"`
	GridResolution           float64                `yaml:"grid_resolution"`
	CollisionCheckResolution float64                `yaml:"collision_check_resolution"`
	IncomingValue            uint32                 `yaml:"incoming_value"`
	OutgoingValue            uint32                 `yaml:"outgoing_value"`
	Extra                    map[string]interface{} `yaml:"extra"`
}

func loadScenario(path string) (*scenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading scenario")
	}
	scenario := &scenarioConfig{}
	if err := yaml.Unmarshal(data, scenario); err != nil {
		return nil, errors.Wrap(err, "parsing scenario")
	}
	if scenario.Budget == "" {
		return nil, errors.New("scenario must specify a budget")
	}
	return scenario, nil
}

func buildPlanner(scenario *scenarioConfig, logger golog.Logger) (tvplan.Planner, error) {
	env, err := boxenv.New(scenario.Bounds.Lower, scenario.Bounds.Upper, scenario.SampleSeed)
	if err != nil {
		return nil, err
	}
	for id, margin := range scenario.Margins {
		env.SetMargin(tvplan.ValueID(id), margin)
	}
	for _, obstacle := range scenario.Obstacles {
		env.AddObstacle(boxenv.Obstacle{
			Center:   obstacle.Center,
			Velocity: obstacle.Velocity,
			Radius:   obstacle.Radius,
			Padding:  obstacle.Padding,
		})
	}

	dyn, err := kinematics.NewVelocityLimited(scenario.MaxSpeed)
	if err != nil {
		return nil, err
	}

	opt := tvplan.NewBasicPlannerOptions()
	if scenario.Planner.GridResolution > 0 {
		opt.GridResolution = scenario.Planner.GridResolution
	}
	if scenario.Planner.CollisionCheckResolution > 0 {
		opt.CollisionCheckResolution = scenario.Planner.CollisionCheckResolution
	}
	opt.IncomingValue = tvplan.ValueID(scenario.Planner.IncomingValue)
	opt.OutgoingValue = tvplan.ValueID(scenario.Planner.OutgoingValue)
	opt.Extra = scenario.Planner.Extra

	switch scenario.Planner.Algorithm {
	case "", "astar":
		return tvplan.NewTimeVaryingAStar(env, dyn, logger, opt)
	case "rrt":
		return tvplan.NewTimeVaryingRRT(env, dyn, logger, opt)
	case "auto":
		astar, err := tvplan.NewTimeVaryingAStar(env, dyn, logger, opt)
		if err != nil {
			return nil, err
		}
		rrt, err := tvplan.NewTimeVaryingRRT(env, dyn, logger, opt)
		if err != nil {
			return nil, err
		}
		return tvplan.NewPlanManager(astar, rrt, logger)
	default:
		return nil, errors.Errorf("unknown planner algorithm %q", scenario.Planner.Algorithm)
	}
}
