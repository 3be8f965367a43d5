// Package main provides a CLI that plans trajectories for YAML-described
// scenarios.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"

	"github.com/switchback-robotics/tvplan"
)

var logger = golog.NewDevelopmentLogger("tvplan")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	app := &cli.App{
		Name:  "tvplan",
		Usage: "plan time-parameterized trajectories through moving obstacles",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "only log errors",
			},
		},
		Before: func(c *cli.Context) error {
			if !c.Bool("quiet") {
				return nil
			}
			quiet, err := zap.Config{
				Level:    zap.NewAtomicLevelAt(zap.ErrorLevel),
				Encoding: "console",
				EncoderConfig: zapcore.EncoderConfig{
					TimeKey:        "ts",
					LevelKey:       "level",
					NameKey:        "logger",
					MessageKey:     "msg",
					LineEnding:     zapcore.DefaultLineEnding,
					EncodeLevel:    zapcore.CapitalLevelEncoder,
					EncodeTime:     zapcore.ISO8601TimeEncoder,
					EncodeDuration: zapcore.StringDurationEncoder,
				},
				DisableStacktrace: true,
				OutputPaths:       []string{"stderr"},
				ErrorOutputPaths:  []string{"stderr"},
			}.Build()
			if err != nil {
				return err
			}
			logger = quiet.Sugar().Named("tvplan")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "plan a trajectory for a YAML scenario",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "scenario",
						Aliases:  []string{"s"},
						Usage:    "path to the scenario YAML file",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "write the trajectory JSON here instead of stdout",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "re-plan whenever the scenario file changes",
					},
				},
				Action: func(c *cli.Context) error {
					if c.Bool("watch") {
						return watchAndPlan(c.Context, logger, c.String("scenario"), c.String("output"))
					}
					return planOnce(c.Context, logger, c.String("scenario"), c.String("output"))
				},
			},
		},
	}
	return app.RunContext(ctx, args)
}

func planOnce(ctx context.Context, logger golog.Logger, scenarioPath, outputPath string) error {
	scenario, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}
	planner, err := buildPlanner(scenario, logger)
	if err != nil {
		return err
	}
	budget, err := time.ParseDuration(scenario.Budget)
	if err != nil {
		return errors.Wrap(err, "parsing scenario budget")
	}

	planStart := time.Now()
	traj, err := planner.Plan(ctx, scenario.Start, scenario.Stop, scenario.StartTime, budget)
	if err != nil {
		return err
	}
	logger.Infof("planned %d waypoints spanning %.3fs to %.3fs in %v",
		traj.Len(), traj.StartTime(), traj.EndTime(), time.Since(planStart))
	return writeTrajectory(traj, outputPath)
}

// watchAndPlan plans once, then replans every time the scenario file is
// rewritten, until the context ends. Planning failures are logged rather
// than fatal so an editor mid-save cannot kill the watch.
func watchAndPlan(ctx context.Context, logger golog.Logger, scenarioPath, outputPath string) error {
	if err := planOnce(ctx, logger, scenarioPath, outputPath); err != nil {
		logger.Errorw("planning failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(watcher.Close)
	if err := watcher.Add(scenarioPath); err != nil {
		return err
	}

	logger.Infof("watching %s for changes", scenarioPath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Infof("scenario changed, replanning")
			if err := planOnce(ctx, logger, scenarioPath, outputPath); err != nil {
				logger.Errorw("planning failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorw("watcher error", "error", err)
		}
	}
}

func writeTrajectory(traj *tvplan.Trajectory, outputPath string) error {
	data, err := json.MarshalIndent(traj.Waypoints(), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if outputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}
