package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/tmaia/cascata/pkg/log"
	"github.com/tmaia/cascata/pkg/models"
	"github.com/tmaia/cascata/pkg/schedule"
)

func NewScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:    "schedule",
		Aliases: []string{"s"},
		Usage:   "Run a workflow definition on a cron schedule",
		Flags: append(runtimeFlags(),
			&cli.StringFlag{
				Name:     "definition-id",
				Aliases:  []string{"d"},
				Usage:    "ID of the workflow definition to run",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "cron",
				Usage:    "Cron expression (e.g. '*/5 * * * *')",
				Required: true,
				Sources:  cli.EnvVars("CASCATA_CRON"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("cascata").With("action", "schedule")

			rt, err := newRuntime(ctx, logger, command)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			definitionID := command.String("definition-id")

			scheduler, err := schedule.NewScheduler(definitionID, command.String("cron"), logger)
			if err != nil {
				return err
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			err = scheduler.Start(runCtx, func(ctx context.Context, initialData map[string]any) error {
				state, err := rt.engine.RunWorkflow(ctx, definitionID, initialData)
				if err != nil {
					return err
				}

				if state.Status == models.InstanceStatusFailed {
					logger.WarnContext(ctx, "Scheduled run failed",
						"instance_id", state.InstanceID,
						"stages_executed", len(state.History))
				}

				return nil
			})
			if err != nil {
				return err
			}

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

			sig := <-signals
			logger.InfoContext(ctx, "Received signal, shutting down", "signal", sig)

			return scheduler.Stop(ctx)
		},
	}
}
