package main

import (
	"context"

	cli "github.com/urfave/cli/v3"

	"github.com/tmaia/cascata/pkg/log"
	"github.com/tmaia/cascata/pkg/models"
)

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run a workflow definition to completion",
		Flags: append(runtimeFlags(),
			&cli.StringFlag{
				Name:     "definition-id",
				Aliases:  []string{"d"},
				Usage:    "ID of the workflow definition to run",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Initial run data as a JSON object",
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("cascata").With("action", "run")

			initialData, err := parseInitialData(command.String("data"))
			if err != nil {
				return err
			}

			rt, err := newRuntime(ctx, logger, command)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			state, err := rt.engine.RunWorkflow(ctx, command.String("definition-id"), initialData)
			if err != nil {
				return err
			}

			err = printInstance(state)
			if err != nil {
				return err
			}

			if state.Status == models.InstanceStatusFailed {
				return cli.Exit("workflow run failed", 1)
			}

			return nil
		},
	}
}
