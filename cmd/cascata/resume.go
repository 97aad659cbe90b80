package main

import (
	"context"

	cli "github.com/urfave/cli/v3"

	"github.com/tmaia/cascata/pkg/log"
	"github.com/tmaia/cascata/pkg/models"
)

func NewResumeCommand() *cli.Command {
	return &cli.Command{
		Name:  "resume",
		Usage: "Resume a checkpointed workflow instance",
		Flags: append(runtimeFlags(),
			&cli.StringFlag{
				Name:     "instance-id",
				Aliases:  []string{"i"},
				Usage:    "ID of the instance to resume",
				Required: true,
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("cascata").With("action", "resume")

			rt, err := newRuntime(ctx, logger, command)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			state, err := rt.engine.ResumeWorkflow(ctx, command.String("instance-id"))
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
