package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/tmaia/cascata/pkg/log"
)

func main() {
	cmd := &cli.Command{
		Name:                  "cascata",
		Usage:                 "Run and manage workflow definitions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			NewValidateCommand(),
			NewRunCommand(),
			NewResumeCommand(),
			NewScheduleCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
