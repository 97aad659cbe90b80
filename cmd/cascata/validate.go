package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/tmaia/cascata/pkg/definition"
	"github.com/tmaia/cascata/pkg/log"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate workflow definition files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "definitions-path",
				Usage:    "Directory containing workflow definition JSON files",
				Required: true,
				Sources:  cli.EnvVars("CASCATA_DEFINITIONS_PATH"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("cascata").With("action", "validate")

			definitions, err := definition.NewLoader(logger).LoadDir(command.String("definitions-path"))
			if err != nil {
				return err
			}

			for _, def := range definitions {
				fmt.Printf("%s\t%s\t%d stages\n", def.ID, def.Name, len(def.Stages))
			}

			logger.InfoContext(ctx, "All definitions are valid", "count", len(definitions))

			return nil
		},
	}
}
