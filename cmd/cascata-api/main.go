package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/tmaia/cascata/pkg/cmd"
	"github.com/tmaia/cascata/pkg/definition"
	"github.com/tmaia/cascata/pkg/engine"
	"github.com/tmaia/cascata/pkg/executor"
	"github.com/tmaia/cascata/pkg/log"
	"github.com/tmaia/cascata/pkg/models"
	"github.com/tmaia/cascata/pkg/otelhelper"
	"github.com/tmaia/cascata/pkg/registry"
	"github.com/tmaia/cascata/pkg/store"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "cascata-api",
		Usage:                 "Serve workflow definitions and runs over REST",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "definitions-path",
				Usage:   "Directory of workflow definition JSON files to preload",
				Sources: cli.EnvVars("CASCATA_DEFINITIONS_PATH"),
			},
			&cli.StringFlag{
				Name:    "checkpoints-url",
				Usage:   "Checkpoint store URL (file://path, redis://..., postgres://...)",
				Sources: cli.EnvVars("CASCATA_CHECKPOINTS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka); empty disables publishing",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "decision-key",
				Usage:   "Data key whose string value names the next stage for decision stages",
				Value:   "next_stage",
				Sources: cli.EnvVars("CASCATA_DECISION_KEY"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for runs and stage executions",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing Cascata API")

			definitionRegistry := registry.NewDefinitionRegistry(logger)

			if path := command.String("definitions-path"); path != "" {
				definitions, err := definition.NewLoader(logger).LoadDir(path)
				if err != nil {
					return err
				}

				for _, def := range definitions {
					err = definitionRegistry.Register(def)
					if err != nil {
						return err
					}
				}

				logger.InfoContext(ctx, "Preloaded workflow definitions", "count", len(definitions))
			}

			checkpoints, err := cmd.NewCheckpointStore(ctx, logger, command.String("checkpoints-url"))
			if err != nil {
				return err
			}

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
			if err != nil {
				return err
			}

			if eventBus != nil {
				defer func() {
					err := eventBus.Close()
					if err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			opts := []engine.Option{}

			if checkpoints != nil {
				opts = append(opts, engine.WithCheckpointStore(checkpoints))
			}

			if eventBus != nil {
				opts = append(opts, engine.WithEventBus(eventBus))
			}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "cascata-api")
				if err != nil {
					return err
				}

				opts = append(opts, engine.WithTracer(tracer))
			}

			stageExecutor := executor.NewHandlerExecutor(logger)
			stageExecutor.RegisterType(models.StageTypeDecision,
				executor.DataKeyDecision(command.String("decision-key")))

			instances := store.NewMemoryStore(logger)
			workflowEngine := engine.NewEngine(
				logger,
				definitionRegistry,
				instances,
				stageExecutor,
				opts...,
			)

			api := NewAPI(logger, definitionRegistry, workflowEngine, instances)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
