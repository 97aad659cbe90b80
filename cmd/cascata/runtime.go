package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/tmaia/cascata/pkg/checkpoint"
	"github.com/tmaia/cascata/pkg/cmd"
	"github.com/tmaia/cascata/pkg/definition"
	"github.com/tmaia/cascata/pkg/engine"
	"github.com/tmaia/cascata/pkg/eventbus"
	"github.com/tmaia/cascata/pkg/executor"
	"github.com/tmaia/cascata/pkg/models"
	"github.com/tmaia/cascata/pkg/otelhelper"
	"github.com/tmaia/cascata/pkg/registry"
	"github.com/tmaia/cascata/pkg/store"
)

// runtimeFlags are shared by every command that builds an engine.
func runtimeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "definitions-path",
			Usage:    "Directory containing workflow definition JSON files",
			Required: true,
			Sources:  cli.EnvVars("CASCATA_DEFINITIONS_PATH"),
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
		&cli.IntFlag{
			Name:    "max-iterations",
			Usage:   "Cap on stage executions per run",
			Value:   engine.DefaultMaxIterations,
			Sources: cli.EnvVars("CASCATA_MAX_ITERATIONS"),
		},
		&cli.BoolFlag{
			Name:    "strict-edges",
			Usage:   "Fail runs whose executor routes to an undeclared next stage",
			Sources: cli.EnvVars("CASCATA_STRICT_EDGES"),
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
	}
}

type runtime struct {
	logger      *slog.Logger
	registry    *registry.DefinitionRegistry
	engine      *engine.Engine
	checkpoints checkpoint.Store
	eventBus    eventbus.EventBus
}

// newRuntime loads the definitions directory and assembles an engine from
// the command's flags.
func newRuntime(ctx context.Context, logger *slog.Logger, command *cli.Command) (*runtime, error) {
	definitions, err := definition.NewLoader(logger).LoadDir(command.String("definitions-path"))
	if err != nil {
		return nil, err
	}

	definitionRegistry := registry.NewDefinitionRegistry(logger)

	for _, def := range definitions {
		err = definitionRegistry.Register(def)
		if err != nil {
			return nil, err
		}
	}

	logger.InfoContext(ctx, "Loaded workflow definitions", "count", len(definitions))

	checkpoints, err := cmd.NewCheckpointStore(ctx, logger, command.String("checkpoints-url"))
	if err != nil {
		return nil, err
	}

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithMaxIterations(command.Int("max-iterations")),
	}

	if command.Bool("strict-edges") {
		opts = append(opts, engine.WithStrictEdges())
	}

	if checkpoints != nil {
		opts = append(opts, engine.WithCheckpointStore(checkpoints))
	}

	if eventBus != nil {
		opts = append(opts, engine.WithEventBus(eventBus))
	}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "cascata")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		opts = append(opts, engine.WithTracer(tracer))
	}

	stageExecutor := executor.NewHandlerExecutor(logger)
	stageExecutor.RegisterType(models.StageTypeDecision, executor.DataKeyDecision(command.String("decision-key")))

	workflowEngine := engine.NewEngine(
		logger,
		definitionRegistry,
		store.NewMemoryStore(logger),
		stageExecutor,
		opts...,
	)

	return &runtime{
		logger:      logger,
		registry:    definitionRegistry,
		engine:      workflowEngine,
		checkpoints: checkpoints,
		eventBus:    eventBus,
	}, nil
}

func (r *runtime) close(ctx context.Context) {
	if r.eventBus != nil {
		err := r.eventBus.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}
}

// printInstance writes the final instance state to stdout as indented JSON.
func printInstance(state *models.WorkflowInstanceState) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(state)
}

// parseInitialData decodes the --data flag.
func parseInitialData(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}

	var data map[string]any

	err := json.Unmarshal([]byte(raw), &data)
	if err != nil {
		return nil, fmt.Errorf("invalid initial data, expected a JSON object: %w", err)
	}

	return data, nil
}
