package engine

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/tmaia/cascata/pkg/checkpoint"
	"github.com/tmaia/cascata/pkg/eventbus"
)

// DefaultMaxIterations caps the number of stage executions per run. It
// guards against cycles in declared edges and against executors that keep
// returning the same successor.
const DefaultMaxIterations = 100

// Option configures an Engine.
type Option func(*Engine)

// WithMaxIterations overrides the per-run iteration cap.
func WithMaxIterations(maxIterations int) Option {
	return func(e *Engine) {
		if maxIterations > 0 {
			e.maxIterations = maxIterations
		}
	}
}

// WithStrictEdges makes the engine reject a NextStageID that is not among
// the executed stage's declared NextStages. The instance fails with a
// descriptive history entry. The default is permissive: executors may route
// anywhere, and typos only surface as a stage-not-found at runtime.
func WithStrictEdges() Option {
	return func(e *Engine) {
		e.strictEdges = true
	}
}

// WithCheckpointStore enables checkpointing: the engine saves the instance
// state after every applied step and on terminal transitions, and resumes
// from the store in ResumeWorkflow.
func WithCheckpointStore(store checkpoint.Store) Option {
	return func(e *Engine) {
		e.checkpoints = store
	}
}

// WithEventBus makes the engine publish run lifecycle events. Publishing is
// best effort; a publish failure never affects the run.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(e *Engine) {
		e.eventBus = bus
	}
}

// WithTracer enables a span per run and per stage execution.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}
