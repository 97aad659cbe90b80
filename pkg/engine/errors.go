package engine

import "errors"

var (
	// ErrDefinitionNotFound indicates the definition id is not registered.
	// No instance is created when this is returned.
	ErrDefinitionNotFound = errors.New("definition not found")

	// ErrStageNotFound indicates the instance's current stage id is absent
	// from the owning definition. The run is failed and the error is also
	// surfaced to the caller, since it points at a malformed definition.
	ErrStageNotFound = errors.New("stage not found in definition")

	// ErrInstanceBusy indicates another stepping loop already owns the
	// instance id; only one writer per instance is allowed.
	ErrInstanceBusy = errors.New("instance is already being executed")

	// ErrInstanceNotRunnable indicates a resume was attempted against an
	// instance that already reached a terminal status.
	ErrInstanceNotRunnable = errors.New("instance is not running")

	// ErrNoCheckpointStore indicates ResumeWorkflow was called on an engine
	// constructed without a checkpoint store.
	ErrNoCheckpointStore = errors.New("no checkpoint store configured")
)

// IsDefinitionNotFound checks if an error indicates an unregistered definition.
func IsDefinitionNotFound(err error) bool {
	return errors.Is(err, ErrDefinitionNotFound)
}

// IsStageNotFound checks if an error indicates a dangling stage reference.
func IsStageNotFound(err error) bool {
	return errors.Is(err, ErrStageNotFound)
}
