package executor

import "errors"

var (
	// ErrNoHandler indicates no handler is registered for a stage's type.
	ErrNoHandler = errors.New("no handler registered")

	// ErrNoDecisionHandler indicates a decision stage without a registered
	// handler; decision logic must always be supplied by the caller.
	ErrNoDecisionHandler = errors.New("no decision handler registered")
)
