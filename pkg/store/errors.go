package store

import "errors"

var (
	// ErrInstanceNotFound indicates no instance exists for the given id.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrInstanceAlreadyExists indicates an instance id collision on Put.
	ErrInstanceAlreadyExists = errors.New("instance already exists")

	// ErrNilDefinition indicates Create was called without a definition.
	ErrNilDefinition = errors.New("definition is nil")

	// ErrNilInstance indicates Put was called without a usable instance.
	ErrNilInstance = errors.New("instance is nil or missing an id")
)

// IsInstanceNotFound checks if an error indicates a missing instance.
func IsInstanceNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}
