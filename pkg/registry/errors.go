package registry

import "errors"

var (
	// ErrDuplicateDefinition indicates a definition id is already registered.
	ErrDuplicateDefinition = errors.New("definition already exists")

	// ErrNilDefinition indicates Register was called with a nil definition.
	ErrNilDefinition = errors.New("definition is nil")
)

// IsDuplicateDefinition checks if an error indicates a duplicate definition id.
func IsDuplicateDefinition(err error) bool {
	return errors.Is(err, ErrDuplicateDefinition)
}
