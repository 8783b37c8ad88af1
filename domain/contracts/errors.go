package contracts

import "errors"

// Common errors for domain contracts
var (
	// ErrStateNotFound occurs when no value has been stored for a trigger key
	ErrStateNotFound = errors.New("trigger state not found")
)
