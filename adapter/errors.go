package adapter

import (
	"errors"
	"fmt"
)

// Sentinel errors for service adapters.
var (
	// ErrNilExecutor is returned when a service is built without an executor.
	ErrNilExecutor = errors.New("adapter: executor is nil")

	// ErrEmptyName is returned when a service has no name.
	ErrEmptyName = errors.New("adapter: service name is empty")

	// ErrUnknownService is returned by Registry.Get for unregistered names.
	ErrUnknownService = errors.New("adapter: unknown service")

	// ErrDuplicateService is returned when a name is registered twice.
	ErrDuplicateService = errors.New("adapter: service already registered")

	// ErrStatus is matched by every *StatusError.
	ErrStatus = errors.New("adapter: unexpected response status")

	// ErrDecode is returned when a response body is not valid JSON for the target type.
	ErrDecode = errors.New("adapter: decode response")
)

// StatusError reports a response with status 400 or above.
type StatusError struct {
	Service string
	Verb    string
	Address string
	Code    int

	// Body holds at most the first 512 bytes of the response.
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("adapter: %s %s %s: status %d", e.Service, e.Verb, e.Address, e.Code)
}

// Is matches ErrStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}
