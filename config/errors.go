package config

import "errors"

// Sentinel errors for configuration.
var (
	// ErrInvalidConfig is returned when validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrMissingEnv is returned when a ${VAR} reference names an unset variable.
	ErrMissingEnv = errors.New("config: missing environment variables")

	// ErrUnknownProvider is returned for a secretref naming an unregistered provider.
	ErrUnknownProvider = errors.New("config: unknown secret provider")

	// ErrEmptySecret is returned when a provider resolves to an empty value.
	ErrEmptySecret = errors.New("config: secret resolved to empty value")

	// ErrUnknownService is returned when converting an unconfigured service.
	ErrUnknownService = errors.New("config: unknown service")

	// ErrUnknownRegion is returned when converting an unconfigured region.
	ErrUnknownRegion = errors.New("config: unknown region")
)
