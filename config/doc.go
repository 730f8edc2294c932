// Package config loads the layered configuration of the resilience layer.
//
// Sources are applied in order, later ones winning:
//
//  1. Built-in defaults.
//  2. A YAML file, when a path is given.
//  3. Environment variables prefixed RAILIA_.
//
// Environment names map to keys by lowercasing and dropping the prefix.
// A double underscore separates every level; without one, the first single
// underscore separates the section from the key:
//
//	RAILIA_LOG_LEVEL                          -> log.level
//	RAILIA_EXECUTOR_RETRY_COUNT               -> executor.retry_count
//	RAILIA_SERVICES__WEATHER__BASE_ADDRESS    -> services.weather.base_address
//
// Address and credential settings may reference the environment with
// ${VAR}; a missing variable is an error and $$ escapes a literal dollar.
// A value of the form secretref:<provider>:<ref> is replaced by the secret
// the provider returns. The built-in providers are "env" and "file".
package config
