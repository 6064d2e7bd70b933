// Package config provides reusable environment variable loaders with
// validation and fail-open fallback. An invalid value never aborts startup:
// the default is applied and a warning is recorded for the caller to log.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Result holds a loaded value together with any fallback warning.
type Result[T any] struct {
	Value           T
	Warning         string
	FallbackApplied bool
}

func fallback[T any](envKey, raw string, def T, err error) Result[T] {
	return Result[T]{
		Value:           def,
		Warning:         fmt.Sprintf("invalid %s=%q: %v, falling back to default %v", envKey, raw, err, def),
		FallbackApplied: true,
	}
}

// String loads a string from the environment, applying the validator if one
// is given. Unset or empty variables yield the default without a warning.
func String(envKey, def string, validator func(string) error) Result[string] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[string]{Value: def}
	}
	if validator != nil {
		if err := validator(raw); err != nil {
			return fallback(envKey, raw, def, err)
		}
	}
	return Result[string]{Value: raw}
}

// Int loads an integer from the environment.
func Int(envKey string, def int, validator func(int) error) Result[int] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[int]{Value: def}
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback(envKey, raw, def, err)
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return fallback(envKey, raw, def, err)
		}
	}
	return Result[int]{Value: v}
}

// Bool loads a boolean from the environment. Accepts the forms understood
// by strconv.ParseBool ("true", "1", "false", "0", ...).
func Bool(envKey string, def bool) Result[bool] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[bool]{Value: def}
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback(envKey, raw, def, err)
	}
	return Result[bool]{Value: v}
}

// Duration loads a time.Duration from the environment ("30s", "5m", "1h").
func Duration(envKey string, def time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[time.Duration]{Value: def}
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback(envKey, raw, def, err)
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return fallback(envKey, raw, def, err)
		}
	}
	return Result[time.Duration]{Value: v}
}
