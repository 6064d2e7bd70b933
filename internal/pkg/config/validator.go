package config

import (
	"fmt"
	"net/url"
	"time"
)

// IntRange returns a validator that accepts integers in [min, max].
func IntRange(min, max int) func(int) error {
	return func(v int) error {
		if v < min || v > max {
			return fmt.Errorf("must be between %d and %d", min, max)
		}
		return nil
	}
}

// PositiveDuration rejects zero and negative durations.
func PositiveDuration(v time.Duration) error {
	if v <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// HTTPURL validates that the value is an absolute http(s) URL.
func HTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
