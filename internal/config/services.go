// Package config loads and validates the application configuration: the
// service registry from a YAML file, and monitor daemon settings from the
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Service is one registered downstream service.
type Service struct {
	// Name is the logical service name used by callers ("auth-service").
	Name string `yaml:"name"`

	// BaseURL is the root URL all request paths are resolved against.
	BaseURL string `yaml:"base_url"`

	// HealthPath is the health probe path, relative to BaseURL.
	// Defaults to /health.
	HealthPath string `yaml:"health_path"`
}

// HealthURL returns the absolute URL of the service's health endpoint.
func (s Service) HealthURL() string {
	return strings.TrimSuffix(s.BaseURL, "/") + s.HealthPath
}

// BreakerSettings are the circuit tripping parameters shared by all services.
type BreakerSettings struct {
	FailureThreshold         uint32        `yaml:"failure_threshold"`
	ErrorThresholdPercentage float64       `yaml:"error_threshold_percentage"`
	MinWindowRequests        uint64        `yaml:"min_window_requests"`
	ResetTimeout             time.Duration `yaml:"reset_timeout"`
	WindowSize               time.Duration `yaml:"window_size"`
	WindowBuckets            int           `yaml:"window_buckets"`
}

// ExecutorSettings are the default retry parameters for outbound calls.
type ExecutorSettings struct {
	MaxRetries        int           `yaml:"max_retries"`
	BaseRetryDelay    time.Duration `yaml:"base_retry_delay"`
	PerAttemptTimeout time.Duration `yaml:"per_attempt_timeout"`
}

// Registry is the full service registry configuration.
type Registry struct {
	Services []Service        `yaml:"services"`
	Breaker  BreakerSettings  `yaml:"breaker"`
	Executor ExecutorSettings `yaml:"executor"`
}

// LoadRegistry reads and validates the registry YAML file.
// The path is expected to come from a trusted source (CLI flag or env var).
func LoadRegistry(path string) (*Registry, error) {
	// #nosec G304 -- path comes from a trusted source, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry config: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry config: %w", err)
	}

	if err := reg.validate(); err != nil {
		return nil, fmt.Errorf("registry config validation failed: %w", err)
	}
	reg.applyDefaults()
	return &reg, nil
}

func (r *Registry) validate() error {
	if len(r.Services) == 0 {
		return fmt.Errorf("at least one service is required")
	}
	seen := make(map[string]bool, len(r.Services))
	for i, svc := range r.Services {
		if svc.Name == "" {
			return fmt.Errorf("services[%d]: name is required", i)
		}
		if seen[svc.Name] {
			return fmt.Errorf("services[%d]: duplicate service name %q", i, svc.Name)
		}
		seen[svc.Name] = true

		u, err := url.Parse(svc.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("services[%d] (%s): base_url must be an absolute http(s) URL, got %q", i, svc.Name, svc.BaseURL)
		}
		if svc.HealthPath != "" && !strings.HasPrefix(svc.HealthPath, "/") {
			return fmt.Errorf("services[%d] (%s): health_path must start with /, got %q", i, svc.Name, svc.HealthPath)
		}
	}
	return nil
}

func (r *Registry) applyDefaults() {
	for i := range r.Services {
		if r.Services[i].HealthPath == "" {
			r.Services[i].HealthPath = "/health"
		}
	}
}
