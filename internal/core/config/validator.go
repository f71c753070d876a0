package config

import (
	"fmt"
	"scopebind/internal/core/config/helpers"
	"strings"
)

// Validate runs every section check and returns all problems found.
func Validate(cfg *Config) []error {
	var errs []error
	for _, check := range []func(*Config) error{
		validateVersion,
		validatePaths,
		validateEngine,
		validateIndirection,
		validateDatabase,
		validateBatch,
		validateObservability,
		validateOutput,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validatePaths(cfg *Config) error {
	if len(cfg.Paths.Scenes) == 0 {
		return fmt.Errorf("paths.scenes must list at least one pattern")
	}
	for _, group := range [][]string{cfg.Paths.Scenes, cfg.Paths.Assets} {
		for _, pattern := range group {
			if _, err := helpers.CompilePattern(pattern); err != nil {
				return fmt.Errorf("invalid path pattern %q: %w", pattern, err)
			}
		}
	}
	for _, scene := range cfg.Paths.Scenes {
		for _, asset := range cfg.Paths.Assets {
			if helpers.PatternsOverlap(scene, asset) {
				return fmt.Errorf("paths.scenes pattern %q overlaps paths.assets pattern %q", scene, asset)
			}
		}
	}
	return nil
}

func validateEngine(cfg *Config) error {
	switch cfg.Engine.EmptyCollection {
	case "error", "allow":
		return nil
	default:
		return fmt.Errorf("engine.empty_collection must be one of: error, allow (got %q)", cfg.Engine.EmptyCollection)
	}
}

func validateIndirection(cfg *Config) error {
	if cfg.Indirection.Catalog == "" {
		return fmt.Errorf("indirection.catalog must not be empty")
	}
	if helpers.HasWildcard(cfg.Indirection.Catalog) {
		return fmt.Errorf("indirection.catalog must be a file path, got pattern %q", cfg.Indirection.Catalog)
	}
	if cfg.Indirection.AwaitTimeout < 0 {
		return fmt.Errorf("indirection.await_timeout must not be negative")
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	if cfg.DB.BusyTimeout < 0 {
		return fmt.Errorf("db.busy_timeout must not be negative")
	}
	return nil
}

func validateBatch(cfg *Config) error {
	if cfg.Batch.Rate < 0 {
		return fmt.Errorf("batch.rate must not be negative")
	}
	if cfg.Batch.Burst < 1 {
		return fmt.Errorf("batch.burst must be >= 1")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.EnableTracing && cfg.Observability.OTLPEndpoint == "" {
		return fmt.Errorf("observability.enable_tracing requires observability.otlp_endpoint")
	}
	if addr := cfg.Observability.MetricsAddr; addr != "" && !strings.Contains(addr, ":") {
		return fmt.Errorf("observability.metrics_addr must be host:port, got %q", addr)
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("output.format must be one of: text, json (got %q)", cfg.Output.Format)
	}
}
