package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: SCOPEBIND_[SECTION]_[KEY] (e.g., SCOPEBIND_ENGINE_ISOLATION).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "SCOPEBIND_PATHS_PROJECT_ROOT")
	setEnvList(&cfg.Paths.Scenes, "SCOPEBIND_PATHS_SCENES")
	setEnvList(&cfg.Paths.Assets, "SCOPEBIND_PATHS_ASSETS")
	setEnvString(&cfg.Paths.StateDir, "SCOPEBIND_PATHS_STATE_DIR")
	setEnvString(&cfg.Paths.DatabaseDir, "SCOPEBIND_PATHS_DATABASE_DIR")

	// Engine
	setEnvBoolPtr(&cfg.Engine.Isolation, "SCOPEBIND_ENGINE_ISOLATION")
	setEnvString(&cfg.Engine.EmptyCollection, "SCOPEBIND_ENGINE_EMPTY_COLLECTION")
	setEnvBoolPtr(&cfg.Engine.ReportUnused, "SCOPEBIND_ENGINE_REPORT_UNUSED")

	// Indirection
	setEnvString(&cfg.Indirection.Catalog, "SCOPEBIND_INDIRECTION_CATALOG")
	setEnvBool(&cfg.Indirection.Await, "SCOPEBIND_INDIRECTION_AWAIT")
	setEnvDuration(&cfg.Indirection.AwaitTimeout, "SCOPEBIND_INDIRECTION_AWAIT_TIMEOUT")

	// Database
	setEnvBool(&cfg.DB.Enabled, "SCOPEBIND_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "SCOPEBIND_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "SCOPEBIND_DB_BUSY_TIMEOUT")

	// Batch
	setEnvFloat64(&cfg.Batch.Rate, "SCOPEBIND_BATCH_RATE")
	setEnvInt(&cfg.Batch.Burst, "SCOPEBIND_BATCH_BURST")
	setEnvBool(&cfg.Batch.FailFast, "SCOPEBIND_BATCH_FAIL_FAST")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "SCOPEBIND_WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "SCOPEBIND_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "SCOPEBIND_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "SCOPEBIND_OBSERVABILITY_ENABLE_TRACING")
	setEnvString(&cfg.Observability.ServiceName, "SCOPEBIND_OBSERVABILITY_SERVICE_NAME")

	// Output
	setEnvString(&cfg.Output.Format, "SCOPEBIND_OUTPUT_FORMAT")
	setEnvBoolPtr(&cfg.Output.Color, "SCOPEBIND_OUTPUT_COLOR")
	setEnvString(&cfg.Output.Path, "SCOPEBIND_OUTPUT_PATH")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

// setEnvList splits a comma separated value.
func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = strings.Split(val, ",")
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
