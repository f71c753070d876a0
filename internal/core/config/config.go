package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Engine        Engine        `toml:"engine"`
	Indirection   Indirection   `toml:"indirection"`
	DB            Database      `toml:"db"`
	Batch         Batch         `toml:"batch"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
	Output        Output        `toml:"output"`
}

// Paths are resolved against ProjectRoot; Scenes and Assets are glob patterns.
type Paths struct {
	ProjectRoot string   `toml:"project_root"`
	Scenes      []string `toml:"scenes"`
	Assets      []string `toml:"assets"`
	StateDir    string   `toml:"state_dir"`
	DatabaseDir string   `toml:"database_dir"`
}

type Engine struct {
	Isolation       *bool  `toml:"isolation"`
	EmptyCollection string `toml:"empty_collection"`
	ReportUnused    *bool  `toml:"report_unused"`
}

type Indirection struct {
	Catalog      string        `toml:"catalog"`
	Await        bool          `toml:"await"`
	AwaitTimeout time.Duration `toml:"await_timeout"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

// Batch throttles hierarchy runs. A zero Rate disables throttling.
type Batch struct {
	Rate     float64 `toml:"rate"`
	Burst    int     `toml:"burst"`
	FailFast bool    `toml:"fail_fast"`
}

// Watch tunes the catalog watcher used while awaiting provisioning.
type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	MetricsAddr   string `toml:"metrics_addr"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	ServiceName   string `toml:"service_name"`
}

type Output struct {
	Format string `toml:"format"`
	Color  *bool  `toml:"color"`
	// Path writes the report to a file instead of stdout.
	Path string `toml:"path"`
}

func (e Engine) IsolationEnabled() bool {
	return e.Isolation == nil || *e.Isolation
}

func (e Engine) ReportUnusedEnabled() bool {
	return e.ReportUnused == nil || *e.ReportUnused
}

func (o Output) ColorEnabled() bool {
	return o.Color == nil || *o.Color
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}
