package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	coreapp "scopebind/internal/core/app"
	"scopebind/internal/core/app/helpers"
	"scopebind/internal/core/config"
	"scopebind/internal/core/ports"
	"scopebind/internal/data/scene"
	"scopebind/internal/demo"
	"scopebind/internal/engine/registry"
	"scopebind/internal/shared/observability"
	"scopebind/internal/shared/util"
	"scopebind/internal/ui/report"
	"strings"
	"syscall"
	"time"
)

// Options configure RunWith. Types lists the component types scene documents may
// name; nil uses the example component set.
type Options struct {
	Types    *scene.TypeRegistry
	Registry *registry.Registry
	Stdout   io.Writer
	Stderr   io.Writer
}

func Run(args []string) int {
	return RunWith(args, Options{})
}

// RunWith runs the command line. Exit codes: 0 clean, 1 failed hierarchies or
// error diagnostics, 2 usage errors.
func RunWith(args []string, o Options) int {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Types == nil {
		o.Types = demo.Types()
	}

	opts, err := parseOptions(args, o.Stderr)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Fprintf(o.Stdout, "scopebind v%s\n", versionString)
		return 0
	}

	configureLogging(o.Stderr, opts.verbose)

	if opts.initDir != "" {
		written, err := demo.WriteProject(opts.initDir, false)
		if err != nil {
			slog.Error("failed to write example project", "dir", opts.initDir, "error", err)
			return 1
		}
		for _, rel := range written {
			fmt.Fprintf(o.Stdout, "wrote %s\n", filepath.Join(opts.initDir, rel))
		}
		return 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	slog.Debug("config loaded", "path", cfgPath)

	if err := applyModeOptions(&opts, cfg); err != nil {
		fmt.Fprintln(o.Stderr, err.Error())
		return 2
	}

	base := cwd
	if cfgPath != "" {
		base = configBase(cfgPath)
	}
	paths, err := config.ResolvePaths(cfg, base)
	if err != nil {
		slog.Error("failed to resolve runtime paths", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := setupTracing(ctx, cfg)
	defer shutdownTracing()

	application, err := coreapp.New(cfg, paths, coreapp.Options{Types: o.Types, Registry: o.Registry})
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer application.Close()

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddr); addr != "" {
		server := NewObservabilityServer(addr, coreapp.NewHealthService(application))
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "addr", addr, "error", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	svc := application.ResolutionService()

	if opts.provision {
		res, err := svc.Provision(ctx)
		if err != nil {
			slog.Error("provisioning failed", "error", err)
			return 1
		}
		fmt.Fprintf(o.Stdout, "provisioned %d indirection objects, %d still pending\n", res.Provisioned, res.Remaining)
		return 0
	}

	if opts.history != "" {
		return runHistoryMode(ctx, svc, opts, cfg, o.Stdout)
	}

	req := ports.BatchRequest{Paths: opts.args}
	res, err := svc.RunBatch(ctx, req)
	if err != nil {
		slog.Error("batch failed", "error", err)
		return 1
	}

	if cfg.Indirection.Await && len(res.Pending) > 0 {
		provisioned, err := svc.AwaitProvision(ctx)
		if err != nil {
			slog.Error("waiting for provisioning failed", "error", err)
			return 1
		}
		if provisioned {
			res, err = svc.RunBatch(ctx, req)
			if err != nil {
				slog.Error("batch failed", "error", err)
				return 1
			}
		} else {
			slog.Warn("indirection objects still pending", "pending", len(res.Pending))
		}
	}

	if err := writeReport(res, cfg, paths, o.Stdout); err != nil {
		slog.Error("failed to write report", "error", err)
		return 1
	}

	return exitCode(res)
}

func exitCode(res ports.BatchResult) int {
	if res.Failed() > 0 {
		return 1
	}
	return 0
}

func writeReport(res ports.BatchResult, cfg *config.Config, paths config.ResolvedPaths, stdout io.Writer) error {
	var data []byte
	switch cfg.Output.Format {
	case "json":
		out, err := report.RenderBatchJSON(res)
		if err != nil {
			return err
		}
		data = append(out, '\n')
	default:
		data = []byte(report.RenderBatchText(res, report.TextOptions{
			Color: cfg.Output.ColorEnabled() && cfg.Output.Path == "",
			Root:  paths.ProjectRoot,
		}))
	}

	if target := helpers.ResolveOutputPath(cfg.Output.Path, paths.ProjectRoot); target != "" {
		return util.WriteFileAtomic(target, data, 0o644)
	}
	_, err := stdout.Write(data)
	return err
}

func runHistoryMode(ctx context.Context, svc ports.ResolutionService, opts cliOptions, cfg *config.Config, stdout io.Writer) int {
	since, err := parseSince(opts.since)
	if err != nil {
		slog.Error("invalid --since", "error", err)
		return 2
	}
	runs, err := svc.History(ctx, opts.history, since)
	if err != nil {
		slog.Error("failed to load history", "hierarchy", opts.history, "error", err)
		return 1
	}
	var data []byte
	if cfg.Output.Format == "json" {
		data, err = report.RenderHistoryJSON(runs)
		data = append(data, '\n')
	} else {
		data, err = report.RenderHistoryTSV(runs)
	}
	if err != nil {
		slog.Error("failed to render history", "error", err)
		return 1
	}
	_, _ = stdout.Write(data)
	return 0
}

func loadConfig(path, cwd string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	candidates, err := discoverDefaultConfig(cwd)
	if err != nil {
		return nil, "", err
	}

	for _, candidate := range candidates {
		cfg, loadErr := config.Load(candidate)
		if loadErr == nil {
			return cfg, candidate, nil
		}
		if os.IsNotExist(loadErr) {
			continue
		}
		return nil, "", loadErr
	}

	slog.Debug("no config file found, using defaults", "cwd", cwd)
	return config.DefaultConfig(), "", nil
}

func discoverDefaultConfig(cwd string) ([]string, error) {
	if strings.TrimSpace(cwd) == "" {
		return nil, fmt.Errorf("cwd must not be empty")
	}
	return []string{
		filepath.Clean(filepath.Join(cwd, "scopebind.toml")),
		filepath.Clean(filepath.Join(cwd, "data/config/scopebind.toml")),
	}, nil
}

// configBase is the directory relative project paths in the config file start
// from: the config's own directory, or the project above data/config.
func configBase(cfgPath string) string {
	dir := filepath.Dir(filepath.Clean(cfgPath))
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if filepath.Base(dir) == "config" && filepath.Base(filepath.Dir(dir)) == "data" {
		return filepath.Dir(filepath.Dir(dir))
	}
	return dir
}

func applyModeOptions(opts *cliOptions, cfg *config.Config) error {
	if opts.format != "" {
		format := strings.ToLower(strings.TrimSpace(opts.format))
		if format != "text" && format != "json" {
			return fmt.Errorf("--format must be text or json, got %q", opts.format)
		}
		cfg.Output.Format = format
	}
	if opts.outputPath != "" {
		cfg.Output.Path = opts.outputPath
	}
	if opts.awaitProvision {
		cfg.Indirection.Await = true
	}
	if opts.since != "" && opts.history == "" {
		return fmt.Errorf("--since requires --history")
	}

	if opts.provision && opts.history != "" {
		return fmt.Errorf("--provision and --history cannot be combined")
	}
	if (opts.provision || opts.history != "") && len(opts.args) > 0 {
		return fmt.Errorf("scene arguments are only valid for resolution runs")
	}
	return nil
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func setupTracing(ctx context.Context, cfg *config.Config) func() {
	if !cfg.Observability.EnableTracing {
		return func() {}
	}
	shutdown, err := observability.InitTracing(ctx, observability.TracingOptions{
		ServiceName: cfg.Observability.ServiceName,
		Endpoint:    cfg.Observability.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		return func() {}
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
}

func configureLogging(output io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
