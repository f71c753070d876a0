package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	coreapp "scopebind/internal/core/app"
	"scopebind/internal/core/config"
	"scopebind/internal/demo"
	"scopebind/internal/engine/registry"
	"strings"
	"testing"
	"time"
)

func TestParseOptions(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseOptions([]string{"--format", "json", "--await-provision", "scenes/a.toml"}, &stderr)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if opts.format != "json" || !opts.awaitProvision || len(opts.args) != 1 {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if _, err := parseOptions([]string{"--nope"}, &stderr); err == nil {
		t.Fatal("expected unknown flag to fail")
	}
}

func TestApplyModeOptions(t *testing.T) {
	cases := []struct {
		name    string
		opts    cliOptions
		wantErr string
	}{
		{name: "BadFormat", opts: cliOptions{format: "yaml"}, wantErr: "--format must be text or json"},
		{name: "SinceNeedsHistory", opts: cliOptions{since: "2026-01-01"}, wantErr: "requires --history"},
		{name: "ProvisionAndHistory", opts: cliOptions{provision: true, history: "arena"}, wantErr: "cannot be combined"},
		{name: "ProvisionWithScenes", opts: cliOptions{provision: true, args: []string{"a.toml"}}, wantErr: "only valid for resolution runs"},
		{name: "HistoryWithScenes", opts: cliOptions{history: "arena", args: []string{"a.toml"}}, wantErr: "only valid for resolution runs"},
		{name: "Valid", opts: cliOptions{format: "JSON", args: []string{"a.toml"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			err := applyModeOptions(&tc.opts, cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestApplyModeOptions_Overrides(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := cliOptions{format: "json", outputPath: "out/report.json", awaitProvision: true}
	if err := applyModeOptions(&opts, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Format != "json" || cfg.Output.Path != "out/report.json" || !cfg.Indirection.Await {
		t.Fatalf("overrides not applied: %+v %+v", cfg.Output, cfg.Indirection)
	}
}

func TestParseSince(t *testing.T) {
	got, err := parseSince("2026-03-04")
	if err != nil || !got.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date parse: %v %v", got, err)
	}
	if got, err := parseSince(""); err != nil || !got.IsZero() {
		t.Fatalf("expected zero time, got %v %v", got, err)
	}
	if _, err := parseSince("yesterday"); err == nil {
		t.Fatal("expected invalid since to fail")
	}
}

func TestLoadConfig_DiscoversDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, path, err := loadConfig("", dir)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if path != "" || cfg.Output.Format != "text" {
		t.Fatalf("expected defaults, got path=%q format=%q", path, cfg.Output.Format)
	}

	cfgDir := filepath.Join(dir, "data", "config")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "scopebind.toml"), []byte("version = 1\n[output]\nformat = \"json\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, path, err = loadConfig("", dir)
	if err != nil {
		t.Fatalf("load discovered: %v", err)
	}
	if path != filepath.Join(cfgDir, "scopebind.toml") || cfg.Output.Format != "json" {
		t.Fatalf("unexpected discovery: path=%q format=%q", path, cfg.Output.Format)
	}
	if got := configBase(path); got != dir {
		t.Fatalf("expected project base %q, got %q", dir, got)
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := RunWith(args, Options{Registry: registry.New(), Stdout: &stdout, Stderr: &stderr})
	return code, stdout.String(), stderr.String()
}

func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	code, out, errOut := runCLI(t, "--init", dir)
	if code != 0 {
		t.Fatalf("init failed with %d: %s", code, errOut)
	}
	if !strings.Contains(out, "wrote ") || !strings.Contains(out, "scopebind.toml") {
		t.Fatalf("expected written files listed, got %q", out)
	}
	return dir
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	if code != 0 || !strings.HasPrefix(out, "scopebind v") {
		t.Fatalf("unexpected version output %d %q", code, out)
	}
}

func TestRun_UsageError(t *testing.T) {
	if code, _, _ := runCLI(t, "--format"); code != 2 {
		t.Fatalf("expected usage exit code, got %d", code)
	}
}

func TestRun_DemoProjectJSON(t *testing.T) {
	dir := initProject(t)
	cfgPath := filepath.Join(dir, "scopebind.toml")

	code, out, errOut := runCLI(t, "--config", cfgPath, "--format", "json")
	if code != 0 {
		t.Fatalf("expected clean run, got %d\nstdout: %s\nstderr: %s", code, out, errOut)
	}
	var decoded struct {
		Failed      int `json:"failed"`
		Hierarchies []struct {
			Name string `json:"name"`
		} `json:"hierarchies"`
		Pending []struct {
			ProxyName string `json:"proxy"`
		} `json:"pending"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if decoded.Failed != 0 || len(decoded.Hierarchies) != 2 {
		t.Fatalf("unexpected report: %+v", decoded)
	}
	if len(decoded.Pending) != 1 || decoded.Pending[0].ProxyName != "MixerProxy" {
		t.Fatalf("expected pending MixerProxy, got %+v", decoded.Pending)
	}

	code, out, _ = runCLI(t, "--config", cfgPath, "--provision")
	if code != 0 || !strings.Contains(out, "provisioned 1 indirection objects, 0 still pending") {
		t.Fatalf("unexpected provision output %d %q", code, out)
	}

	code, out, _ = runCLI(t, "--config", cfgPath, "--history", "arena")
	if code != 0 {
		t.Fatalf("history failed with %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "\tarena\t") {
		t.Fatalf("expected one recorded arena run, got:\n%s", out)
	}
}

func TestRun_TextReportToFile(t *testing.T) {
	dir := initProject(t)
	arena := filepath.Join(dir, "scenes", "arena.toml")

	code, out, errOut := runCLI(t, "--config", filepath.Join(dir, "scopebind.toml"), "--output", "reports/run.txt", arena)
	if code != 0 {
		t.Fatalf("expected clean run, got %d: %s", code, errOut)
	}
	if out != "" {
		t.Fatalf("expected report in file, stdout got %q", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "reports", "run.txt"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "scopebind: 1 hierarchies, 0 failed") {
		t.Fatalf("unexpected report:\n%s", data)
	}
}

func TestRun_FailingSceneExitsNonZero(t *testing.T) {
	dir := initProject(t)
	broken := filepath.Join(dir, "scenes", "broken.toml")
	if err := os.WriteFile(broken, []byte(`
name = "broken"
[[objects]]
name = "Root"
  [[objects.components]]
  type = "demo.Player"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, _ := runCLI(t, "--config", filepath.Join(dir, "scopebind.toml"), broken)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d\n%s", code, out)
	}
	if !strings.Contains(out, "MissingBinding") {
		t.Fatalf("expected a missing diagnostic:\n%s", out)
	}
}

func TestObservabilityServer(t *testing.T) {
	dir := t.TempDir()
	if _, err := demo.WriteProject(dir, true); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(filepath.Join(dir, "scopebind.toml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Paths.ProjectRoot = dir
	cfg.DB.Enabled = false
	paths, err := config.ResolvePaths(cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	application, err := coreapp.New(cfg, paths, coreapp.Options{Types: demo.Types(), Registry: registry.New()})
	if err != nil {
		t.Fatal(err)
	}
	defer application.Close()

	server := NewObservabilityServer("127.0.0.1:0", coreapp.NewHealthService(application))
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer server.Stop(context.Background())

	base := "http://" + server.Addr()
	resp, err := http.Get(base + "/health/components")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	var status coreapp.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.StatusCode != http.StatusOK || status.Status != "up" {
		t.Fatalf("unexpected health %d %+v", resp.StatusCode, status)
	}
	if resp.Header.Get("X-Scopebind-Health") != "up" {
		t.Fatalf("expected health header, got %q", resp.Header.Get("X-Scopebind-Health"))
	}
	if _, ok := status.Components["global_registry"]; !ok {
		t.Fatalf("expected registry component, got %v", status.Components)
	}

	live, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("liveness request: %v", err)
	}
	word, _ := io.ReadAll(live.Body)
	live.Body.Close()
	if live.StatusCode != http.StatusOK || strings.TrimSpace(string(word)) != "up" {
		t.Fatalf("unexpected liveness %d %q", live.StatusCode, word)
	}

	post, err := http.Post(base+"/healthz", "text/plain", nil)
	if err != nil {
		t.Fatalf("post request: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", post.StatusCode)
	}

	metrics, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer metrics.Body.Close()
	body, _ := io.ReadAll(metrics.Body)
	if !strings.Contains(string(body), "scopebind_watcher_events_total") {
		t.Fatal("expected scopebind collectors in metrics output")
	}
}
