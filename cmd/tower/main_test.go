package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/signaltower/internal/channels"
	"github.com/vango-dev/signaltower/internal/config"
	"github.com/vango-dev/signaltower/pkg/snapshot"
	"github.com/vango-dev/signaltower/pkg/tower"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startProcess(t *testing.T) (*process, string) {
	t.Helper()
	proc, err := newProcess(config.New(), discardLogger(), noop.NewTracerProvider())
	if err != nil {
		t.Fatalf("newProcess error: %v", err)
	}
	ts := httptest.NewServer(proc.server.Handler())
	t.Cleanup(ts.Close)
	return proc, ts.URL
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetIn(strings.NewReader(""))
	err := root.Execute()
	return buf.String(), err
}

func TestNewProcessDeclaresChannels(t *testing.T) {
	cfg := config.New()
	cfg.Channels = map[string]int{"deploys": 1}

	proc, err := newProcess(cfg, discardLogger(), noop.NewTracerProvider())
	if err != nil {
		t.Fatalf("newProcess error: %v", err)
	}

	names := make([]string, 0)
	for _, info := range proc.registry.Channels() {
		names = append(names, info.Name)
	}
	want := "appDataReceived,deploys,terminalMsgReceived,windowFocusChanged"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("channels = %s, want %s", got, want)
	}
	if proc.gatherer == nil {
		t.Error("metrics are enabled by default")
	}
}

func TestNewProcessMetrics(t *testing.T) {
	proc, err := newProcess(config.New(), discardLogger(), noop.NewTracerProvider())
	if err != nil {
		t.Fatal(err)
	}
	channels.WindowFocusChanged.Must(proc.registry).Dispatch(true)

	families, err := proc.gatherer.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "tower_dispatches_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected tower_dispatches_total to be gathered")
	}
}

func TestNewProcessMetricsDisabled(t *testing.T) {
	cfg := config.New()
	cfg.Metrics.Enabled = false
	proc, err := newProcess(cfg, discardLogger(), noop.NewTracerProvider())
	if err != nil {
		t.Fatal(err)
	}
	if proc.gatherer != nil {
		t.Error("expected no gatherer with metrics disabled")
	}
}

func TestNewProcessTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	cfg := config.New()
	cfg.Metrics.Enabled = false
	cfg.Tracing.Enabled = true
	proc, err := newProcess(cfg, discardLogger(), tp)
	if err != nil {
		t.Fatal(err)
	}

	channels.TerminalMsgReceived.Must(proc.registry).Dispatch("ls")

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "tower.dispatch terminalMsgReceived" {
		t.Errorf("unexpected spans: %v", spans)
	}
}

func TestNewProcessRejectsReservedChannel(t *testing.T) {
	cfg := config.New()
	cfg.Channels = map[string]int{"getOrCreate": 1}
	if _, err := newProcess(cfg, discardLogger(), noop.NewTracerProvider()); err == nil {
		t.Error("expected reserved channel name to fail")
	}
}

func TestPublishAppData(t *testing.T) {
	proc, _ := startProcess(t)

	proc.publishAppData(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	if _, ok := channels.AppDataReceived.Must(proc.registry).Latest(); ok {
		t.Fatal("missing app data must not dispatch")
	}

	path := filepath.Join(t.TempDir(), "app_data.json")
	if err := os.WriteFile(path, []byte(`{"title":"VibeShare"}`), 0644); err != nil {
		t.Fatal(err)
	}
	proc.publishAppData(context.Background(), path)

	doc, ok := channels.AppDataReceived.Must(proc.registry).Latest()
	if !ok || doc["title"] != "VibeShare" {
		t.Errorf("unexpected app data %v (ok=%v)", doc, ok)
	}
}

func TestPublishAppDataFromURL(t *testing.T) {
	proc, _ := startProcess(t)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/app_data.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Remote"}`))
	}))
	defer origin.Close()

	cfg, err := config.LoadFile(writeTowerJSON(t, `{"appData":"`+origin.URL+`/app_data.json"}`))
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	proc.publishAppData(context.Background(), cfg.AppDataPath())

	doc, ok := channels.AppDataReceived.Must(proc.registry).Latest()
	if !ok || doc["title"] != "Remote" {
		t.Errorf("unexpected app data %v (ok=%v)", doc, ok)
	}
}

func writeTowerJSON(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestChannelsCommand(t *testing.T) {
	_, url := startProcess(t)

	out, err := runCmd(t, "channels", "--server", url)
	if err != nil {
		t.Fatalf("channels error: %v", err)
	}
	for _, want := range []string{"NAME", "appDataReceived", "terminalMsgReceived", "windowFocusChanged"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = runCmd(t, "channels", "--server", url, "--json")
	if err != nil {
		t.Fatalf("channels --json error: %v", err)
	}
	var infos []tower.ChannelInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(infos) != 3 {
		t.Errorf("expected 3 channels, got %d", len(infos))
	}
}

func TestDispatchCommand(t *testing.T) {
	proc, url := startProcess(t)

	out, err := runCmd(t, "dispatch", "terminalMsgReceived", `"hello"`, "--server", url)
	if err != nil {
		t.Fatalf("dispatch error: %v", err)
	}
	if !strings.Contains(out, "Dispatched on terminalMsgReceived") {
		t.Errorf("unexpected output: %s", out)
	}
	if latest, _ := channels.TerminalMsgReceived.Must(proc.registry).Latest(); latest != "hello" {
		t.Errorf("latest = %q, want %q", latest, "hello")
	}

	out, err = runCmd(t, "channels", "terminalMsgReceived", "--server", url)
	if err != nil {
		t.Fatalf("channels <name> error: %v", err)
	}
	var cs snapshot.ChannelSnapshot
	if err := json.Unmarshal([]byte(out), &cs); err != nil {
		t.Fatal(err)
	}
	if string(cs.Latest) != `"hello"` {
		t.Errorf("latest = %s", cs.Latest)
	}
}

func TestDispatchCommandErrors(t *testing.T) {
	_, url := startProcess(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"invalid json", []string{"dispatch", "terminalMsgReceived", "hello"}, "T010"},
		{"wrong type", []string{"dispatch", "windowFocusChanged", `"yes"`}, "T010"},
		{"unknown channel", []string{"dispatch", "nope", "1"}, "T005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, append(tt.args, "--server", url)...)
			if err == nil || !strings.Contains(err.Error(), tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestLogLevelCommand(t *testing.T) {
	proc, url := startProcess(t)
	msg := channels.TerminalMsgReceived.Must(proc.registry)

	if _, err := runCmd(t, "log-level", "0", "--server", url); err != nil {
		t.Fatalf("log-level error: %v", err)
	}
	if msg.LogLevel() != tower.LevelSilent {
		t.Errorf("expected silent, got %d", msg.LogLevel())
	}

	out, err := runCmd(t, "log-level", "reset", "--server", url)
	if err != nil {
		t.Fatalf("log-level reset error: %v", err)
	}
	if msg.LogLevel() != tower.LevelPayload {
		t.Errorf("expected reset to payload, got %d", msg.LogLevel())
	}
	if !strings.Contains(out, "reset applied to 3 channels") {
		t.Errorf("unexpected output: %s", out)
	}

	if _, err := runCmd(t, "log-level", "dispatch", "--server", url); err != nil {
		t.Fatal(err)
	}
	if msg.LogLevel() != tower.LevelDispatch {
		t.Fatalf("expected dispatch, got %d", msg.LogLevel())
	}
	if _, err := runCmd(t, "log-level", "--server", url, "--", "-1"); err != nil {
		t.Fatalf("log-level -- -1 error: %v", err)
	}
	if msg.LogLevel() != tower.LevelPayload {
		t.Errorf("expected -1 to reset to payload, got %d", msg.LogLevel())
	}

	for _, bad := range []string{"loud", "-5"} {
		if _, err := runCmd(t, "log-level", "--server", url, "--", bad); err == nil || !strings.Contains(err.Error(), "T006") {
			t.Errorf("log-level %s: expected T006, got %v", bad, err)
		}
	}
}

func TestSnapshotCommand(t *testing.T) {
	_, url := startProcess(t)

	out, err := runCmd(t, "snapshot", "--server", url)
	if err != nil {
		t.Fatalf("snapshot error: %v", err)
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("invalid snapshot output: %v", err)
	}
	if len(snap.Channels) != 3 {
		t.Errorf("expected 3 channels, got %d", len(snap.Channels))
	}

	if _, err := runCmd(t, "snapshot", "--archive", "--server", url); err == nil || !strings.Contains(err.Error(), "T151") {
		t.Errorf("expected T151 without a bucket, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q, want %q", out, version)
	}
}

func TestRunServeStopsOnCancel(t *testing.T) {
	cfg := config.New()
	cfg.Server.Port = 0
	cfg.Logging.Level = "off"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- runServe(ctx, cfg, io.Discard) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not return")
	}
}
