package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cojourney/cjagent/internal/config"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/provider"
)

type stubClient struct{}

func (stubClient) Chat(_ context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if strings.HasPrefix(req.Messages[0].Content, "TASK: Describe") {
		return &provider.ChatResponse{Content: `{"user": "Ada", "description": "Ada plays chess."}`}, nil
	}
	return &provider.ChatResponse{Content: `{"user": "CJ", "content": "Hi Ada!", "action": "WAIT"}`}, nil
}

func (stubClient) DefaultModel() string { return "stub" }

func (stubClient) Embed(context.Context, *provider.EmbeddingRequest) (*provider.EmbeddingResponse, error) {
	return &provider.EmbeddingResponse{Vector: []float32{1, 0, 0}}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Paths.StorePath = filepath.Join(t.TempDir(), "nested", "cjagent.db")
	cfg.Agent.Workers = 1
	return cfg
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newLogHandler(&buf, config.LogConfig{Level: "info", Format: "json"})).Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON log line, got %q", buf.String())
	}

	buf.Reset()
	slog.New(newLogHandler(&buf, config.LogConfig{Level: "warn"})).Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestStorePathCreatesDirectory(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "db.sqlite")
	got, err := storePath(p)
	if err != nil {
		t.Fatalf("storePath: %v", err)
	}
	if got != p {
		t.Fatalf("storePath = %q, want %q", got, p)
	}
	if _, err := os.Stat(filepath.Dir(p)); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if got, _ := storePath(":memory:"); got != ":memory:" {
		t.Fatalf("in-memory path rewritten to %q", got)
	}
}

func TestAppHandlesMessageAndReset(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(testConfig(t), stubClient{})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	out, err := a.runtime.Receive(ctx, &memory.Message{UserID: "ada", RoomID: "r1", Content: memory.Content{Text: "hello"}})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if out.Content.Text != "Hi Ada!" {
		t.Fatalf("reply = %q", out.Content.Text)
	}

	descs, err := a.runtime.Descriptions().GetMemories(ctx, memory.Query{UserID: "ada"})
	if err != nil {
		t.Fatalf("GetMemories: %v", err)
	}
	if len(descs) != 1 || len(descs[0].Embedding) != 3 {
		t.Fatalf("expected one embedded description, got %+v", descs)
	}

	if err := resetUsers(ctx, a, []string{"ada"}); err != nil {
		t.Fatalf("resetUsers: %v", err)
	}
	msgs, err := a.runtime.Messages().GetMemories(ctx, memory.Query{RoomID: "r1"})
	if err != nil {
		t.Fatalf("GetMemories: %v", err)
	}
	if len(msgs) != 1 || msgs[0].UserID != a.cfg.Agent.ID {
		t.Fatalf("only the agent's reply should remain, got %+v", msgs)
	}
	descs, _ = a.runtime.Descriptions().GetMemories(ctx, memory.Query{UserID: "ada"})
	if len(descs) != 0 {
		t.Fatalf("descriptions not removed: %+v", descs)
	}
}

func TestAppLoadsOverrideFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "actions.yaml")
	if err := os.WriteFile(path, []byte("actions:\n  WAIT:\n    description: Hold on\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.Agent.ActionOverridesPath = path

	a, err := newApp(cfg, stubClient{})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	wait, ok := a.runtime.Registry().Get("WAIT")
	if !ok || wait.Description != "Hold on" {
		t.Fatalf("WAIT override not applied: %+v", wait)
	}
	elaborate, _ := a.runtime.Registry().Get("ELABORATE")
	if !strings.HasPrefix(elaborate.Description, "ONLY") {
		t.Fatalf("deployment override for ELABORATE missing: %q", elaborate.Description)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	if !strings.Contains(buf.String(), "Version: "+version) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestDoctorReportsMissingKeyAndUnverifiedAuth(t *testing.T) {
	t.Setenv("CJAGENT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	cfg := config.DefaultConfig()
	cfg.Paths.StorePath = ":memory:"
	cfg.Providers.OpenAI.APIKey = ""

	checks := runDoctor(context.Background(), cfg, time.Second)
	byName := map[string]doctorCheck{}
	for _, c := range checks {
		byName[c.Name] = c
	}
	if byName["config_file"].Status != checkWarn {
		t.Fatalf("config_file = %+v", byName["config_file"])
	}
	if byName["store"].Status != checkPass {
		t.Fatalf("store = %+v", byName["store"])
	}
	if byName["provider"].Status != checkFail {
		t.Fatalf("provider = %+v", byName["provider"])
	}
	if byName["gateway_auth"].Status != checkWarn {
		t.Fatalf("gateway_auth = %+v", byName["gateway_auth"])
	}
	if byName["audit_kafka"].Message != "disabled" {
		t.Fatalf("audit_kafka = %+v", byName["audit_kafka"])
	}

	var buf bytes.Buffer
	err := printChecks(&buf, checks)
	if err == nil || !strings.Contains(err.Error(), "1 failing") {
		t.Fatalf("printChecks err = %v", err)
	}
	if !strings.Contains(buf.String(), "[FAIL] provider:") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}
