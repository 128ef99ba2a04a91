package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidscribe/internal/api"
	"vidscribe/internal/config"
	"vidscribe/internal/pipeline"
	"vidscribe/internal/testsupport"
	"vidscribe/internal/transcript"
)

type transcriberStub struct {
	result   transcript.Result
	err      error
	raw      string
	opts     pipeline.Options
	recorder pipeline.Recorder
}

func (s *transcriberStub) Transcribe(ctx context.Context, raw string, opts pipeline.Options) (transcript.Result, error) {
	s.raw = raw
	s.opts = opts
	if opts.Progress != nil {
		opts.Progress(pipeline.Progress{Stage: pipeline.StageFetch, Percent: 0, Message: "retrieving audio"})
		opts.Progress(pipeline.Progress{Stage: pipeline.StageAssemble, Percent: 100, Message: "done"})
	}
	return s.result, s.err
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	stub       *transcriberStub
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "HF_TOKEN", "VIDSCRIBE_ENGINE",
		"VIDSCRIBE_SCRATCH_DIR", "VIDSCRIBE_OUTPUT_DIR", "VIDSCRIBE_STATE_DIR",
		"VIDSCRIBE_API_BIND", "VIDSCRIBE_API_TOKEN", "VIDSCRIBE_LOG_FORMAT", "VIDSCRIBE_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg := testsupport.NewConfig(t, opts...)

	configPath := filepath.Join(homeDir, ".config", "vidscribe", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		stub: &transcriberStub{result: transcript.Result{
			Segments:         []transcript.Segment{{StartSeconds: 0, EndSeconds: 4, Text: "hello there"}},
			FullText:         "hello there",
			DetectedLanguage: "en",
			Engine:           "whisperapi",
			ChunkCount:       1,
		}},
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	ctx := newCommandContext()
	ctx.newTranscriber = func(_ *config.Config, _ *slog.Logger, recorder pipeline.Recorder) api.Transcriber {
		env.stub.recorder = recorder
		return env.stub
	}
	cmd := newRootCommandWithContext(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
scratch_dir = %q
output_dir = %q
state_dir = %q
log_dir = ""
api_bind = %q

[engine]
profile = %q
retry_base_delay_ms = 0

[whisperx]
cache_dir = %q

[whisperapi]
api_key = %q

[history]
enabled = %t
`,
		cfg.Paths.ScratchDir,
		cfg.Paths.OutputDir,
		cfg.Paths.StateDir,
		cfg.Paths.APIBind,
		cfg.Engine.Profile,
		cfg.WhisperX.CacheDir,
		cfg.WhisperAPI.APIKey,
		cfg.History.Enabled,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
