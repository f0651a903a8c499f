package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vidchunk/internal/config"
	"vidchunk/internal/extraction"
	"vidchunk/internal/media/ffprobe"
	"vidchunk/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	fake       *testsupport.FakeFFmpeg
	configPath string
	source     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	source := filepath.Join(base, "clip.mp4")
	testsupport.WriteFile(t, source, 256)

	return &cliTestEnv{
		cfg:        cfg,
		fake:       &testsupport.FakeFFmpeg{Duration: 3},
		configPath: configPath,
		source:     source,
	}
}

func (e *cliTestEnv) engineOptions() []extraction.Option {
	duration := e.fake.Duration
	return []extraction.Option{
		extraction.WithCommandRunner(e.fake.Runner),
		extraction.WithInspector(func(context.Context, string, string) (ffprobe.Result, error) {
			return ffprobe.Result{
				Streams: []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}},
				Format:  ffprobe.Format{Duration: strconv.FormatFloat(duration, 'f', 3, 64)},
			}, nil
		}),
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWith(e.engineOptions()...)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
