package core

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
port: 8080
logLevel: debug
database:
  type: sqlite
  connectionString: ":memory:"
inference:
  type: http
  url: http://model:8000
  timeout: 30s
cache:
  type: redis
  addr: redis:6379
  ttl: 1h
jpegQuality: 75
maxPixels: 1000000
commands:
  - name: ScaleCommand
    width: 1600
    height: 1200
  - name: GrayscaleCommand
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if config.Port != 8080 {
		t.Errorf("expected port 8080, got %d", config.Port)
	}
	if config.SlogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", config.SlogLevel())
	}
	if config.Database.ConnectionString != ":memory:" {
		t.Errorf("unexpected connection string %q", config.Database.ConnectionString)
	}
	if config.Inference.URL != "http://model:8000" || config.Inference.Timeout != 30*time.Second {
		t.Errorf("unexpected inference config %+v", config.Inference)
	}
	if config.Cache.Type != "redis" || config.Cache.TTL != time.Hour {
		t.Errorf("unexpected cache config %+v", config.Cache)
	}
	if config.JPEGQuality != 75 {
		t.Errorf("expected jpegQuality 75, got %d", config.JPEGQuality)
	}
	if config.MaxPixels != 1000000 {
		t.Errorf("expected maxPixels 1000000, got %d", config.MaxPixels)
	}
	if config.MaxUploadBytes != DefaultConfig().MaxUploadBytes {
		t.Errorf("expected default maxUploadBytes, got %d", config.MaxUploadBytes)
	}

	commands := config.CommandConfigs()
	if len(commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(commands))
	}
	if commands[0].Name != "ScaleCommand" || commands[0].Params["width"] != 1600 {
		t.Errorf("unexpected first command %+v", commands[0])
	}
	if _, ok := commands[0].Params["name"]; ok {
		t.Error("name must not be part of the params")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if config.Port != 5000 {
		t.Errorf("expected default port 5000, got %d", config.Port)
	}
	if config.JPEGQuality != 90 {
		t.Errorf("expected default jpegQuality 90, got %d", config.JPEGQuality)
	}
	if config.Cache.Type != "none" {
		t.Errorf("expected cache disabled by default, got %q", config.Cache.Type)
	}
	if config.SlogLevel() != slog.LevelInfo {
		t.Errorf("expected info level, got %v", config.SlogLevel())
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("WALLSCAN_PORT", "9090")
	t.Setenv("WALLSCAN_INFERENCE_URL", "http://gpu-box:8000")
	t.Setenv("WALLSCAN_CACHE_TYPE", "redis")
	t.Setenv("WALLSCAN_CACHE_TTL", "15m")

	config, err := LoadConfig(writeConfig(t, "port: 8080\n"))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if config.Port != 9090 {
		t.Errorf("expected env port 9090, got %d", config.Port)
	}
	if config.Inference.URL != "http://gpu-box:8000" {
		t.Errorf("expected env inference url, got %q", config.Inference.URL)
	}
	if config.Cache.Type != "redis" || config.Cache.TTL != 15*time.Minute {
		t.Errorf("unexpected cache config %+v", config.Cache)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port out of range", "port: 70000\n"},
		{"jpeg quality", "jpegQuality: 101\n"},
		{"empty inference url", "inference:\n  type: http\n  url: \"\"\n"},
		{"log level", "logLevel: loud\n"},
		{"empty command name", "commands:\n  - width: 10\n"},
		{"duplicate command", "commands:\n  - name: ScaleCommand\n  - name: ScaleCommand\n"},
		{"malformed yaml", "port: [\n"},
		{"max pixels", "maxPixels: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
