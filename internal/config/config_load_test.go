package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnvVars unsets every variable Load reads for the duration of the test
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, name := range []string{"MODE", "HOST", "PORT", "DIR", "LOGLEVEL", "MAXFILESIZE", "SESSIONS", "MERGE", "CONFIG"} {
		key := EnvPrefix + "_" + name
		if value, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, value) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()

	cfg, err := Load("mcp-pdf-graphics", []string{"--dir", dir}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mode != ModeStdio {
		t.Errorf("Mode = %s, want stdio", cfg.Mode)
	}
	if cfg.PDFDirectory != dir {
		t.Errorf("PDFDirectory = %s, want %s", cfg.PDFDirectory, dir)
	}
	if cfg.Sessions != DefaultSessions {
		t.Errorf("Sessions = %d, want %d", cfg.Sessions, DefaultSessions)
	}
	if cfg.Merge != DefaultMerge {
		t.Errorf("Merge = %s, want %s", cfg.Merge, DefaultMerge)
	}
}

func TestLoad_Flags(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()

	cfg, err := Load("mcp-pdf-graphics", []string{
		"--mode=server",
		"--host=0.0.0.0",
		"--port=9191",
		"--dir=" + dir,
		"--loglevel=debug",
		"--maxfilesize=2048",
		"--sessions=3",
		"--merge=text,brackets",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Address() != "0.0.0.0:9191" {
		t.Errorf("Address() = %s", cfg.Address())
	}
	if !cfg.IsServerMode() || !cfg.IsDebug() {
		t.Errorf("unexpected mode/log level: %s", cfg)
	}
	if cfg.MaxFileSize != 2048 || cfg.Sessions != 3 || cfg.Merge != "text,brackets" {
		t.Errorf("unexpected values: %s", cfg)
	}
}

func TestLoad_Environment(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()
	t.Setenv(EnvPrefix+"_DIR", dir)
	t.Setenv(EnvPrefix+"_SESSIONS", "5")
	t.Setenv(EnvPrefix+"_MERGE", "brackets")
	t.Setenv(EnvPrefix+"_PORT", "7000")

	cfg, err := Load("mcp-pdf-graphics", nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.PDFDirectory != dir {
		t.Errorf("PDFDirectory = %s, want %s", cfg.PDFDirectory, dir)
	}
	if cfg.Sessions != 5 || cfg.Merge != "brackets" || cfg.Port != 7000 {
		t.Errorf("unexpected values: %s", cfg)
	}

	// Flags win over the environment
	cfg, err = Load("mcp-pdf-graphics", []string{"--sessions=2"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", cfg.Sessions)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "graphics.yaml")
	body := "dir: " + dir + "\nsessions: 7\nmerge: all\nloglevel: warn\n"
	if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("mcp-pdf-graphics", []string{"--config", file, "--loglevel=error"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigFile != file {
		t.Errorf("ConfigFile = %s, want %s", cfg.ConfigFile, file)
	}
	if cfg.PDFDirectory != dir || cfg.Sessions != 7 || cfg.Merge != "all" {
		t.Errorf("unexpected values: %s", cfg)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %s, flag should override the file", cfg.LogLevel)
	}

	_, err = Load("mcp-pdf-graphics", []string{"--config", filepath.Join(dir, "missing.yaml")}, &bytes.Buffer{})
	if err == nil {
		t.Error("expected error for a missing config file")
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"--bogus"}, "unknown flag"},
		{"bad mode", []string{"--dir", dir, "--mode=web"}, "mode must be"},
		{"bad merge", []string{"--dir", dir, "--merge=squash"}, "invalid merge option"},
		{"bad sessions", []string{"--dir", dir, "--sessions=0"}, "sessions must be"},
		{"bad log level", []string{"--dir", dir, "--loglevel=trace"}, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("mcp-pdf-graphics", tt.args, &bytes.Buffer{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestLoad_Version(t *testing.T) {
	for _, arg := range []string{"--version", "-version", "-v"} {
		_, err := Load("mcp-pdf-graphics", []string{arg}, &bytes.Buffer{})
		if !errors.Is(err, ErrVersionRequested) {
			t.Errorf("%s: error = %v, want ErrVersionRequested", arg, err)
		}
	}
}

func TestLoad_Usage(t *testing.T) {
	var out bytes.Buffer
	_, err := Load("mcp-pdf-graphics", []string{"--help"}, &out)
	if err == nil {
		t.Fatal("expected help error")
	}

	usage := out.String()
	for _, want := range []string{"MCP PDF Graphics", "--merge", EnvPrefix + "_SESSIONS"} {
		if !strings.Contains(usage, want) {
			t.Errorf("usage missing %q:\n%s", want, usage)
		}
	}
}
