package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/a3tai/mcp-pdf-graphics/internal/config"
)

const testVersion = "1.2.3"

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	var buf bytes.Buffer
	printVersion(&buf)
	output := buf.String()

	expectedStrings := []string{
		"MCP PDF Graphics",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestSetupLogging_StdioMode(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	setupLogging(&config.Config{Mode: "stdio", LogLevel: "debug"})
	if log.Writer() != os.Stderr {
		t.Errorf("setupLogging() for stdio debug mode should set output to stderr")
	}

	setupLogging(&config.Config{Mode: "stdio", LogLevel: "info"})
	if log.Writer() != io.Discard {
		t.Errorf("setupLogging() for stdio non-debug mode should discard logs")
	}
}

func TestSetupLogging_ServerMode(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	setupLogging(&config.Config{Mode: "server", LogLevel: "info"})

	expectedFlags := log.LstdFlags | log.Lshortfile
	if currentFlags := log.Flags(); currentFlags != expectedFlags {
		t.Errorf("setupLogging() for server mode: flags = %v, want %v", currentFlags, expectedFlags)
	}
}

func TestNewService(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/pdfs", 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		PDFDirectory: "/pdfs",
		MaxFileSize:  1024,
		Sessions:     2,
		Merge:        "text",
	}
	svc, err := newService(fs, cfg)
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	if svc.Directory() != "/pdfs" {
		t.Errorf("Directory() = %s, want /pdfs", svc.Directory())
	}
	if svc.GetMaxFileSize() != 1024 {
		t.Errorf("GetMaxFileSize() = %d, want 1024", svc.GetMaxFileSize())
	}

	cfg.Merge = "squash"
	if _, err := newService(fs, cfg); err == nil {
		t.Error("newService() should reject an unknown merge option")
	}
}
