package mcp

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-graphics/internal/config"
)

func TestServer_Run_StdioMode(t *testing.T) {
	server := newTestServer(t)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"pdf_graphics_open","arguments":{"path":"sample.pdf"}}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	server.stdin = strings.NewReader(input)
	server.stdout = &out

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, server.Run(ctx))

	output := out.String()
	assert.Contains(t, output, `"name":"test-server"`)
	assert.Contains(t, output, "pdf_graphics_hit_test")
	assert.Contains(t, output, "Opened PDF: /work/sample.pdf")
}

func TestServer_Run_StdioModeCancelled(t *testing.T) {
	server := newTestServer(t)
	server.stdin = blockingReader{}
	server.stdout = &bytes.Buffer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, server.Run(ctx))
}

func TestServer_Run_ServerMode(t *testing.T) {
	server := newTestServer(t)
	server.config.Mode = config.ModeServer
	server.config.Host = "127.0.0.1"
	server.config.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}

func TestServer_Run_ServerModeAddressInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	server := newTestServer(t)
	server.config.Mode = config.ModeServer
	server.config.Host = "127.0.0.1"
	server.config.Port = listener.Addr().(*net.TCPAddr).Port

	err = server.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to serve sse")
}

// blockingReader never returns, like an idle stdin
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
