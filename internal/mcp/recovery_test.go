package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_RecoversToolPanics(t *testing.T) {
	server := newTestServer(t)
	server.mcpServer.AddTool(mcp.NewTool("explode"), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("malformed cross-reference table")
	})

	response := server.mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"explode","arguments":{}}}`))
	raw, err := json.Marshal(response)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"isError":true`)
	assert.Contains(t, string(raw), "internal error in explode: malformed cross-reference table")

	panics := server.Panics()
	require.Len(t, panics, 1)
	assert.Equal(t, "explode", panics[0].Tool)
	assert.Equal(t, "malformed cross-reference table", panics[0].Message)
	assert.NotEmpty(t, panics[0].StackTrace)
}

func TestPanicRecorder_KeepsMostRecent(t *testing.T) {
	var r panicRecorder
	for i := 0; i < maxPanicRecords+5; i++ {
		r.record(PanicRecord{Tool: "t", Message: string(rune('a' + i%26))})
	}

	records := r.list()
	assert.Len(t, records, maxPanicRecords)
	assert.Equal(t, string(rune('a'+5)), records[0].Message)
}

func TestServer_ServerInfoListsPanics(t *testing.T) {
	server := newTestServer(t)
	server.mcpServer.AddTool(mcp.NewTool("explode"), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("boom")
	})
	server.mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"explode","arguments":{}}}`))

	text := mustCall(t, server.handlePDFServerInfo, nil)
	assert.Contains(t, text, "Recovered Panics (1)")
	assert.Contains(t, text, "explode: boom")
}
