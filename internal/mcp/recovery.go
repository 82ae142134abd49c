package mcp

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const maxPanicRecords = 32

// PanicRecord describes a panic raised by a tool handler
type PanicRecord struct {
	Tool       string    `json:"tool"`
	Message    string    `json:"message"`
	StackTrace string    `json:"stack_trace"`
	Timestamp  time.Time `json:"timestamp"`
}

// panicRecorder keeps the most recent panics
type panicRecorder struct {
	mu      sync.RWMutex
	records []PanicRecord
}

func (r *panicRecorder) record(rec PanicRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	if len(r.records) > maxPanicRecords {
		r.records = r.records[len(r.records)-maxPanicRecords:]
	}
}

func (r *panicRecorder) list() []PanicRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PanicRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Panics returns the most recent panics recovered from tool handlers
func (s *Server) Panics() []PanicRecord {
	return s.panics.list()
}

// toolMiddleware turns handler panics into tool errors, so a malformed
// document cannot take the whole server down, and logs slow calls in debug mode
func (s *Server) toolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		start := time.Now()
		name := request.Params.Name

		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				s.panics.record(PanicRecord{
					Tool:       name,
					Message:    fmt.Sprint(r),
					StackTrace: stack,
					Timestamp:  time.Now(),
				})
				log.Printf("PANIC in tool %s: %v\n%s", name, r, stack)
				result, err = mcp.NewToolResultError(fmt.Sprintf("internal error in %s: %v", name, r)), nil
			}
			if s.config.IsDebug() {
				log.Printf("tool %s finished in %s", name, time.Since(start))
			}
		}()

		return next(ctx, request)
	}
}
