package mcpservice

import (
	"context"
	"errors"

	"github.com/ggoodman/mcp-stdio-go/mcp"
)

// ToolResponseWriter allows a tool handler to incrementally compose a
// CallToolResult.
//
// Notes:
// - Writes after finalization (Result) are ignored and return ErrFinalized.
// - Mutating methods check ctx.Done() and return the context error promptly.
type ToolResponseWriter interface {
	AppendText(text string) error
	AppendBlocks(blocks ...mcp.ContentBlock) error
	SetError(isError bool)
	// Result finalizes and returns the accumulated result. It is idempotent.
	Result() *mcp.CallToolResult
}

var (
	// ErrFinalized is returned when attempting to write after Result() was called.
	ErrFinalized = errors.New("result already finalized")
)

// toolResponseWriter is used from the single dispatch goroutine, so it
// carries no lock.
type toolResponseWriter struct {
	ctx       context.Context
	finalized bool

	blocks  []mcp.ContentBlock
	isError bool
}

var _ ToolResponseWriter = (*toolResponseWriter)(nil)

func newToolResponseWriter(ctx context.Context) *toolResponseWriter {
	return &toolResponseWriter{ctx: ctx}
}

// AppendText appends a text block. The empty string is still a block so that
// tools echoing empty input produce a visible result.
func (w *toolResponseWriter) AppendText(text string) error {
	return w.AppendBlocks(mcp.TextContent(text))
}

func (w *toolResponseWriter) AppendBlocks(blocks ...mcp.ContentBlock) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	if w.finalized {
		return ErrFinalized
	}
	w.blocks = append(w.blocks, blocks...)
	return nil
}

func (w *toolResponseWriter) SetError(isError bool) {
	if w.finalized {
		return
	}
	w.isError = isError
}

func (w *toolResponseWriter) Result() *mcp.CallToolResult {
	w.finalized = true
	content := append([]mcp.ContentBlock(nil), w.blocks...)
	if content == nil {
		content = []mcp.ContentBlock{}
	}
	return &mcp.CallToolResult{Content: content, IsError: w.isError}
}
