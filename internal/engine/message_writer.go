package engine

import (
	"context"

	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
)

// MessageWriter receives each encoded response produced by Engine.Process.
// Implementations write one message per call.
type MessageWriter interface {
	WriteMessage(ctx context.Context, msg jsonrpc.Message) error
}

type MessageWriterFunc func(ctx context.Context, msg jsonrpc.Message) error

func (f MessageWriterFunc) WriteMessage(ctx context.Context, msg jsonrpc.Message) error {
	return f(ctx, msg)
}
