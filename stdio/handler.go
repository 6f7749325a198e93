package stdio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ggoodman/mcp-stdio-go/internal/engine"
	"github.com/ggoodman/mcp-stdio-go/internal/framing"
	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
)

const defaultReadSize = 64 * 1024

// Handler serves a single MCP session over a byte stream pair, by default the
// process's stdin and stdout.
type Handler struct {
	reg *mcpservice.Registry
	r   io.Reader
	w   io.Writer
	l   *slog.Logger

	readSize   int
	engineOpts []engine.EngineOption
}

// NewHandler creates a Handler serving reg.
func NewHandler(reg *mcpservice.Registry, opts ...Option) *Handler {
	h := &Handler{
		reg:      reg,
		r:        os.Stdin,
		w:        os.Stdout,
		l:        slog.Default(),
		readSize: defaultReadSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Serve runs the read loop until the input reaches end-of-stream, an I/O
// error occurs or ctx is canceled. Every frame completed by a read is handled
// and answered before the next read is issued. A clean end of input returns
// nil.
func (h *Handler) Serve(ctx context.Context) error {
	eng := engine.NewEngine(append([]engine.EngineOption{engine.WithLogger(h.l)}, h.engineOpts...)...)
	sess := engine.NewSession(h.reg)
	log := h.l.With(slog.String("session_id", sess.ID()))

	fw := framing.NewWriter(h.w)
	out := engine.MessageWriterFunc(func(ctx context.Context, msg jsonrpc.Message) error {
		return fw.WriteFrame(msg)
	})

	log.InfoContext(ctx, "stdio.start")
	buf := make([]byte, h.readSize)
	for {
		if err := ctx.Err(); err != nil {
			log.InfoContext(ctx, "stdio.stop", slog.String("reason", err.Error()))
			return err
		}

		n, err := h.r.Read(buf)
		if n > 0 {
			if perr := eng.Process(ctx, sess, buf[:n], out); perr != nil {
				log.ErrorContext(ctx, "stdio.write.fail", slog.String("err", perr.Error()))
				return perr
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if pending := sess.Pending(); len(pending) > 0 {
				log.WarnContext(ctx, "stdio.read.eof_partial_frame", slog.Int("bytes", len(pending)))
			}
			log.InfoContext(ctx, "stdio.read.eof")
			return nil
		}
		log.ErrorContext(ctx, "stdio.read.fail", slog.String("err", err.Error()))
		return fmt.Errorf("read input: %w", err)
	}
}
