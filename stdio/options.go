package stdio

import (
	"io"
	"log/slog"

	"github.com/ggoodman/mcp-stdio-go/internal/engine"
	"github.com/ggoodman/mcp-stdio-go/mcp"
)

// Option customizes a Handler.
type Option func(*Handler)

// WithIO sets the reader and writer for the handler.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithReader overrides the input stream.
func WithReader(r io.Reader) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
	}
}

// WithWriter overrides the output stream.
func WithWriter(w io.Writer) Option {
	return func(h *Handler) {
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.l = l
		}
	}
}

// WithReadSize sets the size of the buffer used for each read from the input
// stream. Values < 1 are ignored.
func WithReadSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.readSize = n
		}
	}
}

// WithServerInfo sets the implementation info returned from initialize.
func WithServerInfo(info mcp.ImplementationInfo) Option {
	return func(h *Handler) { h.engineOpts = append(h.engineOpts, engine.WithServerInfo(info)) }
}

// WithInstructions sets usage instructions returned from initialize.
func WithInstructions(s string) Option {
	return func(h *Handler) { h.engineOpts = append(h.engineOpts, engine.WithInstructions(s)) }
}

// WithProtocolVersion sets the protocol version offered to clients requesting
// an unsupported one.
func WithProtocolVersion(v string) Option {
	return func(h *Handler) { h.engineOpts = append(h.engineOpts, engine.WithProtocolVersion(v)) }
}

// WithStrictHandshake rejects requests other than initialize and ping until
// the client has initialized the session.
func WithStrictHandshake(strict bool) Option {
	return func(h *Handler) { h.engineOpts = append(h.engineOpts, engine.WithStrictHandshake(strict)) }
}
