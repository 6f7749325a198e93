// Package stdio implements a minimal single-connection MCP transport over
// stdin/stdout. It is intended for embedding servers as subprocesses and
// local development.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Sessions         : one per Serve call, memory only
//	Transport        : newline-delimited JSON-RPC 2.0
//	Concurrency      : none; frames are handled strictly in arrival order
//
// Input is read in chunks of arbitrary size. Each chunk is appended to the
// session buffer, every completed line is decoded and dispatched, and its
// response (if any) is written as a single line before the next read. Nothing
// but protocol messages is ever written to the output stream; diagnostics go
// to the configured slog.Logger.
//
// Options allow supplying alternate io.Reader / io.Writer or a custom logger.
//
// Example:
//
//	reg, err := mcpservice.NewRegistry(mcpservice.WithTools(...))
//	if err != nil { log.Fatal(err) }
//	h := stdio.NewHandler(reg,
//	    stdio.WithServerInfo(mcp.ImplementationInfo{Name: "my-stdio-server", Version: "0.1.0"}),
//	)
//	if err := h.Serve(context.Background()); err != nil { log.Fatal(err) }
//
// Serve returns nil when the input reaches end-of-stream and an error for any
// read or write fault.
package stdio
