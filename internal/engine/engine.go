package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-stdio-go/internal/logctx"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
)

var (
	// ErrNotInitialized is reported by a strict engine for requests that
	// arrive before initialize.
	ErrNotInitialized = errors.New("session not initialized")
)

// requestHandler produces the result of a request. Errors are mapped to
// JSON-RPC error objects by the engine.
type requestHandler func(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error)

// notificationHandler reacts to a notification. Notifications never produce
// output so there is nothing to return.
type notificationHandler func(ctx context.Context, sess *Session, req *jsonrpc.Request)

// Engine is the protocol state machine. It decodes frames, routes requests
// through a method table and converts handler outcomes into responses. All
// per-connection state lives in the Session passed to each call, so one
// Engine can serve any number of sessions sequentially.
type Engine struct {
	log *slog.Logger

	serverInfo       mcp.ImplementationInfo
	instructions     string
	preferredVersion string
	strictHandshake  bool

	methods       map[mcp.Method]requestHandler
	notifications map[mcp.Method]notificationHandler
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithServerInfo sets the implementation info returned from initialize.
func WithServerInfo(info mcp.ImplementationInfo) EngineOption {
	return func(e *Engine) { e.serverInfo = info }
}

// WithInstructions sets optional usage instructions returned from initialize.
func WithInstructions(s string) EngineOption {
	return func(e *Engine) { e.instructions = s }
}

// WithProtocolVersion sets the protocol version offered when the client
// requests one that is not supported. Empty values are ignored.
func WithProtocolVersion(v string) EngineOption {
	return func(e *Engine) {
		if v != "" {
			e.preferredVersion = v
		}
	}
}

// WithStrictHandshake makes the engine reject requests other than initialize
// and ping until the session is initialized. By default such requests are
// served.
func WithStrictHandshake(strict bool) EngineOption {
	return func(e *Engine) { e.strictHandshake = strict }
}

// WithLogger sets a custom logger for the Engine.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine builds an Engine and its method table.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		log:              slog.Default(),
		serverInfo:       mcp.ImplementationInfo{Name: "mcp-stdio-go", Version: "0.0.0"},
		preferredVersion: mcp.DefaultProtocolVersion,
	}

	// Apply options (order matters; later options override earlier ones).
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	e.methods = map[mcp.Method]requestHandler{
		mcp.InitializeMethod:    e.handleInitialize,
		mcp.PingMethod:          e.handlePing,
		mcp.ToolsListMethod:     e.handleListTools,
		mcp.ToolsCallMethod:     e.handleToolCall,
		mcp.ResourcesListMethod: e.handleListResources,
		mcp.ResourcesReadMethod: e.handleReadResource,
		mcp.PromptsListMethod:   e.handleListPrompts,
		mcp.PromptsGetMethod:    e.handleGetPrompt,
	}
	e.notifications = map[mcp.Method]notificationHandler{
		mcp.InitializedNotificationMethod:       e.handleInitialized,
		mcp.LegacyInitializedNotificationMethod: e.handleInitialized,
		mcp.CancelledNotificationMethod:         e.handleCancelled,
	}
	return e
}

// Process feeds one chunk of transport input to sess and handles every frame
// it completes, writing each response through w before the next frame is
// dispatched. It returns the first write error.
func (e *Engine) Process(ctx context.Context, sess *Session, chunk []byte, w MessageWriter) error {
	for _, frame := range sess.Feed(chunk) {
		res := e.HandleFrame(ctx, sess, frame)
		if res == nil {
			continue
		}
		msg, err := jsonrpc.Encode(res)
		if err != nil {
			// Results are marshalled when the response is built, so this
			// only trips on a programming error.
			e.log.ErrorContext(ctx, "engine.encode.fail", slog.String("err", err.Error()))
			msg, err = jsonrpc.Encode(jsonrpc.NewErrorResponse(res.ID, jsonrpc.ErrorCodeInternalError, jsonrpc.ErrorCodeInternalError.Message(), err.Error()))
			if err != nil {
				return err
			}
		}
		if err := w.WriteMessage(ctx, msg); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return nil
}

// HandleFrame decodes and dispatches a single frame. A nil response means
// nothing is to be written, which is always the case for notifications.
func (e *Engine) HandleFrame(ctx context.Context, sess *Session, frame []byte) *jsonrpc.Response {
	ctx = logctx.WithSessionData(ctx, sess.logData())

	msg, err := jsonrpc.Decode(frame)
	if err != nil {
		var rpcErr *jsonrpc.Error
		if !errors.As(err, &rpcErr) {
			rpcErr = jsonrpc.NewError(jsonrpc.ErrorCodeParseError, err.Error())
		}
		if msg == nil {
			// Nothing identifies the message, answer with a null id.
			e.log.InfoContext(ctx, "engine.decode.fail", slog.Int("code", int(rpcErr.Code)), slog.String("err", errData(rpcErr)))
			return jsonrpc.NewErrorObjectResponse(nil, rpcErr)
		}
		if !msg.HasID() {
			e.log.InfoContext(ctx, "engine.decode.drop_notification", slog.String("method", msg.Method), slog.String("err", errData(rpcErr)))
			return nil
		}
		e.log.InfoContext(ctx, "engine.decode.invalid", slog.Any("id", msg.ID.Value()), slog.String("err", errData(rpcErr)))
		return jsonrpc.NewErrorObjectResponse(msg.ID, rpcErr)
	}

	switch msg.Type() {
	case jsonrpc.TypeNotification:
		e.handleNotification(ctx, sess, msg.AsRequest())
		return nil
	case jsonrpc.TypeRequest:
		return e.handleRequest(ctx, sess, msg.AsRequest())
	default:
		// The server never issues requests, so there is nothing to correlate
		// a response with.
		e.log.InfoContext(ctx, "engine.response.drop", slog.String("id", msg.ID.String()))
		return nil
	}
}

func (e *Engine) handleNotification(ctx context.Context, sess *Session, req *jsonrpc.Request) {
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{Method: req.Method, Type: jsonrpc.TypeNotification})
	h, ok := e.notifications[mcp.Method(req.Method)]
	if !ok {
		e.log.DebugContext(ctx, "engine.handle_notification.unknown")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.ErrorContext(ctx, "engine.handle_notification.panic", slog.Any("panic", r))
		}
	}()
	h(ctx, sess, req)
}

func (e *Engine) handleRequest(ctx context.Context, sess *Session, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{Method: req.Method, ID: req.ID.String(), Type: jsonrpc.TypeRequest})
	log := e.log.With(slog.String("method", req.Method))

	h, ok := e.methods[mcp.Method(req.Method)]
	if !ok {
		log.InfoContext(ctx, "engine.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, jsonrpc.ErrorCodeMethodNotFound.Message(), "Unknown method: "+req.Method)
	}

	if e.strictHandshake && sess.State() != StateReady && !allowedBeforeInitialize(req.Method) {
		log.InfoContext(ctx, "engine.handle_request.not_initialized", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, jsonrpc.ErrorCodeInvalidRequest.Message(), ErrNotInitialized.Error())
	}

	result, err := e.invoke(ctx, h, sess, req)
	if err != nil {
		rpcErr := toRPCError(err)
		if rpcErr.Code == jsonrpc.ErrorCodeInternalError {
			log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		} else {
			log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		}
		return jsonrpc.NewErrorObjectResponse(req.ID, rpcErr)
	}

	res, err := jsonrpc.NewResultResponse(req.ID, result)
	if err != nil {
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, jsonrpc.ErrorCodeInternalError.Message(), err.Error())
	}
	log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	return res
}

// invoke runs h, turning a panic into an error so that one faulty handler
// cannot end the session.
func (e *Engine) invoke(ctx context.Context, h requestHandler, sess *Session, req *jsonrpc.Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.ErrorContext(ctx, "engine.handle_request.panic", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			result = nil
			err = fmt.Errorf("%v", r)
		}
	}()
	return h(ctx, sess, req)
}

func allowedBeforeInitialize(method string) bool {
	switch mcp.Method(method) {
	case mcp.InitializeMethod, mcp.PingMethod:
		return true
	}
	return false
}

// toRPCError maps a handler error onto the fixed error taxonomy.
func toRPCError(err error) *jsonrpc.Error {
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var ipe *mcpservice.InvalidParamsError
	if errors.As(err, &ipe) {
		return jsonrpc.NewError(jsonrpc.ErrorCodeInvalidParams, ipe.Detail)
	}
	return jsonrpc.NewError(jsonrpc.ErrorCodeInternalError, err.Error())
}

func errData(e *jsonrpc.Error) string {
	if s, ok := e.Data.(string); ok && s != "" {
		return s
	}
	return e.Message
}
