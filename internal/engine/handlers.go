package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-stdio-go/internal/logctx"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
)

func (e *Engine) handleInitialize(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	// A malformed params object does not fail the handshake; the client
	// simply gets the server's preferred version.
	var params mcp.InitializeRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			e.log.WarnContext(ctx, "engine.initialize.params_ignored", slog.String("err", err.Error()))
		}
	}

	if sess.State() == StateReady {
		e.log.WarnContext(ctx, "engine.initialize.repeat")
	}

	version := e.preferredVersion
	if mcp.IsSupportedProtocolVersion(params.ProtocolVersion) {
		version = params.ProtocolVersion
	}
	sess.markReady(version, params.ClientInfo, params.Capabilities)

	e.log.InfoContext(logctx.WithSessionData(ctx, sess.logData()), "engine.initialize.ok",
		slog.String("requested_version", params.ProtocolVersion),
		slog.String("client_version", params.ClientInfo.Version),
		slog.Any("client_capabilities", params.Capabilities.Names()),
	)

	return &mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    serverCapabilities(sess.Registry()),
		ServerInfo:      e.serverInfo,
		Instructions:    e.instructions,
	}, nil
}

// serverCapabilities advertises exactly the non-empty registry categories.
func serverCapabilities(reg *mcpservice.Registry) mcp.ServerCapabilities {
	var caps mcp.ServerCapabilities
	if reg.Len(mcpservice.CategoryTools) > 0 {
		caps.Tools = &mcp.CapabilityFlags{}
	}
	if reg.Len(mcpservice.CategoryResources) > 0 {
		caps.Resources = &mcp.CapabilityFlags{}
	}
	if reg.Len(mcpservice.CategoryPrompts) > 0 {
		caps.Prompts = &mcp.CapabilityFlags{}
	}
	return caps
}

func (e *Engine) handleInitialized(ctx context.Context, sess *Session, req *jsonrpc.Request) {
	if sess.State() != StateReady {
		e.log.WarnContext(ctx, "engine.initialized.before_initialize")
	}
	sess.initializedSeen = true
	e.log.InfoContext(ctx, "engine.initialized.ok")
}

func (e *Engine) handleCancelled(ctx context.Context, sess *Session, req *jsonrpc.Request) {
	// Requests run to completion before the next frame is read, so by the
	// time this arrives the target has already been answered.
	var params mcp.CancelledNotification
	if err := json.Unmarshal(req.Params, &params); err != nil {
		e.log.InfoContext(ctx, "engine.cancelled.invalid", slog.String("err", err.Error()))
		return
	}
	id := jsonrpc.NewRequestID(params.RequestID)
	e.log.InfoContext(ctx, "engine.cancelled.ignored", slog.Any("request_id", id.Value()), slog.String("reason", params.Reason))
}

func (e *Engine) handlePing(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	return mcp.EmptyResult{}, nil
}

func (e *Engine) handleListTools(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	tools := sess.Registry().Tools()
	e.log.DebugContext(ctx, "engine.tools.list", slog.Int("tool_count", len(tools)))
	return &mcp.ListToolsResult{Tools: tools}, nil
}

func (e *Engine) handleToolCall(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	var params mcp.CallToolRequestReceived
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, mcpservice.InvalidParams("missing tool name")
	}

	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: params.Name})

	h, ok := sess.Registry().ResolveTool(params.Name)
	if !ok {
		return nil, mcpservice.InvalidParams("Unknown tool: %s", params.Name)
	}
	res, err := h(ctx, &params)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &mcp.CallToolResult{}
	}
	if res.Content == nil {
		res.Content = []mcp.ContentBlock{}
	}
	return res, nil
}

func (e *Engine) handleListResources(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	return &mcp.ListResourcesResult{Resources: sess.Registry().Resources()}, nil
}

func (e *Engine) handleReadResource(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	var params mcp.ReadResourceRequest
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	if params.URI == "" {
		return nil, mcpservice.InvalidParams("missing resource uri")
	}
	r, ok := sess.Registry().ResolveResource(params.URI)
	if !ok {
		return nil, mcpservice.InvalidParams("Unknown resource: %s", params.URI)
	}
	return r.Read(ctx)
}

func (e *Engine) handleListPrompts(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	return &mcp.ListPromptsResult{Prompts: sess.Registry().Prompts()}, nil
}

func (e *Engine) handleGetPrompt(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	var params mcp.GetPromptRequestReceived
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, mcpservice.InvalidParams("missing prompt name")
	}
	h, ok := sess.Registry().ResolvePrompt(params.Name)
	if !ok {
		return nil, mcpservice.InvalidParams("Unknown prompt: %s", params.Name)
	}
	res, err := h(ctx, &params)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &mcp.GetPromptResult{}
	}
	if res.Messages == nil {
		res.Messages = []mcp.PromptMessage{}
	}
	return res, nil
}

// decodeParams unmarshals request params into v. Missing params decode as {}.
func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return mcpservice.InvalidParams("invalid params: %v", err)
	}
	return nil
}
