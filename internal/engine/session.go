package engine

import (
	"github.com/ggoodman/mcp-stdio-go/internal/framing"
	"github.com/ggoodman/mcp-stdio-go/internal/logctx"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/google/uuid"
)

// SessionState is the lifecycle state of a Session.
type SessionState string

const (
	// StateAwaitingInitialize is the state of a fresh session.
	StateAwaitingInitialize SessionState = "awaiting_initialize"
	// StateReady is entered on the first successful initialize and never left.
	StateReady SessionState = "ready"
)

// Session is the per-transport protocol state: lifecycle, the frame
// accumulation buffer and the bound registry. A Session is owned by a single
// read loop and is not safe for concurrent use.
type Session struct {
	id       string
	state    SessionState
	frames   framing.Splitter
	registry *mcpservice.Registry

	protocolVersion string
	clientInfo      mcp.ImplementationInfo
	clientCaps      mcp.ClientCapabilities
	initializedSeen bool
}

// NewSession creates a session bound to reg. A nil registry behaves like an
// empty one.
func NewSession(reg *mcpservice.Registry) *Session {
	if reg == nil {
		reg = mcpservice.MustRegistry()
	}
	return &Session{
		id:       uuid.NewString(),
		state:    StateAwaitingInitialize,
		registry: reg,
	}
}

func (s *Session) ID() string                         { return s.id }
func (s *Session) State() SessionState                { return s.state }
func (s *Session) Registry() *mcpservice.Registry     { return s.registry }
func (s *Session) ProtocolVersion() string            { return s.protocolVersion }
func (s *Session) ClientInfo() mcp.ImplementationInfo { return s.clientInfo }

// ClientCapabilities returns the capabilities the client declared in
// initialize. They are recorded but never validated.
func (s *Session) ClientCapabilities() mcp.ClientCapabilities { return s.clientCaps }

// InitializedSeen reports whether the client has sent its initialized
// notification.
func (s *Session) InitializedSeen() bool { return s.initializedSeen }

// Feed appends a chunk of transport input to the session buffer and returns
// the frames it completed, in arrival order.
func (s *Session) Feed(chunk []byte) [][]byte { return s.frames.Push(chunk) }

// Pending returns buffered input that has not been terminated yet.
func (s *Session) Pending() []byte { return s.frames.Pending() }

func (s *Session) markReady(version string, info mcp.ImplementationInfo, caps mcp.ClientCapabilities) {
	s.state = StateReady
	s.protocolVersion = version
	s.clientInfo = info
	s.clientCaps = caps
}

func (s *Session) logData() *logctx.SessionData {
	return &logctx.SessionData{
		SessionID:       s.id,
		ProtocolVersion: s.protocolVersion,
		State:           string(s.state),
		ClientName:      s.clientInfo.Name,
	}
}
