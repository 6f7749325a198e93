// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ggoodman/mcp-stdio-go/internal/logctx"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/joeshaw/envdecode"
)

// Config for the stdio server. Defaults are provided via struct tags.
type Config struct {
	// ServerName reported in initialize. ENV: MCP_SERVER_NAME
	ServerName string `env:"MCP_SERVER_NAME,default=hello-mcp-server"`
	// ServerVersion reported in initialize. ENV: MCP_SERVER_VERSION
	ServerVersion string `env:"MCP_SERVER_VERSION,default=0.1.0"`
	// ProtocolVersion offered to clients requesting an unknown revision.
	// ENV: MCP_PROTOCOL_VERSION
	ProtocolVersion string `env:"MCP_PROTOCOL_VERSION,default=2024-11-05"`
	// LogLevel is one of debug, info, warn, error. ENV: MCP_LOG_LEVEL
	LogLevel string `env:"MCP_LOG_LEVEL,default=info"`
	// LogFormat is text or json. ENV: MCP_LOG_FORMAT
	LogFormat string `env:"MCP_LOG_FORMAT,default=text"`
	// StrictHandshake rejects requests before initialize. ENV: MCP_STRICT_HANDSHAKE
	StrictHandshake bool `env:"MCP_STRICT_HANDSHAKE,default=false"`
}

// Load populates a Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if c.ServerName == "" {
		return errors.New("server name must not be empty")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if !mcp.IsSupportedProtocolVersion(c.ProtocolVersion) {
		return fmt.Errorf("unsupported protocol version %q", c.ProtocolVersion)
	}
	return nil
}

// ParseLevel parses a slog level name such as "info" or "DEBUG".
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// NewLogger builds the diagnostic logger writing to w, decorated with the
// context attributes from logctx.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(c.LogFormat) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return slog.New(logctx.Handler{Handler: h}), nil
}
