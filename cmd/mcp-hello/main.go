// Command mcp-hello serves the hello capability set over stdin/stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/ggoodman/mcp-stdio-go/examples/hello"
	"github.com/ggoodman/mcp-stdio-go/internal/config"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/stdio"
)

// set via -ldflags at release time
var version = "dev"

// CLI flags. Defaults come from the environment (see internal/config).
type CLI struct {
	Name            string           `help:"Server name reported to clients." default:"${server_name}"`
	ServerVersion   string           `name:"server-version" help:"Server version reported to clients." default:"${server_version}"`
	ProtocolVersion string           `name:"protocol-version" help:"Protocol revision offered when the client's is unsupported." default:"${protocol_version}"`
	LogLevel        string           `name:"log-level" help:"Diagnostic log level." enum:"debug,info,warn,error" default:"${log_level}"`
	LogFormat       string           `name:"log-format" help:"Diagnostic log format." enum:"text,json" default:"${log_format}"`
	StrictHandshake bool             `name:"strict-handshake" help:"Reject requests other than initialize and ping until initialized." default:"${strict_handshake}"`
	Version         kong.VersionFlag `help:"Show version information and exit."`
}

func main() {
	env, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-hello: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	kong.Parse(&cli,
		kong.Name("mcp-hello"),
		kong.Description("Minimal MCP server speaking JSON-RPC over stdio. Diagnostics are written to stderr."),
		kong.Vars{
			"version":          version,
			"server_name":      env.ServerName,
			"server_version":   env.ServerVersion,
			"protocol_version": env.ProtocolVersion,
			"log_level":        env.LogLevel,
			"log_format":       env.LogFormat,
			"strict_handshake": strconv.FormatBool(env.StrictHandshake),
		},
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	cfg := config.Config{
		ServerName:      cli.Name,
		ServerVersion:   cli.ServerVersion,
		ProtocolVersion: cli.ProtocolVersion,
		LogLevel:        cli.LogLevel,
		LogFormat:       cli.LogFormat,
		StrictHandshake: cli.StrictHandshake,
	}
	if err := run(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-hello: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	reg, err := hello.New(hello.Info{
		Name:            cfg.ServerName,
		Version:         cfg.ServerVersion,
		ProtocolVersion: cfg.ProtocolVersion,
	})
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	h := stdio.NewHandler(reg,
		stdio.WithLogger(log),
		stdio.WithServerInfo(mcp.ImplementationInfo{Name: cfg.ServerName, Version: cfg.ServerVersion}),
		stdio.WithProtocolVersion(cfg.ProtocolVersion),
		stdio.WithStrictHandshake(cfg.StrictHandshake),
	)
	return h.Serve(ctx)
}
