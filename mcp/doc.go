// Package mcp contains protocol data types and constants shared by the engine,
// the stdio transport and capability implementations. It mirrors the wire
// representation of the Model Context Protocol while keeping the surface
// Go-friendly (exported structs with json tags, string constants for method
// names).
//
// The package is free of transport logic: framing, envelope validation and
// dispatch live in the internal packages and in package stdio.
//
// # Method Names
//
// JSON-RPC method and notification names are enumerated as Method constants
// (e.g. ToolsListMethod). Using the constants avoids typographical mistakes
// and gives a single point of truth.
//
// # Capabilities
//
// ServerCapabilities is advertised in the initialize result. Only categories
// that the server actually populates are present; an advertised category
// encodes as an empty object.
//
// Example (tool result construction):
//
//	res := &mcp.CallToolResult{
//	    Content: []mcp.ContentBlock{mcp.TextContent("hello")},
//	}
//
// # Compatibility
//
// DefaultProtocolVersion is offered to clients that request an unknown
// revision; any entry of SupportedProtocolVersions requested by the client is
// echoed back unchanged.
package mcp
