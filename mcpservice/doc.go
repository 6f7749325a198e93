// Package mcpservice holds the capability registry served by the engine: the
// tools, resources and prompts a session exposes, together with helpers for
// building them from typed Go values.
//
// A Registry is assembled once with NewRegistry and never changes afterwards.
// Listing returns bindings in registration order; lookups match names and URIs
// exactly.
//
//	reg, err := mcpservice.NewRegistry(
//	    mcpservice.WithTools(
//	        mcpservice.NewTool[EchoArgs]("echo", echo,
//	            mcpservice.WithToolDescription("Echoes back the input message")),
//	    ),
//	    mcpservice.WithResources(
//	        mcpservice.NewTextResource(mcp.Resource{URI: "hello://world", Name: "Hello", MimeType: "text/plain"}, "Hello"),
//	    ),
//	)
//
// # Tools
//
// NewTool reflects the input schema from the argument struct with
// github.com/invopop/jsonschema. Struct fields without omitempty are required;
// a call that omits one, or supplies arguments that do not decode, fails with
// an *InvalidParamsError before the handler runs.
//
// # Prompts
//
// NewTemplatePrompt renders text/template message bodies against the caller's
// arguments, substituting declared defaults for omitted optional arguments.
// NewPrompt decodes arguments into a typed struct with
// github.com/mitchellh/mapstructure in weakly typed mode.
//
// # Errors
//
// Handlers report caller mistakes with InvalidParams. Any other error is an
// internal fault from the engine's point of view.
package mcpservice
