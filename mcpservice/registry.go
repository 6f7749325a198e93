package mcpservice

import (
	"fmt"

	"github.com/ggoodman/mcp-stdio-go/mcp"
)

// Category names one of the capability families a Registry can hold.
type Category string

const (
	CategoryTools     Category = "tools"
	CategoryResources Category = "resources"
	CategoryPrompts   Category = "prompts"
)

// Registry is the immutable set of tools, resources and prompts bound to a
// session. Listing preserves registration order and lookups are exact,
// case-sensitive matches. A Registry is safe for concurrent reads.
type Registry struct {
	tools     *ToolsContainer
	resources *ResourcesContainer
	prompts   *PromptsContainer
}

// RegistryOption configures a Registry during construction.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	tools     []StaticTool
	resources []StaticResource
	prompts   []StaticPrompt
}

// WithTools appends tool bindings in the given order.
func WithTools(defs ...StaticTool) RegistryOption {
	return func(c *registryConfig) { c.tools = append(c.tools, defs...) }
}

// WithResources appends resource bindings in the given order.
func WithResources(defs ...StaticResource) RegistryOption {
	return func(c *registryConfig) { c.resources = append(c.resources, defs...) }
}

// WithPrompts appends prompt bindings in the given order.
func WithPrompts(defs ...StaticPrompt) RegistryOption {
	return func(c *registryConfig) { c.prompts = append(c.prompts, defs...) }
}

// NewRegistry validates the supplied bindings and freezes them into a Registry.
// Duplicate names or URIs within a category, missing handlers and malformed
// resource MIME types are rejected.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	var cfg registryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	tools, err := newToolsContainer(cfg.tools...)
	if err != nil {
		return nil, fmt.Errorf("tools: %w", err)
	}
	resources, err := newResourcesContainer(cfg.resources...)
	if err != nil {
		return nil, fmt.Errorf("resources: %w", err)
	}
	prompts, err := newPromptsContainer(cfg.prompts...)
	if err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}

	return &Registry{tools: tools, resources: resources, prompts: prompts}, nil
}

// MustRegistry is like NewRegistry but panics on error. It is intended for
// package-level capability sets whose validity is known at compile time.
func MustRegistry(opts ...RegistryOption) *Registry {
	r, err := NewRegistry(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Tools returns the tool descriptors in registration order.
func (r *Registry) Tools() []mcp.Tool { return r.tools.Snapshot() }

// Resources returns the resource descriptors in registration order.
func (r *Registry) Resources() []mcp.Resource { return r.resources.Snapshot() }

// Prompts returns the prompt descriptors in registration order.
func (r *Registry) Prompts() []mcp.Prompt { return r.prompts.Snapshot() }

// Len returns the number of bindings registered in category c.
func (r *Registry) Len(c Category) int {
	switch c {
	case CategoryTools:
		return r.tools.Len()
	case CategoryResources:
		return r.resources.Len()
	case CategoryPrompts:
		return r.prompts.Len()
	default:
		return 0
	}
}

// ResolveTool returns the handler bound to name.
func (r *Registry) ResolveTool(name string) (ToolHandler, bool) { return r.tools.Resolve(name) }

// ResolveResource returns the binding registered under uri.
func (r *Registry) ResolveResource(uri string) (StaticResource, bool) {
	return r.resources.Resolve(uri)
}

// ResolvePrompt returns the handler bound to name.
func (r *Registry) ResolvePrompt(name string) (PromptHandler, bool) { return r.prompts.Resolve(name) }
