package mcpservice

import (
	"context"
	"fmt"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/mcp-stdio-go/mcp"
)

// ResourceReader produces the text body of the resource at uri.
type ResourceReader func(ctx context.Context, uri string) (string, error)

// StaticResource pairs a resource descriptor with the reader that produces its
// contents.
type StaticResource struct {
	Descriptor mcp.Resource
	Reader     ResourceReader
}

// Read materializes the resource as a read result, stamping the descriptor's
// URI and MIME type onto the contents.
func (r StaticResource) Read(ctx context.Context) (*mcp.ReadResourceResult, error) {
	text, err := r.Reader(ctx, r.Descriptor.URI)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []mcp.ResourceContents{{
			URI:      r.Descriptor.URI,
			MimeType: r.Descriptor.MimeType,
			Text:     text,
		}},
	}, nil
}

// NewTextResource returns a resource whose contents are the fixed string text.
func NewTextResource(desc mcp.Resource, text string) StaticResource {
	return StaticResource{
		Descriptor: desc,
		Reader:     func(context.Context, string) (string, error) { return text, nil },
	}
}

// NewResource returns a resource whose contents are produced by read on every
// resources/read call.
func NewResource(desc mcp.Resource, read ResourceReader) StaticResource {
	return StaticResource{Descriptor: desc, Reader: read}
}

// ResourcesContainer owns an immutable, ordered set of resources keyed by URI.
type ResourcesContainer struct {
	resources []StaticResource
	byURI     map[string]int
}

func newResourcesContainer(defs ...StaticResource) (*ResourcesContainer, error) {
	sr := &ResourcesContainer{
		resources: make([]StaticResource, 0, len(defs)),
		byURI:     make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		uri := d.Descriptor.URI
		if uri == "" {
			return nil, ErrEmptyName
		}
		if d.Reader == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoHandler, uri)
		}
		if _, exists := sr.byURI[uri]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, uri)
		}
		if err := validateMimeType(d.Descriptor.MimeType); err != nil {
			return nil, fmt.Errorf("resource %s: %w", uri, err)
		}
		sr.byURI[uri] = len(sr.resources)
		sr.resources = append(sr.resources, d)
	}
	return sr, nil
}

// validateMimeType accepts an empty value (no declared type) or a well-formed
// type/subtype media type.
func validateMimeType(s string) error {
	if s == "" {
		return nil
	}
	mt := contenttype.NewMediaType(s)
	if mt.Type == "" || mt.Subtype == "" {
		return fmt.Errorf("invalid mime type %q", s)
	}
	return nil
}

// Snapshot returns a copy of the resource descriptors.
func (sr *ResourcesContainer) Snapshot() []mcp.Resource {
	out := make([]mcp.Resource, len(sr.resources))
	for i, r := range sr.resources {
		out[i] = r.Descriptor
	}
	return out
}

// Len returns the number of registered resources.
func (sr *ResourcesContainer) Len() int { return len(sr.resources) }

// Resolve returns the binding registered under uri.
func (sr *ResourcesContainer) Resolve(uri string) (StaticResource, bool) {
	i, ok := sr.byURI[uri]
	if !ok {
		return StaticResource{}, false
	}
	return sr.resources[i], true
}
