package mcpservice

import (
	"context"
	"testing"

	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedTool(name string) StaticTool {
	return NewTool[emptyArgs](name, func(ctx context.Context, w ToolResponseWriter, r *ToolRequest[emptyArgs]) error {
		return w.AppendText(name)
	})
}

func TestRegistry_PreservesRegistrationOrder(t *testing.T) {
	reg, err := NewRegistry(
		WithTools(namedTool("zeta"), namedTool("alpha")),
		WithTools(namedTool("mid")),
	)
	require.NoError(t, err)

	var names []string
	for _, tool := range reg.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	assert.Equal(t, 3, reg.Len(CategoryTools))
	assert.Equal(t, 0, reg.Len(CategoryResources))
	assert.Equal(t, 0, reg.Len(CategoryPrompts))
	assert.Equal(t, 0, reg.Len(Category("bogus")))
}

func TestRegistry_SnapshotsAreCopies(t *testing.T) {
	reg := MustRegistry(WithTools(namedTool("a")))
	tools := reg.Tools()
	tools[0].Name = "mutated"
	assert.Equal(t, "a", reg.Tools()[0].Name)
}

func TestRegistry_ResolveIsExactAndCaseSensitive(t *testing.T) {
	reg := MustRegistry(
		WithTools(namedTool("hello")),
		WithResources(NewTextResource(mcp.Resource{URI: "hello://world", Name: "w", MimeType: "text/plain"}, "hi")),
		WithPrompts(NewTemplatePrompt(PromptTemplate{Name: "greeting", Messages: []PromptTemplateMessage{{Text: "hi"}}})),
	)

	_, ok := reg.ResolveTool("hello")
	assert.True(t, ok)
	_, ok = reg.ResolveTool("Hello")
	assert.False(t, ok)
	_, ok = reg.ResolveTool("hello ")
	assert.False(t, ok)

	_, ok = reg.ResolveResource("hello://world")
	assert.True(t, ok)
	_, ok = reg.ResolveResource("hello://World")
	assert.False(t, ok)

	_, ok = reg.ResolvePrompt("greeting")
	assert.True(t, ok)
	_, ok = reg.ResolvePrompt("Greeting")
	assert.False(t, ok)
}

func TestRegistry_RejectsInvalidBindings(t *testing.T) {
	_, err := NewRegistry(WithTools(namedTool("dup"), namedTool("dup")))
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = NewRegistry(WithTools(StaticTool{Descriptor: mcp.Tool{Name: "x"}}))
	assert.ErrorIs(t, err, ErrNoHandler)

	_, err = NewRegistry(WithTools(namedTool("")))
	assert.ErrorIs(t, err, ErrEmptyName)

	res := NewTextResource(mcp.Resource{URI: "a://b", Name: "b"}, "")
	_, err = NewRegistry(WithResources(res, res))
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = NewRegistry(WithResources(NewTextResource(mcp.Resource{URI: "a://b", Name: "b", MimeType: "not a mime"}, "")))
	assert.Error(t, err)

	p := NewTemplatePrompt(PromptTemplate{Name: "p"})
	_, err = NewRegistry(WithPrompts(p, p))
	assert.ErrorIs(t, err, ErrDuplicateName)

	assert.Panics(t, func() { MustRegistry(WithTools(namedTool("dup"), namedTool("dup"))) })
}

func TestRegistry_EmptyIsValid(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Empty(t, reg.Tools())
	assert.NotNil(t, reg.Tools())
}
