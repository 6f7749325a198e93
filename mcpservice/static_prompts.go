package mcpservice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// PromptHandler handles a prompt get request to produce messages.
type PromptHandler func(ctx context.Context, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error)

// StaticPrompt pairs a prompt descriptor with a handler that can materialize it.
type StaticPrompt struct {
	Descriptor mcp.Prompt
	Handler    PromptHandler
}

// PromptArgument declares a template argument. Optional arguments that the
// caller omits are rendered with Default.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
	Default     string
}

// PromptTemplateMessage is one message of a template prompt. Text is a
// text/template body executed against the argument map, e.g. "Hello {{.name}}".
type PromptTemplateMessage struct {
	Role mcp.Role
	Text string
}

// PromptTemplate describes a prompt rendered from text templates.
type PromptTemplate struct {
	Name        string
	Description string
	Arguments   []PromptArgument
	Messages    []PromptTemplateMessage
}

// NewTemplatePrompt compiles t into a StaticPrompt. It panics if a message
// template does not parse, in the manner of template.Must; prompt templates
// are expected to be program constants.
func NewTemplatePrompt(t PromptTemplate) StaticPrompt {
	desc := mcp.Prompt{Name: t.Name, Description: t.Description}
	defaults := make(map[string]string, len(t.Arguments))
	var required []string
	for _, a := range t.Arguments {
		desc.Arguments = append(desc.Arguments, mcp.PromptArgument{
			Name:        a.Name,
			Description: a.Description,
			Required:    a.Required,
		})
		if a.Required {
			required = append(required, a.Name)
		} else {
			defaults[a.Name] = a.Default
		}
	}

	type compiled struct {
		role mcp.Role
		tmpl *template.Template
	}
	msgs := make([]compiled, 0, len(t.Messages))
	for i, m := range t.Messages {
		role := m.Role
		if role == "" {
			role = mcp.RoleUser
		}
		tmpl := template.Must(template.New(fmt.Sprintf("%s#%d", t.Name, i)).Option("missingkey=zero").Parse(m.Text))
		msgs = append(msgs, compiled{role: role, tmpl: tmpl})
	}

	handler := func(ctx context.Context, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error) {
		args, err := decodePromptArguments(req.Arguments)
		if err != nil {
			return nil, err
		}
		for _, name := range required {
			if _, ok := args[name]; !ok {
				return nil, InvalidParams("missing required argument: %s", name)
			}
		}
		for name, def := range defaults {
			if _, ok := args[name]; !ok {
				args[name] = def
			}
		}

		res := &mcp.GetPromptResult{Description: t.Description, Messages: make([]mcp.PromptMessage, 0, len(msgs))}
		for _, m := range msgs {
			var sb strings.Builder
			if err := m.tmpl.Execute(&sb, args); err != nil {
				return nil, fmt.Errorf("render prompt %s: %w", t.Name, err)
			}
			res.Messages = append(res.Messages, mcp.PromptMessage{Role: m.role, Content: mcp.TextContent(sb.String())})
		}
		return res, nil
	}

	return StaticPrompt{Descriptor: desc, Handler: handler}
}

// PromptOption configures NewPrompt behavior.
type PromptOption func(*promptConfig)

type promptConfig struct {
	description string
}

// WithPromptDescription sets the prompt description used in listings.
func WithPromptDescription(desc string) PromptOption {
	return func(c *promptConfig) { c.description = desc }
}

// NewPrompt constructs a StaticPrompt from a typed argument struct A. The
// argument list is reflected from A's json and jsonschema tags; fields without
// omitempty are required and a `jsonschema:"default=..."` tag supplies the value
// used when an optional argument is omitted. Arguments are decoded weakly, so
// a client sending 3 for a string field is accepted.
func NewPrompt[A any](name string, fn func(ctx context.Context, args A) ([]mcp.PromptMessage, error), opts ...PromptOption) StaticPrompt {
	cfg := promptConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	s := r.Reflect(new(A))

	desc := mcp.Prompt{Name: name, Description: cfg.description}
	defaults := map[string]any{}
	requiredSet := map[string]bool{}
	var required []string
	if s != nil {
		for _, req := range s.Required {
			requiredSet[req] = true
			required = append(required, req)
		}
		if s.Properties != nil {
			for el := s.Properties.Oldest(); el != nil; el = el.Next() {
				desc.Arguments = append(desc.Arguments, mcp.PromptArgument{
					Name:        el.Key,
					Description: el.Value.Description,
					Required:    requiredSet[el.Key],
				})
				if el.Value.Default != nil {
					defaults[el.Key] = el.Value.Default
				}
			}
		}
	}

	handler := func(ctx context.Context, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error) {
		raw, err := rawPromptArguments(req.Arguments)
		if err != nil {
			return nil, err
		}
		for _, name := range required {
			if _, ok := raw[name]; !ok {
				return nil, InvalidParams("missing required argument: %s", name)
			}
		}
		for k, v := range defaults {
			if _, ok := raw[k]; !ok {
				raw[k] = v
			}
		}

		var a A
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &a,
			TagName:          "json",
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, fmt.Errorf("prompt %s: argument decoder: %w", name, err)
		}
		if err := dec.Decode(raw); err != nil {
			return nil, InvalidParams("invalid arguments: %v", err)
		}

		msgs, err := fn(ctx, a)
		if err != nil {
			return nil, err
		}
		if msgs == nil {
			msgs = []mcp.PromptMessage{}
		}
		return &mcp.GetPromptResult{Description: cfg.description, Messages: msgs}, nil
	}

	return StaticPrompt{Descriptor: desc, Handler: handler}
}

// rawPromptArguments unmarshals each argument value, dropping explicit nulls so
// they are treated like omitted arguments.
func rawPromptArguments(in map[string]json.RawMessage) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, InvalidParams("invalid argument %s: %v", k, err)
		}
		if val == nil {
			continue
		}
		out[k] = val
	}
	return out, nil
}

// decodePromptArguments converts scalar argument values to strings. Objects
// and arrays are rejected.
func decodePromptArguments(in map[string]json.RawMessage) (map[string]string, error) {
	raw, err := rawPromptArguments(in)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	if err := mapstructure.WeakDecode(raw, &out); err != nil {
		return nil, InvalidParams("invalid arguments: %v", err)
	}
	return out, nil
}

// PromptsContainer owns an immutable, ordered set of prompt descriptors and
// handlers.
type PromptsContainer struct {
	prompts  []mcp.Prompt
	handlers map[string]PromptHandler // name -> handler
}

func newPromptsContainer(defs ...StaticPrompt) (*PromptsContainer, error) {
	sp := &PromptsContainer{
		prompts:  make([]mcp.Prompt, 0, len(defs)),
		handlers: make(map[string]PromptHandler, len(defs)),
	}
	for _, d := range defs {
		name := d.Descriptor.Name
		if name == "" {
			return nil, ErrEmptyName
		}
		if d.Handler == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoHandler, name)
		}
		if _, exists := sp.handlers[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		sp.prompts = append(sp.prompts, d.Descriptor)
		sp.handlers[name] = d.Handler
	}
	return sp, nil
}

// Snapshot returns a copy of the prompt descriptors.
func (sp *PromptsContainer) Snapshot() []mcp.Prompt {
	out := make([]mcp.Prompt, len(sp.prompts))
	copy(out, sp.prompts)
	return out
}

// Len returns the number of registered prompts.
func (sp *PromptsContainer) Len() int { return len(sp.prompts) }

// Resolve returns the handler registered under name.
func (sp *PromptsContainer) Resolve(name string) (PromptHandler, bool) {
	h, ok := sp.handlers[name]
	return h, ok
}
