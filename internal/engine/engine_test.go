package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
)

type addArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func testRegistry(t *testing.T) *mcpservice.Registry {
	t.Helper()
	num := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	reg, err := mcpservice.NewRegistry(
		mcpservice.WithTools(
			mcpservice.NewTool[addArgs]("add", func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[addArgs]) error {
				a := r.Args()
				return w.AppendText(num(a.A) + " + " + num(a.B) + " = " + num(a.A+a.B))
			}),
			mcpservice.StaticTool{
				Descriptor: mcp.Tool{Name: "explode", InputSchema: mcp.ToolInputSchema{Type: "object"}},
				Handler: func(ctx context.Context, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
					panic("kaboom")
				},
			},
			mcpservice.StaticTool{
				Descriptor: mcp.Tool{Name: "fail", InputSchema: mcp.ToolInputSchema{Type: "object"}},
				Handler: func(ctx context.Context, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
					return nil, errors.New("disk on fire")
				},
			},
		),
		mcpservice.WithResources(
			mcpservice.NewTextResource(mcp.Resource{URI: "hello://world", Name: "Hello", MimeType: "text/plain"}, "Hello, World!"),
		),
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func quietEngine(opts ...EngineOption) *Engine {
	opts = append([]EngineOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithServerInfo(mcp.ImplementationInfo{Name: "test-server", Version: "1.2.3"}),
	}, opts...)
	return NewEngine(opts...)
}

// roundTrip handles frame and returns the encoded response, or "" when no
// response was produced.
func roundTrip(t *testing.T, e *Engine, sess *Session, frame string) string {
	t.Helper()
	res := e.HandleFrame(context.Background(), sess, []byte(frame))
	if res == nil {
		return ""
	}
	b, err := jsonrpc.Encode(res)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(b)
}

type wireResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    any    `json:"data"`
	} `json:"error"`
}

func parse(t *testing.T, s string) wireResponse {
	t.Helper()
	var r wireResponse
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		t.Fatalf("response %q: %v", s, err)
	}
	return r
}

func expectError(t *testing.T, s string, code int) wireResponse {
	t.Helper()
	r := parse(t, s)
	if r.Error == nil {
		t.Fatalf("expected error %d, got %s", code, s)
	}
	if r.Error.Code != code {
		t.Fatalf("expected code %d, got %d (%s)", code, r.Error.Code, s)
	}
	if r.Result != nil {
		t.Fatalf("error response carries result: %s", s)
	}
	return r
}

func TestInitialize_AdvertisesNonEmptyCategories(t *testing.T) {
	e := quietEngine()
	sess := NewSession(testRegistry(t))
	if sess.State() != StateAwaitingInitialize {
		t.Fatalf("fresh session state %s", sess.State())
	}

	out := roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"tester","version":"0.1"}}}`)
	want := `{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05","capabilities":{"resources":{},"tools":{}},"serverInfo":{"name":"test-server","version":"1.2.3"}}}`
	if out != want {
		t.Fatalf("initialize result\n got: %s\nwant: %s", out, want)
	}
	if sess.State() != StateReady {
		t.Fatalf("session state after initialize: %s", sess.State())
	}
	if sess.ClientInfo().Name != "tester" {
		t.Fatalf("client info not recorded: %+v", sess.ClientInfo())
	}
}

func TestInitialize_VersionNegotiation(t *testing.T) {
	cases := []struct {
		requested string
		want      string
	}{
		{"2025-06-18", "2025-06-18"},
		{"2025-03-26", "2025-03-26"},
		{"1999-01-01", mcp.DefaultProtocolVersion},
		{"", mcp.DefaultProtocolVersion},
	}
	for _, tc := range cases {
		e := quietEngine()
		sess := NewSession(nil)
		out := roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"`+tc.requested+`"}}`)
		var res struct {
			Result mcp.InitializeResult `json:"result"`
		}
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if res.Result.ProtocolVersion != tc.want || sess.ProtocolVersion() != tc.want {
			t.Fatalf("requested %q: got %q want %q", tc.requested, res.Result.ProtocolVersion, tc.want)
		}
	}
}

func TestInitialize_ToleratesMalformedParams(t *testing.T) {
	e := quietEngine(WithProtocolVersion("2025-03-26"))
	sess := NewSession(nil)
	out := roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":"init","method":"initialize","params":[1,2,3]}`)
	r := parse(t, out)
	if r.Error != nil {
		t.Fatalf("initialize must not fail on odd params: %s", out)
	}
	if !strings.Contains(string(r.Result), `"protocolVersion":"2025-03-26"`) {
		t.Fatalf("expected preferred version: %s", out)
	}
	if !strings.Contains(string(r.Result), `"capabilities":{}`) {
		t.Fatalf("empty registry should advertise no capabilities: %s", out)
	}
}

func TestToolsList_WithoutInitializedNotification(t *testing.T) {
	e := quietEngine()
	sess := NewSession(testRegistry(t))
	roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	out := roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	var res struct {
		Result mcp.ListToolsResult `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var names []string
	for _, tool := range res.Result.Tools {
		names = append(names, tool.Name)
	}
	if strings.Join(names, ",") != "add,explode,fail" {
		t.Fatalf("tools out of order: %v", names)
	}
	if sess.InitializedSeen() {
		t.Fatalf("initialized was never sent")
	}
}

func TestPermissive_CallsBeforeInitialize(t *testing.T) {
	e := quietEngine()
	sess := NewSession(testRegistry(t))
	out := roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"add","arguments":{"a":1,"b":2}}}`)
	if parse(t, out).Error != nil {
		t.Fatalf("permissive engine rejected call: %s", out)
	}
}

func TestStrictHandshake(t *testing.T) {
	e := quietEngine(WithStrictHandshake(true))
	sess := NewSession(testRegistry(t))

	r := expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`), -32600)
	if r.Error.Data != ErrNotInitialized.Error() {
		t.Fatalf("unexpected data: %v", r.Error.Data)
	}
	if parse(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":2,"method":"ping"}`)).Error != nil {
		t.Fatalf("ping should be allowed before initialize")
	}
	// Unknown methods are still reported as such.
	expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":3,"method":"nope"}`), -32601)

	roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":4,"method":"initialize","params":{}}`)
	if parse(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":5,"method":"tools/list"}`)).Error != nil {
		t.Fatalf("tools/list should succeed after initialize")
	}
}

func TestNotifications_NeverProduceOutput(t *testing.T) {
	e := quietEngine()
	sess := NewSession(testRegistry(t))
	frames := []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"initialized"}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":7,"reason":"user"}}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled"}`,
		`{"jsonrpc":"2.0","method":"no/such/method"}`,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"explode"}}`,
		`{"jsonrpc":"1.0","method":"tools/list"}`,
		`{"method":"tools/list"}`,
		`{"jsonrpc":"2.0","result":{},"id":9}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized","Id":7}`,
		`{"jsonrpc":"2.0","method":"no/such/method","ID":"x"}`,
	}
	for _, f := range frames {
		if out := roundTrip(t, e, sess, f); out != "" {
			t.Fatalf("frame %s produced output %s", f, out)
		}
	}
	if !sess.InitializedSeen() {
		t.Fatalf("initialized notification not recorded")
	}
}

func TestCancelled_LogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	e := quietEngine(WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	sess := NewSession(nil)

	for _, f := range []string{
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":7,"reason":"user"}}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":"req-2"}}`,
	} {
		if out := roundTrip(t, e, sess, f); out != "" {
			t.Fatalf("cancelled produced output %s", out)
		}
	}

	var ids []any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log record %q: %v", line, err)
		}
		if rec["msg"] == "engine.cancelled.ignored" {
			ids = append(ids, rec["request_id"])
		}
	}
	if len(ids) != 2 || ids[0] != float64(7) || ids[1] != "req-2" {
		t.Fatalf("unexpected logged ids: %v", ids)
	}
}

func TestToolCall(t *testing.T) {
	e := quietEngine()
	sess := NewSession(testRegistry(t))

	out := roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":"a1","method":"tools/call","params":{"name":"add","arguments":{"a":5,"b":3}}}`)
	want := `{"jsonrpc":"2.0","id":"a1","result":{"content":[{"type":"text","text":"5 + 3 = 8"}]}}`
	if out != want {
		t.Fatalf("add result\n got: %s\nwant: %s", out, want)
	}
}

func TestToolCall_InvalidParams(t *testing.T) {
	e := quietEngine()
	sess := NewSession(testRegistry(t))

	r := expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"X"}}`), -32602)
	if r.Error.Message != "Invalid params" || r.Error.Data != "Unknown tool: X" {
		t.Fatalf("unexpected error object: %+v", r.Error)
	}

	expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{}}`), -32602)
	expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":"add"}`), -32602)
	r = expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"add","arguments":{"a":5}}}`), -32602)
	if r.Error.Data != "missing required argument: b" {
		t.Fatalf("unexpected data: %v", r.Error.Data)
	}
}

func TestToolCall_FaultsBecomeInternalError(t *testing.T) {
	e := quietEngine()
	sess := NewSession(testRegistry(t))

	r := expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"explode"}}`), -32603)
	if r.Error.Data != "kaboom" {
		t.Fatalf("panic description not carried: %v", r.Error.Data)
	}
	r = expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"fail"}}`), -32603)
	if r.Error.Data != "disk on fire" {
		t.Fatalf("error description not carried: %v", r.Error.Data)
	}

	// The session keeps working after a fault.
	if parse(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":3,"method":"ping"}`)).Error != nil {
		t.Fatalf("session broken after handler fault")
	}
}

func TestResources(t *testing.T) {
	e := quietEngine()
	sess := NewSession(testRegistry(t))

	out := roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"hello://world"}}`)
	want := `{"jsonrpc":"2.0","id":1,"result":{"contents":[{"uri":"hello://world","mimeType":"text/plain","text":"Hello, World!"}]}}`
	if out != want {
		t.Fatalf("read result\n got: %s\nwant: %s", out, want)
	}

	r := expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"hello://nowhere"}}`), -32602)
	if r.Error.Data != "Unknown resource: hello://nowhere" {
		t.Fatalf("unexpected data: %v", r.Error.Data)
	}

	out = roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":3,"method":"resources/list"}`)
	if !strings.Contains(out, `"resources":[{"uri":"hello://world","name":"Hello","mimeType":"text/plain"}]`) {
		t.Fatalf("unexpected list: %s", out)
	}
}

func TestPrompts_EmptyCategoryStillListed(t *testing.T) {
	e := quietEngine()
	sess := NewSession(testRegistry(t))

	out := roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`)
	if out != `{"jsonrpc":"2.0","id":1,"result":{"prompts":[]}}` {
		t.Fatalf("unexpected list: %s", out)
	}
	r := expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"greeting"}}`), -32602)
	if r.Error.Data != "Unknown prompt: greeting" {
		t.Fatalf("unexpected data: %v", r.Error.Data)
	}
}

func TestUnknownMethod(t *testing.T) {
	e := quietEngine()
	sess := NewSession(nil)
	r := expectError(t, roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":1,"method":"frobnicate"}`), -32601)
	if r.Error.Message != "Method not found" || r.Error.Data != "Unknown method: frobnicate" {
		t.Fatalf("unexpected error object: %+v", r.Error)
	}
}

func TestEnvelopeErrors(t *testing.T) {
	e := quietEngine()
	sess := NewSession(nil)

	cases := []struct {
		frame string
		code  int
		id    string
	}{
		{`{bad json`, -32700, "null"},
		{`[1,2]`, -32600, "null"},
		{`{"jsonrpc":"1.0","id":7,"method":"ping"}`, -32600, "7"},
		{`{"id":"x","method":"ping"}`, -32600, `"x"`},
		{`{"jsonrpc":"2.0","id":true,"method":"ping"}`, -32600, "null"},
		{`{"jsonrpc":"2.0","id":3}`, -32600, "3"},
		{`{"JSONRPC":"2.0","id":1,"method":"ping"}`, -32600, "1"},
		{`{"jsonrpc":"2.0","id":2,"Method":"ping"}`, -32600, "2"},
	}
	for _, tc := range cases {
		r := expectError(t, roundTrip(t, e, sess, tc.frame), tc.code)
		if string(r.ID) != tc.id {
			t.Fatalf("%s: id %s want %s", tc.frame, r.ID, tc.id)
		}
	}
}

func TestIdEchoedVerbatim(t *testing.T) {
	e := quietEngine()
	sess := NewSession(nil)
	for _, id := range []string{`1`, `1.0`, `-3`, `"req-1"`, `1e3`, `null`} {
		out := roundTrip(t, e, sess, `{"jsonrpc":"2.0","id":`+id+`,"method":"ping"}`)
		want := `{"jsonrpc":"2.0","id":` + id + `,"result":{}}`
		if out != want {
			t.Fatalf("got %s want %s", out, want)
		}
	}
}

func TestProcess_WritesResponsesInOrder(t *testing.T) {
	e := quietEngine()
	sess := NewSession(testRegistry(t))
	var out bytes.Buffer
	w := MessageWriterFunc(func(ctx context.Context, msg jsonrpc.Message) error {
		out.Write(msg)
		out.WriteByte('\n')
		return nil
	})

	input := "{bad json\n" +
		`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"add","arguments":{"a":5,"b":3}}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"pi`
	if err := e.Process(context.Background(), sess, []byte(input), w); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := e.Process(context.Background(), sess, []byte("ng\"}\n"), w); err != nil {
		t.Fatalf("process: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 responses, got %d: %q", len(lines), out.String())
	}
	expectError(t, lines[0], -32700)
	if !strings.Contains(lines[1], `"5 + 3 = 8"`) {
		t.Fatalf("unexpected second response: %s", lines[1])
	}
	if lines[2] != `{"jsonrpc":"2.0","id":2,"result":{}}` {
		t.Fatalf("unexpected third response: %s", lines[2])
	}
	if len(sess.Pending()) != 0 {
		t.Fatalf("unexpected pending input: %q", sess.Pending())
	}
}

func TestProcess_PropagatesWriteError(t *testing.T) {
	e := quietEngine()
	sess := NewSession(nil)
	boom := errors.New("pipe closed")
	w := MessageWriterFunc(func(ctx context.Context, msg jsonrpc.Message) error { return boom })
	err := e.Process(context.Background(), sess, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), w)
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
}
