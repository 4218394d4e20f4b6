package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"winter/internal/diag"
	"winter/internal/dialect/wix"
	"winter/internal/lint"
	"winter/internal/plugin"
	"winter/internal/source"
)

const product = `<Wix>
  <Fragment>
    <ComponentGroup Id="Group">
      <Component Id="cmpA">
      </Component>
    </ComponentGroup>
    <ComponentGroupRef Id="Group"/>
    <ComponentGroupRef Id="Missing"/>
  </Fragment>
</Wix>
`

type testClient struct {
	t      *testing.T
	w      *io.PipeWriter
	msgs   chan rpcMessage
	stash  []rpcMessage
	nextID int
	done   chan error
	cancel context.CancelFunc
}

func startServer(t *testing.T) *testClient {
	t.Helper()
	engine := lint.New(plugin.NewRegistry(wix.New()), nil, lint.Options{})
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	srv := NewServer(inR, outW, ServerOptions{
		Engine:          engine,
		Debounce:        time.Millisecond,
		Version:         "test",
		NoWorkspaceScan: true,
	})
	ctx, cancel := context.WithCancel(context.Background())
	c := &testClient{t: t, w: inW, msgs: make(chan rpcMessage, 64), done: make(chan error, 1), cancel: cancel}
	go func() {
		c.done <- srv.Run(ctx)
		outW.Close()
	}()
	go func() {
		r := bufio.NewReader(outR)
		for {
			payload, err := readMessage(r)
			if err != nil {
				close(c.msgs)
				return
			}
			var msg rpcMessage
			if json.Unmarshal(payload, &msg) == nil {
				c.msgs <- msg
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		inW.Close()
		outR.Close()
	})
	return c
}

func (c *testClient) write(msg map[string]any) {
	c.t.Helper()
	msg["jsonrpc"] = "2.0"
	payload, err := json.Marshal(msg)
	if err != nil {
		c.t.Fatalf("marshal: %v", err)
	}
	if err := writeMessage(c.w, payload); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *testClient) receive() rpcMessage {
	c.t.Helper()
	select {
	case msg, ok := <-c.msgs:
		if !ok {
			c.t.Fatal("server closed the stream")
		}
		return msg
	case <-time.After(5 * time.Second):
		c.t.Fatal("timed out waiting for server")
	}
	return rpcMessage{}
}

func (c *testClient) request(method string, params any) rpcMessage {
	c.t.Helper()
	c.nextID++
	id := c.nextID
	c.write(map[string]any{"id": id, "method": method, "params": params})
	want := fmt.Sprint(id)
	for {
		msg := c.receive()
		if msg.Method != "" {
			c.stash = append(c.stash, msg)
			continue
		}
		if string(msg.ID) == want {
			return msg
		}
	}
}

func (c *testClient) notify(method string, params any) {
	c.t.Helper()
	c.write(map[string]any{"method": method, "params": params})
}

// waitDiagnostics returns the next publish for uri.
func (c *testClient) waitDiagnostics(uri string) []wireDiagnostic {
	c.t.Helper()
	for {
		var msg rpcMessage
		if len(c.stash) > 0 {
			msg, c.stash = c.stash[0], c.stash[1:]
		} else {
			msg = c.receive()
		}
		if msg.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var params struct {
			URI         string           `json:"uri"`
			Diagnostics []wireDiagnostic `json:"diagnostics"`
		}
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			c.t.Fatalf("decode publish: %v", err)
		}
		if params.URI == uri {
			return params.Diagnostics
		}
	}
}

func decodeResult(t *testing.T, msg rpcMessage, v any) {
	t.Helper()
	if msg.Error != nil {
		t.Fatalf("unexpected error %d: %s", msg.Error.Code, msg.Error.Message)
	}
	if err := json.Unmarshal(msg.Result, v); err != nil {
		t.Fatalf("decode result: %v (%s)", err, msg.Result)
	}
}

type wireDiagnostic struct {
	Range    protocol.Range `json:"range"`
	Severity int            `json:"severity"`
	Code     string         `json:"code"`
	Source   string         `json:"source"`
	Message  string         `json:"message"`
}

func findDiagnostic(ds []wireDiagnostic, code string) (wireDiagnostic, bool) {
	for _, d := range ds {
		if d.Code == code {
			return d, true
		}
	}
	return wireDiagnostic{}, false
}

func position(uri string, line, char int) map[string]any {
	return map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": line, "character": char},
	}
}

func openProduct(t *testing.T, c *testClient) string {
	t.Helper()
	uri := pathToURI(filepath.Join(t.TempDir(), "Product.wxs"))
	init := c.request("initialize", map[string]any{"capabilities": map[string]any{}})
	var result struct {
		Capabilities struct {
			TextDocumentSync   json.RawMessage `json:"textDocumentSync"`
			CodeActionProvider json.RawMessage `json:"codeActionProvider"`
			HoverProvider      bool            `json:"hoverProvider"`
		} `json:"capabilities"`
	}
	decodeResult(t, init, &result)
	if !result.Capabilities.HoverProvider || len(result.Capabilities.CodeActionProvider) == 0 {
		t.Fatalf("missing capabilities: %s", init.Result)
	}
	c.notify("initialized", map[string]any{})
	c.notify("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{"uri": uri, "languageId": "wix", "version": 1, "text": product},
	})
	return uri
}

func TestPublishDiagnostics(t *testing.T) {
	c := startServer(t)
	uri := openProduct(t, c)

	ds := c.waitDiagnostics(uri)
	ref, ok := findDiagnostic(ds, "invalid-reference")
	if !ok {
		t.Fatalf("expected invalid-reference, got %+v", ds)
	}
	if ref.Range.Start.Line != 7 || ref.Range.Start.Character != 4 {
		t.Fatalf("unexpected range %+v", ref.Range)
	}
	if ref.Severity != 1 || ref.Source != "winter" || !strings.Contains(ref.Message, "Missing") {
		t.Fatalf("unexpected diagnostic %+v", ref)
	}
	guid, ok := findDiagnostic(ds, "component-requires-guid")
	if !ok || guid.Range.Start.Line != 3 || guid.Severity != 2 {
		t.Fatalf("expected component-requires-guid on line 3, got %+v", ds)
	}

	// после правки, ломающей разметку, приходит parse-error
	c.notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": 2},
		"contentChanges": []any{map[string]any{"text": "<Wix>\n  <Fragment>\n"}},
	})
	ds = c.waitDiagnostics(uri)
	if _, ok := findDiagnostic(ds, "parse-error"); !ok {
		t.Fatalf("expected parse-error, got %+v", ds)
	}

	c.notify("textDocument/didClose", map[string]any{"textDocument": map[string]any{"uri": uri}})
	if ds := c.waitDiagnostics(uri); len(ds) != 0 {
		t.Fatalf("close must clear diagnostics, got %+v", ds)
	}
}

func TestCodeActions(t *testing.T) {
	c := startServer(t)
	uri := openProduct(t, c)
	c.waitDiagnostics(uri)

	resp := c.request("textDocument/codeAction", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"range": map[string]any{
			"start": map[string]any{"line": 3, "character": 0},
			"end":   map[string]any{"line": 3, "character": 10},
		},
		"context": map[string]any{"diagnostics": []any{}},
	})
	var actions []struct {
		Title       string `json:"title"`
		Kind        string `json:"kind"`
		IsPreferred bool   `json:"isPreferred"`
		Edit        struct {
			Changes map[string][]protocol.TextEdit `json:"changes"`
		} `json:"edit"`
	}
	decodeResult(t, resp, &actions)
	if len(actions) != 1 {
		t.Fatalf("expected one action, got %s", resp.Result)
	}
	a := actions[0]
	if a.Kind != "quickfix.safe" || !a.IsPreferred || a.Title != `Add Guid="*"` {
		t.Fatalf("unexpected action %+v", a)
	}
	edits := a.Edit.Changes[uri]
	if len(edits) != 1 || edits[0].NewText != `      <Component Id="cmpA" Guid="*">` {
		t.Fatalf("unexpected edits %+v", edits)
	}
	if edits[0].Range.Start.Line != 3 || edits[0].Range.Start.Character != 0 || edits[0].Range.End.Character != 27 {
		t.Fatalf("unexpected edit range %+v", edits[0].Range)
	}

	// only=refactor отфильтровывает quick fix
	resp = c.request("textDocument/codeAction", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"range": map[string]any{
			"start": map[string]any{"line": 0, "character": 0},
			"end":   map[string]any{"line": 10, "character": 0},
		},
		"context": map[string]any{"diagnostics": []any{}, "only": []string{"refactor"}},
	})
	var none []json.RawMessage
	decodeResult(t, resp, &none)
	if len(none) != 0 {
		t.Fatalf("expected no actions, got %s", resp.Result)
	}
}

func TestNavigation(t *testing.T) {
	c := startServer(t)
	uri := openProduct(t, c)
	c.waitDiagnostics(uri)

	var locs []protocol.Location
	decodeResult(t, c.request("textDocument/definition", position(uri, 6, 6)), &locs)
	if len(locs) != 1 || locs[0].URI != uri || locs[0].Range.Start.Line != 2 || locs[0].Range.Start.Character != 4 {
		t.Fatalf("unexpected definition %+v", locs)
	}

	params := position(uri, 2, 6)
	params["context"] = map[string]any{"includeDeclaration": true}
	decodeResult(t, c.request("textDocument/references", params), &locs)
	if len(locs) != 2 || locs[0].Range.Start.Line != 2 || locs[1].Range.Start.Line != 6 {
		t.Fatalf("unexpected references %+v", locs)
	}

	var hover struct {
		Contents struct {
			Kind  string `json:"kind"`
			Value string `json:"value"`
		} `json:"contents"`
	}
	decodeResult(t, c.request("textDocument/hover", position(uri, 3, 8)), &hover)
	if hover.Contents.Kind != "markdown" || !strings.Contains(hover.Contents.Value, "component-requires-guid") {
		t.Fatalf("unexpected hover %+v", hover)
	}

	var syms []struct {
		Name     string            `json:"name"`
		Children []json.RawMessage `json:"children"`
	}
	decodeResult(t, c.request("textDocument/documentSymbol", map[string]any{"textDocument": map[string]any{"uri": uri}}), &syms)
	if len(syms) == 0 {
		t.Fatal("expected document symbols")
	}
}

func TestLifecycle(t *testing.T) {
	c := startServer(t)

	resp := c.request("textDocument/hover", position("file:///x.wxs", 0, 0))
	if resp.Error == nil || resp.Error.Code != codeNotInitialized {
		t.Fatalf("expected not initialized error, got %+v", resp)
	}

	c.request("initialize", map[string]any{})
	resp = c.request("workspace/symbol", map[string]any{"query": ""})
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp)
	}

	resp = c.request("shutdown", nil)
	if resp.Error != nil {
		t.Fatalf("shutdown: %+v", resp.Error)
	}
	c.notify("exit", nil)
	select {
	case err := <-c.done:
		if !errors.Is(err, ErrExit) {
			t.Fatalf("expected ErrExit, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit")
	}
}

func TestExitWithoutShutdown(t *testing.T) {
	c := startServer(t)
	c.notify("exit", nil)
	select {
	case err := <-c.done:
		if !errors.Is(err, ErrExitWithoutShutdown) {
			t.Fatalf("expected ErrExitWithoutShutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit")
	}
}

func TestDisplayFixIsDisabledAction(t *testing.T) {
	src := "<Wix>\n  <File Source=\"C:\\build\\app.exe\"/>\n</Wix>\n"
	f := source.NewFile("a.wxs", []byte(src))
	d := diag.New(diag.SevWarning, "file-hardcoded-path", source.Location{File: "a.wxs", Line: 2, Column: 3}, "hardcoded path")
	d.Fix = &diag.Fix{
		Description: "Use a preprocessor variable",
		Replacement: `  <File Source="$(var.SourceDir)\app.exe"/>`,
		Line:        2,
		Safety:      diag.SafetyDisplay,
	}

	action := codeAction("file:///a.wxs", f, protocol.Diagnostic{}, d)
	if action.Edit != nil {
		t.Fatalf("display fix must not carry an edit: %+v", action.Edit)
	}
	if action.Disabled == nil || !strings.Contains(action.Disabled.Reason, "$(var.SourceDir)") {
		t.Fatalf("expected disabled reason, got %+v", action.Disabled)
	}
	if *action.IsPreferred || *action.Kind != kindQuickFixUnsafe {
		t.Fatalf("unexpected kind %v preferred %v", *action.Kind, *action.IsPreferred)
	}

	payload, err := json.Marshal(action)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(payload), `"disabled":{"reason":"manual change:`) {
		t.Fatalf("unexpected wire form %s", payload)
	}
}
