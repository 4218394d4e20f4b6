// Package lsp is the stdio language server: it publishes diagnostics for
// open documents and answers code action, hover, definition, references,
// document symbol and completion requests.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"winter/internal/diag"
	"winter/internal/lint"
	"winter/internal/source"
	"winter/internal/symbols"
)

var log = commonlog.GetLogger("winter.lsp")

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Engine         *lint.Engine
	Debounce       time.Duration
	MaxDiagnostics int // per document
	Version        string
	// NoWorkspaceScan skips indexing files on disk under the workspace root.
	NoWorkspaceScan bool
}

// Server handles stdio JSON-RPC for the winter language server.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex

	engine         *lint.Engine
	debounce       time.Duration
	maxDiagnostics int
	version        string
	scan           bool

	mu                sync.Mutex
	baseCtx           context.Context
	initialized       bool
	shutdownRequested bool
	root              string
	docs              map[string]*document // by canonical URI
	disk              map[string]diskEntry // workspace files by path
	published         map[string]struct{}
	files             *source.FileSet
	debounceTimer     *time.Timer
	analysisSeq       uint64
	meta              map[string]diag.RuleMeta
}

type diskEntry struct {
	bundle string
	index  *symbols.Index
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	maxDiagnostics := opts.MaxDiagnostics
	if maxDiagnostics <= 0 {
		maxDiagnostics = 500
	}
	s := &Server{
		in:             bufio.NewReader(in),
		out:            bufio.NewWriter(out),
		engine:         opts.Engine,
		debounce:       debounce,
		maxDiagnostics: maxDiagnostics,
		version:        opts.Version,
		scan:           !opts.NoWorkspaceScan,
		baseCtx:        context.Background(),
		docs:           make(map[string]*document),
		disk:           make(map[string]diskEntry),
		published:      make(map[string]struct{}),
		files:          source.NewFileSet(),
		meta:           make(map[string]diag.RuleMeta),
	}
	for _, m := range opts.Engine.RuleMeta() {
		s.meta[m.ID] = m
	}
	return s
}

// Run serves LSP requests until exit or EOF. A clean exit returns ErrExit.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	defer s.stopTimer()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warningf("failed to parse message: %v", err)
			if sendErr := s.sendError(nil, codeParseError, "parse error"); sendErr != nil {
				return sendErr
			}
			continue
		}
		if msg.Method == "" {
			continue
		}
		log.Debugf("<- %s", msg.Method)
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

type requestHandler func(params json.RawMessage) (any, error)

// errInvalidParams marks a params decoding failure in a request handler.
var errInvalidParams = errors.New("invalid params")

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.respond(msg, s.handleInitialize)
	case "initialized":
		return nil
	case "shutdown":
		return s.respond(msg, s.handleShutdown)
	case "exit":
		s.mu.Lock()
		requested := s.shutdownRequested
		s.mu.Unlock()
		if requested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	}

	s.mu.Lock()
	ready := s.initialized
	s.mu.Unlock()
	if !ready {
		if msg.isRequest() {
			return s.sendError(msg.ID, codeNotInitialized, "server not initialized")
		}
		return nil
	}

	switch msg.Method {
	case "textDocument/didOpen":
		return s.notify(msg, s.handleDidOpen)
	case "textDocument/didChange":
		return s.notify(msg, s.handleDidChange)
	case "textDocument/didSave":
		return s.notify(msg, s.handleDidSave)
	case "textDocument/didClose":
		return s.notify(msg, s.handleDidClose)
	case "textDocument/codeAction":
		return s.respond(msg, s.handleCodeAction)
	case "textDocument/hover":
		return s.respond(msg, s.handleHover)
	case "textDocument/definition":
		return s.respond(msg, s.handleDefinition)
	case "textDocument/references":
		return s.respond(msg, s.handleReferences)
	case "textDocument/documentSymbol":
		return s.respond(msg, s.handleDocumentSymbol)
	case "textDocument/completion":
		return s.respond(msg, s.handleCompletion)
	default:
		if msg.isRequest() {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) respond(msg *rpcMessage, h requestHandler) error {
	result, err := h(msg.Params)
	if err != nil {
		if errors.Is(err, errInvalidParams) {
			return s.sendError(msg.ID, codeInvalidParams, err.Error())
		}
		log.Errorf("%s: %v", msg.Method, err)
		return s.sendError(msg.ID, codeInternalError, err.Error())
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) notify(msg *rpcMessage, h func(json.RawMessage) error) error {
	if err := h(msg.Params); err != nil {
		log.Warningf("%s: %v", msg.Method, err)
	}
	return nil
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errInvalidParams
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Join(errInvalidParams, err)
	}
	return nil
}

func (s *Server) handleInitialize(raw json.RawMessage) (any, error) {
	var params protocol.InitializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, errors.Join(errInvalidParams, err)
		}
	}
	root := ""
	if params.RootURI != nil {
		root = uriToPath(*params.RootURI)
	}
	if root == "" && params.RootPath != nil {
		root = *params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}

	s.mu.Lock()
	s.root = root
	s.initialized = true
	scan := s.scan && root != ""
	s.mu.Unlock()
	if scan {
		go s.scanWorkspace(root)
	}

	syncKind := protocol.TextDocumentSyncKindIncremental
	actionKinds := []protocol.CodeActionKind{protocol.CodeActionKindQuickFix, kindQuickFixSafe, kindQuickFixUnsafe}
	reg := s.engine.Registry()

	capabilities := protocol.ServerCapabilities{
		TextDocumentSync: protocol.TextDocumentSyncOptions{
			OpenClose: &protocol.True,
			Change:    &syncKind,
			Save:      protocol.SaveOptions{IncludeText: &protocol.True},
		},
		CodeActionProvider:     protocol.CodeActionOptions{CodeActionKinds: actionKinds},
		HoverProvider:          true,
		DefinitionProvider:     true,
		ReferencesProvider:     true,
		DocumentSymbolProvider: true,
		CompletionProvider: &protocol.CompletionOptions{
			TriggerCharacters: reg.TriggerCharacters(),
		},
	}
	version := s.version
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo:   &protocol.InitializeResultServerInfo{Name: "winter", Version: &version},
	}, nil
}

func (s *Server) handleShutdown(json.RawMessage) (any, error) {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.stopTimer()
	s.clearPublishedDiagnostics()
	return nil, nil
}

func (s *Server) stopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	var rawID any = id
	if len(id) == 0 {
		rawID = nil
	}
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      rawID,
		"error":   rpcError{Code: code, Message: message},
	}
	return s.send(msg)
}

func (s *Server) sendNotification(method string, params any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}
