// Package lsp implements the language server: a serial message-dispatch
// loop over stdio that tracks open shader documents, runs the lint pipeline
// on every change, and serves the static GLSL completion list.
package lsp

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"

	json "github.com/goccy/go-json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/mcglsl/mcglsl-ls/internal/completion"
	"github.com/mcglsl/mcglsl-ls/internal/config"
	"github.com/mcglsl/mcglsl-ls/internal/lint"
	"github.com/mcglsl/mcglsl-ls/internal/shader"
)

// Name and Version identify the server in initialize responses.
const (
	Name    = "mcglsl-ls"
	Version = "0.1.0"
)

// Lifecycle states. The zero value is uninitialized on purpose.
const (
	stateUninitialized int32 = iota
	stateInitialized
	stateListening
	stateShutdown
)

// Host is the slice of the client connection the server talks back
// through. protocol.Client satisfies it; tests install a recorder.
type Host interface {
	PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) error
	ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) error
	LogMessage(ctx context.Context, params *protocol.LogMessageParams) error
}

// Notifier carries server-initiated notifications that are not part of the
// protocol.Client surface, like the mcglsl/status updates.
type Notifier interface {
	Notify(ctx context.Context, method string, params interface{}) error
}

// Server holds all per-connection state. Handlers run one at a time on the
// connection's dispatch goroutine; the only cross-cutting value is the
// Config snapshot, which is swapped atomically and never mutated.
type Server struct {
	host     Host
	notifier Notifier
	logger   *zap.Logger
	logLevel zap.AtomicLevel

	state atomic.Int32
	cfg   atomic.Pointer[config.Config]

	documentManager *DocumentManager
	linter          *lint.Linter
	completions     *completion.Provider

	workspaceRoot string
	configOpts    []config.Option

	// published tracks, per linted document, which URIs currently show
	// findings from that document's last run, so the next run can clear
	// the ones that went away.
	published map[protocol.DocumentURI]map[protocol.DocumentURI]bool
}

// NewServer wires the server. logLevel must be the level the logger was
// built with, so the logLevel setting can retune verbosity at runtime.
func NewServer(logger *zap.Logger, logLevel zap.AtomicLevel) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	completions, err := completion.NewProvider()
	if err != nil {
		return nil, fmt.Errorf("loading completion data: %w", err)
	}

	return &Server{
		logger:          logger,
		logLevel:        logLevel,
		documentManager: NewDocumentManager(),
		linter:          lint.New(nil, logger),
		completions:     completions,
		published:       make(map[protocol.DocumentURI]map[protocol.DocumentURI]bool),
	}, nil
}

// SetConnection attaches the client side of conn for server-initiated
// messages. Call it before the connection starts dispatching.
func (s *Server) SetConnection(conn jsonrpc2.Conn) {
	s.host = protocol.ClientDispatcher(conn, s.logger.Named("client"))
	s.notifier = conn
}

// SetClient replaces the outbound client surface; tests install a recorder.
func (s *Server) SetClient(host Host) {
	s.host = host
}

// SetRunner swaps the validator runner; tests substitute canned output.
func (s *Server) SetRunner(runner lint.Runner) {
	s.linter = lint.New(runner, s.logger)
}

// SetConfigOptions applies construction overrides to every Config this
// server builds; tests pin the temp root and platform.
func (s *Server) SetConfigOptions(opts ...config.Option) {
	s.configOpts = opts
}

func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if s.state.Load() != stateUninitialized {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidRequest, "server is already initialized")
	}

	root := workspaceRootPath(params)
	if root == "" {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "mcglsl-ls must be run inside a workspace")
	}
	s.workspaceRoot = root

	settings, _, err := config.ParseSettings(params.InitializationOptions)
	if err != nil {
		s.logger.Warn("ignoring invalid initializationOptions", zap.Error(err))
		settings = config.Settings{}
	}

	cfg, err := config.New(settings, root, s.configOpts...)
	if err != nil {
		return nil, jsonrpc2.Errorf(jsonrpc2.InternalError, "deriving configuration: %v", err)
	}
	s.cfg.Store(cfg)
	s.logLevel.SetLevel(cfg.LogLevel)
	s.state.Store(stateInitialized)

	s.logger.Info("initialized",
		zap.String("workspaceRoot", root),
		zap.String("shadersDir", cfg.ShadersDir),
		zap.String("tempDir", cfg.TempDir))

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: true,
			},
			DocumentLinkProvider: &protocol.DocumentLinkOptions{},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    Name,
			Version: Version,
		},
	}, nil
}

func (s *Server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	s.state.Store(stateListening)
	s.sendStatus(ctx, statusLoading, "Starting up...")

	if cfg := s.cfg.Load(); cfg != nil {
		s.checkValidator(ctx, cfg)
		s.logger.Info("scanned shader pack",
			zap.String("shadersDir", cfg.ShadersDir),
			zap.Int("programs", len(shader.ScanPrograms(cfg.ShadersDir))))
	}

	s.sendStatus(ctx, statusReady, "Ready")
	s.logger.Info("listening")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.state.Store(stateShutdown)
	s.logger.Info("shutting down")
	return nil
}

func (s *Server) Exit(ctx context.Context) error {
	s.logger.Info("exiting")
	return nil
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	td := params.TextDocument
	s.documentManager.OpenDocument(td.URI, td.Version, td.Text)
	s.lintDocument(ctx, td.URI)
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}

	// Full-document sync: the last change carries the complete text.
	last := params.ContentChanges[len(params.ContentChanges)-1]
	s.documentManager.UpdateDocument(params.TextDocument.URI, params.TextDocument.Version, last.Text)
	s.lintDocument(ctx, params.TextDocument.URI)
	return nil
}

func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	if params.Text != "" {
		version := int32(0)
		if doc, ok := s.documentManager.GetDocument(uri); ok {
			version = doc.Version
		}
		s.documentManager.UpdateDocument(uri, version, params.Text)
	}
	s.lintDocument(ctx, uri)
	return nil
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.documentManager.CloseDocument(uri)
	s.clearDiagnostics(ctx, uri)
	return nil
}

func (s *Server) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	settings, ours, err := config.ParseSettings(params.Settings)
	if !ours {
		return nil
	}
	if err != nil {
		s.logger.Warn("rejected settings change", zap.Error(err))
		s.showMessage(ctx, protocol.MessageTypeWarning, err.Error())
		return nil
	}

	cfg, err := config.New(settings, s.workspaceRoot, s.configOpts...)
	if err != nil {
		s.logger.Warn("rebuilding configuration failed", zap.Error(err))
		s.showMessage(ctx, protocol.MessageTypeWarning, fmt.Sprintf("mcglsl configuration not applied: %v", err))
		return nil
	}

	s.cfg.Store(cfg)
	s.logLevel.SetLevel(cfg.LogLevel)
	s.logger.Info("configuration replaced",
		zap.String("validator", cfg.ValidatorPath),
		zap.String("shadersDir", cfg.ShadersDir),
		zap.Int("programs", len(shader.ScanPrograms(cfg.ShadersDir))))

	s.sendStatus(ctx, statusLoading, "Applying configuration...")
	s.checkValidator(ctx, cfg)
	s.lintOpenDocuments(ctx)
	s.sendStatus(ctx, statusReady, "Ready")
	return nil
}

func (s *Server) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	if len(params.Changes) == 0 {
		return nil
	}
	// Include files may have changed underneath open documents; the staged
	// mirrors are rebuilt from disk on the next run, so sweep them all.
	s.lintOpenDocuments(ctx)
	return nil
}

func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        s.completions.Items(),
	}, nil
}

func (s *Server) CompletionResolve(ctx context.Context, item *protocol.CompletionItem) (*protocol.CompletionItem, error) {
	id, ok := completionID(item.Data)
	if !ok {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "completion item %q carries no id", item.Label)
	}

	resolved, err := s.completions.Resolve(id)
	if err != nil {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err)
	}
	return &resolved, nil
}

// lintDocument runs the pipeline for one document snapshot and publishes
// the outcome. Documents that are not shader sources, or whose URIs do not
// point at the filesystem, are skipped without publishing anything.
func (s *Server) lintDocument(ctx context.Context, uri protocol.DocumentURI) {
	cfg := s.cfg.Load()
	if cfg == nil {
		return
	}
	doc, ok := s.documentManager.GetDocument(uri)
	if !ok {
		return
	}
	path, ok := filePath(uri)
	if !ok || !shader.HasShaderExtension(path, cfg.Extensions) {
		return
	}

	diags := s.linter.Run(ctx, cfg, lint.Document{URI: uri, Path: path, Content: doc.Content})
	s.publishDiagnostics(ctx, uri, diags)
}

// lintOpenDocuments sweeps every open document through the pipeline, used
// after configuration changes and watched-file updates.
func (s *Server) lintOpenDocuments(ctx context.Context) {
	for _, doc := range s.documentManager.AllDocuments() {
		s.lintDocument(ctx, doc.URI)
	}
}

// checkValidator warns once when the configured executable cannot be
// found, instead of letting every lint run fail with the same message.
func (s *Server) checkValidator(ctx context.Context, cfg *config.Config) {
	if _, err := exec.LookPath(cfg.ValidatorPath); err != nil {
		s.logger.Warn("validator not found",
			zap.String("path", cfg.ValidatorPath),
			zap.Error(err))
		s.showMessage(ctx, protocol.MessageTypeWarning,
			fmt.Sprintf("glslangValidator not found at %q; set mcglsl.glslangValidatorPath", cfg.ValidatorPath))
	}
}

func (s *Server) showMessage(ctx context.Context, typ protocol.MessageType, message string) {
	if s.host == nil {
		return
	}
	if err := s.host.ShowMessage(ctx, &protocol.ShowMessageParams{Type: typ, Message: message}); err != nil {
		s.logger.Debug("showMessage failed", zap.Error(err))
	}
}

// workspaceRootPath extracts the workspace root from initialize params,
// preferring rootUri over the deprecated rootPath.
func workspaceRootPath(params *protocol.InitializeParams) string {
	if path, ok := filePath(params.RootURI); ok {
		return path
	}
	return params.RootPath
}

// filePath returns the filesystem path behind a file: URI. Filename panics
// on URIs it cannot interpret and hosts are free to send odd ones, so the
// failure mode here is "not a file" rather than a crashed server.
func filePath(u protocol.DocumentURI) (path string, ok bool) {
	defer func() {
		if recover() != nil {
			path, ok = "", false
		}
	}()
	if !strings.HasPrefix(string(u), "file://") {
		return "", false
	}
	return u.Filename(), true
}

// completionID extracts the 1-based candidate id from CompletionItem.Data.
// Items we served carry an int; items echoed back over the wire carry a
// JSON number decoded as float64.
func completionID(data any) (int, bool) {
	switch v := data.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// gate enforces the lifecycle: before initialize only initialize and exit
// are served, and after shutdown only exit. Pre-initialize requests get
// the ServerNotInitialized code; notifications end up dropped because
// their replies go nowhere.
func (s *Server) gate(req jsonrpc2.Request) error {
	method := req.Method()
	if method == "initialize" || method == "exit" {
		return nil
	}
	switch s.state.Load() {
	case stateUninitialized:
		return jsonrpc2.Errorf(jsonrpc2.ServerNotInitialized, "received %q before initialize", method)
	case stateShutdown:
		return jsonrpc2.Errorf(jsonrpc2.InvalidRequest, "received %q after shutdown", method)
	}
	return nil
}

// Handler dispatches incoming messages to the typed methods above. It runs
// serially on the connection's dispatch goroutine; there is deliberately no
// async wrapper, so one message is fully handled before the next starts.
func (s *Server) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("request", zap.String("method", req.Method()))

		if err := s.gate(req); err != nil {
			return reply(ctx, nil, err)
		}

		switch req.Method() {
		case "initialize":
			var params protocol.InitializeParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			result, err := s.Initialize(ctx, &params)
			return reply(ctx, result, err)

		case "initialized":
			var params protocol.InitializedParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			return reply(ctx, nil, s.Initialized(ctx, &params))

		case "shutdown":
			return reply(ctx, nil, s.Shutdown(ctx))

		case "exit":
			s.Exit(ctx)
			return nil

		case "textDocument/didOpen":
			var params protocol.DidOpenTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			return reply(ctx, nil, s.DidOpen(ctx, &params))

		case "textDocument/didChange":
			var params protocol.DidChangeTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			return reply(ctx, nil, s.DidChange(ctx, &params))

		case "textDocument/didSave":
			var params protocol.DidSaveTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			return reply(ctx, nil, s.DidSave(ctx, &params))

		case "textDocument/didClose":
			var params protocol.DidCloseTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			return reply(ctx, nil, s.DidClose(ctx, &params))

		case "workspace/didChangeConfiguration":
			var params protocol.DidChangeConfigurationParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			return reply(ctx, nil, s.DidChangeConfiguration(ctx, &params))

		case "workspace/didChangeWatchedFiles":
			var params protocol.DidChangeWatchedFilesParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			return reply(ctx, nil, s.DidChangeWatchedFiles(ctx, &params))

		case "textDocument/completion":
			var params protocol.CompletionParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			result, err := s.Completion(ctx, &params)
			return reply(ctx, result, err)

		case "completionItem/resolve":
			var item protocol.CompletionItem
			if err := json.Unmarshal(req.Params(), &item); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			result, err := s.CompletionResolve(ctx, &item)
			return reply(ctx, result, err)

		case "textDocument/documentLink":
			var params protocol.DocumentLinkParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err))
			}
			result, err := s.DocumentLink(ctx, &params)
			return reply(ctx, result, err)

		default:
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
	}
}
