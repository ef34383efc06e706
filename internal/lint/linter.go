// Package lint runs glslangValidator over in-memory documents. A document
// is staged into a scratch mirror of the pack together with everything it
// includes, the validator runs against the staged copy, and its output is
// parsed back into diagnostics keyed by document.
package lint

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/mcglsl/mcglsl-ls/internal/config"
	"github.com/mcglsl/mcglsl-ls/internal/shader"
)

// Document is the snapshot one lint run works on: the host's URI for the
// document, the filesystem path behind it, and the live content, which may
// be newer than what is on disk.
type Document struct {
	URI     protocol.DocumentURI
	Path    string
	Content string
}

// Linter owns the stage, spawn and parse steps of one lint run.
type Linter struct {
	runner Runner
	parser *Parser
	logger *zap.Logger
}

// New builds a Linter. A nil runner means the real executable; tests pass
// a fake that returns canned output.
func New(runner Runner, logger *zap.Logger) *Linter {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Linter{runner: runner, parser: NewParser(logger), logger: logger}
}

// Run lints a single document snapshot under the given configuration. The
// result carries an entry for every file staged during the run, empty when
// the file came back clean, so callers can publish wholesale replacement
// sets. Failures of the pipeline itself come back as a single synthetic
// diagnostic instead of an error; nothing here may take the server down.
func (l *Linter) Run(ctx context.Context, cfg *config.Config, doc Document) map[protocol.DocumentURI][]protocol.Diagnostic {
	files, stagedPath, err := l.stage(cfg, doc)
	if err != nil {
		l.logger.Warn("staging failed",
			zap.String("uri", string(doc.URI)),
			zap.Error(err))
		return l.pipelineFailure(doc.URI, err)
	}

	out, err := l.runner.Run(ctx, cfg.ValidatorPath, stagedPath)
	if err != nil {
		toolErr := &ToolError{Path: cfg.ValidatorPath, Err: err}
		l.logger.Warn("validator did not run", zap.Error(toolErr))
		return l.pipelineFailure(doc.URI, toolErr)
	}

	l.logger.Debug("validator finished",
		zap.String("staged", stagedPath),
		zap.Int("outputBytes", len(out)))

	diags := l.parser.Parse(string(out), cfg.Pattern, files)
	for _, uri := range files.URIs() {
		if _, ok := diags[uri]; !ok {
			diags[uri] = []protocol.Diagnostic{}
		}
	}
	return diags
}

// pipelineFailure turns a breakdown of the lint pipeline into one
// diagnostic pinned to the top of the document, so the problem shows up
// where the user is looking instead of only in the server log.
func (l *Linter) pipelineFailure(docURI protocol.DocumentURI, err error) map[protocol.DocumentURI][]protocol.Diagnostic {
	return map[protocol.DocumentURI][]protocol.Diagnostic{
		docURI: {{
			Range:    protocol.Range{},
			Severity: protocol.DiagnosticSeverityError,
			Source:   DiagnosticSource,
			Message:  err.Error(),
		}},
	}
}

// stage writes the document snapshot into the staging mirror and copies the
// files it includes, so relative include resolution works for the validator
// exactly as it would inside the real pack.
func (l *Linter) stage(cfg *config.Config, doc Document) (*FileTable, string, error) {
	stagedPath := filepath.Join(cfg.TempDir, stageRelPath(cfg, doc.Path))

	if err := os.MkdirAll(filepath.Dir(stagedPath), 0o755); err != nil {
		return nil, "", err
	}
	if err := os.WriteFile(stagedPath, []byte(doc.Content), 0o644); err != nil {
		return nil, "", err
	}

	files := NewFileTable(doc.URI)
	files.Add(stagedPath, doc.URI)
	l.stageIncludes(cfg, files, doc.Content, filepath.Dir(doc.Path), 0)

	return files, stagedPath, nil
}

// stageRelPath mirrors the document's place in the pack inside the staging
// directory. Files outside the shaders directory stage flat under their
// base name.
func stageRelPath(cfg *config.Config, docPath string) string {
	rel, err := filepath.Rel(cfg.ShadersDir, docPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(docPath)
	}
	return rel
}

// stageIncludes copies every file referenced from content into the mirror,
// then descends into the copies. Includes that cannot be read are left to
// the validator to report in context; a file staged once is never staged
// again, which also breaks include cycles.
func (l *Linter) stageIncludes(cfg *config.Config, files *FileTable, content, fromDir string, depth int) {
	if depth >= shader.MaxIncludeDepth {
		l.logger.Debug("include depth limit reached", zap.String("dir", fromDir))
		return
	}

	for _, inc := range shader.ScanIncludes(content) {
		srcPath := shader.Resolve(inc.Path, cfg.ShadersDir, fromDir)
		dstPath := filepath.Join(cfg.TempDir, stageRelPath(cfg, srcPath))
		if files.Has(dstPath) {
			continue
		}

		data, err := os.ReadFile(srcPath)
		if err != nil {
			l.logger.Debug("include not staged",
				zap.String("path", srcPath),
				zap.Error(err))
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
			l.logger.Debug("include not staged",
				zap.String("path", dstPath),
				zap.Error(err))
			continue
		}
		if err := os.WriteFile(dstPath, data, 0o644); err != nil {
			l.logger.Debug("include not staged",
				zap.String("path", dstPath),
				zap.Error(err))
			continue
		}

		files.Add(dstPath, uri.File(srcPath))
		l.stageIncludes(cfg, files, string(data), filepath.Dir(srcPath), depth+1)
	}
}
