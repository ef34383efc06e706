package lsp

import (
	"context"
	"os"
	"path/filepath"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/mcglsl/mcglsl-ls/internal/shader"
)

// DocumentLink turns every #include directive into a clickable link to the
// included file. Directives whose target does not exist on disk produce no
// link; the lint pipeline is the place that complains about those.
func (s *Server) DocumentLink(ctx context.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	cfg := s.cfg.Load()
	if cfg == nil {
		return nil, nil
	}
	doc, ok := s.documentManager.GetDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	path, ok := filePath(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	fromDir := filepath.Dir(path)
	var links []protocol.DocumentLink
	for _, inc := range shader.ScanIncludes(doc.Content) {
		target := shader.Resolve(inc.Path, cfg.ShadersDir, fromDir)
		if _, err := os.Stat(target); err != nil {
			continue
		}
		links = append(links, protocol.DocumentLink{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(inc.Line), Character: uint32(inc.Start)},
				End:   protocol.Position{Line: uint32(inc.Line), Character: uint32(inc.End)},
			},
			Target:  uri.File(target),
			Tooltip: target,
		})
	}
	return links, nil
}
