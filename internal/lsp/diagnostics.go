package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// publishDiagnostics pushes one run's findings to the client and clears
// whatever the previous run for the same origin document left behind.
// Each publish replaces the client's entire set for that URI, so a URI
// that had findings last run and none now must receive an explicit empty
// list or the stale squiggles stay on screen.
func (s *Server) publishDiagnostics(ctx context.Context, origin protocol.DocumentURI, diags map[protocol.DocumentURI][]protocol.Diagnostic) {
	if s.host == nil {
		return
	}

	covered := make(map[protocol.DocumentURI]bool, len(diags))
	for uri, list := range diags {
		if list == nil {
			list = []protocol.Diagnostic{}
		}
		s.publish(ctx, uri, list)
		if len(list) > 0 {
			covered[uri] = true
		}
	}

	for uri := range s.published[origin] {
		if _, ok := diags[uri]; !ok {
			s.publish(ctx, uri, []protocol.Diagnostic{})
		}
	}

	if len(covered) > 0 {
		s.published[origin] = covered
	} else {
		delete(s.published, origin)
	}
}

// clearDiagnostics empties everything the given document's runs have put
// on screen, used when the document closes.
func (s *Server) clearDiagnostics(ctx context.Context, origin protocol.DocumentURI) {
	if s.host == nil {
		return
	}
	s.publish(ctx, origin, []protocol.Diagnostic{})
	for uri := range s.published[origin] {
		if uri != origin {
			s.publish(ctx, uri, []protocol.Diagnostic{})
		}
	}
	delete(s.published, origin)
}

func (s *Server) publish(ctx context.Context, uri protocol.DocumentURI, diags []protocol.Diagnostic) {
	err := s.host.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
	if err != nil {
		s.logger.Debug("publishDiagnostics failed", zap.String("uri", string(uri)), zap.Error(err))
	}
}
