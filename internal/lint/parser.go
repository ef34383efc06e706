package lint

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// DiagnosticSource tags every diagnostic we publish so hosts can tell our
// findings apart from other extensions'.
const DiagnosticSource = "mcglsl"

// Validator output carries no column information, so findings span the
// whole line; hosts clamp the end column to the real line length.
const lineSpanColumns = 1000

// FileTable records where each staged file came from, so validator output,
// which names staged paths, can be attributed back to documents.
type FileTable struct {
	main    protocol.DocumentURI
	entries map[string]protocol.DocumentURI
}

// NewFileTable starts a table for a lint run on the document behind main.
func NewFileTable(main protocol.DocumentURI) *FileTable {
	return &FileTable{main: main, entries: make(map[string]protocol.DocumentURI)}
}

// Add records that stagedPath holds a copy of the file behind uri.
func (t *FileTable) Add(stagedPath string, uri protocol.DocumentURI) {
	t.entries[filepath.Clean(stagedPath)] = uri
}

// Has reports whether stagedPath was already staged during this run.
func (t *FileTable) Has(stagedPath string) bool {
	_, ok := t.entries[filepath.Clean(stagedPath)]
	return ok
}

// Main is the document this lint run was started for.
func (t *FileTable) Main() protocol.DocumentURI { return t.main }

// URIs lists every document staged during this run, the main document
// included, without duplicates.
func (t *FileTable) URIs() []protocol.DocumentURI {
	seen := map[protocol.DocumentURI]struct{}{t.main: {}}
	uris := []protocol.DocumentURI{t.main}
	for _, u := range t.entries {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		uris = append(uris, u)
	}
	return uris
}

// Resolve maps a path printed by the validator to a document URI. The
// validator echoes whatever path it was given, sometimes shortened to a
// bare file name, so fall back to base-name matching and finally to the
// linted document itself.
func (t *FileTable) Resolve(printed string) protocol.DocumentURI {
	printed = filepath.Clean(strings.TrimSpace(printed))
	if uri, ok := t.entries[printed]; ok {
		return uri
	}
	base := filepath.Base(printed)
	for staged, uri := range t.entries {
		if filepath.Base(staged) == base {
			return uri
		}
	}
	return t.main
}

// Parser turns raw validator output into LSP diagnostics using the line
// pattern the active configuration selected for this platform.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse scans combined validator output line by line. Lines matching
// pattern become diagnostics grouped by document; banner lines, summaries
// and anything else that does not match are skipped without comment.
func (p *Parser) Parse(output string, pattern *regexp.Regexp, files *FileTable) map[protocol.DocumentURI][]protocol.Diagnostic {
	diags := make(map[protocol.DocumentURI][]protocol.Diagnostic)
	names := pattern.SubexpNames()

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimRight(raw, "\r")
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		fields := make(map[string]string, len(names))
		for i, name := range names {
			if name != "" && i < len(m) {
				fields[name] = m[i]
			}
		}

		num, err := strconv.Atoi(fields["line"])
		if err != nil {
			p.logger.Debug("unparseable line number in validator output",
				zap.String("line", line))
			continue
		}
		// Validator line numbers are 1-based.
		docLine := uint32(max(0, num-1))

		uri := files.Resolve(fields["file"])
		diags[uri] = append(diags[uri], protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: docLine},
				End:   protocol.Position{Line: docLine, Character: lineSpanColumns},
			},
			Severity: severityFor(fields["severity"]),
			Source:   DiagnosticSource,
			Message:  fields["message"],
		})
	}
	return diags
}

func severityFor(s string) protocol.DiagnosticSeverity {
	switch strings.ToLower(s) {
	case "error":
		return protocol.DiagnosticSeverityError
	case "warning":
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityInformation
	}
}
