package lint

import (
	"regexp"
	"testing"

	"go.lsp.dev/protocol"

	"github.com/mcglsl/mcglsl-ls/internal/config"
)

func testPattern(t *testing.T) *regexp.Regexp {
	t.Helper()
	cfg, err := config.New(config.Settings{}, "/ws", config.WithPlatform("linux"))
	if err != nil {
		t.Fatalf("config.New failed: %v", err)
	}
	return cfg.Pattern
}

func TestParseSingleError(t *testing.T) {
	files := NewFileTable("file:///pack/shaders/frag.fsh")
	output := "shaders/frag.fsh:12: error: syntax error\n"

	got := NewParser(nil).Parse(output, testPattern(t), files)

	if len(got) != 1 {
		t.Fatalf("diagnostics for %d documents, want 1", len(got))
	}
	diags := got["file:///pack/shaders/frag.fsh"]
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}

	d := diags[0]
	if d.Range.Start.Line != 11 {
		t.Errorf("Start.Line = %d, want 11", d.Range.Start.Line)
	}
	if d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("Severity = %v, want error", d.Severity)
	}
	if d.Message != "syntax error" {
		t.Errorf("Message = %q, want %q", d.Message, "syntax error")
	}
	if d.Source != DiagnosticSource {
		t.Errorf("Source = %q, want %q", d.Source, DiagnosticSource)
	}
}

func TestParseSkipsNonMatchingLines(t *testing.T) {
	files := NewFileTable("file:///pack/shaders/composite.fsh")
	output := "shaders/composite.fsh\n" +
		"ERROR: 2 compilation errors.  No code generated.\n" +
		"\n" +
		"SPIR-V is not generated for failed compile or link\n"

	got := NewParser(nil).Parse(output, testPattern(t), files)
	if len(got) != 0 {
		t.Errorf("expected no diagnostics from noise output, got %v", got)
	}
}

func TestParseGroupsByFile(t *testing.T) {
	main := protocol.DocumentURI("file:///pack/shaders/composite.fsh")
	include := protocol.DocumentURI("file:///pack/shaders/lib/common.glsl")

	files := NewFileTable(main)
	files.Add("/tmp/pack/shaders/composite.fsh", main)
	files.Add("/tmp/pack/shaders/lib/common.glsl", include)

	output := "/tmp/pack/shaders/composite.fsh:3: error: undeclared identifier\n" +
		"/tmp/pack/shaders/lib/common.glsl:1: warning: implicit conversion\n"

	got := NewParser(nil).Parse(output, testPattern(t), files)

	if len(got) != 2 {
		t.Fatalf("diagnostics for %d documents, want 2", len(got))
	}
	if diags := got[main]; len(diags) != 1 || diags[0].Severity != protocol.DiagnosticSeverityError {
		t.Errorf("main document diagnostics = %+v", diags)
	}
	if diags := got[include]; len(diags) != 1 || diags[0].Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("include diagnostics = %+v", diags)
	}
	if diags := got[include]; len(diags) == 1 && diags[0].Range.Start.Line != 0 {
		t.Errorf("include Start.Line = %d, want 0", diags[0].Range.Start.Line)
	}
}

func TestParseClampsLineNumber(t *testing.T) {
	files := NewFileTable("file:///pack/shaders/a.fsh")
	output := "a.fsh:0: error: preamble broken\n"

	got := NewParser(nil).Parse(output, testPattern(t), files)
	diags := got["file:///pack/shaders/a.fsh"]
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	if diags[0].Range.Start.Line != 0 {
		t.Errorf("Start.Line = %d, want 0", diags[0].Range.Start.Line)
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		in   string
		want protocol.DiagnosticSeverity
	}{
		{"error", protocol.DiagnosticSeverityError},
		{"ERROR", protocol.DiagnosticSeverityError},
		{"warning", protocol.DiagnosticSeverityWarning},
		{"Warning", protocol.DiagnosticSeverityWarning},
		{"note", protocol.DiagnosticSeverityInformation},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := severityFor(tt.in); got != tt.want {
				t.Errorf("severityFor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileTableResolve(t *testing.T) {
	main := protocol.DocumentURI("file:///pack/shaders/composite.fsh")
	include := protocol.DocumentURI("file:///pack/shaders/lib/common.glsl")

	files := NewFileTable(main)
	files.Add("/tmp/stage/composite.fsh", main)
	files.Add("/tmp/stage/lib/common.glsl", include)

	tests := []struct {
		name    string
		printed string
		want    protocol.DocumentURI
	}{
		{"exact staged path", "/tmp/stage/lib/common.glsl", include},
		{"unclean staged path", "/tmp/stage/lib/../lib/common.glsl", include},
		{"bare file name", "common.glsl", include},
		{"unknown path falls back to main", "/somewhere/else.fsh", main},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := files.Resolve(tt.printed); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.printed, got, tt.want)
			}
		})
	}
}
