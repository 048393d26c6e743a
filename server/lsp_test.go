package server

import (
	"context"
	"errors"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/swiftast/dump"
	"github.com/chazu/swiftast/pkg/ast"
)

const outlineDump = `(source_file "/src/Point.swift"
  (import_decl kind=Swift_Module 'Foundation')
  (struct_decl range=[/src/Point.swift:3:1 - line:9:1] "Point" access=public inherits: Equatable
    (var_decl range=[/src/Point.swift:4:3 - line:4:14] "x" type='Int' access=public let immutable)
    (func_decl range=[/src/Point.swift:6:3 - line:8:3] "scale(by:)" access=public
      (parameter_list
        (parameter "factor" apiName=by type='Int')))))`

// fakeDumper returns a fixed dump, or err.
type fakeDumper struct {
	out   string
	err   error
	calls int
}

func (d *fakeDumper) Dump(ctx context.Context, path string) (string, error) {
	d.calls++
	return d.out, d.err
}

func parseOutline(t *testing.T) *ast.File {
	t.Helper()
	res, err := dump.Parse(outlineDump)
	if err != nil {
		t.Fatal(err)
	}
	return res.File
}

// ---------------------------------------------------------------------------
// Symbols and hover
// ---------------------------------------------------------------------------

func TestDocumentSymbols(t *testing.T) {
	syms := documentSymbols(parseOutline(t))
	if len(syms) != 2 {
		t.Fatalf("symbols = %d, want 2", len(syms))
	}
	if syms[0].Kind != protocol.SymbolKindModule || syms[0].Name != "Foundation" {
		t.Errorf("import symbol = %+v", syms[0])
	}

	point := syms[1]
	if point.Kind != protocol.SymbolKindStruct || point.Name != "Point" {
		t.Errorf("struct symbol = %+v", point)
	}
	if point.Detail == nil || *point.Detail != ": Equatable" {
		t.Errorf("struct detail = %v", point.Detail)
	}
	if point.Range.Start != (protocol.Position{Line: 2, Character: 0}) {
		t.Errorf("struct range start = %+v", point.Range.Start)
	}
	if len(point.Children) != 2 {
		t.Fatalf("struct children = %d, want 2", len(point.Children))
	}
	if m := point.Children[0]; m.Kind != protocol.SymbolKindMethod || m.Name != "scale(by:)" {
		t.Errorf("method = %+v", m)
	}
	if f := point.Children[1]; f.Kind != protocol.SymbolKindField || *f.Detail != "Int" {
		t.Errorf("field = %+v", f)
	}
}

func TestHover(t *testing.T) {
	f := parseOutline(t)

	h := hover(f, "scale")
	if h == nil {
		t.Fatal("hover for scale should match scale(by:)")
	}
	mc, ok := h.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatal("hover contents should be MarkupContent")
	}
	if mc.Kind != protocol.MarkupKindMarkdown {
		t.Errorf("hover markup kind = %q", mc.Kind)
	}
	for _, want := range []string{"**function scale(by:)** in `Point`", "`by factor: Int`"} {
		if !strings.Contains(mc.Value, want) {
			t.Errorf("hover %q missing %q", mc.Value, want)
		}
	}

	h = hover(f, "Point")
	if h == nil || !strings.Contains(h.Contents.(protocol.MarkupContent).Value, "1 functions, 1 variables") {
		t.Errorf("struct hover = %v", h)
	}

	if hover(f, "nothing") != nil {
		t.Error("hover for unknown word should be nil")
	}
}

func TestLspPosition(t *testing.T) {
	p := lspPosition(ast.SourceLocation{Line: 4, Column: 7})
	if p.Line != 4 || p.Character != 6 {
		t.Errorf("position = %+v, want 4:6", p)
	}
	if p := lspPosition(ast.SourceLocation{Line: 0, Column: 0}); p.Character != 0 {
		t.Errorf("column 0 position = %+v", p)
	}
	if r := lspRange(nil); r != (protocol.Range{}) {
		t.Errorf("nil range = %+v", r)
	}
}

// ---------------------------------------------------------------------------
// Document analysis
// ---------------------------------------------------------------------------

func TestUpdateDumpDocument(t *testing.T) {
	lsp := NewLSP(nil)
	uri := protocol.DocumentUri("file:///tmp/Point.swift.astdump")

	doc := lsp.update(uri, outlineDump, true)
	if doc.err != nil {
		t.Fatal(doc.err)
	}
	if doc.file.Path != "/src/Point.swift" {
		t.Errorf("path = %q", doc.file.Path)
	}

	lsp.mu.Lock()
	_, ok := lsp.docs[string(uri)]
	lsp.mu.Unlock()
	if !ok {
		t.Error("document should be stored after update")
	}
}

func TestUpdateSwiftDocumentUsesDumper(t *testing.T) {
	d := &fakeDumper{out: outlineDump}
	lsp := NewLSP(d)
	uri := protocol.DocumentUri("file:///src/Point.swift")

	doc := lsp.update(uri, "struct Point {}", true)
	if doc.err != nil || doc.file == nil {
		t.Fatalf("update: %v", doc.err)
	}
	// Edits without a save keep the last AST.
	doc = lsp.update(uri, "struct Point { }", false)
	if d.calls != 1 {
		t.Errorf("dumper calls = %d, want 1", d.calls)
	}
	if doc.file == nil || doc.text != "struct Point { }" {
		t.Errorf("document after edit = %+v", doc)
	}
}

func TestDiagnostics(t *testing.T) {
	lsp := NewLSP(&fakeDumper{err: errors.New("swiftc: no such file")})
	doc := lsp.update("file:///src/Missing.swift", "", true)
	diags := diagnostics(doc, false)
	if len(diags) != 1 || *diags[0].Severity != protocol.DiagnosticSeverityError {
		t.Fatalf("diagnostics = %+v", diags)
	}
	if !strings.Contains(diags[0].Message, "no such file") {
		t.Errorf("message = %q", diags[0].Message)
	}

	// Recovered errors point at the dump line in dump documents.
	doc = lsp.update("file:///tmp/bad.astdump", "(import_decl 'A')\n(var_decl \"x\")", true)
	diags = diagnostics(doc, true)
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %+v, want 1", diags)
	}
	if *diags[0].Severity != protocol.DiagnosticSeverityWarning || diags[0].Range.Start.Line != 1 {
		t.Errorf("diagnostic = %+v", diags[0])
	}

	if got := diagnostics(&document{}, true); got == nil || len(got) != 0 {
		t.Errorf("clean document diagnostics = %v, want empty non-nil", got)
	}
}

func TestURIPath(t *testing.T) {
	if got := uriPath("file:///src/My%20App/a.swift"); got != "/src/My App/a.swift" {
		t.Errorf("uriPath = %q", got)
	}
	if got := uriPath("untitled:1"); got != "untitled:1" {
		t.Errorf("uriPath = %q", got)
	}
}

// ---------------------------------------------------------------------------
// extractWord
// ---------------------------------------------------------------------------

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "hello world", protocol.Position{Line: 0, Character: 3}, "hello"},
		{"at end", "hello world", protocol.Position{Line: 0, Character: 5}, "hello"},
		{"second word", "hello world", protocol.Position{Line: 0, Character: 8}, "world"},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"multi line", "first\nPoint", protocol.Position{Line: 1, Character: 3}, "Point"},
		{"underscore", "my_var", protocol.Position{Line: 0, Character: 3}, "my_var"},
		{"call", "p.scale(by: 2)", protocol.Position{Line: 0, Character: 4}, "scale"},
		{"beyond document", "single line", protocol.Position{Line: 5, Character: 0}, ""},
		{"column past end", "abc", protocol.Position{Line: 0, Character: 40}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractWord(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractWord = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBoolPtr(t *testing.T) {
	p := boolPtr(true)
	if p == nil || *p != true {
		t.Errorf("boolPtr(true) = %v", p)
	}
}
