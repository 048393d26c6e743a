package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/swiftast/dump"
	"github.com/chazu/swiftast/dumper"
	"github.com/chazu/swiftast/pkg/ast"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "swiftast-lsp"

// DumpExt marks documents that already contain dump text.
const DumpExt = ".astdump"

// document is the editor state of one open file.
type document struct {
	text  string
	file  *ast.File
	diags []error
	err   error
}

// LspServer bridges LSP editor features to the dump parser. Swift sources
// are dumped through a Dumper when opened or saved; dump files are parsed
// from the editor buffer on every change.
type LspServer struct {
	dumper    dumper.Dumper
	parseOpts []dump.Option

	mu   sync.Mutex
	docs map[string]*document // URI → latest state

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server using d to dump Swift sources.
func NewLSP(d dumper.Dumper, opts ...dump.Option) *LspServer {
	s := &LspServer{
		dumper:    d,
		parseOpts: opts,
		docs:      make(map[string]*document),
		version:   "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		TextDocumentHover:          s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("swiftast LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      boolPtr(true),
	}

	capabilities.HoverProvider = true
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc := s.update(uri, params.TextDocument.Text, true)
	s.publishDiagnostics(ctx, uri, doc)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			// Swift sources are only re-dumped on save, from disk.
			doc := s.update(uri, whole.Text, isDump(uri))
			s.publishDiagnostics(ctx, uri, doc)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	doc, ok := s.docs[string(uri)]
	s.mu.Unlock()

	text := ""
	if ok {
		text = doc.text
	}
	if params.Text != nil {
		text = *params.Text
	}
	s.publishDiagnostics(ctx, uri, s.update(uri, text, true))
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update stores text for uri and, when reparse is set, rebuilds the AST.
// Otherwise the previous AST is kept.
func (s *LspServer) update(uri protocol.DocumentUri, text string, reparse bool) *document {
	s.mu.Lock()
	prev := s.docs[string(uri)]
	s.mu.Unlock()

	doc := &document{text: text}
	if reparse || prev == nil {
		doc.file, doc.diags, doc.err = s.analyze(uri, text)
	} else {
		doc.file, doc.diags, doc.err = prev.file, prev.diags, prev.err
	}

	s.mu.Lock()
	s.docs[string(uri)] = doc
	s.mu.Unlock()
	return doc
}

// analyze produces the AST for a document.
func (s *LspServer) analyze(uri protocol.DocumentUri, text string) (*ast.File, []error, error) {
	path := uriPath(uri)
	input := text
	if !isDump(uri) {
		if s.dumper == nil {
			return nil, nil, errors.New("no compiler configured")
		}
		out, err := s.dumper.Dump(context.Background(), path)
		if err != nil {
			return nil, nil, err
		}
		input = out
	}

	res, err := dump.Parse(input, s.parseOpts...)
	if err != nil {
		return nil, nil, err
	}
	if res.File.Path == "" {
		res.File.Path = path
	}
	return res.File, res.Diagnostics, nil
}

func isDump(uri protocol.DocumentUri) bool {
	return strings.HasSuffix(string(uri), DumpExt)
}

// uriPath converts a file:// URI to a filesystem path.
func uriPath(uri protocol.DocumentUri) string {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return string(uri)
	}
	return filepath.FromSlash(u.Path)
}

// --- Language features ---

func (s *LspServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	s.mu.Lock()
	doc, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok || doc.file == nil {
		return nil, nil
	}
	return documentSymbols(doc.file), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	doc, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok || doc.file == nil {
		return nil, nil
	}

	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return hover(doc.file, word), nil
}

var symbolKinds = map[ast.DeclKind]protocol.SymbolKind{
	ast.DeclImport:    protocol.SymbolKindModule,
	ast.DeclStruct:    protocol.SymbolKindStruct,
	ast.DeclClass:     protocol.SymbolKindClass,
	ast.DeclEnum:      protocol.SymbolKindEnum,
	ast.DeclExtension: protocol.SymbolKindNamespace,
	ast.DeclVariable:  protocol.SymbolKindVariable,
	ast.DeclFunction:  protocol.SymbolKindFunction,
}

// documentSymbols builds the outline of a file. Members of types become
// children; functions and variables inside a type are methods and fields.
func documentSymbols(f *ast.File) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	for _, d := range f.Declarations() {
		if sym, ok := documentSymbol(d, false); ok {
			out = append(out, sym)
		}
	}
	return out
}

func documentSymbol(d ast.Declaration, member bool) (protocol.DocumentSymbol, bool) {
	kind, ok := symbolKinds[d.Kind()]
	if !ok {
		return protocol.DocumentSymbol{}, false
	}
	if member {
		switch kind {
		case protocol.SymbolKindFunction:
			kind = protocol.SymbolKindMethod
		case protocol.SymbolKindVariable:
			kind = protocol.SymbolKindField
		}
	}

	rng := lspRange(d.SourceRange())
	sym := protocol.DocumentSymbol{
		Name:           ast.NameOf(d),
		Kind:           kind,
		Range:          rng,
		SelectionRange: rng,
	}
	if detail := symbolDetail(d); detail != "" {
		sym.Detail = &detail
	}
	if td, ok := ast.TypeDeclOf(d); ok {
		for _, m := range td.Members {
			if child, ok := documentSymbol(m, true); ok {
				sym.Children = append(sym.Children, child)
			}
		}
	}
	return sym, true
}

func symbolDetail(d ast.Declaration) string {
	switch d := d.(type) {
	case *ast.Variable:
		return d.Type
	case *ast.Import:
		return d.ImportKind
	}
	if td, ok := ast.TypeDeclOf(d); ok && td.Inherits != "" {
		return ": " + td.Inherits
	}
	return ast.AccessOf(d)
}

// lspRange converts a dump range (0-based lines, 1-based columns) to LSP
// coordinates. Declarations without a range map to the file start.
func lspRange(r *ast.SourceRange) protocol.Range {
	if r == nil {
		return protocol.Range{}
	}
	return protocol.Range{
		Start: lspPosition(r.Start),
		End:   lspPosition(r.End),
	}
}

func lspPosition(l ast.SourceLocation) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(max(l.Line, 0)),
		Character: protocol.UInteger(max(l.Column-1, 0)),
	}
}

// hover describes the declarations named word. A function matches by its
// base name, so "scale" finds "scale(by:)".
func hover(f *ast.File, word string) *protocol.Hover {
	var b strings.Builder
	var visit func(d ast.Declaration, parent string)
	visit = func(d ast.Declaration, parent string) {
		name := ast.NameOf(d)
		if name == word || strings.HasPrefix(name, word+"(") {
			if b.Len() > 0 {
				b.WriteString("\n\n---\n\n")
			}
			describe(&b, d, parent)
		}
		if td, ok := ast.TypeDeclOf(d); ok {
			for _, m := range td.Members {
				visit(m, td.Name)
			}
		}
	}
	for _, d := range f.Declarations() {
		visit(d, "")
	}
	if b.Len() == 0 {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func describe(b *strings.Builder, d ast.Declaration, parent string) {
	fmt.Fprintf(b, "**%s %s**", d.Kind(), ast.NameOf(d))
	if parent != "" {
		fmt.Fprintf(b, " in `%s`", parent)
	}
	b.WriteString("\n\n")

	if access := ast.AccessOf(d); access != "" {
		fmt.Fprintf(b, "Access: `%s`\n\n", access)
	}
	switch d := d.(type) {
	case *ast.Variable:
		keyword := "var"
		if d.IsLet {
			keyword = "let"
		}
		fmt.Fprintf(b, "`%s %s: %s`", keyword, d.Name, d.Type)
	case *ast.Function:
		if len(d.Parameters) == 0 {
			b.WriteString("No parameters")
			break
		}
		b.WriteString("Parameters:\n")
		for _, p := range d.Parameters {
			label := p.ExternalName
			if label == "" {
				label = "_"
			}
			fmt.Fprintf(b, "- `%s %s: %s`\n", label, p.LocalName, p.Type)
		}
	}
	if td, ok := ast.TypeDeclOf(d); ok {
		if td.Inherits != "" {
			fmt.Fprintf(b, "Inherits: `%s`\n\n", td.Inherits)
		}
		fmt.Fprintf(b, "%d functions, %d variables", len(td.Functions()), len(td.Variables()))
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, doc *document) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics(doc, isDump(uri)),
	})
}

// diagnostics converts parse failures to LSP diagnostics. Dump line
// numbers only map onto the document when it is the dump itself.
func diagnostics(doc *document, dumpDoc bool) []protocol.Diagnostic {
	source := lspName
	convert := func(err error, severity protocol.DiagnosticSeverity) protocol.Diagnostic {
		var pos protocol.Position
		var de *dump.Error
		if dumpDoc && errors.As(err, &de) && de.Line > 0 {
			pos.Line = protocol.UInteger(de.Line - 1)
		}
		return protocol.Diagnostic{
			Range:    protocol.Range{Start: pos, End: pos},
			Severity: &severity,
			Source:   &source,
			Message:  err.Error(),
		}
	}

	out := []protocol.Diagnostic{}
	if doc.err != nil {
		out = append(out, convert(doc.err, protocol.DiagnosticSeverityError))
	}
	for _, d := range doc.diags {
		out = append(out, convert(d, protocol.DiagnosticSeverityWarning))
	}
	return out
}

// --- Text extraction helpers ---

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	isIdent := func(ch rune) bool {
		return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
	}

	start := col
	for start > 0 && isIdent(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdent(rune(line[end])) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
