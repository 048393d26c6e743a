package dump

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/swiftast/pkg/ast"
)

// ---------------------------------------------------------------------------
// Parser: record tree to typed AST
// ---------------------------------------------------------------------------

// Record kinds with a dedicated model.
const (
	kindSourceFile   = "source_file"
	kindTopLevelCode = "top_level_code_decl"
	kindImport       = "import_decl"
	kindStruct       = "struct_decl"
	kindClass        = "class_decl"
	kindEnum         = "enum_decl"
	kindExtension    = "extension_decl"
	kindFunc         = "func_decl"
	kindVar          = "var_decl"
	kindBrace        = "brace_stmt"
	kindParamList    = "parameter_list"
)

const defaultAccess = "internal"

// Option configures a Parser.
type Option func(*config)

type config struct {
	strict bool
	filter *LineFilter
	log    commonlog.Logger
}

// WithStrict makes the first structural or format error fail the parse
// instead of degrading the record to a generic expression.
func WithStrict(strict bool) Option {
	return func(c *config) { c.strict = strict }
}

// WithNoisePrefixes drops lines starting with any of prefixes in addition
// to the defaults.
func WithNoisePrefixes(prefixes ...string) Option {
	return func(c *config) { c.filter = NewLineFilter(prefixes...) }
}

// WithLogger sets the logger used for recovery notices.
func WithLogger(log commonlog.Logger) Option {
	return func(c *config) { c.log = log }
}

// Parser walks a record tree and builds the typed AST. A Parser is not
// safe for concurrent use; create one per file.
type Parser struct {
	cfg   config
	diags []error
}

// NewParser creates a parser with the given options.
func NewParser(opts ...Option) *Parser {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.filter == nil {
		cfg.filter = NewLineFilter()
	}
	if cfg.log == nil {
		cfg.log = commonlog.GetLogger("swiftast.dump")
	}
	return &Parser{cfg: cfg}
}

// Diagnostics returns the errors recovered from during the last parse.
func (p *Parser) Diagnostics() []error {
	return p.diags
}

// Result is the outcome of parsing one dump.
type Result struct {
	File        *ast.File
	Diagnostics []error
}

// Parse runs the whole pipeline over dump text.
func Parse(input string, opts ...Option) (*Result, error) {
	p := NewParser(opts...)
	return p.Parse(input)
}

// Parse tokenizes, nests and parses input.
func (p *Parser) Parse(input string) (*Result, error) {
	tokens, err := Tokenize(input, p.cfg.filter)
	if err != nil {
		return nil, err
	}
	f, err := p.ParseTree(BuildTree(tokens))
	if err != nil {
		return nil, err
	}
	return &Result{File: f, Diagnostics: p.diags}, nil
}

// ParseTree parses the root's children as top-level records. A source_file
// record is transparent: its children are parsed in its place.
func (p *Parser) ParseTree(root *Node) (*ast.File, error) {
	p.diags = nil
	f := &ast.File{}
	for _, n := range root.Children {
		if n.Kind() == kindSourceFile {
			if path, ok := FirstOf(n.Tokens, TokenString); ok && f.Path == "" {
				f.Path = path
			}
			for _, c := range n.Children {
				if err := p.appendTop(f, c); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := p.appendTop(f, n); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (p *Parser) appendTop(f *ast.File, n *Node) error {
	s, err := p.parseStatement(n)
	if err != nil {
		return err
	}
	if s != nil {
		f.Statements = append(f.Statements, s)
	}
	return nil
}

// tolerate records err as a diagnostic unless the parser is strict, in
// which case it is returned.
func (p *Parser) tolerate(err error) error {
	if p.cfg.strict {
		return err
	}
	p.diags = append(p.diags, err)
	return nil
}

func (p *Parser) parseStatement(n *Node) (ast.Statement, error) {
	kind := n.Kind()

	var decl ast.Declaration
	var err error
	switch kind {
	case kindTopLevelCode:
		decl, err = p.parseTopLevelCode(n)
	case kindImport:
		decl, err = p.parseImport(n)
	case kindStruct, kindClass, kindEnum, kindExtension:
		decl, err = p.parseTypeDecl(n, kind)
	case kindFunc:
		decl, err = p.parseFunction(n)
	case kindVar:
		decl, err = p.parseVariable(n)
	case kindBrace:
		body, berr := p.parseExpression(n)
		if berr != nil {
			return nil, berr
		}
		return &ast.TopLevelCode{Body: []ast.Statement{body}, Range: body.Range}, nil
	default:
		e, eerr := p.parseExpression(n)
		if eerr != nil {
			return nil, eerr
		}
		return e, nil
	}

	if err == nil {
		return decl, nil
	}
	err = withRecord(err, kind, n.Line)
	if rerr := p.tolerate(err); rerr != nil {
		return nil, rerr
	}
	p.cfg.log.Debugf("line %d: %s parsed as expression: %s", n.Line, kind, err)
	e, eerr := p.parseExpression(n)
	if eerr != nil {
		return nil, eerr
	}
	return e, nil
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (p *Parser) parseTopLevelCode(n *Node) (*ast.TopLevelCode, error) {
	d := &ast.TopLevelCode{Range: p.declRange(n)}
	for _, c := range n.ChildrenOfKind(kindBrace) {
		e, err := p.parseExpression(c)
		if err != nil {
			return nil, err
		}
		d.Body = append(d.Body, e)
	}
	return d, nil
}

func (p *Parser) parseImport(n *Node) (*ast.Import, error) {
	path, ok := FirstOf(n.Tokens, TokenSymbol)
	if !ok {
		return nil, structuralErrorf(kindImport, n.Line, "", "missing import path")
	}
	return &ast.Import{
		ImportKind: Attributes(n.Tokens)["kind"],
		ImportPath: path,
		Range:      p.declRange(n),
	}, nil
}

// parseTypeDecl handles structs, classes, enums and extensions. Members are
// functions followed by variables (structs only), each group in source
// order; compiler-synthesized members are skipped.
func (p *Parser) parseTypeDecl(n *Node, kind string) (ast.Declaration, error) {
	var name string
	var ok bool
	if kind == kindExtension {
		name, ok = extensionName(n.Tokens)
	} else {
		name, ok = FirstOf(n.Tokens, TokenString)
	}
	if !ok {
		return nil, structuralErrorf(kind, n.Line, "", "missing type name")
	}

	td := ast.TypeDecl{
		Name:   name,
		Access: accessOf(n.Tokens),
		Range:  p.declRange(n),
	}
	td.Inherits, _ = Inherits(n.Tokens)

	for _, c := range n.ChildrenOfKind(kindFunc) {
		if HasFlag(c.Tokens, "implicit") {
			continue
		}
		fn, err := p.parseFunction(c)
		if err != nil {
			if rerr := p.tolerate(withRecord(err, kindFunc, c.Line)); rerr != nil {
				return nil, rerr
			}
			continue
		}
		td.Members = append(td.Members, fn)
	}
	if kind == kindStruct {
		for _, c := range n.ChildrenOfKind(kindVar) {
			if HasFlag(c.Tokens, "implicit") {
				continue
			}
			v, err := p.parseVariable(c)
			if err != nil {
				if rerr := p.tolerate(withRecord(err, kindVar, c.Line)); rerr != nil {
					return nil, rerr
				}
				continue
			}
			td.Members = append(td.Members, v)
		}
	}

	switch kind {
	case kindStruct:
		return &ast.Struct{TypeDecl: td}, nil
	case kindClass:
		return &ast.Class{TypeDecl: td}, nil
	case kindEnum:
		return &ast.Enum{TypeDecl: td}, nil
	default:
		return &ast.Extension{TypeDecl: td}, nil
	}
}

// extensionName reads the extended type, which the dump emits positionally
// as the third token rather than as a quoted literal.
func extensionName(tokens []Token) (string, bool) {
	if len(tokens) > 2 && isBareWord(tokens, 2) {
		return tokens[2].Text, true
	}
	for i := 2; i < len(tokens); i++ {
		if isBareWord(tokens, i) {
			return tokens[i].Text, true
		}
	}
	return "", false
}

// isBareWord reports whether tokens[i] is a Word that is neither an
// attribute key nor an attribute value.
func isBareWord(tokens []Token, i int) bool {
	if tokens[i].Kind != TokenWord {
		return false
	}
	if i+1 < len(tokens) && (tokens[i+1].Is("=") || tokens[i+1].Is(":")) {
		return false
	}
	return i == 0 || !tokens[i-1].Is("=")
}

func (p *Parser) parseVariable(n *Node) (*ast.Variable, error) {
	name, ok := FirstOf(n.Tokens, TokenString)
	if !ok {
		name, ok = FirstOf(n.Tokens, TokenSymbol)
	}
	if !ok {
		return nil, structuralErrorf(kindVar, n.Line, "", "missing variable name")
	}
	typ, ok := Attributes(n.Tokens)["type"]
	if !ok {
		return nil, structuralErrorf(kindVar, n.Line, "type", "missing required attribute")
	}
	return &ast.Variable{
		Name:        name,
		Type:        typ,
		IsLet:       HasFlag(n.Tokens, "let"),
		IsImmutable: HasFlag(n.Tokens, "immutable"),
		Range:       p.declRange(n),
	}, nil
}

func (p *Parser) parseFunction(n *Node) (*ast.Function, error) {
	name, ok := FirstOf(n.Tokens, TokenString)
	if !ok {
		name, ok = FirstOf(n.Tokens, TokenSymbol)
	}
	if !ok {
		return nil, structuralErrorf(kindFunc, n.Line, "", "missing function name")
	}

	fn := &ast.Function{
		Name:   name,
		Access: accessOf(n.Tokens),
		Range:  p.declRange(n),
	}
	for _, c := range n.Children {
		switch c.Kind() {
		case kindParamList:
			for _, pn := range c.Children {
				param, err := parseParameter(pn)
				if err != nil {
					return nil, err
				}
				fn.Parameters = append(fn.Parameters, param)
			}
		case kindBrace:
			body, err := p.parseExpression(c)
			if err != nil {
				return nil, err
			}
			fn.Body = append(fn.Body, body)
		}
	}
	return fn, nil
}

func parseParameter(n *Node) (ast.Parameter, error) {
	attrs := Attributes(n.Tokens)
	typ, ok := attrs["type"]
	if !ok {
		return ast.Parameter{}, structuralErrorf(n.Kind(), n.Line, "type", "missing required attribute")
	}
	local, _ := FirstOf(n.Tokens, TokenString)
	return ast.Parameter{
		ExternalName: attrs["apiName"],
		LocalName:    local,
		Type:         typ,
	}, nil
}

func accessOf(tokens []Token) string {
	if access, ok := Attributes(tokens)["access"]; ok {
		return access
	}
	return defaultAccess
}

// declRange parses the optional range of a declaration. A malformed range
// only produces a diagnostic; the declaration itself stays valid.
func (p *Parser) declRange(n *Node) *ast.SourceRange {
	text, ok := Attributes(n.Tokens)["range"]
	if !ok {
		return nil
	}
	r, err := ParseRange(text)
	if err != nil {
		p.diags = append(p.diags, withRecord(err, n.Kind(), n.Line))
		return nil
	}
	return &r
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

var throwsKinds = map[string]ast.ThrowsKind{
	"nothrow":  ast.NoThrow,
	"throws":   ast.Throws,
	"rethrows": ast.Rethrows,
}

// parseExpression builds a generic expression. Children with a single
// token carry no structure and are skipped.
func (p *Parser) parseExpression(n *Node) (*ast.Expression, error) {
	e := ast.NewExpression(exprKind(n.Tokens))
	attrs := Attributes(n.Tokens)

	e.Type = attrs["type"]
	e.Decl = attrs["decl"]
	e.Value = attrs["value"]
	if labels, ok := attrs["arg_labels"]; ok {
		e.ArgumentLabels = labels
	} else {
		e.ArgumentLabels = attrs["argument_labels"]
	}

	if text, ok := attrs["location"]; ok {
		loc, err := ParseLocation(text)
		if err != nil {
			if rerr := p.tolerate(withRecord(err, e.Kind, n.Line)); rerr != nil {
				return nil, rerr
			}
		} else {
			e.Location = &loc
		}
	}
	if text, ok := attrs["range"]; ok {
		r, err := ParseRange(text)
		if err != nil {
			if rerr := p.tolerate(withRecord(err, e.Kind, n.Line)); rerr != nil {
				return nil, rerr
			}
		} else {
			e.Range = &r
		}
	}

	for i, t := range n.Tokens {
		if t.Kind != TokenWord || (i > 0 && n.Tokens[i-1].Is("=")) {
			continue
		}
		if tk, ok := throwsKinds[t.Text]; ok && e.ThrowsKind == "" {
			e.ThrowsKind = tk
		}
		if t.Text == "implicit" {
			e.IsImplicit = true
		}
	}

	for _, c := range n.Children {
		if len(c.Tokens) <= 1 {
			continue
		}
		child, err := p.parseExpression(c)
		if err != nil {
			return nil, err
		}
		e.Children = append(e.Children, child)
	}
	return e, nil
}

// exprKind is the text of the first non-structural token.
func exprKind(tokens []Token) string {
	for _, t := range tokens {
		if t.Kind != TokenStructural {
			return t.Text
		}
	}
	return ""
}
