package dump

import (
	"errors"
	"strings"
	"testing"
)

type wantToken struct {
	kind TokenKind
	text string
}

func lex(t *testing.T, input string) []Token {
	t.Helper()
	toks, err := NewLexer(input).Tokens()
	if err != nil {
		t.Fatalf("Tokens(%q): %v", input, err)
	}
	return toks
}

// significant drops Indent markers.
func significant(toks []Token) []Token {
	var out []Token
	for _, tok := range toks {
		if tok.Kind != TokenIndent {
			out = append(out, tok)
		}
	}
	return out
}

func checkTokens(t *testing.T, got []Token, want []wantToken) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(got), got, len(want))
	}
	for i, w := range want {
		if got[i].Kind != w.kind || got[i].Text != w.text {
			t.Errorf("token[%d] = %v, want %s(%q)", i, got[i], w.kind, w.text)
		}
	}
}

func TestLexerImportRecord(t *testing.T) {
	toks := lex(t, `(import_decl kind=Swift_Module 'Foundation')`)

	if toks[0].Kind != TokenIndent || toks[0].Depth != 0 {
		t.Fatalf("first token = %v, want INDENT(0)", toks[0])
	}
	checkTokens(t, significant(toks), []wantToken{
		{TokenStructural, "("},
		{TokenWord, "import_decl"},
		{TokenWord, "kind"},
		{TokenStructural, "="},
		{TokenWord, "Swift_Module"},
		{TokenSymbol, "Foundation"},
		{TokenStructural, ")"},
	})
}

func TestLexerStringEscapes(t *testing.T) {
	input := `("a\"b\\c\td")`
	toks := significant(lex(t, input))
	checkTokens(t, toks, []wantToken{
		{TokenStructural, "("},
		{TokenString, `a\"b\\c\td`},
		{TokenStructural, ")"},
	})

	// Re-tokenizing the emitted text as a literal reproduces it.
	again := significant(lex(t, `"`+toks[1].Text+`"`))
	if len(again) != 1 || again[0].Text != toks[1].Text {
		t.Errorf("round trip = %v, want %q", again, toks[1].Text)
	}
}

func TestLexerUnsupportedEscape(t *testing.T) {
	_, err := NewLexer(`(string_literal_expr value="a\qb")`).Tokens()
	if err == nil {
		t.Fatal("expected lexical error")
	}
	if !errors.Is(err, ErrLexical) {
		t.Errorf("error %v is not a lexical error", err)
	}
	var de *Error
	if !errors.As(err, &de) || de.Line != 1 {
		t.Errorf("error = %#v, want line 1", err)
	}
}

func TestLexerAttributeValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		want  string
	}{
		{"location", `(declref_expr location=/a/b.swift:5:3 type='Int')`, "location", "/a/b.swift:5:3"},
		{"location with space before colon", `(x location=/My Dir/a.swift:5:3 implicit)`, "location", "/My Dir/a.swift:5:3"},
		{"location closing record", `(x location=/a.swift:5:3)`, "location", "/a.swift:5:3"},
		{"range array", `(x range=[/a/b.swift:2:10 - line:4:7] nothrow)`, "range", "/a/b.swift:2:10 - line:4:7"},
		{"symbol value", `(x type='(Int) -> ()')`, "type", "(Int) -> ()"},
		{"string value", `(x value="hi there")`, "value", "hi there"},
		{"trailing paren", `(var_decl "x" access=internal)`, "access", "internal"},
		{"balanced parens kept", `(declref_expr decl=Swift.(file).print(_:separator:))`, "decl", "Swift.(file).print(_:separator:)"},
		{"colon in bare value", `(call_expr arg_labels=_:separator: nothrow)`, "arg_labels", "_:separator:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := lex(t, tt.input)
			got, ok := Attributes(toks)[tt.key]
			if !ok {
				t.Fatalf("attribute %s missing in %v", tt.key, toks)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLexerTrailingParensAreStructural(t *testing.T) {
	toks := significant(lex(t, `(a x=1)))`))
	checkTokens(t, toks, []wantToken{
		{TokenStructural, "("},
		{TokenWord, "a"},
		{TokenWord, "x"},
		{TokenStructural, "="},
		{TokenWord, "1"},
		{TokenStructural, ")"},
		{TokenStructural, ")"},
		{TokenStructural, ")"},
	})
}

func TestLexerInheritsClause(t *testing.T) {
	toks := significant(lex(t, `(struct_decl "Foo" inherits: Equatable, Hashable)`))
	checkTokens(t, toks, []wantToken{
		{TokenStructural, "("},
		{TokenWord, "struct_decl"},
		{TokenString, "Foo"},
		{TokenWord, "inherits"},
		{TokenStructural, ":"},
		{TokenWord, "Equatable,"},
		{TokenWord, "Hashable"},
		{TokenStructural, ")"},
	})
}

func TestLexerIndentation(t *testing.T) {
	toks := lex(t, "(a)\n  (b)\n\n\n    (c)\n(d)")

	var depths []int
	var lines []int
	for _, tok := range toks {
		if tok.Kind == TokenIndent {
			depths = append(depths, tok.Depth)
			lines = append(lines, tok.Line)
		}
	}
	wantDepths := []int{0, 2, 4, 0}
	wantLines := []int{1, 2, 5, 6}
	if len(depths) != len(wantDepths) {
		t.Fatalf("indents = %v, want %v", depths, wantDepths)
	}
	for i := range wantDepths {
		if depths[i] != wantDepths[i] || lines[i] != wantLines[i] {
			t.Errorf("indent[%d] = depth %d line %d, want depth %d line %d",
				i, depths[i], lines[i], wantDepths[i], wantLines[i])
		}
	}
}

func TestLexerFlushAtEOF(t *testing.T) {
	tests := []struct {
		input string
		want  wantToken
	}{
		{"(a word", wantToken{TokenWord, "word"}},
		{"(a k=v", wantToken{TokenWord, "v"}},
		{"(a location=/x.swift:1:2", wantToken{TokenWord, "/x.swift:1:2"}},
		{"(a 'open", wantToken{TokenSymbol, "open"}},
		{`(a "open`, wantToken{TokenString, "open"}},
		{"(a r=[1 2", wantToken{TokenWord, "1 2"}},
	}
	for _, tt := range tests {
		toks := lex(t, tt.input)
		last := toks[len(toks)-1]
		if last.Kind != tt.want.kind || last.Text != tt.want.text {
			t.Errorf("Tokens(%q) last = %v, want %s(%q)", tt.input, last, tt.want.kind, tt.want.text)
		}
	}
}

func TestTokenizeDropsNoise(t *testing.T) {
	input := strings.Join([]string{
		`(struct_decl "Foo"`,
		`  (normal_conformance type='Foo' protocol='Equatable'`,
		`    (assoc_type req=Element type='Int')`,
		`  some stray text`,
		`  (func_decl "bar()")`,
	}, "\n")

	toks, err := Tokenize(input, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, tok := range toks {
		switch tok.Text {
		case "normal_conformance", "assoc_type", "stray", "Equatable":
			t.Errorf("noise token %v leaked into the stream", tok)
		}
	}
	if _, ok := FirstOf(toks, TokenString); !ok {
		t.Error("expected surviving struct name")
	}

	// Dropped lines keep numbering stable.
	for _, tok := range toks {
		if tok.Text == "func_decl" && tok.Line != 5 {
			t.Errorf("func_decl on line %d, want 5", tok.Line)
		}
	}
}

func TestLineFilterExtraPrefixes(t *testing.T) {
	f := NewLineFilter("(substitution_map")
	if f.Keep("  (substitution_map generic_signature=<T>") {
		t.Error("extra prefix should be dropped")
	}
	if !f.Keep("  (func_decl \"f()\"") {
		t.Error("func_decl should be kept")
	}
	if f.Keep("   ") {
		t.Error("blank line should be dropped")
	}
}
