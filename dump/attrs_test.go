package dump

import (
	"errors"
	"testing"

	"github.com/chazu/swiftast/pkg/ast"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		input   string
		want    ast.SourceLocation
		wantErr bool
	}{
		{"/a/b.swift:5:3", ast.SourceLocation{Line: 4, Column: 3}, false},
		{"a.swift:1:0", ast.SourceLocation{Line: 0, Column: 0}, false},
		{"C:/src/a.swift:10:2", ast.SourceLocation{Line: 9, Column: 2}, false},
		{"nocolon", ast.SourceLocation{}, true},
		{"/a.swift:5", ast.SourceLocation{}, true},
		{"/a.swift:x:3", ast.SourceLocation{}, true},
		{"/a.swift:0:3", ast.SourceLocation{}, true},
	}

	for _, tt := range tests {
		got, err := ParseLocation(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLocation(%q) = %v, want error", tt.input, got)
			} else if !errors.Is(err, ErrFormat) {
				t.Errorf("ParseLocation(%q) error %v is not a format error", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLocation(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLocation(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseRange(t *testing.T) {
	want := ast.SourceRange{
		Start: ast.SourceLocation{Line: 1, Column: 9},
		End:   ast.SourceLocation{Line: 3, Column: 7},
	}
	for _, input := range []string{
		"[/a/b.swift:2:10 - line:4:7]",
		"/a/b.swift:2:10 - line:4:7",
	} {
		got, err := ParseRange(input)
		if err != nil {
			t.Fatalf("ParseRange(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("ParseRange(%q) = %v, want %v", input, got, want)
		}
	}

	for _, bad := range []string{
		"[/a.swift:2:10]",
		"[/a.swift:2:x - line:4:7]",
		"[/a.swift:2:0 - line:4:7]",
		"",
	} {
		if _, err := ParseRange(bad); !errors.Is(err, ErrFormat) {
			t.Errorf("ParseRange(%q) error = %v, want format error", bad, err)
		}
	}
}

func TestAttributesFirstOccurrenceWins(t *testing.T) {
	toks := lex(t, `(var_decl "x" type='Int' interface type='Foo' access=private)`)
	attrs := Attributes(toks)
	if attrs["type"] != "Int" {
		t.Errorf("type = %q, want Int", attrs["type"])
	}
	if attrs["access"] != "private" {
		t.Errorf("access = %q, want private", attrs["access"])
	}
	if _, ok := attrs["interface"]; ok {
		t.Error("interface is not a key")
	}
}

func TestAttributesIgnoresDanglingEquals(t *testing.T) {
	toks := []Token{
		{Kind: TokenStructural, Text: "="},
		{Kind: TokenWord, Text: "k"},
		{Kind: TokenStructural, Text: "="},
	}
	if attrs := Attributes(toks); len(attrs) != 0 {
		t.Errorf("attrs = %v, want empty", attrs)
	}
}

func TestHasFlag(t *testing.T) {
	if !HasFlag(lex(t, `(var_decl implicit "x")`), "implicit") {
		t.Error("implicit flag not found")
	}
	if HasFlag(lex(t, `(var_decl "x" kind=implicit)`), "implicit") {
		t.Error("attribute value must not count as a flag")
	}
	if HasFlag(lex(t, `(var_decl "implicit")`), "implicit") {
		t.Error("quoted name must not count as a flag")
	}
}

func TestInherits(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{`(struct_decl "Foo" inherits: Equatable, Hashable)`, "Equatable, Hashable", true},
		{`(class_decl "C" access=open inherits: Base`, "Base", true},
		{`(struct_decl "Foo")`, "", false},
		{`(struct_decl "Foo" inherits:)`, "", false},
	}
	for _, tt := range tests {
		got, ok := Inherits(lex(t, tt.input))
		if got != tt.want || ok != tt.ok {
			t.Errorf("Inherits(%q) = %q, %v want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: StructuralError, Record: "var_decl", Attr: "type", Line: 12, Msg: "missing required attribute"}
	want := "line 12: structural error in var_decl: missing required attribute (attribute type)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrStructural) || errors.Is(err, ErrFormat) {
		t.Error("sentinel matching is wrong")
	}
}
