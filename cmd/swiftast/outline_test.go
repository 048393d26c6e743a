package main

import (
	"testing"

	"github.com/chazu/swiftast/pkg/ast"
)

func span(start, end int) *ast.SourceRange {
	return &ast.SourceRange{
		Start: ast.SourceLocation{Line: start, Column: 1},
		End:   ast.SourceLocation{Line: end, Column: 1},
	}
}

func outlineFile() *ast.File {
	call := ast.NewExpression("call_expr")
	call.Type = "()"
	call.Location = &ast.SourceLocation{Line: 9, Column: 5}
	ref := ast.NewExpression("declref_expr")
	ref.Decl = "Swift.(file).print"
	ref.IsImplicit = true
	call.Children = []*ast.Expression{ref}

	return &ast.File{
		Path: "/src/Point.swift",
		Statements: []ast.Statement{
			&ast.Import{ImportPath: "Foundation", Range: span(0, 0)},
			&ast.Struct{TypeDecl: ast.TypeDecl{
				Name:     "Point",
				Access:   "public",
				Inherits: "Equatable",
				Range:    span(2, 12),
				Members: []ast.Declaration{
					&ast.Variable{Name: "x", Type: "Int", IsLet: true},
					&ast.Function{
						Name:       "move(by:)",
						Access:     "internal",
						Parameters: []ast.Parameter{{ExternalName: "by", LocalName: "d", Type: "Int"}},
						Body:       []ast.Statement{call},
						Range:      span(8, 10),
					},
				},
			}},
			&ast.TopLevelCode{Body: []ast.Statement{ast.NewExpression("integer_literal_expr")}},
		},
	}
}

func TestOutline(t *testing.T) {
	want := `/src/Point.swift
  import Foundation  [1-1]
  public struct Point: Equatable  [3-13]
    let x: Int
    func move(by:) (Int)  [9-11]
  top-level code
`
	if got := Outline(outlineFile(), false); got != want {
		t.Errorf("Outline() =\n%s\nwant:\n%s", got, want)
	}
}

func TestOutlineExpressions(t *testing.T) {
	want := `/src/Point.swift
  import Foundation  [1-1]
  public struct Point: Equatable  [3-13]
    let x: Int
    func move(by:) (Int)  [9-11]
      call_expr : () @10:5
        declref_expr -> Swift.(file).print (implicit)
  top-level code
    integer_literal_expr
`
	if got := Outline(outlineFile(), true); got != want {
		t.Errorf("Outline() =\n%s\nwant:\n%s", got, want)
	}
}

func TestDeclLine(t *testing.T) {
	tests := []struct {
		name string
		decl ast.Declaration
		want string
	}{
		{"var", &ast.Variable{Name: "count", Type: "Int"}, "var count: Int"},
		{"let", &ast.Variable{Name: "pi", Type: "Double", IsLet: true}, "let pi: Double"},
		{"no params", &ast.Function{Name: "run()", Access: "private"}, "private func run()"},
		{"enum", &ast.Enum{TypeDecl: ast.TypeDecl{Name: "Color", Access: "internal"}}, "enum Color"},
		{"extension", &ast.Extension{TypeDecl: ast.TypeDecl{Name: "Point", Inherits: "Hashable"}}, "extension Point: Hashable"},
		{"class range", &ast.Class{TypeDecl: ast.TypeDecl{Name: "View", Access: "open", Range: span(4, 20)}}, "open class View  [5-21]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := declLine(tt.decl); got != tt.want {
				t.Errorf("declLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
