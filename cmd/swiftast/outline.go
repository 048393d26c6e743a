package main

import (
	"fmt"
	"strings"

	"github.com/chazu/swiftast/pkg/ast"
)

// ---------------------------------------------------------------------------
// swiftast parse -format outline: a structural listing of a parsed file
// ---------------------------------------------------------------------------

// Outline renders the declaration structure of f, one entry per line.
// With exprs set, expression trees are listed under their statements.
func Outline(f *ast.File, exprs bool) string {
	o := &outliner{
		exprs: exprs,
		buf:   &strings.Builder{},
	}
	if f.Path != "" {
		o.writeln(f.Path)
		o.indent++
	}
	for _, s := range f.Statements {
		o.statement(s)
	}
	return o.buf.String()
}

// outliner walks the AST and emits the outline.
type outliner struct {
	indent int
	exprs  bool
	buf    *strings.Builder
}

// writeln appends an indented line.
func (o *outliner) writeln(s string) {
	o.buf.WriteString(strings.Repeat("  ", o.indent))
	o.buf.WriteString(s)
	o.buf.WriteByte('\n')
}

func (o *outliner) nested(fn func()) {
	o.indent++
	fn()
	o.indent--
}

func (o *outliner) statement(s ast.Statement) {
	switch s := s.(type) {
	case *ast.Expression:
		if o.exprs {
			o.expression(s)
		}
	case ast.Declaration:
		o.declaration(s)
	}
}

func (o *outliner) declaration(d ast.Declaration) {
	o.writeln(declLine(d))
	switch d := d.(type) {
	case *ast.TopLevelCode:
		o.nested(func() { o.body(d.Body) })
	case *ast.Function:
		o.nested(func() { o.body(d.Body) })
	}
	if td, ok := ast.TypeDeclOf(d); ok {
		o.nested(func() {
			for _, m := range td.Members {
				o.declaration(m)
			}
		})
	}
}

func (o *outliner) body(stmts []ast.Statement) {
	if !o.exprs {
		return
	}
	for _, s := range stmts {
		o.statement(s)
	}
}

func (o *outliner) expression(e *ast.Expression) {
	var b strings.Builder
	b.WriteString(e.Kind)
	if e.Type != "" {
		fmt.Fprintf(&b, " : %s", e.Type)
	}
	if e.Decl != "" {
		fmt.Fprintf(&b, " -> %s", e.Decl)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " = %s", e.Value)
	}
	if e.Location != nil {
		fmt.Fprintf(&b, " @%d:%d", e.Location.Line+1, e.Location.Column)
	}
	if e.IsImplicit {
		b.WriteString(" (implicit)")
	}
	o.writeln(b.String())
	o.nested(func() {
		for _, c := range e.Children {
			o.expression(c)
		}
	})
}

// declLine is the one-line summary of a declaration.
func declLine(d ast.Declaration) string {
	var b strings.Builder
	if access := ast.AccessOf(d); access != "" && access != "internal" {
		b.WriteString(access)
		b.WriteByte(' ')
	}

	switch d := d.(type) {
	case *ast.TopLevelCode:
		b.WriteString("top-level code")
	case *ast.Import:
		fmt.Fprintf(&b, "import %s", d.ImportPath)
	case *ast.Variable:
		keyword := "var"
		if d.IsLet {
			keyword = "let"
		}
		fmt.Fprintf(&b, "%s %s: %s", keyword, d.Name, d.Type)
	case *ast.Function:
		fmt.Fprintf(&b, "func %s", d.Name)
		if len(d.Parameters) > 0 {
			params := make([]string, len(d.Parameters))
			for i, p := range d.Parameters {
				params[i] = p.Type
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(params, ", "))
		}
	default:
		if td, ok := ast.TypeDeclOf(d); ok {
			fmt.Fprintf(&b, "%s %s", d.Kind(), td.Name)
			if td.Inherits != "" {
				fmt.Fprintf(&b, ": %s", td.Inherits)
			}
		}
	}

	if r := d.SourceRange(); r != nil {
		fmt.Fprintf(&b, "  [%d-%d]", r.Start.Line+1, r.End.Line+1)
	}
	return b.String()
}
