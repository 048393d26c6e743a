// Package policy checks declarations against CUE constraints.
//
// A policy file maps declaration kinds to constraints. Each declaration
// is summarized as a struct and unified with the constraint for its kind;
// constraints under "declaration" apply to every kind:
//
//	function: name: =~"^[a-z]"
//	struct: access: "public" | "internal"
//	declaration: name: !=""
package policy

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/chazu/swiftast/pkg/ast"
)

// AnyKind is the policy field applied to declarations of every kind.
const AnyKind = "declaration"

// Policy is a compiled set of constraints. A Policy is not safe for
// concurrent use.
type Policy struct {
	ctx   *cue.Context
	value cue.Value
}

// Violation is one failed constraint.
type Violation struct {
	Path    string
	Line    int
	Kind    ast.DeclKind
	Name    string
	Message string
}

func (v Violation) String() string {
	loc := v.Path
	if v.Line > 0 {
		loc = fmt.Sprintf("%s:%d", v.Path, v.Line)
	}
	return fmt.Sprintf("%s: %s %s: %s", loc, v.Kind, v.Name, v.Message)
}

// Load compiles the policy file at path.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}
	return Compile(path, data)
}

// Compile compiles policy source. name is used in error positions.
func Compile(name string, src []byte) (*Policy, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compiling policy %s: %w", name, err)
	}
	iter, err := value.Fields()
	if err != nil {
		return nil, fmt.Errorf("policy %s must be a struct: %w", name, err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		if label == AnyKind {
			continue
		}
		if _, ok := ast.ParseDeclKind(label); !ok {
			return nil, fmt.Errorf("policy %s: unknown declaration kind %q", name, label)
		}
	}
	return &Policy{ctx: ctx, value: value}, nil
}

// Check evaluates every declaration of f, including type members.
func (p *Policy) Check(f *ast.File) []Violation {
	var out []Violation
	var visit func(d ast.Declaration, parent string)
	visit = func(d ast.Declaration, parent string) {
		out = append(out, p.CheckDecl(f.Path, d, parent)...)
		if td, ok := ast.TypeDeclOf(d); ok {
			for _, m := range td.Members {
				visit(m, td.Name)
			}
		}
	}
	for _, d := range f.Declarations() {
		visit(d, "")
	}
	return out
}

// CheckDecl evaluates a single declaration.
func (p *Policy) CheckDecl(path string, d ast.Declaration, parent string) []Violation {
	summary := Summarize(d, parent)
	line := 0
	if r := d.SourceRange(); r != nil {
		line = r.Start.Line + 1
	}

	var out []Violation
	for _, label := range []string{AnyKind, d.Kind().String()} {
		constraint := p.value.LookupPath(cue.MakePath(cue.Str(label)))
		if !constraint.Exists() {
			continue
		}
		err := constraint.Unify(p.ctx.Encode(summary)).Validate(cue.Concrete(true))
		for _, e := range cueerrors.Errors(err) {
			format, args := e.Msg()
			out = append(out, Violation{
				Path:    path,
				Line:    line,
				Kind:    d.Kind(),
				Name:    ast.NameOf(d),
				Message: fieldPrefix(e) + fmt.Sprintf(format, args...),
			})
		}
	}
	return out
}

func fieldPrefix(e cueerrors.Error) string {
	sels := e.Path()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1] + ": "
}

// Summarize returns the fields a constraint can refer to.
func Summarize(d ast.Declaration, parent string) map[string]any {
	s := map[string]any{
		"kind":   d.Kind().String(),
		"name":   ast.NameOf(d),
		"parent": parent,
		"access": ast.AccessOf(d),
	}
	switch d := d.(type) {
	case *ast.Import:
		s["importKind"] = d.ImportKind
	case *ast.Variable:
		s["type"] = d.Type
		s["isLet"] = d.IsLet
		s["isImmutable"] = d.IsImmutable
	case *ast.Function:
		params := make([]any, 0, len(d.Parameters))
		for _, p := range d.Parameters {
			params = append(params, map[string]any{
				"externalName": p.ExternalName,
				"localName":    p.LocalName,
				"type":         p.Type,
			})
		}
		s["parameters"] = params
		s["arity"] = len(d.Parameters)
	case *ast.TopLevelCode:
		s["statements"] = len(d.Body)
	}
	if td, ok := ast.TypeDeclOf(d); ok {
		s["inherits"] = td.Inherits
		s["members"] = len(td.Members)
		s["functions"] = len(td.Functions())
		s["variables"] = len(td.Variables())
	}
	return s
}
