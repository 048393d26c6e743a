// Package ast defines the typed Swift AST recovered from a compiler dump.
package ast

import (
	"fmt"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Source positions
// ---------------------------------------------------------------------------

// SourceLocation is a position in the original Swift source.
type SourceLocation struct {
	Line   int `json:"line"`   // 0-based
	Column int `json:"column"` // as emitted by the compiler
}

// Compare orders locations by line, then column.
func (l SourceLocation) Compare(o SourceLocation) int {
	switch {
	case l.Line < o.Line:
		return -1
	case l.Line > o.Line:
		return 1
	case l.Column < o.Column:
		return -1
	case l.Column > o.Column:
		return 1
	}
	return 0
}

// Less reports whether l sorts before o.
func (l SourceLocation) Less(o SourceLocation) bool {
	return l.Compare(o) < 0
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// SourceRange is a span between two source locations.
type SourceRange struct {
	Start SourceLocation `json:"start"`
	End   SourceLocation `json:"end"`
}

// Contains reports whether loc falls within the range, inclusive on both ends.
func (r SourceRange) Contains(loc SourceLocation) bool {
	return r.Start.Compare(loc) <= 0 && loc.Compare(r.End) <= 0
}

func (r SourceRange) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// ---------------------------------------------------------------------------
// Statements and declarations
// ---------------------------------------------------------------------------

// Statement is either an *Expression or a Declaration.
type Statement interface {
	stmt() // marker method
}

// DeclKind identifies a declaration variant.
type DeclKind uint8

const (
	DeclTopLevelCode DeclKind = iota + 1
	DeclImport
	DeclStruct
	DeclClass
	DeclEnum
	DeclExtension
	DeclVariable
	DeclFunction
)

var declKindNames = map[DeclKind]string{
	DeclTopLevelCode: "top_level_code",
	DeclImport:       "import",
	DeclStruct:       "struct",
	DeclClass:        "class",
	DeclEnum:         "enum",
	DeclExtension:    "extension",
	DeclVariable:     "variable",
	DeclFunction:     "function",
}

func (k DeclKind) String() string {
	if name, ok := declKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("DeclKind(%d)", k)
}

// ParseDeclKind maps a name produced by DeclKind.String back to its kind.
func ParseDeclKind(name string) (DeclKind, bool) {
	for k, n := range declKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Declaration is the sum type of all declaration variants.
type Declaration interface {
	Statement
	Kind() DeclKind
	// SourceRange returns the declaration's range when the dump carried one.
	SourceRange() *SourceRange
	decl() // marker method
}

// TopLevelCode holds script-mode statements at file scope.
type TopLevelCode struct {
	Body  []Statement  `json:"body"`
	Range *SourceRange `json:"range,omitempty"`
}

func (d *TopLevelCode) Kind() DeclKind            { return DeclTopLevelCode }
func (d *TopLevelCode) SourceRange() *SourceRange { return d.Range }
func (d *TopLevelCode) stmt()                     {}
func (d *TopLevelCode) decl()                     {}

// Import is an import declaration.
type Import struct {
	ImportKind string       `json:"importKind,omitempty"`
	ImportPath string       `json:"importPath"`
	Range      *SourceRange `json:"range,omitempty"`
}

func (d *Import) Kind() DeclKind            { return DeclImport }
func (d *Import) SourceRange() *SourceRange { return d.Range }
func (d *Import) stmt()                     {}
func (d *Import) decl()                     {}

// TypeDecl carries the fields shared by nominal type declarations and extensions.
type TypeDecl struct {
	Name     string        `json:"name"`
	Access   string        `json:"access"`
	Inherits string        `json:"inherits,omitempty"` // empty when absent
	Members  []Declaration `json:"members"`
	Range    *SourceRange  `json:"range,omitempty"`
}

// SourceRange returns the declaration range, if any.
func (d *TypeDecl) SourceRange() *SourceRange { return d.Range }

// Functions returns the function members in order.
func (d *TypeDecl) Functions() []*Function {
	var out []*Function
	for _, m := range d.Members {
		if fn, ok := m.(*Function); ok {
			out = append(out, fn)
		}
	}
	return out
}

// Variables returns the variable members in order.
func (d *TypeDecl) Variables() []*Variable {
	var out []*Variable
	for _, m := range d.Members {
		if v, ok := m.(*Variable); ok {
			out = append(out, v)
		}
	}
	return out
}

// Struct is a struct declaration.
type Struct struct{ TypeDecl }

func (d *Struct) Kind() DeclKind { return DeclStruct }
func (d *Struct) stmt()          {}
func (d *Struct) decl()          {}

// Class is a class declaration.
type Class struct{ TypeDecl }

func (d *Class) Kind() DeclKind { return DeclClass }
func (d *Class) stmt()          {}
func (d *Class) decl()          {}

// Enum is an enum declaration.
type Enum struct{ TypeDecl }

func (d *Enum) Kind() DeclKind { return DeclEnum }
func (d *Enum) stmt()          {}
func (d *Enum) decl()          {}

// Extension is an extension of a named type.
type Extension struct{ TypeDecl }

func (d *Extension) Kind() DeclKind { return DeclExtension }
func (d *Extension) stmt()          {}
func (d *Extension) decl()          {}

// Variable is a var or let declaration.
type Variable struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	IsLet       bool         `json:"isLet"`
	IsImmutable bool         `json:"isImmutable"`
	Range       *SourceRange `json:"range,omitempty"`
}

func (d *Variable) Kind() DeclKind            { return DeclVariable }
func (d *Variable) SourceRange() *SourceRange { return d.Range }
func (d *Variable) stmt()                     {}
func (d *Variable) decl()                     {}

// Parameter is one entry of a function's parameter list.
type Parameter struct {
	ExternalName string `json:"externalName,omitempty"`
	LocalName    string `json:"localName"`
	Type         string `json:"type"`
}

// Function is a function or method declaration.
type Function struct {
	Name       string       `json:"name"`
	Access     string       `json:"access"`
	Parameters []Parameter  `json:"parameters"`
	Body       []Statement  `json:"body"`
	Range      *SourceRange `json:"range,omitempty"`
}

func (d *Function) Kind() DeclKind            { return DeclFunction }
func (d *Function) SourceRange() *SourceRange { return d.Range }
func (d *Function) stmt()                     {}
func (d *Function) decl()                     {}

// NameOf returns the declared name, or "" for kinds without one.
func NameOf(d Declaration) string {
	switch d := d.(type) {
	case *Import:
		return d.ImportPath
	case *Struct:
		return d.Name
	case *Class:
		return d.Name
	case *Enum:
		return d.Name
	case *Extension:
		return d.Name
	case *Variable:
		return d.Name
	case *Function:
		return d.Name
	}
	return ""
}

// TypeDeclOf returns the shared TypeDecl for nominal types and extensions.
func TypeDeclOf(d Declaration) (*TypeDecl, bool) {
	switch d := d.(type) {
	case *Struct:
		return &d.TypeDecl, true
	case *Class:
		return &d.TypeDecl, true
	case *Enum:
		return &d.TypeDecl, true
	case *Extension:
		return &d.TypeDecl, true
	}
	return nil, false
}

// AccessOf returns the access level of types and functions, or "".
func AccessOf(d Declaration) string {
	if td, ok := TypeDeclOf(d); ok {
		return td.Access
	}
	if fn, ok := d.(*Function); ok {
		return fn.Access
	}
	return ""
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ExprID is the opaque identity of an expression node.
type ExprID uint64

var lastExprID atomic.Uint64

// NewExprID returns an identity unique within the process.
func NewExprID() ExprID {
	return ExprID(lastExprID.Add(1))
}

// ThrowsKind is the effect annotation the compiler attaches to calls.
type ThrowsKind string

const (
	NoThrow  ThrowsKind = "nothrow"
	Throws   ThrowsKind = "throws"
	Rethrows ThrowsKind = "rethrows"
)

// Expression is the catch-all node for any record without a dedicated model.
// Two expressions are the same entity only if their IDs match.
type Expression struct {
	ID             ExprID          `json:"-"`
	Kind           string          `json:"kind"`
	Type           string          `json:"type,omitempty"`
	Location       *SourceLocation `json:"location,omitempty"`
	Range          *SourceRange    `json:"range,omitempty"`
	Decl           string          `json:"decl,omitempty"`
	Value          string          `json:"value,omitempty"`
	ThrowsKind     ThrowsKind      `json:"throwsKind,omitempty"`
	ArgumentLabels string          `json:"argumentLabels,omitempty"`
	IsImplicit     bool            `json:"isImplicit"`
	Children       []*Expression   `json:"children,omitempty"`
}

// NewExpression returns an expression of the given kind with a fresh ID.
func NewExpression(kind string) *Expression {
	return &Expression{ID: NewExprID(), Kind: kind}
}

func (e *Expression) stmt() {}

// Equal reports identity equality.
func (e *Expression) Equal(o *Expression) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.ID == o.ID
}

// ---------------------------------------------------------------------------
// File
// ---------------------------------------------------------------------------

// File is the parse result for one source file.
type File struct {
	Path       string      `json:"path,omitempty"`
	Statements []Statement `json:"statements"`
}

// Declarations returns the top-level declarations in order.
func (f *File) Declarations() []Declaration {
	var out []Declaration
	for _, s := range f.Statements {
		if d, ok := s.(Declaration); ok {
			out = append(out, d)
		}
	}
	return out
}

// Expressions returns the top-level statements that are plain expressions.
func (f *File) Expressions() []*Expression {
	var out []*Expression
	for _, s := range f.Statements {
		if e, ok := s.(*Expression); ok {
			out = append(out, e)
		}
	}
	return out
}
