package ast

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical options so equal files encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ast: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireFile is the CBOR envelope for a File.
type wireFile struct {
	Path       string     `cbor:"1,keyasint,omitempty"`
	Statements []wireStmt `cbor:"2,keyasint"`
}

// wireStmt flattens every statement variant into one record. Kind 0 marks
// an expression.
type wireStmt struct {
	Kind        DeclKind     `cbor:"1,keyasint"`
	Expr        *wireExpr    `cbor:"2,keyasint,omitempty"`
	Name        string       `cbor:"3,keyasint,omitempty"`
	Access      string       `cbor:"4,keyasint,omitempty"`
	Inherits    string       `cbor:"5,keyasint,omitempty"`
	ImportKind  string       `cbor:"6,keyasint,omitempty"`
	ImportPath  string       `cbor:"7,keyasint,omitempty"`
	Type        string       `cbor:"8,keyasint,omitempty"`
	IsLet       bool         `cbor:"9,keyasint,omitempty"`
	IsImmutable bool         `cbor:"10,keyasint,omitempty"`
	Parameters  []Parameter  `cbor:"11,keyasint,omitempty"`
	Members     []wireStmt   `cbor:"12,keyasint,omitempty"`
	Body        []wireStmt   `cbor:"13,keyasint,omitempty"`
	Range       *SourceRange `cbor:"14,keyasint,omitempty"`
}

type wireExpr struct {
	Kind           string          `cbor:"1,keyasint"`
	Type           string          `cbor:"2,keyasint,omitempty"`
	Location       *SourceLocation `cbor:"3,keyasint,omitempty"`
	Range          *SourceRange    `cbor:"4,keyasint,omitempty"`
	Decl           string          `cbor:"5,keyasint,omitempty"`
	Value          string          `cbor:"6,keyasint,omitempty"`
	ThrowsKind     ThrowsKind      `cbor:"7,keyasint,omitempty"`
	ArgumentLabels string          `cbor:"8,keyasint,omitempty"`
	IsImplicit     bool            `cbor:"9,keyasint,omitempty"`
	Children       []*wireExpr     `cbor:"10,keyasint,omitempty"`
}

// MarshalFile serializes a File to CBOR bytes. Expression IDs are not
// encoded; they identify nodes within one process only.
func MarshalFile(f *File) ([]byte, error) {
	w, err := toWireFile(f)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalFile deserializes a File from CBOR bytes. Every expression gets
// a fresh ID.
func UnmarshalFile(data []byte) (*File, error) {
	var w wireFile
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("ast: unmarshal file: %w", err)
	}
	f := &File{Path: w.Path}
	for i := range w.Statements {
		s, err := fromWireStmt(&w.Statements[i])
		if err != nil {
			return nil, err
		}
		f.Statements = append(f.Statements, s)
	}
	return f, nil
}

func toWireFile(f *File) (*wireFile, error) {
	w := &wireFile{Path: f.Path}
	stmts, err := toWireStmts(f.Statements)
	if err != nil {
		return nil, err
	}
	w.Statements = stmts
	return w, nil
}

func toWireStmts(stmts []Statement) ([]wireStmt, error) {
	out := make([]wireStmt, 0, len(stmts))
	for _, s := range stmts {
		w, err := toWireStmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func toWireMembers(members []Declaration) ([]wireStmt, error) {
	stmts := make([]Statement, len(members))
	for i, m := range members {
		stmts[i] = m
	}
	return toWireStmts(stmts)
}

func toWireStmt(s Statement) (wireStmt, error) {
	var err error
	switch s := s.(type) {
	case *Expression:
		return wireStmt{Expr: toWireExpr(s)}, nil
	case *TopLevelCode:
		w := wireStmt{Kind: DeclTopLevelCode, Range: s.Range}
		w.Body, err = toWireStmts(s.Body)
		return w, err
	case *Import:
		return wireStmt{Kind: DeclImport, ImportKind: s.ImportKind, ImportPath: s.ImportPath, Range: s.Range}, nil
	case *Struct, *Class, *Enum, *Extension:
		d := s.(Declaration)
		td, _ := TypeDeclOf(d)
		w := wireStmt{Kind: d.Kind(), Name: td.Name, Access: td.Access, Inherits: td.Inherits, Range: td.Range}
		w.Members, err = toWireMembers(td.Members)
		return w, err
	case *Variable:
		return wireStmt{Kind: DeclVariable, Name: s.Name, Type: s.Type, IsLet: s.IsLet, IsImmutable: s.IsImmutable, Range: s.Range}, nil
	case *Function:
		w := wireStmt{Kind: DeclFunction, Name: s.Name, Access: s.Access, Parameters: s.Parameters, Range: s.Range}
		w.Body, err = toWireStmts(s.Body)
		return w, err
	}
	return wireStmt{}, fmt.Errorf("ast: cannot encode statement %T", s)
}

func toWireExpr(e *Expression) *wireExpr {
	w := &wireExpr{
		Kind:           e.Kind,
		Type:           e.Type,
		Location:       e.Location,
		Range:          e.Range,
		Decl:           e.Decl,
		Value:          e.Value,
		ThrowsKind:     e.ThrowsKind,
		ArgumentLabels: e.ArgumentLabels,
		IsImplicit:     e.IsImplicit,
	}
	for _, c := range e.Children {
		w.Children = append(w.Children, toWireExpr(c))
	}
	return w
}

func fromWireStmts(ws []wireStmt) ([]Statement, error) {
	var out []Statement
	for i := range ws {
		s, err := fromWireStmt(&ws[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func fromWireMembers(ws []wireStmt) ([]Declaration, error) {
	stmts, err := fromWireStmts(ws)
	if err != nil {
		return nil, err
	}
	var out []Declaration
	for _, s := range stmts {
		d, ok := s.(Declaration)
		if !ok {
			return nil, fmt.Errorf("ast: member is not a declaration")
		}
		out = append(out, d)
	}
	return out, nil
}

func fromWireStmt(w *wireStmt) (Statement, error) {
	if w.Kind == 0 {
		if w.Expr == nil {
			return nil, fmt.Errorf("ast: expression statement without payload")
		}
		return fromWireExpr(w.Expr), nil
	}

	switch w.Kind {
	case DeclTopLevelCode:
		body, err := fromWireStmts(w.Body)
		if err != nil {
			return nil, err
		}
		return &TopLevelCode{Body: body, Range: w.Range}, nil
	case DeclImport:
		return &Import{ImportKind: w.ImportKind, ImportPath: w.ImportPath, Range: w.Range}, nil
	case DeclStruct, DeclClass, DeclEnum, DeclExtension:
		members, err := fromWireMembers(w.Members)
		if err != nil {
			return nil, err
		}
		td := TypeDecl{Name: w.Name, Access: w.Access, Inherits: w.Inherits, Members: members, Range: w.Range}
		switch w.Kind {
		case DeclStruct:
			return &Struct{td}, nil
		case DeclClass:
			return &Class{td}, nil
		case DeclEnum:
			return &Enum{td}, nil
		default:
			return &Extension{td}, nil
		}
	case DeclVariable:
		return &Variable{Name: w.Name, Type: w.Type, IsLet: w.IsLet, IsImmutable: w.IsImmutable, Range: w.Range}, nil
	case DeclFunction:
		body, err := fromWireStmts(w.Body)
		if err != nil {
			return nil, err
		}
		return &Function{Name: w.Name, Access: w.Access, Parameters: w.Parameters, Body: body, Range: w.Range}, nil
	}
	return nil, fmt.Errorf("ast: unknown declaration kind %d", w.Kind)
}

func fromWireExpr(w *wireExpr) *Expression {
	e := NewExpression(w.Kind)
	e.Type = w.Type
	e.Location = w.Location
	e.Range = w.Range
	e.Decl = w.Decl
	e.Value = w.Value
	e.ThrowsKind = w.ThrowsKind
	e.ArgumentLabels = w.ArgumentLabels
	e.IsImplicit = w.IsImplicit
	for _, c := range w.Children {
		e.Children = append(e.Children, fromWireExpr(c))
	}
	return e
}
