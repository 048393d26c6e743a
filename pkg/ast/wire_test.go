package ast

import (
	"bytes"
	"testing"
)

func sampleFile() *File {
	lit := NewExpression("integer_literal_expr")
	lit.Type = "Int"
	lit.Value = "42"
	lit.Location = &SourceLocation{Line: 4, Column: 3}

	call := NewExpression("call_expr")
	call.ThrowsKind = NoThrow
	call.Range = &SourceRange{Start: SourceLocation{1, 9}, End: SourceLocation{3, 7}}
	call.Children = []*Expression{lit}

	return &File{
		Path: "/tmp/a.swift",
		Statements: []Statement{
			&Import{ImportKind: "Swift_Module", ImportPath: "Foundation"},
			&Struct{TypeDecl{
				Name:     "Point",
				Access:   "public",
				Inherits: "Equatable",
				Members: []Declaration{
					&Function{Name: "norm", Access: "internal", Parameters: []Parameter{{ExternalName: "by", LocalName: "factor", Type: "Double"}}},
					&Variable{Name: "x", Type: "Double", IsLet: true},
				},
			}},
			&TopLevelCode{Body: []Statement{call}},
		},
	}
}

func TestWireRoundTrip(t *testing.T) {
	orig := sampleFile()
	data, err := MarshalFile(orig)
	if err != nil {
		t.Fatalf("MarshalFile: %v", err)
	}

	got, err := UnmarshalFile(data)
	if err != nil {
		t.Fatalf("UnmarshalFile: %v", err)
	}

	if got.Path != orig.Path {
		t.Errorf("path = %q, want %q", got.Path, orig.Path)
	}
	if len(got.Statements) != 3 {
		t.Fatalf("statements = %d, want 3", len(got.Statements))
	}

	imp, ok := got.Statements[0].(*Import)
	if !ok || imp.ImportPath != "Foundation" || imp.ImportKind != "Swift_Module" {
		t.Errorf("import = %#v", got.Statements[0])
	}

	st, ok := got.Statements[1].(*Struct)
	if !ok {
		t.Fatalf("statement[1] = %T, want *Struct", got.Statements[1])
	}
	if st.Name != "Point" || st.Access != "public" || st.Inherits != "Equatable" {
		t.Errorf("struct = %+v", st.TypeDecl)
	}
	if len(st.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(st.Members))
	}
	fn := st.Members[0].(*Function)
	if len(fn.Parameters) != 1 || fn.Parameters[0].ExternalName != "by" {
		t.Errorf("parameters = %+v", fn.Parameters)
	}

	tlc := got.Statements[2].(*TopLevelCode)
	call := tlc.Body[0].(*Expression)
	origCall := orig.Statements[2].(*TopLevelCode).Body[0].(*Expression)
	if call.Kind != "call_expr" || call.ThrowsKind != NoThrow {
		t.Errorf("call = %+v", call)
	}
	if call.Range == nil || *call.Range != *origCall.Range {
		t.Errorf("range = %v, want %v", call.Range, origCall.Range)
	}
	if call.Equal(origCall) {
		t.Error("decoded expression must get a fresh identity")
	}
	if len(call.Children) != 1 || call.Children[0].Value != "42" {
		t.Errorf("children = %+v", call.Children)
	}
	if loc := call.Children[0].Location; loc == nil || loc.Line != 4 || loc.Column != 3 {
		t.Errorf("child location = %v", loc)
	}
}

func TestWireCanonical(t *testing.T) {
	a, err := MarshalFile(sampleFile())
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalFile(sampleFile())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("equal files must encode to equal bytes")
	}
}

func TestUnmarshalFileGarbage(t *testing.T) {
	if _, err := UnmarshalFile([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error for malformed input")
	}
}
