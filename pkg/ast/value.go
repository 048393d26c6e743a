package ast

// Values converts statements into plain maps and slices of strings, bools
// and ints, suitable for JSON or protobuf Struct encoding. Declarations
// carry a "decl" key and expressions an "expr" key naming their kind.
func Values(stmts []Statement) []any {
	out := make([]any, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, Value(s))
	}
	return out
}

// Value converts a single statement. See Values.
func Value(s Statement) map[string]any {
	switch s := s.(type) {
	case *Expression:
		return exprValue(s)
	case Declaration:
		return declValue(s)
	}
	return map[string]any{}
}

func declValue(d Declaration) map[string]any {
	m := map[string]any{"decl": d.Kind().String()}
	if name := NameOf(d); name != "" {
		m["name"] = name
	}
	if access := AccessOf(d); access != "" {
		m["access"] = access
	}
	if r := d.SourceRange(); r != nil {
		m["range"] = rangeValue(*r)
	}

	switch d := d.(type) {
	case *TopLevelCode:
		m["body"] = Values(d.Body)
	case *Import:
		m["importKind"] = d.ImportKind
	case *Variable:
		m["type"] = d.Type
		m["isLet"] = d.IsLet
		m["isImmutable"] = d.IsImmutable
	case *Function:
		params := make([]any, 0, len(d.Parameters))
		for _, p := range d.Parameters {
			pm := map[string]any{"type": p.Type}
			if p.ExternalName != "" {
				pm["externalName"] = p.ExternalName
			}
			if p.LocalName != "" {
				pm["localName"] = p.LocalName
			}
			params = append(params, pm)
		}
		m["parameters"] = params
		m["body"] = Values(d.Body)
	}
	if td, ok := TypeDeclOf(d); ok {
		if td.Inherits != "" {
			m["inherits"] = td.Inherits
		}
		members := make([]any, 0, len(td.Members))
		for _, mem := range td.Members {
			members = append(members, declValue(mem))
		}
		m["members"] = members
	}
	return m
}

func exprValue(e *Expression) map[string]any {
	m := map[string]any{"expr": e.Kind}
	set := func(key, v string) {
		if v != "" {
			m[key] = v
		}
	}
	set("type", e.Type)
	set("decl", e.Decl)
	set("value", e.Value)
	set("throws", string(e.ThrowsKind))
	set("argumentLabels", e.ArgumentLabels)
	if e.IsImplicit {
		m["implicit"] = true
	}
	if e.Location != nil {
		m["location"] = locationValue(*e.Location)
	}
	if e.Range != nil {
		m["range"] = rangeValue(*e.Range)
	}
	if len(e.Children) > 0 {
		children := make([]any, 0, len(e.Children))
		for _, c := range e.Children {
			children = append(children, exprValue(c))
		}
		m["children"] = children
	}
	return m
}

func locationValue(l SourceLocation) map[string]any {
	return map[string]any{"line": l.Line, "column": l.Column}
}

func rangeValue(r SourceRange) map[string]any {
	return map[string]any{"start": locationValue(r.Start), "end": locationValue(r.End)}
}
