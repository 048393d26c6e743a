package ast

// Inspect traverses statements depth-first in source order. If fn returns
// false the children of that statement are skipped.
func Inspect(stmts []Statement, fn func(Statement) bool) {
	for _, s := range stmts {
		inspect(s, fn)
	}
}

func inspect(s Statement, fn func(Statement) bool) {
	if s == nil || !fn(s) {
		return
	}
	switch s := s.(type) {
	case *Expression:
		for _, c := range s.Children {
			inspect(c, fn)
		}
	case *TopLevelCode:
		Inspect(s.Body, fn)
	case *Function:
		Inspect(s.Body, fn)
	case *Struct:
		inspectMembers(s.Members, fn)
	case *Class:
		inspectMembers(s.Members, fn)
	case *Enum:
		inspectMembers(s.Members, fn)
	case *Extension:
		inspectMembers(s.Members, fn)
	}
}

func inspectMembers(members []Declaration, fn func(Statement) bool) {
	for _, m := range members {
		inspect(m, fn)
	}
}

// CountExpressions returns the number of expression nodes reachable from stmts.
func CountExpressions(stmts []Statement) int {
	n := 0
	Inspect(stmts, func(s Statement) bool {
		if _, ok := s.(*Expression); ok {
			n++
		}
		return true
	})
	return n
}
