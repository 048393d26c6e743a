package dump

// Node is one dump record and the records nested beneath it.
type Node struct {
	Tokens   []Token // record payload, Indent marker excluded
	Depth    int     // leading spaces; -1 for the synthetic root
	Line     int     // dump line of the first token
	Children []*Node
}

// Kind returns the record kind, the first Word of the payload.
func (n *Node) Kind() string {
	for _, t := range n.Tokens {
		switch t.Kind {
		case TokenWord:
			return t.Text
		case TokenStructural:
			continue
		default:
			return ""
		}
	}
	return ""
}

// ChildrenOfKind returns the direct children with the given record kind.
func (n *Node) ChildrenOfKind(kind string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

// BuildTree nests records by indentation. A record becomes a child of the
// nearest still-open record with a smaller depth, so uneven indentation
// steps are tolerated. The returned root has no tokens.
func BuildTree(tokens []Token) *Node {
	root := &Node{Depth: -1}
	stack := []*Node{root}

	var cur *Node
	open := func(depth, line int) {
		for len(stack) > 1 && stack[len(stack)-1].Depth >= depth {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		cur = &Node{Depth: depth, Line: line}
		parent.Children = append(parent.Children, cur)
		stack = append(stack, cur)
	}

	for _, t := range tokens {
		if t.Kind == TokenIndent {
			open(t.Depth, t.Line)
			continue
		}
		if cur == nil {
			open(0, t.Line)
		}
		cur.Tokens = append(cur.Tokens, t)
	}

	return root
}
