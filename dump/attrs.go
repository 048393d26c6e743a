package dump

import (
	"strconv"
	"strings"

	"github.com/chazu/swiftast/pkg/ast"
)

// ---------------------------------------------------------------------------
// Attribute extraction. All helpers are pure functions over a token slice.
// ---------------------------------------------------------------------------

// Attributes collects key=value pairs around every '=' token. The first
// occurrence of a key wins.
func Attributes(tokens []Token) map[string]string {
	attrs := make(map[string]string)
	for i, t := range tokens {
		if !t.Is("=") || i == 0 || i+1 >= len(tokens) {
			continue
		}
		key, val := tokens[i-1], tokens[i+1]
		if key.Kind != TokenWord || val.Kind == TokenStructural || val.Kind == TokenIndent {
			continue
		}
		if _, dup := attrs[key.Text]; !dup {
			attrs[key.Text] = val.Text
		}
	}
	return attrs
}

// HasFlag reports whether a bare word appears in the payload outside of an
// attribute value.
func HasFlag(tokens []Token, word string) bool {
	for i, t := range tokens {
		if t.IsWord(word) && (i == 0 || !tokens[i-1].Is("=")) {
			return true
		}
	}
	return false
}

// FirstOf returns the text of the first token of kind.
func FirstOf(tokens []Token, kind TokenKind) (string, bool) {
	for _, t := range tokens {
		if t.Kind == kind {
			return t.Text, true
		}
	}
	return "", false
}

// ParseLocation reads a "path:line:col" value. Dump lines are 1-based, the
// model is 0-based; the column is kept as emitted.
func ParseLocation(text string) (ast.SourceLocation, error) {
	parts := strings.Split(text, ":")
	if len(parts) < 3 {
		return ast.SourceLocation{}, formatErrorf("location", text, "expected path:line:column")
	}
	line, err := positional(parts[len(parts)-2], -1)
	if err != nil {
		return ast.SourceLocation{}, formatErrorf("location", text, "bad line: %v", err)
	}
	col, err := positional(parts[len(parts)-1], 0)
	if err != nil {
		return ast.SourceLocation{}, formatErrorf("location", text, "bad column: %v", err)
	}
	return ast.SourceLocation{Line: line, Column: col}, nil
}

var rangeStripper = strings.NewReplacer("[", "", "]", "", " - line", "")

// ParseRange reads a "[path:l1:c1 - line:l2:c2]" value. Both lines and the
// start column are decremented; the end column is kept as emitted.
func ParseRange(text string) (ast.SourceRange, error) {
	parts := strings.Split(rangeStripper.Replace(text), ":")
	if len(parts) < 5 {
		return ast.SourceRange{}, formatErrorf("range", text, "expected path:line:column - line:line:column")
	}
	fields := parts[len(parts)-4:]
	adjust := [4]int{-1, -1, -1, 0}
	var v [4]int
	for i, f := range fields {
		n, err := positional(f, adjust[i])
		if err != nil {
			return ast.SourceRange{}, formatErrorf("range", text, "field %d: %v", i+1, err)
		}
		v[i] = n
	}
	return ast.SourceRange{
		Start: ast.SourceLocation{Line: v[0], Column: v[1]},
		End:   ast.SourceLocation{Line: v[2], Column: v[3]},
	}, nil
}

func positional(field string, adjust int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, err
	}
	n += adjust
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

// Inherits returns the space-joined tokens after an "inherits :" pair, up
// to the record's closing parenthesis.
func Inherits(tokens []Token) (string, bool) {
	for i := 0; i+1 < len(tokens); i++ {
		if !tokens[i].IsWord("inherits") || !tokens[i+1].Is(":") {
			continue
		}
		var parts []string
		for _, t := range tokens[i+2:] {
			if t.Is(")") {
				break
			}
			if t.Kind == TokenIndent {
				continue
			}
			parts = append(parts, t.Text)
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, " "), true
	}
	return "", false
}
