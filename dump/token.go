package dump

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the AST dump lexer
// ---------------------------------------------------------------------------

// TokenKind represents the kind of a token.
type TokenKind int

const (
	TokenStructural TokenKind = iota // ( ) : =
	TokenWord                        // bareword, key or bare value
	TokenSymbol                      // 'single quoted'
	TokenString                      // "double quoted"
	TokenIndent                      // leading spaces at line start
)

var tokenNames = map[TokenKind]string{
	TokenStructural: "STRUCTURAL",
	TokenWord:       "WORD",
	TokenSymbol:     "SYMBOL",
	TokenString:     "STRING",
	TokenIndent:     "INDENT",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", k)
}

// Token is one lexical unit of the dump.
type Token struct {
	Kind  TokenKind
	Text  string // quotes stripped; escapes kept verbatim
	Depth int    // space count, Indent tokens only
	Line  int    // 1-based dump line
}

func (t Token) String() string {
	if t.Kind == TokenIndent {
		return fmt.Sprintf("INDENT(%d)", t.Depth)
	}
	if len(t.Text) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Kind, t.Text[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
}

// Is reports whether t is a structural token with the given text.
func (t Token) Is(structural string) bool {
	return t.Kind == TokenStructural && t.Text == structural
}

// IsWord reports whether t is a bare word with the given text.
func (t Token) IsWord(text string) bool {
	return t.Kind == TokenWord && t.Text == text
}
