package dump

import "strings"

// ---------------------------------------------------------------------------
// Lexer: single pass scanner for the AST dump
// ---------------------------------------------------------------------------

// lexMode is the scanner's mode register.
type lexMode int

const (
	modePlain lexMode = iota
	modeWord
	modeValue        // bare value after '='
	modePath         // value of location=, may contain ':'
	modeArray        // [ ... ]
	modeSymbol       // '...'
	modeString       // "..."
	modeStringEscape // after '\' inside a string
	modeNewline
	modeIndent
)

// Lexer turns dump text into a flat token sequence. It does not filter
// lines; use Tokenize for the full preprocessing.
type Lexer struct {
	input  string
	mode   lexMode
	buf    strings.Builder
	tokens []Token

	line      int // current line (1-based)
	startLine int // line on which buf started
	indent    int // spaces counted in modeIndent
	parens    int // unmatched '(' inside a bare value
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		// Starting as if after a newline gives the first line its Indent.
		mode: modeNewline,
	}
}

// Tokens scans the whole input. A lexical error aborts the scan.
func (l *Lexer) Tokens() ([]Token, error) {
	for i := 0; i < len(l.input); i++ {
		c := l.input[i]
		if err := l.step(c); err != nil {
			return nil, err
		}
		if c == '\n' {
			l.line++
		}
	}
	l.flush()
	return l.tokens, nil
}

// Tokenize drops noise lines and scans the rest.
func Tokenize(input string, filter *LineFilter) ([]Token, error) {
	if filter == nil {
		filter = NewLineFilter()
	}
	return NewLexer(filter.Apply(input)).Tokens()
}

func (l *Lexer) step(c byte) error {
	switch l.mode {
	case modePlain:
		l.stepPlain(c)

	case modeWord:
		switch c {
		case '\'':
			l.emitWord()
			l.begin(modeSymbol)
		case '"':
			l.emitWord()
			l.begin(modeString)
		case ' ', '\t', '\r':
			l.emitWord()
			l.mode = modePlain
		case '\n':
			l.emitWord()
			l.mode = modeNewline
		case '=':
			key := l.emitWord()
			l.emitStructural(c)
			if key == "location" {
				l.begin(modePath)
			} else {
				l.begin(modeValue)
			}
		case '(', ')', ':':
			l.emitWord()
			l.emitStructural(c)
			l.mode = modePlain
		default:
			l.buf.WriteByte(c)
		}

	case modeValue:
		switch c {
		case '[':
			if l.buf.Len() == 0 {
				l.mode = modeArray
				return nil
			}
			l.buf.WriteByte(c)
		case '\'':
			l.emitWord()
			l.begin(modeSymbol)
		case '"':
			l.emitWord()
			l.begin(modeString)
		case ' ', '\t', '\r':
			l.emitWord()
			l.mode = modePlain
		case '\n':
			l.emitWord()
			l.mode = modeNewline
		default:
			l.valueChar(c)
		}

	case modePath:
		switch c {
		case ' ', '\t':
			if strings.Contains(l.buf.String(), ":") {
				l.emitWord()
				l.mode = modePlain
				return nil
			}
			l.buf.WriteByte(c)
		case '\r':
		case '\n':
			l.emitWord()
			l.mode = modeNewline
		default:
			l.valueChar(c)
		}

	case modeArray:
		if c == ']' {
			l.emit(TokenWord, l.buf.String())
			l.buf.Reset()
			l.mode = modePlain
			return nil
		}
		l.buf.WriteByte(c)

	case modeSymbol:
		if c == '\'' {
			l.emit(TokenSymbol, l.buf.String())
			l.buf.Reset()
			l.mode = modePlain
			return nil
		}
		l.buf.WriteByte(c)

	case modeString:
		switch c {
		case '\\':
			l.buf.WriteByte(c)
			l.mode = modeStringEscape
		case '"':
			l.emit(TokenString, l.buf.String())
			l.buf.Reset()
			l.mode = modePlain
		default:
			l.buf.WriteByte(c)
		}

	case modeStringEscape:
		switch c {
		case '"', '\\', '\'', 't', 'n', 'r', '0':
			l.buf.WriteByte(c)
			l.mode = modeString
		default:
			return lexicalErrorf(l.line, l.buf.String()+string(c), "unsupported escape character %q", c)
		}

	case modeNewline:
		switch c {
		case '\n', '\r':
		case ' ':
			l.indent = 1
			l.mode = modeIndent
		default:
			l.emitIndent(0)
			l.mode = modePlain
			l.stepPlain(c)
		}

	case modeIndent:
		switch c {
		case ' ':
			l.indent++
		case '\r':
		case '\n':
			// whitespace-only line
			l.mode = modeNewline
		default:
			l.emitIndent(l.indent)
			l.mode = modePlain
			l.stepPlain(c)
		}
	}
	return nil
}

func (l *Lexer) stepPlain(c byte) {
	switch c {
	case '\'':
		l.begin(modeSymbol)
	case '"':
		l.begin(modeString)
	case '\n':
		l.buf.Reset()
		l.mode = modeNewline
	case '(', ')', ':':
		l.emitStructural(c)
	case '=':
		l.emitStructural(c)
		l.begin(modeValue)
	case ' ', '\t', '\r':
	default:
		l.begin(modeWord)
		l.buf.WriteByte(c)
	}
}

// valueChar handles parentheses inside bare values: balanced pairs stay in
// the value, an unmatched ')' closes the enclosing record.
func (l *Lexer) valueChar(c byte) {
	switch c {
	case '(':
		l.parens++
		l.buf.WriteByte(c)
	case ')':
		if l.parens > 0 {
			l.parens--
			l.buf.WriteByte(c)
			return
		}
		l.emitWord()
		l.emitStructural(c)
		l.mode = modePlain
	default:
		l.buf.WriteByte(c)
	}
}

// begin switches to an accumulating mode with an empty buffer.
func (l *Lexer) begin(mode lexMode) {
	l.buf.Reset()
	l.parens = 0
	l.startLine = l.line
	l.mode = mode
}

func (l *Lexer) emit(kind TokenKind, text string) {
	line := l.startLine
	if line == 0 {
		line = l.line
	}
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text, Line: line})
}

// emitWord emits the buffer as a Word if non-empty and returns its text.
func (l *Lexer) emitWord() string {
	text := l.buf.String()
	l.buf.Reset()
	if text != "" {
		l.emit(TokenWord, text)
	}
	return text
}

func (l *Lexer) emitStructural(c byte) {
	l.tokens = append(l.tokens, Token{Kind: TokenStructural, Text: string(c), Line: l.line})
}

func (l *Lexer) emitIndent(depth int) {
	l.tokens = append(l.tokens, Token{Kind: TokenIndent, Depth: depth, Line: l.line})
	l.indent = 0
}

// flush emits whatever the current mode was accumulating at end of input.
func (l *Lexer) flush() {
	switch l.mode {
	case modeWord, modeValue, modePath:
		l.emitWord()
	case modeArray:
		l.emit(TokenWord, l.buf.String())
	case modeSymbol:
		l.emit(TokenSymbol, l.buf.String())
	case modeString, modeStringEscape:
		l.emit(TokenString, l.buf.String())
	}
	l.buf.Reset()
}
