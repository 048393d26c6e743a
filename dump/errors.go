package dump

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline failures.
type ErrorKind int

const (
	// LexicalError is an unsupported escape inside a string. Always fatal.
	LexicalError ErrorKind = iota + 1
	// StructuralError is a required attribute or token missing from a record.
	StructuralError
	// FormatError is a location or range value that does not match its layout.
	FormatError
)

func (k ErrorKind) String() string {
	switch k {
	case LexicalError:
		return "lexical"
	case StructuralError:
		return "structural"
	case FormatError:
		return "format"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Sentinels for errors.Is matching against *Error values.
var (
	ErrLexical    = errors.New("lexical error")
	ErrStructural = errors.New("structural error")
	ErrFormat     = errors.New("format error")
)

// Error carries enough context to locate a failure in the dump.
type Error struct {
	Kind   ErrorKind
	Record string // record kind, e.g. "var_decl"
	Attr   string // attribute involved, if any
	Text   string // raw offending text
	Line   int    // 1-based dump line, 0 if unknown
	Msg    string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	fmt.Fprintf(&b, "%s error", e.Kind)
	if e.Record != "" {
		fmt.Fprintf(&b, " in %s", e.Record)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Attr != "" {
		fmt.Fprintf(&b, " (attribute %s", e.Attr)
		if e.Text != "" {
			fmt.Fprintf(&b, "=%q", e.Text)
		}
		b.WriteString(")")
	} else if e.Text != "" {
		fmt.Fprintf(&b, " (%q)", e.Text)
	}
	return b.String()
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrLexical:
		return e.Kind == LexicalError
	case ErrStructural:
		return e.Kind == StructuralError
	case ErrFormat:
		return e.Kind == FormatError
	}
	return false
}

func lexicalErrorf(line int, text string, format string, args ...any) *Error {
	return &Error{Kind: LexicalError, Line: line, Text: text, Msg: fmt.Sprintf(format, args...)}
}

func structuralErrorf(record string, line int, attr string, format string, args ...any) *Error {
	return &Error{Kind: StructuralError, Record: record, Line: line, Attr: attr, Msg: fmt.Sprintf(format, args...)}
}

func formatErrorf(attr, text string, format string, args ...any) *Error {
	return &Error{Kind: FormatError, Attr: attr, Text: text, Msg: fmt.Sprintf(format, args...)}
}

// withRecord fills in record context on a helper error that lacked it.
func withRecord(err error, record string, line int) error {
	var de *Error
	if errors.As(err, &de) {
		if de.Record == "" {
			de.Record = record
		}
		if de.Line == 0 {
			de.Line = line
		}
	}
	return err
}
