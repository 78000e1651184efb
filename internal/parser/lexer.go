package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokLBrack
	tokRBrack
	tokComma
	tokEquals
	tokSemicolon
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokLBrack:
		return "'['"
	case tokRBrack:
		return "']'"
	case tokComma:
		return "','"
	case tokEquals:
		return "'='"
	case tokSemicolon:
		return "';'"
	default:
		return "unknown"
	}
}

type token struct {
	kind tokenKind
	text string // Identifier name, decoded string value or number literal
	line int
	col  int
}

// SyntaxError reports malformed input at a position in the source
type SyntaxError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Msg)
}

// lexer tokenizes the JavaScript literal subset the generator emits:
// identifiers, single or double quoted strings, integers, brackets,
// commas, '=' and ';'. Comments are skipped.
type lexer struct {
	file string
	src  string
	pos  int
	line int
	col  int
}

func newLexer(file, src string) *lexer {
	// Tolerate a UTF-8 byte order mark
	src = strings.TrimPrefix(src, "\ufeff")
	return &lexer{file: file, src: src, line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...interface{}) error {
	return &SyntaxError{File: l.file, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance()
		case c == '/' && l.peekByte(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		case c == '/' && l.peekByte(1) == '*':
			line, col := l.line, l.col
			l.advance()
			l.advance()
			closed := false
			for l.pos < len(l.src) {
				if l.src[l.pos] == '*' && l.peekByte(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return l.errorf(line, col, "unterminated comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}

	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '[':
		l.advance()
		return token{kind: tokLBrack, line: line, col: col}, nil
	case c == ']':
		l.advance()
		return token{kind: tokRBrack, line: line, col: col}, nil
	case c == ',':
		l.advance()
		return token{kind: tokComma, line: line, col: col}, nil
	case c == '=':
		l.advance()
		return token{kind: tokEquals, line: line, col: col}, nil
	case c == ';':
		l.advance()
		return token{kind: tokSemicolon, line: line, col: col}, nil
	case c == '\'' || c == '"':
		s, err := l.readString()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, line: line, col: col}, nil
	case c == '-' || c == '+' || isDigit(c):
		return l.readNumber()
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.advance()
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], line: line, col: col}, nil
	default:
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		return token{}, l.errorf(line, col, "unexpected character %q", r)
	}
}

func (l *lexer) readNumber() (token, error) {
	line, col := l.line, l.col
	start := l.pos
	if c := l.src[l.pos]; c == '-' || c == '+' {
		l.advance()
	}
	digits := 0
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.advance()
		digits++
	}
	if digits == 0 {
		return token{}, l.errorf(line, col, "malformed number")
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], line: line, col: col}, nil
}

func (l *lexer) readString() (string, error) {
	line, col := l.line, l.col
	quote := l.src[l.pos]
	l.advance()

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf(line, col, "unterminated string")
		}
		c := l.src[l.pos]
		switch {
		case c == quote:
			l.advance()
			return sb.String(), nil
		case c == '\n':
			return "", l.errorf(line, col, "newline in string")
		case c == '\\':
			if err := l.readEscape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteRune(l.advance())
		}
	}
}

func (l *lexer) readEscape(sb *strings.Builder) error {
	line, col := l.line, l.col
	l.advance() // backslash
	if l.pos >= len(l.src) {
		return l.errorf(line, col, "unterminated escape")
	}

	c := l.src[l.pos]
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		sb.WriteByte(0)
	case '\n':
		// Line continuation
	case 'x':
		l.advance()
		return l.readHexEscape(sb, 2, line, col)
	case 'u':
		l.advance()
		return l.readHexEscape(sb, 4, line, col)
	default:
		// \' \" \\ \/ and any other character escape to themselves
		sb.WriteRune(l.advance())
		return nil
	}
	l.advance()
	return nil
}

func (l *lexer) readHexEscape(sb *strings.Builder, width, line, col int) error {
	if l.pos+width > len(l.src) {
		return l.errorf(line, col, "truncated escape")
	}
	v, err := strconv.ParseUint(l.src[l.pos:l.pos+width], 16, 32)
	if err != nil {
		return l.errorf(line, col, "invalid escape: %v", err)
	}
	for i := 0; i < width; i++ {
		l.advance()
	}
	sb.WriteRune(rune(v))
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
