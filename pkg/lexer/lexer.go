// Package lexer implements the MiniLang scanner.
//
// The Scanner is pull-based: callers ask for one token at a time and the
// cursor only moves as far as the token just returned.
package lexer

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/thomasrohde/minilang/pkg/ast"
	"github.com/thomasrohde/minilang/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokIf TokenType = iota
	TokElse
	TokWhile
	TokFunction
	TokEnd

	// Literals
	TokIntLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLParen // (
	TokRParen // )
	TokEquals // =
	TokComma  // ,

	// Arithmetic operators
	TokPlus  // +
	TokMinus // -
	TokStar  // *
	TokSlash // /

	// Special
	TokEOF
)

var tokenNames = map[TokenType]string{
	TokIf:       "'if'",
	TokElse:     "'else'",
	TokWhile:    "'while'",
	TokFunction: "'function'",
	TokEnd:      "'end'",
	TokIntLit:   "integer",
	TokIdent:    "identifier",
	TokLParen:   "'('",
	TokRParen:   "')'",
	TokEquals:   "'='",
	TokComma:    "','",
	TokPlus:     "'+'",
	TokMinus:    "'-'",
	TokStar:     "'*'",
	TokSlash:    "'/'",
	TokEOF:      "end of input",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

// Describe renders the token for error messages.
func (t Token) Describe() string {
	switch t.Type {
	case TokEOF:
		return "end of input"
	case TokIntLit, TokIdent:
		return fmt.Sprintf("%s '%s'", t.Type, t.Value)
	}
	return t.Type.String()
}

// Int converts an integer literal token. Literals that do not fit in an
// int64 are reported as E_INT_RANGE.
func (t Token) Int() (int64, error) {
	val, err := strconv.ParseInt(t.Value, 10, 64)
	if err != nil {
		span := t.Span
		return 0, &LexError{Diag: diagnostics.MakeDiag(
			diagnostics.EIntRange,
			fmt.Sprintf("integer literal %s is out of range", t.Value),
			&span,
			"integers are signed 64-bit",
		)}
	}
	return val, nil
}

var keywords = map[string]TokenType{
	"if":       TokIf,
	"else":     TokElse,
	"while":    TokWhile,
	"function": TokFunction,
	"end":      TokEnd,
}

var punctuation = map[byte]TokenType{
	'(': TokLParen,
	')': TokRParen,
	'=': TokEquals,
	',': TokComma,
	'+': TokPlus,
	'-': TokMinus,
	'*': TokStar,
	'/': TokSlash,
}

// Scanner turns source text into tokens on demand.
type Scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
	err      error
}

// NewScanner creates a Scanner positioned at the start of source.
func NewScanner(source, filename string) *Scanner {
	return &Scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *Scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *Scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *Scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *Scanner) skipWhitespace() {
	for !s.atEnd() {
		switch s.peek() {
		case ' ', '\t', '\r', '\n':
			s.advance()
		default:
			return
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *Scanner) scanNumber() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}
	return Token{
		Type:  TokIntLit,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}
}

func (s *Scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]
	if tokType, ok := keywords[text]; ok {
		return Token{Type: tokType, Value: text, Span: s.span(startLine, startCol)}
	}
	return Token{Type: TokIdent, Value: text, Span: s.span(startLine, startCol)}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

// Diagnostic returns the wrapped diagnostic.
func (e *LexError) Diagnostic() diagnostics.Diagnostic {
	return e.Diag
}

func (s *Scanner) invalidChar() error {
	r, size := utf8.DecodeRuneInString(s.source[s.pos:])
	line, col := s.line, s.col
	diag := diagnostics.MakeDiag(
		diagnostics.EInvalidChar,
		fmt.Sprintf("invalid character %q", r),
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"only digits, letters, '_', whitespace and + - * / ( ) = , may appear in a program",
	)
	s.pos += size
	s.col++
	return &LexError{Diag: diag}
}

// NextToken returns the next token and advances past it. At the end of the
// source it returns TokEOF on every call. An invalid character stops the
// scanner: that call and every later call return the same *LexError.
func (s *Scanner) NextToken() (Token, error) {
	if s.err != nil {
		return Token{}, s.err
	}

	s.skipWhitespace()

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	if tokType, ok := punctuation[ch]; ok {
		s.advance()
		return Token{Type: tokType, Value: string(ch), Span: s.span(startLine, startCol)}, nil
	}

	if isDigit(ch) {
		return s.scanNumber(), nil
	}

	if isAlpha(ch) {
		return s.scanIdentOrKeyword(), nil
	}

	s.err = s.invalidChar()
	return Token{}, s.err
}

// Tokenize breaks source code into a slice of tokens ending in TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := NewScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
