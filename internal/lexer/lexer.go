// Package lexer turns raw COB text into a flat token stream. Comments and
// blank lines are captured as fill attached to the following token, which
// is what makes lossless re-serialization possible.
package lexer

import (
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/coblang/cob/internal/diag"
)

// TokenKind identifies a lexical class.
type TokenKind int

const (
	EOF TokenKind = iota
	Ident
	Number
	String
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Comma
	Colon
	Equals
	Dot
	At
	Less
	Greater
)

func (k TokenKind) String() string {
	switch k {
	case EOF:
		return "end of file"
	case Ident:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case LBracket:
		return "'['"
	case RBracket:
		return "']'"
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case Comma:
		return "','"
	case Colon:
		return "':'"
	case Equals:
		return "'='"
	case Dot:
		return "'.'"
	case At:
		return "'@'"
	case Less:
		return "'<'"
	case Greater:
		return "'>'"
	default:
		return "token"
	}
}

// Token is one lexical unit plus the fill that preceded it.
type Token struct {
	Kind TokenKind
	// Text is the raw source spelling for Ident and Number tokens and the
	// decoded content for String tokens.
	Text string
	// Fill is the whitespace and comments between the previous token and
	// this one.
	Fill string
	// NewLine is true when Fill contains a line break (or the token starts
	// the file), i.e. this token begins a logical line.
	NewLine bool
	Rng     hcl.Range
}

// Indent is the token's leading-whitespace depth: column minus one. It is
// only meaningful when NewLine is true.
func (t Token) Indent() int { return t.Rng.Start.Column - 1 }

type scanner struct {
	path string
	src  string
	// pos is the byte offset; line and col are 1-based like hcl.Pos.
	pos  int
	line int
	col  int
	errs diag.Errors
}

// Scan tokenizes src. The returned slice always ends with an EOF token
// carrying any trailing fill. Lexical failures are reported with spans;
// scanning continues past them so the parser can surface several at once.
func Scan(path, src string) ([]Token, diag.Errors) {
	s := &scanner{path: path, src: src, line: 1, col: 1}
	var toks []Token
	for {
		tok, ok := s.next()
		if !ok {
			continue // error recorded, char skipped
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			break
		}
	}
	return toks, s.errs
}

func (s *scanner) next() (Token, bool) {
	fillStart := s.pos
	newLine := s.pos == 0
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == ' ':
			s.advance(1)
		case c == '\n':
			newLine = true
			s.pos++
			s.line++
			s.col = 1
		case c == '\r':
			s.advance(1)
		case c == '\t':
			s.errorf(s.here(1), "tab character in whitespace; COB indentation uses spaces only")
			s.advance(1)
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.advance(1)
			}
		default:
			goto fillDone
		}
	}
fillDone:
	fill := s.src[fillStart:s.pos]
	if s.pos >= len(s.src) {
		return Token{Kind: EOF, Fill: fill, NewLine: true, Rng: s.here(0)}, true
	}

	start := s.mark()
	c := s.src[s.pos]
	switch {
	case isLetter(c):
		for s.pos < len(s.src) && isIdentByte(s.src[s.pos]) {
			s.advance(1)
		}
		return s.tok(Ident, start, fill, newLine, s.src[start.Byte:s.pos]), true
	case isDigit(c) || (c == '-' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1])):
		return s.scanNumber(start, fill, newLine), true
	case c == '"':
		return s.scanString(start, fill, newLine)
	}

	punct := map[byte]TokenKind{
		'(': LParen, ')': RParen, '[': LBracket, ']': RBracket,
		'{': LBrace, '}': RBrace, ',': Comma, ':': Colon,
		'=': Equals, '.': Dot, '@': At, '<': Less, '>': Greater,
	}
	if kind, ok := punct[c]; ok {
		s.advance(1)
		return s.tok(kind, start, fill, newLine, string(c)), true
	}

	s.errorf(s.here(1), "unexpected character %q", c)
	s.advance(1)
	return Token{}, false
}

func (s *scanner) scanNumber(start hcl.Pos, fill string, newLine bool) Token {
	if s.src[s.pos] == '-' {
		s.advance(1)
	}
	digits := func() {
		for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
			s.advance(1)
		}
	}
	digits()
	if s.pos+1 < len(s.src) && s.src[s.pos] == '.' && isDigit(s.src[s.pos+1]) {
		s.advance(1)
		digits()
	}
	if s.pos < len(s.src) && (s.src[s.pos] == 'e' || s.src[s.pos] == 'E') {
		mark := s.pos
		s.advance(1)
		if s.pos < len(s.src) && (s.src[s.pos] == '+' || s.src[s.pos] == '-') {
			s.advance(1)
		}
		if s.pos < len(s.src) && isDigit(s.src[s.pos]) {
			digits()
		} else {
			// Not an exponent after all; back off to the 'e'.
			s.col -= s.pos - mark
			s.pos = mark
		}
	}
	return s.tok(Number, start, fill, newLine, s.src[start.Byte:s.pos])
}

func (s *scanner) scanString(start hcl.Pos, fill string, newLine bool) (Token, bool) {
	s.advance(1) // opening quote
	var sb strings.Builder
	for {
		if s.pos >= len(s.src) || s.src[s.pos] == '\n' {
			s.errorf(hcl.Range{Filename: s.path, Start: start, End: s.posNow()}, "unterminated string literal")
			return Token{}, false
		}
		c := s.src[s.pos]
		if c == '"' {
			s.advance(1)
			return s.tok(String, start, fill, newLine, sb.String()), true
		}
		if c != '\\' {
			sb.WriteByte(c)
			s.advance(1)
			continue
		}
		if s.pos+1 >= len(s.src) {
			s.errorf(s.here(1), "unterminated escape sequence")
			return Token{}, false
		}
		esc := s.src[s.pos+1]
		switch esc {
		case '\\', '"':
			sb.WriteByte(esc)
			s.advance(2)
		case 'n':
			sb.WriteByte('\n')
			s.advance(2)
		case 't':
			sb.WriteByte('\t')
			s.advance(2)
		case 'r':
			sb.WriteByte('\r')
			s.advance(2)
		case 'u':
			s.advance(2)
			if s.pos >= len(s.src) || s.src[s.pos] != '{' {
				s.errorf(s.here(1), `expected '{' after \u`)
				return Token{}, false
			}
			s.advance(1)
			hexStart := s.pos
			for s.pos < len(s.src) && isHex(s.src[s.pos]) {
				s.advance(1)
			}
			if s.pos >= len(s.src) || s.src[s.pos] != '}' || s.pos == hexStart {
				s.errorf(s.here(1), `malformed \u{...} escape`)
				return Token{}, false
			}
			code, err := strconv.ParseUint(s.src[hexStart:s.pos], 16, 32)
			if err != nil || code > 0x10FFFF {
				s.errorf(s.here(1), `code point out of range in \u{...} escape`)
				return Token{}, false
			}
			sb.WriteRune(rune(code))
			s.advance(1) // closing brace
		default:
			s.errorf(s.here(2), "invalid escape sequence %q", `\`+string(esc))
			s.advance(2)
		}
	}
}

func (s *scanner) tok(kind TokenKind, start hcl.Pos, fill string, newLine bool, text string) Token {
	return Token{
		Kind:    kind,
		Text:    text,
		Fill:    fill,
		NewLine: newLine,
		Rng:     hcl.Range{Filename: s.path, Start: start, End: s.posNow()},
	}
}

func (s *scanner) mark() hcl.Pos {
	return hcl.Pos{Line: s.line, Column: s.col, Byte: s.pos}
}

func (s *scanner) posNow() hcl.Pos {
	return hcl.Pos{Line: s.line, Column: s.col, Byte: s.pos}
}

// here builds a range covering the next n bytes on the current line.
func (s *scanner) here(n int) hcl.Range {
	start := s.mark()
	end := start
	end.Column += n
	end.Byte += n
	return hcl.Range{Filename: s.path, Start: start, End: end}
}

// advance moves past n bytes that are known not to contain line breaks.
func (s *scanner) advance(n int) {
	s.pos += n
	s.col += n
}

func (s *scanner) errorf(rng hcl.Range, format string, args ...any) {
	s.errs = append(s.errs, diag.New(diag.Syntax, rng, format, args...))
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isHex(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
func isIdentByte(c byte) bool { return isLetter(c) || isDigit(c) || c == '_' }
