package text

import (
	"encoding/base64"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"ionkit/ion"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumeric
	tokIdentifier
	tokQuotedSymbol
	tokOperator
	tokString
	tokOpenList
	tokCloseList
	tokOpenSexp
	tokCloseSexp
	tokOpenStruct
	tokCloseStruct
	tokOpenLob
	tokComma
	tokColon
	tokDoubleColon
)

type token struct {
	kind tokenKind
	text string // decoded for strings and symbols, raw for numerics
	pos  int
}

// scanner splits UTF-8 Ion text into tokens. It works over complete input.
type scanner struct {
	in  []byte
	pos int
}

func (s *scanner) syntax(at int, format string, args ...any) error {
	return ion.NewSyntaxError(int64(at), format, args...)
}

func (s *scanner) eof(at int, what string) error {
	return &ion.SyntaxError{Msg: "unterminated " + what, Offset: int64(at), Err: ion.ErrUnexpectedEOF}
}

func (s *scanner) peekAt(i int) int {
	if s.pos+i < len(s.in) {
		return int(s.in[s.pos+i])
	}
	return -1
}

// skipSpace skips whitespace and comments.
func (s *scanner) skipSpace() error {
	for s.pos < len(s.in) {
		switch c := s.in[s.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
			s.pos++
		case c == '/' && s.peekAt(1) == '/':
			for s.pos < len(s.in) && s.in[s.pos] != '\n' {
				s.pos++
			}
		case c == '/' && s.peekAt(1) == '*':
			start := s.pos
			end := strings.Index(string(s.in[s.pos+2:]), "*/")
			if end < 0 {
				return s.eof(start, "block comment")
			}
			s.pos += 2 + end + 2
		default:
			return nil
		}
	}
	return nil
}

// next returns the next token. Operators are only recognized in
// s-expressions.
func (s *scanner) next(inSexp bool) (token, error) {
	if err := s.skipSpace(); err != nil {
		return token{}, err
	}
	start := s.pos
	c := s.peekAt(0)
	single := func(k tokenKind) (token, error) {
		s.pos++
		return token{kind: k, pos: start}, nil
	}
	switch {
	case c < 0:
		return token{kind: tokEOF, pos: start}, nil
	case c == '[':
		return single(tokOpenList)
	case c == ']':
		return single(tokCloseList)
	case c == '(':
		return single(tokOpenSexp)
	case c == ')':
		return single(tokCloseSexp)
	case c == '{':
		if s.peekAt(1) == '{' {
			s.pos += 2
			return token{kind: tokOpenLob, pos: start}, nil
		}
		return single(tokOpenStruct)
	case c == '}':
		return single(tokCloseStruct)
	case c == ',':
		return single(tokComma)
	case c == ':':
		if s.peekAt(1) == ':' {
			s.pos += 2
			return token{kind: tokDoubleColon, pos: start}, nil
		}
		return single(tokColon)
	case c == '"':
		str, err := s.shortString('"')
		return token{kind: tokString, text: str, pos: start}, err
	case c == '\'':
		if s.peekAt(1) == '\'' && s.peekAt(2) == '\'' {
			str, err := s.longStrings()
			return token{kind: tokString, text: str, pos: start}, err
		}
		str, err := s.shortString('\'')
		return token{kind: tokQuotedSymbol, text: str, pos: start}, err
	case isDigit(byte(c)),
		c == '-' && (isDigit(byte(s.peekAt(1))) || s.hasPrefix("-inf")),
		c == '+' && s.hasPrefix("+inf"):
		return s.numeric()
	case isIdentStart(byte(c)):
		return s.identifier()
	case inSexp && isOperatorChar(byte(c)):
		for s.pos < len(s.in) && isOperatorChar(s.in[s.pos]) {
			if s.in[s.pos] == '/' && (s.peekAt(1) == '/' || s.peekAt(1) == '*') {
				break
			}
			s.pos++
		}
		return token{kind: tokOperator, text: string(s.in[start:s.pos]), pos: start}, nil
	}
	return token{}, s.syntax(start, "unexpected character %q", rune(c))
}

func (s *scanner) hasPrefix(p string) bool {
	if len(s.in)-s.pos < len(p) || string(s.in[s.pos:s.pos+len(p)]) != p {
		return false
	}
	return s.stopAt(s.pos + len(p))
}

// stopAt reports if character at i can end numeric or keyword.
func (s *scanner) stopAt(i int) bool {
	if i >= len(s.in) {
		return true
	}
	switch s.in[i] {
	case ' ', '\t', '\n', '\r', '\v', '\f', ',', ']', '}', ')', '"', '\'', '{', '[', '(', '/':
		return true
	}
	return false
}

func (s *scanner) numeric() (token, error) {
	start := s.pos
	for s.pos < len(s.in) {
		c := s.in[s.pos]
		if isIdentPart(c) || c == '.' || c == '+' || c == '-' || c == ':' {
			s.pos++
			continue
		}
		break
	}
	if !s.stopAt(s.pos) {
		return token{}, s.syntax(start, "numeric value followed by invalid character %q", rune(s.in[s.pos]))
	}
	return token{kind: tokNumeric, text: string(s.in[start:s.pos]), pos: start}, nil
}

func (s *scanner) identifier() (token, error) {
	start := s.pos
	for s.pos < len(s.in) && isIdentPart(s.in[s.pos]) {
		s.pos++
	}
	// typed null keeps its type as part of the token
	if string(s.in[start:s.pos]) == "null" && s.peekAt(0) == '.' && s.peekAt(1) >= 0 && isIdentStart(byte(s.peekAt(1))) {
		s.pos++
		for s.pos < len(s.in) && isIdentPart(s.in[s.pos]) {
			s.pos++
		}
	}
	return token{kind: tokIdentifier, text: string(s.in[start:s.pos]), pos: start}, nil
}

// shortString reads quoted string or symbol on a single line.
func (s *scanner) shortString(quote byte) (string, error) {
	start := s.pos
	s.pos++
	var sb strings.Builder
	for {
		if s.pos >= len(s.in) {
			return "", s.eof(start, "string")
		}
		c := s.in[s.pos]
		switch {
		case c == quote:
			s.pos++
			return sb.String(), nil
		case c == '\n' || c == '\r':
			return "", s.syntax(s.pos, "newline in quoted text")
		case c == '\\':
			if err := s.escape(&sb, false); err != nil {
				return "", err
			}
		default:
			if err := s.rawChar(&sb); err != nil {
				return "", err
			}
		}
	}
}

// longStrings reads one or more '''...''' segments separated by whitespace
// and comments and concatenates them.
func (s *scanner) longStrings() (string, error) {
	var sb strings.Builder
	for {
		start := s.pos
		s.pos += 3
		for {
			if s.pos >= len(s.in) {
				return "", s.eof(start, "long string")
			}
			if s.in[s.pos] == '\'' && s.peekAt(1) == '\'' && s.peekAt(2) == '\'' {
				s.pos += 3
				break
			}
			if s.in[s.pos] == '\\' {
				if err := s.escape(&sb, false); err != nil {
					return "", err
				}
				continue
			}
			if s.in[s.pos] == '\r' {
				// normalize CR LF and lone CR to LF
				s.pos++
				if s.peekAt(0) == '\n' {
					s.pos++
				}
				sb.WriteByte('\n')
				continue
			}
			if err := s.rawChar(&sb); err != nil {
				return "", err
			}
		}
		save := s.pos
		if err := s.skipSpace(); err != nil {
			return "", err
		}
		if !(s.peekAt(0) == '\'' && s.peekAt(1) == '\'' && s.peekAt(2) == '\'') {
			s.pos = save
			return sb.String(), nil
		}
	}
}

func (s *scanner) rawChar(sb *strings.Builder) error {
	c := s.in[s.pos]
	if c < utf8.RuneSelf {
		if c < 0x20 && c != '\t' && c != '\n' && c != '\v' && c != '\f' {
			return s.syntax(s.pos, "control character 0x%02X must be escaped", c)
		}
		sb.WriteByte(c)
		s.pos++
		return nil
	}
	r, size := utf8.DecodeRune(s.in[s.pos:])
	if r == utf8.RuneError && size == 1 {
		return s.syntax(s.pos, "invalid UTF-8")
	}
	sb.WriteRune(r)
	s.pos += size
	return nil
}

// escape decodes escape sequence at s.pos. In clob mode \u escapes are not
// allowed and \x produces raw byte.
func (s *scanner) escape(sb *strings.Builder, clob bool) error {
	at := s.pos
	s.pos++
	if s.pos >= len(s.in) {
		return s.eof(at, "escape sequence")
	}
	c := s.in[s.pos]
	s.pos++
	switch c {
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 't':
		sb.WriteByte('\t')
	case 'n':
		sb.WriteByte('\n')
	case 'f':
		sb.WriteByte('\f')
	case 'r':
		sb.WriteByte('\r')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		sb.WriteByte(0)
	case '?', '/', '\'', '"', '\\':
		sb.WriteByte(c)
	case '\n':
		// line continuation
	case '\r':
		if s.peekAt(0) == '\n' {
			s.pos++
		}
	case 'x':
		v, err := s.hexDigits(2)
		if err != nil {
			return err
		}
		if clob {
			sb.WriteByte(byte(v))
		} else {
			sb.WriteRune(rune(v))
		}
	case 'u', 'U':
		if clob {
			return s.syntax(at, "unicode escape is not allowed in clob")
		}
		n := 4
		if c == 'U' {
			n = 8
		}
		v, err := s.hexDigits(n)
		if err != nil {
			return err
		}
		r := rune(v)
		if utf16.IsSurrogate(r) {
			if r >= 0xDC00 || s.peekAt(0) != '\\' || s.peekAt(1) != 'u' {
				return ion.NewValueError("string", "unpaired surrogate \\u%04X at position %d", v, at)
			}
			s.pos += 2
			lo, err := s.hexDigits(4)
			if err != nil {
				return err
			}
			if r = utf16.DecodeRune(r, rune(lo)); r == utf8.RuneError {
				return ion.NewValueError("string", "invalid surrogate pair at position %d", at)
			}
		}
		if r > utf8.MaxRune {
			return ion.NewValueError("string", "code point 0x%X out of range at position %d", v, at)
		}
		sb.WriteRune(r)
	default:
		return s.syntax(at, "invalid escape sequence \\%c", c)
	}
	return nil
}

func (s *scanner) hexDigits(n int) (uint64, error) {
	if s.pos+n > len(s.in) {
		return 0, s.eof(s.pos, "escape sequence")
	}
	v, err := strconv.ParseUint(string(s.in[s.pos:s.pos+n]), 16, 32)
	if err != nil {
		return 0, s.syntax(s.pos, "invalid hex escape %q", s.in[s.pos:s.pos+n])
	}
	s.pos += n
	return v, nil
}

// lob reads content of {{ }} after the opening braces were consumed.
func (s *scanner) lob() (ion.Type, []byte, error) {
	start := s.pos
	if err := s.skipSpace(); err != nil {
		return ion.TypeNone, nil, err
	}
	var (
		typ  = ion.TypeBlob
		data []byte
	)
	switch {
	case s.peekAt(0) == '"':
		typ = ion.TypeClob
		str, err := s.clobString()
		if err != nil {
			return ion.TypeNone, nil, err
		}
		data = []byte(str)
	case s.peekAt(0) == '\'' && s.peekAt(1) == '\'' && s.peekAt(2) == '\'':
		typ = ion.TypeClob
		for s.peekAt(0) == '\'' && s.peekAt(1) == '\'' && s.peekAt(2) == '\'' {
			str, err := s.clobLong()
			if err != nil {
				return ion.TypeNone, nil, err
			}
			data = append(data, str...)
			if err := s.skipSpace(); err != nil {
				return ion.TypeNone, nil, err
			}
		}
	default:
		end := strings.Index(string(s.in[s.pos:]), "}}")
		if end < 0 {
			return ion.TypeNone, nil, s.eof(start, "blob")
		}
		b64 := strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', '\n', '\r', '\v', '\f':
				return -1
			}
			return r
		}, string(s.in[s.pos:s.pos+end]))
		var err error
		if data, err = base64.StdEncoding.DecodeString(b64); err != nil {
			return ion.TypeNone, nil, s.syntax(s.pos, "invalid base64 in blob: %v", err)
		}
		s.pos += end
	}
	if err := s.skipSpace(); err != nil {
		return ion.TypeNone, nil, err
	}
	if s.peekAt(0) != '}' || s.peekAt(1) != '}' {
		return ion.TypeNone, nil, s.syntax(s.pos, "expected '}}' to close lob")
	}
	s.pos += 2
	if data == nil {
		data = []byte{}
	}
	return typ, data, nil
}

func (s *scanner) clobString() (string, error) {
	start := s.pos
	s.pos++
	var sb strings.Builder
	for {
		if s.pos >= len(s.in) {
			return "", s.eof(start, "clob")
		}
		c := s.in[s.pos]
		switch {
		case c == '"':
			s.pos++
			return sb.String(), nil
		case c == '\\':
			if err := s.escape(&sb, true); err != nil {
				return "", err
			}
		case c >= utf8.RuneSelf || (c < 0x20 && c != '\t' && c != '\v' && c != '\f'):
			return "", s.syntax(s.pos, "invalid character 0x%02X in clob", c)
		default:
			sb.WriteByte(c)
			s.pos++
		}
	}
}

func (s *scanner) clobLong() (string, error) {
	start := s.pos
	s.pos += 3
	var sb strings.Builder
	for {
		if s.pos >= len(s.in) {
			return "", s.eof(start, "clob")
		}
		c := s.in[s.pos]
		switch {
		case c == '\'' && s.peekAt(1) == '\'' && s.peekAt(2) == '\'':
			s.pos += 3
			return sb.String(), nil
		case c == '\\':
			if err := s.escape(&sb, true); err != nil {
				return "", err
			}
		case c >= utf8.RuneSelf || (c < 0x20 && c != '\t' && c != '\n' && c != '\r' && c != '\v' && c != '\f'):
			return "", s.syntax(s.pos, "invalid character 0x%02X in clob", c)
		default:
			sb.WriteByte(c)
			s.pos++
		}
	}
}

// skipContainer moves past the close character matching an already
// consumed open one.
func (s *scanner) skipContainer(close byte) error {
	start := s.pos
	var stack []byte
	for {
		if err := s.skipSpace(); err != nil {
			return err
		}
		if s.pos >= len(s.in) {
			return s.eof(start, "container")
		}
		switch c := s.in[s.pos]; c {
		case '"':
			if _, err := s.shortString('"'); err != nil {
				return err
			}
		case '\'':
			var err error
			if s.peekAt(1) == '\'' && s.peekAt(2) == '\'' {
				_, err = s.longStrings()
			} else {
				_, err = s.shortString('\'')
			}
			if err != nil {
				return err
			}
		case '{':
			if s.peekAt(1) == '{' {
				s.pos += 2
				if _, _, err := s.lob(); err != nil {
					return err
				}
				continue
			}
			stack = append(stack, '}')
			s.pos++
		case '[':
			stack = append(stack, ']')
			s.pos++
		case '(':
			stack = append(stack, ')')
			s.pos++
		case ']', ')', '}':
			want := close
			if n := len(stack); n > 0 {
				want = stack[n-1]
				stack = stack[:n-1]
			} else if c == close {
				s.pos++
				return nil
			}
			if c != want {
				return s.syntax(s.pos, "unexpected %q, expected %q", c, want)
			}
			s.pos++
		default:
			s.pos++
		}
	}
}
