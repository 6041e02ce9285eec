package compiler

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Bluejay source
// ---------------------------------------------------------------------------

// Lexer tokenizes Bluejay source code.
//
// Newlines are significant: a newline ends the current statement unless it
// sits inside unmatched parentheses or brackets, or the previous token
// obviously continues the statement (an operator, a comma, an opening
// delimiter, a dangling keyword).
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character

	grouping int // depth of unmatched ( and [
	tokens   []Token
	diags    Diagnostics
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Scan tokenizes source in one pass. It never fails: invalid input is
// reported as diagnostics and scanning continues. Unless the token stream
// is empty it ends with an end-of-statement token followed by EOF.
func Scan(source string) ([]Token, Diagnostics) {
	l := NewLexer(source)
	return l.ScanAll()
}

// ScanAll consumes the whole input.
func (l *Lexer) ScanAll() ([]Token, Diagnostics) {
	for l.ch != 0 || l.pos < len(l.input) {
		l.scanToken()
	}
	if n := len(l.tokens); n > 0 && l.tokens[n-1].Type != TokenEOS {
		l.tokens = append(l.tokens, Token{Type: TokenEOS, Offset: len(l.input)})
	}
	l.tokens = append(l.tokens, Token{Type: TokenEOF, Offset: len(l.input)})
	return l.tokens, l.diags
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) emit(t TokenType, start int, literal any) {
	l.tokens = append(l.tokens, Token{
		Type:    t,
		Lexeme:  l.input[start:l.pos],
		Literal: literal,
		Offset:  start,
	})
}

func (l *Lexer) errorAt(offset int, msg string) {
	end := offset + 1
	if end > len(l.input) {
		end = len(l.input)
	}
	l.diags = append(l.diags, &Diagnostic{
		Kind:    SyntaxError,
		Token:   Token{Type: TokenEOF, Lexeme: l.input[offset:end], Offset: offset},
		Message: msg,
	})
}

// match consumes the current character if it equals want.
func (l *Lexer) match(want rune) bool {
	if l.ch != want {
		return false
	}
	l.readChar()
	return true
}

// either emits two if the next character is want, otherwise one.
func (l *Lexer) either(want rune, two, one TokenType, start int) {
	if l.match(want) {
		l.emit(two, start, nil)
		return
	}
	l.emit(one, start, nil)
}

func (l *Lexer) scanToken() {
	start := l.pos
	c := l.ch
	l.readChar()

	switch c {
	case '(':
		l.grouping++
		l.emit(TokenLParen, start, nil)
	case ')':
		l.grouping--
		l.emit(TokenRParen, start, nil)
	case '[':
		l.grouping++
		l.emit(TokenLBracket, start, nil)
	case ']':
		l.grouping--
		l.emit(TokenRBracket, start, nil)
	case '{':
		l.emit(TokenLBrace, start, nil)
	case '}':
		l.emit(TokenRBrace, start, nil)
	case ',':
		l.emit(TokenComma, start, nil)
	case '.':
		l.emit(TokenDot, start, nil)
	case ':':
		l.emit(TokenColon, start, nil)
	case ';':
		l.emit(TokenEOS, start, nil)
	case '+':
		switch {
		case l.match('+'):
			l.emit(TokenPlusPlus, start, nil)
		case l.match('='):
			l.emit(TokenPlusEqual, start, nil)
		default:
			l.emit(TokenPlus, start, nil)
		}
	case '-':
		switch {
		case l.match('-'):
			l.emit(TokenMinusMinus, start, nil)
		case l.match('='):
			l.emit(TokenMinusEqual, start, nil)
		default:
			l.emit(TokenMinus, start, nil)
		}
	case '*':
		if l.match('*') {
			l.either('=', TokenStarStarEqual, TokenStarStar, start)
			return
		}
		l.either('=', TokenStarEqual, TokenStar, start)
	case '%':
		l.either('=', TokenPercentEqual, TokenPercent, start)
	case '!':
		l.either('=', TokenBangEqual, TokenBang, start)
	case '=':
		l.either('=', TokenEqualEqual, TokenEqual, start)
	case '<':
		l.either('=', TokenLessEqual, TokenLess, start)
	case '>':
		l.either('=', TokenGreaterEqual, TokenGreater, start)
	case '/':
		switch {
		case l.ch == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '*':
			l.readChar()
			l.skipBlockComment(start)
		case l.match('='):
			l.emit(TokenSlashEqual, start, nil)
		default:
			l.emit(TokenSlash, start, nil)
		}
	case '"':
		l.readString(start)
	case ' ', '\r', '\t':
	case '\n':
		if l.grouping <= 0 && len(l.tokens) > 0 && !continuesStatement[l.tokens[len(l.tokens)-1].Type] {
			l.tokens = append(l.tokens, Token{Type: TokenEOS, Lexeme: "\n", Offset: start})
		}
	default:
		switch {
		case isDigit(c):
			l.readNumber(start)
		case isIdentStart(c):
			l.readIdentifier(start)
		default:
			l.errorAt(start, "unexpected character "+strconv.QuoteRune(c))
		}
	}
}

// skipBlockComment consumes up to and including the closing */.
// Block comments do not nest.
func (l *Lexer) skipBlockComment(start int) {
	for {
		if l.ch == 0 && l.pos >= len(l.input) {
			l.errorAt(start, "unterminated block comment")
			return
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return
		}
		l.readChar()
	}
}

// readString reads a double-quoted string. The literal is the raw text
// between the quotes; a backslash keeps the following character from
// closing the string but is otherwise left for the String constructor.
func (l *Lexer) readString(start int) {
	for l.ch != '"' {
		if l.ch == 0 && l.pos >= len(l.input) {
			l.errorAt(start, "unterminated string")
			return
		}
		if l.ch == '\\' && l.peekChar() != 0 {
			l.readChar()
		}
		l.readChar()
	}
	l.readChar()
	l.emit(TokenString, start, l.input[start+1:l.pos-1])
}

// readNumber reads digits ('.' digits)?.
func (l *Lexer) readNumber(start int) {
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	v, err := strconv.ParseFloat(l.input[start:l.pos], 64)
	if err != nil {
		l.errorAt(start, "invalid number literal")
	}
	l.emit(TokenNumber, start, v)
}

func (l *Lexer) readIdentifier(start int) {
	for isIdentPart(l.ch) {
		l.readChar()
	}
	word := l.input[start:l.pos]
	if t, ok := reservedWords[word]; ok {
		l.emit(t, start, nil)
		return
	}
	l.emit(TokenIdentifier, start, nil)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}

// IsIdentChar reports whether r may appear in an identifier.
func IsIdentChar(r rune) bool {
	return isIdentPart(r)
}
