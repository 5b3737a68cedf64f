package lexer

import (
	"lxsp/internal/token"
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	input        string
	position     int  // current byte position in input (points to start of current rune)
	readPosition int  // next byte position in input (start of next rune)
	ch           rune // current rune under examination; 0 means EOF
}

func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) NextToken() token.Token {
	if start, ok := l.skipWhitespace(); !ok {
		return token.Token{Type: token.ILLEGAL, Literal: "unterminated remark", Position: start}
	}

	startPosition := l.position

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Literal: "", Position: startPosition}
	case '(':
		l.readChar()
		return token.Token{Type: token.LPAREN, Literal: "(", Position: startPosition}
	case ')':
		l.readChar()
		return token.Token{Type: token.RPAREN, Literal: ")", Position: startPosition}
	case '\'':
		l.readChar()
		return token.Token{Type: token.QUOTE, Literal: "'", Position: startPosition}
	default:
		return token.Token{Type: token.ATOM, Literal: l.readAtom(), Position: startPosition}
	}
}

// Tokens drains the lexer, excluding the final EOF token.
func (l *Lexer) Tokens() []token.Token {
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			return tokens
		}
		tokens = append(tokens, tok)
		if tok.Type == token.ILLEGAL {
			return tokens
		}
	}
}

// skipWhitespace skips spaces, line comments and (* ... *) remarks. It
// reports false, with the remark's start offset, for an unterminated remark.
func (l *Lexer) skipWhitespace() (int, bool) {
	for {
		switch {
		case unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == token.COMMENT:
			l.skipToLineEnd()
		case l.ch == '(' && l.peekChar() == '*':
			start := l.position
			if !l.skipRemark() {
				return start, false
			}
		default:
			return l.position, true
		}
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// skipRemark consumes a possibly nested remark starting at the current "(*".
func (l *Lexer) skipRemark() bool {
	depth := 0
	for l.ch != 0 {
		switch {
		case l.ch == '(' && l.peekChar() == '*':
			depth++
			l.readChar()
			l.readChar()
		case l.ch == '*' && l.peekChar() == ')':
			depth--
			l.readChar()
			l.readChar()
			if depth == 0 {
				return true
			}
		default:
			l.readChar()
		}
	}
	return false
}

// readChar advances by one UTF-8 rune, updating byte positions
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
}

// peekChar returns the next rune without advancing; returns 0 at EOF
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) readAtom() string {
	start := l.position
	for isAtomChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func isAtomChar(ch rune) bool {
	switch ch {
	case 0, '(', ')', '\'', token.COMMENT:
		return false
	}
	return !unicode.IsSpace(ch)
}
