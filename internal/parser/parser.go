package parser

import (
	"fmt"
	"lxsp/internal/lexer"
	"lxsp/internal/object"
	"lxsp/internal/token"
	"lxsp/internal/util"
	"strconv"
	"strings"
)

type Parser struct {
	l      *lexer.Lexer
	src    string // source code here
	errors []string

	curToken  token.Token
	peekToken token.Token

	errorPosition int
}

func New(l *lexer.Lexer, source string) *Parser {
	p := &Parser{
		l:             l,
		src:           source,
		errors:        []string{},
		errorPosition: -1,
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) addError(message string, args ...interface{}) {
	if len(p.errors) == 0 {
		p.errorPosition = p.curToken.Position
	}
	line, col := util.GetLineAndColumn(p.src, p.curToken.Position)
	m := fmt.Sprintf(message, args...)
	msg := fmt.Sprintf("[%3d:%2d] %s", line, col, m)
	p.errors = append(p.errors, msg)
}

func (p *Parser) Errors() []string {
	return p.errors
}

// ParseProgram reads every top-level form in the source.
func (p *Parser) ParseProgram() []object.Value {
	var forms []object.Value
	for !p.curTokenIs(token.EOF) && len(p.errors) == 0 {
		form := p.parseForm()
		if form != nil {
			forms = append(forms, form)
		}
		p.nextToken()
	}
	return forms
}

// parseForm reads one form starting at curToken and leaves curToken on the
// last token of that form.
func (p *Parser) parseForm() object.Value {
	switch p.curToken.Type {
	case token.LPAREN:
		return p.parseList()
	case token.RPAREN:
		p.addError("unexpected `)`")
	case token.QUOTE:
		p.nextToken()
		if p.curTokenIs(token.EOF) {
			p.addError("nothing to quote")
			return nil
		}
		inner := p.parseForm()
		if inner == nil {
			return nil
		}
		return object.Quoted(inner)
	case token.ATOM:
		return parseAtom(p.curToken.Literal)
	case token.ILLEGAL:
		p.addError("%s", p.curToken.Literal)
	default:
		p.addError("unexpected token %s", p.curToken.Type)
	}
	return nil
}

func (p *Parser) parseList() object.Value {
	var elements []object.Value
	p.nextToken()
	for !p.curTokenIs(token.RPAREN) {
		if p.curTokenIs(token.EOF) {
			p.addError("could not find closing `)`")
			return nil
		}
		el := p.parseForm()
		if el == nil {
			return nil
		}
		elements = append(elements, el)
		p.nextToken()
	}
	return object.NewList(elements...)
}

func parseAtom(literal string) object.Value {
	if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return &object.Integer{Value: i}
	}
	return object.NewSymbol(literal)
}

// Error reports every problem found while reading a source, with the
// offending line rendered for context.
type Error struct {
	Messages []string
	Position int
	Context  string
}

func (e *Error) Error() string {
	var out strings.Builder
	out.WriteString("parse error:")
	for _, msg := range e.Messages {
		out.WriteString("\n\t")
		out.WriteString(msg)
	}
	if e.Context != "" {
		out.WriteString("\n")
		out.WriteString(e.Context)
	}
	return out.String()
}

func (p *Parser) err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return &Error{
		Messages: p.errors,
		Position: p.errorPosition,
		Context:  util.ErrorContext(p.src, p.errorPosition),
	}
}

// ParseAll reads every top-level form of src.
func ParseAll(src string) ([]object.Value, error) {
	p := New(lexer.New(src), src)
	forms := p.ParseProgram()
	if err := p.err(); err != nil {
		return nil, err
	}
	return forms, nil
}

// ParseString reads exactly one form. A source holding only whitespace,
// comments and remarks reads as nil.
func ParseString(src string) (object.Value, error) {
	p := New(lexer.New(src), src)
	forms := p.ParseProgram()
	if err := p.err(); err != nil {
		return nil, err
	}
	switch len(forms) {
	case 0:
		return object.Nil(), nil
	case 1:
		return forms[0], nil
	default:
		return nil, &Error{
			Messages: []string{fmt.Sprintf("expected a single expression, found %d", len(forms))},
			Position: -1,
		}
	}
}
