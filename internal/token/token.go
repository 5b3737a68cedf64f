package token

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// atoms: integers and symbols are told apart by the parser
	ATOM = "ATOM" // add, 10, foo-bar, :memory:

	QUOTE  = "'"
	LPAREN = "("
	RPAREN = ")"
)

// Comment and remark markers. Both also end an atom.
const (
	COMMENT      = ';'
	REMARK_OPEN  = "(*"
	REMARK_CLOSE = "*)"
)

type Token struct {
	Type     TokenType
	Literal  string
	Position int // the src index of the token
}
