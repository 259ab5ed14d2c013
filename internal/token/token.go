// Package token defines the token types produced by the lexer.
package token

import (
	"fmt"
	"lumen/internal/span"
)

// Kind represents the type of a token.
type Kind int

const (
	// Special tokens
	ILLEGAL Kind = iota
	EOF
	NEWLINE

	// Literals
	IDENT  // identifiers: x, foo, myVar
	NUMBER // numeric literals: 123, 3.14, 1e9
	STRING // string literals: "hello", 'hello'

	// Operators
	ASSIGN  // =
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	BANG    // !
	INC     // ++
	DEC     // --

	EQ  // ==
	NEQ // !=
	LT  // <
	LTE // <=
	GT  // >
	GTE // >=

	AND // &&
	OR  // ||

	// Compound assignment
	PLUS_ASSIGN    // +=
	MINUS_ASSIGN   // -=
	STAR_ASSIGN    // *=
	SLASH_ASSIGN   // /=
	PERCENT_ASSIGN // %=
	OR_ASSIGN      // ||=
	AND_ASSIGN     // &&=

	QUESTION // ?

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]
	COMMA     // ,
	DOT       // .
	SEMICOLON // ;
	COLON     // :

	// Keywords
	KW_LET
	KW_CONST
	KW_VAR
	KW_FUNCTION
	KW_IF
	KW_ELSE
	KW_WHILE
	KW_TRY
	KW_CATCH
	KW_THROW
	KW_TYPEOF
)

var kindNames = map[Kind]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	NEWLINE: "NEWLINE",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	ASSIGN:  "=",
	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	BANG:    "!",
	INC:     "++",
	DEC:     "--",

	EQ:  "==",
	NEQ: "!=",
	LT:  "<",
	LTE: "<=",
	GT:  ">",
	GTE: ">=",
	AND: "&&",
	OR:  "||",

	PLUS_ASSIGN:    "+=",
	MINUS_ASSIGN:   "-=",
	STAR_ASSIGN:    "*=",
	SLASH_ASSIGN:   "/=",
	PERCENT_ASSIGN: "%=",
	OR_ASSIGN:      "||=",
	AND_ASSIGN:     "&&=",
	QUESTION:       "?",

	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	LBRACKET:  "[",
	RBRACKET:  "]",
	COMMA:     ",",
	DOT:       ".",
	SEMICOLON: ";",
	COLON:     ":",

	KW_LET:      "let",
	KW_CONST:    "const",
	KW_VAR:      "var",
	KW_FUNCTION: "function",
	KW_IF:       "if",
	KW_ELSE:     "else",
	KW_WHILE:    "while",
	KW_TRY:      "try",
	KW_CATCH:    "catch",
	KW_THROW:    "throw",
	KW_TYPEOF:   "typeof",
}

// String returns the human-readable name for a token kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsKeyword returns true if the kind is a keyword.
func (k Kind) IsKeyword() bool {
	return k >= KW_LET && k <= KW_TYPEOF
}

// IsLiteral returns true if the kind is a literal (ident/number/string).
func (k Kind) IsLiteral() bool {
	return k >= IDENT && k <= STRING
}

// IsAssignment returns true for = and every compound assignment operator.
func (k Kind) IsAssignment() bool {
	return k == ASSIGN || (k >= PLUS_ASSIGN && k <= AND_ASSIGN)
}

var keywords = map[string]Kind{
	"let":      KW_LET,
	"const":    KW_CONST,
	"var":      KW_VAR,
	"function": KW_FUNCTION,
	"if":       KW_IF,
	"else":     KW_ELSE,
	"while":    KW_WHILE,
	"try":      KW_TRY,
	"catch":    KW_CATCH,
	"throw":    KW_THROW,
	"typeof":   KW_TYPEOF,
}

// LookupIdent returns the keyword Kind for ident, or IDENT if it is not a keyword.
func LookupIdent(ident string) Kind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return IDENT
}

var operators = func() map[string]Kind {
	m := make(map[string]Kind)
	for k := ASSIGN; k <= QUESTION; k++ {
		m[kindNames[k]] = k
	}
	m["typeof"] = KW_TYPEOF
	return m
}()

// LookupOperator maps an operator spelling ("+=", "&&", "typeof") back to its Kind.
// It is used when decoding an externally produced AST.
func LookupOperator(op string) (Kind, bool) {
	kind, ok := operators[op]
	return kind, ok
}

// Token represents a lexical token with its kind, text, and source location.
type Token struct {
	Kind   Kind      `json:"kind"`
	Lexeme string    `json:"lexeme"`
	Span   span.Span `json:"span"`
}

// String returns a human-readable representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s %q %s", t.Kind, t.Lexeme, t.Span.Start)
}
