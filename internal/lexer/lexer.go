// Package lexer implements the lexical analysis (tokenization) for lumen.
package lexer

import (
	"fmt"
	"lumen/internal/diag"
	"lumen/internal/span"
	"lumen/internal/token"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes source code into a sequence of tokens.
type Lexer struct {
	source   string
	filename string

	pos  int // current read position in source
	line int // current line (1-based)
	col  int // current column (1-based)

	diags []diag.Diagnostic
}

// New creates a new Lexer for the given source text.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
		col:      1,
	}
}

// Filename returns the name the lexer was created with.
func (l *Lexer) Filename() string {
	return l.filename
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return tokens, l.diags
}

// ---- internal helpers ----

// peek returns the current byte without advancing, or 0 if at end.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

// peekAt returns the byte n positions ahead, or 0 if past the end.
func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.source) {
		return 0
	}
	return l.source[l.pos+n]
}

// advance consumes the current rune and returns its first byte.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	_, size := utf8.DecodeRuneInString(l.source[l.pos:])
	l.pos += size
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

func (l *Lexer) makeToken(kind token.Kind, lexeme string, start span.Position) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Span: l.makeSpan(start)}
}

// skipWhitespace skips spaces, tabs and comments (not newlines).
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.source) {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
		case ch == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.source) && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekAt(1) == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

// skipBlockComment skips a /* ... */ comment, which may span lines.
func (l *Lexer) skipBlockComment() {
	start := l.curPos()
	l.advance()
	l.advance()
	for l.pos < len(l.source) {
		if l.peek() == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.addError(diag.CodeUnterminatedBlock, l.makeSpan(start), "unterminated block comment")
}

func (l *Lexer) addError(code string, s span.Span, msg string) {
	l.diags = append(l.diags, diag.Errorf(code, s, "%s", msg))
}

// ---- token reading ----

func (l *Lexer) nextToken() token.Token {
	l.skipWhitespace()

	start := l.curPos()
	if l.pos >= len(l.source) {
		return l.makeToken(token.EOF, "", start)
	}

	ch := l.peek()
	switch {
	case ch == '\n':
		l.advance()
		return l.makeToken(token.NEWLINE, "\\n", start)
	case ch == '"' || ch == '\'':
		return l.readString(start, ch)
	case isDigit(ch) || (ch == '.' && isDigit(l.peekAt(1))):
		return l.readNumber(start)
	case l.isIdentStartAt(l.pos):
		return l.readIdentifier(start)
	default:
		return l.readOperator(start)
	}
}

// readString reads a string literal delimited by quote.
func (l *Lexer) readString(start span.Position, quote byte) token.Token {
	l.advance() // opening quote
	var sb strings.Builder

	for l.pos < len(l.source) {
		ch := l.peek()
		if ch == quote {
			l.advance()
			return l.makeToken(token.STRING, sb.String(), start)
		}
		if ch == '\n' {
			break
		}
		if ch == '\\' {
			l.advance()
			if l.pos >= len(l.source) {
				break
			}
			esc := l.peek()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '"', '\'':
				sb.WriteByte(esc)
			case '0':
				sb.WriteByte(0)
			default:
				l.addError(diag.CodeUnknownEscape, l.makeSpan(start), fmt.Sprintf("unknown escape sequence: \\%c", esc))
				sb.WriteByte(esc)
			}
			l.advance()
			continue
		}
		r, size := utf8.DecodeRuneInString(l.source[l.pos:])
		sb.WriteRune(r)
		if size > 0 {
			l.advance()
		}
	}

	l.addError(diag.CodeUnterminatedString, l.makeSpan(start), "unterminated string literal")
	return l.makeToken(token.STRING, sb.String(), start)
}

// readNumber reads an integer, decimal or exponent literal.
func (l *Lexer) readNumber(start span.Position) token.Token {
	numStart := l.pos

	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		next := l.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(2))) {
			l.advance()
			if next == '+' || next == '-' {
				l.advance()
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	if l.isIdentStartAt(l.pos) {
		for l.pos < len(l.source) && l.isIdentPartAt(l.pos) {
			l.advance()
		}
		l.addError(diag.CodeBadNumber, l.makeSpan(start), fmt.Sprintf("invalid numeric literal %q", l.source[numStart:l.pos]))
		return l.makeToken(token.ILLEGAL, l.source[numStart:l.pos], start)
	}

	return l.makeToken(token.NUMBER, l.source[numStart:l.pos], start)
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(start span.Position) token.Token {
	identStart := l.pos
	for l.pos < len(l.source) && l.isIdentPartAt(l.pos) {
		l.advance()
	}
	lexeme := l.source[identStart:l.pos]
	return l.makeToken(token.LookupIdent(lexeme), lexeme, start)
}

// readOperator reads an operator or delimiter token.
func (l *Lexer) readOperator(start span.Position) token.Token {
	ch := l.advance()

	// follow returns withEq when the next byte is '=', consuming it.
	follow := func(plain, withEq token.Kind) token.Token {
		if l.peek() == '=' {
			l.advance()
			return l.makeToken(withEq, withEq.String(), start)
		}
		return l.makeToken(plain, plain.String(), start)
	}

	switch ch {
	case '(':
		return l.makeToken(token.LPAREN, "(", start)
	case ')':
		return l.makeToken(token.RPAREN, ")", start)
	case '{':
		return l.makeToken(token.LBRACE, "{", start)
	case '}':
		return l.makeToken(token.RBRACE, "}", start)
	case '[':
		return l.makeToken(token.LBRACKET, "[", start)
	case ']':
		return l.makeToken(token.RBRACKET, "]", start)
	case ',':
		return l.makeToken(token.COMMA, ",", start)
	case '.':
		return l.makeToken(token.DOT, ".", start)
	case ';':
		return l.makeToken(token.SEMICOLON, ";", start)
	case ':':
		return l.makeToken(token.COLON, ":", start)
	case '?':
		return l.makeToken(token.QUESTION, "?", start)
	case '+':
		if l.peek() == '+' {
			l.advance()
			return l.makeToken(token.INC, "++", start)
		}
		return follow(token.PLUS, token.PLUS_ASSIGN)
	case '-':
		if l.peek() == '-' {
			l.advance()
			return l.makeToken(token.DEC, "--", start)
		}
		return follow(token.MINUS, token.MINUS_ASSIGN)
	case '*':
		return follow(token.STAR, token.STAR_ASSIGN)
	case '/':
		return follow(token.SLASH, token.SLASH_ASSIGN)
	case '%':
		return follow(token.PERCENT, token.PERCENT_ASSIGN)
	case '!':
		return follow(token.BANG, token.NEQ)
	case '=':
		return follow(token.ASSIGN, token.EQ)
	case '<':
		return follow(token.LT, token.LTE)
	case '>':
		return follow(token.GT, token.GTE)
	case '&':
		if l.peek() == '&' {
			l.advance()
			return follow(token.AND, token.AND_ASSIGN)
		}
		l.addError(diag.CodeUnexpectedChar, l.makeSpan(start), "unexpected character: '&', did you mean '&&'?")
		return l.makeToken(token.ILLEGAL, "&", start)
	case '|':
		if l.peek() == '|' {
			l.advance()
			return follow(token.OR, token.OR_ASSIGN)
		}
		l.addError(diag.CodeUnexpectedChar, l.makeSpan(start), "unexpected character: '|', did you mean '||'?")
		return l.makeToken(token.ILLEGAL, "|", start)
	default:
		text := l.source[start.Offset:l.pos]
		l.addError(diag.CodeUnexpectedChar, l.makeSpan(start), fmt.Sprintf("unexpected character: '%s'", text))
		return l.makeToken(token.ILLEGAL, text, start)
	}
}

// ---- character classification ----

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) isIdentStartAt(pos int) bool {
	if pos >= len(l.source) {
		return false
	}
	ch := l.source[pos]
	if ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		return true
	}
	if ch >= utf8.RuneSelf {
		r, _ := utf8.DecodeRuneInString(l.source[pos:])
		return unicode.IsLetter(r)
	}
	return false
}

func (l *Lexer) isIdentPartAt(pos int) bool {
	return l.isIdentStartAt(pos) || (pos < len(l.source) && isDigit(l.source[pos]))
}
