// Package parser implements the syntax analysis for lumen.
// It uses Pratt parsing for expressions and recursive descent for statements.
package parser

import (
	"fmt"
	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/span"
	"lumen/internal/token"
	"strconv"
)

// ============================================================
// Binding power (precedence) levels
// ============================================================

const (
	bpNone       = 0
	bpAssign     = 5  // = += -= *= /= %= ||= &&=
	bpTernary    = 8  // ? :
	bpOr         = 10 // ||
	bpAnd        = 20 // &&
	bpEquality   = 30 // == !=
	bpComparison = 40 // < <= > >=
	bpAdditive   = 50 // + -
	bpMultiply   = 60 // * / %
	bpPrefix     = 70 // ! - typeof ++ --
	bpPostfix    = 80 // () [] . x++ x--
)

// infixBP returns the left binding power for an infix/postfix operator.
func infixBP(kind token.Kind) int {
	if kind.IsAssignment() {
		return bpAssign
	}
	switch kind {
	case token.QUESTION:
		return bpTernary
	case token.OR:
		return bpOr
	case token.AND:
		return bpAnd
	case token.EQ, token.NEQ:
		return bpEquality
	case token.LT, token.LTE, token.GT, token.GTE:
		return bpComparison
	case token.PLUS, token.MINUS:
		return bpAdditive
	case token.STAR, token.SLASH, token.PERCENT:
		return bpMultiply
	case token.LPAREN, token.LBRACKET, token.DOT, token.INC, token.DEC:
		return bpPostfix
	default:
		return bpNone
	}
}

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic
}

// New creates a new parser from a token slice.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseProgram parses the entire token stream and returns the AST root and diagnostics.
func (p *Parser) ParseProgram() (*ast.Program, []diag.Diagnostic) {
	prog := &ast.Program{}
	startPos := p.peek().Span.Start

	p.skipSep()
	for !p.isAtEnd() {
		if node := p.parseStatement(); node != nil {
			prog.Body = append(prog.Body, node)
		}
		p.skipSep()
	}

	prog.Span = span.Span{Start: startPos, End: p.peek().Span.End}
	return prog, p.diags
}

// ParseExpression parses a single expression followed by end of input.
// The REPL uses it for the :ast meta command.
func (p *Parser) ParseExpression() (ast.Expr, []diag.Diagnostic) {
	p.skipSep()
	expr := p.parseExpr(bpNone)
	p.skipSep()
	if expr == nil || !p.isAtEnd() {
		tok := p.peek()
		p.error(diag.CodeUnexpectedToken, tok.Span, fmt.Sprintf("unexpected token: '%s'", tok.Lexeme))
	}
	return expr, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		if len(p.tokens) > 0 {
			last := p.tokens[len(p.tokens)-1]
			return token.Token{Kind: token.EOF, Span: span.Span{Start: last.Span.End, End: last.Span.End}}
		}
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	if p.check(kind) {
		return p.advance(), true
	}
	tok := p.peek()
	p.error(diag.CodeExpectedToken, tok.Span, fmt.Sprintf("expected '%s', got '%s'", kind, tok.Kind))
	return tok, false
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

// skipSep skips NEWLINE and SEMICOLON tokens (separators).
func (p *Parser) skipSep() {
	for p.match(token.NEWLINE, token.SEMICOLON) {
		p.advance()
	}
}

// skipNewlines skips NEWLINE tokens only.
func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) error(code string, s span.Span, msg string) {
	p.diags = append(p.diags, diag.Errorf(code, s, "%s", msg))
}

// synchronize skips tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		if p.match(token.NEWLINE, token.SEMICOLON) {
			p.advance()
			return
		}
		if p.check(token.RBRACE) {
			return
		}
		if p.match(token.KW_IF, token.KW_WHILE, token.KW_FUNCTION, token.KW_LET,
			token.KW_CONST, token.KW_VAR, token.KW_TRY, token.KW_THROW) {
			return
		}
		p.advance()
	}
}

// ============================================================
// Statement parsing
// ============================================================

func (p *Parser) parseStatement() ast.Node {
	switch p.peekKind() {
	case token.KW_LET, token.KW_CONST, token.KW_VAR:
		return p.parseVarDeclaration()
	case token.KW_FUNCTION:
		return p.parseFunctionDeclaration()
	case token.KW_IF:
		return p.parseIfStmt()
	case token.KW_WHILE:
		return p.parseWhileStmt()
	case token.KW_THROW:
		return p.parseThrowStmt()
	case token.KW_TRY:
		return p.parseTryStmt()
	default:
		return p.parseExprStatement()
	}
}

// parseVarDeclaration parses: (let | var | const) IDENT [ op expr ]
func (p *Parser) parseVarDeclaration() ast.Node {
	start := p.advance()
	decl := &ast.VarDeclaration{Constant: start.Kind == token.KW_CONST, Operator: token.ASSIGN}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	decl.Name = nameTok.Lexeme

	if p.peekKind().IsAssignment() {
		decl.Operator = p.advance().Kind
		p.skipNewlines()
		decl.Init = p.parseExpr(bpNone)
		if decl.Init == nil {
			p.errorUnexpected()
			return nil
		}
	}

	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// parseFunctionDeclaration parses: function IDENT ( params ) block
func (p *Parser) parseFunctionDeclaration() ast.Node {
	start := p.advance()
	decl := &ast.FunctionDeclaration{}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	decl.Name = nameTok.Lexeme
	decl.Params = p.parseParamList()
	decl.Body = p.parseBlock()
	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// parseIfStmt parses: if (expr) block [ else (if-stmt | block) ]
func (p *Parser) parseIfStmt() ast.Node {
	start := p.advance()
	stmt := &ast.IfStmt{}

	if _, ok := p.expect(token.LPAREN); !ok {
		p.synchronize()
		return nil
	}
	p.skipNewlines()
	stmt.Test = p.parseExpr(bpNone)
	p.skipNewlines()
	p.expect(token.RPAREN)
	stmt.Consequent = p.parseBlock()

	if p.elseFollows() {
		p.skipNewlines()
		p.advance() // consume 'else'
		if p.check(token.KW_IF) {
			if alt, ok := p.parseIfStmt().(*ast.IfStmt); ok {
				stmt.Alternate = alt
			}
		} else {
			stmt.Alternate = p.parseBlock()
		}
	}

	if stmt.Test == nil {
		p.errorUnexpected()
		return nil
	}
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// elseFollows reports whether the next non-newline token is 'else'.
func (p *Parser) elseFollows() bool {
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Kind {
		case token.NEWLINE:
			continue
		case token.KW_ELSE:
			return true
		default:
			return false
		}
	}
	return false
}

// parseWhileStmt parses: while (expr) block
func (p *Parser) parseWhileStmt() ast.Node {
	start := p.advance()
	stmt := &ast.WhileStmt{}

	if _, ok := p.expect(token.LPAREN); !ok {
		p.synchronize()
		return nil
	}
	p.skipNewlines()
	stmt.Test = p.parseExpr(bpNone)
	p.skipNewlines()
	p.expect(token.RPAREN)
	stmt.Body = p.parseBlock()
	if stmt.Test == nil {
		p.errorUnexpected()
		return nil
	}
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseThrowStmt parses: throw expr
func (p *Parser) parseThrowStmt() ast.Node {
	start := p.advance()
	arg := p.parseExpr(bpNone)
	if arg == nil {
		p.errorUnexpected()
		return nil
	}
	return &ast.ThrowStmt{StmtBase: makeStmtBase(start.Span.Start, p.prevEnd()), Argument: arg}
}

// parseTryStmt parses: try block catch [ ( IDENT ) ] block
func (p *Parser) parseTryStmt() ast.Node {
	start := p.advance()
	stmt := &ast.TryStmt{Block: p.parseBlock()}

	p.skipNewlines()
	if _, ok := p.expect(token.KW_CATCH); !ok {
		p.synchronize()
		return nil
	}
	if p.check(token.LPAREN) {
		p.advance()
		if nameTok, ok := p.expect(token.IDENT); ok {
			stmt.Param = nameTok.Lexeme
		}
		p.expect(token.RPAREN)
	}
	stmt.Handler = p.parseBlock()
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseExprStatement parses a bare expression used as a statement.
func (p *Parser) parseExprStatement() ast.Node {
	expr := p.parseExpr(bpNone)
	if expr == nil {
		p.errorUnexpected()
		p.synchronize()
		return nil
	}
	if !p.match(token.NEWLINE, token.SEMICOLON, token.RBRACE, token.EOF) {
		tok := p.peek()
		p.error(diag.CodeUnexpectedToken, tok.Span, fmt.Sprintf("unexpected token: '%s'", tok.Lexeme))
		p.synchronize()
	}
	return expr
}

// parseBlock parses: { stmts }
func (p *Parser) parseBlock() *ast.BlockStmt {
	p.skipNewlines()
	start := p.peek()
	block := &ast.BlockStmt{}

	if _, ok := p.expect(token.LBRACE); !ok {
		p.synchronize()
		block.Span = p.makeSpan(start.Span.Start)
		return block
	}

	p.skipSep()
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		if node := p.parseStatement(); node != nil {
			block.Body = append(block.Body, node)
		}
		p.skipSep()
	}

	p.expect(token.RBRACE)
	block.Span = p.makeSpan(start.Span.Start)
	return block
}

// parseParamList parses: ( ident, ident, ... )
func (p *Parser) parseParamList() []string {
	params := []string{}

	if _, ok := p.expect(token.LPAREN); !ok {
		return params
	}

	p.skipNewlines()
	if !p.check(token.RPAREN) {
		if nameTok, ok := p.expect(token.IDENT); ok {
			params = append(params, nameTok.Lexeme)
		}
		for p.check(token.COMMA) {
			p.advance()
			p.skipNewlines()
			if nameTok, ok := p.expect(token.IDENT); ok {
				params = append(params, nameTok.Lexeme)
			}
		}
	}
	p.skipNewlines()
	p.expect(token.RPAREN)
	return params
}

func (p *Parser) errorUnexpected() {
	tok := p.peek()
	if tok.Kind == token.EOF {
		p.error(diag.CodeUnexpectedToken, tok.Span, "unexpected end of input")
		return
	}
	p.error(diag.CodeUnexpectedToken, tok.Span, fmt.Sprintf("unexpected token: '%s'", tok.Lexeme))
}

// ============================================================
// Expression parsing (Pratt / precedence climbing)
// ============================================================

// parseExpr parses an expression with the given minimum binding power.
func (p *Parser) parseExpr(minBP int) ast.Expr {
	left := p.nud()
	if left == nil {
		return nil
	}

	for {
		bp := infixBP(p.peekKind())
		if bp <= minBP {
			break
		}
		left = p.led(left)
		if left == nil {
			return nil
		}
	}

	return left
}

// nud handles prefix (null denotation) parsing.
func (p *Parser) nud() ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.NUMBER:
		p.advance()
		val, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.error(diag.CodeExpectedToken, tok.Span, fmt.Sprintf("invalid number %q", tok.Lexeme))
		}
		return &ast.NumericLiteral{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Value:    val,
		}

	case token.STRING:
		p.advance()
		return &ast.StringLiteral{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Value:    tok.Lexeme,
		}

	case token.IDENT:
		p.advance()
		return &ast.Identifier{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Name:     tok.Lexeme,
		}

	case token.LPAREN:
		p.advance()
		p.skipNewlines()
		expr := p.parseExpr(bpNone)
		p.skipNewlines()
		p.expect(token.RPAREN)
		return expr

	case token.BANG, token.MINUS, token.KW_TYPEOF, token.INC, token.DEC:
		p.advance()
		p.skipNewlines()
		operand := p.parseExpr(bpPrefix)
		if operand == nil {
			p.errorUnexpected()
			return nil
		}
		return &ast.PrefixUnaryExp{
			ExprBase: makeExprBase(tok.Span.Start, operand.GetSpan().End),
			Operator: tok.Kind,
			Operand:  operand,
		}

	case token.LBRACKET:
		return p.parseArrayLiteral()

	case token.LBRACE:
		return p.parseObjectLiteral()

	default:
		return nil
	}
}

// led handles infix/postfix (left denotation) parsing.
func (p *Parser) led(left ast.Expr) ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE,
		token.AND, token.OR:
		bp := infixBP(tok.Kind)
		p.advance()
		p.skipNewlines() // allow continuation on next line after operator
		right := p.parseExpr(bp)
		if right == nil {
			p.errorUnexpected()
			return nil
		}
		return &ast.BinaryExp{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Left:     left,
			Operator: tok.Kind,
			Right:    right,
		}

	case token.QUESTION:
		p.advance()
		p.skipNewlines()
		cons := p.parseExpr(bpNone)
		p.skipNewlines()
		p.expect(token.COLON)
		p.skipNewlines()
		alt := p.parseExpr(bpTernary - 1)
		if cons == nil || alt == nil {
			p.errorUnexpected()
			return nil
		}
		return &ast.TernaryExp{
			ExprBase:   makeExprBase(left.GetSpan().Start, alt.GetSpan().End),
			Test:       left,
			Consequent: cons,
			Alternate:  alt,
		}

	case token.INC, token.DEC:
		p.advance()
		return &ast.PostfixUnaryExp{
			ExprBase: makeExprBase(left.GetSpan().Start, tok.Span.End),
			Operator: tok.Kind,
			Operand:  left,
		}

	case token.LPAREN:
		return p.parseCallExpr(left)

	case token.LBRACKET:
		p.advance()
		p.skipNewlines()
		prop := p.parseExpr(bpNone)
		p.skipNewlines()
		end, _ := p.expect(token.RBRACKET)
		if prop == nil {
			p.error(diag.CodeInvalidProperty, end.Span, "missing computed property expression")
			return nil
		}
		return &ast.MemberExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, end.Span.End),
			Object:   left,
			Property: prop,
			Computed: true,
		}

	case token.DOT:
		p.advance()
		p.skipNewlines()
		propTok := p.peek()
		if propTok.Kind != token.IDENT && !propTok.Kind.IsKeyword() {
			p.error(diag.CodeInvalidProperty, propTok.Span, fmt.Sprintf("expected property name, got '%s'", propTok.Kind))
			return nil
		}
		p.advance()
		return &ast.MemberExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, propTok.Span.End),
			Object:   left,
			Property: &ast.Identifier{
				ExprBase: makeExprBase(propTok.Span.Start, propTok.Span.End),
				Name:     propTok.Lexeme,
			},
		}

	default:
		if tok.Kind.IsAssignment() {
			return p.parseAssignment(left)
		}
		return left
	}
}

// parseAssignment parses the right-hand side of target op value (right-associative).
func (p *Parser) parseAssignment(target ast.Expr) ast.Expr {
	opTok := p.advance()
	switch target.(type) {
	case *ast.Identifier, *ast.MemberExpr:
	default:
		p.error(diag.CodeInvalidTarget, target.GetSpan(), fmt.Sprintf("invalid assignment target for '%s'", opTok.Kind))
	}
	p.skipNewlines()
	value := p.parseExpr(bpAssign - 1)
	if value == nil {
		p.errorUnexpected()
		return nil
	}
	return &ast.AssignmentExp{
		ExprBase: makeExprBase(target.GetSpan().Start, value.GetSpan().End),
		Assigne:  target,
		Operator: opTok.Kind,
		Value:    value,
	}
}

// parseCallExpr parses: callee ( args )
func (p *Parser) parseCallExpr(callee ast.Expr) ast.Expr {
	p.advance() // consume '('
	args := []ast.Expr{}

	p.skipNewlines()
	if !p.check(token.RPAREN) {
		for {
			arg := p.parseExpr(bpNone)
			if arg == nil {
				p.errorUnexpected()
				return nil
			}
			args = append(args, arg)
			p.skipNewlines()
			if !p.check(token.COMMA) {
				break
			}
			p.advance()
			p.skipNewlines()
		}
	}
	end, _ := p.expect(token.RPAREN)

	return &ast.CallExpr{
		ExprBase:  makeExprBase(callee.GetSpan().Start, end.Span.End),
		Callee:    callee,
		Arguments: args,
	}
}

// parseArrayLiteral parses: [ expr, expr, ... ]
func (p *Parser) parseArrayLiteral() ast.Expr {
	start := p.advance() // consume '['
	elements := []ast.Expr{}

	p.skipNewlines()
	for !p.check(token.RBRACKET) && !p.isAtEnd() {
		elem := p.parseExpr(bpNone)
		if elem == nil {
			p.errorUnexpected()
			return nil
		}
		elements = append(elements, elem)
		p.skipNewlines()
		if !p.check(token.COMMA) {
			break
		}
		p.advance() // trailing comma allowed
		p.skipNewlines()
	}
	end, _ := p.expect(token.RBRACKET)

	return &ast.ArrayLiteral{
		ExprBase: makeExprBase(start.Span.Start, end.Span.End),
		Elements: elements,
	}
}

// parseObjectLiteral parses: { key: expr, shorthand, "quoted": expr }
func (p *Parser) parseObjectLiteral() ast.Expr {
	start := p.advance() // consume '{'
	obj := &ast.ObjectLiteral{Properties: []*ast.ObjectProperty{}}

	p.skipNewlines()
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		keyTok := p.advance()
		prop := &ast.ObjectProperty{Key: keyTok.Lexeme}

		switch {
		case keyTok.Kind == token.IDENT, keyTok.Kind == token.STRING, keyTok.Kind.IsKeyword():
		case keyTok.Kind == token.NUMBER:
			if f, err := strconv.ParseFloat(keyTok.Lexeme, 64); err == nil {
				prop.Key = strconv.FormatFloat(f, 'f', -1, 64)
			}
		default:
			p.error(diag.CodeInvalidProperty, keyTok.Span, fmt.Sprintf("invalid object key '%s'", keyTok.Lexeme))
			return nil
		}

		if p.check(token.COLON) {
			p.advance()
			p.skipNewlines()
			prop.Value = p.parseExpr(bpNone)
			if prop.Value == nil {
				p.errorUnexpected()
				return nil
			}
		} else if keyTok.Kind != token.IDENT {
			p.error(diag.CodeExpectedToken, p.peek().Span, fmt.Sprintf("expected ':' after key '%s'", keyTok.Lexeme))
			return nil
		}
		prop.Span = p.makeSpan(keyTok.Span.Start)
		obj.Properties = append(obj.Properties, prop)

		p.skipNewlines()
		if !p.check(token.COMMA) {
			break
		}
		p.advance()
		p.skipNewlines()
	}
	end, _ := p.expect(token.RBRACE)

	obj.Span = span.Span{Start: start.Span.Start, End: end.Span.End}
	return obj
}

// ============================================================
// Span helpers
// ============================================================

func (p *Parser) prevEnd() span.Position {
	if p.pos > 0 && p.pos-1 < len(p.tokens) {
		return p.tokens[p.pos-1].Span.End
	}
	return p.peek().Span.Start
}

func (p *Parser) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: p.prevEnd()}
}

func makeExprBase(start, end span.Position) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}

func makeStmtBase(start, end span.Position) ast.StmtBase {
	return ast.StmtBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}
