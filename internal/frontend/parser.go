package frontend

import (
	"strconv"
	"strings"

	"morselsql/internal/engine"
	"morselsql/internal/engineerrors"
	"morselsql/internal/plangraph"
)

// parser is a straightforward recursive-descent parser over the flat
// token slice Lex produces, precedence-climbing for expressions (OR <
// AND < NOT < comparison < additive < multiplicative), the same shape
// as most hand-rolled SQL front ends in the retrieved pack.
type parser struct {
	toks []Token
	pos  int
}

func newParser(toks []Token) *parser { return &parser{toks: toks} }

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) atKeyword(kw string) bool {
	t := p.peek()
	return t.Kind == TokKeyword && t.Text == kw
}

func (p *parser) atPunct(s string) bool {
	t := p.peek()
	return t.Kind == TokPunct && t.Text == s
}

func (p *parser) atOp(s string) bool {
	t := p.peek()
	return t.Kind == TokOp && t.Text == s
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return engineerrors.New(engineerrors.UnsupportedSyntaxError, "expected "+kw+", found "+p.peek().Text)
	}
	p.next()
	return nil
}

func (p *parser) expectPunct(s string) error {
	if !p.atPunct(s) {
		return engineerrors.New(engineerrors.UnsupportedSyntaxError, "expected '"+s+"', found "+p.peek().Text)
	}
	p.next()
	return nil
}

// Parse implements engine.Parser: it turns SQL text into an AST whose
// Body is a *SelectStatement.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (Parser) Parse(sql string) (*engine.AST, error) {
	toks, err := Lex(sql)
	if err != nil {
		return nil, err
	}
	p := newParser(toks)
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	kind := "SELECT"
	switch {
	case stmt.Explain:
		kind = "EXPLAIN"
	case stmt.Show == "TABLES":
		kind = "SHOW"
	case stmt.ShowColumns != "":
		kind = "SHOW_COLUMNS"
	}
	return &engine.AST{StatementKind: kind, Body: stmt}, nil
}

func (p *parser) parseStatement() (*SelectStatement, error) {
	stmt := &SelectStatement{}
	if p.atKeyword("EXPLAIN") {
		p.next()
		stmt.Explain = true
	}
	if p.atKeyword("SHOW") {
		p.next()
		if p.atKeyword("COLUMNS") {
			p.next()
			if err := p.expectKeyword("FROM"); err != nil {
				return nil, err
			}
			rel, err := p.parseRelationName()
			if err != nil {
				return nil, err
			}
			stmt.ShowColumns = rel
			return stmt, nil
		}
		// SHOW TABLES
		for !p.atPunct(";") && p.peek().Kind != TokEOF {
			p.next()
		}
		stmt.Show = "TABLES"
		return stmt, nil
	}
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	if p.atKeyword("DISTINCT") {
		p.next()
		stmt.Distinct = true
	}
	items, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	stmt.Columns = items

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	stmt.From = from

	for p.joinAhead() {
		jc, err := p.parseJoinClause()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, jc)
	}

	if p.atKeyword("WHERE") {
		p.next()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = cond
	}

	if p.atKeyword("GROUP") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, e)
			if p.atPunct(",") {
				p.next()
				continue
			}
			break
		}
	}

	if p.atKeyword("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			desc := false
			if p.atKeyword("ASC") {
				p.next()
			} else if p.atKeyword("DESC") {
				p.next()
				desc = true
			}
			stmt.OrderBy = append(stmt.OrderBy, OrderItem{Expr: e, Descending: desc})
			if p.atPunct(",") {
				p.next()
				continue
			}
			break
		}
	}

	if p.atKeyword("LIMIT") {
		p.next()
		t := p.next()
		if t.Kind != TokNumber {
			return nil, engineerrors.New(engineerrors.UnsupportedSyntaxError, "expected number after LIMIT")
		}
		n, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, engineerrors.Wrap(engineerrors.UnsupportedSyntaxError, err, "invalid LIMIT")
		}
		stmt.Limit = &n
	}

	if p.atPunct(";") {
		p.next()
	}
	return stmt, nil
}

func (p *parser) parseSelectList() ([]SelectItem, error) {
	var items []SelectItem
	for {
		if p.atOp("*") {
			p.next()
			items = append(items, SelectItem{Star: true})
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			alias := ""
			if p.atKeyword("AS") {
				p.next()
				alias = p.next().Text
			} else if p.peek().Kind == TokIdent {
				alias = p.next().Text
			}
			items = append(items, SelectItem{Expr: e, Alias: alias})
		}
		if p.atPunct(",") {
			p.next()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseRelationName() (string, error) {
	t := p.next()
	if t.Kind != TokIdent {
		return "", engineerrors.New(engineerrors.UnsupportedSyntaxError, "expected relation name, found "+t.Text)
	}
	return t.Text, nil
}

func (p *parser) parseTableRef() (TableRef, error) {
	rel, err := p.parseRelationName()
	if err != nil {
		return TableRef{}, err
	}
	ref := TableRef{Relation: rel}
	if p.atKeyword("AS") {
		p.next()
		ref.Alias = p.next().Text
	} else if p.peek().Kind == TokIdent {
		ref.Alias = p.next().Text
	}
	return ref, nil
}

func (p *parser) joinAhead() bool {
	t := p.peek()
	if t.Kind != TokKeyword {
		return false
	}
	switch t.Text {
	case "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS":
		return true
	}
	return false
}

func (p *parser) parseJoinClause() (JoinClause, error) {
	kind := plangraph.JoinInner
	switch {
	case p.atKeyword("INNER"):
		p.next()
	case p.atKeyword("LEFT"):
		p.next()
		kind = plangraph.JoinLeft
	case p.atKeyword("RIGHT"):
		p.next()
		kind = plangraph.JoinRight
	case p.atKeyword("FULL"):
		p.next()
		kind = plangraph.JoinFull
	case p.atKeyword("CROSS"):
		p.next()
		kind = plangraph.JoinCross
	}
	if err := p.expectKeyword("JOIN"); err != nil {
		return JoinClause{}, err
	}
	table, err := p.parseTableRef()
	if err != nil {
		return JoinClause{}, err
	}
	jc := JoinClause{Kind: kind, Table: table}
	if kind != plangraph.JoinCross {
		if err := p.expectKeyword("ON"); err != nil {
			return JoinClause{}, err
		}
		on, err := p.parseExpr()
		if err != nil {
			return JoinClause{}, err
		}
		jc.On = on
	}
	return jc, nil
}

// Expression parsing, precedence low to high: OR, AND, NOT, comparison,
// additive, multiplicative, unary, primary.

func (p *parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("AND") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.atKeyword("NOT") {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "NOT", Expr: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{"=": true, "!=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.atKeyword("LIKE") {
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: "LIKE", Left: left, Right: right}, nil
	}
	if p.peek().Kind == TokOp && comparisonOps[p.peek().Text] {
		op := p.next().Text
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokOp && (p.peek().Text == "+" || p.peek().Text == "-") {
		op := p.next().Text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokOp && (p.peek().Text == "*" || p.peek().Text == "/" || p.peek().Text == "%") {
		op := p.next().Text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.peek().Kind == TokOp && p.peek().Text == "-" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "-", Expr: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch {
	case t.Kind == TokPunct && t.Text == "(":
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	case t.Kind == TokNumber:
		p.next()
		if strings.Contains(t.Text, ".") {
			f, err := strconv.ParseFloat(t.Text, 64)
			if err != nil {
				return nil, engineerrors.Wrap(engineerrors.UnsupportedSyntaxError, err, "invalid float literal")
			}
			return LiteralExpr{Raw: f, Kind: "float"}, nil
		}
		n, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, engineerrors.Wrap(engineerrors.UnsupportedSyntaxError, err, "invalid integer literal")
		}
		return LiteralExpr{Raw: n, Kind: "int"}, nil
	case t.Kind == TokString:
		p.next()
		return LiteralExpr{Raw: t.Text, Kind: "string"}, nil
	case t.Kind == TokKeyword && t.Text == "TRUE":
		p.next()
		return LiteralExpr{Raw: true, Kind: "bool"}, nil
	case t.Kind == TokKeyword && t.Text == "FALSE":
		p.next()
		return LiteralExpr{Raw: false, Kind: "bool"}, nil
	case t.Kind == TokKeyword && t.Text == "NULL":
		p.next()
		return LiteralExpr{Raw: nil, Kind: "null"}, nil
	case t.Kind == TokIdent:
		return p.parseIdentifierOrFunction()
	default:
		return nil, engineerrors.New(engineerrors.UnsupportedSyntaxError, "unexpected token: "+t.Text)
	}
}

func (p *parser) parseIdentifierOrFunction() (Expr, error) {
	name := p.next().Text
	if p.atPunct(".") {
		p.next()
		col := p.next().Text
		return IdentifierExpr{Relation: name, Name: col}, nil
	}
	if p.atPunct("(") {
		p.next()
		fn := FunctionExpr{Name: strings.ToUpper(name)}
		if p.atKeyword("DISTINCT") {
			p.next()
			fn.Distinct = true
		}
		if p.atOp("*") {
			p.next()
			fn.Args = []Expr{WildcardExpr{}}
		} else if !p.atPunct(")") {
			for {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				fn.Args = append(fn.Args, a)
				if p.atPunct(",") {
					p.next()
					continue
				}
				break
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return fn, nil
	}
	return IdentifierExpr{Name: name}, nil
}
