package parser

import "github.com/sid-xyz/go-sid/diagram"

type exprParser struct {
	tokens  []token
	pos     int
	pattern bool
}

func (p *exprParser) current() *token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *exprParser) consume(kind tokenKind, want string) (*token, error) {
	t := p.current()
	if t == nil {
		return nil, parseErrf(0, 0, "unexpected end of input, expected %s", want)
	}
	if t.kind != kind {
		return nil, parseErrf(t.line, t.column, "expected %s, got %q", want, t.value)
	}
	p.pos++
	return t, nil
}

func (p *exprParser) parseExpr() (Expr, error) {
	t := p.current()
	if t == nil {
		return nil, parseErrf(0, 0, "empty expression")
	}
	switch t.kind {
	case tokOp:
		op := diagram.Op(t.value)
		p.pos++
		var args []Expr
		if next := p.current(); next != nil && next.kind == tokLParen {
			p.pos++
			var err error
			args, err = p.parseExprList()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(tokRParen, ")"); err != nil {
				return nil, err
			}
		}
		// Arity is enforced here and again at diagram construction;
		// a zero-argument operator invocation is rejected, not
		// defaulted. In pattern mode a variable argument may absorb
		// several operands, so arity is checked only on literal
		// argument lists.
		checkArity := true
		if p.pattern {
			for _, a := range args {
				if atom, ok := a.(Atom); ok && IsVariable(atom.Name) {
					checkArity = false
					break
				}
			}
		}
		if checkArity {
			if err := diagram.CheckArity(op, len(args)); err != nil {
				return nil, parseErrf(t.line, t.column, "%v", err)
			}
		}
		return OpExpr{Op: op, Args: args}, nil
	case tokIdent:
		p.pos++
		return Atom{Name: t.value}, nil
	default:
		return nil, parseErrf(t.line, t.column, "unexpected token %q", t.value)
	}
}

func (p *exprParser) parseExprList() ([]Expr, error) {
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	exprs := []Expr{first}
	for {
		t := p.current()
		if t == nil || t.kind != tokComma {
			return exprs, nil
		}
		p.pos++
		next, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
	}
}

// ParseExpression parses a complete expression. Trailing input is an
// error.
func ParseExpression(text string) (Expr, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.current(); t != nil {
		return nil, parseErrf(t.line, t.column, "unexpected trailing token %q", t.value)
	}
	return expr, nil
}

// ParsePattern parses a rewrite pattern expression. Pattern variables
// relax arity enforcement since a single variable may stand for the
// whole operand list of a matched node.
func ParsePattern(text string) (Expr, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens, pattern: true}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.current(); t != nil {
		return nil, parseErrf(t.line, t.column, "unexpected trailing token %q", t.value)
	}
	return expr, nil
}
