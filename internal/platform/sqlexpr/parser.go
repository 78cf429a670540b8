package sqlexpr

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Group parser
//
// Grammar:
//   expr      -> sibling ((AND | OR) sibling)*
//   sibling   -> "(" expr ")" | condition
//   condition -> field [compareOp value]
//
// One logical operator governs each nesting level: the first AND / OR found
// at that level. Mixed connectives at one level are not distinguished.
// ---------------------------------------------------------------------------

type parser struct {
	src       string
	functions FunctionTable
}

// splitGroup parses a token run into its siblings, left to right.
func (p *parser) splitGroup(toks []token) ([]Node, error) {
	nodes := make([]Node, 0)

	for len(toks) > 0 {
		if toks[0].Type == tokenLParen {
			end := matchParen(toks, 0)
			if end < 0 {
				return nil, p.unmatchedOpening(toks)
			}
			inner := toks[1:end]

			children, err := p.splitGroup(inner)
			if err != nil {
				return nil, err
			}
			op, err := p.resolveLogicalOperator(inner)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, newGroup(op, children))
			toks = toks[end+1:]
			continue
		}

		var leaf []token
		if i := indexTopLevel(toks, token.isLogical); i >= 0 {
			leaf, toks = toks[:i], toks[i+1:]
		} else {
			leaf, toks = toks, nil
		}
		if len(leaf) == 0 {
			continue
		}

		cond, err := p.parseCondition(leaf)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, cond)
	}

	return nodes, nil
}

// resolveLogicalOperator returns the operator joining the siblings of toks.
// A leading group is skipped so that its own connective is not mistaken for
// the one at this level. The result is empty when no operator is present.
func (p *parser) resolveLogicalOperator(toks []token) (LogicalOperator, error) {
	rest := toks
	if len(toks) > 0 && toks[0].Type == tokenLParen {
		end := matchParen(toks, 0)
		if end < 0 {
			return "", p.unmatchedOpening(toks)
		}
		rest = toks[end+1:]
	}

	i := indexTopLevel(rest, token.isLogical)
	if i < 0 {
		return "", nil
	}
	return LogicalOperator(strings.ToUpper(rest[i].Text)), nil
}

func (p *parser) unmatchedOpening(toks []token) error {
	return newExpressionError(CodeUnmatchedParenthesis, p.src,
		fmt.Sprintf("Unmatched opening parenthesis in the SQL expression: %s", p.src[toks[0].Pos:]))
}
