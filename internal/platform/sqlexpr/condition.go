package sqlexpr

import "strings"

// parseCondition parses one leaf: an optional comparison with an optionally
// transformed field on its left.
func (p *parser) parseCondition(toks []token) (*Condition, error) {
	cond := &Condition{}
	field := toks

	if idx, width, op := findComparison(toks); idx >= 0 {
		field = toks[:idx]
		value := toks[idx+width:]
		cond.Operator = op

		switch op {
		case OpIn, OpNotIn:
			// A missing list leaves the value unset rather than failing.
			if items, ok := p.parseInList(value); ok {
				cond.Value = listValue(items)
			}
		case OpIsNull, OpIsNotNull:
		default:
			raw := spanText(p.src, value)
			if upper := strings.ToUpper(raw); upper == "TRUE" || upper == "FALSE" {
				cond.Value = scalarValue(upper)
			} else {
				cond.Value = scalarValue(RemoveQuotes(raw))
			}
			cond.ValueType = ValueTypeString
		}
	}

	name, transformations, err := p.unwrapTransformations(field)
	if err != nil {
		return nil, err
	}
	cond.Field = name
	cond.Transformations = transformations
	return cond, nil
}

// findComparison locates the first top-level comparison operator. It returns
// the token index, the number of tokens the operator spans and the operator,
// or -1 when the leaf has none.
func findComparison(toks []token) (int, int, ComparisonOperator) {
	depth := 0
	for i, t := range toks {
		switch t.Type {
		case tokenLParen:
			depth++
			continue
		case tokenRParen:
			depth--
			continue
		}
		if depth != 0 {
			continue
		}

		if t.Type == tokenCompare {
			return i, 1, ComparisonOperator(t.Text)
		}
		next := func(k int) token {
			if i+k < len(toks) {
				return toks[i+k]
			}
			return token{Type: tokenComma}
		}
		switch {
		case t.isKeyword("NOT") && next(1).isKeyword("IN"):
			return i, 2, OpNotIn
		case t.isKeyword("IS") && next(1).isKeyword("NOT") && next(2).isKeyword("NULL"):
			return i, 3, OpIsNotNull
		case t.isKeyword("IS") && next(1).isKeyword("NULL"):
			return i, 2, OpIsNull
		case t.isKeyword("IN"):
			return i, 1, OpIn
		}
	}
	return -1, 0, ""
}

// parseInList reads the first parenthesised list in toks as unquoted strings.
func (p *parser) parseInList(toks []token) ([]string, bool) {
	open := -1
	for i, t := range toks {
		if t.Type == tokenLParen {
			open = i
			break
		}
	}
	if open < 0 {
		return nil, false
	}
	end := matchParen(toks, open)
	if end < 0 || end == open+1 {
		return nil, false
	}

	parts := splitTopLevel(toks[open+1 : end])
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		items = append(items, RemoveQuotes(spanText(p.src, part)))
	}
	return items, true
}
