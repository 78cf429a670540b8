package sqlexpr

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// unwrapTransformations peels function calls off a field expression from the
// outside in. It returns the bare field and the calls ordered innermost
// first, numbered from 1.
func (p *parser) unwrapTransformations(field []token) (string, []Transformation, error) {
	var found []Transformation

	for {
		name, args, ok := splitCall(field)
		if !ok {
			break
		}

		fn := strings.ToUpper(name)
		arity, supported := p.functions.Arity(fn)
		if !supported {
			return "", nil, newExpressionError(CodeUnsupportedFunction, p.src,
				fmt.Sprintf("Unsupported SQL function: %s", fn))
		}

		params, rest, err := p.splitFunctionArgs(args, arity)
		if err != nil {
			return "", nil, err
		}
		found = append(found, Transformation{Name: fn, Params: params})
		field = rest
	}

	// Calls were found outermost first.
	transformations := make([]Transformation, len(found))
	for i := range found {
		t := found[len(found)-1-i]
		t.Sequence = i + 1
		transformations[i] = t
	}
	return spanText(p.src, field), transformations, nil
}

// splitCall matches toks against `identifier ( args )` where the closing
// parenthesis is the last token.
func splitCall(toks []token) (string, []token, bool) {
	if len(toks) < 3 || toks[0].Type != tokenWord || toks[1].Type != tokenLParen {
		return "", nil, false
	}
	if !identifierPattern.MatchString(toks[0].Text) {
		return "", nil, false
	}
	if matchParen(toks, 1) != len(toks)-1 {
		return "", nil, false
	}
	return toks[0].Text, toks[2 : len(toks)-1], true
}

// splitFunctionArgs takes the last arity comma-separated arguments as
// parameters. Whatever precedes them is the inner field expression, which may
// itself be a call: REPLACE(TRIM(f), 'a', 'b') yields params [a b] and rest
// TRIM(f). Commas inside quotes or nested calls do not separate arguments.
func (p *parser) splitFunctionArgs(args []token, arity int) ([]Literal, []token, error) {
	params := make([]Literal, 0, arity)
	if arity == 0 {
		return params, args, nil
	}

	parts := splitTopLevel(args)
	if len(parts)-1 < arity {
		return nil, nil, newExpressionError(CodeInsufficientParameters, p.src,
			fmt.Sprintf("Invalid parameters provided, expected %d parameters but got fewer.", arity))
	}

	for _, part := range parts[len(parts)-arity:] {
		params = append(params, Coerce(spanText(p.src, part)))
	}

	// The field is every part before the parameters, with the commas
	// between them.
	keep := len(parts) - arity
	restLen := keep - 1
	for _, part := range parts[:keep] {
		restLen += len(part)
	}
	return params, args[:restLen], nil
}
