package sqlexpr

import (
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize replaces newlines with spaces, collapses whitespace runs to a
// single space and trims the result.
func Normalize(expr string) string {
	expr = strings.ReplaceAll(expr, "\n", " ")
	expr = whitespaceRun.ReplaceAllString(expr, " ")
	return strings.TrimSpace(expr)
}

// validateShape rejects expressions that begin or end with AND / OR.
func validateShape(expr string, toks []token) error {
	if len(toks) == 0 {
		return nil
	}
	if toks[0].isLogical() || toks[len(toks)-1].isLogical() {
		return newExpressionError(CodeInvalidShape, expr,
			fmt.Sprintf("SQL expression '%s' cannot start or end with a logical operator.", expr))
	}
	return nil
}

// validateParens checks that every parenthesis outside quoted literals is
// closed, and that no closer appears before its opener.
func validateParens(expr string, toks []token) error {
	depth := 0
	for _, t := range toks {
		switch t.Type {
		case tokenLParen:
			depth++
		case tokenRParen:
			if depth == 0 {
				return unbalancedError(expr)
			}
			depth--
		}
	}
	if depth != 0 {
		return unbalancedError(expr)
	}
	return nil
}

func unbalancedError(expr string) error {
	return newExpressionError(CodeUnmatchedParenthesis, expr,
		fmt.Sprintf("Please close all the brackets properly in the SQL expression '%s'.", expr))
}
