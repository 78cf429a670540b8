package sqlexpr

import "errors"

// ErrInvalidExpression is matched by every error the converter returns for
// malformed input. Use errors.As with *ExpressionError to get the code.
var ErrInvalidExpression = errors.New("invalid SQL expression")

// ErrorCode classifies an ExpressionError.
type ErrorCode string

const (
	CodeInvalidShape           ErrorCode = "InvalidExpressionShape"
	CodeUnmatchedParenthesis   ErrorCode = "UnmatchedParenthesis"
	CodeUnsupportedFunction    ErrorCode = "UnsupportedFunction"
	CodeInsufficientParameters ErrorCode = "InsufficientParameters"
)

// ExpressionError is a client error raised while converting an expression.
type ExpressionError struct {
	Code       ErrorCode
	Message    string
	Expression string
}

func (e *ExpressionError) Error() string {
	return e.Message
}

func (e *ExpressionError) Is(target error) bool {
	return target == ErrInvalidExpression
}

func newExpressionError(code ErrorCode, expr, msg string) *ExpressionError {
	return &ExpressionError{Code: code, Message: msg, Expression: expr}
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not an
// ExpressionError.
func CodeOf(err error) ErrorCode {
	var exprErr *ExpressionError
	if errors.As(err, &exprErr) {
		return exprErr.Code
	}
	return ""
}
