// Package sqlexpr converts boolean SQL filter expressions (restricted WHERE
// clause fragments) into a tree of condition groups, leaf conditions and
// field transformations.
//
//	(a = 1 OR UPPER(TRIM(b)) = 'X') AND c IS NOT NULL
//
// becomes a Group joined by AND holding a nested OR Group and a leaf for c.
// The accepted grammar is flat: one logical operator per nesting level,
// conditions of the form transform(field) OP value, and no subqueries or
// arithmetic.
package sqlexpr

// Converter turns expressions into condition trees. It holds no mutable state
// and is safe for concurrent use.
type Converter struct {
	functions FunctionTable
}

// NewConverter returns a Converter that accepts the transformations in
// functions.
func NewConverter(functions FunctionTable) *Converter {
	return &Converter{functions: functions}
}

// Functions returns the table of supported transformations.
func (c *Converter) Functions() FunctionTable {
	return c.functions
}

// Convert parses expr. An expression that is empty after whitespace
// normalization yields a nil Group and a nil error. Malformed input yields an
// *ExpressionError.
func (c *Converter) Convert(expr string) (*Group, error) {
	expr = Normalize(expr)
	if expr == "" {
		return nil, nil
	}

	toks := tokenize(expr)
	if err := validateShape(expr, toks); err != nil {
		return nil, err
	}
	if err := validateParens(expr, toks); err != nil {
		return nil, err
	}

	p := &parser{src: expr, functions: c.functions}
	op, err := p.resolveLogicalOperator(toks)
	if err != nil {
		return nil, err
	}
	children, err := p.splitGroup(toks)
	if err != nil {
		return nil, err
	}
	return newGroup(op, children), nil
}

var defaultConverter = NewConverter(DefaultFunctionTable())

// Convert parses expr with the built-in function table.
func Convert(expr string) (*Group, error) {
	return defaultConverter.Convert(expr)
}
