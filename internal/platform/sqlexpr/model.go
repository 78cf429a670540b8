package sqlexpr

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// LogicalOperator connects sibling nodes of a Group.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// ComparisonOperator is the operator of a leaf Condition.
type ComparisonOperator string

const (
	OpEqual          ComparisonOperator = "="
	OpNotEqual       ComparisonOperator = "<>"
	OpNotEqualBang   ComparisonOperator = "!="
	OpLessThan       ComparisonOperator = "<"
	OpGreaterThan    ComparisonOperator = ">"
	OpLessOrEqual    ComparisonOperator = "<="
	OpGreaterOrEqual ComparisonOperator = ">="
	OpIn             ComparisonOperator = "IN"
	OpNotIn          ComparisonOperator = "NOT IN"
	OpIsNull         ComparisonOperator = "IS NULL"
	OpIsNotNull      ComparisonOperator = "IS NOT NULL"
)

// ValueTypeString is the only valueType tag emitted for scalar comparisons.
const ValueTypeString = "string"

// Node is either a *Group or a *Condition.
type Node interface {
	node()
}

// Group is a list of siblings joined by one logical operator. LogicalOperator
// is empty when the group holds a single node.
type Group struct {
	LogicalOperator LogicalOperator `json:"logical_operator,omitempty" yaml:"logical_operator,omitempty"`
	Conditions      []Node          `json:"conditions" yaml:"conditions"`
}

// Condition is a single comparison, optionally applied to a transformed field.
type Condition struct {
	Field           string             `json:"field" yaml:"field"`
	Operator        ComparisonOperator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value           *Value             `json:"value,omitempty" yaml:"value,omitempty"`
	ValueType       string             `json:"valueType,omitempty" yaml:"valueType,omitempty"`
	Transformations []Transformation   `json:"transformations" yaml:"transformations"`
}

// Transformation is a scalar function wrapped around a field. Sequence 1 is
// the call nearest the bare field.
type Transformation struct {
	Name     string    `json:"name" yaml:"name"`
	Params   []Literal `json:"params" yaml:"params"`
	Sequence int       `json:"sequence" yaml:"sequence"`
}

func (*Group) node()     {}
func (*Condition) node() {}

func newGroup(op LogicalOperator, children []Node) *Group {
	if children == nil {
		children = []Node{}
	}
	if len(children) == 1 {
		op = ""
	} else if op == "" {
		op = LogicalAnd
	}
	return &Group{LogicalOperator: op, Conditions: children}
}

// Walk calls fn for every node of the tree rooted at n, parents first.
// Returning false from fn skips the children of a group.
func Walk(n Node, fn func(Node) bool) {
	switch v := n.(type) {
	case *Group:
		if v == nil || !fn(v) {
			return
		}
		for _, child := range v.Conditions {
			Walk(child, fn)
		}
	case *Condition:
		if v != nil {
			fn(v)
		}
	}
}

// LeafCount returns the number of conditions under n.
func LeafCount(n Node) int {
	count := 0
	Walk(n, func(n Node) bool {
		if _, ok := n.(*Condition); ok {
			count++
		}
		return true
	})
	return count
}

// ---------------------------------------------------------------------------
// Literals and values
// ---------------------------------------------------------------------------

// LiteralKind tags the dynamic type held by a Literal.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralBool
	LiteralInt
	LiteralFloat
)

// Literal is a typed constant: boolean, integer, float or string.
type Literal struct {
	Kind  LiteralKind
	Str   string
	Bool  bool
	Int   int64
	Float float64
}

func StringLiteral(s string) Literal { return Literal{Kind: LiteralString, Str: s} }
func BoolLiteral(b bool) Literal     { return Literal{Kind: LiteralBool, Bool: b} }
func IntLiteral(i int64) Literal     { return Literal{Kind: LiteralInt, Int: i} }
func FloatLiteral(f float64) Literal { return Literal{Kind: LiteralFloat, Float: f} }

// Interface returns the literal as a plain Go value.
func (l Literal) Interface() interface{} {
	switch l.Kind {
	case LiteralBool:
		return l.Bool
	case LiteralInt:
		return l.Int
	case LiteralFloat:
		return l.Float
	default:
		return l.Str
	}
}

// MarshalJSON keeps floats recognisable as floats: 2.0 encodes as 2.0, not 2.
func (l Literal) MarshalJSON() ([]byte, error) {
	switch l.Kind {
	case LiteralBool:
		return strconv.AppendBool(nil, l.Bool), nil
	case LiteralInt:
		return strconv.AppendInt(nil, l.Int, 10), nil
	case LiteralFloat:
		return []byte(formatFloat(l.Float)), nil
	default:
		return json.Marshal(l.Str)
	}
}

// formatFloat switches to exponent notation at the same magnitudes as
// encoding/json, so a 300 digit integer encodes as 1e+300.
func formatFloat(f float64) string {
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// 1e-07 -> 1e-7
		if n := len(s); n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
		return s
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// MarshalYAML mirrors MarshalJSON for the yaml encoder.
func (l Literal) MarshalYAML() (interface{}, error) {
	return l.Interface(), nil
}

// Value is the right-hand side of a comparison: a scalar for the symbolic
// operators, a list of strings for IN / NOT IN.
type Value struct {
	Scalar Literal
	List   []string
	IsList bool
}

func scalarValue(s string) *Value {
	return &Value{Scalar: StringLiteral(s)}
}

func listValue(items []string) *Value {
	if items == nil {
		items = []string{}
	}
	return &Value{List: items, IsList: true}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsList {
		return json.Marshal(v.List)
	}
	return v.Scalar.MarshalJSON()
}

func (v Value) MarshalYAML() (interface{}, error) {
	if v.IsList {
		return v.List, nil
	}
	return v.Scalar.Interface(), nil
}
