package sqlexpr

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultArities lists the built-in transformations and the number of
// trailing parameters each takes after the field argument.
var defaultArities = map[string]int{
	"TRIM":     0,
	"UPPER":    0,
	"UCASE":    0,
	"LOWER":    0,
	"LENGTH":   0,
	"INITCAP":  0,
	"IS_DATE":  0,
	"IS_NULL":  0,
	"IS_EMPTY": 0,

	"ROUND": 1, // decimal places
	"FLOOR": 1,
	"CEIL":  1,
	"ABS":   1,
	"SQRT":  1,

	"SUBSTR":  2, // start, length
	"LPAD":    2, // length, pad char
	"RPAD":    2, // length, pad char
	"INSTR":   2, // substring, position
	"REPLACE": 2, // old, new
}

// FunctionTable maps supported function names to their parameter count. The
// zero value knows no functions. A FunctionTable is never modified after it
// is built, so one table can be shared by any number of converters.
type FunctionTable struct {
	arity map[string]int
}

// DefaultFunctionTable returns the built-in set of transformations.
func DefaultFunctionTable() FunctionTable {
	t, _ := NewFunctionTable(defaultArities)
	return t
}

// NewFunctionTable copies arities into a table. Names are case-insensitive.
func NewFunctionTable(arities map[string]int) (FunctionTable, error) {
	m := make(map[string]int, len(arities))
	for name, n := range arities {
		key := strings.ToUpper(strings.TrimSpace(name))
		if key == "" {
			return FunctionTable{}, fmt.Errorf("function name must not be empty")
		}
		if n < 0 {
			return FunctionTable{}, fmt.Errorf("function %s: arity must not be negative, got %d", key, n)
		}
		m[key] = n
	}
	return FunctionTable{arity: m}, nil
}

// Arity returns the parameter count for name.
func (t FunctionTable) Arity(name string) (int, bool) {
	n, ok := t.arity[strings.ToUpper(name)]
	return n, ok
}

// Len returns the number of functions in the table.
func (t FunctionTable) Len() int {
	return len(t.arity)
}

// Names returns the function names in alphabetical order.
func (t FunctionTable) Names() []string {
	names := make([]string, 0, len(t.arity))
	for name := range t.arity {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a new table holding t's entries overlaid with other's.
func (t FunctionTable) Merge(other FunctionTable) FunctionTable {
	m := make(map[string]int, len(t.arity)+len(other.arity))
	for k, v := range t.arity {
		m[k] = v
	}
	for k, v := range other.arity {
		m[k] = v
	}
	return FunctionTable{arity: m}
}

// functionsFile is the on-disk layout read by LoadFunctionTable:
//
//	replace: false
//	functions:
//	  COALESCE: 1
//	  CONCAT: 1
type functionsFile struct {
	Replace   bool           `yaml:"replace"`
	Functions map[string]int `yaml:"functions"`
}

// LoadFunctionTable reads a YAML functions file. Its entries extend the
// built-in table, or replace it entirely when the file sets replace: true.
func LoadFunctionTable(path string) (FunctionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FunctionTable{}, fmt.Errorf("read functions file: %w", err)
	}
	return ParseFunctionTable(data)
}

// ParseFunctionTable is LoadFunctionTable over an in-memory document.
func ParseFunctionTable(data []byte) (FunctionTable, error) {
	var f functionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return FunctionTable{}, fmt.Errorf("parse functions file: %w", err)
	}
	custom, err := NewFunctionTable(f.Functions)
	if err != nil {
		return FunctionTable{}, err
	}
	if f.Replace {
		return custom, nil
	}
	return DefaultFunctionTable().Merge(custom), nil
}
