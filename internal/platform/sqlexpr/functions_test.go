package sqlexpr

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultFunctionTable(t *testing.T) {
	table := DefaultFunctionTable()
	tests := map[string]int{
		"TRIM":    0,
		"upper":   0,
		"Ucase":   0,
		"ROUND":   1,
		"SQRT":    1,
		"SUBSTR":  2,
		"REPLACE": 2,
	}
	for name, want := range tests {
		got, ok := table.Arity(name)
		if !ok {
			t.Errorf("Arity(%q) not found", name)
			continue
		}
		if got != want {
			t.Errorf("Arity(%q) = %d, want %d", name, got, want)
		}
	}
	if _, ok := table.Arity("CONCAT"); ok {
		t.Error("CONCAT should not be supported by default")
	}
	if table.Len() != 19 {
		t.Errorf("Len() = %d, want 19", table.Len())
	}
}

func TestFunctionTable_NamesSorted(t *testing.T) {
	names := DefaultFunctionTable().Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func TestNewFunctionTable_Rejects(t *testing.T) {
	if _, err := NewFunctionTable(map[string]int{"": 0}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := NewFunctionTable(map[string]int{"X": -1}); err == nil {
		t.Error("expected error for negative arity")
	}
}

func TestFunctionTable_ZeroValue(t *testing.T) {
	var table FunctionTable
	if _, ok := table.Arity("TRIM"); ok {
		t.Error("zero table should know no functions")
	}
	if table.Len() != 0 || len(table.Names()) != 0 {
		t.Error("zero table should be empty")
	}
}

func TestParseFunctionTable_Merge(t *testing.T) {
	table, err := ParseFunctionTable([]byte(`
functions:
  coalesce: 1
  ROUND: 0
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, ok := table.Arity("COALESCE"); !ok || n != 1 {
		t.Errorf("COALESCE = %d, %v", n, ok)
	}
	if n, _ := table.Arity("ROUND"); n != 0 {
		t.Errorf("ROUND override = %d, want 0", n)
	}
	if _, ok := table.Arity("TRIM"); !ok {
		t.Error("built-in TRIM should survive a merge")
	}
	// The built-in table must not see the override.
	if n, _ := DefaultFunctionTable().Arity("ROUND"); n != 1 {
		t.Errorf("default ROUND = %d after merge, want 1", n)
	}
}

func TestParseFunctionTable_Replace(t *testing.T) {
	table, err := ParseFunctionTable([]byte("replace: true\nfunctions:\n  NVL: 1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
	if _, ok := table.Arity("TRIM"); ok {
		t.Error("TRIM should be gone after replace")
	}
}

func TestParseFunctionTable_Invalid(t *testing.T) {
	if _, err := ParseFunctionTable([]byte("functions: [1, 2")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := ParseFunctionTable([]byte("functions:\n  BAD: -2\n")); err == nil {
		t.Error("expected negative arity error")
	}
}

func TestLoadFunctionTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "functions.yaml")
	if err := os.WriteFile(path, []byte("functions:\n  TO_CHAR: 1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	table, err := LoadFunctionTable(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, ok := table.Arity("to_char"); !ok || n != 1 {
		t.Errorf("TO_CHAR = %d, %v", n, ok)
	}

	if _, err := LoadFunctionTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
