package sqlexpr

import (
	"regexp"
	"strconv"
	"strings"
)

var numericPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// RemoveQuotes strips one pair of surrounding quotes from a literal. Runs of
// leading or trailing quote characters are first collapsed to one, so
// """x""" and "x" both yield x.
func RemoveQuotes(s string) string {
	for _, q := range []string{`"`, `'`} {
		if strings.HasPrefix(s, q) {
			s = q + strings.TrimLeft(s, q)
		}
		if strings.HasSuffix(s, q) {
			s = strings.TrimRight(s, q) + q
		}
	}

	if len(s) == 1 && (s == `"` || s == `'`) {
		return ""
	}
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Coerce turns a raw literal into a typed one: TRUE/FALSE become booleans,
// optionally signed integers and decimals become numbers, anything else stays
// a string (with its quotes removed).
func Coerce(raw string) Literal {
	s := RemoveQuotes(raw)

	switch strings.ToUpper(s) {
	case "TRUE":
		return BoolLiteral(true)
	case "FALSE":
		return BoolLiteral(false)
	}

	if numericPattern.MatchString(s) {
		if !strings.Contains(s, ".") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return IntLiteral(i)
			}
		}
		// Decimals, and integers too wide for int64.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FloatLiteral(f)
		}
	}

	return StringLiteral(s)
}
