package sqlexpr

import "strings"

// ---------------------------------------------------------------------------
// Tokenizer
//
// Expressions are lexed once into a flat token stream. Every token keeps its
// byte offsets into the normalized source so that the parser can hand the
// original text of a span (a field expression, a value, a function argument)
// to the leaf components without rebuilding it from tokens.
// ---------------------------------------------------------------------------

type tokenType int

const (
	tokenWord    tokenType = iota // Unquoted run: identifiers, numbers, keywords other than AND/OR
	tokenString                   // Quoted literal, quotes kept in Text
	tokenLParen
	tokenRParen
	tokenComma
	tokenCompare // Symbolic comparison operator: = <> != < > <= >=
	tokenAnd
	tokenOr
)

type token struct {
	Type tokenType
	Text string
	Pos  int // offset of the first byte
	End  int // offset one past the last byte
}

func (t token) isLogical() bool {
	return t.Type == tokenAnd || t.Type == tokenOr
}

// isKeyword reports whether t is the bare word kw, ignoring case.
func (t token) isKeyword(kw string) bool {
	return t.Type == tokenWord && strings.EqualFold(t.Text, kw)
}

// tokenize splits a normalized expression into tokens. Quoted literals may
// contain a doubled quote character as an escape ('it''s). A quote that is
// never closed starts an ordinary word, so 'abc stays a literal with its
// quote.
func tokenize(src string) []token {
	var tokens []token
	i := 0
	n := len(src)

	for i < n {
		ch := src[i]

		if isSpace(ch) {
			i++
			continue
		}

		switch ch {
		case '(':
			tokens = append(tokens, token{Type: tokenLParen, Text: "(", Pos: i, End: i + 1})
			i++
			continue
		case ')':
			tokens = append(tokens, token{Type: tokenRParen, Text: ")", Pos: i, End: i + 1})
			i++
			continue
		case ',':
			tokens = append(tokens, token{Type: tokenComma, Text: ",", Pos: i, End: i + 1})
			i++
			continue
		case '\'', '"':
			if j, ok := scanQuoted(src, i); ok {
				tokens = append(tokens, token{Type: tokenString, Text: src[i:j], Pos: i, End: j})
				i = j
				continue
			}
		}

		if w := compareWidth(src, i); w > 0 {
			tokens = append(tokens, token{Type: tokenCompare, Text: src[i : i+w], Pos: i, End: i + w})
			i += w
			continue
		}

		j := i
		for j < n && !isSpace(src[j]) && !isDelimiter(src[j]) && compareWidth(src, j) == 0 {
			j++
		}
		word := src[i:j]
		tok := token{Type: tokenWord, Text: word, Pos: i, End: j}
		switch strings.ToUpper(word) {
		case "AND":
			tok.Type = tokenAnd
		case "OR":
			tok.Type = tokenOr
		}
		tokens = append(tokens, tok)
		i = j
	}

	return tokens
}

// scanQuoted returns the offset just past the closing quote of the literal
// opened at start.
func scanQuoted(src string, start int) (int, bool) {
	q := src[start]
	j := start + 1
	for j < len(src) {
		if src[j] == q {
			if j+1 < len(src) && src[j+1] == q {
				j += 2
				continue
			}
			return j + 1, true
		}
		j++
	}
	return 0, false
}

// compareWidth returns the length of the comparison operator at src[i], or 0.
func compareWidth(src string, i int) int {
	next := byte(0)
	if i+1 < len(src) {
		next = src[i+1]
	}
	switch src[i] {
	case '<':
		if next == '>' || next == '=' {
			return 2
		}
		return 1
	case '>':
		if next == '=' {
			return 2
		}
		return 1
	case '!':
		if next == '=' {
			return 2
		}
	case '=':
		return 1
	}
	return 0
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// isDelimiter reports characters that always end a word. Quotes only open a
// literal at the start of a token, so O'Brien lexes as one word.
func isDelimiter(ch byte) bool {
	return ch == '(' || ch == ')' || ch == ','
}

// spanText returns the source text covered by toks.
func spanText(src string, toks []token) string {
	if len(toks) == 0 {
		return ""
	}
	return src[toks[0].Pos:toks[len(toks)-1].End]
}

// matchParen returns the index of the token closing the parenthesis at
// toks[open], or -1 when it is never closed.
func matchParen(toks []token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].Type {
		case tokenLParen:
			depth++
		case tokenRParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// indexTopLevel returns the index of the first token at parenthesis depth
// zero for which match returns true, or -1.
func indexTopLevel(toks []token, match func(token) bool) int {
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
		if depth == 0 && match(t) {
			return i
		}
	}
	return -1
}

// splitTopLevel cuts toks at every top-level comma.
func splitTopLevel(toks []token) [][]token {
	var parts [][]token
	depth := 0
	start := 0
	for i, t := range toks {
		switch t.Type {
		case tokenLParen:
			depth++
		case tokenRParen:
			depth--
		case tokenComma:
			if depth == 0 {
				parts = append(parts, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, toks[start:])
}
