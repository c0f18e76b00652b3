package graphql

import (
	"fmt"
	"strings"
)

type kind int

const (
	kindName kind = iota
	kindPunct
	kindString
	kindNumber
	kindVariable
)

type token struct {
	kind  kind
	text  string
	start int
	end   int
}

func (t token) is(punct string) bool {
	return t.kind == kindPunct && t.text == punct
}

// tokenize splits text into tokens, skipping whitespace, commas and
// comments, which carry no meaning in GraphQL.
func tokenize(text string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',':
			i++
		case c == '#':
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case strings.HasPrefix(text[i:], "..."):
			tokens = append(tokens, token{kindPunct, "...", i, i + 3})
			i += 3
		case strings.IndexByte("{}()[]:!=@|&", c) >= 0:
			tokens = append(tokens, token{kindPunct, string(c), i, i + 1})
			i++
		case c == '$':
			j := scanName(text, i+1)
			if j == i+1 {
				return nil, fmt.Errorf("graphql: bare $ at offset %d", i)
			}
			tokens = append(tokens, token{kindVariable, text[i:j], i, j})
			i = j
		case c == '"':
			j, err := scanString(text, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kindString, text[i:j], i, j})
			i = j
		case c == '-' || isDigit(c):
			j := i + 1
			for j < len(text) && (isDigit(text[j]) || strings.IndexByte(".eE+-", text[j]) >= 0) {
				j++
			}
			tokens = append(tokens, token{kindNumber, text[i:j], i, j})
			i = j
		case isNameStart(c):
			j := scanName(text, i)
			tokens = append(tokens, token{kindName, text[i:j], i, j})
			i = j
		default:
			return nil, fmt.Errorf("graphql: unexpected character %q at offset %d", c, i)
		}
	}
	return tokens, nil
}

func scanName(text string, i int) int {
	for i < len(text) && (isNameStart(text[i]) || isDigit(text[i])) {
		i++
	}
	return i
}

func scanString(text string, i int) (int, error) {
	if strings.HasPrefix(text[i:], `"""`) {
		end := strings.Index(text[i+3:], `"""`)
		if end < 0 {
			return 0, fmt.Errorf("graphql: unterminated block string at offset %d", i)
		}
		return i + 3 + end + 3, nil
	}
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case '"':
			return j + 1, nil
		case '\n':
			return 0, fmt.Errorf("graphql: unterminated string at offset %d", i)
		}
	}
	return 0, fmt.Errorf("graphql: unterminated string at offset %d", i)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
