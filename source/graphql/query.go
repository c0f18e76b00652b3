package graphql

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kbukum/gobexport/errors"
)

// Query is GraphQL query text with its root field located.
type Query struct {
	text   string
	tokens []token

	alias    int // token index of the root alias, -1 if none
	name     int // token index of the root field name
	argOpen  int // token index of "(", -1 if the root field has no arguments
	argClose int
	selOpen  int // token indices of the root selection set braces
	selClose int
}

type argument struct {
	name  string
	value string
}

// Parse tokenizes text and locates the root field. Text that cannot be
// anchored yields a protocol error.
func Parse(text string) (*Query, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, errors.ProtocolError("cannot tokenize query: %v", err)
	}
	q := &Query{text: text, tokens: tokens, alias: -1, argOpen: -1, argClose: -1}
	if err := q.locateRoot(); err != nil {
		return nil, err
	}
	return q, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Query {
	q, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return q
}

func (q *Query) locateRoot() error {
	if err := q.checkBalanced(); err != nil {
		return err
	}
	op := -1
	depth := 0
	for i, t := range q.tokens {
		if t.is("(") || t.is("[") {
			depth++
		} else if t.is(")") || t.is("]") {
			depth--
		} else if t.is("{") && depth == 0 {
			op = i
			break
		}
	}
	if op < 0 {
		return errors.ProtocolError("query has no selection set")
	}

	i := op + 1
	if i >= len(q.tokens) || q.tokens[i].kind != kindName {
		return errors.ProtocolError("query has no root field")
	}
	if i+2 < len(q.tokens) && q.tokens[i+1].is(":") && q.tokens[i+2].kind == kindName {
		q.alias = i
		i += 2
	}
	q.name = i
	i++

	if i < len(q.tokens) && q.tokens[i].is("(") {
		q.argOpen, q.argClose = i, q.match(i)
		i = q.argClose + 1
	}
	for i+1 < len(q.tokens) && q.tokens[i].is("@") {
		i += 2
		if i < len(q.tokens) && q.tokens[i].is("(") {
			i = q.match(i) + 1
		}
	}
	if i >= len(q.tokens) || !q.tokens[i].is("{") {
		return errors.ProtocolError("root field %s has no selection set", q.RootField())
	}
	q.selOpen, q.selClose = i, q.match(i)
	return nil
}

func (q *Query) checkBalanced() error {
	pairs := map[string]string{")": "(", "]": "[", "}": "{"}
	var stack []string
	for _, t := range q.tokens {
		if t.kind != kindPunct {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			stack = append(stack, t.text)
		case ")", "]", "}":
			if len(stack) == 0 || stack[len(stack)-1] != pairs[t.text] {
				return errors.ProtocolError("unbalanced %q at offset %d", t.text, t.start)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return errors.ProtocolError("unclosed %q in query", stack[len(stack)-1])
	}
	return nil
}

// match returns the index of the bracket closing the one at i. Brackets
// are known to be balanced.
func (q *Query) match(i int) int {
	depth := 0
	for j := i; j < len(q.tokens); j++ {
		t := q.tokens[j]
		if t.is("(") || t.is("[") || t.is("{") {
			depth++
		} else if t.is(")") || t.is("]") || t.is("}") {
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(q.tokens) - 1
}

// String returns the query text.
func (q *Query) String() string {
	return q.text
}

// RootField returns the name of the root field.
func (q *Query) RootField() string {
	return q.tokens[q.name].text
}

// ResponseKey returns the key under which the root field appears in the
// response data: its alias when aliased, its name otherwise.
func (q *Query) ResponseKey() string {
	if q.alias >= 0 {
		return q.tokens[q.alias].text
	}
	return q.RootField()
}

// Argument returns the source text of a root field argument value.
func (q *Query) Argument(name string) (string, bool) {
	args, err := q.arguments()
	if err != nil {
		return "", false
	}
	for _, a := range args {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

func (q *Query) arguments() ([]argument, error) {
	if q.argOpen < 0 {
		return nil, nil
	}
	var args []argument
	i := q.argOpen + 1
	for i < q.argClose {
		if q.tokens[i].kind != kindName || i+2 > q.argClose || !q.tokens[i+1].is(":") {
			return nil, errors.ProtocolError("malformed argument list of %s at offset %d", q.RootField(), q.tokens[i].start)
		}
		start := i + 2
		end := start + 1
		if q.tokens[start].is("{") || q.tokens[start].is("[") {
			end = q.match(start) + 1
		}
		if end > q.argClose {
			return nil, errors.ProtocolError("malformed argument %s of %s", q.tokens[i].text, q.RootField())
		}
		args = append(args, argument{
			name:  q.tokens[i].text,
			value: q.text[q.tokens[start].start:q.tokens[end-1].end],
		})
		i = end
	}
	return args, nil
}

func upsert(args []argument, name, value string) []argument {
	for i := range args {
		if args[i].name == name {
			args[i].value = value
			return args
		}
	}
	return append(args, argument{name: name, value: value})
}

// WithPaging returns the query with first set to the page size and after
// set to the cursor. A page size of zero or less and an empty cursor leave
// the corresponding argument untouched.
func (q *Query) WithPaging(first int, after string) (*Query, error) {
	args, err := q.arguments()
	if err != nil {
		return nil, err
	}
	if first > 0 {
		args = upsert(args, "first", strconv.Itoa(first))
	}
	if after != "" {
		quoted, _ := json.Marshal(after)
		args = upsert(args, "after", string(quoted))
	}
	if len(args) == 0 {
		return q, nil
	}

	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.name + ": " + a.value
	}
	list := "(" + strings.Join(parts, ", ") + ")"

	var text string
	if q.argOpen >= 0 {
		text = q.text[:q.tokens[q.argOpen].start] + list + q.text[q.tokens[q.argClose].end:]
	} else {
		pos := q.tokens[q.name].end
		text = q.text[:pos] + list + q.text[pos:]
	}
	return Parse(text)
}

// EnsurePageInfo returns the query with a pageInfo { endCursor hasNextPage }
// selection added to the root field, unless pageInfo is already selected.
func (q *Query) EnsurePageInfo() (*Query, error) {
	for _, t := range q.tokens {
		if t.kind == kindName && t.text == "pageInfo" {
			return q, nil
		}
	}
	pos := q.tokens[q.selClose].start
	return Parse(q.text[:pos] + " pageInfo { endCursor hasNextPage } " + q.text[pos:])
}

// EnsureNodeField returns the query with field selected directly inside
// the first node { } selection of the root field, inserted right after the
// opening brace when missing.
func (q *Query) EnsureNodeField(field string) (*Query, error) {
	node := -1
	for i := q.selOpen + 1; i+1 < q.selClose; i++ {
		t := q.tokens[i]
		if t.kind == kindName && t.text == "node" && q.tokens[i+1].is("{") {
			node = i + 1
			break
		}
	}
	if node < 0 {
		return nil, errors.ProtocolError("query for %s has no node selection", q.RootField())
	}

	end := q.match(node)
	depth := 0
	for i := node + 1; i < end; i++ {
		t := q.tokens[i]
		switch {
		case t.is("{") || t.is("("):
			depth++
		case t.is("}") || t.is(")"):
			depth--
		case depth == 0 && t.kind == kindName && t.text == field && !q.tokens[i+1].is(":"):
			return q, nil
		}
	}
	pos := q.tokens[node].end
	return Parse(q.text[:pos] + " " + field + " " + q.text[pos:])
}
