// Package graphql rewrites GraphQL query text for pagination.
//
// Queries are kept as text, not as an AST. The text is tokenized with
// byte offsets so that the root field's argument list can be rebuilt and
// pageInfo or cursor selections inserted without depending on how the
// original query was formatted.
//
//	q, err := graphql.Parse(`{ meetbouten(active: true) { edges { node { id } } } }`)
//	q, err = q.WithPaging(500, cursor)
//	q, err = q.EnsurePageInfo()
//	body := q.String()
package graphql
