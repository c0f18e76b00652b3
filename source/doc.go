// Package source turns a remote registry query into a lazy stream of
// entities.
//
// Three protocol variants exist: NewREST follows the _links.next.href
// chain of a paged REST API, NewGraphQL pages a GraphQL connection with
// first/after and pageInfo, and NewStreaming reads newline-delimited JSON
// from the streaming GraphQL endpoint, optionally in cursor batches.
//
// Every Open starts the pull from scratch. At most one page or one
// streamed line is held in memory. Transport failures are retried by the
// client's retry policy; what remains afterwards surfaces as an API_ERROR,
// malformed responses as PROTOCOL_ERROR.
package source
