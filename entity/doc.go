// Package entity models one record pulled from a registry API.
//
// An Entity is an ordered mapping from field name to value. Values are
// scalars (string, json.Number, bool), nil, a nested *Entity, a relation
// ([]*Entity) or a scalar list ([]any). Field order is the order in which
// the API returned the fields and survives decoding, cloning and JSON
// encoding.
//
// Paths address values inside the relation tree:
//
//	e.Lookup("ligtInBuurt.[0].naam")
//
// Resolution is total: a missing field, an out-of-range index or a nil
// intermediate yields nil, never an error.
package entity
