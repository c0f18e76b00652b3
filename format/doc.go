// Package format projects entities into flat output rows.
//
// A Spec is an ordered list of columns. Each column holds a Value, one of
//
//   - FieldRef: the value at a path, e.g. "ligtInBuurt.[0].code"
//   - Literal: a constant
//   - Format: the value at a path passed through a named formatter
//   - Conditional: one of two nested values, chosen by whether a
//     referenced path is empty
//
// Specs are usually declared in YAML, where key order is column order:
//
//	identificatie: identificatie
//	bron:
//	  action: literal
//	  value: GOB
//	begin:
//	  action: format
//	  value: beginGeldigheid
//	  formatter: date
//	status:
//	  condition: isempty
//	  reference: eindGeldigheid
//	  trueval: {action: literal, value: actueel}
//	  falseval: {action: literal, value: historisch}
//
// Every path, formatter name and keyword is checked when the Spec is
// built, so a broken declaration fails before any row is read.
package format
