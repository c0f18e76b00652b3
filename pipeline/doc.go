// Package pipeline provides composable, pull-based stream operators.
//
// Pipelines are lazy. No work happens until values are pulled via Collect,
// Drain or ForEach, or through Iter, and each stage pulls from the previous one on
// demand, so at most one value per stage is resident at a time. This is
// what keeps an export bounded in memory no matter how large the remote
// result set is.
//
// # Operators
//
//   - Map: transform each value
//   - FlatMap: expand each value into zero or more values
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value, such as counting
//
// # Usage
//
//	src := pipeline.From(source.Open(ctx))
//	rows := pipeline.FlatMap(src, expander.Iterator)
//	kept := pipeline.Filter(rows, f.Filter)
//	out, err := pipeline.Collect(ctx, kept)
package pipeline
