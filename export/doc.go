// Package export drives products from source to output file.
//
// A Product binds a source to a format, optional history expansion, result
// sorters, filters and a sink. Runner.Run exports products one after the
// other, clearing the buffer cache before and after the run:
//
//	runner := export.NewRunner(out, export.WithBuffer(cache), export.WithLogger(log))
//	results, err := runner.Run(ctx, products...)
//
// Sinks receive the row iterator and invoke the format themselves. The
// runner hands every sink its iterator once and fails the product when the
// sink returns without exhausting it.
package export
