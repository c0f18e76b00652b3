// Package observability wires OpenTelemetry tracing and metrics into an
// export run.
//
// Nothing is exported unless an OTLP endpoint is configured; without one
// the global no-op providers stay in place and instrumented code costs
// next to nothing.
//
//	shutdown, err := observability.Setup(ctx, cfg)
//	defer shutdown(ctx)
//
//	metrics, err := observability.NewExportMetrics(observability.Meter("gobexport"))
//	ctx, span := observability.StartSpan(ctx, observability.SpanPage)
//	defer span.End()
//	metrics.RecordPage(ctx, "meetbouten")
package observability
