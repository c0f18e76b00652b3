// Package bootstrap wires and runs a gobexport export.
//
// NewApp turns a validated ExportConfig into the collaborators every
// product needs: the retrying HTTP client, the credential cache, the
// output and buffer storages and the export metrics. RunTask exports
// telemetry for the duration of a task, cancels it on SIGINT or SIGTERM
// and runs the registered stop hooks afterwards.
//
//	app, err := bootstrap.NewApp(cfg)
//	if err != nil {
//	    return err
//	}
//	products, err := cat.Build(app.Deps())
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    results, err := app.Runner().Run(ctx, products...)
//	    app.Summary.TrackRun(names, results, err)
//	    return err
//	})
//	app.Summary.DisplaySummary(os.Stdout)
package bootstrap
