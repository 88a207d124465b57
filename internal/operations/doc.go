// Package operations runs the protein groups pipeline as a sequence of steps.
//
// Core Components:
//
// Manager: executes the registered steps in dependency order, one at a time.
// Before each step it checks for cancellation, asks the step whether it has
// a reason to be skipped and verifies that its dependencies completed. Every
// step runs inside its own span and with its own timeout.
//
// Step: a single unit of work. The concrete steps load the inputs, filter the
// table, extract identifiers, fetch annotation, match reference sets, reorder
// samples by clustering and export the workbook.
//
// Registry: keeps the steps in registration order and sorts them by their
// declared dependencies.
//
// OperationState: the run's data. It carries the settings, the kept and the
// excluded table, the identifiers and every error that was caught.
//
// Reporter: forwards human readable status and error messages to the caller
// and logs each of them.
//
// Errors are classified by OperationError. Configuration, item, remote,
// timeout and export errors are reported and the run goes on; input and
// cancellation errors stop it. A step that runs past its timeout fails alone
// and its dependents are skipped.
//
// Example usage:
//
//	reporter := operations.NewReporter(printStatus, printError, logger)
//	err := operations.RunPipeline(ctx, operations.Dependencies{
//		Logger:    logger,
//		Providers: providers,
//		Client:    annotation.NewClient(cfg.HTTP, logger),
//		Reporter:  reporter,
//	}, "settings.json", "proteinGroups.txt")
package operations
