// Package cli implements the cmon command tree: init, check, run, logs,
// version and completion.
//
// Commands load cmon.yaml through the config package, build an
// orchestrator from it and report through the ui package. Errors are
// returned as *errors.Error so Execute can print the message and
// suggestion; commands that already printed their output return an
// ExitError to set the status code.
package cli
