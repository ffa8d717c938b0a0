// Package logging assembles the structured slog loggers used by taxonid.
//
// It owns the console and JSON handlers, level parsing and output routing, and
// exposes helpers that tag records with the component, project, attempt and
// run id of a reconciliation. A no-op logger is provided for tests and for
// library callers that pass no logger.
package logging
