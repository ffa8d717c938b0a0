// Package main hosts the taxonid CLI.
//
// The Cobra command tree resolves configuration once, opens the SQLite
// catalogue and hands off to the internal packages: reconcile runs the stable
// identifier provider for a project, snapshot publishes the reconciled
// project as a release, runs lists past reconciliations, and id converts
// between integer and published identifiers.
package main
