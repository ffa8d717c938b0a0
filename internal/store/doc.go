// Package store persists the catalogue in SQLite: project and release
// datasets, their name usages, the stable id map of each project and the
// history of reconciliation runs.
//
// Usages are streamed through forward-only cursors so that neither a release
// nor a project has to fit in memory. The id map is written through an
// IDMapWriter whose transactions are committed explicitly by the caller;
// rows are upserted by project usage id so an interrupted run can simply be
// repeated. Schema changes go into a new file under migrations/.
package store
