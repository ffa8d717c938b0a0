// Package report writes the audit listings of a reconciliation run.
//
// Every run produces deleted.tsv, resurrected.tsv and created.tsv (encoded
// id, rank, status, name, authorship), unstable.txt for names that lost an
// identifier and gained or regained another, and nomatch.txt for usages
// without a names index match. Files are replaced atomically. Broken entries
// are logged and skipped.
package report
