// Package idprovider assigns stable identifiers to the name usages of a
// project before it is released.
//
// A Provider loads every identifier published by earlier releases into a
// releasedid.Index, streams the current project usages in canonical groups,
// and lets the greedy matcher in package matching decide which usage continues
// which released identifier. Usages without a compatible predecessor receive
// a new id from a Sequence seeded above every id ever issued. The resulting
// mapping is written through an IDMapWriter in batched transactions, and the
// run is summarized as an Outcome plus the audit listings of package report.
//
// Runs are single threaded and deterministic: the same history and the same
// candidates always produce the same mapping. A file lock per project keeps
// two runs from interleaving.
package idprovider
