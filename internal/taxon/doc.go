// Package taxon holds the small closed vocabularies (status, rank, match
// type) and the flat name usage record the identifier engine works with.
package taxon
