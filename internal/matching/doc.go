// Package matching decides which current name usage continues which released
// stable identifier within one names index cluster.
//
// Score is a pure function rating a single candidate/released pair. Assign
// runs a deterministic greedy assignment over all pairs of a cluster: the
// highest scores are committed first and ties are broken by discovery order.
// Clusters are small (homonyms and authorship variants of one name), so the
// greedy result is used in place of an optimal bipartite matching.
package matching
