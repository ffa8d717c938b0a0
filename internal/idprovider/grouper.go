package idprovider

import (
	"cmp"
	"slices"

	"taxonid/internal/taxon"
)

// grouper buffers contiguous candidates sharing a group key and hands each
// completed run to flush. Candidates without a key form one trailing run.
type grouper struct {
	buf   []taxon.SimpleName
	key   uint32
	keyed bool
	flush func(group []taxon.SimpleName) error
}

func newGrouper(flush func(group []taxon.SimpleName) error) *grouper {
	return &grouper{flush: flush}
}

// Add appends sn, flushing the open run first when sn starts a new one.
func (g *grouper) Add(sn taxon.SimpleName) error {
	key, keyed := sn.GroupKey()
	if len(g.buf) > 0 && (key != g.key || keyed != g.keyed) {
		if err := g.Flush(); err != nil {
			return err
		}
	}
	g.key, g.keyed = key, keyed
	g.buf = append(g.buf, sn)
	return nil
}

// Flush hands the open run to the flush func. The buffer is reused, so
// flush must not retain it.
func (g *grouper) Flush() error {
	if len(g.buf) == 0 {
		return nil
	}
	err := g.flush(g.buf)
	clear(g.buf)
	g.buf = g.buf[:0]
	return err
}

// splitClusters stably sorts group by cluster id, missing ids last, and
// returns the runs of equal cluster ids. The returned slices alias group.
func splitClusters(group []taxon.SimpleName) [][]taxon.SimpleName {
	if len(group) == 0 {
		return nil
	}
	slices.SortStableFunc(group, compareCluster)

	var out [][]taxon.SimpleName
	start := 0
	for i := 1; i <= len(group); i++ {
		if i == len(group) || compareCluster(group[start], group[i]) != 0 {
			out = append(out, group[start:i])
			start = i
		}
	}
	return out
}

func compareCluster(a, b taxon.SimpleName) int {
	switch {
	case a.ClusterID == nil && b.ClusterID == nil:
		return 0
	case a.ClusterID == nil:
		return 1
	case b.ClusterID == nil:
		return -1
	default:
		return cmp.Compare(*a.ClusterID, *b.ClusterID)
	}
}
