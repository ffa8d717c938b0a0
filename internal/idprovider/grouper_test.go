package idprovider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxonid/internal/taxon"
)

func ids(names []taxon.SimpleName) []string {
	out := make([]string, len(names))
	for i, sn := range names {
		out[i] = sn.ID
	}
	return out
}

func withKeys(id string, canonical, cluster *uint32) taxon.SimpleName {
	return taxon.SimpleName{ID: id, CanonicalID: canonical, ClusterID: cluster}
}

func TestGrouperSplitsContiguousRuns(t *testing.T) {
	var groups [][]string
	g := newGrouper(func(group []taxon.SimpleName) error {
		groups = append(groups, ids(group))
		return nil
	})

	input := []taxon.SimpleName{
		withKeys("a", taxon.Uint32(1), taxon.Uint32(1)),
		withKeys("b", taxon.Uint32(1), taxon.Uint32(2)),
		// no canonical id, grouped by its cluster id
		withKeys("c", nil, taxon.Uint32(2)),
		withKeys("d", taxon.Uint32(3), nil),
		withKeys("e", nil, nil),
		withKeys("f", nil, nil),
	}
	for _, sn := range input {
		require.NoError(t, g.Add(sn))
	}
	require.NoError(t, g.Flush())
	require.NoError(t, g.Flush())

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}, {"d"}, {"e", "f"}}, groups)
}

func TestGrouperPropagatesFlushError(t *testing.T) {
	boom := errors.New("boom")
	g := newGrouper(func([]taxon.SimpleName) error { return boom })

	require.NoError(t, g.Add(withKeys("a", taxon.Uint32(1), nil)))
	assert.ErrorIs(t, g.Add(withKeys("b", taxon.Uint32(2), nil)), boom)
}

func TestSplitClustersPutsMissingLast(t *testing.T) {
	group := []taxon.SimpleName{
		withKeys("x", nil, nil),
		withKeys("b", nil, taxon.Uint32(9)),
		withKeys("a", nil, taxon.Uint32(3)),
		withKeys("c", nil, taxon.Uint32(9)),
		withKeys("y", nil, nil),
	}

	var got [][]string
	for _, cluster := range splitClusters(group) {
		got = append(got, ids(cluster))
	}

	assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"x", "y"}}, got)
	assert.Nil(t, splitClusters(nil))
}
