package releasedid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxonid/internal/idcodec"
	"taxonid/internal/taxon"
)

type fakeHistory struct {
	releases []Release
	usages   map[int][]taxon.SimpleName
	read     []int
	failOn   int
}

func (f *fakeHistory) Releases(context.Context, int) ([]Release, error) {
	return f.releases, nil
}

func (f *fakeHistory) ProcessReleaseUsages(_ context.Context, datasetKey int, fn func(taxon.SimpleName) error) error {
	if f.failOn != 0 && datasetKey == f.failOn {
		return errors.New("cursor broke")
	}
	f.read = append(f.read, datasetKey)
	for _, u := range f.usages[datasetKey] {
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

func attempt(n int) *int { return &n }

func usage(id uint32, cluster uint32, status taxon.Status) taxon.SimpleName {
	return taxon.SimpleName{
		ID:        idcodec.Encode(id),
		Name:      "Name",
		Status:    status,
		Rank:      taxon.RankSpecies,
		ClusterID: taxon.Uint32(cluster),
		MatchType: taxon.MatchExact,
	}
}

func TestLoadNewestAttemptWins(t *testing.T) {
	old := usage(42, 7, taxon.StatusSynonym)
	newer := usage(42, 8, taxon.StatusAccepted)
	src := &fakeHistory{
		releases: []Release{
			{DatasetKey: 100, Attempt: attempt(1)},
			{DatasetKey: 200, Attempt: attempt(2)},
		},
		usages: map[int][]taxon.SimpleName{
			100: {old, usage(5, 3, taxon.StatusAccepted)},
			200: {newer},
		},
	}

	idx, err := Load(context.Background(), src, 1, time.Time{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{200, 100}, src.read, "releases must be read newest first")
	r, ok := idx.ByID(42)
	require.True(t, ok)
	assert.Equal(t, uint32(8), r.ClusterID)
	assert.Equal(t, 2, r.Attempt)
	assert.Equal(t, taxon.StatusAccepted, r.Status)
	assert.Empty(t, idx.ByCluster(7), "older version of id 42 must be dropped")
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, uint32(42), idx.MaxID())
	assert.Equal(t, 2, idx.MaxAttempt())

	key, ok := idx.DatasetForAttempt(1)
	require.True(t, ok)
	assert.Equal(t, 100, key)
}

func TestLoadSkipsUsagesWithoutClusterOrStableID(t *testing.T) {
	noCluster := usage(9, 1, taxon.StatusAccepted)
	noCluster.ClusterID = nil
	temporary := usage(10, 1, taxon.StatusAccepted)
	temporary.ID = "4f0c2b62-0a3e-4e0c-9f3a-0d1c6a8a7e21"

	src := &fakeHistory{
		releases: []Release{{DatasetKey: 100, Attempt: attempt(1)}},
		usages:   map[int][]taxon.SimpleName{100: {noCluster, temporary, usage(11, 1, taxon.StatusAccepted)}},
	}
	idx, err := Load(context.Background(), src, 1, time.Time{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
	assert.True(t, idx.Contains(11))
}

func TestLoadFailsOnMissingAttemptBeforeReading(t *testing.T) {
	src := &fakeHistory{
		releases: []Release{
			{DatasetKey: 300, Attempt: attempt(3)},
			{DatasetKey: 200, Attempt: nil},
		},
		usages: map[int][]taxon.SimpleName{300: {usage(1, 1, taxon.StatusAccepted)}},
	}
	_, err := Load(context.Background(), src, 1, time.Time{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingAttempt)
	assert.Empty(t, src.read, "no release may be read when metadata is corrupt")
}

func TestLoadPropagatesSourceErrors(t *testing.T) {
	src := &fakeHistory{
		releases: []Release{{DatasetKey: 100, Attempt: attempt(1)}},
		failOn:   100,
	}
	_, err := Load(context.Background(), src, 1, time.Time{}, nil)
	require.Error(t, err)
}

func TestLoadHonoursSince(t *testing.T) {
	cutoff := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeHistory{
		releases: []Release{
			{DatasetKey: 100, Attempt: attempt(1), Created: cutoff.AddDate(0, -1, 0)},
			{DatasetKey: 150, Attempt: nil, Created: cutoff.AddDate(-1, 0, 0)},
			{DatasetKey: 200, Attempt: attempt(2), Created: cutoff.AddDate(0, 1, 0)},
		},
		usages: map[int][]taxon.SimpleName{
			100: {usage(1, 1, taxon.StatusAccepted)},
			200: {usage(2, 2, taxon.StatusAccepted)},
		},
	}
	idx, err := Load(context.Background(), src, 1, cutoff, nil)
	require.NoError(t, err, "releases before the cutoff are not validated")
	assert.Equal(t, []int{200}, src.read)
	assert.False(t, idx.Contains(1))
	assert.True(t, idx.Contains(2))
}

func TestIndexRemoveAndAttemptQueries(t *testing.T) {
	idx := NewIndex()
	idx.AddRelease(4, 400)
	idx.AddRelease(3, 300)
	for _, r := range []ReleasedID{
		{ID: 3, ClusterID: 1, Attempt: 4},
		{ID: 1, ClusterID: 1, Attempt: 4},
		{ID: 2, ClusterID: 2, Attempt: 3},
	} {
		require.True(t, idx.Add(r))
	}
	assert.False(t, idx.Add(ReleasedID{ID: 1, ClusterID: 9, Attempt: 2}))

	assert.Equal(t, []uint32{1, 3}, idx.IDsAtAttempt(4))
	cluster := idx.ByCluster(1)
	require.Len(t, cluster, 2)
	assert.Equal(t, uint32(3), cluster[0].ID, "discovery order is kept")

	removed, ok := idx.Remove(3)
	require.True(t, ok)
	assert.Equal(t, uint32(3), removed.ID)
	_, ok = idx.Remove(3)
	assert.False(t, ok)

	assert.Equal(t, []uint32{1}, idx.IDsAtAttempt(4))
	assert.Len(t, idx.ByCluster(1), 1)
	assert.Equal(t, uint32(3), idx.MaxID(), "claimed ids still bound the sequence")
}

func TestMaxAttemptCountsEmptyReleases(t *testing.T) {
	idx := NewIndex()
	idx.AddRelease(4, 400)
	idx.Add(ReleasedID{ID: 42, ClusterID: 7, Attempt: 3})
	assert.Equal(t, 4, idx.MaxAttempt())
}

func TestNewRequiresCluster(t *testing.T) {
	sn := usage(1, 1, taxon.StatusAccepted)
	sn.ClusterID = nil
	_, err := New(sn, 1)
	assert.ErrorIs(t, err, ErrNoCluster)

	sn = usage(1, 1, taxon.StatusAccepted)
	sn.ID = "not-an-id"
	_, err = New(sn, 1)
	assert.ErrorIs(t, err, idcodec.ErrInvalid)
}
