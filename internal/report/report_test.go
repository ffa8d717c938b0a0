package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxonid/internal/releasedid"
	"taxonid/internal/taxon"
)

type usageKey struct {
	dataset int
	id      string
}

type fakeLookup struct {
	released map[usageKey]taxon.SimpleName
	mapped   map[string]taxon.SimpleName
	failing  map[string]bool
}

func (f *fakeLookup) UsageByID(_ context.Context, datasetKey int, id string) (taxon.SimpleName, bool, error) {
	if f.failing[id] {
		return taxon.SimpleName{}, false, errors.New("lookup failed")
	}
	sn, ok := f.released[usageKey{datasetKey, id}]
	return sn, ok, nil
}

func (f *fakeLookup) UsageByIDMap(_ context.Context, _ int, stableID string) (taxon.SimpleName, bool, error) {
	if f.failing[stableID] {
		return taxon.SimpleName{}, false, errors.New("lookup failed")
	}
	sn, ok := f.mapped[stableID]
	return sn, ok, nil
}

func species(name, authorship string, status taxon.Status, cluster, canonical *uint32, match taxon.MatchType) taxon.SimpleName {
	return taxon.SimpleName{
		Name:        name,
		Authorship:  authorship,
		Rank:        taxon.RankSpecies,
		Status:      status,
		ClusterID:   cluster,
		CanonicalID: canonical,
		MatchType:   match,
	}
}

func fixtureLookup() *fakeLookup {
	picea := species("Picea abies", "(L.) H.Karst.", taxon.StatusSynonym, taxon.Uint32(8), nil, taxon.MatchVariant)
	picea.Parent = "ABC"
	newPicea := species("Picea abies", "", taxon.StatusSynonym, nil, nil, taxon.MatchNone)
	newPicea.Parent = "5H"

	return &fakeLookup{
		released: map[usageKey]taxon.SimpleName{
			{14, "5"}:  species("Abies alba", "Mill.", taxon.StatusAccepted, taxon.Uint32(7), taxon.Uint32(6), taxon.MatchExact),
			{14, "9"}:  picea,
			{14, "F"}:  species("Pinus nigra", "Arnold", taxon.StatusAccepted, taxon.Uint32(12), taxon.Uint32(12), taxon.MatchExact),
			{13, "3H"}: species("Larix decidua", "Mill.", taxon.StatusAccepted, taxon.Uint32(9), taxon.Uint32(9), taxon.MatchExact),
		},
		mapped: map[string]taxon.SimpleName{
			"5H": species("Abies alba", "L.", taxon.StatusAccepted, taxon.Uint32(10), taxon.Uint32(6), taxon.MatchExact),
			"5K": newPicea,
		},
	}
}

func fixtureResult() Result {
	datasets := map[int]int{3: 13, 4: 14}
	return Result{
		ReleaseKey: 100,
		Created:    []uint32{102, 100, 101},
		Deleted: []releasedid.ReleasedID{
			{ID: 11, ClusterID: 12, Attempt: 4},
			{ID: 3, ClusterID: 7, Attempt: 4},
			{ID: 7, ClusterID: 8, Attempt: 4},
		},
		Resurrected: []releasedid.ReleasedID{{ID: 42, ClusterID: 9, Attempt: 3}},
		DatasetForAttempt: func(attempt int) (int, bool) {
			key, ok := datasets[attempt]
			return key, ok
		},
	}
}

func readReport(t *testing.T, dir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return data
}

func TestReporterGolden(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "1", "5")
	r := New(dir, 1, 5, fixtureLookup(), nil)

	r.NoMatch(taxon.SimpleName{ID: "x1", Name: "Foo bar", Status: taxon.StatusAccepted, Rank: taxon.RankSpecies})
	r.NoMatch(taxon.SimpleName{ID: "x2", Name: "Foo baz", Phrase: "sensu lato"})
	r.Write(context.Background(), fixtureResult())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "deleted", readReport(t, dir, DeletedFile))
	g.Assert(t, "resurrected", readReport(t, dir, ResurrectedFile))
	g.Assert(t, "created", readReport(t, dir, CreatedFile))
	g.Assert(t, "unstable", readReport(t, dir, UnstableFile))
	g.Assert(t, "nomatch", readReport(t, dir, NoMatchFile))
}

func TestReporterWritesEmptyListings(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 1, 1, &fakeLookup{}, nil)

	r.Write(context.Background(), Result{})

	for _, name := range []string{DeletedFile, ResurrectedFile, CreatedFile, UnstableFile, NoMatchFile} {
		assert.Empty(t, readReport(t, dir, name), name)
	}
}

func TestReporterSkipsFailedLookups(t *testing.T) {
	dir := t.TempDir()
	lookup := fixtureLookup()
	lookup.failing = map[string]bool{"5": true, "5H": true}
	r := New(dir, 1, 5, lookup, nil)

	r.Write(context.Background(), fixtureResult())

	assert.Equal(t,
		"5\t\t\t\t\n9\tspecies\tsynonym\tPicea abies\t(L.) H.Karst.\nF\tspecies\taccepted\tPinus nigra\tArnold\n",
		string(readReport(t, dir, DeletedFile)))
	assert.Equal(t,
		"5H\t\t\t\t\n5J\t\t\t\t\n5K\tspecies\tsynonym\tPicea abies\t\n",
		string(readReport(t, dir, CreatedFile)))
	// the Abies group lost its deletion, only Picea remains
	unstable := string(readReport(t, dir, UnstableFile))
	assert.NotContains(t, unstable, "Abies alba")
	assert.Contains(t, unstable, "Picea abies\n")
}

func TestReporterUnknownAttemptWritesBareRow(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 1, 5, fixtureLookup(), nil)

	r.Write(context.Background(), Result{
		Deleted: []releasedid.ReleasedID{{ID: 3, ClusterID: 7, Attempt: 2}},
	})

	assert.Equal(t, "5\t\t\t\t\n", string(readReport(t, dir, DeletedFile)))
}

func TestReporterSurvivesUnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	dir := filepath.Join(blocker, "reports")
	r := New(dir, 1, 5, fixtureLookup(), nil)

	assert.NotPanics(t, func() {
		r.NoMatch(taxon.SimpleName{ID: "x1", Name: "Foo bar"})
		r.Write(context.Background(), fixtureResult())
	})
	_, err := os.Stat(dir)
	assert.Error(t, err)
}

func TestReporterAbortDiscardsNoMatch(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 1, 5, fixtureLookup(), nil)

	r.NoMatch(taxon.SimpleName{ID: "x1", Name: "Foo bar"})
	r.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReporterLabelsCreatedWithProjectWithoutReleaseKey(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 1, 5, fixtureLookup(), nil)
	res := fixtureResult()
	res.ReleaseKey = 0

	r.Write(context.Background(), res)

	unstable := string(readReport(t, dir, UnstableFile))
	assert.Contains(t, unstable, " + Abies alba L. [ACCEPTED SPECIES 1:5H nidx=10/6 EXACT]\n")
	assert.Contains(t, unstable, " + Picea abies [SYNONYM SPECIES 1:5K nidx=null parent=5H]\n")
	assert.NotContains(t, unstable, " 0:")
}
