package idprovider

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"taxonid/internal/idcodec"
	"taxonid/internal/releasedid"
	"taxonid/internal/report"
	"taxonid/internal/taxon"
)

const testProject = 1

// memStore is an in-memory Store with the ordering and id map semantics of
// the SQLite store.
type memStore struct {
	releases  []releasedid.Release
	usages    map[int][]taxon.SimpleName
	project   []taxon.SimpleName
	idmap     map[string]string
	runs      []RunRecord
	commits   int
	mapErr    error
	recordErr error
}

func newMemStore(project ...taxon.SimpleName) *memStore {
	return &memStore{
		usages:  make(map[int][]taxon.SimpleName),
		project: project,
		idmap:   make(map[string]string),
	}
}

func (m *memStore) addRelease(key, attempt int, usages ...taxon.SimpleName) {
	a := attempt
	m.releases = append(m.releases, releasedid.Release{
		DatasetKey: key,
		Attempt:    &a,
		Created:    time.Date(2024, 1, attempt, 0, 0, 0, 0, time.UTC),
	})
	m.usages[key] = append(m.usages[key], usages...)
}

// publish snapshots the project as a release using the current id map.
func (m *memStore) publish(key, attempt int) {
	usages := make([]taxon.SimpleName, 0, len(m.project))
	for _, sn := range m.project {
		if id, ok := m.idmap[sn.ID]; ok {
			sn.ID = id
		}
		if id, ok := m.idmap[sn.Parent]; ok {
			sn.Parent = id
		}
		usages = append(usages, sn)
	}
	m.addRelease(key, attempt, usages...)
}

func (m *memStore) Releases(context.Context, int) ([]releasedid.Release, error) {
	return slices.Clone(m.releases), nil
}

func (m *memStore) ProcessReleaseUsages(_ context.Context, datasetKey int, fn func(taxon.SimpleName) error) error {
	usages := slices.Clone(m.usages[datasetKey])
	slices.SortFunc(usages, func(a, b taxon.SimpleName) int { return cmp.Compare(a.ID, b.ID) })
	for _, sn := range usages {
		if err := fn(sn); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) ProcessCandidates(_ context.Context, _ int, fn func(taxon.SimpleName) error) error {
	cands := make([]taxon.SimpleName, 0, len(m.project))
	for _, sn := range m.project {
		if id, ok := m.idmap[sn.Parent]; ok {
			sn.Parent = id
		}
		cands = append(cands, sn)
	}
	slices.SortFunc(cands, func(a, b taxon.SimpleName) int {
		ak, aok := a.GroupKey()
		bk, bok := b.GroupKey()
		switch {
		case aok != bok && aok:
			return -1
		case aok != bok:
			return 1
		}
		if c := cmp.Compare(ak, bk); c != 0 {
			return c
		}
		if c := compareCluster(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for _, sn := range cands {
		if err := fn(sn); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) OpenIDMap(context.Context, int) (IDMapWriter, error) {
	return &memWriter{store: m, pending: make(map[string]string)}, nil
}

func (m *memStore) RecordRun(_ context.Context, run RunRecord) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.runs = append(m.runs, run)
	return nil
}

type memWriter struct {
	store   *memStore
	pending map[string]string
	cleared bool
	closed  bool
}

func (w *memWriter) Clear(context.Context) error {
	w.cleared = true
	clear(w.pending)
	return nil
}

func (w *memWriter) Map(_ context.Context, usageID, stableID string) error {
	if w.closed {
		return errors.New("closed")
	}
	if w.store.mapErr != nil {
		return w.store.mapErr
	}
	w.pending[usageID] = stableID
	return nil
}

func (w *memWriter) Commit(context.Context) error {
	if w.cleared {
		w.store.idmap = make(map[string]string)
		w.cleared = false
	}
	maps.Copy(w.store.idmap, w.pending)
	clear(w.pending)
	w.store.commits++
	return nil
}

func (w *memWriter) Close() error {
	w.closed = true
	clear(w.pending)
	return nil
}

type recordingReporter struct {
	noMatch []taxon.SimpleName
	results []report.Result
	aborted bool
}

func (r *recordingReporter) NoMatch(sn taxon.SimpleName) {
	r.noMatch = append(r.noMatch, sn)
}

func (r *recordingReporter) Write(_ context.Context, res report.Result) {
	r.results = append(r.results, res)
}

func (r *recordingReporter) Abort() {
	r.aborted = true
}

func name(id string, cluster uint32, status taxon.Status, rank taxon.Rank, authorship string) taxon.SimpleName {
	return taxon.SimpleName{
		ID:          id,
		Name:        "Name " + idcodec.Encode(cluster),
		Authorship:  authorship,
		Rank:        rank,
		Status:      status,
		ClusterID:   taxon.Uint32(cluster),
		CanonicalID: taxon.Uint32(cluster),
		MatchType:   taxon.MatchExact,
	}
}

func species(id string, cluster uint32) taxon.SimpleName {
	return name(id, cluster, taxon.StatusAccepted, taxon.RankSpecies, "L.")
}

func releasedSpecies(id, cluster uint32) taxon.SimpleName {
	return species(idcodec.Encode(id), cluster)
}
