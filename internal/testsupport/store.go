package testsupport

import (
	"context"
	"testing"
	"time"

	"taxonid/internal/config"
	"taxonid/internal/idcodec"
	"taxonid/internal/store"
	"taxonid/internal/taxon"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// MustCreateProject inserts a project dataset with the given usages.
func MustCreateProject(t testing.TB, st *store.Store, key int, usages ...taxon.SimpleName) {
	t.Helper()

	ctx := context.Background()
	if err := st.CreateDataset(ctx, store.Dataset{Key: key, Title: "project"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := st.InsertUsages(ctx, key, usages); err != nil {
		t.Fatalf("insert project usages: %v", err)
	}
}

// MustCreateRelease inserts a release of projectKey with the given usages.
// Usage ids must already be encoded stable ids.
func MustCreateRelease(t testing.TB, st *store.Store, projectKey, key, attempt int, created time.Time, usages ...taxon.SimpleName) {
	t.Helper()

	ctx := context.Background()
	d := store.Dataset{Key: key, Title: "release", SourceKey: &projectKey, Attempt: &attempt, Created: created}
	if err := st.CreateDataset(ctx, d); err != nil {
		t.Fatalf("create release: %v", err)
	}
	if err := st.InsertUsages(ctx, key, usages); err != nil {
		t.Fatalf("insert release usages: %v", err)
	}
}

// Usage builds an accepted species usage in names index cluster nidx.
func Usage(id, name, authorship string, nidx uint32) taxon.SimpleName {
	return taxon.SimpleName{
		ID:         id,
		Name:       name,
		Authorship: authorship,
		Rank:       taxon.RankSpecies,
		Status:     taxon.StatusAccepted,
		ClusterID:  taxon.Uint32(nidx),
		MatchType:  taxon.MatchExact,
	}
}

// Released builds a released usage carrying the encoded stable id.
func Released(id uint32, name, authorship string, nidx uint32) taxon.SimpleName {
	return Usage(idcodec.Encode(id), name, authorship, nidx)
}
